package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/prompts"
)

// DefaultMaxAlternatives is how many paraphrases are requested per question.
const DefaultMaxAlternatives = 3

// QueryExpander widens retrieval recall by asking the oracle for paraphrases.
type QueryExpander struct {
	oracle          TextCompletionOracle
	maxAlternatives int
	logger          *zap.Logger
}

func NewQueryExpander(oracle TextCompletionOracle, maxAlternatives int, logger *zap.Logger) *QueryExpander {
	if maxAlternatives < 0 {
		maxAlternatives = DefaultMaxAlternatives
	}
	return &QueryExpander{
		oracle:          oracle,
		maxAlternatives: maxAlternatives,
		logger:          logger.Named("expander"),
	}
}

// Expand returns the question followed by up to maxAlternatives paraphrases.
// Oracle failures are logged and yield just the original question.
func (e *QueryExpander) Expand(ctx context.Context, question string) []string {
	queries := []string{question}
	if e.maxAlternatives == 0 {
		return queries
	}

	content, err := e.oracle.Complete(ctx, prompts.BuildExpansionPrompt(question, e.maxAlternatives))
	if err != nil {
		e.logger.Warn("Query expansion failed, using original question only", zap.Error(err))
		return queries
	}

	return append(queries, ParseAlternatives(content, e.maxAlternatives)...)
}

// ParseAlternatives reads one phrasing per line, dropping list markers such as
// "1." or "- " and blank lines, keeping at most max entries.
func ParseAlternatives(content string, max int) []string {
	var alts []string
	for _, line := range strings.Split(content, "\n") {
		if len(alts) == max {
			break
		}
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "0123456789.-)* "))
		if line == "" {
			continue
		}
		alts = append(alts, line)
	}
	return alts
}
