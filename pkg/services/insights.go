package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/prompts"
)

// Fixed insight texts for results the oracle is not consulted about.
const (
	InsightNoResults   = "No results found for this query."
	insightErrorPrefix = "Unable to generate insights: "
)

// InsightGenerator summarizes a successful result in a few sentences.
type InsightGenerator struct {
	oracle TextCompletionOracle
	logger *zap.Logger
}

func NewInsightGenerator(oracle TextCompletionOracle, logger *zap.Logger) *InsightGenerator {
	return &InsightGenerator{
		oracle: oracle,
		logger: logger.Named("insights"),
	}
}

// Generate returns a narrative summary. It never fails: empty or failed
// results and oracle errors produce fixed messages instead.
func (g *InsightGenerator) Generate(ctx context.Context, question string, result *models.ResolutionResult) string {
	if result == nil || !result.Success || len(result.Rows) == 0 {
		return InsightNoResults
	}

	text, err := g.oracle.Complete(ctx, prompts.BuildInsightsPrompt(question, result.SQLText(), result.Columns, result.Rows))
	if err != nil {
		g.logger.Warn("Insight generation failed", zap.Error(err))
		return insightErrorPrefix + err.Error()
	}
	return strings.TrimSpace(text)
}
