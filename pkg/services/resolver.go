package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/audit"
	"github.com/ekaya-inc/ekaya-analyst/pkg/cache"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/performance"
	"github.com/ekaya-inc/ekaya-analyst/pkg/prompts"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// Failure messages for results that carry no engine error.
const (
	ErrMsgSynthesis  = "failed to generate SQL query"
	ErrMsgValidation = "validation failed: "
	ErrMsgInternal   = "internal error: "
)

// QueryResolver answers natural-language questions with executed SQL.
// Resolve never returns a Go error; callers branch on Success.
type QueryResolver interface {
	Resolve(ctx context.Context, question string, history []models.ConversationTurn, useCache bool) *models.ResolutionResult

	CacheStats() models.CacheStats
	ClearCache()

	PerformanceStats() models.PerformanceStats
	PerformanceRecommendations() []string
	ClearPerformanceHistory()

	GenerateInsights(ctx context.Context, question string, result *models.ResolutionResult) string
}

// ResolverConfig tunes the pipeline.
type ResolverConfig struct {
	// MaxParaphrases is the number of oracle paraphrases requested per
	// question. Zero disables expansion.
	MaxParaphrases int `yaml:"max_paraphrases" env:"PIPELINE_MAX_PARAPHRASES" env-default:"3"`
	// RetrievalQueries is how many of the expanded queries are sent to retrieval.
	RetrievalQueries int `yaml:"retrieval_queries" env:"PIPELINE_RETRIEVAL_QUERIES" env-default:"2"`
	MaxAttempts      int `yaml:"max_attempts" env:"PIPELINE_MAX_ATTEMPTS" env-default:"3"`
	RowLimit         int `yaml:"row_limit" env:"PIPELINE_ROW_LIMIT" env-default:"1000"`
	// Dialect is the datasource type used to phrase SQL-writing prompts.
	Dialect string `yaml:"-"`
}

// DefaultResolverConfig mirrors the env-default tags.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxParaphrases:   DefaultMaxAlternatives,
		RetrievalQueries: 2,
		MaxAttempts:      DefaultMaxAttempts,
		RowLimit:         datasource.MaxQueryLimit,
	}
}

// ResolverDeps are the collaborators a resolver is built from.
// History, Auditor and Clock are optional.
type ResolverDeps struct {
	Oracle    TextCompletionOracle
	Context   SchemaContextProvider
	Engine    ExecutionEngine
	Schema    SchemaSummarizer
	Validator *sqlutil.Validator
	Cache     *cache.ResultCache
	Tracker   *performance.Tracker
	History   QueryHistoryRecorder
	Auditor   *audit.SecurityAuditor
	Clock     clockwork.Clock
}

type resolver struct {
	deps     ResolverDeps
	cfg      ResolverConfig
	dialect  prompts.Dialect
	expander *QueryExpander
	repair   *RepairLoop
	insights *InsightGenerator
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewQueryResolver(deps ResolverDeps, cfg ResolverConfig, logger *zap.Logger) QueryResolver {
	defaults := DefaultResolverConfig()
	if cfg.MaxParaphrases < 0 {
		cfg.MaxParaphrases = defaults.MaxParaphrases
	}
	if cfg.RetrievalQueries <= 0 {
		cfg.RetrievalQueries = defaults.RetrievalQueries
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = defaults.RowLimit
	}
	if deps.Validator == nil {
		deps.Validator = sqlutil.NewValidator(nil)
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(cache.Config{})
	}
	if deps.Tracker == nil {
		deps.Tracker = performance.NewTracker(performance.Config{})
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	dialect := prompts.DialectFor(cfg.Dialect)
	return &resolver{
		deps:     deps,
		cfg:      cfg,
		dialect:  dialect,
		expander: NewQueryExpander(deps.Oracle, cfg.MaxParaphrases, logger),
		repair: NewRepairLoop(deps.Engine, deps.Oracle, deps.Schema, RepairConfig{
			MaxAttempts: cfg.MaxAttempts,
			RowLimit:    cfg.RowLimit,
			Dialect:     dialect,
		}, logger),
		insights: NewInsightGenerator(deps.Oracle, logger),
		clock:    clock,
		logger:   logger.Named("resolver"),
	}
}

var _ QueryResolver = (*resolver)(nil)

// Resolve runs the pipeline: cache, expansion, retrieval, synthesis,
// validation, execution with repair, then tracking and caching. Every
// resolution that misses the cache produces exactly one performance record.
func (r *resolver) Resolve(ctx context.Context, question string, history []models.ConversationTurn, useCache bool) *models.ResolutionResult {
	start := r.clock.Now()

	if useCache {
		if hit, ok := r.deps.Cache.Get(question); ok {
			hit.Elapsed = r.clock.Since(start)
			r.logger.Debug("Cache hit", zap.String("question", question))
			return hit
		}
	}

	result := r.run(ctx, question, history, start)
	return r.finish(question, result, useCache)
}

// run produces the final result. Panics in collaborators are converted to
// internal failures here, before anything is tracked or cached.
func (r *resolver) run(ctx context.Context, question string, history []models.ConversationTurn, start time.Time) (result *models.ResolutionResult) {
	var candidate *string

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Resolution panicked",
				zap.String("question", question),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			result = &models.ResolutionResult{
				SQL:     candidate,
				Elapsed: r.clock.Since(start),
				Error:   fmt.Sprintf("%s%v", ErrMsgInternal, rec),
				Failure: models.FailureInternal,
			}
		}
	}()

	queries := r.expander.Expand(ctx, question)
	schemaContext := r.retrieve(ctx, queries)

	generated, err := r.deps.Oracle.Complete(ctx, prompts.BuildGenerationPrompt(question, schemaContext, history, r.dialect))
	generated = strings.TrimSpace(generated)
	if err != nil || generated == "" {
		msg := ErrMsgSynthesis
		if err != nil {
			msg = fmt.Sprintf("%s: %v", ErrMsgSynthesis, err)
		}
		r.logger.Warn("SQL synthesis failed", zap.String("question", question), zap.Error(err))
		return &models.ResolutionResult{
			Elapsed: r.clock.Since(start),
			Error:   msg,
			Failure: models.FailureSynthesis,
		}
	}
	candidate = &generated

	verdict := r.deps.Validator.Validate(generated)
	r.deps.Auditor.AuditVerdict(ctx, audit.SourceResolver, question, generated, verdict)
	if !verdict.Valid {
		r.logger.Info("Generated SQL rejected",
			zap.String("question", question),
			zap.Strings("errors", verdict.Errors))
		return &models.ResolutionResult{
			SQL:              candidate,
			Elapsed:          r.clock.Since(start),
			Warnings:         verdict.Warnings,
			ValidationErrors: verdict.Errors,
			Error:            ErrMsgValidation + strings.Join(verdict.Errors, "; "),
			Failure:          models.FailureValidation,
		}
	}

	outcome := r.repair.Execute(ctx, generated, question)
	finalSQL := outcome.FinalSQL
	candidate = &finalSQL

	if !outcome.Succeeded() {
		return &models.ResolutionResult{
			SQL:      candidate,
			Elapsed:  r.clock.Since(start),
			Warnings: verdict.Warnings,
			Error:    outcome.Error,
			Failure:  models.FailureExecution,
			Attempts: outcome.Attempts,
		}
	}

	return &models.ResolutionResult{
		Success:  true,
		SQL:      candidate,
		Columns:  outcome.Result.ColumnNames(),
		Rows:     outcome.Result.Rows,
		RowCount: outcome.Result.RowCount,
		Elapsed:  r.clock.Since(start),
		Warnings: verdict.Warnings,
		Attempts: outcome.Attempts,
	}
}

// retrieve concatenates the context for the first RetrievalQueries queries in
// order. Provider errors contribute an empty fragment.
func (r *resolver) retrieve(ctx context.Context, queries []string) string {
	if r.deps.Context == nil {
		return ""
	}
	if len(queries) > r.cfg.RetrievalQueries {
		queries = queries[:r.cfg.RetrievalQueries]
	}

	fragments := make([]string, 0, len(queries))
	for _, q := range queries {
		fragment, err := r.deps.Context.Retrieve(ctx, q)
		if err != nil {
			r.logger.Warn("Schema retrieval failed", zap.String("query", q), zap.Error(err))
			fragment = ""
		}
		fragments = append(fragments, fragment)
	}
	return strings.Join(fragments, "\n")
}

func (r *resolver) finish(question string, result *models.ResolutionResult, cacheIt bool) *models.ResolutionResult {
	r.track(question, result)

	if result.Success {
		if cacheIt {
			r.deps.Cache.Put(question, result)
		}
		r.recordHistory(question, result)
	}
	return result
}

func (r *resolver) track(question string, result *models.ResolutionResult) {
	r.deps.Tracker.Record(question, result.SQLText(), result.Elapsed, result.RowCount, result.Success)
}

// recordHistory never fails the resolution; recorder errors and panics are
// logged.
func (r *resolver) recordHistory(question string, result *models.ResolutionResult) {
	if r.deps.History == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Query history recorder panicked",
				zap.String("question", question),
				zap.Any("panic", rec))
		}
	}()

	// Detached from the request so a cancelled caller does not lose the entry.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := &models.QueryHistoryEntry{
		Question:            question,
		SQL:                 result.SQLText(),
		ExecutionDurationMs: int(result.Elapsed.Milliseconds()),
		RowCount:            result.RowCount,
	}
	if err := r.deps.History.Record(ctx, entry); err != nil {
		r.logger.Warn("Failed to record query history", zap.Error(err))
	}
}

func (r *resolver) CacheStats() models.CacheStats {
	return r.deps.Cache.Stats()
}

func (r *resolver) ClearCache() {
	r.deps.Cache.Clear()
}

func (r *resolver) PerformanceStats() models.PerformanceStats {
	return r.deps.Tracker.Statistics()
}

func (r *resolver) PerformanceRecommendations() []string {
	return r.deps.Tracker.Recommendations()
}

func (r *resolver) ClearPerformanceHistory() {
	r.deps.Tracker.Clear()
}

func (r *resolver) GenerateInsights(ctx context.Context, question string, result *models.ResolutionResult) string {
	return r.insights.Generate(ctx, question, result)
}
