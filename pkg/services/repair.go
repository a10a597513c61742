package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/prompts"
)

// DefaultMaxAttempts bounds executions per resolution, the first included.
const DefaultMaxAttempts = 3

// RepairConfig tunes the repair loop. Zero values use the defaults.
type RepairConfig struct {
	MaxAttempts int
	RowLimit    int
	Dialect     prompts.Dialect
}

// RepairOutcome is the result of executing a query with repair.
//
// On success FinalSQL is the candidate that ran. On exhaustion FinalSQL is the
// query originally submitted and Error holds the last execution error.
type RepairOutcome struct {
	Result   *datasource.QueryExecutionResult
	Error    string
	FinalSQL string
	Attempts int
}

// Succeeded reports whether some candidate executed.
func (o RepairOutcome) Succeeded() bool {
	return o.Result != nil
}

type repairState int

const (
	stateAttempt repairState = iota
	stateRepairing
	stateSuccess
	stateExhausted
)

func (s repairState) String() string {
	switch s {
	case stateAttempt:
		return "attempt"
	case stateRepairing:
		return "repairing"
	case stateSuccess:
		return "success"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// repairStep is one immutable position in the loop. Transitions return a new
// step rather than mutating the current one.
type repairStep struct {
	state     repairState
	attempts  int
	candidate string
	lastErr   string
	result    *datasource.QueryExecutionResult
}

// RepairLoop executes a query and, when the engine rejects it, asks the oracle
// for a corrected version until one runs or the attempt budget is spent.
type RepairLoop struct {
	engine ExecutionEngine
	oracle TextCompletionOracle
	schema SchemaSummarizer
	cfg    RepairConfig
	logger *zap.Logger
}

func NewRepairLoop(engine ExecutionEngine, oracle TextCompletionOracle, schema SchemaSummarizer, cfg RepairConfig, logger *zap.Logger) *RepairLoop {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = datasource.MaxQueryLimit
	}
	if cfg.Dialect.Name == "" {
		cfg.Dialect = prompts.DialectFor("")
	}
	return &RepairLoop{
		engine: engine,
		oracle: oracle,
		schema: schema,
		cfg:    cfg,
		logger: logger.Named("repair"),
	}
}

// Execute runs sqlQuery, repairing it at most MaxAttempts-1 times.
// intent is the user's question and may be empty.
func (l *RepairLoop) Execute(ctx context.Context, sqlQuery, intent string) RepairOutcome {
	step := repairStep{state: stateAttempt, candidate: sqlQuery}

	for {
		switch step.state {
		case stateAttempt:
			step = l.attempt(ctx, step)
		case stateRepairing:
			step = l.repair(ctx, step, intent)
		case stateSuccess:
			return RepairOutcome{
				Result:   step.result,
				FinalSQL: step.candidate,
				Attempts: step.attempts,
			}
		default:
			l.logger.Warn("Repair attempts exhausted",
				zap.Int("attempts", step.attempts),
				zap.String("error", step.lastErr))
			return RepairOutcome{
				Error:    step.lastErr,
				FinalSQL: sqlQuery,
				Attempts: step.attempts,
			}
		}
	}
}

func (l *RepairLoop) attempt(ctx context.Context, step repairStep) repairStep {
	step.attempts++

	result, err := l.engine.Query(ctx, step.candidate, l.cfg.RowLimit)
	if err == nil {
		if step.attempts > 1 {
			l.logger.Info("Repaired query executed", zap.Int("attempt", step.attempts))
		}
		step.state = stateSuccess
		step.result = result
		return step
	}

	step.lastErr = err.Error()
	l.logger.Debug("Query execution failed",
		zap.Int("attempt", step.attempts),
		zap.Int("max_attempts", l.cfg.MaxAttempts),
		zap.String("error", step.lastErr))

	if step.attempts >= l.cfg.MaxAttempts {
		step.state = stateExhausted
	} else {
		step.state = stateRepairing
	}
	return step
}

func (l *RepairLoop) repair(ctx context.Context, step repairStep, intent string) repairStep {
	summary, err := l.schema.SchemaSummary(ctx)
	if err != nil {
		l.logger.Warn("Schema summary unavailable for repair", zap.Error(err))
		summary = ""
	}

	fixed, err := l.oracle.Complete(ctx, prompts.BuildRepairPrompt(prompts.RepairRequest{
		FailedSQL: step.candidate,
		Error:     step.lastErr,
		Schema:    summary,
		Intent:    intent,
		Dialect:   l.cfg.Dialect,
	}))
	if err != nil {
		l.logger.Warn("Repair oracle call failed", zap.Error(err))
		step.state = stateExhausted
		return step
	}

	fixed = strings.TrimSpace(fixed)
	if fixed == "" {
		step.state = stateExhausted
		return step
	}

	step.candidate = fixed
	step.state = stateAttempt
	return step
}
