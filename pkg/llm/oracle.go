package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/retry"
)

// DefaultSystemMessage frames every oracle call.
const DefaultSystemMessage = "You are an expert SQL analyst. Answer exactly in the format requested, without commentary."

// OracleConfig tunes how prompts are sent.
type OracleConfig struct {
	SystemMessage string
	Temperature   float64
	Retry         *retry.Config
	Breaker       CircuitBreakerConfig
}

// Oracle adapts an LLMClient into a prompt-in, text-out completion function.
// Transient provider failures are retried, repeated failures trip a circuit
// breaker, and every successful completion is normalized exactly once.
type Oracle struct {
	client  LLMClient
	cfg     OracleConfig
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewOracle wraps client.
func NewOracle(client LLMClient, cfg OracleConfig, logger *zap.Logger) *Oracle {
	if cfg.SystemMessage == "" {
		cfg.SystemMessage = DefaultSystemMessage
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Breaker.ResetAfter == 0 {
		cfg.Breaker.ResetAfter = DefaultCircuitBreakerConfig().ResetAfter
	}
	return &Oracle{
		client:  client,
		cfg:     cfg,
		breaker: NewCircuitBreaker(cfg.Breaker),
		logger:  logger.Named("oracle"),
	}
}

// Complete sends prompt and returns the normalized completion text.
func (o *Oracle) Complete(ctx context.Context, prompt string) (string, error) {
	if err := o.breaker.Allow(); err != nil {
		o.logger.Warn("Oracle call rejected", zap.Error(err))
		return "", err
	}

	result, err := retry.DoIfRetryable(ctx, o.cfg.Retry, func(ctx context.Context) (*GenerateResponseResult, error) {
		res, err := o.client.GenerateResponse(ctx, prompt, o.cfg.SystemMessage, o.cfg.Temperature)
		if err != nil {
			return nil, ClassifyError(err)
		}
		return res, nil
	})
	if err != nil {
		o.breaker.RecordFailure()
		o.logger.Error("Oracle call failed",
			zap.String("model", o.client.GetModel()),
			zap.String("error_type", string(GetErrorType(err))),
			zap.Int("consecutive_failures", o.breaker.ConsecutiveFailures()),
			zap.Error(err))
		return "", err
	}

	o.breaker.RecordSuccess()
	return NormalizeCompletion(result.Content), nil
}

// BreakerState exposes the circuit state for health reporting.
func (o *Oracle) BreakerState() CircuitState {
	return o.breaker.State()
}

// Model returns the underlying model name.
func (o *Oracle) Model() string {
	return o.client.GetModel()
}
