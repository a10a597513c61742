package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClientForProvider builds the client named by cfg.Provider.
// An empty provider means an OpenAI-compatible endpoint.
func NewClientForProvider(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
