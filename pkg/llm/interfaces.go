// Package llm talks to text-completion and embedding providers and adapts
// them into the oracle the resolution pipeline consumes.
package llm

import (
	"context"
)

// GenerateResponseResult is a completion plus token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient is a provider-neutral chat completion and embedding client.
type LLMClient interface {
	// GenerateResponse runs a single-turn completion.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// CreateEmbeddings embeds inputs, returning vectors in input order.
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)

	GetModel() string
	GetEndpoint() string
}

var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
)
