package llm

import (
	"context"
	"sync"
)

// MockLLMClient is a configurable LLMClient for tests.
// Set the function fields to control behavior.
type MockLLMClient struct {
	mu sync.Mutex

	// GenerateResponseFunc handles GenerateResponse. If nil, returns an empty result.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// CreateEmbeddingsFunc handles CreateEmbeddings. If nil, returns nil.
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string) ([][]float32, error)

	Model    string
	Endpoint string

	// Call tracking for verification
	GenerateResponseCalls int
	CreateEmbeddingsCalls int
	Prompts               []string
}

// NewMockLLMClient creates a mock with default model and endpoint names.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.GenerateResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	fn := m.GenerateResponseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{}, nil
}

// CreateEmbeddings implements LLMClient.
func (m *MockLLMClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	m.mu.Lock()
	m.CreateEmbeddingsCalls++
	fn := m.CreateEmbeddingsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, inputs)
	}
	return nil, nil
}

func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateResponseCalls = 0
	m.CreateEmbeddingsCalls = 0
	m.Prompts = nil
}

var _ LLMClient = (*MockLLMClient)(nil)
