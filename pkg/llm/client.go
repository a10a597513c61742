package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultEmbeddingModel is used when no embedding model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

// Client talks to OpenAI-compatible endpoints (OpenAI, vLLM, Ollama, LiteLLM).
type Client struct {
	client         *openai.Client
	endpoint       string
	model          string
	embeddingModel string
	maxTokens      int
	logger         *zap.Logger
}

// Config holds provider connection settings.
type Config struct {
	Provider       string // "openai" (default) or "anthropic"
	Endpoint       string // Base URL, e.g. "https://api.openai.com/v1"
	Model          string
	EmbeddingModel string
	APIKey         string // optional for local endpoints
	MaxTokens      int
}

// NewClient creates an OpenAI-compatible client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	clientConfig.HTTPClient = newHTTPClient()

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		endpoint:       cfg.Endpoint,
		model:          cfg.Model,
		embeddingModel: embeddingModel,
		maxTokens:      cfg.MaxTokens,
		logger:         logger.Named("llm"),
	}, nil
}

// GenerateResponse runs a system + user chat completion.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemMessage})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature),
		zap.String("request_id", RequestIDFromContext(ctx)))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, c.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeUnknown, "no choices in response", false, nil)
	}

	c.logger.Debug("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// CreateEmbeddings embeds inputs with the configured embedding model.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", c.classify(err))
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	embeddings := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

func (c *Client) GetModel() string { return c.model }

func (c *Client) GetEndpoint() string { return c.endpoint }

func (c *Client) classify(err error) *Error {
	e := ClassifyError(err)
	if e.Model == "" {
		e.Model = c.model
	}
	if e.Endpoint == "" {
		e.Endpoint = c.endpoint
	}
	return e
}
