package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAnthropicClient_Validation(t *testing.T) {
	_, err := NewAnthropicClient(&Config{Model: "claude"}, zap.NewNop())
	assert.ErrorContains(t, err, "api key is required")

	_, err = NewAnthropicClient(&Config{APIKey: "k"}, zap.NewNop())
	assert.ErrorContains(t, err, "model is required")
}

func TestAnthropicClient_GenerateResponse(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "SELECT "}, {"type": "text", "text": "1"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 4}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(&Config{Endpoint: server.URL + "/v1", Model: "claude-test", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	res, err := client.GenerateResponse(context.Background(), "count orders", "be precise", 0)

	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", res.Content)
	assert.Equal(t, 24, res.TotalTokens)
	assert.Equal(t, "claude-test", body["model"])
	assert.Equal(t, "be precise", body["system"])
}

func TestAnthropicClient_NoEmbeddings(t *testing.T) {
	client, err := NewAnthropicClient(&Config{Model: "claude-test", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.CreateEmbeddings(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmbeddingsUnsupported)
	assert.Equal(t, "https://api.anthropic.com/v1", client.GetEndpoint())
}
