package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-analyst/pkg/logging"
)

func serveMCP(t *testing.T, reqBody, respBody string) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(respBody))
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	rec := httptest.NewRecorder()
	MCPRequestLogger(zap.New(core))(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	return logs
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"resolve_question","arguments":{"question":"how many orders?"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`)

		require.Equal(t, 2, logs.Len(), "Should log request and response")

		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "resolve_question", requestLog.ContextMap()["tool"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.Equal(t, "resolve_question", responseLog.ContextMap()["tool"])
		assert.NotNil(t, responseLog.ContextMap()["duration"])
	})

	t.Run("logs JSON-RPC error", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"explain_sql","arguments":{}}}`,
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"missing sql"}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, int64(-32602), responseLog.ContextMap()["error_code"])
	})

	t.Run("logs tool-level error result", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"resolve_question","arguments":{"question":""}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"question is required"}]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool error", logs.All()[1].Message)
	})

	t.Run("unparseable response logs only the request", func(t *testing.T) {
		logs := serveMCP(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "event: ping\n\n")

		messages := []string{}
		for _, e := range logs.All() {
			messages = append(messages, e.Message)
		}
		assert.Equal(t, []string{"MCP request", "Failed to parse MCP response JSON"}, messages)
	})
}

func TestMCPRequestLogger_NilLoggerPassesThrough(t *testing.T) {
	called := false
	handler := MCPRequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.True(t, called)
}

func TestSanitizeArguments(t *testing.T) {
	t.Run("redacts sensitive keys", func(t *testing.T) {
		result := sanitizeArguments(map[string]any{
			"password":     "secret",
			"api_key":      "abc123",
			"AccessToken":  "xyz789",
			"credential":   "cred123",
			"normal_field": "visible",
		})

		assert.Equal(t, logging.RedactedText, result["password"])
		assert.Equal(t, logging.RedactedText, result["api_key"])
		assert.Equal(t, logging.RedactedText, result["AccessToken"])
		assert.Equal(t, logging.RedactedText, result["credential"])
		assert.Equal(t, "visible", result["normal_field"])
	})

	t.Run("shortens sql like query logs", func(t *testing.T) {
		sql := "SELECT " + strings.Repeat("a, ", 100) + "b FROM t WHERE password=hunter2"
		result := sanitizeArguments(map[string]any{"sql": sql})

		got := result["sql"].(string)
		assert.Equal(t, logging.SanitizeQuery(sql), got)
		assert.LessOrEqual(t, len(got), logging.MaxQueryLogLength+3)
	})

	t.Run("truncates long strings", func(t *testing.T) {
		result := sanitizeArguments(map[string]any{
			"question": strings.Repeat("x", 250),
			"short":    "abc",
		})

		truncated := result["question"].(string)
		assert.Len(t, truncated, maxArgumentLogLength+3)
		assert.True(t, strings.HasSuffix(truncated, "..."))
		assert.Equal(t, "abc", result["short"])
	})

	t.Run("preserves non-string values", func(t *testing.T) {
		args := map[string]any{
			"use_cache": true,
			"limit":     float64(10),
			"history":   []any{map[string]any{"question": "q"}},
		}
		result := sanitizeArguments(args)

		assert.Equal(t, true, result["use_cache"])
		assert.Equal(t, float64(10), result["limit"])
		assert.Equal(t, args["history"], result["history"])
	})

	t.Run("nil and empty", func(t *testing.T) {
		assert.Nil(t, sanitizeArguments(nil))
		assert.Empty(t, sanitizeArguments(map[string]any{}))
	})
}
