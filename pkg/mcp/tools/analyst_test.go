package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

func analystServer(resolver *mockResolver) *server.MCPServer {
	s := newTestServer()
	RegisterAnalystTools(s, &AnalystToolDeps{Resolver: resolver, Logger: zap.NewNop()})
	return s
}

func TestRegisterAnalystTools(t *testing.T) {
	s := analystServer(&mockResolver{})
	assert.ElementsMatch(t,
		[]string{"resolve_question", "cache_stats", "clear_cache", "performance_stats"},
		listToolNames(t, s))
}

func TestResolveQuestion_Success(t *testing.T) {
	resolver := &mockResolver{}
	s := analystServer(resolver)

	resp := callTool(t, s, "resolve_question", map[string]any{
		"question": "  how many orders?  ",
		"history": []any{
			map[string]any{"question": "list orders", "sql": "SELECT id FROM orders"},
		},
	})
	require.False(t, resp.IsError, resp.Text)

	var result resolveQuestionResult
	decodeText(t, resp, &result)
	require.NotNil(t, result.ResolutionResult)
	assert.True(t, result.Success)
	assert.Equal(t, "SELECT COUNT(*) AS n FROM orders", result.SQLText())
	assert.Empty(t, result.Insights)

	assert.Equal(t, "how many orders?", resolver.LastQuestion)
	assert.True(t, resolver.LastUseCache)
	require.Len(t, resolver.LastHistory, 1)
	assert.Equal(t, "SELECT id FROM orders", resolver.LastHistory[0].SQL)
	assert.Zero(t, resolver.InsightsCalls)
}

func TestResolveQuestion_WithInsightsAndNoCache(t *testing.T) {
	resolver := &mockResolver{}
	s := analystServer(resolver)

	resp := callTool(t, s, "resolve_question", map[string]any{
		"question":  "how many orders?",
		"use_cache": false,
		"insights":  true,
	})

	var result resolveQuestionResult
	decodeText(t, resp, &result)
	assert.Equal(t, `1 rows answer "how many orders?"`, result.Insights)
	assert.False(t, resolver.LastUseCache)
	assert.Equal(t, 1, resolver.InsightsCalls)
}

func TestResolveQuestion_FailureIsToolError(t *testing.T) {
	resolver := &mockResolver{
		ResolveFunc: func(ctx context.Context, question string, history []models.ConversationTurn, useCache bool) *models.ResolutionResult {
			return &models.ResolutionResult{
				Failure:          models.FailureValidation,
				Error:            "validation failed: must be a read-only statement (SELECT or WITH)",
				ValidationErrors: []string{"must be a read-only statement (SELECT or WITH)"},
			}
		},
	}
	s := analystServer(resolver)

	resp := callTool(t, s, "resolve_question", map[string]any{"question": "delete everything"})
	require.True(t, resp.IsError)

	var errResp ErrorResponse
	decodeText(t, resp, &errResp)
	assert.True(t, errResp.Error)
	assert.Equal(t, "validation_failed", errResp.Code)
	assert.Contains(t, errResp.Message, "read-only")
	assert.NotNil(t, errResp.Details)
}

func TestResolveQuestion_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing question", map[string]any{}},
		{"blank question", map[string]any{"question": "   "}},
		{"history not an array", map[string]any{"question": "q", "history": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{}
			s := analystServer(resolver)

			resp := callTool(t, s, "resolve_question", tt.args)
			require.True(t, resp.IsError)

			var errResp ErrorResponse
			decodeText(t, resp, &errResp)
			assert.Equal(t, "invalid_parameters", errResp.Code)
			assert.Empty(t, resolver.LastQuestion, "resolver must not run")
		})
	}
}

func TestCacheAndPerformanceTools(t *testing.T) {
	resolver := &mockResolver{
		Cache: models.CacheStats{Entries: 3, TotalHits: 9},
		Stats: models.PerformanceStats{Total: 10, Successful: 9, Failed: 1, SuccessRate: 90},
	}
	s := analystServer(resolver)

	var cacheStats models.CacheStats
	decodeText(t, callTool(t, s, "cache_stats", nil), &cacheStats)
	assert.Equal(t, resolver.Cache, cacheStats)

	callTool(t, s, "clear_cache", nil)
	assert.Equal(t, 1, resolver.CacheCleared)

	var perf performanceStatsResult
	decodeText(t, callTool(t, s, "performance_stats", nil), &perf)
	assert.Equal(t, 10, perf.Stats.Total)
	assert.NotNil(t, perf.Recommendations)
}
