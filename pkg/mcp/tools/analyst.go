package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

// AnalystToolDeps contains dependencies for the question-answering tools.
type AnalystToolDeps struct {
	Resolver services.QueryResolver
	Logger   *zap.Logger
}

// RegisterAnalystTools registers resolve_question plus the cache and
// performance tools.
func RegisterAnalystTools(s *server.MCPServer, deps *AnalystToolDeps) {
	registerResolveQuestionTool(s, deps)
	registerCacheStatsTool(s, deps)
	registerClearCacheTool(s, deps)
	registerPerformanceStatsTool(s, deps)
}

// resolveQuestionResult is the successful response of resolve_question.
type resolveQuestionResult struct {
	*models.ResolutionResult
	Insights string `json:"insights,omitempty"`
}

func registerResolveQuestionTool(s *server.MCPServer, deps *AnalystToolDeps) {
	tool := mcp.NewTool(
		"resolve_question",
		mcp.WithDescription(
			"Answer a natural-language question about the connected database. "+
				"Generates SQL from the schema, validates it as read-only, executes it and repairs it on errors. "+
				"Returns the SQL, columns and rows. Pass earlier questions and their SQL as history for follow-ups.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer, e.g. \"top 5 customers by revenue last month\""),
		),
		mcp.WithArray(
			"history",
			mcp.Description("Optional: prior turns as objects with question and sql fields, oldest first"),
		),
		mcp.WithBoolean(
			"use_cache",
			mcp.Description("Reuse a cached answer for the same question (default: true)"),
		),
		mcp.WithBoolean(
			"insights",
			mcp.Description("Also return a short narrative summary of the rows (default: false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || trimString(question) == "" {
			return NewErrorResult("invalid_parameters", apperrors.ErrEmptyQuestion.Error()), nil
		}
		question = trimString(question)

		history, err := parseHistory(req)
		if err != nil {
			return NewErrorResult("invalid_parameters", "history must be an array of {question, sql} objects"), nil
		}

		result := deps.Resolver.Resolve(ctx, question, history, getOptionalBool(req, "use_cache", true))
		if !result.Success {
			deps.Logger.Debug("resolve_question failed",
				zap.String("failure", string(result.Failure)),
				zap.String("error", result.Error))
			return NewErrorResultWithDetails(FailureCode(result.Failure), result.Error, result), nil
		}

		response := resolveQuestionResult{ResolutionResult: result}
		if getOptionalBool(req, "insights", false) {
			response.Insights = deps.Resolver.GenerateInsights(ctx, question, result)
		}
		return jsonResult(response)
	})
}

// parseHistory decodes the optional history argument by round-tripping it
// through JSON so both snake_case keys and extra fields are tolerated.
func parseHistory(req mcp.CallToolRequest) ([]models.ConversationTurn, error) {
	raw, ok := arguments(req)["history"]
	if !ok || raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var turns []models.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func registerCacheStatsTool(s *server.MCPServer, deps *AnalystToolDeps) {
	tool := mcp.NewTool(
		"cache_stats",
		mcp.WithDescription("Report result-cache size and hit counts"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(deps.Resolver.CacheStats())
	})
}

func registerClearCacheTool(s *server.MCPServer, deps *AnalystToolDeps) {
	tool := mcp.NewTool(
		"clear_cache",
		mcp.WithDescription("Drop every cached answer so the next questions are resolved fresh"),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		deps.Resolver.ClearCache()
		deps.Logger.Info("Result cache cleared via MCP")
		return jsonResult(map[string]bool{"cleared": true})
	})
}

type performanceStatsResult struct {
	Stats           models.PerformanceStats `json:"stats"`
	Recommendations []string                `json:"recommendations"`
}

func registerPerformanceStatsTool(s *server.MCPServer, deps *AnalystToolDeps) {
	tool := mcp.NewTool(
		"performance_stats",
		mcp.WithDescription("Summarize tracked resolutions (success rate, latency by complexity) with tuning recommendations"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		recs := deps.Resolver.PerformanceRecommendations()
		if recs == nil {
			recs = []string{}
		}
		return jsonResult(performanceStatsResult{
			Stats:           deps.Resolver.PerformanceStats(),
			Recommendations: recs,
		})
	})
}
