package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

// HistoryToolDeps contains dependencies for the query history tool.
type HistoryToolDeps struct {
	Service services.QueryHistoryService
	Logger  *zap.Logger
}

type queryHistoryResult struct {
	Entries []*models.QueryHistoryEntry `json:"entries"`
	Total   int                         `json:"total"`
}

// RegisterHistoryTools registers get_query_history.
func RegisterHistoryTools(s *server.MCPServer, deps *HistoryToolDeps) {
	tool := mcp.NewTool(
		"get_query_history",
		mcp.WithDescription(
			"List recently answered questions with the SQL that answered them, newest first. "+
				"Useful as worked examples before writing a similar query.",
		),
		mcp.WithArray("tables", mcp.Description("Optional: only entries touching any of these tables")),
		mcp.WithNumber("days", mcp.Description("Optional: only entries from the last N days")),
		mcp.WithNumber("limit", mcp.Description("Max entries to return (default: 20, max: 100)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var filters models.QueryHistoryFilters
		for _, t := range getStringSlice(req, "tables") {
			filters.TablesUsed = append(filters.TablesUsed, strings.ToLower(t))
		}
		if days, ok := getOptionalFloat(req, "days"); ok && days > 0 {
			since := time.Now().Add(-time.Duration(days * float64(24*time.Hour)))
			filters.Since = &since
		}
		if limit, ok := getOptionalFloat(req, "limit"); ok && limit > 0 {
			filters.Limit = int(limit)
		}

		entries, total, err := deps.Service.List(ctx, filters)
		if err != nil {
			deps.Logger.Error("Failed to list query history", zap.Error(err))
			return nil, fmt.Errorf("failed to list query history: %w", err)
		}
		if entries == nil {
			entries = []*models.QueryHistoryEntry{}
		}
		return jsonResult(queryHistoryResult{Entries: entries, Total: total})
	})
}
