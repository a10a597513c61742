package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

// SchemaRefresher reloads the datasource schema and the retrieval index.
type SchemaRefresher interface {
	Refresh(ctx context.Context) error
}

// SchemaToolDeps contains dependencies for the schema tools.
// Refresher is optional.
type SchemaToolDeps struct {
	Schema    services.SchemaSummarizer
	Refresher SchemaRefresher
	Logger    *zap.Logger
}

// RegisterSchemaTools registers get_schema and, with a refresher, refresh_schema.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	registerGetSchemaTool(s, deps)
	if deps.Refresher != nil {
		registerRefreshSchemaTool(s, deps)
	}
}

func registerGetSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription("List every table with its columns and types, in the form used when writing SQL"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := deps.Schema.SchemaSummary(ctx)
		if err != nil {
			deps.Logger.Error("Failed to load schema summary", zap.Error(err))
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
		return mcp.NewToolResultText(summary), nil
	})
}

func registerRefreshSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"refresh_schema",
		mcp.WithDescription("Re-read the datasource schema and rebuild the retrieval index. Use after tables change."),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := deps.Refresher.Refresh(ctx); err != nil {
			deps.Logger.Error("Failed to refresh schema", zap.Error(err))
			return nil, fmt.Errorf("failed to refresh schema: %w", err)
		}
		return jsonResult(map[string]bool{"refreshed": true})
	})
}
