package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
	"github.com/ekaya-inc/ekaya-analyst/pkg/templates"
)

// TemplateToolDeps contains dependencies for the query template tools.
type TemplateToolDeps struct {
	Service services.TemplateService
	Logger  *zap.Logger
}

type listTemplatesResult struct {
	Templates  []templates.Template `json:"templates"`
	Categories []string             `json:"categories"`
}

// RegisterTemplateTools registers list_templates and run_template.
func RegisterTemplateTools(s *server.MCPServer, deps *TemplateToolDeps) {
	listTool := mcp.NewTool(
		"list_templates",
		mcp.WithDescription(
			"List prebuilt analytics queries (RFM, cohorts, product affinity and more) with their SQL. "+
				"Useful as starting points or worked examples for complex questions.",
		),
		mcp.WithString("category", mcp.Description("Optional: only templates in this category")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(listTemplatesResult{
			Templates:  deps.Service.List(getOptionalString(req, "category")),
			Categories: deps.Service.Categories(),
		})
	})

	runTool := mcp.NewTool(
		"run_template",
		mcp.WithDescription("Run a prebuilt analytics query by id. The query is validated like any other SQL before it runs."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template id from list_templates")),
		mcp.WithNumber("limit", mcp.Description("Max rows to return (default: 100, max: 1000)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(runTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil || trimString(id) == "" {
			return NewErrorResult("invalid_parameters", "id is required"), nil
		}

		limit := defaultRunLimit
		if v, ok := getOptionalFloat(req, "limit"); ok && v > 0 {
			limit = int(v)
		}

		result, err := deps.Service.Run(ctx, trimString(id), limit)
		if errors.Is(err, apperrors.ErrNotFound) {
			return NewErrorResult("template_not_found", err.Error()), nil
		}
		if err != nil {
			deps.Logger.Error("Template run failed", zap.String("template", id), zap.Error(err))
			return nil, err
		}
		if !result.Success {
			return NewErrorResultWithDetails(FailureCode(result.Failure), result.Error, result), nil
		}
		return jsonResult(result)
	})
}
