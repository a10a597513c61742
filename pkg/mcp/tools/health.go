package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-analyst/pkg/llm"
)

// OracleStatus reports the completion oracle's breaker state.
type OracleStatus interface {
	BreakerState() llm.CircuitState
	Model() string
}

type healthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Model   string `json:"model,omitempty"`
	Breaker string `json:"breaker,omitempty"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// oracle may be nil.
func RegisterHealthTool(s *server.MCPServer, version string, oracle OracleStatus) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		if oracle != nil {
			state := oracle.BreakerState()
			result.Model = oracle.Model()
			result.Breaker = state.String()
			if state == llm.CircuitOpen {
				result.Status = "degraded"
			}
		}
		return jsonResult(result)
	})
}
