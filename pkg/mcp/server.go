package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/mcp/tools"
)

// ServerName is advertised to MCP clients during initialization.
const ServerName = "ekaya-analyst"

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// ToolDeps groups the dependencies of every tool family. Nil members skip
// their family; Analyst and Schema are required.
type ToolDeps struct {
	Version   string
	Oracle    tools.OracleStatus
	Analyst   *tools.AnalystToolDeps
	SQL       *tools.SQLToolDeps
	Schema    *tools.SchemaToolDeps
	History   *tools.HistoryToolDeps
	Templates *tools.TemplateToolDeps
}

// RegisterTools registers every tool family that has dependencies.
func (s *Server) RegisterTools(deps ToolDeps) {
	tools.RegisterHealthTool(s.mcp, deps.Version, deps.Oracle)
	tools.RegisterAnalystTools(s.mcp, deps.Analyst)
	tools.RegisterSchemaTools(s.mcp, deps.Schema)
	if deps.SQL != nil {
		tools.RegisterSQLTools(s.mcp, deps.SQL)
	}
	if deps.History != nil && deps.History.Service != nil {
		tools.RegisterHistoryTools(s.mcp, deps.History)
	}
	if deps.Templates != nil && deps.Templates.Service != nil {
		tools.RegisterTemplateTools(s.mcp, deps.Templates)
	}
	s.logger.Info("MCP tools registered",
		zap.Bool("sql", deps.SQL != nil),
		zap.Bool("history", deps.History != nil && deps.History.Service != nil),
		zap.Bool("templates", deps.Templates != nil && deps.Templates.Service != nil))
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// ServeStdio serves MCP over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
