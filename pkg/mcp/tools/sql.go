package tools

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/audit"
	"github.com/ekaya-inc/ekaya-analyst/pkg/logging"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// defaultRunLimit is the row cap for run_sql when the caller gives none.
const defaultRunLimit = 100

// SQLToolDeps contains dependencies for the SQL tools. Engine may be nil,
// in which case run_sql is not registered. Planner enables database plans
// in explain_sql. Auditor is optional.
type SQLToolDeps struct {
	Validator *sqlutil.Validator
	Engine    services.ExecutionEngine
	Planner   datasource.QueryPlanner
	Auditor   *audit.SecurityAuditor
	Logger    *zap.Logger
}

// RegisterSQLTools registers the static SQL tools and, with an engine, run_sql.
func RegisterSQLTools(s *server.MCPServer, deps *SQLToolDeps) {
	if deps.Validator == nil {
		deps.Validator = sqlutil.NewValidator(nil)
	}
	registerValidateSQLTool(s, deps)
	registerExplainSQLTool(s, deps)
	registerLintSQLTool(s, deps)
	if deps.Engine != nil {
		registerRunSQLTool(s, deps)
	}
}

func requireSQL(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	sqlQuery, err := req.RequireString("sql")
	if err != nil || trimString(sqlQuery) == "" {
		return "", NewErrorResult("invalid_parameters", apperrors.ErrEmptySQL.Error())
	}
	return trimString(sqlQuery), nil
}

func registerValidateSQLTool(s *server.MCPServer, deps *SQLToolDeps) {
	tool := mcp.NewTool(
		"validate_sql",
		mcp.WithDescription("Check a SQL statement against the read-only safety rules without running it. Returns errors and warnings."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL statement to check")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlQuery, errResult := requireSQL(req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(deps.Validator.Validate(sqlQuery))
	})
}

type explainSQLResult struct {
	sqlutil.Explanation
	ComplexityTag string   `json:"complexity_tag"`
	Plan          []string `json:"plan,omitempty"`
	PlanError     string   `json:"plan_error,omitempty"`
}

func registerExplainSQLTool(s *server.MCPServer, deps *SQLToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Describe in plain language what a SQL query does: tables, filters, aggregations, ordering and complexity."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL query to explain")),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	if deps.Planner != nil {
		opts = append(opts, mcp.WithBoolean("include_plan",
			mcp.Description("Optional: also return the database's estimated execution plan (the query is not run)")))
	}
	tool := mcp.NewTool("explain_sql", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlQuery, errResult := requireSQL(req)
		if errResult != nil {
			return errResult, nil
		}
		result := explainSQLResult{
			Explanation:   sqlutil.Explain(sqlQuery),
			ComplexityTag: sqlutil.ComplexityTag(sqlQuery),
		}

		if deps.Planner != nil && getOptionalBool(req, "include_plan", false) {
			// Only validated statements reach the database planner.
			verdict := deps.Validator.Validate(sqlQuery)
			deps.Auditor.AuditVerdict(ctx, audit.SourceExplain, "", sqlQuery, verdict)
			if !verdict.Valid {
				return NewErrorResultWithDetails("validation_failed",
					strings.Join(verdict.Errors, "; "), verdict), nil
			}
			plan, err := deps.Planner.ExplainQuery(ctx, sqlQuery)
			if err != nil {
				deps.Logger.Debug("explain_sql plan failed",
					zap.String("sql", logging.SanitizeQuery(sqlQuery)),
					zap.String("error", logging.SanitizeError(err)))
				result.PlanError = ExtractSQLErrorMessage(err)
			}
			result.Plan = plan
		}
		return jsonResult(result)
	})
}

func registerLintSQLTool(s *server.MCPServer, deps *SQLToolDeps) {
	tool := mcp.NewTool(
		"lint_sql",
		mcp.WithDescription("Heuristic performance review of a SQL query: score, issues, suggestions and index hints. Not a cost-based plan."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL query to review")),
		mcp.WithNumber("elapsed_ms", mcp.Description("Optional: observed execution time, adds a speed rating")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlQuery, errResult := requireSQL(req)
		if errResult != nil {
			return errResult, nil
		}
		var elapsed time.Duration
		if ms, ok := getOptionalFloat(req, "elapsed_ms"); ok && ms > 0 {
			elapsed = time.Duration(ms * float64(time.Millisecond))
		}
		return jsonResult(sqlutil.Analyze(sqlQuery, elapsed))
	})
}

type runSQLResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Warnings []string         `json:"warnings,omitempty"`
}

func registerRunSQLTool(s *server.MCPServer, deps *SQLToolDeps) {
	tool := mcp.NewTool(
		"run_sql",
		mcp.WithDescription(
			"Execute a read-only SQL query directly. The query must pass validate_sql; "+
				"it is not repaired on errors. Prefer resolve_question for natural-language questions.",
		),
		mcp.WithString("sql", mcp.Required(), mcp.Description("A single SELECT or WITH query")),
		mcp.WithNumber("limit", mcp.Description("Max rows to return (default: 100, max: 1000)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlQuery, errResult := requireSQL(req)
		if errResult != nil {
			return errResult, nil
		}

		verdict := deps.Validator.Validate(sqlQuery)
		deps.Auditor.AuditVerdict(ctx, audit.SourceRunSQL, "", sqlQuery, verdict)
		if !verdict.Valid {
			return NewErrorResultWithDetails("validation_failed",
				strings.Join(verdict.Errors, "; "), verdict), nil
		}

		limit := defaultRunLimit
		if v, ok := getOptionalFloat(req, "limit"); ok && v > 0 {
			limit = int(v)
		}
		limit = datasource.EffectiveLimit(limit)

		result, err := deps.Engine.Query(ctx, sqlQuery, limit)
		if err != nil {
			deps.Logger.Debug("run_sql failed",
				zap.String("sql", logging.SanitizeQuery(sqlQuery)),
				zap.String("error", logging.SanitizeError(err)))
			return NewSQLErrorResult(err), nil
		}

		deps.Auditor.LogQueryExecution(ctx, audit.SourceRunSQL, sqlQuery, result.RowCount)

		rows := result.Rows
		if rows == nil {
			rows = []map[string]any{}
		}
		return jsonResult(runSQLResult{
			Columns:  result.ColumnNames(),
			Rows:     rows,
			RowCount: result.RowCount,
			Warnings: verdict.Warnings,
		})
	})
}
