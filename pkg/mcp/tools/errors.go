package tools

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

// ErrorResponse is a structured error returned as tool content, so agents
// can read and act on it instead of seeing a bare protocol failure.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use it for problems the caller can fix (bad arguments, rejected SQL).
// Infrastructure failures are returned as Go errors instead.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// FailureCode maps a pipeline failure kind to a tool error code.
func FailureCode(kind models.FailureKind) string {
	switch kind {
	case models.FailureSynthesis:
		return "synthesis_failed"
	case models.FailureValidation:
		return "validation_failed"
	case models.FailureExecution:
		return "execution_failed"
	case models.FailureInternal:
		return "internal_error"
	default:
		return "resolution_failed"
	}
}

// sqlStateRegex matches PostgreSQL SQLSTATE codes in error messages like "(SQLSTATE 42601)"
var sqlStateRegex = regexp.MustCompile(`\(SQLSTATE ([0-9A-Z]{5})\)`)

// IsSQLUserError reports whether err is a PostgreSQL error caused by the
// statement itself (classes 22, 23, 42 and 44) rather than the server.
func IsSQLUserError(err error) bool {
	state := sqlState(err)
	if len(state) < 2 {
		return false
	}
	switch state[:2] {
	case "22", "23", "42", "44":
		return true
	}
	return false
}

func sqlState(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	if matches := sqlStateRegex.FindStringSubmatch(err.Error()); len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

// SQLUserErrorCode returns an error code for a SQL user error, or "".
func SQLUserErrorCode(err error) string {
	if !IsSQLUserError(err) {
		return ""
	}
	return mapSQLStateToCode(sqlState(err))
}

func mapSQLStateToCode(state string) string {
	switch state {
	case "42601":
		return "syntax_error"
	case "42703":
		return "undefined_column"
	case "42P01":
		return "undefined_table"
	case "42883":
		return "undefined_function"
	case "22003":
		return "numeric_out_of_range"
	case "22007", "22008":
		return "invalid_datetime"
	case "22012":
		return "division_by_zero"
	case "22P02":
		return "invalid_input"
	}

	switch state[:2] {
	case "22":
		return "data_exception"
	case "23":
		return "constraint_violation"
	case "44":
		return "check_option_violation"
	}
	return "sql_error"
}

// ExtractSQLErrorMessage returns the engine's message without SQLSTATE
// suffixes or adapter wrapping.
func ExtractSQLErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}

	msg := err.Error()
	if idx := strings.Index(msg, " (SQLSTATE"); idx != -1 {
		msg = msg[:idx]
	}
	for _, prefix := range []string{
		"failed to execute query: ",
		"query execution failed: ",
		"explain query: ",
		"mssql: ",
		"ERROR: ",
	} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return msg
}

// NewSQLErrorResult turns an engine error into a tool error. PostgreSQL user
// errors get a specific code; everything else is reported as execution_failed
// because a read-only query an agent wrote is the likeliest cause.
func NewSQLErrorResult(err error) *mcp.CallToolResult {
	code := SQLUserErrorCode(err)
	if code == "" {
		code = "execution_failed"
	}
	return NewErrorResult(code, ExtractSQLErrorMessage(err))
}
