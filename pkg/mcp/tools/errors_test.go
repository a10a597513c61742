package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResultWithDetails("validation_failed", "bad sql", map[string]any{"errors": []string{"x"}})
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(text.Text), &resp))
	assert.True(t, resp.Error)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Equal(t, "bad sql", resp.Message)
	assert.NotNil(t, resp.Details)
}

func TestFailureCode(t *testing.T) {
	assert.Equal(t, "synthesis_failed", FailureCode(models.FailureSynthesis))
	assert.Equal(t, "validation_failed", FailureCode(models.FailureValidation))
	assert.Equal(t, "execution_failed", FailureCode(models.FailureExecution))
	assert.Equal(t, "internal_error", FailureCode(models.FailureInternal))
	assert.Equal(t, "resolution_failed", FailureCode(models.FailureNone))
}

func TestIsSQLUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"syntax error", &pgconn.PgError{Code: "42601"}, true},
		{"wrapped undefined table", fmt.Errorf("failed to execute query: %w", &pgconn.PgError{Code: "42P01"}), true},
		{"division by zero in message", errors.New("ERROR: division by zero (SQLSTATE 22012)"), true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, false},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSQLUserError(tt.err))
		})
	}
}

func TestSQLUserErrorCode(t *testing.T) {
	assert.Equal(t, "syntax_error", SQLUserErrorCode(&pgconn.PgError{Code: "42601"}))
	assert.Equal(t, "undefined_table", SQLUserErrorCode(&pgconn.PgError{Code: "42P01"}))
	assert.Equal(t, "division_by_zero", SQLUserErrorCode(errors.New("x (SQLSTATE 22012)")))
	assert.Equal(t, "data_exception", SQLUserErrorCode(&pgconn.PgError{Code: "22023"}))
	assert.Equal(t, "sql_error", SQLUserErrorCode(&pgconn.PgError{Code: "42501"}))
	assert.Empty(t, SQLUserErrorCode(errors.New("timeout")))
}

func TestExtractSQLErrorMessage(t *testing.T) {
	assert.Equal(t, "relation \"x\" does not exist",
		ExtractSQLErrorMessage(&pgconn.PgError{Code: "42P01", Message: "relation \"x\" does not exist"}))
	assert.Equal(t, "division by zero",
		ExtractSQLErrorMessage(errors.New("failed to execute query: ERROR: division by zero (SQLSTATE 22012)")))
	assert.Equal(t, "Invalid column name 'nme'.",
		ExtractSQLErrorMessage(errors.New("failed to execute query: mssql: Invalid column name 'nme'.")))
	assert.Empty(t, ExtractSQLErrorMessage(nil))
}
