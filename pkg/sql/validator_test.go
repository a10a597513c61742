package sql

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name         string
		sql          string
		wantValid    bool
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name:         "filtered select",
			sql:          "SELECT name FROM customers WHERE id = 1",
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{},
		},
		{
			name:       "select star on large table",
			sql:        "SELECT * FROM orders",
			wantValid:  true,
			wantErrors: []string{},
			wantWarnings: []string{
				"SELECT * used; consider listing columns explicitly",
				"large table orders queried without a WHERE clause; this may be slow",
			},
		},
		{
			name:         "select star without whitespace",
			sql:          "SELECT* FROM customers WHERE id = 1",
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{"SELECT * used; consider listing columns explicitly"},
		},
		{
			name:         "count star is not select star",
			sql:          "SELECT COUNT(*) FROM customers WHERE id > 1",
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{},
		},
		{
			name:         "large table with filter",
			sql:          "SELECT id FROM orders WHERE total > 100",
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{},
		},
		{
			name:         "CTE is read-only",
			sql:          "WITH recent AS (SELECT id FROM customers WHERE id > 10) SELECT id FROM recent",
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{},
		},
		{
			name:      "drop table",
			sql:       "DROP TABLE users",
			wantValid: false,
			wantErrors: []string{
				"must be a read-only statement (SELECT or WITH)",
				"dangerous operation detected: DROP TABLE",
			},
			wantWarnings: []string{},
		},
		{
			name:      "delete from",
			sql:       "DELETE FROM customers WHERE id = 1",
			wantValid: false,
			wantErrors: []string{
				"must be a read-only statement (SELECT or WITH)",
				"dangerous operation detected: DELETE FROM",
			},
			wantWarnings: []string{},
		},
		{
			name:      "stacked drop after select",
			sql:       "SELECT id FROM customers WHERE id = 1; DROP TABLE customers",
			wantValid: false,
			wantErrors: []string{
				"dangerous operation detected: DROP TABLE",
				"dangerous operation detected: stacked DROP statement",
			},
			wantWarnings: []string{"multiple statements detected; only the first will execute"},
		},
		{
			name:         "inline comment",
			sql:          "SELECT id FROM customers WHERE id = 1 -- trailing",
			wantValid:    false,
			wantErrors:   []string{"dangerous operation detected: inline comment (--)"},
			wantWarnings: []string{},
		},
		{
			name:         "unbalanced parentheses",
			sql:          "SELECT COUNT(id FROM customers WHERE id = 1",
			wantValid:    false,
			wantErrors:   []string{"unbalanced parentheses"},
			wantWarnings: []string{},
		},
		{
			name:         "update with set",
			sql:          "UPDATE customers SET name = 'x' WHERE id = 1",
			wantValid:    false,
			wantErrors:   []string{"must be a read-only statement (SELECT or WITH)", "dangerous operation detected: UPDATE ... SET"},
			wantWarnings: []string{},
		},
		{
			name:         "trailing semicolon is a single statement",
			sql:          "SELECT id FROM customers WHERE id = 1;",
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{},
		},
		{
			name:         "semicolon inside literal",
			sql:          "SELECT id FROM customers WHERE name = 'a;b'",
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.sql)
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantErrors, got.Errors)
			assert.Equal(t, tt.wantWarnings, got.Warnings)
		})
	}
}

func TestValidator_SuspiciousLiteralIsWarningOnly(t *testing.T) {
	v := NewValidator(nil)

	got := v.Validate("SELECT id FROM users WHERE name = ''' OR ''1''=''1'")

	assert.True(t, got.Valid)
	assert.Empty(t, got.Errors)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "string literal resembles an injection payload")
}

func TestValidator_CustomLargeTables(t *testing.T) {
	v := NewValidator([]string{"events", " ", "sessions"})

	got := v.Validate("SELECT id FROM events JOIN sessions ON events.sid = sessions.id")

	assert.True(t, got.Valid)
	assert.Equal(t, []string{
		"large table events queried without a WHERE clause; this may be slow",
		"large table sessions queried without a WHERE clause; this may be slow",
	}, got.Warnings)

	// Default table is not checked once a custom list is supplied.
	assert.Empty(t, v.Validate("SELECT id FROM orders").Warnings)
}

func TestValidator_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	v := NewValidator(nil)

	properties.Property("filtered single-table selects are valid", prop.ForAll(
		func(column, table string) bool {
			sqlQuery := "SELECT c_" + column + " FROM t_" + table + " WHERE c_" + column + " = 1"
			verdict := v.Validate(sqlQuery)
			return verdict.Valid && len(verdict.Errors) == 0
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("queries containing DROP TABLE are never valid", prop.ForAll(
		func(prefix, suffix string) bool {
			return !v.Validate(prefix + " DROP TABLE " + suffix).Valid
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("queries containing an inline comment are never valid", prop.ForAll(
		func(prefix, suffix string) bool {
			return !v.Validate("SELECT " + prefix + " -- " + suffix).Valid
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("validation is repeatable and valid iff no errors", prop.ForAll(
		func(sqlQuery string) bool {
			first := v.Validate(sqlQuery)
			second := v.Validate(sqlQuery)
			return reflect.DeepEqual(first, second) && first.Valid == (len(first.Errors) == 0)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
