package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplainColumns(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []ExplainedColumn
	}{
		{
			name: "plain, aliased and qualified columns",
			sql:  "SELECT id, name AS customer_name, u.email FROM users u",
			expected: []ExplainedColumn{
				{Name: "id", Expression: "id", Kind: ColumnKindColumn},
				{Name: "customer_name", Expression: "name AS customer_name", Kind: ColumnKindColumn},
				{Name: "email", Expression: "u.email", Kind: ColumnKindColumn},
			},
		},
		{
			name: "aggregates with and without alias",
			sql:  "SELECT COUNT(*) total, SUM(o.amount), AVG(price) AS avg_price FROM orders o",
			expected: []ExplainedColumn{
				{Name: "total", Expression: "COUNT(*) total", Kind: ColumnKindAggregate},
				{Name: "sum", Expression: "SUM(o.amount)", Kind: ColumnKindAggregate},
				{Name: "avg_price", Expression: "AVG(price) AS avg_price", Kind: ColumnKindAggregate},
			},
		},
		{
			name: "nested function keeps its commas",
			sql:  "SELECT COALESCE(SUM(amount), 0) AS total_revenue FROM orders",
			expected: []ExplainedColumn{
				{Name: "total_revenue", Expression: "COALESCE(SUM(amount), 0) AS total_revenue", Kind: ColumnKindAggregate},
			},
		},
		{
			name: "scalar subquery is one item",
			sql:  "SELECT c.name, (SELECT COUNT(*) FROM orders o WHERE o.customer_id = c.id) AS order_count FROM customers c",
			expected: []ExplainedColumn{
				{Name: "name", Expression: "c.name", Kind: ColumnKindColumn},
				{Name: "order_count", Expression: "(SELECT COUNT(*) FROM orders o WHERE o.customer_id = c.id) AS order_count", Kind: ColumnKindAggregate},
			},
		},
		{
			name: "comma inside string literal",
			sql:  "SELECT 'a, b' AS pair, note FROM notes",
			expected: []ExplainedColumn{
				{Name: "pair", Expression: "'a, b' AS pair", Kind: ColumnKindExpression},
				{Name: "note", Expression: "note", Kind: ColumnKindColumn},
			},
		},
		{
			name: "arithmetic without alias",
			sql:  "SELECT price * qty AS line_total, price + tax FROM items",
			expected: []ExplainedColumn{
				{Name: "line_total", Expression: "price * qty AS line_total", Kind: ColumnKindExpression},
				{Name: "price + tax", Expression: "price + tax", Kind: ColumnKindExpression},
			},
		},
		{
			name: "case expression",
			sql:  "SELECT CASE WHEN total > 100 THEN 'big' ELSE 'small' END FROM orders",
			expected: []ExplainedColumn{
				{Name: "case", Expression: "CASE WHEN total > 100 THEN 'big' ELSE 'small' END", Kind: ColumnKindExpression},
			},
		},
		{
			name: "star",
			sql:  "SELECT * FROM products",
			expected: []ExplainedColumn{
				{Name: "*", Expression: "*", Kind: ColumnKindAll},
			},
		},
		{
			name: "distinct and trailing semicolon",
			sql:  "SELECT DISTINCT region FROM orders;",
			expected: []ExplainedColumn{
				{Name: "region", Expression: "region", Kind: ColumnKindColumn},
			},
		},
		{
			name: "sql server top",
			sql:  "SELECT TOP 10 name FROM users",
			expected: []ExplainedColumn{
				{Name: "name", Expression: "name", Kind: ColumnKindColumn},
			},
		},
		{
			name: "mixed case",
			sql:  "SeLeCt id, NaMe FROM users",
			expected: []ExplainedColumn{
				{Name: "id", Expression: "id", Kind: ColumnKindColumn},
				{Name: "name", Expression: "NaMe", Kind: ColumnKindColumn},
			},
		},
		{
			name: "column named like a keyword prefix",
			sql:  "SELECT from_date, order_total FROM shipments",
			expected: []ExplainedColumn{
				{Name: "from_date", Expression: "from_date", Kind: ColumnKindColumn},
				{Name: "order_total", Expression: "order_total", Kind: ColumnKindColumn},
			},
		},
		{
			name:     "not a select",
			sql:      "INSERT INTO users (name) VALUES ('test')",
			expected: []ExplainedColumn{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, explainColumns(tt.sql))
		})
	}
}

func TestExplain_IncludesColumns(t *testing.T) {
	e := Explain("SELECT region, SUM(total) AS revenue FROM orders GROUP BY region")

	assert.Equal(t, []ExplainedColumn{
		{Name: "region", Expression: "region", Kind: ColumnKindColumn},
		{Name: "revenue", Expression: "SUM(total) AS revenue", Kind: ColumnKindAggregate},
	}, e.Columns)
}
