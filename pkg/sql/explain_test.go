package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain_AggregateWithJoin(t *testing.T) {
	sqlQuery := `SELECT c.name, SUM(o.total) AS revenue
FROM orders o
JOIN customers c ON o.customer_id = c.id
WHERE o.created_at >= '2024-01-01' AND o.status = 'paid'
GROUP BY c.name
ORDER BY revenue DESC
LIMIT 5`

	e := Explain(sqlQuery)

	assert.Equal(t, "Aggregates data to calculate totals grouped by category", e.Overview)
	assert.Equal(t, []ExplainedTable{
		{Name: "orders", Role: "primary"},
		{Name: "customers", Role: "joined"},
	}, e.Tables)

	require.Len(t, e.Filters, 2)
	assert.Equal(t, "o.created_at >= '2024-01-01'", e.Filters[0].Condition)
	assert.Equal(t, "values in a range", e.Filters[0].Purpose)
	assert.Equal(t, "exact match", e.Filters[1].Purpose)

	require.Len(t, e.Aggregations, 1)
	assert.Equal(t, "SUM", e.Aggregations[0].Function)
	assert.Equal(t, "o.total", e.Aggregations[0].Argument)

	assert.Equal(t, "c.name", e.GroupBy)
	require.NotNil(t, e.OrderBy)
	assert.Equal(t, "revenue", e.OrderBy.Column)
	assert.Equal(t, "descending", e.OrderBy.Direction)
	require.NotNil(t, e.Limit)
	assert.Equal(t, 5, *e.Limit)

	// one join (2) + group by (2)
	assert.Equal(t, 4, e.Complexity.Score)
	assert.Equal(t, "Moderate", e.Complexity.Level)
}

func TestExplain_SimpleSelect(t *testing.T) {
	e := Explain("SELECT * FROM products")

	assert.Equal(t, "Retrieves data from the database", e.Overview)
	assert.Empty(t, e.Filters)
	assert.Empty(t, e.Aggregations)
	assert.Nil(t, e.OrderBy)
	assert.Nil(t, e.Limit)
	assert.Equal(t, "Simple", e.Complexity.Level)
	assert.Equal(t, []string{"Select only the needed columns instead of SELECT *"}, e.Tips)
}

func TestExplain_Subquery(t *testing.T) {
	e := Explain("SELECT name FROM customers WHERE id IN (SELECT customer_id FROM orders WHERE total > 100)")

	assert.Contains(t, e.Complexity.Factors, "subqueries")
	assert.Equal(t, []string{"customers", "orders"}, TablesUsed("SELECT name FROM customers WHERE id IN (SELECT customer_id FROM orders)"))
	assert.Equal(t, "values in a list", e.Filters[0].Purpose)
}

func TestTablesUsed_Deduplicates(t *testing.T) {
	got := TablesUsed("SELECT a.id FROM Orders a JOIN orders b ON a.parent_id = b.id JOIN public.customers c ON c.id = a.customer_id")
	assert.Equal(t, []string{"orders", "public.customers"}, got)
}

func TestTablesUsed_NoTables(t *testing.T) {
	assert.Empty(t, TablesUsed("SELECT 1"))
}
