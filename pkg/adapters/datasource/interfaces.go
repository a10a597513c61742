package datasource

import "context"

// ConnectionTester tests database connectivity.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials.
	TestConnection(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

// SchemaDiscoverer lists the tables and columns the resolver is allowed to
// talk about. System schemas are excluded.
type SchemaDiscoverer interface {
	// DiscoverTables returns all user tables.
	DiscoverTables(ctx context.Context) ([]TableMetadata, error)

	// DiscoverColumns returns columns for a specific table, in ordinal order.
	DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error)

	// DiscoverForeignKeys returns all foreign key relationships.
	DiscoverForeignKeys(ctx context.Context) ([]ForeignKeyMetadata, error)

	// SupportsForeignKeys returns true if the database supports FK discovery.
	SupportsForeignKeys() bool

	Close() error
}

// ColumnProfiler gathers value statistics that describe columns to the model.
type ColumnProfiler interface {
	// AnalyzeColumnStats returns row, non-null and distinct counts for each
	// column, plus min/max/avg for numeric columns. Columns that fail to
	// analyze are logged and omitted.
	AnalyzeColumnStats(ctx context.Context, schemaName, tableName string, columns []ColumnMetadata) ([]ColumnStats, error)

	// GetDistinctValues returns up to limit distinct non-null values from a
	// column as strings, sorted.
	GetDistinctValues(ctx context.Context, schemaName, tableName, columnName string, limit int) ([]string, error)
}

// QueryPlanner shows the engine's plan for a query without executing it.
type QueryPlanner interface {
	// ExplainQuery returns the plan as text lines, outermost step first.
	ExplainQuery(ctx context.Context, sqlQuery string) ([]string, error)
}

// MaxQueryLimit is the hard cap on rows returned by Query.
// This protects against unbounded queries that could crash the server.
const MaxQueryLimit = 1000

// QueryExecutor runs generated SQL against a datasource.
type QueryExecutor interface {
	// Query runs a SELECT statement and returns at most limit rows:
	//   - PostgreSQL, SQLite: SELECT * FROM (query) AS _limited LIMIT n
	//   - SQL Server: SELECT TOP (n) * FROM (query) AS _limited, except for
	//     CTEs and top-level ORDER BY, which T-SQL rejects in a derived
	//     table; those run as written and the scan stops after n rows.
	//
	// limit <= 0 or limit > MaxQueryLimit uses MaxQueryLimit.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)

	// QuoteIdentifier safely quotes a SQL identifier (table, column, schema name).
	QuoteIdentifier(name string) string

	Close() error
}

// Datasource is everything the analyst needs from one configured database.
// Each adapter implements it on a single owned connection pool.
type Datasource interface {
	ConnectionTester
	SchemaDiscoverer
	ColumnProfiler
	QueryPlanner
	QueryExecutor

	// Type is the registry type the datasource was opened with.
	Type() string
}

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "TEXT", "INT4", "VARCHAR")
}

// QueryExecutionResult holds the results from executing a query.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ColumnNames returns the result column names in order.
func (r *QueryExecutionResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// EffectiveLimit applies the MaxQueryLimit cap.
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
