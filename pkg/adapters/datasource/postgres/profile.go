package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// qualifiedTableName quotes schema.table, or just table when schema is empty.
func qualifiedTableName(schemaName, tableName string) string {
	if schemaName == "" {
		return pgx.Identifier{tableName}.Sanitize()
	}
	return pgx.Identifier{schemaName, tableName}.Sanitize()
}

// AnalyzeColumnStats gathers statistics for columns. See datasource.ColumnProfiler.
func (a *Adapter) AnalyzeColumnStats(ctx context.Context, schemaName, tableName string, columns []datasource.ColumnMetadata) ([]datasource.ColumnStats, error) {
	tableRef := qualifiedTableName(schemaName, tableName)

	stats := make([]datasource.ColumnStats, 0, len(columns))
	for _, c := range columns {
		col := pgx.Identifier{c.ColumnName}.Sanitize()
		s := datasource.ColumnStats{ColumnName: c.ColumnName}

		var err error
		if datasource.IsNumericType(c.DataType) {
			query := fmt.Sprintf(`
				SELECT
					COUNT(*),
					COUNT(%s),
					COUNT(DISTINCT %s),
					MIN(%s)::text,
					MAX(%s)::text,
					AVG(%s)::float8
				FROM %s
			`, col, col, col, col, col, tableRef)
			err = a.pool.QueryRow(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount, &s.MinValue, &s.MaxValue, &s.AvgValue)
		} else {
			query := fmt.Sprintf(`SELECT COUNT(*), COUNT(%s), COUNT(DISTINCT %s) FROM %s`, col, col, tableRef)
			err = a.pool.QueryRow(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("Failed to analyze column stats",
				zap.String("schema", schemaName),
				zap.String("table", tableName),
				zap.String("column", c.ColumnName),
				zap.Error(err))
			continue
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
func (a *Adapter) GetDistinctValues(ctx context.Context, schemaName, tableName, columnName string, limit int) ([]string, error) {
	quotedCol := pgx.Identifier{columnName}.Sanitize()
	query := fmt.Sprintf(`
		SELECT DISTINCT %s::text
		FROM %s
		WHERE %s IS NOT NULL
		ORDER BY 1
		LIMIT $1
	`, quotedCol, qualifiedTableName(schemaName, tableName), quotedCol)

	rows, err := a.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get distinct values for %s.%s.%s: %w", schemaName, tableName, columnName, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect distinct values: %w", err)
	}
	return values, nil
}

// ExplainQuery returns the text plan. EXPLAIN without ANALYZE does not run
// the statement.
func (a *Adapter) ExplainQuery(ctx context.Context, sqlQuery string) ([]string, error) {
	rows, err := a.pool.Query(ctx, "EXPLAIN (FORMAT TEXT) "+sqlutil.StripTrailingSemicolon(sqlQuery))
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	plan, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	return plan, nil
}
