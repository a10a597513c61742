package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// AnalyzeColumnStats gathers statistics for columns. See datasource.ColumnProfiler.
func (a *Adapter) AnalyzeColumnStats(ctx context.Context, schemaName, tableName string, columns []datasource.ColumnMetadata) ([]datasource.ColumnStats, error) {
	table := a.QuoteIdentifier(tableName)

	stats := make([]datasource.ColumnStats, 0, len(columns))
	for _, c := range columns {
		s, err := a.columnStats(ctx, table, c)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("Failed to analyze column stats",
				zap.String("table", tableName),
				zap.String("column", c.ColumnName),
				zap.Error(err))
			continue
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func (a *Adapter) columnStats(ctx context.Context, table string, c datasource.ColumnMetadata) (datasource.ColumnStats, error) {
	col := a.QuoteIdentifier(c.ColumnName)
	s := datasource.ColumnStats{ColumnName: c.ColumnName}

	if !datasource.IsNumericType(c.DataType) {
		query := fmt.Sprintf(`SELECT COUNT(*), COUNT(%s), COUNT(DISTINCT %s) FROM %s`, col, col, table)
		err := a.db.QueryRowContext(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount)
		return s, err
	}

	var (
		minValue, maxValue sql.NullString
		avgValue           sql.NullFloat64
	)
	query := fmt.Sprintf(`SELECT COUNT(*), COUNT(%s), COUNT(DISTINCT %s), MIN(%s), MAX(%s), AVG(%s) FROM %s`,
		col, col, col, col, col, table)
	if err := a.db.QueryRowContext(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount, &minValue, &maxValue, &avgValue); err != nil {
		return s, err
	}
	s.MinValue = datasource.NullableString(minValue)
	s.MaxValue = datasource.NullableString(maxValue)
	s.AvgValue = datasource.NullableFloat(avgValue)
	return s, nil
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
func (a *Adapter) GetDistinctValues(ctx context.Context, schemaName, tableName, columnName string, limit int) ([]string, error) {
	col := a.QuoteIdentifier(columnName)
	query := fmt.Sprintf(`
		SELECT DISTINCT CAST(%s AS TEXT)
		FROM %s
		WHERE %s IS NOT NULL
		ORDER BY 1
		LIMIT ?
	`, col, a.QuoteIdentifier(tableName), col)

	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get distinct values for %s.%s: %w", tableName, columnName, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, val)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}

	return values, nil
}

// ExplainQuery runs EXPLAIN QUERY PLAN and indents each step under its parent.
func (a *Adapter) ExplainQuery(ctx context.Context, sqlQuery string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+sqlutil.StripTrailingSemicolon(sqlQuery))
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer rows.Close()

	depth := map[int]int{0: -1}
	var plan []string
	for rows.Next() {
		var (
			id, parent, unused int
			detail             string
		)
		if err := rows.Scan(&id, &parent, &unused, &detail); err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		depth[id] = depth[parent] + 1
		plan = append(plan, strings.Repeat("  ", depth[id])+detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan rows: %w", err)
	}

	return plan, nil
}
