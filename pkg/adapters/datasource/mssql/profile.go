package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// fullyQualifiedName returns [schema].[table], or [table] when schema is empty.
func fullyQualifiedName(schemaName, tableName string) string {
	if schemaName == "" {
		return quoteName(tableName)
	}
	return quoteName(schemaName) + "." + quoteName(tableName)
}

// AnalyzeColumnStats gathers statistics for columns. Reads use NOLOCK so
// profiling never blocks writers.
func (a *Adapter) AnalyzeColumnStats(ctx context.Context, schemaName, tableName string, columns []datasource.ColumnMetadata) ([]datasource.ColumnStats, error) {
	tableRef := fullyQualifiedName(schemaName, tableName)

	stats := make([]datasource.ColumnStats, 0, len(columns))
	for _, c := range columns {
		col := quoteName(c.ColumnName)
		s := datasource.ColumnStats{ColumnName: c.ColumnName}

		var err error
		if datasource.IsNumericType(c.DataType) {
			var minVal, maxVal sql.NullString
			var avgVal sql.NullFloat64
			query := fmt.Sprintf(`
				SELECT
					COUNT_BIG(*),
					COUNT_BIG(%s),
					COUNT_BIG(DISTINCT %s),
					CAST(MIN(%s) AS NVARCHAR(100)),
					CAST(MAX(%s) AS NVARCHAR(100)),
					AVG(CAST(%s AS FLOAT))
				FROM %s WITH (NOLOCK)
			`, col, col, col, col, col, tableRef)
			err = a.db.QueryRowContext(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount, &minVal, &maxVal, &avgVal)
			s.MinValue = datasource.NullableString(minVal)
			s.MaxValue = datasource.NullableString(maxVal)
			s.AvgValue = datasource.NullableFloat(avgVal)
		} else {
			query := fmt.Sprintf(`
				SELECT COUNT_BIG(*), COUNT_BIG(%s), COUNT_BIG(DISTINCT %s)
				FROM %s WITH (NOLOCK)
			`, col, col, tableRef)
			err = a.db.QueryRowContext(ctx, query).Scan(&s.RowCount, &s.NonNullCount, &s.DistinctCount)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// text/ntext/image columns reject COUNT(DISTINCT); skip them.
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
	quotedCol := quoteName(columnName)
	query := fmt.Sprintf(`
		SELECT DISTINCT TOP (%d) CAST(%s AS NVARCHAR(MAX))
		FROM %s WITH (NOLOCK)
		WHERE %s IS NOT NULL
		ORDER BY 1
	`, limit, quotedCol, fullyQualifiedName(schemaName, tableName), quotedCol)

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get distinct values for %s.%s.%s: %w", schemaName, tableName, columnName, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ExplainQuery returns the estimated plan from SHOWPLAN_TEXT. With showplan
// on, the server compiles the statement and does not execute it. The
// setting is per session, so everything runs on one pinned connection.
func (a *Adapter) ExplainQuery(ctx context.Context, sqlQuery string) (plan []string, err error) {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET SHOWPLAN_TEXT ON"); err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer func() {
		if _, offErr := conn.ExecContext(context.WithoutCancel(ctx), "SET SHOWPLAN_TEXT OFF"); offErr != nil {
			// A session left in showplan mode must not return to the pool.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			a.logger.Warn("Failed to reset SHOWPLAN_TEXT", zap.Error(offErr))
		}
	}()

	rows, err := conn.QueryContext(ctx, sqlutil.StripTrailingSemicolon(sqlQuery))
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer rows.Close()

	// The first result set echoes the statement text; the plan follows.
	for set := 0; ; set++ {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("explain query: %w", err)
		}
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, fmt.Errorf("explain query: %w", err)
			}
			if set == 0 || len(vals) == 0 {
				continue
			}
			if text := strings.TrimRight(fmt.Sprint(vals[0]), " "); text != "" {
				plan = append(plan, text)
			}
		}
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	return plan, nil
}
