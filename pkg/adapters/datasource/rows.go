package datasource

import (
	"database/sql"
	"fmt"
	"strings"
)

// TypeMapper maps a driver's DatabaseTypeName to the name reported in ColumnInfo.
type TypeMapper func(dbType string) string

// ScanSQLRows drains database/sql rows into a QueryExecutionResult. Byte
// slices from textual columns are converted to strings so results encode
// cleanly to JSON.
func ScanSQLRows(rows *sql.Rows, mapType TypeMapper) (*QueryExecutionResult, error) {
	return ScanSQLRowsLimit(rows, mapType, 0)
}

// ScanSQLRowsLimit is ScanSQLRows that stops after maxRows rows. maxRows <= 0
// reads everything. The caller still closes rows.
func ScanSQLRowsLimit(rows *sql.Rows, mapType TypeMapper, maxRows int) (*QueryExecutionResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		columns[i] = ColumnInfo{Name: name, Type: mapType(columnTypes[i].DatabaseTypeName())}
	}

	resultRows := make([]map[string]any, 0)
	for (maxRows <= 0 || len(resultRows) < maxRows) && rows.Next() {
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			val := values[i]
			if b, ok := val.([]byte); ok && IsTextType(columns[i].Type) {
				val = string(b)
			}
			rowMap[col] = val
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &QueryExecutionResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// IsTextType reports whether a normalized type name holds character data.
func IsTextType(typeName string) bool {
	upper := strings.ToUpper(typeName)
	for _, prefix := range []string{"TEXT", "VARCHAR", "NVARCHAR", "CHAR", "NCHAR", "NTEXT", "CLOB", "BPCHAR"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// IsNumericType reports whether a normalized type name holds numbers that
// MIN, MAX and AVG make sense for.
func IsNumericType(typeName string) bool {
	upper := strings.ToUpper(typeName)
	if strings.Contains(upper, "INTERVAL") || strings.Contains(upper, "POINT") || strings.HasSuffix(upper, "[]") {
		return false
	}
	for _, marker := range []string{"INT", "FLOAT", "DOUBLE", "DECIMAL", "NUMERIC", "REAL", "MONEY"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// NullableString converts a scanned nullable value to a pointer.
func NullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// NullableFloat converts a scanned nullable value to a pointer.
func NullableFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}
