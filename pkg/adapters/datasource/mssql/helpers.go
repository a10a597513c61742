package mssql

import (
	"fmt"
	"strings"
)

// quoteName brackets an identifier the way QUOTENAME() does.
func quoteName(identifier string) string {
	// QUOTENAME in SQL Server uses square brackets and escapes ] as ]]
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// mapSQLServerType maps SQL Server type names to standard type names.
// This provides a consistent interface across different database adapters.
func mapSQLServerType(sqlServerType string) string {
	sqlServerType = strings.ToUpper(sqlServerType)

	switch sqlServerType {
	// Integer types
	case "TINYINT":
		return "TINYINT"
	case "SMALLINT":
		return "SMALLINT"
	case "INT":
		return "INTEGER"
	case "BIGINT":
		return "BIGINT"

	// Decimal types
	case "DECIMAL", "NUMERIC":
		return "NUMERIC"
	case "MONEY", "SMALLMONEY":
		return "MONEY"
	case "FLOAT":
		return "DOUBLE PRECISION"
	case "REAL":
		return "REAL"

	// String types
	case "CHAR", "NCHAR":
		return "CHAR"
	case "VARCHAR", "NVARCHAR":
		return "VARCHAR"
	case "TEXT", "NTEXT":
		return "TEXT"

	// Binary types
	case "BINARY", "VARBINARY":
		return "BYTEA"
	case "IMAGE":
		return "BLOB"

	// Date/Time types
	case "DATE":
		return "DATE"
	case "TIME":
		return "TIME"
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		return "TIMESTAMP"
	case "DATETIMEOFFSET":
		return "TIMESTAMP WITH TIME ZONE"

	// Boolean
	case "BIT":
		return "BOOLEAN"

	// UUID/GUID
	case "UNIQUEIDENTIFIER":
		return "UUID"

	// JSON (SQL Server 2016+)
	case "JSON":
		return "JSON"

	// XML
	case "XML":
		return "XML"

	// Other types - return as-is
	default:
		return sqlServerType
	}
}
