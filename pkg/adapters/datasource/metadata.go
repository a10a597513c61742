package datasource

// TableMetadata represents a discovered database table.
type TableMetadata struct {
	SchemaName string
	TableName  string
	RowCount   int64 // estimate; 0 when the engine has no cheap count
}

// ColumnMetadata represents a discovered database column.
type ColumnMetadata struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	IsPrimaryKey    bool
	IsUnique        bool
	OrdinalPosition int
	DefaultValue    *string
}

// ForeignKeyMetadata represents a discovered foreign key constraint.
type ForeignKeyMetadata struct {
	ConstraintName string
	SourceSchema   string
	SourceTable    string
	SourceColumn   string
	TargetSchema   string
	TargetTable    string
	TargetColumn   string
}

// ColumnStats contains statistics for a column. Min, Max and Avg are only
// set for numeric columns.
type ColumnStats struct {
	ColumnName    string
	RowCount      int64
	NonNullCount  int64
	DistinctCount int64
	MinValue      *string
	MaxValue      *string
	AvgValue      *float64
}

// NullCount is the number of rows where the column is NULL.
func (s ColumnStats) NullCount() int64 {
	return s.RowCount - s.NonNullCount
}
