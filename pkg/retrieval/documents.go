// Package retrieval turns the datasource schema into searchable documents and
// serves the most relevant ones as prompt context.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
)

// Document kinds.
const (
	KindTableSchema   = "table_schema"
	KindSampleData    = "sample_data"
	KindQueryPatterns = "query_patterns"
	KindColumnStats   = "column_stats"
)

// sampleRows is how many rows each sample-data document shows.
const sampleRows = 3

// Document is one unit of retrievable schema context.
type Document struct {
	ID      string
	Kind    string
	Table   string // empty for documents not tied to a table
	Content string
}

// BuildDocuments renders one schema document per table, in table order.
func BuildDocuments(tables []datasource.TableSchema) []Document {
	docs := make([]Document, 0, len(tables))
	for _, t := range tables {
		docs = append(docs, Document{
			ID:      "schema:" + t.DisplayName(),
			Kind:    KindTableSchema,
			Table:   t.DisplayName(),
			Content: formatTableSchema(t),
		})
	}
	return docs
}

func formatTableSchema(t datasource.TableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n%s\n\n", t.DisplayName(), strings.Repeat("=", 50))
	if t.RowCount > 0 {
		fmt.Fprintf(&b, "Rows: %s\n\n", groupThousands(t.RowCount))
	}

	for _, c := range t.Columns {
		fmt.Fprintf(&b, "- %s: %s", c.ColumnName, c.DataType)
		if c.IsPrimaryKey {
			b.WriteString(" (PRIMARY KEY)")
		}
		if !c.IsNullable {
			b.WriteString(" NOT NULL")
		}
		b.WriteString("\n")
	}

	for _, fk := range t.ForeignKeys {
		fmt.Fprintf(&b, "- %s references %s(%s)\n", fk.SourceColumn, fk.TargetTable, fk.TargetColumn)
	}
	return b.String()
}

// SampleDocuments queries a few rows from each table. Tables that fail to
// sample are logged and skipped.
func SampleDocuments(ctx context.Context, executor datasource.QueryExecutor, tables []datasource.TableSchema, logger *zap.Logger) []Document {
	var docs []Document
	for _, t := range tables {
		name := executor.QuoteIdentifier(t.TableName)
		if t.DisplayName() != t.TableName {
			name = executor.QuoteIdentifier(t.SchemaName) + "." + name
		}

		result, err := executor.Query(ctx, "SELECT * FROM "+name, sampleRows)
		if err != nil {
			logger.Warn("Failed to sample table", zap.String("table", t.DisplayName()), zap.Error(err))
			continue
		}

		docs = append(docs, Document{
			ID:      "sample:" + t.DisplayName(),
			Kind:    KindSampleData,
			Table:   t.DisplayName(),
			Content: formatSample(t.DisplayName(), result),
		})
	}
	return docs
}

func formatSample(table string, result *datasource.QueryExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sample data from %s:\n%s\n\n", table, strings.Repeat("=", 50))

	columns := result.ColumnNames()
	b.WriteString(strings.Join(columns, " | "))
	b.WriteString("\n")
	for _, row := range result.Rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = fmt.Sprint(row[c])
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

// ColumnStatsDocuments profiles every column of each table. Numeric
// columns report their range and mean; other columns report cardinality,
// and low-cardinality ones list their values up to distinctLimit. Tables
// that fail to profile are logged and skipped.
func ColumnStatsDocuments(ctx context.Context, profiler datasource.ColumnProfiler, tables []datasource.TableSchema, distinctLimit int, logger *zap.Logger) []Document {
	var docs []Document
	for _, t := range tables {
		stats, err := profiler.AnalyzeColumnStats(ctx, t.SchemaName, t.TableName, t.Columns)
		if err != nil {
			logger.Warn("Failed to profile table", zap.String("table", t.DisplayName()), zap.Error(err))
			continue
		}
		if len(stats) == 0 {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Column statistics for %s:\n%s\n\n", t.DisplayName(), strings.Repeat("=", 50))
		for _, s := range stats {
			fmt.Fprintf(&b, "- Column %s.%s: %s\n", t.DisplayName(), s.ColumnName,
				describeStats(ctx, profiler, t, s, distinctLimit, logger))
		}

		docs = append(docs, Document{
			ID:      "stats:" + t.DisplayName(),
			Kind:    KindColumnStats,
			Table:   t.DisplayName(),
			Content: b.String(),
		})
	}
	return docs
}

func describeStats(ctx context.Context, profiler datasource.ColumnProfiler, t datasource.TableSchema, s datasource.ColumnStats, distinctLimit int, logger *zap.Logger) string {
	if s.MinValue != nil && s.MaxValue != nil {
		desc := fmt.Sprintf("min=%s, max=%s", *s.MinValue, *s.MaxValue)
		if s.AvgValue != nil {
			desc += fmt.Sprintf(", avg=%.2f", *s.AvgValue)
		}
		return desc
	}

	desc := fmt.Sprintf("%s unique values out of %s", groupThousands(s.DistinctCount), groupThousands(s.RowCount))
	if nulls := s.NullCount(); nulls > 0 {
		desc += fmt.Sprintf(" (%s nulls)", groupThousands(nulls))
	}
	if distinctLimit <= 0 || s.DistinctCount == 0 || s.DistinctCount > int64(distinctLimit) {
		return desc
	}

	values, err := profiler.GetDistinctValues(ctx, t.SchemaName, t.TableName, s.ColumnName, distinctLimit)
	if err != nil {
		logger.Debug("Failed to list distinct values",
			zap.String("table", t.DisplayName()),
			zap.String("column", s.ColumnName),
			zap.Error(err))
		return desc
	}
	if len(values) > 0 {
		desc += ". Values: " + strings.Join(values, ", ")
	}
	return desc
}

// groupThousands renders n with comma separators, e.g. 1234567 as "1,234,567".
func groupThousands(n int64) string {
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	digits := fmt.Sprint(n)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}

// QueryPatternsDocument is a short dialect-neutral cheat sheet for the model.
func QueryPatternsDocument() Document {
	return Document{
		ID:   "patterns",
		Kind: KindQueryPatterns,
		Content: `# Common SQL Query Patterns

## Aggregation
- Totals: SELECT SUM(amount) FROM t
- Counts by group: SELECT category, COUNT(*) FROM t GROUP BY category

## Joins
- Related rows: SELECT a.name, COUNT(b.id) FROM a JOIN b ON a.id = b.a_id GROUP BY a.name

## Filtering
- By value: SELECT col FROM t WHERE status = 'completed'
- By range: SELECT col FROM t WHERE created_at BETWEEN '2024-01-01' AND '2024-12-31'

## Top N
- SELECT key, SUM(amount) AS total FROM t GROUP BY key ORDER BY total DESC LIMIT 10
`,
	}
}

// tableNames returns the distinct table names of docs, sorted.
func tableNames(docs []Document) []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range docs {
		if d.Table != "" && !seen[d.Table] {
			seen[d.Table] = true
			names = append(names, d.Table)
		}
	}
	sort.Strings(names)
	return names
}
