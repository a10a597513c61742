package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// defaultSchemas are omitted from rendered table names.
var defaultSchemas = map[string]bool{"": true, "main": true, "public": true, "dbo": true}

// TableSchema is one table with its columns and outgoing foreign keys.
type TableSchema struct {
	SchemaName  string
	TableName   string
	RowCount    int64
	Columns     []ColumnMetadata
	ForeignKeys []ForeignKeyMetadata
}

// DisplayName is the table name qualified only when its schema is not the default one.
func (t TableSchema) DisplayName() string {
	if defaultSchemas[strings.ToLower(t.SchemaName)] {
		return t.TableName
	}
	return t.SchemaName + "." + t.TableName
}

// LoadSchema discovers every table with its columns and foreign keys.
func LoadSchema(ctx context.Context, d SchemaDiscoverer) ([]TableSchema, error) {
	tables, err := d.DiscoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}

	var fks []ForeignKeyMetadata
	if d.SupportsForeignKeys() {
		fks, err = d.DiscoverForeignKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover foreign keys: %w", err)
		}
	}

	result := make([]TableSchema, 0, len(tables))
	for _, t := range tables {
		columns, err := d.DiscoverColumns(ctx, t.SchemaName, t.TableName)
		if err != nil {
			return nil, fmt.Errorf("discover columns for %s: %w", t.TableName, err)
		}

		ts := TableSchema{
			SchemaName: t.SchemaName,
			TableName:  t.TableName,
			RowCount:   t.RowCount,
			Columns:    columns,
		}
		for _, fk := range fks {
			if fk.SourceTable == t.TableName && fk.SourceSchema == t.SchemaName {
				ts.ForeignKeys = append(ts.ForeignKeys, fk)
			}
		}
		result = append(result, ts)
	}
	return result, nil
}

// RenderSchemaSummary renders tables as
//
//	Table: orders
//	Columns:
//	  - id (INTEGER)
//
// with a blank line between tables. This is the schema text handed to repair prompts.
func RenderSchemaSummary(tables []TableSchema) string {
	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Table: %s\nColumns:\n", t.DisplayName())
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "  - %s (%s)\n", c.ColumnName, c.DataType)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// SchemaCatalog loads the schema once and serves it until Refresh.
// A failed load is not cached; the next call tries again.
type SchemaCatalog struct {
	discoverer SchemaDiscoverer
	logger     *zap.Logger

	mu     sync.Mutex
	tables []TableSchema
	loaded bool
}

// NewSchemaCatalog wraps a discoverer.
func NewSchemaCatalog(discoverer SchemaDiscoverer, logger *zap.Logger) *SchemaCatalog {
	return &SchemaCatalog{
		discoverer: discoverer,
		logger:     logger.Named("schema-catalog"),
	}
}

// Tables returns the cached schema, loading it on first use.
func (c *SchemaCatalog) Tables(ctx context.Context) ([]TableSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.tables, nil
	}
	return c.loadLocked(ctx)
}

// Refresh reloads the schema from the database.
func (c *SchemaCatalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.loadLocked(ctx)
	return err
}

// SchemaSummary renders the cached schema for repair prompts.
func (c *SchemaCatalog) SchemaSummary(ctx context.Context) (string, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return "", err
	}
	return RenderSchemaSummary(tables), nil
}

func (c *SchemaCatalog) loadLocked(ctx context.Context) ([]TableSchema, error) {
	tables, err := LoadSchema(ctx, c.discoverer)
	if err != nil {
		c.logger.Error("Failed to load schema", zap.Error(err))
		return nil, err
	}

	c.tables = tables
	c.loaded = true
	c.logger.Info("Schema loaded", zap.Int("tables", len(tables)))
	return tables, nil
}
