package sqlite

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
)

const mainSchema = "main"

// SupportsForeignKeys returns true; SQLite records declared FKs even when
// enforcement is off.
func (a *Adapter) SupportsForeignKeys() bool {
	return true
}

// DiscoverTables returns all user tables with exact row counts. SQLite keeps
// no statistics cheap enough to estimate from.
func (a *Adapter) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	const query = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableMetadata
	for rows.Next() {
		t := datasource.TableMetadata{SchemaName: mainSchema}
		if err := rows.Scan(&t.TableName); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	for i := range tables {
		query := "SELECT COUNT(*) FROM " + a.QuoteIdentifier(tables[i].TableName)
		if err := a.db.QueryRowContext(ctx, query).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", tables[i].TableName, err)
		}
	}

	return tables, nil
}

// DiscoverColumns returns columns for a specific table.
func (a *Adapter) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT name, type, "notnull", pk, cid, dflt_value
		FROM pragma_table_info(?)
		ORDER BY cid
	`

	rows, err := a.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var (
			c       datasource.ColumnMetadata
			notNull int
			pk      int
		)
		if err := rows.Scan(&c.ColumnName, &c.DataType, &notNull, &pk, &c.OrdinalPosition, &c.DefaultValue); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.DataType = mapSQLiteType(c.DataType)
		c.IsNullable = notNull == 0
		c.IsPrimaryKey = pk > 0
		c.OrdinalPosition++ // cid is zero-based
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// DiscoverForeignKeys returns all foreign key relationships.
func (a *Adapter) DiscoverForeignKeys(ctx context.Context) ([]datasource.ForeignKeyMetadata, error) {
	tables, err := a.DiscoverTables(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT id, "from", "table", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq
	`

	var fks []datasource.ForeignKeyMetadata
	for _, t := range tables {
		rows, err := a.db.QueryContext(ctx, query, t.TableName)
		if err != nil {
			return nil, fmt.Errorf("query foreign keys for %s: %w", t.TableName, err)
		}

		for rows.Next() {
			var id int
			fk := datasource.ForeignKeyMetadata{
				SourceSchema: mainSchema,
				SourceTable:  t.TableName,
				TargetSchema: mainSchema,
			}
			if err := rows.Scan(&id, &fk.SourceColumn, &fk.TargetTable, &fk.TargetColumn); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan foreign key: %w", err)
			}
			fk.ConstraintName = fmt.Sprintf("fk_%s_%d", t.TableName, id)
			fks = append(fks, fk)
		}

		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate foreign keys: %w", err)
		}
	}

	return fks, nil
}
