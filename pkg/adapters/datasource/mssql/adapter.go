package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
)

// TypeName is the registry type for this adapter.
const TypeName = "mssql"

// Adapter provides SQL Server connectivity with SQL or service principal
// authentication.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter validates cfg and opens a connection pool.
func NewAdapter(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, dsn := cfg.connectionURL()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", cfg.AuthMethod, err)
	}

	return &Adapter{
		config: cfg,
		db:     db,
		logger: logger,
	}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	return nil
}

// Query caps the result at limit rows. See datasource.QueryExecutor.Query.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	maxRows := datasource.EffectiveLimit(limit)
	queryToRun, wrapped := limitedStatement(sqlQuery, maxRows)
	if !wrapped {
		a.logger.Debug("Running statement unwrapped, capping rows during scan",
			zap.Int("limit", maxRows))
	}

	rows, err := a.db.QueryContext(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanSQLRowsLimit(rows, mapSQLServerType, maxRows)
}

// QuoteIdentifier uses SQL Server's square bracket syntax: [name]
func (a *Adapter) QuoteIdentifier(name string) string {
	return quoteName(name)
}

// Type returns the registry type.
func (a *Adapter) Type() string { return TypeName }

// Close releases the connection pool.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ensure Adapter implements datasource.Datasource at compile time.
var _ datasource.Datasource = (*Adapter)(nil)
