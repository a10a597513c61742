package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// TypeName is the registry type for this adapter.
const TypeName = "sqlite"

// Adapter provides SQLite connectivity, schema discovery and query execution
// on one owned *sql.DB.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter opens the database file. The file must already exist.
func NewAdapter(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	logger.Debug("Opened SQLite datasource",
		zap.String("path", cfg.Path),
		zap.Bool("read_only", cfg.ReadOnly))

	return &Adapter{
		config: cfg,
		db:     db,
		logger: logger,
	}, nil
}

// TestConnection pings the database and runs a trivial query.
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

// Query runs a SELECT wrapped in a LIMIT. See datasource.QueryExecutor.Query.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	inner := sqlutil.StripTrailingSemicolon(sqlQuery)
	queryToRun := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", inner, datasource.EffectiveLimit(limit))

	rows, err := a.db.QueryContext(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.ScanSQLRows(rows, mapSQLiteType)
}

// QuoteIdentifier wraps name in double quotes, doubling embedded quotes.
func (a *Adapter) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Type returns the registry type.
func (a *Adapter) Type() string { return TypeName }

// Close releases the database handle.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// mapSQLiteType normalizes declared column types. Expressions have no
// declared type and report UNKNOWN.
func mapSQLiteType(declared string) string {
	declared = strings.ToUpper(strings.TrimSpace(declared))
	if declared == "" {
		return "UNKNOWN"
	}
	return declared
}

// Ensure Adapter implements datasource.Datasource at compile time.
var _ datasource.Datasource = (*Adapter)(nil)
