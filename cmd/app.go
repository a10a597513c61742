package cmd

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-analyst/pkg/audit"
	"github.com/ekaya-inc/ekaya-analyst/pkg/cache"
	"github.com/ekaya-inc/ekaya-analyst/pkg/config"
	"github.com/ekaya-inc/ekaya-analyst/pkg/database"
	"github.com/ekaya-inc/ekaya-analyst/pkg/llm"
	"github.com/ekaya-inc/ekaya-analyst/pkg/logging"
	"github.com/ekaya-inc/ekaya-analyst/pkg/performance"
	"github.com/ekaya-inc/ekaya-analyst/pkg/repositories"
	"github.com/ekaya-inc/ekaya-analyst/pkg/retrieval"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// app holds every long-lived component built from one configuration.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	datasource datasource.Datasource
	catalog    *datasource.SchemaCatalog
	oracle     *llm.Oracle
	retriever  *retrieval.Provider
	validator  *sqlutil.Validator
	auditor    *audit.SecurityAuditor
	resolver   services.QueryResolver
	templates  services.TemplateService
	registry   *prometheus.Registry

	// history is nil unless history.enabled is set.
	history   services.QueryHistoryService
	historyDB *database.DB
}

// loadConfig reads the config file named by --config and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(Version, configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newApp connects to the datasource (and history store when enabled) and
// assembles the resolution pipeline.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		validator: sqlutil.NewValidator(cfg.Datasource.LargeTables),
		auditor:   audit.NewSecurityAuditor(logger),
		registry:  prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ds, err := datasource.NewDatasourceAdapterFactory(logger).Open(ctx, cfg.Datasource.Type, cfg.Datasource.AdapterConfig())
	if err != nil {
		return nil, fmt.Errorf("open datasource: %w", err)
	}
	a.datasource = ds
	a.catalog = datasource.NewSchemaCatalog(ds, logger)

	client, err := llm.NewClientForProvider(&llm.Config{
		Provider:       cfg.LLM.Provider,
		Endpoint:       cfg.LLM.Endpoint,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		APIKey:         cfg.LLM.APIKey,
		MaxTokens:      cfg.LLM.MaxTokens,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	a.oracle = llm.NewOracle(client, llm.OracleConfig{
		Temperature: cfg.LLM.Temperature,
		Breaker: llm.CircuitBreakerConfig{
			Threshold:  cfg.LLM.FailureThreshold,
			ResetAfter: cfg.LLM.BreakerReset,
		},
	}, logger)

	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.LLM.EmbeddingWorkers}, logger)
	a.retriever = retrieval.NewProvider(cfg.Retrieval, a.catalog, ds, client, pool, logger)

	var recorder services.QueryHistoryRecorder
	if cfg.History.Enabled {
		if err := a.openHistory(ctx); err != nil {
			a.Close()
			return nil, err
		}
		recorder = a.history
	}

	tracker := performance.NewTracker(performance.Config{
		Thresholds: cfg.Performance,
		Registerer: a.registry,
	})

	a.resolver = services.NewQueryResolver(services.ResolverDeps{
		Oracle:    a.oracle,
		Context:   a.retriever,
		Engine:    ds,
		Schema:    a.catalog,
		Validator: a.validator,
		Cache:     cache.New(cache.Config{TTL: cfg.Cache.TTL, MaxEntries: cfg.Cache.MaxEntries}),
		Tracker:   tracker,
		History:   recorder,
		Auditor:   a.auditor,
	}, cfg.Pipeline, logger)

	a.templates = services.NewTemplateService(services.TemplateServiceDeps{
		Engine:    ds,
		Validator: a.validator,
		Tracker:   tracker,
		Auditor:   a.auditor,
	}, logger)

	logger.Info("Analyst ready",
		zap.String("datasource", ds.Type()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("retrieval_mode", cfg.Retrieval.Mode),
		zap.Bool("history", a.history != nil))
	return a, nil
}

// openHistory connects to the history database and applies migrations.
func (a *app) openHistory(ctx context.Context) error {
	url := a.cfg.History.URL()

	sqlDB, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("open history database for migrations: %w", err)
	}
	migrateErr := database.RunMigrations(sqlDB, a.logger)
	if err := sqlDB.Close(); err != nil {
		a.logger.Warn("Failed to close migration connection", zap.Error(err))
	}
	if migrateErr != nil {
		return fmt.Errorf("migrate history database (%s): %w", logging.SanitizeConnectionString(url), migrateErr)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            url,
		MaxConnections: a.cfg.History.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("connect history database: %w", err)
	}
	a.historyDB = db
	a.history = services.NewQueryHistoryService(repositories.NewQueryHistoryRepository(db), a.logger)
	return nil
}

// Close releases database connections. It is safe on a partly built app.
func (a *app) Close() {
	if a.datasource != nil {
		if err := a.datasource.Close(); err != nil {
			a.logger.Warn("Failed to close datasource", zap.Error(err))
		}
	}
	if a.historyDB != nil {
		a.historyDB.Close()
	}
}
