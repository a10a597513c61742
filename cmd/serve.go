package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/handlers"
	"github.com/ekaya-inc/ekaya-analyst/pkg/mcp"
	"github.com/ekaya-inc/ekaya-analyst/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-analyst/pkg/middleware"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

const (
	shutdownTimeout    = 15 * time.Second
	readHeaderTimeout  = 10 * time.Second
	historyPrunePeriod = 6 * time.Hour
)

var serveStdio bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and MCP endpoint",
	Long: `The serve command exposes the analyst over a JSON HTTP API and, unless disabled,
an MCP endpoint at /mcp. With --stdio the MCP server speaks over stdin/stdout instead
and no HTTP listener is started.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.history != nil && cfg.History.RetentionDays > 0 {
			go runHistoryPruner(ctx, a.history, time.Duration(cfg.History.RetentionDays)*24*time.Hour,
				historyPrunePeriod, clockwork.NewRealClock(), logger)
		}

		mcpServer := a.newMCPServer()
		if serveStdio {
			logger.Info("Serving MCP over stdio")
			return mcpServer.ServeStdio()
		}
		return a.serveHTTP(ctx, mcpServer)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	rootCmd.AddCommand(serveCmd)
}

// newMCPServer registers every tool family the app has components for.
func (a *app) newMCPServer() *mcp.Server {
	s := mcp.NewServer(mcp.ServerName, a.cfg.Version, a.logger.Named("mcp"))
	deps := mcp.ToolDeps{
		Version: a.cfg.Version,
		Oracle:  a.oracle,
		Analyst: &tools.AnalystToolDeps{Resolver: a.resolver, Logger: a.logger},
		SQL:     &tools.SQLToolDeps{Validator: a.validator, Engine: a.datasource, Planner: a.datasource, Auditor: a.auditor, Logger: a.logger},
		Schema:  &tools.SchemaToolDeps{Schema: a.catalog, Refresher: a.retriever, Logger: a.logger},

		Templates: &tools.TemplateToolDeps{Service: a.templates, Logger: a.logger},
	}
	if a.history != nil {
		deps.History = &tools.HistoryToolDeps{Service: a.history, Logger: a.logger}
	}
	s.RegisterTools(deps)
	return s
}

// routes builds the HTTP handler tree.
func (a *app) routes(mcpServer *mcp.Server) http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(a.cfg, a.oracle, a.logger).RegisterRoutes(mux)
	handlers.NewAnalystHandler(a.resolver, a.logger).RegisterRoutes(mux)
	handlers.NewSQLHandler(a.validator, a.logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(a.catalog, a.retriever, a.logger).RegisterRoutes(mux)
	handlers.NewHistoryHandler(a.history, a.logger).RegisterRoutes(mux)
	handlers.NewTemplateHandler(a.templates, a.logger).RegisterRoutes(mux)
	handlers.RegisterMetricsRoute(mux, a.registry)

	if a.cfg.MCP.Enabled {
		mux.Handle("/mcp", middleware.MCPRequestLogger(a.logger)(mcpServer.NewStreamableHTTPServer()))
	}

	return middleware.RequestLogger(a.logger)(mux)
}

// serveHTTP listens until ctx is cancelled, then drains in-flight requests.
func (a *app) serveHTTP(ctx context.Context, mcpServer *mcp.Server) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.routes(mcpServer),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting ekaya-analyst",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", a.cfg.TLSEnabled()),
			zap.Bool("mcp", a.cfg.MCP.Enabled),
			zap.String("version", a.cfg.Version))

		var err error
		if a.cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(a.cfg.TLSCertPath, a.cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runHistoryPruner deletes history entries older than retention once at
// start and then every period, until ctx is cancelled.
func runHistoryPruner(ctx context.Context, history services.QueryHistoryService, retention, period time.Duration, clock clockwork.Clock, logger *zap.Logger) {
	ticker := clock.NewTicker(period)
	defer ticker.Stop()

	for {
		cutoff := clock.Now().Add(-retention)
		if n, err := history.PruneOlderThan(ctx, cutoff); err == nil && n > 0 {
			logger.Info("Pruned query history", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
