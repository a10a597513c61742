package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-analyst/pkg/database"
	"github.com/ekaya-inc/ekaya-analyst/pkg/performance"
	"github.com/ekaya-inc/ekaya-analyst/pkg/retrieval"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

// DefaultPath is read when Load is given no explicit path.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-analyst.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	LLM         LLMConfig               `yaml:"llm"`
	Datasource  DatasourceConfig        `yaml:"datasource"`
	Retrieval   retrieval.Config        `yaml:"retrieval"`
	Cache       CacheConfig             `yaml:"cache"`
	Pipeline    services.ResolverConfig `yaml:"pipeline"`
	Performance performance.Thresholds  `yaml:"performance"`
	History     HistoryConfig           `yaml:"history"`
	MCP         MCPConfig               `yaml:"mcp"`
}

// LLMConfig selects and tunes the text-completion provider.
type LLMConfig struct {
	Provider       string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint       string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model          string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	EmbeddingModel string  `yaml:"embedding_model" env:"LLM_EMBEDDING_MODEL" env-default:""`
	APIKey         string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	MaxTokens      int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
	Temperature    float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`

	// FailureThreshold consecutive failures open the circuit breaker for BreakerReset.
	FailureThreshold int           `yaml:"failure_threshold" env:"LLM_FAILURE_THRESHOLD" env-default:"5"`
	BreakerReset     time.Duration `yaml:"breaker_reset" env:"LLM_BREAKER_RESET" env-default:"30s"`
	// EmbeddingWorkers bounds concurrent embedding batches.
	EmbeddingWorkers int `yaml:"embedding_workers" env:"LLM_EMBEDDING_WORKERS" env-default:"4"`
}

// DatasourceConfig names the single database questions are answered from.
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"DS_TYPE" env-default:"sqlite"`
	Path     string `yaml:"path" env:"DS_PATH" env-default:"data/analyst.db"` // sqlite only
	Host     string `yaml:"host" env:"DS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DS_PORT" env-default:"0"` // 0 uses the adapter default
	User     string `yaml:"user" env:"DS_USER" env-default:""`
	Password string `yaml:"-" env:"DS_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DS_DATABASE" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"DS_SSL_MODE" env-default:""`
	ReadOnly bool   `yaml:"read_only" env:"DS_READ_ONLY" env-default:"true"`
	MaxConns int    `yaml:"max_conns" env:"DS_MAX_CONNS" env-default:"5"`

	// LargeTables warn when queried without a WHERE clause.
	LargeTables []string `yaml:"large_tables" env:"DS_LARGE_TABLES" env-separator:"," env-default:"orders"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"30m"`
	MaxEntries int           `yaml:"max_entries" env:"CACHE_MAX_ENTRIES" env-default:"500"`
}

// HistoryConfig enables the PostgreSQL query-history store.
type HistoryConfig struct {
	Enabled        bool   `yaml:"enabled" env:"HISTORY_ENABLED" env-default:"false"`
	Host           string `yaml:"host" env:"HISTORY_PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"HISTORY_PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"HISTORY_PGUSER" env-default:"analyst"`
	Password       string `yaml:"-" env:"HISTORY_PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"HISTORY_PGDATABASE" env-default:"analyst_history"`
	SSLMode        string `yaml:"ssl_mode" env:"HISTORY_PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"HISTORY_PGMAX_CONNECTIONS" env-default:"5"`
	RetentionDays  int    `yaml:"retention_days" env:"HISTORY_RETENTION_DAYS" env-default:"90"`
}

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from path (DefaultPath when empty) with
// environment variable overrides. A missing file is not an error; defaults
// and environment variables are used instead.
func Load(version, path string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		path = DefaultPath
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Pipeline.Dialect = cfg.Datasource.Type
	return cfg, nil
}

func (c *Config) validate() error {
	if err := c.validateTLS(); err != nil {
		return err
	}

	switch c.Datasource.Type {
	case "sqlite", "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported datasource type %q", c.Datasource.Type)
	}

	switch c.Retrieval.Mode {
	case retrieval.ModeKeyword, retrieval.ModeEmbedding:
	default:
		return fmt.Errorf("unsupported retrieval mode %q", c.Retrieval.Mode)
	}

	if c.History.Enabled && c.History.Database == "" {
		return fmt.Errorf("history.database is required when history is enabled")
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// TLSEnabled reports whether the server should serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertPath != ""
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// AdapterConfig renders the datasource settings into the map the adapter
// registry expects. Loopback hosts are rewritten when running in Docker.
func (d DatasourceConfig) AdapterConfig() map[string]any {
	switch strings.ToLower(d.Type) {
	case "sqlite":
		return map[string]any{
			"path":      d.Path,
			"read_only": d.ReadOnly,
		}
	default:
		m := map[string]any{
			"host":      ResolveHostForDocker(d.Host),
			"user":      d.User,
			"password":  d.Password,
			"database":  d.Database,
			"max_conns": d.MaxConns,
		}
		if d.Port > 0 {
			m["port"] = d.Port
		}
		if d.SSLMode != "" {
			m["ssl_mode"] = d.SSLMode
		}
		return m
	}
}

// URL is the history database connection URL.
func (h HistoryConfig) URL() string {
	return database.ConnectionURL(ResolveHostForDocker(h.Host), h.Port, h.User, h.Password, h.Database, h.SSLMode)
}
