package sqlite

import (
	"fmt"
	"net/url"
	"strconv"
)

// Config contains SQLite connection options.
type Config struct {
	Path          string
	ReadOnly      bool // opens with _query_only so writes fail at the engine
	BusyTimeoutMs int
}

// DefaultBusyTimeoutMs matches the busy timeout used for the catalog databases.
func DefaultBusyTimeoutMs() int {
	return 5000
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{BusyTimeoutMs: DefaultBusyTimeoutMs()}

	if path, ok := config["path"].(string); ok && path != "" {
		cfg.Path = path
	} else if database, ok := config["database"].(string); ok && database != "" {
		cfg.Path = database
	} else {
		return nil, fmt.Errorf("path is required")
	}

	switch v := config["read_only"].(type) {
	case bool:
		cfg.ReadOnly = v
	case string:
		cfg.ReadOnly = v == "true"
	}

	if timeout, ok := config["busy_timeout_ms"].(float64); ok { // JSON numbers are float64
		cfg.BusyTimeoutMs = int(timeout)
	} else if timeout, ok := config["busy_timeout_ms"].(int); ok {
		cfg.BusyTimeoutMs = timeout
	}

	return cfg, nil
}

// dsn builds a go-sqlite3 DSN with a busy timeout. Writable handles switch
// the file to WAL; read-only handles leave the journal mode alone.
func (c *Config) dsn() string {
	query := url.Values{}
	query.Set("_busy_timeout", strconv.Itoa(c.BusyTimeoutMs))
	if c.ReadOnly {
		query.Set("_query_only", "true")
	} else {
		query.Set("_journal_mode", "WAL")
	}
	return c.Path + "?" + query.Encode()
}
