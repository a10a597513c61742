package mssql

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// AuthMethod selects how the adapter authenticates to SQL Server.
type AuthMethod string

const (
	AuthSQL              AuthMethod = "sql"
	AuthServicePrincipal AuthMethod = "service_principal"
)

const (
	defaultPort              = 1433
	defaultConnectionTimeout = 30
)

// Config holds SQL Server connection options. Username and Password apply
// to AuthSQL; TenantID, ClientID and ClientSecret apply to
// AuthServicePrincipal.
type Config struct {
	Host       string
	Port       int
	Database   string
	AuthMethod AuthMethod

	Username string
	Password string

	TenantID     string
	ClientID     string
	ClientSecret string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int // seconds
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int { return defaultPort }

// settings reads typed values out of a datasource config map. JSON
// decoding yields float64 for numbers, so ints accept both.
type settings map[string]any

func (s settings) str(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := s[k].(string); ok {
			return v, true
		}
	}
	return "", false
}

func (s settings) nonEmpty(keys ...string) string {
	for _, k := range keys {
		if v, ok := s[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (s settings) integer(key string, fallback int) int {
	switch v := s[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// FromMap builds a Config from the datasource settings block. When
// auth_method is absent it is inferred: a client_id selects service
// principal auth, otherwise a non-empty user or username selects SQL auth.
func FromMap(config map[string]any) (*Config, error) {
	s := settings(config)

	cfg := &Config{
		Host:              s.nonEmpty("host"),
		Port:              s.integer("port", defaultPort),
		Database:          s.nonEmpty("database", "name"),
		Encrypt:           true,
		ConnectionTimeout: s.integer("connection_timeout", defaultConnectionTimeout),
	}
	if cfg.Host == "" {
		return nil, errors.New("host is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("database is required")
	}

	switch v := config["encrypt"].(type) {
	case bool:
		cfg.Encrypt = v
	case string:
		cfg.Encrypt = v == "true" || v == "strict"
	}
	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	method, err := detectAuthMethod(s)
	if err != nil {
		return nil, err
	}
	cfg.AuthMethod = method

	switch method {
	case AuthSQL:
		user, ok := s.str("username", "user")
		if !ok {
			return nil, errors.New("username is required for SQL authentication")
		}
		cfg.Username = user
		cfg.Password, _ = s.str("password")
	case AuthServicePrincipal:
		for _, f := range []struct {
			key string
			dst *string
		}{
			{"tenant_id", &cfg.TenantID},
			{"client_id", &cfg.ClientID},
			{"client_secret", &cfg.ClientSecret},
		} {
			v, ok := s.str(f.key)
			if !ok {
				return nil, fmt.Errorf("%s is required for service principal authentication", f.key)
			}
			*f.dst = v
		}
	}

	return cfg, nil
}

func detectAuthMethod(s settings) (AuthMethod, error) {
	if explicit := s.nonEmpty("auth_method"); explicit != "" {
		m := AuthMethod(explicit)
		if m != AuthSQL && m != AuthServicePrincipal {
			return "", fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", explicit)
		}
		return m, nil
	}
	if _, ok := s.str("client_id"); ok {
		return AuthServicePrincipal, nil
	}
	if s.nonEmpty("username", "user") != "" {
		return AuthSQL, nil
	}
	return "", errors.New("could not auto-detect auth method; no credentials provided")
}

// Validate checks the fields required by the selected auth method.
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("host is required")
	case c.Database == "":
		return errors.New("database is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case AuthSQL:
		if c.Username == "" {
			return errors.New("username is required for SQL authentication")
		}
	case AuthServicePrincipal:
		if c.TenantID == "" {
			return errors.New("tenant_id is required for service principal")
		}
		if c.ClientID == "" {
			return errors.New("client_id is required for service principal")
		}
		if c.ClientSecret == "" {
			return errors.New("client_secret is required for service principal")
		}
	default:
		return fmt.Errorf("invalid auth method: %s", c.AuthMethod)
	}
	return nil
}

// connectionURL returns the driver name and sqlserver:// URL for the auth
// method. Service principal logins go through the azuresql driver with
// fedauth; SQL logins carry credentials in the URL userinfo.
func (c *Config) connectionURL() (driver, dsn string) {
	q := url.Values{}
	q.Set("database", c.Database)
	q.Set("encrypt", strconv.FormatBool(c.Encrypt))
	if c.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		q.Set("connection timeout", strconv.Itoa(c.ConnectionTimeout))
	}

	u := url.URL{Scheme: "sqlserver", Host: fmt.Sprintf("%s:%d", c.Host, c.Port)}

	if c.AuthMethod == AuthServicePrincipal {
		q.Set("fedauth", "ActiveDirectoryServicePrincipal")
		q.Set("user id", c.ClientID)
		q.Set("password", c.ClientSecret)
		q.Set("tenant id", c.TenantID)
		u.RawQuery = q.Encode()
		return "azuresql", u.String()
	}

	u.User = url.UserPassword(c.Username, c.Password)
	u.RawQuery = q.Encode()
	return "sqlserver", u.String()
}
