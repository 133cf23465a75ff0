package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type Config struct {
	Server       ServerConfig
	Plaid        PlaidConfig
	Transactions TransactionsConfig
	Session      SessionConfig
	TLS          TLSConfig
	Log          LogConfig
	Telemetry    TelemetryConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	AllowedHosts   []string
	AllowedOrigins []string
}

type PlaidConfig struct {
	ClientID string
	Secret   string
	// SecretResource is a Secret Manager version name used when Secret is empty,
	// e.g. projects/p/secrets/plaid-secret/versions/latest.
	SecretResource string
	Environment    string
	ClientName     string
	ClientUserID   string
	Products       []string
	CountryCodes   []string
	Language       string
}

type TransactionsConfig struct {
	StartDate string
	EndDate   string
	Count     int
}

type SessionConfig struct {
	CookieName string
	Capacity   int
	// Secret seeds the key that encrypts access tokens in memory. When empty a
	// random key is generated at startup.
	Secret string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type LogConfig struct {
	Level  string
	Format string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {
	transactionsCount, err := getIntEnv("TRANSACTIONS_COUNT", 100)
	if err != nil {
		return nil, err
	}
	sessionCapacity, err := getIntEnv("SESSION_CAPACITY", 1024)
	if err != nil {
		return nil, err
	}

	plaidEnv := strings.ToLower(getEnv("PLAID_ENV", "sandbox"))

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Host:           getEnv("HOST", "0.0.0.0"),
			AllowedHosts:   getListEnv("ALLOWED_HOSTS", ""),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", ""),
		},
		Plaid: PlaidConfig{
			ClientID:       getEnv("CLIENT_ID", ""),
			Secret:         getEnv("SECRET", ""),
			SecretResource: getEnv("PLAID_SECRET_RESOURCE", ""),
			Environment:    plaidEnv,
			ClientName:     getEnv("PLAID_CLIENT_NAME", "App of Tyler"),
			ClientUserID:   getEnv("PLAID_CLIENT_USER_ID", "unique-user-id"),
			Products:       getListEnv("PLAID_PRODUCTS", "auth,identity"),
			CountryCodes:   getListEnv("PLAID_COUNTRY_CODES", "US"),
			Language:       getEnv("PLAID_LANGUAGE", "en"),
		},
		Transactions: TransactionsConfig{
			StartDate: getEnv("TRANSACTIONS_START_DATE", "2023-01-01"),
			EndDate:   getEnv("TRANSACTIONS_END_DATE", "2024-12-31"),
			Count:     transactionsCount,
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "plaidgate_session"),
			Capacity:   sessionCapacity,
			Secret:     getEnv("SESSION_SECRET", ""),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "plaidgate"),
			Environment:  getEnv("OTEL_ENVIRONMENT", plaidEnv),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Plaid.ClientID == "" {
		return fmt.Errorf("CLIENT_ID is required")
	}
	if c.Plaid.Secret == "" && c.Plaid.SecretResource == "" {
		return fmt.Errorf("SECRET or PLAID_SECRET_RESOURCE is required")
	}
	switch c.Plaid.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("invalid PLAID_ENV %q: must be sandbox or production", c.Plaid.Environment)
	}
	if len(c.Plaid.Products) == 0 {
		return fmt.Errorf("PLAID_PRODUCTS must list at least one product")
	}
	if len(c.Plaid.CountryCodes) == 0 {
		return fmt.Errorf("PLAID_COUNTRY_CODES must list at least one country")
	}

	start, err := time.Parse(dateLayout, c.Transactions.StartDate)
	if err != nil {
		return fmt.Errorf("invalid TRANSACTIONS_START_DATE: %w", err)
	}
	end, err := time.Parse(dateLayout, c.Transactions.EndDate)
	if err != nil {
		return fmt.Errorf("invalid TRANSACTIONS_END_DATE: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("TRANSACTIONS_END_DATE must not be before TRANSACTIONS_START_DATE")
	}
	// Plaid accepts 1..500 per page.
	if c.Transactions.Count < 1 || c.Transactions.Count > 500 {
		return fmt.Errorf("TRANSACTIONS_COUNT must be between 1 and 500")
	}

	if c.Session.Capacity < 1 {
		return fmt.Errorf("SESSION_CAPACITY must be positive")
	}

	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return nil
}

// Addr returns the listen address for the API server.
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getListEnv splits a comma-separated variable, dropping empty entries.
func getListEnv(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
