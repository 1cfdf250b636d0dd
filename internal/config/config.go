// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/laptoptracker/laptop-tracker/internal/store"
	"github.com/laptoptracker/laptop-tracker/internal/webhook"
)

// Config holds the aggregator configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3001"`

	// Kandji
	KandjiSubdomain string `env:"KANDJI_SUBDOMAIN"`
	KandjiAPIToken  string `env:"KANDJI_API_TOKEN"`
	KandjiRegion    string `env:"KANDJI_REGION" envDefault:"eu"`
	// KandjiBaseURL replaces the subdomain/region derived URL when set.
	KandjiBaseURL  string `env:"KANDJI_BASE_URL"`
	KandjiPageSize int    `env:"KANDJI_PAGE_SIZE" envDefault:"300"`

	// Teams notifications
	TeamsWebhookURL           string `env:"TEAMS_WEBHOOK_URL"`
	TeamsNotificationsEnabled bool   `env:"TEAMS_NOTIFICATIONS_ENABLED" envDefault:"false"`
	WebhookSigningSecret      string `env:"WEBHOOK_SIGNING_SECRET"`

	// Intune / Microsoft Graph
	IntuneEnabled       bool   `env:"INTUNE_INTEGRATION_ENABLED" envDefault:"false"`
	IntuneGraphEndpoint string `env:"INTUNE_GRAPH_API_ENDPOINT" envDefault:"https://graph.microsoft.com/v1.0"`
	TenantID            string `env:"TENANT_ID"`
	ClientID            string `env:"CLIENT_ID"`
	ClientSecret        string `env:"CLIENT_SECRET"`
	// IntuneTokenURL replaces the tenant's Azure AD token endpoint when set.
	IntuneTokenURL string `env:"INTUNE_TOKEN_URL"`

	// Notified set storage
	NotifiedStore string `env:"NOTIFIED_STORE" envDefault:"file"`
	NotifiedFile  string `env:"NOTIFIED_FILE" envDefault:"notified-devices.json"`
	RedisURL      string `env:"REDIS_URL"`
	DatabaseURL   string `env:"DATABASE_URL"`

	// Normalizer field mapping; empty uses the embedded default.
	FieldMappingPath string `env:"FIELD_MAPPING_PATH"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins, or "*" for any origin.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"false"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// KandjiAPIBase returns the Kandji API root.
func (c *Config) KandjiAPIBase() string {
	if c.KandjiBaseURL != "" {
		return strings.TrimRight(c.KandjiBaseURL, "/")
	}
	region := strings.ToLower(strings.TrimSpace(c.KandjiRegion))
	if region == "" || region == "us" {
		return fmt.Sprintf("https://%s.api.kandji.io", c.KandjiSubdomain)
	}
	return fmt.Sprintf("https://%s.api.%s.kandji.io", c.KandjiSubdomain, region)
}

// KandjiDevicesURL returns the Kandji device list endpoint.
func (c *Config) KandjiDevicesURL() string {
	return c.KandjiAPIBase() + "/api/v1/devices"
}

// NotificationsActive reports whether the notification gate should run:
// the flag must be on and a webhook URL configured.
func (c *Config) NotificationsActive() bool {
	return c.TeamsNotificationsEnabled && strings.TrimSpace(c.TeamsWebhookURL) != ""
}

// StoreOptions returns the notified-set backend selection.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:     c.NotifiedStore,
		FilePath:    c.NotifiedFile,
		RedisURL:    c.RedisURL,
		DatabaseURL: c.DatabaseURL,
	}
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	var errs []error

	if c.KandjiSubdomain == "" && c.KandjiBaseURL == "" {
		errs = append(errs, errors.New("KANDJI_SUBDOMAIN or KANDJI_BASE_URL is required"))
	}
	if c.KandjiPageSize < 0 {
		errs = append(errs, errors.New("KANDJI_PAGE_SIZE must not be negative"))
	}

	switch c.NotifiedStore {
	case store.BackendFile, store.BackendMemory:
	case store.BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when NOTIFIED_STORE=redis"))
		}
	case store.BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when NOTIFIED_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIED_STORE must be one of file, memory, redis, postgres; got %q", c.NotifiedStore))
	}

	if c.IntuneEnabled {
		if c.TenantID == "" && c.IntuneTokenURL == "" {
			errs = append(errs, errors.New("TENANT_ID is required when INTUNE_INTEGRATION_ENABLED=true"))
		}
		if c.ClientID == "" || c.ClientSecret == "" {
			errs = append(errs, errors.New("CLIENT_ID and CLIENT_SECRET are required when INTUNE_INTEGRATION_ENABLED=true"))
		}
	}

	if c.NotificationsActive() {
		if err := webhook.PolicyFor(c.AppEnv).Validate(c.TeamsWebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("TEAMS_WEBHOOK_URL: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DashboardConfig holds the dashboard process configuration.
type DashboardConfig struct {
	AppEnv        string        `env:"APP_ENV" envDefault:"development"`
	Port          int           `env:"DASHBOARD_PORT" envDefault:"3000"`
	AggregatorURL string        `env:"AGGREGATOR_URL" envDefault:"http://localhost:3001"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"5m"`
	// WindowsEnabled adds the Windows feed.
	WindowsEnabled bool `env:"INTUNE_INTEGRATION_ENABLED" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"false"`
}

// LoadDashboard parses the dashboard configuration.
func LoadDashboard() (*DashboardConfig, error) {
	cfg := &DashboardConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse dashboard config: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("invalid dashboard config: POLL_INTERVAL must be positive")
	}
	cfg.AggregatorURL = strings.TrimRight(cfg.AggregatorURL, "/")
	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
