// Package config provides configuration management for the keiba-edge
// application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Data       DataConfig       `mapstructure:"data" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Collector  CollectorConfig  `mapstructure:"collector" validate:"required"`
	Betting    BettingConfig    `mapstructure:"betting" validate:"required"`
	Simulation SimulationConfig `mapstructure:"simulation" validate:"required"`
	Selection  SelectionConfig  `mapstructure:"selection" validate:"required"`
	Monitor    MonitorConfig    `mapstructure:"monitor" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataConfig locates the collector's JSON exports and analysis outputs.
type DataConfig struct {
	Dir       string `mapstructure:"dir" validate:"required"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// DatabaseConfig represents database connection configuration. The database
// is optional; when Host is empty the ledger runs in memory only.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// Enabled reports whether a database connection is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// CollectorConfig represents the upstream data collector endpoint.
type CollectorConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts     int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
}

// BettingConfig represents stake sizing and value qualification settings.
type BettingConfig struct {
	InitialBankroll  float64 `mapstructure:"initial_bankroll" validate:"required,gt=0"`
	MinExpectedValue float64 `mapstructure:"min_expected_value" validate:"required,gte=1"`
	MaxPortfolio     int     `mapstructure:"max_portfolio" validate:"required,gt=0"`
	MaxRiskFraction  float64 `mapstructure:"max_risk_fraction" validate:"required,gt=0,lte=0.5"`
	Confidence       float64 `mapstructure:"confidence" validate:"required,gt=0,lte=1"`
}

// SimulationConfig represents Monte Carlo settings.
type SimulationConfig struct {
	Iterations int   `mapstructure:"iterations" validate:"required,gt=0"`
	Workers    int   `mapstructure:"workers" validate:"required,gt=0"`
	Seed       int64 `mapstructure:"seed"`
}

// SelectionConfig represents race selection settings.
type SelectionConfig struct {
	MinScore float64 `mapstructure:"min_score" validate:"gte=0,lte=100"`
	Limit    int     `mapstructure:"limit" validate:"required,gt=0"`
}

// MonitorConfig represents live polling cadence.
type MonitorConfig struct {
	OddsIntervalMinutes    int `mapstructure:"odds_interval_minutes" validate:"required,gt=0"`
	WeatherIntervalMinutes int `mapstructure:"weather_interval_minutes" validate:"required,gt=0"`
	CacheTTLMinutes        int `mapstructure:"cache_ttl_minutes" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SecretsConfig controls the AWS Secrets Manager overlay.
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// CollectorTimeout returns the HTTP timeout as a duration.
func (c *Config) CollectorTimeout() time.Duration {
	return time.Duration(c.Collector.TimeoutSeconds) * time.Second
}

// CacheTTL returns the analysis cache lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Monitor.CacheTTLMinutes) * time.Minute
}
