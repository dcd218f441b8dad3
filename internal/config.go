package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Storage drivers.
const (
	DriverFS     = "fs"
	DriverSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if c.Vault.Driver == DriverSQLite {
		if err := c.SQLite.Validate(); err != nil {
			return err
		}
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	return c.RateLimit.Validate()
}

// RateLimitConfig configures the API token bucket. Zero requests per second
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// VaultConfig describes where notes live and how they are read.
type VaultConfig struct {
	Path            string `yaml:"path"`
	Driver          string `yaml:"driver"`
	Watch           bool   `yaml:"watch"`
	ReadConcurrency int    `yaml:"read_concurrency"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(DriverFS, DriverSQLite)),
		validation.Field(&c.Path, validation.When(c.Driver == DriverFS, validation.Required)),
		validation.Field(&c.ReadConcurrency, validation.Min(0), validation.Max(256)),
	)
}

// SQLiteConfig holds SQLite database configuration for the sqlite driver.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EventsConfig configures the SSE broker.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
				RateLimit: RateLimitConfig{
					RequestsPerSecond: 50,
					Burst:             100,
				},
			},
		},
		Vault: VaultConfig{
			Path:            "./vault",
			Driver:          DriverFS,
			Watch:           true,
			ReadConcurrency: 8,
		},
		SQLite: SQLiteConfig{
			Path: "./vault.db",
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
