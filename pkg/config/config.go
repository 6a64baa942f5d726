// Package config loads pathfinderd settings from YAML, .env files, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/api/middleware"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/tls"
	"github.com/dd0wney/cluso-pathfinder/pkg/validation"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Jobs   JobsConfig   `yaml:"jobs"`
	Events EventsConfig `yaml:"events"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	// RateLimit is requests per second per client IP. 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// TrustedProxies is a comma-separated list of IPs or CIDRs allowed to
	// set X-Forwarded-For.
	TrustedProxies string `yaml:"trusted_proxies"`

	TLSCert         string `yaml:"tls_cert"`
	TLSKey          string `yaml:"tls_key"`
	TLSClientCA     string `yaml:"tls_client_ca"`
	TLSAutoGenerate bool   `yaml:"tls_auto_generate"`
}

// TLS converts the server TLS settings. The result is disabled unless a
// certificate pair or auto-generation is configured.
func (s ServerConfig) TLS() tls.Config {
	cfg := tls.DefaultConfig()
	cfg.CertFile = s.TLSCert
	cfg.KeyFile = s.TLSKey
	cfg.ClientCAFile = s.TLSClientCA
	cfg.AutoGenerate = s.TLSAutoGenerate
	return cfg
}

type StoreConfig struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir"`
	CompressWAL bool   `yaml:"compress_wal"`
	SyncWrites  bool   `yaml:"sync_writes"`
	DatabaseURL string `yaml:"database_url"`
}

type JobsConfig struct {
	Workers          int           `yaml:"workers"`
	Backlog          int           `yaml:"backlog"`
	ProcessingDelay  time.Duration `yaml:"processing_delay"`
	Retention        time.Duration `yaml:"retention"`
	JanitorInterval  time.Duration `yaml:"janitor_interval"`
	UnknownAsPending bool          `yaml:"unknown_as_pending"`
	Store            string        `yaml:"store"`
	BadgerDir        string        `yaml:"badger_dir"`
}

type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			RateBurst:       20,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
		},
		Jobs: JobsConfig{
			Workers:         4,
			Backlog:         1024,
			ProcessingDelay: 5 * time.Second,
			Retention:       24 * time.Hour,
			JanitorInterval: time.Minute,
			Store:           BackendMemory,
		},
		Events: EventsConfig{
			Subject: "pathfinder.jobs",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	server := validation.NewConfigValidator("server").
		RangeInt("port", c.Server.Port, 0, 65535).
		MinDuration("read_timeout", c.Server.ReadTimeout, time.Millisecond).
		MinDuration("write_timeout", c.Server.WriteTimeout, time.Millisecond).
		MinDuration("shutdown_timeout", c.Server.ShutdownTimeout, 0).
		Custom("max_body_bytes", func() error {
			if c.Server.MaxBodyBytes <= 0 {
				return fmt.Errorf("value %d must be positive", c.Server.MaxBodyBytes)
			}
			return nil
		}).
		NonNegativeFloat("rate_limit", c.Server.RateLimit).
		When(c.Server.RateLimit > 0, func(cv *validation.ConfigValidator) {
			cv.Positive("rate_burst", c.Server.RateBurst)
		}).
		Custom("trusted_proxies", func() error {
			_, err := middleware.ParseTrustedProxies(c.Server.TrustedProxies)
			return err
		}).
		Custom("tls", c.Server.TLS().Validate)

	store := validation.NewConfigValidator("store").
		OneOf("backend", c.Store.Backend, []string{BackendMemory, BackendPostgres}).
		When(c.Store.Backend == BackendPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("database_url", c.Store.DatabaseURL)
		})

	jobs := validation.NewConfigValidator("jobs").
		Positive("workers", c.Jobs.Workers).
		Positive("backlog", c.Jobs.Backlog).
		MinDuration("processing_delay", c.Jobs.ProcessingDelay, 0).
		MinDuration("retention", c.Jobs.Retention, 0).
		When(c.Jobs.Retention > 0, func(cv *validation.ConfigValidator) {
			cv.MinDuration("janitor_interval", c.Jobs.JanitorInterval, 10*time.Millisecond)
		}).
		OneOf("store", c.Jobs.Store, []string{BackendMemory, BackendBadger}).
		When(c.Jobs.Store == BackendBadger, func(cv *validation.ConfigValidator) {
			cv.Required("badger_dir", c.Jobs.BadgerDir)
		})

	events := validation.NewConfigValidator("events").
		When(c.Events.NATSURL != "", func(cv *validation.ConfigValidator) {
			cv.Required("subject", c.Events.Subject)
		})

	log := validation.NewConfigValidator("log").
		OneOf("level", c.Log.Level, []string{"debug", "info", "warn", "error"})

	return errors.Join(
		server.Validate(),
		store.Validate(),
		jobs.Validate(),
		events.Validate(),
		log.Validate(),
	)
}
