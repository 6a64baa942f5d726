package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "PATHFINDER_"

type binding struct {
	key   string
	usage string
	set   func(c *Config, v string) error
}

// bindings is shared by environment variables (PATHFINDER_<KEY>) and
// flags (-<key>).
var bindings = []binding{
	{"port", "HTTP listen port", intField(func(c *Config) *int { return &c.Server.Port })},
	{"read-timeout", "HTTP read timeout", durationField(func(c *Config) *time.Duration { return &c.Server.ReadTimeout })},
	{"write-timeout", "HTTP write timeout", durationField(func(c *Config) *time.Duration { return &c.Server.WriteTimeout })},
	{"idle-timeout", "HTTP idle timeout", durationField(func(c *Config) *time.Duration { return &c.Server.IdleTimeout })},
	{"shutdown-timeout", "graceful shutdown timeout", durationField(func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},
	{"max-body-bytes", "maximum request body size", int64Field(func(c *Config) *int64 { return &c.Server.MaxBodyBytes })},
	{"rate-limit", "requests per second per client IP (0 disables)", floatField(func(c *Config) *float64 { return &c.Server.RateLimit })},
	{"rate-burst", "rate limiter burst", intField(func(c *Config) *int { return &c.Server.RateBurst })},
	{"trusted-proxies", "comma-separated proxy IPs/CIDRs trusted for X-Forwarded-For", stringField(func(c *Config) *string { return &c.Server.TrustedProxies })},
	{"tls-cert", "PEM certificate for HTTPS", stringField(func(c *Config) *string { return &c.Server.TLSCert })},
	{"tls-key", "PEM private key for HTTPS", stringField(func(c *Config) *string { return &c.Server.TLSKey })},
	{"tls-client-ca", "PEM CA bundle; clients must present a certificate it signed", stringField(func(c *Config) *string { return &c.Server.TLSClientCA })},
	{"tls-auto-generate", "serve HTTPS with a generated self-signed certificate", boolField(func(c *Config) *bool { return &c.Server.TLSAutoGenerate })},

	{"store", "graph store backend (memory|postgres)", stringField(func(c *Config) *string { return &c.Store.Backend })},
	{"data-dir", "WAL directory for the memory store (empty disables durability)", stringField(func(c *Config) *string { return &c.Store.DataDir })},
	{"compress-wal", "snappy-compress WAL entries", boolField(func(c *Config) *bool { return &c.Store.CompressWAL })},
	{"sync-writes", "fsync after every WAL append", boolField(func(c *Config) *bool { return &c.Store.SyncWrites })},
	{"database-url", "PostgreSQL connection string", stringField(func(c *Config) *string { return &c.Store.DatabaseURL })},

	{"workers", "job worker count", intField(func(c *Config) *int { return &c.Jobs.Workers })},
	{"backlog", "maximum queued jobs", intField(func(c *Config) *int { return &c.Jobs.Backlog })},
	{"processing-delay", "delay before each job runs", durationField(func(c *Config) *time.Duration { return &c.Jobs.ProcessingDelay })},
	{"retention", "how long finished jobs are kept (0 keeps forever)", durationField(func(c *Config) *time.Duration { return &c.Jobs.Retention })},
	{"janitor-interval", "how often expired jobs are swept", durationField(func(c *Config) *time.Duration { return &c.Jobs.JanitorInterval })},
	{"unknown-as-pending", "report unknown job handles as PENDING", boolField(func(c *Config) *bool { return &c.Jobs.UnknownAsPending })},
	{"job-store", "job store backend (memory|badger)", stringField(func(c *Config) *string { return &c.Jobs.Store })},
	{"badger-dir", "badger job store directory", stringField(func(c *Config) *string { return &c.Jobs.BadgerDir })},

	{"nats-url", "NATS server for job events (empty disables)", stringField(func(c *Config) *string { return &c.Events.NATSURL })},
	{"nats-subject", "NATS subject prefix for job events", stringField(func(c *Config) *string { return &c.Events.Subject })},

	{"log-level", "log level (debug|info|warn|error)", stringField(func(c *Config) *string { return &c.Log.Level })},
}

func envName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func stringField(get func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*get(c) = v
		return nil
	}
}

func intField(get func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*get(c) = n
		return nil
	}
}

func int64Field(get func(*Config) *int64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*get(c) = n
		return nil
	}
}

func floatField(get func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		*get(c) = f
		return nil
	}
}

func boolField(get func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*get(c) = b
		return nil
	}
}

func durationField(get func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q", v)
		}
		*get(c) = d
		return nil
	}
}
