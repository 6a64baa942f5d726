package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadOptions names the sources Load reads. Empty paths are skipped.
type LoadOptions struct {
	File    string
	EnvFile string
	// Lookup reads the process environment. Defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
	Flags  *flag.FlagSet
}

// Load builds a Config from defaults, the YAML file, the .env file, the
// environment and explicitly set flags, then validates it. Real environment
// variables win over .env entries.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.loadYAML(opts.File); err != nil {
			return nil, err
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", opts.EnvFile, err)
		}
		lookup = layered(lookup, dotenv)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if opts.Flags != nil {
		if err := cfg.ApplyFlags(opts.Flags); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func layered(primary func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, b := range bindings {
		name := envName(b.key)
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RegisterFlags adds one string flag per setting to flags. Only flags the
// user actually sets override other sources.
func RegisterFlags(flags *flag.FlagSet) {
	for _, b := range bindings {
		flags.String(b.key, "", fmt.Sprintf("%s (env %s)", b.usage, envName(b.key)))
	}
}

// ApplyFlags copies explicitly set flags registered by RegisterFlags into c.
func (c *Config) ApplyFlags(flags *flag.FlagSet) error {
	byKey := make(map[string]binding, len(bindings))
	for _, b := range bindings {
		byKey[b.key] = b
	}

	var errs []error
	flags.Visit(func(f *flag.Flag) {
		b, ok := byKey[f.Name]
		if !ok {
			return
		}
		if err := b.set(c, f.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("-%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}
