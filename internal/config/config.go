// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sigil-dev/horizon/internal/store"
	"github.com/sigil-dev/horizon/internal/telemetry"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. HORIZON_NETWORKING_LISTEN.
const EnvPrefix = "HORIZON"

// Config is the top-level Horizon configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Context    ContextConfig    `mapstructure:"context"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// NetworkingConfig controls how the HTTP server listens.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	Backend      string      `mapstructure:"backend"`
	DataDir      string      `mapstructure:"data_dir"`
	MaxOpenConns int         `mapstructure:"max_open_conns"`
	Retry        RetryConfig `mapstructure:"retry"`
}

// RetryConfig bounds retry-with-backoff on transient storage errors.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// ContextConfig tunes context assembly.
type ContextConfig struct {
	MaxBlocks      int           `mapstructure:"max_blocks"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	SharedSubjects []string      `mapstructure:"shared_subjects"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:18790")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", "~/.horizon")
	v.SetDefault("storage.max_open_conns", 8)
	v.SetDefault("storage.retry.max_attempts", 4)
	v.SetDefault("storage.retry.initial_interval", 25*time.Millisecond)
	v.SetDefault("storage.retry.max_interval", 500*time.Millisecond)
	v.SetDefault("context.max_blocks", 8)
	v.SetDefault("context.fetch_timeout", 2*time.Second)
	v.SetDefault("context.shared_subjects", []string{"global", "default"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "horizon")
}

// SetupEnv enables HORIZON_ environment overrides on v.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, hzerr.Errorf(hzerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, hzerr.Errorf(hzerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, hzerr.Errorf(hzerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// DataPath is the data directory with a leading ~ expanded.
func (c *Config) DataPath() (string, error) {
	dir := c.Storage.DataDir
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", hzerr.Errorf(hzerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~")), nil
}

// StoreConfig converts the storage section for store.Open.
func (c *Config) StoreConfig() *store.StorageConfig {
	return &store.StorageConfig{
		Backend:      c.Storage.Backend,
		MaxOpenConns: c.Storage.MaxOpenConns,
		Retry: store.RetryConfig{
			MaxAttempts:     c.Storage.Retry.MaxAttempts,
			InitialInterval: c.Storage.Retry.InitialInterval,
			MaxInterval:     c.Storage.Retry.MaxInterval,
		},
	}
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateContext()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateTelemetry()...)

	return errs
}

func invalid(format string, args ...any) error {
	return hzerr.Errorf(hzerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("networking.listen must not be empty"))
	} else if _, portStr, err := net.SplitHostPort(c.Networking.Listen); err != nil {
		errs = append(errs, invalid("networking.listen must be a valid host:port address, got %q: %w", c.Networking.Listen, err))
	} else if port, err := strconv.Atoi(portStr); err != nil {
		errs = append(errs, invalid("networking.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, invalid("networking.listen port must be between 1 and 65535, got %d", port))
	}

	for i, origin := range c.Networking.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = append(errs, invalid("networking.cors_origins[%d] must not be empty", i))
		}
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, invalid("storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, invalid("storage.data_dir must not be empty"))
	}
	if c.Storage.MaxOpenConns <= 0 {
		errs = append(errs, invalid("storage.max_open_conns must be greater than 0, got %d", c.Storage.MaxOpenConns))
	}

	r := c.Storage.Retry
	if r.MaxAttempts <= 0 {
		errs = append(errs, invalid("storage.retry.max_attempts must be greater than 0, got %d", r.MaxAttempts))
	}
	if r.InitialInterval <= 0 {
		errs = append(errs, invalid("storage.retry.initial_interval must be positive, got %s", r.InitialInterval))
	}
	if r.MaxInterval < r.InitialInterval {
		errs = append(errs, invalid("storage.retry.max_interval (%s) must not be below initial_interval (%s)", r.MaxInterval, r.InitialInterval))
	}

	return errs
}

func (c *Config) validateContext() []error {
	var errs []error

	// Out-of-range budgets are clamped by the engine; only nonsense is rejected.
	if c.Context.MaxBlocks < 0 {
		errs = append(errs, invalid("context.max_blocks must not be negative, got %d", c.Context.MaxBlocks))
	}
	if c.Context.FetchTimeout <= 0 {
		errs = append(errs, invalid("context.fetch_timeout must be positive, got %s", c.Context.FetchTimeout))
	}
	for i, s := range c.Context.SharedSubjects {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, invalid("context.shared_subjects[%d] must not be empty", i))
		}
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	if _, err := telemetry.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, invalid("logging.level: %w", err))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, invalid("logging.format must be one of [text, json], got %q", c.Logging.Format))
	}

	return errs
}

func (c *Config) validateTelemetry() []error {
	var errs []error

	if ep := c.Telemetry.OTLPEndpoint; ep != "" {
		u, err := url.Parse(ep)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, invalid("telemetry.otlp_endpoint must be an http(s) URL, got %q", ep))
		}
	}
	if c.Telemetry.ServiceName == "" {
		errs = append(errs, invalid("telemetry.service_name must not be empty"))
	}

	return errs
}
