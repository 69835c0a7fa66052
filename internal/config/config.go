// Package config loads relimport settings from .relimport.yaml, RELIMPORT_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultQueryCacheSize = 256
	DefaultLogLevel       = "info"
	DefaultOutputFormat   = FormatText
	DefaultWatchDebounce  = 500 * time.Millisecond
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Walker    WalkerConfig    `mapstructure:"walker"`
	Query     QueryConfig     `mapstructure:"query"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// WalkerConfig selects which files are indexed.
type WalkerConfig struct {
	ExcludeDirs  []string `mapstructure:"exclude_dirs"`
	Extensions   []string `mapstructure:"extensions"`
	SkipVendored bool     `mapstructure:"skip_vendored"`
}

// QueryConfig tunes related-file queries.
type QueryConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// WatchConfig controls the watch loop.
type WatchConfig struct {
	Debounce    time.Duration `mapstructure:"debounce"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Sentinel errors for invalid configuration values.
var (
	// ErrNoExtensions indicates an empty walker.extensions list.
	ErrNoExtensions = errors.New("walker.extensions must not be empty")
	// ErrInvalidExtension indicates an extension without a leading dot.
	ErrInvalidExtension = errors.New("walker.extensions entries must start with '.'")
	// ErrInvalidCacheSize indicates a negative query cache size.
	ErrInvalidCacheSize = errors.New("query.cache_size must be non-negative")
	// ErrInvalidLogLevel indicates an unparsable logging level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("output.format must be one of text, json, yaml")
	// ErrInvalidDebounce indicates a non-positive watch debounce.
	ErrInvalidDebounce = errors.New("watch.debounce must be positive")
	// ErrInvalidSampleRatio indicates a sample ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if len(c.Walker.Extensions) == 0 {
		return ErrNoExtensions
	}

	for _, ext := range c.Walker.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return ErrInvalidExtension
		}
	}

	if c.Query.CacheSize < 0 {
		return ErrInvalidCacheSize
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return ErrInvalidFormat
	}

	if c.Watch.Debounce <= 0 {
		return ErrInvalidDebounce
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo, ErrInvalidLogLevel
	}

	return level, nil
}
