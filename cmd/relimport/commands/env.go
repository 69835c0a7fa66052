// Package commands implements CLI command handlers for relimport.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/internal/config"
	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/relindex"
	"github.com/Sumatoshi-tech/relimport/pkg/report"
	"github.com/Sumatoshi-tech/relimport/pkg/version"
)

// ErrConflictingVerbosity is returned when --verbose and --quiet are both set.
var ErrConflictingVerbosity = errors.New("--verbose and --quiet are mutually exclusive")

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogJSON    bool
}

// outputFlags are the per-command rendering flags.
type outputFlags struct {
	format  string
	noColor bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "", "Output format: text, json, yaml (default from config)")
	cmd.Flags().BoolVar(&o.noColor, "no-color", false, "Disable colored text output")
}

// options merges the flags over the configured output section.
func (o *outputFlags) options(cfg *config.Config) report.Options {
	opts := report.Options{Format: cfg.Output.Format, NoColor: cfg.Output.NoColor || o.noColor}
	if o.format != "" {
		opts.Format = o.format
	}

	return opts
}

// session is the per-invocation state: loaded config and telemetry.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.IndexMetrics
}

func newSession(
	cmd *cobra.Command,
	globals *GlobalFlags,
	mode observability.AppMode,
	overrides ...func(*config.Config),
) (*session, error) {
	if globals.Verbose && globals.Quiet {
		return nil, ErrConflictingVerbosity
	}

	cfg, err := config.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	ver, _, _ := version.Resolve()
	obsCfg := cfg.Observability(mode, ver)

	switch {
	case globals.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case globals.Quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	if globals.LogJSON {
		obsCfg.LogJSON = true
	}

	providers, err := observability.InitWithWriter(obsCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewIndexMetrics(providers.Meter)
	if err != nil {
		shutdownErr := providers.Shutdown(context.Background())

		return nil, errors.Join(fmt.Errorf("init metrics: %w", err), shutdownErr)
	}

	return &session{cfg: cfg, providers: providers, metrics: metrics}, nil
}

func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func (s *session) builder(root string) *relindex.Builder {
	return relindex.NewBuilder(root,
		relindex.WithFilter(s.cfg.Filter()),
		relindex.WithLogger(s.providers.Logger),
		relindex.WithTracer(s.providers.Tracer),
		relindex.WithMetrics(s.metrics),
		relindex.WithQueryCacheSize(s.cfg.Query.CacheSize),
	)
}
