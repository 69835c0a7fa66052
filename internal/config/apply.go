package config

import (
	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/walker"
)

// Filter returns the walk filter described by the walker section.
func (c *Config) Filter() walker.Filter {
	return walker.Filter{
		Dirs:         append([]string(nil), c.Walker.ExcludeDirs...),
		DirsExclude:  true,
		Extensions:   append([]string(nil), c.Walker.Extensions...),
		SkipVendored: c.Walker.SkipVendored,
	}
}

// Observability returns the telemetry settings for the given mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()

	obs.Mode = mode
	obs.ServiceVersion = version
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.LogJSON = c.Logging.JSON
	obs.Prometheus = mode == observability.ModeWatch && c.Watch.MetricsAddr != ""

	if level, err := c.LogLevel(); err == nil {
		obs.LogLevel = level
	}

	return obs
}
