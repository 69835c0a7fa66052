package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/relimport/pkg/walker"
)

// configName is the config file name without extension.
const configName = ".relimport"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix.
const envPrefix = "RELIMPORT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Walker: WalkerConfig{
			ExcludeDirs: append([]string(nil), walker.DefaultExcludeDirs...),
			Extensions:  append([]string(nil), walker.DefaultExtensions...),
		},
		Query:   QueryConfig{CacheSize: DefaultQueryCacheSize},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		Output:  OutputConfig{Format: DefaultOutputFormat},
		Watch:   WatchConfig{Debounce: DefaultWatchDebounce},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	def := Default()

	viperCfg.SetDefault("walker.exclude_dirs", def.Walker.ExcludeDirs)
	viperCfg.SetDefault("walker.extensions", def.Walker.Extensions)
	viperCfg.SetDefault("walker.skip_vendored", false)

	viperCfg.SetDefault("query.cache_size", def.Query.CacheSize)

	viperCfg.SetDefault("logging.level", def.Logging.Level)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("output.format", def.Output.Format)
	viperCfg.SetDefault("output.no_color", false)

	viperCfg.SetDefault("watch.debounce", def.Watch.Debounce)
	viperCfg.SetDefault("watch.metrics_addr", "")

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}
