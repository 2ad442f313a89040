package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".modernity"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for modernity settings.
const envPrefix = "MODERNITY"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := New(configPath)

	return Load(viperCfg)
}

// New returns a viper instance with defaults, env binding and the config
// file location set, ready for flag binding before Load.
func New(configPath string) *viper.Viper {
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

	return viperCfg
}

// Load reads the config file, if any, and unmarshals and validates the result.
func Load(viperCfg *viper.Viper) (*Config, error) {
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

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("scan.workers", DefaultScanWorkers)
	viperCfg.SetDefault("scan.file_timeout", DefaultScanFileTimeout)
	viperCfg.SetDefault("scan.max_file_size", DefaultScanMaxFileSize)
	viperCfg.SetDefault("scan.exclude", DefaultScanExclude())
	viperCfg.SetDefault("scan.solution_only", DefaultScanSolutionOnly)
	viperCfg.SetDefault("scan.allow_partial", false)

	viperCfg.SetDefault("history.stride", DefaultHistoryStride)
	viperCfg.SetDefault("history.commit_timeout", DefaultHistoryCommitTimeout)
	viperCfg.SetDefault("history.include_head", DefaultHistoryIncludeHead)
	viperCfg.SetDefault("history.first_parent", DefaultHistoryFirstParent)
	viperCfg.SetDefault("history.since", "")
	viperCfg.SetDefault("history.limit", 0)
	viperCfg.SetDefault("history.resume", DefaultHistoryResume)

	viperCfg.SetDefault("batch.parallel", DefaultBatchParallel)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.compress", DefaultOutputCompress)

	viperCfg.SetDefault("rules.disabled", []string{})
	viperCfg.SetDefault("rules.semantics", DefaultRulesSemantics)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}
