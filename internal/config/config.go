package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Config is the top-level configuration struct for modernity.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Scan      ScanConfig      `mapstructure:"scan"`
	History   HistoryConfig   `mapstructure:"history"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Output    OutputConfig    `mapstructure:"output"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ScanConfig bounds the classification of one working tree.
type ScanConfig struct {
	Workers     int           `mapstructure:"workers"`
	FileTimeout time.Duration `mapstructure:"file_timeout"`
	// MaxFileSize uses humanize format ("1MiB", "512KB"); "0" disables it.
	MaxFileSize  string   `mapstructure:"max_file_size"`
	Exclude      []string `mapstructure:"exclude"`
	SolutionOnly bool     `mapstructure:"solution_only"`
	AllowPartial bool     `mapstructure:"allow_partial"`
}

// HistoryConfig selects and bounds the sampled commits.
type HistoryConfig struct {
	Stride        int           `mapstructure:"stride"`
	CommitTimeout time.Duration `mapstructure:"commit_timeout"`
	IncludeHead   bool          `mapstructure:"include_head"`
	FirstParent   bool          `mapstructure:"first_parent"`
	Since         string        `mapstructure:"since"`
	Limit         int           `mapstructure:"limit"`
	Resume        bool          `mapstructure:"resume"`
}

// BatchConfig holds settings of the folder-of-repositories mode.
type BatchConfig struct {
	Parallel int `mapstructure:"parallel"`
}

// OutputConfig holds snapshot persistence settings.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Format   string `mapstructure:"format"`
	Compress bool   `mapstructure:"compress"`
}

// RulesConfig adjusts the rule table.
type RulesConfig struct {
	Disabled  []string `mapstructure:"disabled"`
	Semantics bool     `mapstructure:"semantics"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry and Prometheus settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("scan.workers must be non-negative")
	// ErrInvalidFileTimeout indicates a negative per-file timeout.
	ErrInvalidFileTimeout = errors.New("scan.file_timeout must be non-negative")
	// ErrInvalidMaxFileSize indicates an unparsable size string.
	ErrInvalidMaxFileSize = errors.New("scan.max_file_size must be a size such as 1MiB")
	// ErrInvalidStride indicates the stride is below one.
	ErrInvalidStride = errors.New("history.stride must be at least 1")
	// ErrInvalidCommitTimeout indicates a negative per-commit timeout.
	ErrInvalidCommitTimeout = errors.New("history.commit_timeout must be non-negative")
	// ErrInvalidLimit indicates a negative commit limit.
	ErrInvalidLimit = errors.New("history.limit must be non-negative")
	// ErrInvalidParallel indicates a negative batch parallelism.
	ErrInvalidParallel = errors.New("batch.parallel must be non-negative")
	// ErrInvalidFormat indicates an unsupported snapshot format.
	ErrInvalidFormat = errors.New("output.format must be yaml or json")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidSampleRatio indicates a trace sample ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	scanErr := c.validateScan()
	if scanErr != nil {
		return scanErr
	}

	historyErr := c.validateHistory()
	if historyErr != nil {
		return historyErr
	}

	return c.validateOutput()
}

func (c *Config) validateScan() error {
	if c.Scan.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Scan.FileTimeout < 0 {
		return ErrInvalidFileTimeout
	}

	if _, err := c.Scan.MaxFileSizeBytes(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Stride < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidStride, c.History.Stride)
	}

	if c.History.CommitTimeout < 0 {
		return ErrInvalidCommitTimeout
	}

	if c.History.Limit < 0 {
		return ErrInvalidLimit
	}

	if c.Batch.Parallel < 0 {
		return ErrInvalidParallel
	}

	return nil
}

func (c *Config) validateOutput() error {
	switch strings.ToLower(c.Output.Format) {
	case "", "yaml", "yml", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// MaxFileSizeBytes parses MaxFileSize; an empty string means no limit.
func (s ScanConfig) MaxFileSizeBytes() (int64, error) {
	trimmed := strings.TrimSpace(s.MaxFileSize)
	if trimmed == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxFileSize, s.MaxFileSize)
	}

	return int64(size), nil
}

// SlogLevel maps Level to a slog level; empty means info.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}
}
