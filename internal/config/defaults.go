package config

import "time"

// Default configuration values.
const (
	DefaultScanWorkers      = 0
	DefaultScanFileTimeout  = 30 * time.Second
	DefaultScanMaxFileSize  = "2MiB"
	DefaultScanSolutionOnly = false

	DefaultHistoryStride        = 20
	DefaultHistoryCommitTimeout = 10 * time.Minute
	DefaultHistoryIncludeHead   = false
	DefaultHistoryFirstParent   = false
	DefaultHistoryResume        = true

	DefaultBatchParallel = 2

	DefaultOutputDir      = "snapshots"
	DefaultOutputFormat   = "yaml"
	DefaultOutputCompress = false

	DefaultRulesSemantics = true

	DefaultLoggingLevel = "info"

	DefaultTelemetrySampleRatio = 1.0
)

// DefaultScanExclude lists generated-code globs skipped unless overridden.
func DefaultScanExclude() []string {
	return []string{"*.g.cs", "*.Designer.cs", "*.generated.cs", "AssemblyInfo.cs"}
}
