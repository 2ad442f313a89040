package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal       = "modernity.scan.files.total"
	metricFileFailures     = "modernity.scan.file_failures.total"
	metricMatchesTotal     = "modernity.scan.matches.total"
	metricScanDuration     = "modernity.scan.duration.seconds"
	metricSnapshotsWritten = "modernity.history.snapshots.total"
	metricCommitsSkipped   = "modernity.history.commits_skipped.total"

	attrKind    = "kind"
	attrVersion = "version"
	attrRepo    = "repository"
)

// durationBucketBoundaries covers 10ms to 600s, from single files to whole
// working trees of large repositories.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// ScanMetrics holds the OTel instruments for scanning and history sampling.
// All methods are safe on a nil receiver.
type ScanMetrics struct {
	files        metric.Int64Counter
	fileFailures metric.Int64Counter
	matches      metric.Int64Counter
	scanDuration metric.Float64Histogram
	snapshots    metric.Int64Counter
	skipped      metric.Int64Counter
}

// NewScanMetrics creates the instruments from the given meter.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &ScanMetrics{
		files:        b.counter(metricFilesTotal, "Source files classified", "{file}"),
		fileFailures: b.counter(metricFileFailures, "Source files excluded from counts, by failure kind", "{file}"),
		matches:      b.counter(metricMatchesTotal, "Feature matches by language version", "{match}"),
		scanDuration: b.histogram(metricScanDuration, "Working tree scan duration in seconds", "s", durationBucketBoundaries...),
		snapshots:    b.counter(metricSnapshotsWritten, "Snapshots persisted", "{snapshot}"),
		skipped:      b.counter(metricCommitsSkipped, "Sampled commits skipped after a failure", "{commit}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// ScanStats summarizes one working tree scan, decoupled from scanner types.
type ScanStats struct {
	Files    int
	Failures map[string]int
	Matches  map[string]int
	Duration time.Duration
}

// RecordScan records a completed scan.
func (sm *ScanMetrics) RecordScan(ctx context.Context, stats ScanStats) {
	if sm == nil {
		return
	}

	sm.files.Add(ctx, int64(stats.Files))
	sm.scanDuration.Record(ctx, stats.Duration.Seconds())

	for kind, n := range stats.Failures {
		sm.fileFailures.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrKind, kind)))
	}

	for version, n := range stats.Matches {
		if n == 0 {
			continue
		}

		sm.matches.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrVersion, version)))
	}
}

// SnapshotWritten counts one persisted snapshot.
func (sm *ScanMetrics) SnapshotWritten(ctx context.Context, repo string) {
	if sm == nil {
		return
	}

	sm.snapshots.Add(ctx, 1, metric.WithAttributes(attribute.String(attrRepo, repo)))
}

// CommitSkipped counts one skipped commit with the failing stage.
func (sm *ScanMetrics) CommitSkipped(ctx context.Context, repo, stage string) {
	if sm == nil {
		return
	}

	sm.skipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrRepo, repo),
		attribute.String(attrKind, stage),
	))
}

// metricBuilder accumulates OTel instrument creation errors,
// enabling batch construction with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

// setErr records the first instrument creation error.
func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
