package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/modernity/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.NotNil(t, ctx)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_PrometheusServesScanMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })
	require.NotNil(t, providers.MetricsHandler)

	sm, err := observability.NewScanMetrics(providers.Meter)
	require.NoError(t, err)

	sm.RecordScan(context.Background(), observability.ScanStats{
		Files:    3,
		Failures: map[string]int{"parse": 1},
		Matches:  map[string]int{"9.0": 2, "7.1": 0},
		Duration: 120 * time.Millisecond,
	})
	sm.SnapshotWritten(context.Background(), "demo")

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "modernity_scan_files_total")
	assert.Contains(t, body, `version="9.0"`)
	assert.NotContains(t, body, `version="7.1"`)
}

func TestScanMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var sm *observability.ScanMetrics

	assert.NotPanics(t, func() {
		sm.RecordScan(context.Background(), observability.ScanStats{Files: 1})
		sm.SnapshotWritten(context.Background(), "demo")
		sm.CommitSkipped(context.Background(), "demo", "checkout")
	})
}

func TestInitWithWriter_JSONLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Mode = observability.ModeBatch

	providers, err := observability.InitWithWriter(cfg, &buf)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	observability.ForRepository(providers.Logger, "widgets").Info("sampled")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "modernity", record["service"])
	assert.Equal(t, "batch", record["mode"])
	assert.Equal(t, "widgets", record["repo"])
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "svc", "test", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	logger.WithGroup("g").InfoContext(trace.ContextWithSpanContext(context.Background(), sc), "hello", "k", "v")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "svc", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
	assert.NotEmpty(t, record["g"])
}

func TestParseHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, observability.ParseOTLPHeaders("a=1, b=2,bad"))
	assert.Nil(t, observability.ParseOTLPHeaders(""))

	level, err := observability.ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("loud")
	require.Error(t, err)
}
