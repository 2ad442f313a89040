package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/modernity/internal/config"
	"github.com/Sumatoshi-tech/modernity/internal/report"
	"github.com/Sumatoshi-tech/modernity/internal/scanner"
	"github.com/Sumatoshi-tech/modernity/internal/workspace"
	"github.com/Sumatoshi-tech/modernity/pkg/features"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax/csharp"
	"github.com/Sumatoshi-tech/modernity/pkg/version"
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"workers":        "scan.workers",
	"file-timeout":   "scan.file_timeout",
	"max-file-size":  "scan.max_file_size",
	"exclude":        "scan.exclude",
	"solution-only":  "scan.solution_only",
	"allow-partial":  "scan.allow_partial",
	"stride":         "history.stride",
	"commit-timeout": "history.commit_timeout",
	"include-head":   "history.include_head",
	"first-parent":   "history.first_parent",
	"since":          "history.since",
	"limit":          "history.limit",
	"resume":         "history.resume",
	"parallel":       "batch.parallel",
	"output":         "output.dir",
	"format":         "output.format",
	"compress":       "output.compress",
	"disable":        "rules.disabled",
	"semantics":      "rules.semantics",
	"log-json":       "logging.json",
	"metrics-addr":   "telemetry.metrics_addr",
	"otlp-endpoint":  "telemetry.otlp_endpoint",
}

const metricsReadHeaderTimeout = 5 * time.Second

// app is the per-invocation wiring shared by the commands.
type app struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.ScanMetrics
	logger    *slog.Logger
	color     bool
	server    *http.Server
}

func newApp(cmd *cobra.Command, g *GlobalFlags, mode observability.AppMode) (*app, error) {
	v := config.New(g.ConfigPath)

	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}

	switch {
	case g.Verbose:
		level = slog.LevelDebug
	case g.Quiet:
		level = slog.LevelWarn
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.Prometheus = cfg.Telemetry.MetricsAddr != ""

	providers, err := observability.InitWithWriter(obsCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewScanMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	a := &app{
		cfg:       cfg,
		providers: providers,
		metrics:   metrics,
		logger:    providers.Logger,
		color:     !g.NoColor && !noColor(),
	}

	if providers.MetricsHandler != nil {
		if err := a.serveMetrics(cfg.Telemetry.MetricsAddr); err != nil {
			return nil, errors.Join(err, providers.Shutdown(context.Background()))
		}
	}

	return a, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}

	return nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.providers.MetricsHandler)

	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}

	go func() {
		if serveErr := a.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	a.logger.Info("serving metrics", "addr", ln.Addr().String())

	return nil
}

func (a *app) close() {
	ctx := context.Background()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	if err := a.providers.Shutdown(ctx); err != nil {
		a.logger.Warn("observability shutdown failed", "error", err)
	}
}

func (a *app) reportOptions() report.Options {
	return report.Options{Color: a.color}
}

func (a *app) table() (*features.Table, error) {
	table, err := features.DefaultTable(features.WithDisabled(a.cfg.Rules.Disabled...))
	if err != nil {
		return nil, fmt.Errorf("rule table: %w", err)
	}

	return table, nil
}

func (a *app) scanner(table *features.Table) (*scanner.Scanner, error) {
	maxSize, err := a.cfg.Scan.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	return scanner.New(csharp.NewParser(), table, scanner.Config{
		Workers:      a.cfg.Scan.Workers,
		FileTimeout:  a.cfg.Scan.FileTimeout,
		MaxFileSize:  maxSize,
		Semantics:    a.cfg.Rules.Semantics,
		AllowPartial: a.cfg.Scan.AllowPartial,
	},
		scanner.WithLogger(a.logger),
		scanner.WithTracer(a.providers.Tracer),
		scanner.WithMetrics(a.metrics),
		scanner.WithEventSink(features.LogSink(a.logger)),
	), nil
}

func (a *app) resolver() *workspace.Resolver {
	return &workspace.Resolver{
		Exclude:      a.cfg.Scan.Exclude,
		SolutionOnly: a.cfg.Scan.SolutionOnly,
	}
}

func (a *app) store(dir string) (*snapshot.Store, error) {
	format, err := snapshot.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.NewStore(dir, format, a.cfg.Output.Compress)
	if err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	return store, nil
}

// noColor reports whether the terminal or NO_COLOR rules colors out.
func noColor() bool {
	return color.NoColor
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
