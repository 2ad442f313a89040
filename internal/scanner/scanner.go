// Package scanner classifies a set of source files in parallel and folds the
// per-file feature counts into one accumulator.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/modernity/pkg/accum"
	"github.com/Sumatoshi-tech/modernity/pkg/features"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
	"github.com/Sumatoshi-tech/modernity/pkg/semantic"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
	"github.com/Sumatoshi-tech/modernity/pkg/textutil"
)

// FailureKind classifies why a file was excluded or only partly counted.
type FailureKind string

// Failure kinds.
const (
	FailureParse    FailureKind = "parse"
	FailureIO       FailureKind = "io"
	FailureTimeout  FailureKind = "timeout"
	FailureTooLarge FailureKind = "too_large"
	FailurePartial  FailureKind = "partial"
	FailureBinary   FailureKind = "binary"
)

// ErrTooLarge is wrapped by failures of files above the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// FileFailure names one file that did not contribute fully to the counts.
type FileFailure struct {
	Path string
	Kind FailureKind
	Err  error
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Path, f.Kind, f.Err)
}

// Result is the outcome of one scan.
type Result struct {
	// Counts merges every file that was classified.
	Counts accum.Accumulator
	// Files is the number of files classified, partial ones included.
	Files int
	// Failures lists files excluded from Counts, sorted by path.
	Failures []FileFailure
	// Partial lists files counted with some subtrees skipped, sorted by path.
	Partial []FileFailure
}

// Records lists the excluded files followed by the partial ones as snapshot
// failure records, with slash-separated paths relative to root.
func (r Result) Records(root string) []snapshot.Failure {
	out := make([]snapshot.Failure, 0, len(r.Failures)+len(r.Partial))

	for _, group := range [][]FileFailure{r.Failures, r.Partial} {
		for _, f := range group {
			rel, err := filepath.Rel(root, f.Path)
			if err != nil {
				rel = f.Path
			}

			detail := ""
			if f.Err != nil {
				detail = f.Err.Error()
			}

			out = append(out, snapshot.Failure{Path: filepath.ToSlash(rel), Kind: string(f.Kind), Detail: detail})
		}
	}

	return out
}

// Config bounds a scan.
type Config struct {
	// Workers is the pool size; zero means GOMAXPROCS.
	Workers int
	// FileTimeout bounds parsing and walking one file; zero disables it.
	FileTimeout time.Duration
	// MaxFileSize skips larger files; zero disables the limit.
	MaxFileSize int64
	// Semantics enables the per-file semantic model.
	Semantics bool
	// AllowPartial counts files with syntax errors, skipping the broken
	// subtrees, instead of excluding them.
	AllowPartial bool
}

// Workspace resolves a directory to the source files to scan.
type Workspace interface {
	Resolve(ctx context.Context, root string) ([]string, error)
}

// Scanner classifies files with a fixed rule table.
type Scanner struct {
	parser  syntax.Parser
	table   *features.Table
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.ScanMetrics
	sink    features.EventSink
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithTracer sets the tracer used for scan and file spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scanner) { s.tracer = t }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.ScanMetrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithEventSink forwards classification events. The sink is called from
// several workers at once and must be safe for concurrent use.
func WithEventSink(sink features.EventSink) Option {
	return func(s *Scanner) { s.sink = sink }
}

// New creates a Scanner.
func New(parser syntax.Parser, table *features.Table, cfg Config, opts ...Option) *Scanner {
	s := &Scanner{
		parser: parser,
		table:  table,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer("scanner"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.Workers <= 0 {
		s.cfg.Workers = runtime.GOMAXPROCS(0)
	}

	return s
}

// partial is one worker's private share of a scan.
type partial struct {
	counts   accum.Accumulator
	files    int
	failures []FileFailure
	partial  []FileFailure
}

// Scan classifies files. Per-file failures never fail the scan; an error is
// returned only when ctx is cancelled, together with the counts so far.
func (s *Scanner) Scan(ctx context.Context, files []string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "scanner.scan", trace.WithAttributes(
		attribute.Int("files", len(files)),
		attribute.Int("workers", s.cfg.Workers),
	))
	defer span.End()

	start := time.Now()
	jobs := make(chan string)
	parts := make([]partial, s.cfg.Workers)

	var wg sync.WaitGroup

	for w := range s.cfg.Workers {
		wg.Add(1)

		go func(p *partial) {
			defer wg.Done()

			for path := range jobs {
				s.scanFile(ctx, path, p)
			}
		}(&parts[w])
	}

feed:
	for _, path := range files {
		select {
		case jobs <- path:
		case <-ctx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()

	res := Result{}

	for _, p := range parts {
		res.Counts.MergeInto(p.counts)
		res.Files += p.files
		res.Failures = append(res.Failures, p.failures...)
		res.Partial = append(res.Partial, p.partial...)
	}

	byPath := func(a, b FileFailure) int { return strings.Compare(a.Path, b.Path) }
	slices.SortFunc(res.Failures, byPath)
	slices.SortFunc(res.Partial, byPath)

	s.metrics.RecordScan(ctx, observability.ScanStats{
		Files:    res.Files,
		Failures: failureKinds(res.Failures),
		Matches:  res.Counts.AsMap(),
		Duration: time.Since(start),
	})

	span.SetAttributes(attribute.Int("failures", len(res.Failures)), attribute.Int("matches", res.Counts.Total()))

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")

		return res, fmt.Errorf("scan: %w", err)
	}

	return res, nil
}

// ScanDir resolves root through ws and scans the result.
func (s *Scanner) ScanDir(ctx context.Context, ws Workspace, root string) (Result, error) {
	files, err := ws.Resolve(ctx, root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", root, err)
	}

	return s.Scan(ctx, files)
}

func (s *Scanner) scanFile(ctx context.Context, path string, p *partial) {
	if ctx.Err() != nil {
		return
	}

	ctx, span := s.tracer.Start(ctx, "scanner.file", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	res, err := s.classify(ctx, path)
	if err != nil {
		var failure FileFailure
		if !errors.As(err, &failure) {
			failure = FileFailure{Path: path, Kind: FailureIO, Err: err}
		}

		// A cancelled scan is not a property of the file.
		if ctx.Err() != nil && failure.Kind == FailureTimeout && errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		span.SetStatus(codes.Error, string(failure.Kind))
		s.logger.WarnContext(ctx, "file excluded", "path", path, "kind", string(failure.Kind), "error", failure.Err)
		p.failures = append(p.failures, failure)

		return
	}

	p.counts.MergeInto(res.Counts)
	p.files++

	if len(res.Partial) > 0 {
		reasons := make([]string, 0, len(res.Partial))
		for _, pf := range res.Partial {
			reasons = append(reasons, fmt.Sprintf("%s@%d: %s", pf.Node.Kind, pf.Node.Start, pf.Reason))
		}

		p.partial = append(p.partial, FileFailure{
			Path: path,
			Kind: FailurePartial,
			Err:  errors.New(strings.Join(reasons, "; ")),
		})
	}
}

func (s *Scanner) classify(ctx context.Context, path string) (features.Result, error) {
	src, err := s.read(path)
	if err != nil {
		return features.Result{}, err
	}

	if s.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.cfg.FileTimeout)
		defer cancel()
	}

	tree, err := s.parser.Parse(ctx, path, src)
	if err != nil {
		return features.Result{}, s.contextFailure(ctx, path, FailureParse, err)
	}

	if tree.HasErrors && !s.cfg.AllowPartial {
		return features.Result{}, FileFailure{Path: path, Kind: FailureParse, Err: fmt.Errorf("%w: syntax errors", syntax.ErrParse)}
	}

	var model semantic.Model

	if s.cfg.Semantics {
		model, err = semantic.Resolve(tree, semantic.Options{})
		if err != nil {
			s.logger.DebugContext(ctx, "semantic model unavailable", "path", path, "error", err)

			model = nil
		}
	}

	res, err := features.NewWalker(s.table, s.sink).Walk(ctx, tree, model)
	if err != nil {
		return features.Result{}, s.contextFailure(ctx, path, FailureParse, err)
	}

	return res, nil
}

// contextFailure turns an error raised under an expired per-file context
// into a timeout failure.
func (s *Scanner) contextFailure(ctx context.Context, path string, kind FailureKind, err error) FileFailure {
	if ctx.Err() != nil {
		return FileFailure{Path: path, Kind: FailureTimeout, Err: err}
	}

	return FileFailure{Path: path, Kind: kind, Err: err}
}

func (s *Scanner) read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, FileFailure{Path: path, Kind: FailureIO, Err: err}
	}

	if s.cfg.MaxFileSize > 0 && info.Size() > s.cfg.MaxFileSize {
		return nil, FileFailure{
			Path: path,
			Kind: FailureTooLarge,
			Err: fmt.Errorf("%w: %s > %s", ErrTooLarge,
				humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(s.cfg.MaxFileSize))),
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, FileFailure{Path: path, Kind: FailureIO, Err: err}
	}

	src, err = textutil.Normalize(src)
	if errors.Is(err, textutil.ErrBinary) {
		return nil, FileFailure{Path: path, Kind: FailureBinary, Err: err}
	}

	if err != nil {
		return nil, FileFailure{Path: path, Kind: FailureIO, Err: err}
	}

	return src, nil
}

func failureKinds(failures []FileFailure) map[string]int {
	out := make(map[string]int)
	for _, f := range failures {
		out[string(f.Kind)]++
	}

	return out
}
