// Package sampler walks a repository's history at a fixed stride, scanning
// and persisting one snapshot per sampled commit.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/modernity/internal/scanner"
	"github.com/Sumatoshi-tech/modernity/pkg/gitlib"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// Sentinel errors wrapped by commit failures, one per stage.
var (
	ErrCheckout  = errors.New("checkout failed")
	ErrWorkspace = errors.New("workspace resolution failed")
	ErrScan      = errors.New("scan failed")
	ErrPersist   = errors.New("snapshot not persisted")
)

// ErrInvalidStride is returned by New for a stride below one.
var ErrInvalidStride = errors.New("stride must be at least 1")

// Stage names the step of a sampled commit that failed.
type Stage string

// Stages.
const (
	StageCheckout  Stage = "checkout"
	StageWorkspace Stage = "workspace"
	StageScan      Stage = "scan"
	StagePersist   Stage = "persist"
)

// CommitRef identifies one commit.
type CommitRef = gitlib.CommitRef

// VCS is the repository being sampled.
type VCS interface {
	Name() string
	WorkDir() string
	// ListCommits returns the history oldest first.
	ListCommits(ctx context.Context) ([]CommitRef, error)
	Checkout(ctx context.Context, ref CommitRef) error
	// Restore puts the working tree back as it was before the first Checkout.
	Restore(ctx context.Context) error
}

// Workspace resolves the checked-out working tree to source files.
type Workspace interface {
	Resolve(ctx context.Context, root string) ([]string, error)
}

// Scanner classifies a list of files.
type Scanner interface {
	Scan(ctx context.Context, files []string) (scanner.Result, error)
}

// Store persists snapshots.
type Store interface {
	Write(ctx context.Context, snap snapshot.Snapshot) (string, error)
	Exists(repo, commit string) bool
}

// State is the sampler's position in the per-commit cycle.
type State int32

// States. Every sampled commit goes Idle, CheckedOut, Scanned and back to
// Idle; a failure returns straight to Idle.
const (
	Idle State = iota
	CheckedOut
	Scanned
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CheckedOut:
		return "checked_out"
	case Scanned:
		return "scanned"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Transition is reported to the transition hook on every state change.
type Transition struct {
	From, To State
	Commit   CommitRef
}

// Config controls which commits are sampled.
type Config struct {
	// Stride samples every commit whose one-based position is a multiple of it.
	Stride int
	// IncludeHead also samples the newest commit when the stride misses it.
	IncludeHead bool
	// Resume skips commits that already have a stored snapshot.
	Resume bool
	// CommitTimeout bounds checkout, resolution, scan and persistence of one
	// commit; zero disables it.
	CommitTimeout time.Duration
}

// CommitFailure records a sampled commit that produced no snapshot.
type CommitFailure struct {
	Commit CommitRef
	Stage  Stage
	Err    error
}

func (f CommitFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", shortHash(f.Commit.Hash), f.Stage, f.Err)
}

func (f CommitFailure) Unwrap() error { return f.Err }

// Summary reports one Run.
type Summary struct {
	Repository string
	Commits    int
	Sampled    int
	Written    int
	Skipped    int
	Existing   int
	Paths      []string
	Failures   []CommitFailure
}

// Sampler drives the per-commit cycle. A Sampler runs one repository at a time.
type Sampler struct {
	cfg     Config
	ws      Workspace
	scanner Scanner
	store   Store

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.ScanMetrics
	hook    func(Transition)

	state atomic.Int32
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithTracer sets the tracer for per-commit spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Sampler) { s.tracer = t }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.ScanMetrics) Option {
	return func(s *Sampler) { s.metrics = m }
}

// OnTransition registers a hook called synchronously on every state change.
func OnTransition(hook func(Transition)) Option {
	return func(s *Sampler) { s.hook = hook }
}

// New creates a Sampler.
func New(cfg Config, ws Workspace, sc Scanner, store Store, opts ...Option) (*Sampler, error) {
	if cfg.Stride < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStride, cfg.Stride)
	}

	s := &Sampler{
		cfg:     cfg,
		ws:      ws,
		scanner: sc,
		store:   store,
		logger:  slog.Default(),
		tracer:  nooptrace.NewTracerProvider().Tracer("sampler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// State returns the current state.
func (s *Sampler) State() State {
	return State(s.state.Load())
}

// Positions returns the zero-based indexes sampled from n commits listed
// oldest first: every one-based position p with p%stride == 0, plus the
// last index when includeHead is set.
func Positions(n, stride int, includeHead bool) []int {
	if stride < 1 || n == 0 {
		return nil
	}

	var out []int

	for p := stride; p <= n; p += stride {
		out = append(out, p-1)
	}

	if includeHead && n%stride != 0 {
		out = append(out, n-1)
	}

	return out
}

// Run samples the history of vcs. Failures of single commits are recorded in
// the summary and never stop the walk. Cancellation of ctx is observed
// between commits; the returned error is then ctx.Err(). The working tree is
// restored before Run returns.
func (s *Sampler) Run(ctx context.Context, vcs VCS) (summary Summary, err error) {
	repo := vcs.Name()
	logger := observability.ForRepository(s.logger, repo)
	summary.Repository = repo

	commits, err := vcs.ListCommits(ctx)
	if err != nil {
		return summary, fmt.Errorf("list commits of %s: %w", repo, err)
	}

	summary.Commits = len(commits)

	defer func() {
		restoreErr := vcs.Restore(context.WithoutCancel(ctx))
		if restoreErr != nil {
			logger.ErrorContext(ctx, "working tree not restored", "error", restoreErr)
			err = errors.Join(err, restoreErr)
		}
	}()

	for _, idx := range Positions(len(commits), s.cfg.Stride, s.cfg.IncludeHead) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.WarnContext(ctx, "history walk cancelled", "sampled", summary.Sampled, "commits", summary.Commits)

			return summary, ctxErr
		}

		ref := commits[idx]
		summary.Sampled++

		if s.cfg.Resume && s.store.Exists(repo, ref.Hash) {
			summary.Existing++

			logger.DebugContext(ctx, "snapshot exists", "commit", shortHash(ref.Hash))

			continue
		}

		path, failure := s.sampleCommit(ctx, vcs, ref, idx+1)

		switch {
		case failure == nil:
			summary.Written++
			summary.Paths = append(summary.Paths, path)
			s.metrics.SnapshotWritten(ctx, repo)
		case errors.Is(failure.Err, snapshot.ErrSnapshotExists):
			summary.Existing++
		default:
			summary.Skipped++
			summary.Failures = append(summary.Failures, *failure)
			s.metrics.CommitSkipped(ctx, repo, string(failure.Stage))
			logger.WarnContext(ctx, "commit skipped",
				"commit", shortHash(ref.Hash), "position", idx+1, "stage", string(failure.Stage), "error", failure.Err)
		}
	}

	logger.InfoContext(ctx, "history sampled",
		"commits", summary.Commits, "sampled", summary.Sampled, "written", summary.Written,
		"skipped", summary.Skipped, "existing", summary.Existing)

	return summary, nil
}

func (s *Sampler) sampleCommit(ctx context.Context, vcs VCS, ref CommitRef, position int) (string, *CommitFailure) {
	// The per-commit work is detached from ctx so a cancellation lets the
	// commit in flight finish; only CommitTimeout bounds it.
	cctx := context.WithoutCancel(ctx)

	if s.cfg.CommitTimeout > 0 {
		var cancel context.CancelFunc

		cctx, cancel = context.WithTimeout(cctx, s.cfg.CommitTimeout)
		defer cancel()
	}

	cctx, span := s.tracer.Start(cctx, "sampler.commit", trace.WithAttributes(
		attribute.String("repo", vcs.Name()),
		attribute.String("commit", ref.Hash),
		attribute.Int("position", position),
	))
	defer span.End()

	defer s.transition(ref, Idle)

	fail := func(stage Stage, sentinel, err error) (string, *CommitFailure) {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage))

		return "", &CommitFailure{Commit: ref, Stage: stage, Err: fmt.Errorf("%w: %w", sentinel, err)}
	}

	if err := vcs.Checkout(cctx, ref); err != nil {
		return fail(StageCheckout, ErrCheckout, err)
	}

	s.transition(ref, CheckedOut)

	root := vcs.WorkDir()

	files, err := s.ws.Resolve(cctx, root)
	if err != nil {
		return fail(StageWorkspace, ErrWorkspace, err)
	}

	res, err := s.scanner.Scan(cctx, files)
	if err != nil {
		return fail(StageScan, ErrScan, err)
	}

	s.transition(ref, Scanned)

	snap := buildSnapshot(vcs.Name(), ref, root, res)

	path, err := s.store.Write(cctx, snap)
	if err != nil {
		return fail(StagePersist, ErrPersist, err)
	}

	span.SetAttributes(attribute.Int("files", res.Files), attribute.Int("matches", res.Counts.Total()))

	return path, nil
}

func (s *Sampler) transition(ref CommitRef, to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}

	if s.hook != nil {
		s.hook(Transition{From: from, To: to, Commit: ref})
	}
}

func buildSnapshot(repo string, ref CommitRef, root string, res scanner.Result) snapshot.Snapshot {
	return snapshot.Snapshot{
		Repository:  repo,
		Commit:      ref.Hash,
		CommitTime:  ref.When,
		Counts:      res.Counts,
		Files:       res.Files,
		FailedFiles: len(res.Failures),
		Failures:    res.Records(root),
	}
}

func shortHash(h string) string {
	if len(h) > gitlib.ShortHashSize {
		return h[:gitlib.ShortHashSize]
	}

	return h
}
