package sampler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/internal/sampler"
	"github.com/Sumatoshi-tech/modernity/internal/scanner"
	"github.com/Sumatoshi-tech/modernity/pkg/accum"
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

var errBoom = errors.New("boom")

type fakeVCS struct {
	commits      []sampler.CommitRef
	failCheckout map[string]bool
	onCheckout   func(sampler.CommitRef)

	checkedOut []string
	restored   int
}

func newFakeVCS(n int) *fakeVCS {
	v := &fakeVCS{failCheckout: map[string]bool{}}

	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		v.commits = append(v.commits, sampler.CommitRef{
			Hash: fmt.Sprintf("%040x", i),
			When: base.AddDate(0, 0, i),
		})
	}

	return v
}

func (v *fakeVCS) Name() string    { return "widgets" }
func (v *fakeVCS) WorkDir() string { return "/work/widgets" }

func (v *fakeVCS) ListCommits(context.Context) ([]sampler.CommitRef, error) {
	return v.commits, nil
}

func (v *fakeVCS) Checkout(_ context.Context, ref sampler.CommitRef) error {
	if v.onCheckout != nil {
		v.onCheckout(ref)
	}

	if v.failCheckout[ref.Hash] {
		return errBoom
	}

	v.checkedOut = append(v.checkedOut, ref.Hash)

	return nil
}

func (v *fakeVCS) Restore(context.Context) error {
	v.restored++

	return nil
}

func (v *fakeVCS) position(p int) string { return v.commits[p-1].Hash }

type fakeWorkspace struct{ err error }

func (w fakeWorkspace) Resolve(_ context.Context, root string) ([]string, error) {
	if w.err != nil {
		return nil, w.err
	}

	return []string{root + "/src/A.cs", root + "/src/B.cs"}, nil
}

type fakeScanner struct{ err error }

func (s fakeScanner) Scan(_ context.Context, files []string) (scanner.Result, error) {
	if s.err != nil {
		return scanner.Result{}, s.err
	}

	res := scanner.Result{Files: len(files) - 1}
	res.Counts.Add(langver.V9_0, 2)
	res.Failures = []scanner.FileFailure{{Path: files[len(files)-1], Kind: scanner.FailureParse, Err: errBoom}}

	return res, nil
}

type memStore struct {
	mu    sync.Mutex
	snaps map[string]snapshot.Snapshot
	err   error
}

func newMemStore() *memStore { return &memStore{snaps: map[string]snapshot.Snapshot{}} }

func (m *memStore) Write(_ context.Context, snap snapshot.Snapshot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	if _, ok := m.snaps[snap.Commit]; ok {
		return "", snapshot.ErrSnapshotExists
	}

	m.snaps[snap.Commit] = snap

	return snap.ShortCommit() + ".yaml", nil
}

func (m *memStore) Exists(_, commit string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.snaps[commit]

	return ok
}

func newSampler(t *testing.T, cfg sampler.Config, ws sampler.Workspace, sc sampler.Scanner, store sampler.Store,
	opts ...sampler.Option,
) *sampler.Sampler {
	t.Helper()

	s, err := sampler.New(cfg, ws, sc, store, opts...)
	require.NoError(t, err)

	return s
}

func TestPositions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		n, stride   int
		includeHead bool
		want        []int
	}{
		{"one-indexed multiples", 45, 20, false, []int{19, 39}},
		{"include head", 45, 20, true, []int{19, 39, 44}},
		{"head already sampled", 40, 20, true, []int{19, 39}},
		{"stride one", 3, 1, false, []int{0, 1, 2}},
		{"shorter than stride", 5, 20, false, nil},
		{"shorter than stride with head", 5, 20, true, []int{4}},
		{"empty", 0, 5, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, sampler.Positions(tt.n, tt.stride, tt.includeHead))
		})
	}
}

func TestNew_RejectsStride(t *testing.T) {
	t.Parallel()

	_, err := sampler.New(sampler.Config{Stride: 0}, fakeWorkspace{}, fakeScanner{}, newMemStore())
	require.ErrorIs(t, err, sampler.ErrInvalidStride)
}

func TestRun_StrideSurvivesFailingTail(t *testing.T) {
	t.Parallel()

	vcs := newFakeVCS(45)
	for p := 41; p <= 45; p++ {
		vcs.failCheckout[vcs.position(p)] = true
	}

	store := newMemStore()
	s := newSampler(t, sampler.Config{Stride: 20}, fakeWorkspace{}, fakeScanner{}, store)

	summary, err := s.Run(context.Background(), vcs)
	require.NoError(t, err)

	assert.Equal(t, 45, summary.Commits)
	assert.Equal(t, 2, summary.Sampled)
	assert.Equal(t, 2, summary.Written)
	assert.Zero(t, summary.Skipped)
	assert.Len(t, store.snaps, 2)
	assert.Equal(t, []string{vcs.position(20), vcs.position(40)}, vcs.checkedOut)
	assert.Equal(t, 1, vcs.restored)
	assert.Equal(t, sampler.Idle, s.State())

	snap := store.snaps[vcs.position(20)]
	assert.Equal(t, "widgets", snap.Repository)
	assert.Equal(t, 2, snap.Counts.Get(langver.V9_0))
	assert.Equal(t, 1, snap.Files)
	assert.Equal(t, 1, snap.FailedFiles)
	require.Len(t, snap.Failures, 1)
	assert.Equal(t, "src/B.cs", snap.Failures[0].Path)
	assert.Equal(t, "parse", snap.Failures[0].Kind)
}

func TestRun_FailingHeadIsSkipped(t *testing.T) {
	t.Parallel()

	vcs := newFakeVCS(45)
	vcs.failCheckout[vcs.position(45)] = true

	store := newMemStore()
	s := newSampler(t, sampler.Config{Stride: 20, IncludeHead: true}, fakeWorkspace{}, fakeScanner{}, store)

	summary, err := s.Run(context.Background(), vcs)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Sampled)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, sampler.StageCheckout, summary.Failures[0].Stage)
	assert.ErrorIs(t, summary.Failures[0], sampler.ErrCheckout)
	assert.ErrorIs(t, summary.Failures[0], errBoom)
}

func TestRun_StageFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ws       fakeWorkspace
		sc       fakeScanner
		storeErr error
		stage    sampler.Stage
		sentinel error
	}{
		{"workspace", fakeWorkspace{err: errBoom}, fakeScanner{}, nil, sampler.StageWorkspace, sampler.ErrWorkspace},
		{"scan", fakeWorkspace{}, fakeScanner{err: context.DeadlineExceeded}, nil, sampler.StageScan, sampler.ErrScan},
		{"persist", fakeWorkspace{}, fakeScanner{}, errBoom, sampler.StagePersist, sampler.ErrPersist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			store.err = tt.storeErr

			s := newSampler(t, sampler.Config{Stride: 2}, tt.ws, tt.sc, store)

			summary, err := s.Run(context.Background(), newFakeVCS(4))
			require.NoError(t, err)

			assert.Equal(t, 2, summary.Skipped)
			assert.Zero(t, summary.Written)

			for _, f := range summary.Failures {
				assert.Equal(t, tt.stage, f.Stage)
				assert.ErrorIs(t, f, tt.sentinel)
			}

			assert.Equal(t, sampler.Idle, s.State())
		})
	}
}

func TestRun_Transitions(t *testing.T) {
	t.Parallel()

	var got []sampler.Transition

	hook := sampler.OnTransition(func(tr sampler.Transition) { got = append(got, tr) })

	vcs := newFakeVCS(2)
	vcs.failCheckout[vcs.position(1)] = true

	s := newSampler(t, sampler.Config{Stride: 1}, fakeWorkspace{}, fakeScanner{}, newMemStore(), hook)

	_, err := s.Run(context.Background(), vcs)
	require.NoError(t, err)

	// The failed checkout never leaves Idle; the second commit runs the full cycle.
	require.Len(t, got, 3)
	assert.Equal(t, sampler.Transition{From: sampler.Idle, To: sampler.CheckedOut, Commit: vcs.commits[1]}, got[0])
	assert.Equal(t, sampler.Transition{From: sampler.CheckedOut, To: sampler.Scanned, Commit: vcs.commits[1]}, got[1])
	assert.Equal(t, sampler.Transition{From: sampler.Scanned, To: sampler.Idle, Commit: vcs.commits[1]}, got[2])
	assert.Equal(t, "checked_out", sampler.CheckedOut.String())
}

func TestRun_Resume(t *testing.T) {
	t.Parallel()

	vcs := newFakeVCS(6)
	store := newMemStore()
	store.snaps[vcs.position(2)] = snapshot.Snapshot{Commit: vcs.position(2), Counts: accum.Zero()}

	s := newSampler(t, sampler.Config{Stride: 2, Resume: true}, fakeWorkspace{}, fakeScanner{}, store)

	summary, err := s.Run(context.Background(), vcs)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Sampled)
	assert.Equal(t, 1, summary.Existing)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, []string{vcs.position(4), vcs.position(6)}, vcs.checkedOut)

	// Without resume the stored commit is attempted and reported as existing.
	vcs.checkedOut = nil
	again := newSampler(t, sampler.Config{Stride: 2}, fakeWorkspace{}, fakeScanner{}, store)

	summary, err = again.Run(context.Background(), vcs)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Existing)
	assert.Zero(t, summary.Skipped)
}

func TestRun_CancelBetweenCommits(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vcs := newFakeVCS(10)
	// Cancelling during the first checkout lets that commit finish.
	vcs.onCheckout = func(sampler.CommitRef) { cancel() }

	store := newMemStore()
	s := newSampler(t, sampler.Config{Stride: 5}, fakeWorkspace{}, fakeScanner{}, store)

	summary, err := s.Run(ctx, vcs)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, summary.Written)
	assert.Len(t, store.snaps, 1)
	assert.Equal(t, 1, vcs.restored)
}
