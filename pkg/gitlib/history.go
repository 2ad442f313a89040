package gitlib

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CommitRef identifies one commit of a repository's history.
type CommitRef struct {
	Hash    string
	When    time.Time
	Message string
}

// HistoryOptions selects the commits History lists.
type HistoryOptions struct {
	FirstParent bool
	// Since drops commits authored before it; see ParseTime for the format.
	Since string
	// Limit keeps only the newest Limit commits; zero keeps all.
	Limit int
}

// History lists a repository's commits and checks them out one at a time.
// It remembers HEAD before the first checkout and puts it back on Restore.
// A History is not safe for concurrent use.
type History struct {
	repo *Repository
	opts HistoryOptions

	mu   sync.Mutex
	head *HeadState
}

// NewHistory wraps an open repository.
func NewHistory(repo *Repository, opts HistoryOptions) *History {
	return &History{repo: repo, opts: opts}
}

// OpenHistory opens the local repository at path.
func OpenHistory(path string, opts HistoryOptions) (*History, error) {
	repo, err := LoadRepository(path)
	if err != nil {
		return nil, err
	}

	if repo.WorkDir() == "" {
		repo.Free()

		return nil, fmt.Errorf("%w: %s", ErrBareRepository, path)
	}

	return NewHistory(repo, opts), nil
}

// Name returns the repository name.
func (h *History) Name() string {
	return h.repo.Name()
}

// WorkDir returns the working tree that Checkout populates.
func (h *History) WorkDir() string {
	return h.repo.WorkDir()
}

// ListCommits returns the selected commits, oldest first.
func (h *History) ListCommits(ctx context.Context) ([]CommitRef, error) {
	commits, err := LoadCommits(ctx, h.repo, CommitLoadOptions{
		Limit:       h.opts.Limit,
		FirstParent: h.opts.FirstParent,
		Since:       h.opts.Since,
	})
	if err != nil {
		return nil, err
	}

	refs := make([]CommitRef, 0, len(commits))

	for _, c := range commits {
		refs = append(refs, c.Ref())
		c.Free()
	}

	return refs, nil
}

// Checkout populates the working tree with the commit.
func (h *History) Checkout(ctx context.Context, ref CommitRef) error {
	hash, err := ParseHash(ref.Hash)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.head == nil {
		state, stateErr := h.repo.HeadState()
		if stateErr != nil {
			return stateErr
		}

		h.head = &state
	}

	return h.repo.Checkout(ctx, hash)
}

// Restore returns the working tree to HEAD as it was before the first
// Checkout. It is a no-op when nothing was checked out.
func (h *History) Restore(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.head == nil {
		return nil
	}

	if err := h.repo.RestoreHead(ctx, *h.head); err != nil {
		return fmt.Errorf("restore %s: %w", h.repo.Name(), err)
	}

	h.head = nil

	return nil
}

// Close restores HEAD if needed and frees the repository.
func (h *History) Close() error {
	err := h.Restore(context.Background())
	h.repo.Free()

	return err
}
