package gitlib

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrBareRepository is returned when a working tree operation is attempted on
// a bare repository.
var ErrBareRepository = errors.New("repository has no working tree")

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// WorkDir returns the working tree directory without a trailing separator.
func (r *Repository) WorkDir() string {
	wd := r.repo.Workdir()
	if wd == "" {
		return ""
	}

	return filepath.Clean(wd)
}

// Name returns the base name of the working tree, or of the repository path
// for bare repositories.
func (r *Repository) Name() string {
	if wd := r.WorkDir(); wd != "" {
		return filepath.Base(wd)
	}

	return strings.TrimSuffix(filepath.Base(filepath.Clean(r.path)), ".git")
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// HeadState records what HEAD points at so it can be put back later.
type HeadState struct {
	// Ref is the symbolic branch name; empty when HEAD is detached.
	Ref  string
	Hash Hash
}

// HeadState returns the current HEAD.
func (r *Repository) HeadState() (HeadState, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return HeadState{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	state := HeadState{Hash: HashFromOid(ref.Target())}

	detached, err := r.repo.IsHeadDetached()
	if err != nil {
		return HeadState{}, fmt.Errorf("inspect HEAD: %w", err)
	}

	if !detached {
		state.Ref = ref.Name()
	}

	return state, nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// Checkout force-checks out the commit's tree into the working tree and
// detaches HEAD at it. Untracked files are left alone.
func (r *Repository) Checkout(ctx context.Context, hash Hash) error {
	if r.WorkDir() == "" {
		return ErrBareRepository
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.checkoutTree(hash); err != nil {
		return err
	}

	if err := r.repo.SetHeadDetached(hash.ToOid()); err != nil {
		return fmt.Errorf("detach HEAD at %s: %w", hash.Short(), err)
	}

	return ctx.Err()
}

// RestoreHead checks out the recorded HEAD again, re-attaching the branch
// when there was one.
func (r *Repository) RestoreHead(ctx context.Context, state HeadState) error {
	if err := r.Checkout(ctx, state.Hash); err != nil {
		return err
	}

	if state.Ref == "" {
		return nil
	}

	if err := r.repo.SetHead(state.Ref); err != nil {
		return fmt.Errorf("set HEAD to %s: %w", state.Ref, err)
	}

	return nil
}

func (r *Repository) checkoutTree(hash Hash) error {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return fmt.Errorf("lookup commit %s: %w", hash.Short(), err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("get commit tree: %w", err)
	}
	defer tree.Free()

	opts := &git2go.CheckoutOptions{Strategy: git2go.CheckoutForce}

	if err := r.repo.CheckoutTree(tree, opts); err != nil {
		return fmt.Errorf("checkout %s: %w", hash.Short(), err)
	}

	return nil
}

// LogOptions configures the commit log iteration.
type LogOptions struct {
	Since       *time.Time // Only include commits after this time.
	FirstParent bool       // Follow only first parent (git log --first-parent).
}

// Log returns a commit iterator starting from HEAD, newest first.
func (r *Repository) Log(opts *LogOptions) (*CommitIter, error) {
	if opts == nil {
		opts = &LogOptions{}
	}

	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	defer headRef.Free()

	err = walk.Push(headRef.Target())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	// Topological order keeps positions stable when committer clocks disagree.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	if opts.FirstParent {
		walk.SimplifyFirstParent()
	}

	return &CommitIter{walk: walk, repo: r, since: opts.Since}, nil
}
