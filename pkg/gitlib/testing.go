package gitlib

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// TestRepository builds small repositories on disk for tests of code that
// walks history.
type TestRepository struct {
	dir  string
	repo *git2go.Repository
}

// InitTestRepository creates an empty non-bare repository in dir.
func InitTestRepository(dir string) (*TestRepository, error) {
	repo, err := git2go.InitRepository(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}

	return &TestRepository{dir: dir, repo: repo}, nil
}

// Dir returns the working tree.
func (tr *TestRepository) Dir() string {
	return tr.dir
}

// Commit writes files (slash-separated path to content; empty content
// deletes the file), stages the whole tree and commits it on HEAD.
func (tr *TestRepository) Commit(files map[string]string, message string, when time.Time) (Hash, error) {
	for name, content := range files {
		path := filepath.Join(tr.dir, filepath.FromSlash(name))

		if content == "" {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return Hash{}, fmt.Errorf("remove %s: %w", name, err)
			}

			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return Hash{}, fmt.Errorf("mkdir: %w", err)
		}

		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return Hash{}, fmt.Errorf("write %s: %w", name, err)
		}
	}

	index, err := tr.repo.Index()
	if err != nil {
		return Hash{}, fmt.Errorf("open index: %w", err)
	}
	defer index.Free()

	if err := index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil); err != nil {
		return Hash{}, fmt.Errorf("stage: %w", err)
	}

	if err := index.UpdateAll([]string{"*"}, nil); err != nil {
		return Hash{}, fmt.Errorf("stage removals: %w", err)
	}

	if err := index.Write(); err != nil {
		return Hash{}, fmt.Errorf("write index: %w", err)
	}

	treeID, err := index.WriteTree()
	if err != nil {
		return Hash{}, fmt.Errorf("write tree: %w", err)
	}

	tree, err := tr.repo.LookupTree(treeID)
	if err != nil {
		return Hash{}, fmt.Errorf("lookup tree: %w", err)
	}
	defer tree.Free()

	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: when}

	var parents []*git2go.Commit

	if head, headErr := tr.repo.Head(); headErr == nil {
		parent, lookupErr := tr.repo.LookupCommit(head.Target())
		head.Free()

		if lookupErr != nil {
			return Hash{}, fmt.Errorf("lookup HEAD: %w", lookupErr)
		}

		parents = append(parents, parent)
	}

	oid, err := tr.repo.CreateCommit("HEAD", sig, sig, message, tree, parents...)

	for _, p := range parents {
		p.Free()
	}

	if err != nil {
		return Hash{}, fmt.Errorf("create commit: %w", err)
	}

	return HashFromOid(oid), nil
}

// Free releases the repository.
func (tr *TestRepository) Free() {
	if tr.repo != nil {
		tr.repo.Free()
		tr.repo = nil
	}
}
