package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/modernity/pkg/persist"
)

// Format selects the snapshot encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// ParseFormat validates a format name; empty means YAML.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Codec returns the persist codec for the format.
func (f Format) Codec(compress bool) persist.Codec {
	var codec persist.Codec = persist.NewYAMLCodec()
	if f == FormatJSON {
		codec = persist.NewJSONCodec()
	}

	if compress {
		codec = persist.NewLZ4Codec(codec)
	}

	return codec
}

// Store writes one file per (repository, commit) into a directory.
type Store struct {
	dir       string
	persister *persist.Persister[document]
}

// NewStore creates dir if needed.
func NewStore(dir string, format Format, compress bool) (*Store, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	return &Store{dir: dir, persister: persist.NewPersister[document](format.Codec(compress))}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Basename returns "<repo>_<YYYY-MM-DD>_<hash7>" for a snapshot.
func Basename(snap Snapshot) string {
	return fmt.Sprintf("%s_%s_%s", SafeName(snap.Repository), snap.CommitTime.UTC().Format("2006-01-02"), snap.ShortCommit())
}

// SafeName replaces characters that are unsafe in file names.
func SafeName(repo string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '-'
		}
	}, repo)
}

// Write persists snap and returns the file path. An existing snapshot for
// the same repository and commit is never overwritten.
func (s *Store) Write(ctx context.Context, snap Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	if s.Exists(snap.Repository, snap.Commit) {
		return "", fmt.Errorf("%w: %s@%s", ErrSnapshotExists, snap.Repository, snap.ShortCommit())
	}

	doc := toDocument(snap)

	path, err := s.persister.Save(s.dir, Basename(snap), &doc)
	if errors.Is(err, persist.ErrExists) {
		return path, fmt.Errorf("%w: %w", ErrSnapshotExists, err)
	}

	if err != nil {
		return path, fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// Exists reports whether a snapshot of the commit is stored, in any format.
func (s *Store) Exists(repo, commit string) bool {
	pattern := filepath.Join(s.dir, SafeName(repo)+"_*_"+shortHash(commit)+".*")

	matches, err := filepath.Glob(pattern)

	return err == nil && len(matches) > 0
}

// Load reads and validates one snapshot file of any supported format.
func Load(path string) (Snapshot, error) {
	var raw any

	err := persist.LoadState(path, &raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	err = Validate(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}

	// Re-decode through JSON so YAML and JSON share one typed path.
	data, err := json.Marshal(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, path, err)
	}

	var doc document

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, path, err)
	}

	return fromDocument(doc)
}

// LoadDir loads every snapshot file in dir, ordered by commit time. Files
// that fail to load are returned joined in the error alongside the rest.
func LoadDir(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var (
		out  []Snapshot
		errs []error
	)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		path := filepath.Join(dir, e.Name())
		if _, codecErr := persist.CodecFor(path); codecErr != nil {
			continue
		}

		snap, loadErr := Load(path)
		if loadErr != nil {
			errs = append(errs, loadErr)

			continue
		}

		out = append(out, snap)
	}

	slices.SortStableFunc(out, func(a, b Snapshot) int {
		if c := a.CommitTime.Compare(b.CommitTime); c != 0 {
			return c
		}

		return strings.Compare(a.Repository, b.Repository)
	})

	return out, errors.Join(errs...)
}
