// Package snapshot defines the per-commit feature count document and the
// store that persists one file per sampled commit.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/modernity/pkg/accum"
)

// ErrSnapshotExists is returned when a snapshot for the same repository and
// commit is already stored.
var ErrSnapshotExists = errors.New("snapshot already exists")

// ErrInvalidSnapshot is returned for documents that fail schema validation.
var ErrInvalidSnapshot = errors.New("invalid snapshot document")

// Failure names a file excluded from the counts.
type Failure struct {
	Path   string `json:"path"             yaml:"path"`
	Kind   string `json:"kind"             yaml:"kind"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Snapshot is the feature census of one repository at one commit.
type Snapshot struct {
	Repository  string
	Commit      string
	CommitTime  time.Time
	Counts      accum.Accumulator
	Files       int
	FailedFiles int
	Failures    []Failure
}

// ShortCommit returns the abbreviated commit hash used in file names.
func (s Snapshot) ShortCommit() string {
	return shortHash(s.Commit)
}

// document is the serialized form: counts become a flat version map.
type document struct {
	Repository  string         `json:"repository"             yaml:"repository"`
	Commit      string         `json:"commit"                 yaml:"commit"`
	Date        time.Time      `json:"date"                   yaml:"date"`
	Counts      map[string]int `json:"counts"                 yaml:"counts"`
	Files       int            `json:"files"                  yaml:"files"`
	FailedFiles int            `json:"failed_files"           yaml:"failed_files"`
	Failures    []Failure      `json:"failures,omitempty"     yaml:"failures,omitempty"`
}

func toDocument(s Snapshot) document {
	return document{
		Repository:  s.Repository,
		Commit:      s.Commit,
		Date:        s.CommitTime.UTC(),
		Counts:      s.Counts.AsMap(),
		Files:       s.Files,
		FailedFiles: s.FailedFiles,
		Failures:    s.Failures,
	}
}

func fromDocument(d document) (Snapshot, error) {
	counts, err := accum.FromMap(d.Counts)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	return Snapshot{
		Repository:  d.Repository,
		Commit:      d.Commit,
		CommitTime:  d.Date,
		Counts:      counts,
		Files:       d.Files,
		FailedFiles: d.FailedFiles,
		Failures:    d.Failures,
	}, nil
}

const shortHashLen = 7

func shortHash(commit string) string {
	if len(commit) > shortHashLen {
		return commit[:shortHashLen]
	}

	return commit
}
