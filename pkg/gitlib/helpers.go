package gitlib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"
)

// CommitLoadOptions configures how commits are loaded from a repository.
type CommitLoadOptions struct {
	Limit       int
	FirstParent bool
	Since       string
}

// ErrInvalidTimeFormat is returned when a time string cannot be parsed.
var ErrInvalidTimeFormat = errors.New("cannot parse time")

// ErrRemoteNotSupported is returned when a remote repository URI is provided.
var ErrRemoteNotSupported = errors.New("remote repositories not supported")

var scpLikeURI = regexp.MustCompile(`^[A-Za-z]\w*@[A-Za-z0-9][\w.]*:`)

// LoadRepository opens a local git repository. Returns an error for remote URIs.
func LoadRepository(uri string) (*Repository, error) {
	if strings.Contains(uri, "://") || scpLikeURI.MatchString(uri) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotSupported, uri)
	}

	if len(uri) > 1 && uri[len(uri)-1] == os.PathSeparator {
		uri = uri[:len(uri)-1]
	}

	repository, err := OpenRepository(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", uri, err)
	}

	return repository, nil
}

// ParseTime parses a time string in various formats:
// - Duration relative to now (e.g. "24h")
// - RFC3339 (e.g. "2024-01-01T00:00:00Z")
// - Date only (e.g. "2024-01-01").
func ParseTime(s string) (time.Time, error) {
	d, durationErr := time.ParseDuration(s)
	if durationErr == nil {
		return time.Now().Add(-d), nil
	}

	parsedTime, rfc3339Err := time.Parse(time.RFC3339, s)
	if rfc3339Err == nil {
		return parsedTime, nil
	}

	parsedTime, dateOnlyErr := time.Parse(time.DateOnly, s)
	if dateOnlyErr == nil {
		return parsedTime, nil
	}

	return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimeFormat, s)
}

// LoadCommits loads commits from a repository, oldest first. With a limit
// only the newest Limit commits are kept. The caller frees the commits.
func LoadCommits(ctx context.Context, repository *Repository, opts CommitLoadOptions) ([]*Commit, error) {
	logOpts := &LogOptions{
		FirstParent: opts.FirstParent,
	}

	if opts.Since != "" {
		sinceTime, parseErr := ParseTime(opts.Since)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid time format for --since: %w", parseErr)
		}

		logOpts.Since = &sinceTime
	}

	iter, err := repository.Log(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	defer iter.Close()

	commits, err := collectCommits(ctx, iter, opts.Limit)
	if err != nil {
		return nil, err
	}

	slices.Reverse(commits)

	return commits, nil
}

func collectCommits(ctx context.Context, iter *CommitIter, limit int) ([]*Commit, error) {
	var commits []*Commit

	for {
		if err := ctx.Err(); err != nil {
			for _, c := range commits {
				c.Free()
			}

			return nil, err
		}

		commit, err := iter.Next()
		if err != nil {
			break
		}

		if limit > 0 && len(commits) >= limit {
			commit.Free()

			break
		}

		commits = append(commits, commit)
	}

	return commits, nil
}

func firstLine(msg string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")

	return strings.TrimSpace(line)
}
