package sampler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/internal/sampler"
	"github.com/Sumatoshi-tech/modernity/internal/scanner"
	"github.com/Sumatoshi-tech/modernity/internal/workspace"
	"github.com/Sumatoshi-tech/modernity/pkg/features"
	"github.com/Sumatoshi-tech/modernity/pkg/gitlib"
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax/csharp"
)

func TestRun_GitRepository(t *testing.T) {
	t.Parallel()

	tr, err := gitlib.InitTestRepository(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(tr.Free)

	steps := []map[string]string{
		{"src/Program.cs": "class P { void M() { var s = \"a\"; } }"},
		{"src/Program.cs": "class P { void M() { P p = new(); } }"},
		{"src/Point.cs": "record struct Point(int X);"},
		{"src/Notes.md": "notes"},
	}

	base := time.Date(2023, 5, 1, 9, 0, 0, 0, time.UTC)

	var hashes []gitlib.Hash

	for i, files := range steps {
		h, commitErr := tr.Commit(files, "step", base.AddDate(0, 0, i))
		require.NoError(t, commitErr)

		hashes = append(hashes, h)
	}

	history, err := gitlib.OpenHistory(tr.Dir(), gitlib.HistoryOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, history.Close()) })

	table, err := features.DefaultTable()
	require.NoError(t, err)

	store, err := snapshot.NewStore(t.TempDir(), snapshot.FormatYAML, false)
	require.NoError(t, err)

	s := newSampler(t, sampler.Config{Stride: 2, CommitTimeout: time.Minute},
		&workspace.Resolver{},
		scanner.New(csharp.NewParser(), table, scanner.Config{Workers: 2, Semantics: true}),
		store)

	summary, err := s.Run(context.Background(), history)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Commits)
	assert.Equal(t, 2, summary.Written)
	require.Len(t, summary.Paths, 2)

	snaps, err := snapshot.LoadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, hashes[1].String(), snaps[0].Commit)
	assert.Equal(t, 1, snaps[0].Counts.Get(langver.V9_0))
	assert.Zero(t, snaps[0].Counts.Get(langver.V10_0))

	assert.Equal(t, hashes[3].String(), snaps[1].Commit)
	assert.Equal(t, 1, snaps[1].Counts.Get(langver.V9_0))
	assert.Equal(t, 1, snaps[1].Counts.Get(langver.V10_0))
	assert.Equal(t, 2, snaps[1].Files)

	// HEAD is back on the branch tip.
	data, err := os.ReadFile(filepath.Join(tr.Dir(), "src", "Point.cs"))
	require.NoError(t, err)
	assert.Equal(t, "record struct Point(int X);", string(data))

	// A second run with resume writes nothing new.
	resumed := newSampler(t, sampler.Config{Stride: 2, Resume: true},
		&workspace.Resolver{},
		scanner.New(csharp.NewParser(), table, scanner.Config{}),
		store)

	summary, err = resumed.Run(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Existing)
	assert.Zero(t, summary.Written)
}
