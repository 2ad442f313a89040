package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/cmd/modernity/commands"
	"github.com/Sumatoshi-tech/modernity/pkg/accum"
	"github.com/Sumatoshi-tech/modernity/pkg/gitlib"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := commands.NewRootCommand()
	root.SetArgs(append([]string{"--no-color", "--quiet"}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "modernity ")
}

func TestRulesCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "rules", "--version", "9.0")
	require.NoError(t, err)
	assert.Contains(t, out, "target-typed-new")
	assert.NotContains(t, out, "list-pattern")

	_, err = execute(t, "rules", "--version", "nope")
	require.Error(t, err)
}

func TestScanCommand_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "Program.cs"), "class P { void M() { P p = new(); } }")
	writeFile(t, filepath.Join(dir, "obj", "Generated.cs"), "class G { void M() { G g = new(); } }")

	out, err := execute(t, "scan", dir, "--out", "json")
	require.NoError(t, err)

	var got struct {
		Files  int            `json:"files"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, 1, got.Files)
	assert.Equal(t, 1, got.Counts["9.0"])
}

func TestScanCommand_UnknownOutput(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "scan", t.TempDir(), "--out", "xml")
	require.ErrorIs(t, err, commands.ErrUnknownOutput)
}

func TestHistoryAndReport(t *testing.T) {
	t.Parallel()

	tr, err := gitlib.InitTestRepository(filepath.Join(t.TempDir(), "widgets"))
	require.NoError(t, err)
	t.Cleanup(tr.Free)

	base := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, body := range []string{
		"class P { }",
		"class P { void M() { P p = new(); } }",
		"record struct Point(int X);",
	} {
		_, err = tr.Commit(map[string]string{"Program.cs": body}, "step", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	outDir := t.TempDir()

	out, err := execute(t, "history", tr.Dir(), "--stride", "2", "--include-head", "--output", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "3 commits, 2 sampled, 2 written")

	snaps, err := snapshot.LoadDir(outDir)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, 1, snaps[0].Counts.Total())

	out, err = execute(t, "report", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "widgets")
	assert.Contains(t, out, "2022-03-01")

	_, err = execute(t, "report", outDir, "--repo", "other")
	require.Error(t, err)
}

func TestDiffCommand(t *testing.T) {
	t.Parallel()

	store, err := snapshot.NewStore(t.TempDir(), snapshot.FormatYAML, false)
	require.NoError(t, err)

	write := func(hash string, counts map[string]int) string {
		acc, accErr := accum.FromMap(counts)
		require.NoError(t, accErr)

		path, writeErr := store.Write(context.Background(), snapshot.Snapshot{
			Repository: "widgets",
			Commit:     hash,
			CommitTime: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			Counts:     acc,
			Files:      4,
		})
		require.NoError(t, writeErr)

		return path
	}

	older := write("1111111111111111111111111111111111111111", map[string]int{"8.0": 2})
	newer := write("2222222222222222222222222222222222222222", map[string]int{"8.0": 1, "10.0": 3})

	out, err := execute(t, "diff", older, newer)
	require.NoError(t, err)
	assert.Contains(t, out, "- C# 8.0: 2")
	assert.Contains(t, out, "+ C# 10.0: 3")
	assert.Contains(t, out, "C# 8.0   -1")
	assert.Contains(t, out, "C# 10.0  +3")
}

func TestFindRepositories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b", ".git"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", ".git"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "plain"), 0o750))
	writeFile(t, filepath.Join(dir, "file.txt"), "x")

	repos, err := commands.FindRepositories(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}, repos)

	_, err = execute(t, "batch", filepath.Join(dir, "plain"))
	require.ErrorIs(t, err, commands.ErrNoRepositories)
}
