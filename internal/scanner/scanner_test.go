package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/internal/scanner"
	"github.com/Sumatoshi-tech/modernity/pkg/features"
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax/csharp"
)

const (
	modernSource = `class C { void M() { C c = new(); } }
record struct P(int X);
`
	olderSource  = `class D { int M(string s) { s ??= "x"; return s.Length; } }`
	brokenSource = "class { void ( }"
)

func writeFiles(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()

	dir := t.TempDir()

	var paths []string

	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		paths = append(paths, path)
	}

	return dir, paths
}

func newScanner(t *testing.T, cfg scanner.Config) *scanner.Scanner {
	t.Helper()

	table, err := features.DefaultTable()
	require.NoError(t, err)

	return scanner.New(csharp.NewParser(), table, cfg)
}

func TestScan_ExcludesUnparsableFile(t *testing.T) {
	t.Parallel()

	_, good := writeFiles(t, map[string]string{"A.cs": modernSource, "B.cs": olderSource})
	_, all := writeFiles(t, map[string]string{"A.cs": modernSource, "B.cs": olderSource, "Broken.cs": brokenSource})

	s := newScanner(t, scanner.Config{Workers: 3, Semantics: true})

	clean, err := s.Scan(context.Background(), good)
	require.NoError(t, err)
	require.Empty(t, clean.Failures)

	mixed, err := s.Scan(context.Background(), all)
	require.NoError(t, err)

	require.Len(t, mixed.Failures, 1)
	assert.Equal(t, scanner.FailureParse, mixed.Failures[0].Kind)
	assert.Equal(t, "Broken.cs", filepath.Base(mixed.Failures[0].Path))
	assert.ErrorIs(t, mixed.Failures[0].Err, syntax.ErrParse)

	assert.Equal(t, clean.Counts, mixed.Counts)
	assert.Equal(t, 2, mixed.Files)
	assert.Equal(t, 1, mixed.Counts.Get(langver.V9_0))
	assert.Equal(t, 1, mixed.Counts.Get(langver.V10_0))
	assert.Equal(t, 1, mixed.Counts.Get(langver.V8_0))
}

func TestScan_Idempotent(t *testing.T) {
	t.Parallel()

	_, files := writeFiles(t, map[string]string{"A.cs": modernSource, "B.cs": olderSource})

	first, err := newScanner(t, scanner.Config{Workers: 1}).Scan(context.Background(), files)
	require.NoError(t, err)

	second, err := newScanner(t, scanner.Config{Workers: 4}).Scan(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScan_SizeLimitAndMissingFile(t *testing.T) {
	t.Parallel()

	dir, files := writeFiles(t, map[string]string{
		"Big.cs":   "// " + strings.Repeat("x", 4096) + "\nclass Big {}\n",
		"Small.cs": olderSource,
	})
	files = append(files, filepath.Join(dir, "Missing.cs"))

	res, err := newScanner(t, scanner.Config{MaxFileSize: 1024}).Scan(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, scanner.FailureTooLarge, res.Failures[0].Kind)
	assert.ErrorIs(t, res.Failures[0].Err, scanner.ErrTooLarge)
	assert.Equal(t, scanner.FailureIO, res.Failures[1].Kind)
	assert.Equal(t, 1, res.Files)
}

func TestScan_Encodings(t *testing.T) {
	t.Parallel()

	_, files := writeFiles(t, map[string]string{
		"Bom.cs":    "\uFEFF" + olderSource,
		"Binary.cs": "MZ\x00\x00\x03",
	})

	res, err := newScanner(t, scanner.Config{}).Scan(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Files)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, scanner.FailureBinary, res.Failures[0].Kind)
	assert.Equal(t, 1, res.Counts.Get(langver.V8_0))
}

func TestScan_AllowPartial(t *testing.T) {
	t.Parallel()

	_, files := writeFiles(t, map[string]string{"Broken.cs": brokenSource})

	res, err := newScanner(t, scanner.Config{AllowPartial: true}).Scan(context.Background(), files)
	require.NoError(t, err)

	assert.Empty(t, res.Failures)
	assert.Equal(t, 1, res.Files)
	require.Len(t, res.Partial, 1)
	assert.Equal(t, scanner.FailurePartial, res.Partial[0].Kind)
}

func TestScan_Cancelled(t *testing.T) {
	t.Parallel()

	_, files := writeFiles(t, map[string]string{"A.cs": modernSource})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newScanner(t, scanner.Config{FileTimeout: time.Second}).Scan(ctx, files)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Failures)
}

type staticWorkspace []string

func (w staticWorkspace) Resolve(context.Context, string) ([]string, error) {
	return w, nil
}

func TestScanDir(t *testing.T) {
	t.Parallel()

	dir, files := writeFiles(t, map[string]string{"A.cs": modernSource})

	res, err := newScanner(t, scanner.Config{}).ScanDir(context.Background(), staticWorkspace(files), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counts.Total())
}
