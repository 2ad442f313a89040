package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/internal/workspace"
)

func layout(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}

	return root
}

func rels(t *testing.T, root string, files []string) []string {
	t.Helper()

	out := make([]string, 0, len(files))

	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)

		out = append(out, filepath.ToSlash(rel))
	}

	return out
}

func TestResolve_FiltersNonSourceAndBuildOutput(t *testing.T) {
	t.Parallel()

	root := layout(t, map[string]string{
		"App/Program.cs":           "class P {}",
		"App/obj/Debug/Gen.cs":     "class G {}",
		"App/bin/Out.cs":           "class O {}",
		"Lib/Util.cs":              "class U {}",
		"Lib/README.md":            "# docs",
		"Lib/Tests/UtilTests.cs":   "class T {}",
		".git/hooks/Hook.cs":       "class H {}",
		"vendor/Third/Library.cs":  "class V {}",
		"Scripts/build.csx":        "// script",
		"Lib/Generated/Model.g.cs": "class M {}",
	})

	r := &workspace.Resolver{Exclude: []string{"*.g.cs", "Lib/Tests"}}

	files, err := r.Resolve(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"App/Program.cs", "Lib/Util.cs"}, rels(t, root, files))
}

func TestResolve_SolutionOnly(t *testing.T) {
	t.Parallel()

	sln := `Microsoft Visual Studio Solution File, Format Version 12.00
Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "src\App\App.csproj", "{11111111-1111-1111-1111-111111111111}"
EndProject
`

	root := layout(t, map[string]string{
		"Demo.sln":            sln,
		"src/App/App.csproj":  "<Project />",
		"src/App/Program.cs":  "class P {}",
		"src/Other/Stray.cs":  "class S {}",
		"samples/Example.cs":  "class E {}",
	})

	projects, err := workspace.SolutionProjects(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App"}, projects)

	r := &workspace.Resolver{SolutionOnly: true}

	files, err := r.Resolve(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App/Program.cs"}, rels(t, root, files))
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	root := layout(t, map[string]string{"A.cs": "class A {}"})

	_, err := (&workspace.Resolver{}).Resolve(context.Background(), filepath.Join(root, "A.cs"))
	require.ErrorIs(t, err, workspace.ErrNotDirectory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = (&workspace.Resolver{}).Resolve(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
}
