// Package workspace resolves a checked-out working tree to the C# source
// files that belong to it.
package workspace

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/src-d/enry/v2"
)

// LanguageCSharp is the enry language name of C# sources.
const LanguageCSharp = "C#"

// ErrNotDirectory is returned when the root is not a directory.
var ErrNotDirectory = errors.New("workspace root is not a directory")

// skippedDirs are build output and metadata directories never scanned.
var skippedDirs = map[string]bool{
	".git": true, ".vs": true, "bin": true, "obj": true, "node_modules": true, "packages": true,
}

// projectLine matches a project entry of a .sln file:
// Project("{TYPE}") = "Name", "rel\path\Name.csproj", "{GUID}".
var projectLine = regexp.MustCompile(`^Project\("\{[^}]*\}"\)\s*=\s*"[^"]*",\s*"([^"]+\.csproj)"`)

// Resolver lists source files under a root directory.
type Resolver struct {
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the root and against base names.
	Exclude []string
	// SolutionOnly restricts files to the project directories listed in the
	// .sln files at the root, when there are any.
	SolutionOnly bool
	// IncludeVendored keeps paths enry classifies as vendored.
	IncludeVendored bool
}

// Resolve returns the sorted absolute paths of the C# files under root.
func (r *Resolver) Resolve(ctx context.Context, root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var projects []string

	if r.SolutionOnly {
		projects, err = SolutionProjects(root)
		if err != nil {
			return nil, err
		}
	}

	var files []string

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}

		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && r.skipDir(rel, d.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		if r.keep(rel, d.Name(), projects) {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	slices.Sort(files)

	return files, nil
}

func (r *Resolver) skipDir(rel, name string) bool {
	if skippedDirs[strings.ToLower(name)] {
		return true
	}

	if !r.IncludeVendored && enry.IsVendor(rel+"/") {
		return true
	}

	return r.excluded(rel, name)
}

func (r *Resolver) keep(rel, name string, projects []string) bool {
	if !isCSharp(name) || r.excluded(rel, name) {
		return false
	}

	if !r.IncludeVendored && enry.IsVendor(rel) {
		return false
	}

	if len(projects) == 0 {
		return true
	}

	for _, dir := range projects {
		if dir == "." || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}

	return false
}

func (r *Resolver) excluded(rel, name string) bool {
	for _, pattern := range r.Exclude {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}

		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

func isCSharp(name string) bool {
	if strings.EqualFold(filepath.Ext(name), ".cs") {
		return true
	}

	return enry.GetLanguage(name, nil) == LanguageCSharp
}

// SolutionProjects returns the slash-separated project directories, relative
// to root, listed by the .sln files directly under root.
func SolutionProjects(root string) ([]string, error) {
	slns, err := filepath.Glob(filepath.Join(root, "*.sln"))
	if err != nil {
		return nil, fmt.Errorf("find solutions: %w", err)
	}

	var dirs []string

	for _, sln := range slns {
		found, parseErr := parseSolution(sln)
		if parseErr != nil {
			return nil, parseErr
		}

		for _, d := range found {
			if !slices.Contains(dirs, d) {
				dirs = append(dirs, d)
			}
		}
	}

	slices.Sort(dirs)

	return dirs, nil
}

func parseSolution(sln string) ([]string, error) {
	f, err := os.Open(sln)
	if err != nil {
		return nil, fmt.Errorf("open solution: %w", err)
	}
	defer f.Close()

	var dirs []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m := projectLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}

		proj := strings.ReplaceAll(m[1], `\`, "/")
		dirs = append(dirs, path.Dir(path.Clean(proj)))
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read solution %s: %w", sln, err)
	}

	return dirs, nil
}
