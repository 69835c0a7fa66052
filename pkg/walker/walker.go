// Package walker enumerates source files below a root directory, lazily and
// in a deterministic depth-first order, pruning directories by name.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/src-d/enry/v2"
)

var (
	// ErrRootNotFound is returned when the walk root does not exist.
	ErrRootNotFound = errors.New("walk root not found")
	// ErrRootNotDir is returned when the walk root is not a directory.
	ErrRootNotDir = errors.New("walk root is not a directory")
	// ErrBadPattern is returned for a malformed directory glob.
	ErrBadPattern = errors.New("invalid directory pattern")
)

// DefaultExcludeDirs are the virtual-environment and IDE directories skipped
// when indexing a Python project.
var DefaultExcludeDirs = []string{".venv", "venv", "idea", ".idea"} //nolint:gochecknoglobals // fixed filter

// DefaultExtensions selects Python sources.
var DefaultExtensions = []string{".py"} //nolint:gochecknoglobals // fixed filter

// Filter selects which directories are descended and which files are yielded.
type Filter struct {
	// Dirs are directory names or doublestar globs matched against a
	// directory's base name. Empty disables directory filtering.
	Dirs []string
	// DirsExclude turns Dirs into an exclusion list; otherwise only matching
	// directories are descended.
	DirsExclude bool
	// Extensions are file-name suffixes. Empty admits every file.
	Extensions []string
	// ExtensionsExclude turns Extensions into an exclusion list.
	ExtensionsExclude bool
	// SkipVendored also prunes directories recognised as vendored code.
	SkipVendored bool
}

// PythonSources is the filter used to index a Python project.
func PythonSources() Filter {
	return Filter{
		Dirs:        slices.Clone(DefaultExcludeDirs),
		DirsExclude: true,
		Extensions:  slices.Clone(DefaultExtensions),
	}
}

// Walk returns a single-use sequence of file paths below root. Paths are
// root-joined, so an absolute root yields absolute paths. A directory that
// cannot be read is yielded as a non-nil error and ends the sequence.
// Symbolic links to directories are not followed.
func Walk(root string, f Filter) (iter.Seq2[string, error], error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, root, err)
		}

		return nil, fmt.Errorf("stat root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}

	for _, pattern := range f.Dirs {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	seq := func(yield func(string, error) bool) {
		walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				yield(path, fmt.Errorf("walk %s: %w", path, err))

				return filepath.SkipAll
			}

			if entry.IsDir() {
				if path != root && !f.descend(root, path, entry.Name()) {
					return filepath.SkipDir
				}

				return nil
			}

			if entry.Type()&fs.ModeSymlink != 0 && isDirLink(path) {
				return nil
			}

			if !f.Admits(entry.Name()) {
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}

			return nil
		})
		if walkErr != nil {
			yield(root, walkErr)
		}
	}

	return seq, nil
}

// Collect drains a walk into a slice, stopping at the first error.
func Collect(root string, f Filter) ([]string, error) {
	seq, err := Walk(root, f)
	if err != nil {
		return nil, err
	}

	var files []string

	for path, walkErr := range seq {
		if walkErr != nil {
			return nil, walkErr
		}

		files = append(files, path)
	}

	return files, nil
}

// Descends reports whether a directory with the given name passes the
// directory filter. Used by watchers that track the same tree.
func (f Filter) Descends(name string) bool {
	if len(f.Dirs) == 0 {
		return true
	}

	return f.matchesDir(name) != f.DirsExclude
}

func (f Filter) descend(root, path, name string) bool {
	if !f.Descends(name) {
		return false
	}

	if !f.SkipVendored {
		return true
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}

	return !enry.IsVendor(filepath.ToSlash(rel) + "/")
}

func (f Filter) matchesDir(name string) bool {
	for _, pattern := range f.Dirs {
		if pattern == name {
			return true
		}

		ok, err := doublestar.Match(pattern, name)
		if err == nil && ok {
			return true
		}
	}

	return false
}

// Admits reports whether a file with the given name passes the extension filter.
func (f Filter) Admits(name string) bool {
	if len(f.Extensions) == 0 {
		return true
	}

	hit := slices.ContainsFunc(f.Extensions, func(ext string) bool {
		return strings.HasSuffix(name, ext)
	})

	return hit != f.ExtensionsExclude
}

func isDirLink(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
