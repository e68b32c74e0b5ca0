// Package paths provides path normalization helpers shared by the indexer
// and the architecture analyzer. All persisted file paths are absolute and
// slash-normalized so that project membership can be decided by prefix match.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Absolutize converts a path to its absolute, cleaned form. Symlinks are
// resolved when the target exists; a missing file keeps its lexical path so
// unresolved include targets can still be recorded as raw text.
func Absolutize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", err
	}
	return resolved, nil
}

// WithinRoot reports whether path is root itself or lies underneath it.
// This is the project-membership test: stored rows carry absolute paths and
// a file belongs to a project when its path prefix-matches the project root.
func WithinRoot(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(os.PathSeparator))
}

// RelativeTo makes path relative to root, falling back to the basename when
// the two share no common prefix (different volumes on Windows).
func RelativeTo(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return rel
}

// FirstSegment returns the first path segment of a relative path, or ""
// when the path has no directory component. Used by module auto-detection.
func FirstSegment(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// Normalize converts backslashes to forward slashes for pattern matching.
func Normalize(path string) string {
	return filepath.ToSlash(path)
}
