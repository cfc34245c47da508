package override

import (
	"path/filepath"
	"strings"
)

// Path is a file path relative to the source root, split into components:
// the directories leading to the file followed by the file name.
type Path []string

// SplitPath splits an OS-specific relative path (as returned by
// filepath.Rel) into a Path.
func SplitPath(rel string) Path {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == "" {
		return nil
	}
	return Path(strings.Split(rel, "/"))
}

// Dirs returns the directory components, excluding the file name.
func (p Path) Dirs() []string {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Name returns the final component, or "" for an empty path.
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// hasPrefix reports whether prefix matches the leading whole components of dirs.
func hasPrefix(dirs, prefix []string) bool {
	if len(prefix) == 0 || len(prefix) > len(dirs) {
		return false
	}
	for i := range prefix {
		if dirs[i] != prefix[i] {
			return false
		}
	}
	return true
}
