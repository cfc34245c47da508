package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/downscaler/internal/override"
)

// SourceFile is one discovered input.
type SourceFile struct {
	Path    string        // Path under the resolved source root.
	RelPath string        // OS-specific path relative to the root.
	Rel     override.Path // RelPath split into components.
	Size    int64
}

// Discover walks root (after resolving symlinks in it), collects regular files whose extension (lowercase,
// without dot) is in exts, and returns them sorted by relative path.
//
// Symlinked files are followed when their target lies inside root;
// otherwise a *PathError is returned. Symlinked directories are not
// descended. Any unreadable directory returns a *TraversalError.
func Discover(root string, exts []string) ([]SourceFile, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &TraversalError{Dir: root, Err: err}
	}
	if fi, err := os.Stat(realRoot); err != nil {
		return nil, &TraversalError{Dir: root, Err: err}
	} else if !fi.IsDir() {
		return nil, &TraversalError{Dir: root, Err: errors.New("not a directory")}
	}

	var files []SourceFile
	err = filepath.WalkDir(realRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &TraversalError{Dir: path, Err: err}
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), "."))
		if !want[ext] {
			return nil
		}

		var info fs.FileInfo
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			info, err = followLink(path, realRoot)
			if err != nil {
				return err
			}
			if info == nil {
				return nil
			}
		case d.Type().IsRegular():
			info, err = d.Info()
			if err != nil {
				return &PathError{Path: path, Err: err}
			}
		default:
			return nil
		}

		rel, err := filepath.Rel(realRoot, path)
		if err != nil {
			return &PathError{Path: path, Err: err}
		}
		files = append(files, SourceFile{
			Path:    path,
			RelPath: rel,
			Rel:     override.SplitPath(rel),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Rel.String() < files[j].Rel.String()
	})
	return files, nil
}

// followLink resolves a symlinked file. It returns nil info when the target
// is not a regular file (a directory, device, or socket), and a *PathError
// when the link is broken or escapes realRoot.
func followLink(path, realRoot string) (fs.FileInfo, error) {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	if !within(realRoot, target) {
		return nil, &PathError{Path: path, Err: ErrOutsideRoot}
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return info, nil
}

// within reports whether path is root or lies below it. Both must be clean.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
