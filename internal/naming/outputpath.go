package naming

import (
	"path/filepath"
	"strings"

	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/override"
)

// WorkingSuffix is appended to a destination while it is being written.
const WorkingSuffix = ".working"

// MirrorPath builds the destination path for a source file at rel (relative
// to the source root). Directories and the file stem are kept; only the
// extension changes to the container's.
//
//	movies/kids/cartoon.mkv -> <destRoot>/movies/kids/cartoon.mp4
func MirrorPath(destRoot string, rel override.Path, container config.Container) string {
	name := rel.Name()
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := make([]string, 0, len(rel)+1)
	parts = append(parts, destRoot)
	parts = append(parts, rel.Dirs()...)
	parts = append(parts, stem+"."+string(container))
	return filepath.Join(parts...)
}

// WorkingPath returns the in-progress path for a destination.
func WorkingPath(out string) string {
	return out + WorkingSuffix
}
