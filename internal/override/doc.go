// Package override resolves the target output height for a file from a set
// of directory-scoped rules and an optional default.
//
// A rule applies to every file below its directory. Directories are matched
// as whole path components anchored at the source root, so a rule for "tv"
// covers "tv/kids/a.mkv" but not "tvfish/a.mkv" or "movies/tv/a.mkv". When
// several rules match, the one with the most components wins:
//
//	movies        -> 1080
//	movies/kids   -> 480
//
//	movies/drama.mkv         -> 1080
//	movies/kids/cartoon.mkv  -> 480
//	other/file.mkv           -> default (or no scaling)
//
// A [Resolver] is immutable once built and safe for concurrent use.
package override
