// Package naming maps source files to their destination paths and detects
// two sources claiming the same destination.
//
//   - MirrorPath(destRoot, rel, container): same relative directories and
//     file stem under destRoot, extension replaced (outputpath.go)
//   - WorkingPath(out): in-progress name renamed into place on success
//   - CollisionResolver: in-run owner map; the first source to claim a
//     destination keeps it (collision.go)
package naming
