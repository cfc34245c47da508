// Package pipeline orchestrates file discovery, per-file processing, and
// batch summary reporting.
//
// Discovery walks the whole source tree before anything is encoded, so a
// traversal failure aborts the run with no output written. Files are then
// processed one at a time in relative-path order. A per-file failure is
// logged and the run continues, unless Config.FailFast is set.
package pipeline
