package pipeline

import (
	"errors"
	"fmt"
)

// ErrOutsideRoot is wrapped by PathError when a symlink resolves outside
// the source root.
var ErrOutsideRoot = errors.New("resolves outside the source root")

// ErrInsufficientSpace is returned when the destination or staging
// filesystem has less free space than the source file's size.
var ErrInsufficientSpace = errors.New("insufficient free space")

// TraversalError reports a directory that could not be read during
// discovery. It aborts the run.
type TraversalError struct {
	Dir string
	Err error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("traverse %s: %v", e.Dir, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// PathError reports a discovered path that cannot be mapped into the
// destination tree. It aborts the run.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }
