package override

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rule caps the output height of every file below Prefix.
type Rule struct {
	Prefix []string // Directory components relative to the source root; never empty.
	Height int      // Maximum output height in pixels; always > 0.
}

// Dir returns the rule's prefix joined with "/".
func (r Rule) Dir() string {
	return strings.Join(r.Prefix, "/")
}

// String formats the rule the way it is written on the command line.
func (r Rule) String() string {
	return r.Dir() + ":" + strconv.Itoa(r.Height)
}

var (
	ErrMissingSeparator = errors.New("expected DIR:HEIGHT")
	ErrEmptyDir         = errors.New("directory must not be empty")
	ErrParentDir        = errors.New("directory must not contain '..'")
	ErrInvalidHeight    = errors.New("height must be a positive whole number")
)

// ParseError reports a malformed DIR:HEIGHT value.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid override %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseRule parses a DIR:HEIGHT value. The value is split on its last colon
// so directory names may themselves contain colons. DIR is "/"-separated and
// relative to the source root; empty and "." components are dropped.
func ParseRule(s string) (Rule, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return Rule{}, &ParseError{Value: s, Err: ErrMissingSeparator}
	}

	prefix, err := SplitDir(s[:i])
	if err != nil {
		return Rule{}, &ParseError{Value: s, Err: err}
	}

	height, err := ParseHeight(s[i+1:])
	if err != nil {
		return Rule{}, &ParseError{Value: s, Err: err}
	}
	return Rule{Prefix: prefix, Height: height}, nil
}

// ParseHeight parses a positive pixel height.
func ParseHeight(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, ErrInvalidHeight
	}
	return n, nil
}

// SplitDir splits a relative directory into components. Both "/" and "\"
// separate components.
func SplitDir(dir string) ([]string, error) {
	fields := strings.FieldsFunc(dir, func(r rune) bool { return r == '/' || r == '\\' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case ".":
			continue
		case "..":
			return nil, ErrParentDir
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, ErrEmptyDir
	}
	return out, nil
}
