package ffmpeg

import (
	"fmt"
	"regexp"
	"strings"
)

// Reason categorizes why an encode failed.
type Reason string

const (
	ReasonInputUnreadable    Reason = "input unreadable"
	ReasonEncoderUnavailable Reason = "encoder unavailable"
	ReasonInvalidFilter      Reason = "invalid filter"
	ReasonDiskFull           Reason = "disk full"
	ReasonInterrupted        Reason = "interrupted"
	ReasonUnknown            Reason = "unknown"
)

// Pre-compiled regexes for classifying ffmpeg stderr output. Checked in the
// order of classifiers; the first match wins.
var (
	reDiskFull = regexp.MustCompile(
		`(?i)No space left on device|Disk quota exceeded`)

	reEncoderUnavailable = regexp.MustCompile(
		`(?i)Unknown encoder|Encoder not found|` +
			`Error while opening encoder|Unrecognized option 'x265-params'`)

	reInvalidFilter = regexp.MustCompile(
		`(?i)Error (initializing|reinitializing) filters?|` +
			`No such filter|Error parsing (a )?filter|Invalid argument.*filter|` +
			`Failed to configure (output|input) pad`)

	reInputUnreadable = regexp.MustCompile(
		`(?i)No such file or directory|Invalid data found when processing input|` +
			`moov atom not found|Permission denied|could not find codec parameters|` +
			`EBML header parsing failed`)

	reInterrupted = regexp.MustCompile(
		`(?i)Exiting normally, received signal|received signal \d+|Immediate exit requested`)
)

var classifiers = []struct {
	re     *regexp.Regexp
	reason Reason
}{
	{reInterrupted, ReasonInterrupted},
	{reDiskFull, ReasonDiskFull},
	{reEncoderUnavailable, ReasonEncoderUnavailable},
	{reInvalidFilter, ReasonInvalidFilter},
	{reInputUnreadable, ReasonInputUnreadable},
}

// Classify returns the Reason for a failed run from its stderr.
func Classify(stderr string) Reason {
	for _, c := range classifiers {
		if c.re.MatchString(stderr) {
			return c.reason
		}
	}
	return ReasonUnknown
}

// EncodeError reports a failed ffmpeg run for one input file.
type EncodeError struct {
	Input    string
	ExitCode int // -1 when the process did not exit normally
	Reason   Reason
	Stderr   string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %s (exit %d)", e.Input, e.Reason, e.ExitCode)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Tail returns the last n non-empty lines of stderr.
func (e *EncodeError) Tail(n int) []string {
	s := strings.TrimSpace(e.Stderr)
	if s == "" || n <= 0 {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
