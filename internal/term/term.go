// Package term provides ANSI color state and terminal detection.
//
// Colors are package-level variables because the banner and the logger both
// need them. [Configure] sets them once during startup; when colors are
// disabled the variables are empty strings, making string concatenation a
// no-op.
package term

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/backmassage/downscaler/internal/config"
)

// ANSI color codes. Empty when colors are disabled.
var (
	Green   = ""
	Yellow  = ""
	Cyan    = ""
	Magenta = ""
	NC      = "" // Reset sequence.
)

// Configure resolves the color mode against out and sets the package-level
// ANSI variables. It returns the matching hclog color option.
func Configure(mode config.ColorMode, out *os.File) hclog.ColorOption {
	if !resolve(mode, out) {
		Green, Yellow, Cyan, Magenta, NC = "", "", "", "", ""
		return hclog.ColorOff
	}
	Green = "\033[1;92m"
	Yellow = "\033[1;93m"
	Cyan = "\033[1;96m"
	Magenta = "\033[1;95m"
	NC = "\033[0m"
	return hclog.ForceColor
}

// resolve determines whether colors should be enabled based on the configured
// mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func resolve(mode config.ColorMode, out *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(out) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
