// Package config holds runtime configuration: defaults, CLI flag parsing,
// the optional YAML config file, and validation. Encoder defaults are
// libx265, CRF 28, preset fast, audio copied.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/backmassage/downscaler/internal/override"
)

// Container is the output container format.
type Container string

const (
	ContainerMP4 Container = "mp4" // MP4 (default).
	ContainerMKV Container = "mkv" // Matroska.
)

// Muxer returns the ffmpeg muxer name for the container.
func (c Container) Muxer() string {
	if c == ContainerMKV {
		return "matroska"
	}
	return "mp4"
}

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stderr is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// LogLevelEnv names the environment variable that sets the log level.
const LogLevelEnv = "DOWNSCALER_LOG"

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by the config file and CLI flags (see [NewCommand]) before being
// passed by pointer to the packages that need it.
type Config struct {
	// Paths.
	SourceDir      string
	DestinationDir string
	ConfigFile     string // Optional YAML file (--config).

	// Scaling. DefaultHeight 0 means no default scaling.
	DefaultHeight int
	Overrides     []string        // Raw DIR:HEIGHT values, file entries first, then flags.
	Rules         []override.Rule // Parsed from Overrides by Finalize.

	// Encoder settings.
	FFmpegPath      string    // Default: "ffmpeg".
	VideoCodec      string    // Fixed: "libx265".
	CRF             int       // Default: 28.
	Preset          string    // Default: "fast".
	X265Params      string    // Fixed: "log-level=error".
	OutputContainer Container // Default: "mp4".

	// Discovery.
	Extensions []string // Lowercase, without dot. Default: mkv, mp4.

	// Behavior flags.
	DryRun         bool
	SkipExisting   bool   // Default: true. Cleared by --force.
	FailFast       bool   // Abort the run on the first per-file failure.
	StageLocal     bool   // Default: true. Cleared by --no-stage.
	StageDir       string // Default: os.TempDir().
	CheckFreeSpace bool   // Default: true. Cleared by --no-space-check.

	// Display and logging.
	Verbose     bool
	LogLevel    string    // Default: "info", or $DOWNSCALER_LOG.
	ColorMode   ColorMode // Default: "auto".
	LogFile     string    // Optional log file path.
	MetricsFile string    // Optional Prometheus textfile path.
	CheckOnly   bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before the config file and flags are applied.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:      "ffmpeg",
		VideoCodec:      "libx265",
		CRF:             28,
		Preset:          "fast",
		X265Params:      "log-level=error",
		OutputContainer: ContainerMP4,
		Extensions:      []string{"mkv", "mp4"},
		SkipExisting:    true,
		StageLocal:      true,
		StageDir:        os.TempDir(),
		CheckFreeSpace:  true,
		LogLevel:        "info",
		ColorMode:       ColorAuto,
	}
}

// ConfigError reports an invalid configuration value. It is returned before
// any file is processed.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// ParseOverrides parses DIR:HEIGHT values in order.
func ParseOverrides(values []string) ([]override.Rule, error) {
	rules := make([]override.Rule, 0, len(values))
	for _, v := range values {
		r, err := override.ParseRule(v)
		if err != nil {
			return nil, &ConfigError{Field: "--override", Value: v, Err: err}
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Resolver builds the override resolver from the parsed rules and default height.
func (c *Config) Resolver() *override.Resolver {
	return override.New(c.DefaultHeight, c.Rules...)
}

// Validate checks enum and numeric fields and, outside CheckOnly mode, that
// both directories are set. Extensions are normalized in place.
func (c *Config) Validate() error {
	switch c.OutputContainer {
	case ContainerMP4, ContainerMKV:
		// valid
	default:
		return &ConfigError{Field: "--container", Value: string(c.OutputContainer), Err: errors.New("use 'mp4' or 'mkv'")}
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return &ConfigError{Field: "color mode", Value: string(c.ColorMode), Err: errors.New("use 'auto', 'always' or 'never'")}
	}

	if c.CRF < 0 || c.CRF > 51 {
		return &ConfigError{Field: "--crf", Value: fmt.Sprint(c.CRF), Err: errors.New("must be between 0 and 51")}
	}
	if strings.TrimSpace(c.Preset) == "" {
		return &ConfigError{Field: "--preset", Err: errors.New("must not be empty")}
	}
	if c.DefaultHeight < 0 {
		return &ConfigError{Field: "--scale", Value: fmt.Sprint(c.DefaultHeight), Err: override.ErrInvalidHeight}
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return &ConfigError{Field: LogLevelEnv, Value: c.LogLevel, Err: errors.New("use trace, debug, info, warn or error")}
	}

	exts, err := normalizeExtensions(c.Extensions)
	if err != nil {
		return err
	}
	c.Extensions = exts

	if c.StageLocal && c.StageDir == "" {
		return &ConfigError{Field: "--temp-dir", Err: errors.New("must not be empty when staging is enabled")}
	}

	if c.CheckOnly {
		return nil
	}
	if c.SourceDir == "" {
		return &ConfigError{Field: "--source", Err: errors.New("required")}
	}
	if c.DestinationDir == "" {
		return &ConfigError{Field: "--destination", Err: errors.New("required")}
	}
	return nil
}

// normalizeExtensions lowercases, strips leading dots, and drops duplicates.
func normalizeExtensions(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, &ConfigError{Field: "--ext", Err: errors.New("at least one extension is required")}
	}
	return out, nil
}

// ValidatePaths ensures the resolved destination directory is not inside (or
// equal to) the resolved source directory, which would make the walker
// discover its own output. Both arguments must be absolute, symlink-resolved
// paths.
func (c *Config) ValidatePaths(sourceAbs, destAbs string) error {
	sep := string(filepath.Separator)
	if destAbs == sourceAbs || strings.HasPrefix(destAbs+sep, sourceAbs+sep) {
		return errors.New("destination directory must not be inside source directory")
	}
	return nil
}
