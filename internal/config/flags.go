package config

// This file implements CLI flag parsing on top of cobra/pflag.
// Flags are grouped into paths, scaling, encoding, behavior, and display.
// Negated flags (e.g. --no-stage) are applied after parsing so Config
// defaults hold unless set; the config file fills in anything the command
// line left untouched.

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/backmassage/downscaler/internal/override"
)

// negatedFlags holds boolean flags that invert a default and are applied
// after parsing.
type negatedFlags struct {
	force        bool
	noStage      bool
	noSpaceCheck bool
	forceColor   bool
	noColor      bool
}

// NewCommand returns the root command with every flag bound to cfg. When
// the command runs, cfg is finalized (negated flags, environment, config
// file, override parsing) and validated before run is called.
func NewCommand(cfg *Config, version string, run func(cmd *cobra.Command) error) *cobra.Command {
	var n negatedFlags

	cmd := &cobra.Command{
		Use:   "downscaler --source DIR --destination DIR [flags]",
		Short: "Batch-transcode a video tree to HEVC, optionally capping resolution",
		Long: `downscaler re-encodes every video under --source to HEVC (libx265) and
writes it to the same relative path under --destination, replacing the
extension with the output container's.

--scale caps the output height for every file. --override DIR:HEIGHT caps
files below DIR (relative to --source); the most specific directory wins.
Videos are never upscaled.

The log level is read from $` + LogLevelEnv + ` (trace, debug, info, warn, error).`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := finalize(cfg, cmd.Flags(), &n); err != nil {
				return err
			}
			return run(cmd)
		},
	}

	fs := cmd.Flags()
	fs.SortFlags = false
	definePathFlags(fs, cfg)
	defineScaleFlags(fs, cfg)
	defineEncodingFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg, &n)
	defineDisplayFlags(fs, cfg, &n)
	return cmd
}

// definePathFlags registers -s/--source, -d/--destination, --config.
func definePathFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.SourceDir, "source", "s", "", "Root of the input tree (required)")
	fs.StringVarP(&cfg.DestinationDir, "destination", "d", "", "Root of the mirrored output tree (required)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "YAML config file; flags take precedence")
}

// defineScaleFlags registers --scale and the repeatable --override.
func defineScaleFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.DefaultHeight, "scale", 0, "Default maximum output height in pixels (omit for no scaling)")
	fs.StringArrayVar(&cfg.Overrides, "override", nil, "Maximum height for files below a directory, DIR:HEIGHT (repeatable)")
}

// defineEncodingFlags registers --container, --crf, --preset, --ffmpeg, --ext.
func defineEncodingFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Var(&containerValue{&cfg.OutputContainer}, "container", "Output container: mp4 | mkv")
	fs.IntVar(&cfg.CRF, "crf", cfg.CRF, "x265 constant rate factor (0-51)")
	fs.StringVar(&cfg.Preset, "preset", cfg.Preset, "x265 preset (e.g. fast, medium, slow)")
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg executable")
	fs.StringSliceVar(&cfg.Extensions, "ext", cfg.Extensions, "Source file extensions to transcode")
}

// defineBehaviorFlags registers dry-run, force, fail-fast, staging and space checks.
func defineBehaviorFlags(fs *pflag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not encode")
	fs.BoolVarP(&n.force, "force", "f", false, "Overwrite existing output files")
	fs.BoolVar(&cfg.FailFast, "fail-fast", false, "Abort the whole run on the first failed file")
	fs.BoolVar(&n.noStage, "no-stage", false, "Encode straight from the source into the destination (no local temp copy)")
	fs.StringVar(&cfg.StageDir, "temp-dir", cfg.StageDir, "Directory for staged temp copies")
	fs.BoolVar(&n.noSpaceCheck, "no-space-check", false, "Skip the free-space check before each encode")
}

// defineDisplayFlags registers verbose, color, log file, metrics file, --check.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output (debug logging, live ffmpeg output)")
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.StringVarP(&cfg.LogFile, "log", "l", "", "Append logs to file")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics for the run to this file")
	fs.BoolVarP(&cfg.CheckOnly, "check", "c", false, "Run system diagnostics and exit")
}

// finalize applies negated flags, the log level environment variable, and
// the config file, then parses overrides and validates cfg.
func finalize(cfg *Config, fs *pflag.FlagSet, n *negatedFlags) error {
	applyNegatedFlags(cfg, n)

	if v := strings.TrimSpace(os.Getenv(LogLevelEnv)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if cfg.Verbose && cfg.LogLevel != "trace" {
		cfg.LogLevel = "debug"
	}

	if fs.Changed("scale") && cfg.DefaultHeight <= 0 {
		return &ConfigError{Field: "--scale", Value: fmt.Sprint(cfg.DefaultHeight), Err: override.ErrInvalidHeight}
	}

	if cfg.ConfigFile != "" {
		if err := LoadFile(cfg.ConfigFile, cfg, fs.Changed); err != nil {
			return err
		}
	}

	cfg.SourceDir = NormalizeDirArg(cfg.SourceDir)
	cfg.DestinationDir = NormalizeDirArg(cfg.DestinationDir)

	rules, err := ParseOverrides(cfg.Overrides)
	if err != nil {
		return err
	}
	cfg.Rules = rules

	return cfg.Validate()
}

// applyNegatedFlags copies negated flag values into cfg (e.g. force -> SkipExisting=false).
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.force {
		cfg.SkipExisting = false
	}
	if n.noStage {
		cfg.StageLocal = false
	}
	if n.noSpaceCheck {
		cfg.CheckFreeSpace = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// containerValue adapts Container to pflag.Value.
type containerValue struct{ p *Container }

func (c *containerValue) String() string { return string(*c.p) }
func (c *containerValue) Type() string   { return "mp4|mkv" }
func (c *containerValue) Set(s string) error {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "mp4":
		*c.p = ContainerMP4
	case "mkv", "matroska":
		*c.p = ContainerMKV
	default:
		return errors.New("use 'mp4' or 'mkv'")
	}
	return nil
}
