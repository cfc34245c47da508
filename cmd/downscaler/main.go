// Command downscaler is the CLI entrypoint for the downscaler batch
// transcoder.
//
// It parses flags, validates configuration and paths, and either runs
// system diagnostics (--check) or the encode pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/downscaler/internal/check"
	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/display"
	"github.com/backmassage/downscaler/internal/logging"
	"github.com/backmassage/downscaler/internal/metrics"
	"github.com/backmassage/downscaler/internal/pipeline"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so parse and
	// validation errors go directly to stderr.
	cfg := config.DefaultConfig()
	code := 0
	cmd := config.NewCommand(&cfg, version, func(*cobra.Command) error {
		code = execute(&cfg)
		return nil
	})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "downscaler: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'downscaler --help' for usage.")
		return 1
	}
	return code
}

// execute runs with a finalized, validated config and returns the exit code.
func execute(cfg *config.Config) int {
	log, err := logging.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "downscaler: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available; all output goes through log from here on.
	display.PrintBanner(os.Stderr)
	log.Info("downscaler", "version", version, "commit", commit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CheckOnly {
		if !check.RunCheck(ctx, cfg, log) {
			return 1
		}
		return 0
	}

	// Resolve and validate paths: source must be a directory, destination is
	// created if needed, and destination must not be inside source.
	sourceAbs, err := absPath(cfg.SourceDir)
	if err != nil {
		log.Error("source not found", "path", cfg.SourceDir, "error", err)
		return 1
	}
	if fi, err := os.Stat(sourceAbs); err != nil || !fi.IsDir() {
		log.Error("source is not a directory", "path", cfg.SourceDir)
		return 1
	}
	if !cfg.DryRun {
		if err := os.MkdirAll(cfg.DestinationDir, 0o755); err != nil {
			log.Error("cannot create destination directory", "path", cfg.DestinationDir, "error", err)
			return 1
		}
	}
	destAbs, err := absPath(cfg.DestinationDir)
	if err != nil {
		log.Error("cannot resolve destination path", "path", cfg.DestinationDir, "error", err)
		return 1
	}
	if err := cfg.ValidatePaths(sourceAbs, destAbs); err != nil {
		log.Error(err.Error(), "source", sourceAbs, "destination", destAbs)
		return 1
	}
	cfg.SourceDir, cfg.DestinationDir = sourceAbs, destAbs

	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written")
	} else {
		if cfg.StageLocal {
			if err := os.MkdirAll(cfg.StageDir, 0o755); err != nil {
				log.Error("cannot create staging directory", "path", cfg.StageDir, "error", err)
				return 1
			}
		}
		// Fail fast if ffmpeg or libx265 is unavailable.
		if err := check.CheckDeps(ctx, cfg); err != nil {
			log.Error("dependency check failed", "error", err)
			return 1
		}
	}

	// Phase 3: Signal handling. Cancel the context on SIGINT/SIGTERM so the
	// pipeline stops the current encode and removes partial output.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("received interrupt, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Phase 4: Run pipeline (discover → plan → stage → encode).
	rec := metrics.NewRecorder()
	stats, runErr := pipeline.Run(ctx, cfg, cfg.Resolver(), log, rec)

	if cfg.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("cannot write metrics file", "path", cfg.MetricsFile, "error", err)
		} else {
			log.Debug("metrics written", "path", cfg.MetricsFile)
		}
	}

	if runErr != nil {
		log.Error("run aborted", "error", runErr)
		return 1
	}
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of source vs destination hierarchies. A path that does not exist yet (a
// dry-run destination) is returned absolute with its existing parent
// resolved.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent, base := filepath.Split(abs)
	if parent == abs || base == "" {
		return "", err
	}
	rp, perr := absPath(filepath.Clean(parent))
	if perr != nil {
		return "", perr
	}
	return filepath.Join(rp, base), nil
}
