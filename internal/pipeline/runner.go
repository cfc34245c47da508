package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/downscaler/internal/check"
	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/display"
	"github.com/backmassage/downscaler/internal/ffmpeg"
	"github.com/backmassage/downscaler/internal/logging"
	"github.com/backmassage/downscaler/internal/metrics"
	"github.com/backmassage/downscaler/internal/naming"
	"github.com/backmassage/downscaler/internal/override"
	"github.com/backmassage/downscaler/internal/planner"
)

// stderrTailLines is how much ffmpeg stderr is logged for a failed encode.
const stderrTailLines = 20

// fileOutcome is the result of processing one file.
type fileOutcome struct {
	result   string // metrics.ResultEncoded, ResultSkipped or ResultFailed
	inBytes  int64
	outBytes int64
	scaled   bool
	elapsed  time.Duration
}

// Run is the top-level batch entry point. It discovers every file first,
// then processes them sequentially and returns aggregate stats.
//
// The returned error is non-nil when discovery failed (*TraversalError or
// *PathError), when the context was cancelled, or when a file failed with
// cfg.FailFast set. Per-file failures in continue mode are counted in
// RunStats.Failed and do not produce an error.
func Run(
	ctx context.Context,
	cfg *config.Config,
	res *override.Resolver,
	log *logging.Logger,
	rec *metrics.Recorder,
) (RunStats, error) {
	var stats RunStats
	start := time.Now()
	if rec == nil {
		rec = metrics.NewRecorder()
	}

	files, err := Discover(cfg.SourceDir, cfg.Extensions)
	if err != nil {
		log.Error("file discovery failed", "error", err)
		rec.RunFinished(time.Now(), time.Since(start), false)
		return stats, err
	}

	stats.Total = len(files)
	collisions := naming.NewCollisionResolver()

	logBatchHeader(cfg, res, log, &stats)

	var runErr error
	for i, src := range files {
		if ctx.Err() != nil {
			log.Warn("interrupted", "remaining", len(files)-i)
			runErr = ctx.Err()
			break
		}
		stats.Current = i + 1

		out, err := processFile(ctx, cfg, res, log, src, &stats, collisions)
		switch out.result {
		case metrics.ResultEncoded:
			stats.Encoded++
			if out.scaled {
				stats.Scaled++
			}
			stats.TotalInputBytes += out.inBytes
			stats.TotalOutputBytes += out.outBytes
			rec.FileEncoded(out.inBytes, out.outBytes, out.scaled, out.elapsed)
			continue
		case metrics.ResultSkipped:
			stats.Skipped++
			rec.FileSkipped()
			continue
		}

		if ctx.Err() != nil {
			log.Warn("interrupted", "file", src.RelPath, "remaining", len(files)-i-1)
			runErr = ctx.Err()
			break
		}
		stats.Failed++
		rec.FileFailed()
		logFailure(log, src, err)
		if cfg.FailFast {
			log.Error("aborting run after failure (--fail-fast)")
			runErr = fmt.Errorf("%s: %w", src.RelPath, err)
			break
		}
	}

	logSummary(cfg, log, &stats)
	rec.RunFinished(time.Now(), time.Since(start), runErr == nil && stats.Failed == 0)
	return stats, runErr
}

// processFile handles one source file: mirror path → skip checks → plan →
// free space → encode. On failure it returns ResultFailed with the error;
// the caller decides whether the run continues.
func processFile(
	ctx context.Context,
	cfg *config.Config,
	res *override.Resolver,
	log *logging.Logger,
	src SourceFile,
	stats *RunStats,
	collisions *naming.CollisionResolver,
) (fileOutcome, error) {
	failed := fileOutcome{result: metrics.ResultFailed}

	// --- Resolve output path and plan ---
	outputPath := naming.MirrorPath(cfg.DestinationDir, src.Rel, cfg.OutputContainer)
	plan := planner.BuildPlan(cfg, res, src.Path, outputPath, src.Rel,
		skipReason(cfg, log, collisions, src, outputPath))

	log.Info(fmt.Sprintf("[%d/%d] %s", stats.Current, stats.Total, plan.RelPath),
		"height", display.FormatHeight(plan.Height, plan.Scaled))

	if plan.Action == planner.ActionSkip {
		log.Info("skip: "+plan.SkipReason, "output", outputPath)
		return fileOutcome{result: metrics.ResultSkipped}, nil
	}

	// --- Dry-run ---
	if cfg.DryRun {
		args := ffmpeg.Build(cfg, plan, plan.InputPath, naming.WorkingPath(outputPath))
		log.Info("[dry run] would encode", "output", outputPath, "command", strings.Join(args, " "))
		return fileOutcome{result: metrics.ResultEncoded, scaled: plan.Scaled}, nil
	}

	// --- Create output directory ---
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return failed, fmt.Errorf("create output directory: %w", err)
	}

	// --- Free space ---
	if cfg.CheckFreeSpace {
		if err := ensureSpace(ctx, cfg, log, src, outputPath); err != nil {
			return failed, err
		}
	}

	// --- Encode ---
	log.Debug("encoding", "input", src.Path, "output", outputPath, "filter", plan.VideoFilters)
	start := time.Now()
	if err := encode(ctx, cfg, plan, log); err != nil {
		return failed, err
	}
	elapsed := time.Since(start)

	var outSize int64
	if fi, err := os.Stat(outputPath); err == nil {
		outSize = fi.Size()
	}
	ratio := int64(100)
	if src.Size > 0 {
		ratio = outSize * 100 / src.Size
	}
	log.Info("encoded",
		"elapsed", elapsed.Round(time.Second).String(),
		"size", display.FormatBytes(outSize),
		"ratio", fmt.Sprintf("%d%%", ratio))

	return fileOutcome{
		result:   metrics.ResultEncoded,
		inBytes:  src.Size,
		outBytes: outSize,
		scaled:   plan.Scaled,
		elapsed:  elapsed,
	}, nil
}

// skipReason returns why src should not be encoded, or "" to encode it.
// The first source to claim an output keeps it; later ones are skipped.
func skipReason(cfg *config.Config, log *logging.Logger, collisions *naming.CollisionResolver, src SourceFile, outputPath string) string {
	if owner, ok := collisions.Claim(src.Path, outputPath); !ok {
		log.Warn("destination collision", "file", src.Path, "owner", owner, "output", outputPath)
		return "output already claimed by " + owner
	}
	if cfg.SkipExisting {
		if _, err := os.Stat(outputPath); err == nil {
			return "output exists"
		}
	}
	return ""
}

// spaceNeeds returns the bytes each directory must have free to encode a
// source of size bytes. The staging directory holds the input copy and the
// encoded output at once.
func spaceNeeds(cfg *config.Config, size int64, outputPath string) map[string]int64 {
	size = max(size, 0)
	needs := map[string]int64{filepath.Dir(outputPath): size}
	if cfg.StageLocal {
		needs[cfg.StageDir] += 2 * size
	}
	return needs
}

// ensureSpace checks every directory in spaceNeeds against its free space.
// A failed query is logged and ignored.
func ensureSpace(ctx context.Context, cfg *config.Config, log *logging.Logger, src SourceFile, outputPath string) error {
	for dir, need := range spaceNeeds(cfg, src.Size, outputPath) {
		free, err := check.FreeSpace(ctx, dir)
		if err != nil {
			log.Warn("free space check failed", "path", dir, "error", err)
			continue
		}
		if free < uint64(need) {
			return fmt.Errorf("%w in %s: need %s, have %s", ErrInsufficientSpace, dir,
				display.FormatBytes(need), display.FormatBytes(int64(free)))
		}
	}
	return nil
}

func logFailure(log *logging.Logger, src SourceFile, err error) {
	log.Error("failed", "file", src.Path, "error", err)
	var ee *ffmpeg.EncodeError
	if !errors.As(err, &ee) {
		return
	}
	tail := ee.Tail(stderrTailLines)
	if len(tail) == 0 {
		return
	}
	log.Error("last ffmpeg output:")
	for _, l := range tail {
		log.Error("  " + l)
	}
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, res *override.Resolver, log *logging.Logger, stats *RunStats) {
	log.Info("found files", "count", stats.Total, "source", cfg.SourceDir, "destination", cfg.DestinationDir)
	log.Info("encoder",
		"codec", cfg.VideoCodec, "crf", cfg.CRF, "preset", cfg.Preset,
		"container", strings.ToUpper(string(cfg.OutputContainer)))

	if res != nil {
		h, ok := res.Default()
		log.Info("default height", "height", display.FormatHeight(h, ok))
		for _, r := range res.Rules() {
			log.Info("override", "dir", r.Dir(), "height", display.FormatHeight(r.Height, true))
		}
		for _, r := range res.Shadowed() {
			log.Warn("override replaced by a later one for the same directory", "dir", r.Dir(), "height", r.Height)
		}
	}

	if p := log.FilePath(); p != "" {
		log.Info("log file", "path", p)
	}
	if cfg.FailFast {
		log.Info("failure policy: abort on first failure")
	} else {
		log.Info("failure policy: continue with next file")
	}
	if cfg.StageLocal {
		log.Info("staging", "dir", cfg.StageDir)
	}
	if !cfg.SkipExisting {
		log.Info("existing outputs will be overwritten")
	}
	if cfg.DryRun {
		log.Info("dry run: nothing will be written")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("done", "encoded", stats.Encoded, "scaled", stats.Scaled, "skipped", stats.Skipped, "failed", stats.Failed,
		"processed", stats.Current, "total", stats.Total)

	if cfg.DryRun {
		log.Info("total space saved: n/a (dry run)")
		return
	}

	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Info("total space saved",
			"saved", display.FormatBytes(saved),
			"input", display.FormatBytes(stats.TotalInputBytes),
			"output", display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("overall output is larger", "grew", display.FormatBytesWithSign(-saved))
	}
}
