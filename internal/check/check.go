// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation (CheckDeps) for ffmpeg and libx265, plus the
// free-space query used before each encode.
package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/display"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found")
	ErrCPUEncodeFailed = errors.New("libx265 test encode failed")
)

// testTimeout bounds each diagnostic ffmpeg run.
const testTimeout = 30 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// RunCheck runs the interactive --check flow: ffmpeg version, HEVC encoders,
// a libx265 test encode, host resources, and free space at the staging and
// destination directories. It reports whether ffmpeg and libx265 work.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	ok := checkFfmpeg(ctx, cfg, log)
	if ok {
		checkHEVCEncoders(ctx, cfg, log)
		ok = checkCPUx265(ctx, cfg, log)
	}
	checkHost(ctx, log)

	for _, dir := range []string{cfg.StageDir, cfg.DestinationDir} {
		if dir == "" {
			continue
		}
		free, err := FreeSpace(ctx, dir)
		if err != nil {
			log.Warn("free space unavailable", "path", dir, "error", err)
			continue
		}
		log.Info("free space", "path", dir, "free", display.FormatBytes(int64(free)))
	}
	return ok
}

// checkFfmpeg verifies the configured ffmpeg runs and logs its version string.
func checkFfmpeg(ctx context.Context, cfg *config.Config, log Logger) bool {
	path, err := exec.LookPath(cfg.FFmpegPath)
	if err != nil {
		log.Error("ffmpeg not found", "ffmpeg", cfg.FFmpegPath)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed", "ffmpeg", path, "error", err)
		return false
	}
	log.Info("ffmpeg found", "path", path, "version", firstLine(string(out)))
	return true
}

// checkHEVCEncoders lists all HEVC-related encoders reported by ffmpeg.
func checkHEVCEncoders(ctx context.Context, cfg *config.Config, log Logger) {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, cfg.FFmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		log.Warn("could not list encoders", "error", err)
		return
	}
	for _, line := range hevcEncoders(string(out)) {
		log.Info("HEVC encoder: " + line)
	}
}

// checkCPUx265 runs a minimal libx265 encode to verify CPU encoding works.
func checkCPUx265(ctx context.Context, cfg *config.Config, log Logger) bool {
	if runSilent(ctx, cfg.FFmpegPath, cpuTestArgs()...) {
		log.Info("libx265 test encode works")
		return true
	}
	log.Error("libx265 test encode failed")
	return false
}

// checkHost logs CPU count, memory, and load average.
func checkHost(ctx context.Context, log Logger) {
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		log.Info("host cpus", "logical", n)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		log.Info("host memory",
			"total", display.FormatBytes(int64(vm.Total)),
			"available", display.FormatBytes(int64(vm.Available)))
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		log.Info("host load", "1m", fmt.Sprintf("%.2f", avg.Load1), "5m", fmt.Sprintf("%.2f", avg.Load5))
	}
}

// CheckDeps is the pre-pipeline validation: it verifies that the configured
// ffmpeg is runnable and that a quick libx265 encode succeeds. Returns a
// sentinel error on failure.
func CheckDeps(ctx context.Context, cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFfmpegNotFound, cfg.FFmpegPath)
	}
	if !runSilent(ctx, cfg.FFmpegPath, cpuTestArgs()...) {
		return ErrCPUEncodeFailed
	}
	return nil
}

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem holding path.
func FreeSpace(ctx context.Context, path string) (uint64, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("disk usage %s: %w", path, err)
	}
	return u.Free, nil
}

// --- internal helpers ---

// cpuTestArgs returns the ffmpeg arguments for a minimal libx265 test encode.
// Shared by checkCPUx265 and CheckDeps to avoid duplicating the argument list.
func cpuTestArgs() []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", "libx265", "-x265-params", "log-level=error",
		"-vf", "scale=-2:'min(144,ih)'",
		"-f", "null", "-",
	}
}

// hevcEncoders filters `ffmpeg -encoders` output down to HEVC encoder lines.
func hevcEncoders(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "hevc") || strings.Contains(lower, "265") {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		return s[:idx]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(ctx context.Context, name string, args ...string) bool {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run() == nil
}
