package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/planner"
)

// Execute builds and runs the ffmpeg command for a file. When verbose is
// enabled, stderr is tee'd to os.Stderr in real time; otherwise it is
// captured silently for classification. A failed run returns *EncodeError.
func Execute(ctx context.Context, cfg *config.Config, plan *planner.FilePlan, in, out string) error {
	args := Build(cfg, plan, in, out)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stderrBuf bytes.Buffer
	if cfg.Verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	stderr := stderrBuf.String()
	e := &EncodeError{
		Input:    plan.InputPath,
		ExitCode: -1,
		Reason:   Classify(stderr),
		Stderr:   stderr,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		e.Reason = ReasonInterrupted
		e.Err = errors.Join(err, ctx.Err())
	}
	return e
}
