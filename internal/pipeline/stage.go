package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/ffmpeg"
	"github.com/backmassage/downscaler/internal/fsx"
	"github.com/backmassage/downscaler/internal/logging"
	"github.com/backmassage/downscaler/internal/naming"
	"github.com/backmassage/downscaler/internal/planner"
)

// encode produces plan.OutputPath. The result is first written to
// <output>.working and renamed into place, so a destination file only exists
// once complete. With staging, the source is copied into cfg.StageDir and
// encoded there, and the result is moved next to the destination. Temporary and working files are removed on failure.
func encode(ctx context.Context, cfg *config.Config, plan *planner.FilePlan, log *logging.Logger) (err error) {
	working := naming.WorkingPath(plan.OutputPath)
	if err := fsx.RemoveIfExists(working); err != nil {
		return fmt.Errorf("remove stale working file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = fsx.RemoveIfExists(working)
		}
	}()

	if !cfg.StageLocal {
		if err := ffmpeg.Execute(ctx, cfg, plan, plan.InputPath, working); err != nil {
			return err
		}
		return fsx.Rename(working, plan.OutputPath)
	}

	id := uuid.NewString()
	stagedIn := filepath.Join(cfg.StageDir, "downscaler-"+id+"-in"+filepath.Ext(plan.InputPath))
	stagedOut := filepath.Join(cfg.StageDir, "downscaler-"+id+"-out."+string(plan.Container))
	defer func() {
		_ = fsx.RemoveIfExists(stagedIn)
		_ = fsx.RemoveIfExists(stagedOut)
	}()

	log.Debug("staging input", "path", stagedIn)
	if _, err := fsx.CopyFile(plan.InputPath, stagedIn); err != nil {
		return fmt.Errorf("stage input: %w", err)
	}
	if err := ffmpeg.Execute(ctx, cfg, plan, stagedIn, stagedOut); err != nil {
		return err
	}
	log.Debug("moving output", "path", working)
	if err := fsx.Move(stagedOut, working); err != nil {
		return fmt.Errorf("move staged output: %w", err)
	}
	return fsx.Rename(working, plan.OutputPath)
}
