package ffmpeg

import (
	"strconv"

	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/planner"
)

// Build constructs the complete ffmpeg argument slice for a file, reading
// from in and writing to out. in and out may differ from the plan's paths
// when the file is staged. The muxer is always passed explicitly because out
// usually carries a ".working" suffix.
func Build(cfg *config.Config, plan *planner.FilePlan, in, out string) []string {
	args := make([]string, 0, 32)

	// --- Preamble ---
	args = append(args, cfg.FFmpegPath, "-hide_banner", "-nostdin", "-y",
		"-loglevel", "warning", "-nostats")

	// --- Input ---
	args = append(args, "-i", in)

	// --- Video codec ---
	args = append(args,
		"-c:v", plan.VideoCodec,
		"-crf", strconv.Itoa(plan.CRF),
		"-preset", plan.Preset,
	)
	if plan.X265Params != "" {
		args = append(args, "-x265-params", plan.X265Params)
	}

	// --- Audio passthrough ---
	args = append(args, "-c:a", "copy")

	// --- Scale filter (only when a height applies) ---
	if plan.VideoFilters != "" {
		args = append(args, "-vf", plan.VideoFilters)
	}

	// --- Tag and container opts (e.g. -tag:v hvc1 -movflags +faststart) ---
	args = append(args, plan.TagOpts...)
	args = append(args, plan.ContainerOpts...)

	// --- Output ---
	args = append(args, "-f", plan.Container.Muxer(), out)
	return args
}
