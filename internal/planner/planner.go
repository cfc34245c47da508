package planner

import (
	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/override"
)

// BuildPlan produces the FilePlan for one source file. The target height
// comes from res: the longest matching override prefix of rel's directory,
// else the default height, else no scaling. A non-empty skipReason makes the
// plan ActionSkip; scaling is still resolved so the skip can be reported with
// its height.
func BuildPlan(cfg *config.Config, res *override.Resolver, input, output string, rel override.Path, skipReason string) *FilePlan {
	plan := &FilePlan{
		Action:     ActionEncode,
		SkipReason: skipReason,
		InputPath:  input,
		OutputPath: output,
		RelPath:    rel,
		VideoCodec: cfg.VideoCodec,
		CRF:        cfg.CRF,
		Preset:     cfg.Preset,
		X265Params: cfg.X265Params,
		Container:  cfg.OutputContainer,
	}

	if skipReason != "" {
		plan.Action = ActionSkip
	}

	if res != nil {
		if h, ok := res.Resolve(rel); ok {
			plan.Height = h
			plan.Scaled = true
			plan.VideoFilters = ScaleFilter(h)
		}
	}

	if cfg.OutputContainer == config.ContainerMP4 {
		plan.ContainerOpts = []string{"-movflags", "+faststart"}
		plan.TagOpts = []string{"-tag:v", "hvc1"}
	}
	return plan
}
