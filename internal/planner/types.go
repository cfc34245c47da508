package planner

import (
	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/override"
)

// Action describes the per-file processing decision.
type Action int

const (
	ActionEncode Action = iota
	ActionSkip
)

func (a Action) String() string {
	if a == ActionSkip {
		return "skip"
	}
	return "encode"
}

// FilePlan holds the decisions for processing a single source file. It is
// produced by BuildPlan and consumed by the ffmpeg package to construct
// command arguments.
type FilePlan struct {
	Action     Action
	SkipReason string // set when Action is ActionSkip

	// Paths. RelPath is relative to the source root.
	InputPath  string
	OutputPath string
	RelPath    override.Path

	// Scaling. Scaled is false when no override or default applies; Height
	// is then zero and the video keeps its source resolution.
	Height       int
	Scaled       bool
	VideoFilters string // "" or scale=-2:'min(H,ih)'

	// Video encoding.
	VideoCodec string
	CRF        int
	Preset     string
	X265Params string

	// Container-specific flags.
	Container     config.Container
	ContainerOpts []string // e.g. -movflags +faststart
	TagOpts       []string // e.g. -tag:v hvc1
}

