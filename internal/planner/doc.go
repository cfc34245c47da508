// Package planner decides how a single file is encoded and builds a FilePlan
// that the ffmpeg package consumes.
//
//   - FilePlan, Action (types.go)
//   - BuildPlan: target height from the override resolver, scale filter,
//     container flags (planner.go)
//   - ScaleFilter and OutputDimensions: the never-upscale, even-width scaling
//     model (filter.go)
package planner
