// Package ffmpeg builds and runs the libx265 encode command for one file and
// classifies failures from ffmpeg's stderr.
//
//   - Build(cfg, plan, in, out): argument slice, ffmpeg binary first (builder.go)
//   - Execute(ctx, cfg, plan, in, out): run with stderr capture, optional tee
//     to the terminal; returns *EncodeError on failure (executor.go)
//   - Classify(stderr): Reason for a failed run (errors.go)
package ffmpeg
