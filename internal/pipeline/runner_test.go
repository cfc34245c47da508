//go:build unix

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/downscaler/internal/config"
	"github.com/backmassage/downscaler/internal/ffmpeg"
	"github.com/backmassage/downscaler/internal/logging"
	"github.com/backmassage/downscaler/internal/metrics"
	"github.com/backmassage/downscaler/internal/naming"
	"github.com/backmassage/downscaler/internal/override"
)

// fakeFFmpeg stands in for ffmpeg: it writes its argument list, one per
// line, to the output path (the last argument). Inputs whose content
// contains FAIL make it exit 1 with an ffmpeg-like error.
const fakeFFmpeg = `#!/bin/sh
in=""
prev=""
for a; do
	if [ "$prev" = "-i" ]; then in="$a"; fi
	prev="$a"
	last="$a"
done
if grep -q FAIL "$in"; then
	echo "$in: Invalid data found when processing input" >&2
	exit 1
fi
printf '%s\n' "$@" > "$last"
`

type fixture struct {
	cfg   *config.Config
	src   string
	dst   string
	stage string
	rec   *metrics.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	f := &fixture{
		src:   filepath.Join(root, "src"),
		dst:   filepath.Join(root, "dst"),
		stage: filepath.Join(root, "stage"),
		rec:   metrics.NewRecorder(),
	}
	require.NoError(t, os.MkdirAll(f.src, 0o755))
	require.NoError(t, os.MkdirAll(f.stage, 0o755))

	bin := filepath.Join(root, "bin", "ffmpeg")
	writeFile(t, bin, fakeFFmpeg)
	require.NoError(t, os.Chmod(bin, 0o755))

	cfg := config.DefaultConfig()
	cfg.SourceDir = f.src
	cfg.DestinationDir = f.dst
	cfg.StageDir = f.stage
	cfg.FFmpegPath = bin
	f.cfg = &cfg
	return f
}

func (f *fixture) run(t *testing.T, ctx context.Context, defaultHeight int, overrides ...string) (RunStats, error) {
	t.Helper()
	rules, err := config.ParseOverrides(overrides)
	require.NoError(t, err)
	return Run(ctx, f.cfg, override.New(defaultHeight, rules...), logging.Discard(), f.rec)
}

// args returns the ffmpeg arguments recorded in an output file.
func (f *fixture) args(t *testing.T, rel string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.dst, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func (f *fixture) assertNoLeftovers(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.stage)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory")
	_ = filepath.WalkDir(f.dst, func(path string, d os.DirEntry, err error) error {
		if err == nil && strings.HasSuffix(path, ".working") {
			t.Errorf("working file left behind: %s", path)
		}
		return nil
	})
}

func TestRun_OverridesPerDirectory(t *testing.T) {
	f := newFixture(t)
	touch(t, f.src, "movies/kids/cartoon.mkv")
	touch(t, f.src, "movies/drama/film.mkv")
	touch(t, f.src, "tv/show/ep1.mp4")
	touch(t, f.src, "tvfish/ep.mkv")
	touch(t, f.src, "root.mkv")
	touch(t, f.src, "notes.txt")

	stats, err := f.run(t, context.Background(), 720, "movies:1080", "movies/kids:480", "tv:576")
	require.NoError(t, err)
	assert.Equal(t, RunStats{
		Total: 5, Current: 5, Encoded: 5, Scaled: 5,
		TotalInputBytes: 5 * int64(len("data")), TotalOutputBytes: stats.TotalOutputBytes,
	}, stats)

	tests := []struct {
		out    string
		filter string
	}{
		{"movies/kids/cartoon.mp4", "scale=-2:'min(480,ih)'"},
		{"movies/drama/film.mp4", "scale=-2:'min(1080,ih)'"},
		{"tv/show/ep1.mp4", "scale=-2:'min(576,ih)'"},
		{"tvfish/ep.mp4", "scale=-2:'min(720,ih)'"},
		{"root.mp4", "scale=-2:'min(720,ih)'"},
	}
	for _, tt := range tests {
		args := f.args(t, tt.out)
		assert.Contains(t, args, tt.filter, tt.out)
		assert.Equal(t, "mp4", args[len(args)-2], "explicit muxer")
	}
	assert.NoFileExists(t, filepath.Join(f.dst, "notes.txt"))
	f.assertNoLeftovers(t)

	assert.Contains(t, f.metrics(t), `downscaler_files_total{result="encoded"} 5`)
}

func TestRun_NoScaling(t *testing.T) {
	f := newFixture(t)
	touch(t, f.src, "a/b.mkv")

	stats, err := f.run(t, context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Encoded)
	assert.Zero(t, stats.Scaled)
	assert.NotContains(t, f.args(t, "a/b.mp4"), "-vf")
}

func TestRun_MKVContainer(t *testing.T) {
	f := newFixture(t)
	f.cfg.OutputContainer = config.ContainerMKV
	touch(t, f.src, "a/b.mp4")

	_, err := f.run(t, context.Background(), 480)
	require.NoError(t, err)
	args := f.args(t, "a/b.mkv")
	assert.Equal(t, "matroska", args[len(args)-2])
	assert.NotContains(t, args, "hvc1")
}

func TestRun_SkipExisting(t *testing.T) {
	f := newFixture(t)
	touch(t, f.src, "a.mkv")
	touch(t, f.src, "b.mkv")
	writeFile(t, filepath.Join(f.dst, "a.mp4"), "previous")

	stats, err := f.run(t, context.Background(), 720)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Encoded)
	b, _ := os.ReadFile(filepath.Join(f.dst, "a.mp4"))
	assert.Equal(t, "previous", string(b))

	f.cfg.SkipExisting = false
	stats, err = f.run(t, context.Background(), 720)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Encoded)
	assert.Contains(t, f.args(t, "a.mp4"), "libx265")
}

func TestRun_ContinueOnFailure(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.src, "a.mkv"), "FAIL")
	touch(t, f.src, "b.mkv")

	stats, err := f.run(t, context.Background(), 720)
	require.NoError(t, err, "per-file failures do not fail the run")
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Encoded)
	assert.NoFileExists(t, filepath.Join(f.dst, "a.mp4"))
	assert.FileExists(t, filepath.Join(f.dst, "b.mp4"))
	f.assertNoLeftovers(t)

	text := f.metrics(t)
	assert.Contains(t, text, `downscaler_files_total{result="failed"} 1`)
	assert.Contains(t, text, "downscaler_last_run_success 0")
}

func TestRun_FailFast(t *testing.T) {
	f := newFixture(t)
	f.cfg.FailFast = true
	writeFile(t, filepath.Join(f.src, "a.mkv"), "FAIL")
	touch(t, f.src, "b.mkv")

	stats, err := f.run(t, context.Background(), 720)
	require.Error(t, err)
	var ee *ffmpeg.EncodeError
	require.True(t, errors.As(err, &ee), "got %v", err)
	assert.Equal(t, ffmpeg.ReasonInputUnreadable, ee.Reason)
	assert.Equal(t, filepath.Join(f.src, "a.mkv"), ee.Input)
	assert.Contains(t, err.Error(), "a.mkv")

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Encoded)
	assert.NoFileExists(t, filepath.Join(f.dst, "b.mp4"), "run stops at the first failure")
	f.assertNoLeftovers(t)
}

func TestRun_Collision(t *testing.T) {
	f := newFixture(t)
	touch(t, f.src, "show/a.mkv")
	touch(t, f.src, "show/a.mp4")

	stats, err := f.run(t, context.Background(), 720)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Encoded)
	assert.Equal(t, 1, stats.Skipped)
	args := f.args(t, "show/a.mp4")
	assert.True(t, strings.HasSuffix(args[7], "-in.mkv"), "first source in sort order wins: %s", args[7])
}

func TestRun_NoStage(t *testing.T) {
	f := newFixture(t)
	f.cfg.StageLocal = false
	touch(t, f.src, "a.mkv")

	_, err := f.run(t, context.Background(), 720)
	require.NoError(t, err)
	args := f.args(t, "a.mp4")
	assert.Contains(t, args, filepath.Join(f.src, "a.mkv"), "reads the source in place")
	assert.Equal(t, filepath.Join(f.dst, "a.mp4.working"), args[len(args)-1])
	f.assertNoLeftovers(t)
}

func TestRun_StaleWorkingFileRemoved(t *testing.T) {
	f := newFixture(t)
	touch(t, f.src, "a.mkv")
	writeFile(t, filepath.Join(f.dst, "a.mp4.working"), "stale partial output")

	_, err := f.run(t, context.Background(), 720)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.dst, "a.mp4"))
	f.assertNoLeftovers(t)
}

func TestRun_DryRun(t *testing.T) {
	f := newFixture(t)
	f.cfg.DryRun = true
	touch(t, f.src, "a.mkv")
	touch(t, f.src, "sub/b.mp4")

	stats, err := f.run(t, context.Background(), 720)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Encoded)
	assert.NoDirExists(t, f.dst, "dry run writes nothing")
}

func TestRun_TraversalErrorAbortsBeforeEncoding(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits not enforced for root")
	}
	f := newFixture(t)
	touch(t, f.src, "a.mkv")
	touch(t, f.src, "z/locked/b.mkv")
	locked := filepath.Join(f.src, "z", "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	stats, err := f.run(t, context.Background(), 720)
	var te *TraversalError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Zero(t, stats.Encoded)
	assert.NoFileExists(t, filepath.Join(f.dst, "a.mp4"), "nothing is encoded")
}

func TestRun_MissingSource(t *testing.T) {
	f := newFixture(t)
	f.cfg.SourceDir = filepath.Join(f.src, "missing")

	_, err := f.run(t, context.Background(), 720)
	var te *TraversalError
	assert.True(t, errors.As(err, &te), "got %v", err)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	touch(t, f.src, "a.mkv")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := f.run(t, ctx, 720)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Encoded)
	assert.NoFileExists(t, filepath.Join(f.dst, "a.mp4"))
}

func TestRun_FreeSpaceCheck(t *testing.T) {
	f := newFixture(t)
	f.cfg.CheckFreeSpace = true
	touch(t, f.src, "a.mkv")

	stats, err := f.run(t, context.Background(), 720)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Encoded, "a tiny file always fits")
}

func TestSpaceNeeds(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.StageDir = "/stage"
	out := filepath.FromSlash("/out/tv/a.mp4")
	outDir := filepath.FromSlash("/out/tv")

	assert.Equal(t, map[string]int64{outDir: 100, "/stage": 200}, spaceNeeds(&cfg, 100, out),
		"staging holds the input copy and the output")

	cfg.StageDir = outDir
	assert.Equal(t, map[string]int64{outDir: 300}, spaceNeeds(&cfg, 100, out))

	cfg.StageLocal = false
	assert.Equal(t, map[string]int64{outDir: 100}, spaceNeeds(&cfg, 100, out))
	assert.Equal(t, map[string]int64{outDir: 0}, spaceNeeds(&cfg, -1, out))
}

func TestSkipReason(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	log := logging.Discard()
	collisions := naming.NewCollisionResolver()
	out := filepath.Join(dir, "a.mp4")
	first := SourceFile{Path: "/in/a.mkv"}
	second := SourceFile{Path: "/in/a.mp4"}

	assert.Empty(t, skipReason(&cfg, log, collisions, first, out))
	assert.Equal(t, "output already claimed by /in/a.mkv", skipReason(&cfg, log, collisions, second, out))

	writeFile(t, out, "done")
	assert.Equal(t, "output exists", skipReason(&cfg, log, collisions, first, out))
	cfg.SkipExisting = false
	assert.Empty(t, skipReason(&cfg, log, collisions, first, out))
}

func TestRunStats_SpaceSaved(t *testing.T) {
	s := RunStats{TotalInputBytes: 1000, TotalOutputBytes: 400}
	assert.EqualValues(t, 600, s.SpaceSaved())
	s.TotalOutputBytes = 1500
	assert.EqualValues(t, -500, s.SpaceSaved())
}

// metrics writes the recorder's textfile and returns its contents.
func (f *fixture) metrics(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "downscaler.prom")
	require.NoError(t, f.rec.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
