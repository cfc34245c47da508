package override

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func path(s string) Path { return SplitPath(s) }

func mustRule(t *testing.T, s string) Rule {
	t.Helper()
	r, err := ParseRule(s)
	require.NoError(t, err)
	return r
}

var samplePaths = []string{
	"video.mp4",
	"tv/video.mp4",
	"tv/kids/video.mp4",
	"movies/drama.mkv",
	"a/b/c/d/e/f.mkv",
}

func TestResolve_DefaultOnly(t *testing.T) {
	r := New(720)
	for _, p := range samplePaths {
		h, ok := r.Resolve(path(p))
		assert.True(t, ok, p)
		assert.Equal(t, 720, h, p)
	}
}

func TestResolve_EmptyConfig(t *testing.T) {
	r := New(0)
	for _, p := range samplePaths {
		h, ok := r.Resolve(path(p))
		assert.False(t, ok, p)
		assert.Zero(t, h, p)
	}
}

func TestResolve_WholeComponentMatching(t *testing.T) {
	r := New(1080, Rule{Prefix: []string{"tv"}, Height: 720})

	tests := []struct {
		path string
		want int
	}{
		{"tv/kids/video.mp4", 720},
		{"tv/video.mp4", 720},
		{"tvfish/video.mp4", 1080},
		{"movies/tv/video.mp4", 1080},
		{"tv", 1080},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h, ok := r.Resolve(path(tt.path))
			require.True(t, ok)
			assert.Equal(t, tt.want, h)
		})
	}
}

func TestResolve_WholeComponentMatchingWithoutDefault(t *testing.T) {
	r := New(0, Rule{Prefix: []string{"tv"}, Height: 720})

	_, ok := r.Resolve(path("tvfish/video.mp4"))
	assert.False(t, ok)
	_, ok = r.Resolve(path("movies/tv/video.mp4"))
	assert.False(t, ok)
}

func TestResolve_MostSpecificWins(t *testing.T) {
	rules := []Rule{
		{Prefix: []string{"movies"}, Height: 1080},
		{Prefix: []string{"movies", "kids"}, Height: 480},
	}
	reversed := []Rule{rules[1], rules[0]}

	for name, rs := range map[string][]Rule{"declared": rules, "reversed": reversed} {
		t.Run(name, func(t *testing.T) {
			r := New(0, rs...)

			h, ok := r.Resolve(path("movies/kids/cartoon.mp4"))
			require.True(t, ok)
			assert.Equal(t, 480, h)

			h, ok = r.Resolve(path("movies/kids/season 1/cartoon.mp4"))
			require.True(t, ok)
			assert.Equal(t, 480, h)

			h, ok = r.Resolve(path("movies/drama.mp4"))
			require.True(t, ok)
			assert.Equal(t, 1080, h)

			h, ok = r.Resolve(path("movies/kidsplus/x.mp4"))
			require.True(t, ok)
			assert.Equal(t, 1080, h)
		})
	}
}

func TestResolve_FileAtRootUsesDefault(t *testing.T) {
	r := New(576, Rule{Prefix: []string{"video.mp4"}, Height: 240})

	h, ok := r.Resolve(path("video.mp4"))
	require.True(t, ok)
	assert.Equal(t, 576, h, "file names are never matched as directories")
}

func TestResolve_RuleThroughContainingDirectory(t *testing.T) {
	r := New(0, mustRule(t, "shows/drama/season 2:720"))

	h, ok := r.Resolve(path("shows/drama/season 2/e01.mkv"))
	require.True(t, ok)
	assert.Equal(t, 720, h)

	_, ok = r.Resolve(path("shows/drama/e01.mkv"))
	assert.False(t, ok)
}

func TestResolve_Idempotent(t *testing.T) {
	r := New(720,
		mustRule(t, "movies:1080"),
		mustRule(t, "movies/kids:480"),
	)
	p := path("movies/kids/cartoon.mp4")

	h1, ok1 := r.Resolve(p)
	h2, ok2 := r.Resolve(p)
	assert.Equal(t, h1, h2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, Path{"movies", "kids", "cartoon.mp4"}, p, "Resolve must not modify its argument")
}

func TestNew_DuplicatePrefixLastWins(t *testing.T) {
	r := New(0,
		mustRule(t, "movies:1080"),
		mustRule(t, "tv:720"),
		mustRule(t, "movies/:480"),
	)

	h, ok := r.Resolve(path("movies/x.mkv"))
	require.True(t, ok)
	assert.Equal(t, 480, h)

	shadowed := r.Shadowed()
	require.Len(t, shadowed, 1)
	assert.Equal(t, "movies:1080", shadowed[0].String())
	assert.Len(t, r.Rules(), 2)
}

func TestNew_IgnoresInvalidRules(t *testing.T) {
	r := New(-5,
		Rule{Prefix: nil, Height: 720},
		Rule{Prefix: []string{"tv"}, Height: 0},
	)
	assert.Empty(t, r.Rules())
	_, ok := r.Default()
	assert.False(t, ok)
}

func TestNew_CopiesPrefix(t *testing.T) {
	prefix := []string{"tv"}
	r := New(0, Rule{Prefix: prefix, Height: 720})
	prefix[0] = "movies"

	h, ok := r.Resolve(path("tv/a.mkv"))
	require.True(t, ok)
	assert.Equal(t, 720, h)
}

func TestRules_SortedByDir(t *testing.T) {
	r := New(0,
		mustRule(t, "tv:720"),
		mustRule(t, "movies/kids:480"),
		mustRule(t, "movies:1080"),
	)
	var dirs []string
	for _, rule := range r.Rules() {
		dirs = append(dirs, rule.Dir())
	}
	assert.Equal(t, []string{"movies", "movies/kids", "tv"}, dirs)
}
