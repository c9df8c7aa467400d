package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilsonfonseca/golem/internal/pipeline"
)

func TestStem(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip"},
		{"clip[video-only].mp4", "clip[video-only]"},
		{"archive.tar.gz", "archive.tar"},
		{"noext", "noext"},
		{"/tmp/clip.mp4", "/tmp/clip"},
	}
	for _, c := range cases {
		got, err := pipeline.Stem(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestStemEmptyInput(t *testing.T) {
	_, err := pipeline.Stem("")
	assert.ErrorIs(t, err, pipeline.ErrInvalidParameter)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "mp4", pipeline.Extension("clip.mp4"))
	assert.Equal(t, "gz", pipeline.Extension("archive.tar.gz"))
	assert.Equal(t, "", pipeline.Extension("noext"))
}

func TestVideoOnlyNameRoundTrips(t *testing.T) {
	cases := []struct {
		stem string
		ext  string
	}{
		{"clip", "mp4"},
		{"big_buck_bunny", "mkv"},
		{"a.b", "webm"},
	}
	for _, c := range cases {
		name := pipeline.VideoOnlyName(c.stem, c.ext)
		got, err := pipeline.Stem(name)
		require.NoError(t, err)
		assert.Equal(t, c.stem+"[video-only]", got)
		assert.Equal(t, c.ext, pipeline.Extension(name))
	}
}

func TestTranscodedName(t *testing.T) {
	assert.Equal(t, "clip_0_TC.mp4", pipeline.TranscodedName("clip_0", "mp4"))
	assert.Equal(t, "clip[video-only]_3_TC.mp4", pipeline.TranscodedName("clip[video-only]_3", "mp4"))
}

func TestChunkPattern(t *testing.T) {
	assert.Equal(t, "clip_*.mp4", pipeline.ChunkPattern("clip", "mp4"))
}

func TestInputAlias(t *testing.T) {
	assert.Equal(t, "/tmp/clip.mp4", pipeline.InputAlias("/home/user/videos/clip.mp4"))
	assert.Equal(t, "/tmp/clip.mp4", pipeline.InputAlias("clip.mp4"))
}
