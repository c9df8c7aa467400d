package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilsonfonseca/golem/internal/config"
	"github.com/wilsonfonseca/golem/internal/pipeline"
	"github.com/wilsonfonseca/golem/pkg/logger"
)

func testLogger() logger.Logger {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "Development"},
		Logger: config.Logger{Level: "error", Encoding: "console"},
	}
	l := logger.NewApiLogger(cfg)
	l.InitLogger()
	return l
}

// fakeInvoker stands in for a sandboxed worker: it records every
// invocation and materializes the files each command would produce in the
// stage output directory.
type fakeInvoker struct {
	mu    sync.Mutex
	calls []pipeline.Descriptor

	// names the split command writes into its output directory
	splitChunks []string

	// transcode track that fails with the given exit code, if set
	failTrack    string
	failExitCode int
}

func (f *fakeInvoker) Invoke(_ context.Context, desc pipeline.Descriptor, b pipeline.StageBinding) error {
	f.mu.Lock()
	f.calls = append(f.calls, desc)
	f.mu.Unlock()

	switch d := desc.(type) {
	case *pipeline.ExtractJob:
		return touch(b.OutputDir, d.OutputFile)
	case *pipeline.SplitJob:
		for _, name := range f.splitChunks {
			if err := touch(b.OutputDir, name); err != nil {
				return err
			}
		}
		return nil
	case *pipeline.TranscodeJob:
		if f.failTrack != "" && d.Track == f.failTrack {
			return &pipeline.WorkerFailure{ExitCode: f.failExitCode, Stderr: "encoder crashed"}
		}
		return touch(b.OutputDir, d.OutputStream)
	case *pipeline.MergeJob:
		return touch(b.OutputDir, d.OutputStream)
	case *pipeline.ReplaceJob:
		return touch(b.OutputDir, d.OutputFile)
	default:
		return fmt.Errorf("unexpected descriptor %T", desc)
	}
}

func (f *fakeInvoker) invocations() []pipeline.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.Descriptor(nil), f.calls...)
}

func touch(dir, name string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
}

func testBinding(t *testing.T, inputFile string) pipeline.StageBinding {
	t.Helper()
	root := t.TempDir()
	b := pipeline.StageBinding{
		ResourcesDir: filepath.Join(root, "resources"),
		WorkDir:      filepath.Join(root, "work"),
		OutputDir:    filepath.Join(root, "output"),
		InputFile:    inputFile,
		InputAlias:   pipeline.InputAlias(inputFile),
	}
	for _, dir := range []string{b.ResourcesDir, b.WorkDir, b.OutputDir} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	return b
}

func TestExtract(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	out, err := r.Extract(context.Background(), b)
	require.NoError(t, err)

	require.Len(t, out.Artifacts, 1)
	assert.Equal(t, "clip[video-only].mp4", out.Artifacts[0].Name)
	assert.Equal(t, pipeline.RoleVideoOnly, out.Artifacts[0].Role)
	assert.Equal(t, b.OutputDir, out.Dir)
	assert.FileExists(t, filepath.Join(b.OutputDir, "clip[video-only].mp4"))
}

func TestSplitOrdersChunksByOrdinal(t *testing.T) {
	// more than ten chunks so lexicographic order would be wrong
	inv := &fakeInvoker{splitChunks: []string{
		"clip[video-only]_10.mp4",
		"clip[video-only]_0.mp4",
		"clip[video-only]_2.mp4",
		"clip[video-only]_1.mp4",
	}}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	out, err := r.Split(context.Background(), b, "/resources/clip[video-only].mp4", 4)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"clip[video-only]_0.mp4",
		"clip[video-only]_1.mp4",
		"clip[video-only]_2.mp4",
		"clip[video-only]_10.mp4",
	}, out.Names())
	for _, a := range out.Artifacts {
		assert.Equal(t, pipeline.RoleChunk, a.Role)
	}
}

func TestSplitNoChunksProduced(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	_, err := r.Split(context.Background(), b, "/resources/clip[video-only].mp4", 3)
	assert.ErrorIs(t, err, pipeline.ErrNoMatchingChunks)
}

func TestTranscodeMatchesOnlyOwnChunks(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	for _, name := range []string{
		"vid_0.mp4",
		"vid_2.mp4",
		"vid_10.mp4",
		"other_0.mp4", // wrong stem
		"vid_x.mp4",   // non-numeric ordinal
		"vid_1.avi",   // wrong extension
		"vid.mp4",     // no ordinal at all
	} {
		require.NoError(t, touch(b.ResourcesDir, name))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(b.ResourcesDir, "vid_3.mp4"), 0755))

	out, err := r.Transcode(context.Background(), b, "vid", "mp4", pipeline.TranscodeOptions{
		VideoCodec: "mpeg2video",
		AudioCodec: "mp3",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"vid_0_TC.mp4", "vid_2_TC.mp4", "vid_10_TC.mp4"}, out.Names())
	require.Len(t, inv.invocations(), 3)
	for _, a := range out.Artifacts {
		assert.Equal(t, pipeline.RoleTranscodedChunk, a.Role)
		assert.FileExists(t, filepath.Join(b.OutputDir, a.Name))
	}
}

func TestTranscodeNoMatchingChunks(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	_, err := r.Transcode(context.Background(), b, "vid", "mp4", pipeline.TranscodeOptions{
		VideoCodec: "mpeg2video",
		AudioCodec: "mp3",
	})
	assert.ErrorIs(t, err, pipeline.ErrNoMatchingChunks)
	assert.Empty(t, inv.invocations())
}

func TestTranscodeFailFast(t *testing.T) {
	inv := &fakeInvoker{failTrack: "/resources/vid_2.mp4", failExitCode: 3}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	for i := 0; i < 5; i++ {
		require.NoError(t, touch(b.ResourcesDir, fmt.Sprintf("vid_%d.mp4", i)))
	}

	_, err := r.Transcode(context.Background(), b, "vid", "mp4", pipeline.TranscodeOptions{
		VideoCodec: "mpeg2video",
		AudioCodec: "mp3",
	})
	require.Error(t, err)

	var wf *pipeline.WorkerFailure
	require.ErrorAs(t, err, &wf)
	assert.Equal(t, "transcode", wf.Stage)
	assert.Equal(t, "vid_2.mp4", wf.Unit)
	assert.Equal(t, 3, wf.ExitCode)
	assert.Equal(t, "encoder crashed", wf.Stderr)

	// sequential fan-out stops at the failing chunk
	assert.Len(t, inv.invocations(), 3)
	assert.FileExists(t, filepath.Join(b.OutputDir, "vid_0_TC.mp4"))
	assert.FileExists(t, filepath.Join(b.OutputDir, "vid_1_TC.mp4"))
	assert.NoFileExists(t, filepath.Join(b.OutputDir, "vid_2_TC.mp4"))
}

func TestTranscodeConcurrent(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	const chunks = 8
	for i := 0; i < chunks; i++ {
		require.NoError(t, touch(b.ResourcesDir, fmt.Sprintf("vid_%d.mp4", i)))
	}

	out, err := r.Transcode(context.Background(), b, "vid", "mp4", pipeline.TranscodeOptions{
		VideoCodec:  "mpeg2video",
		AudioCodec:  "mp3",
		Concurrency: 3,
	})
	require.NoError(t, err)

	// artifact order follows chunk ordinals even when invocations interleave
	want := make([]string, 0, chunks)
	for i := 0; i < chunks; i++ {
		want = append(want, fmt.Sprintf("vid_%d_TC.mp4", i))
	}
	assert.Equal(t, want, out.Names())
	assert.Len(t, inv.invocations(), chunks)
}

func TestMergePreservesChunkOrder(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	out, err := r.Merge(context.Background(), b, "clip_TC.mp4", []string{
		"vid_0_TC.mp4", "vid_1_TC.mp4", "vid_10_TC.mp4",
	})
	require.NoError(t, err)

	require.Len(t, out.Artifacts, 1)
	assert.Equal(t, "clip_TC.mp4", out.Artifacts[0].Name)
	assert.Equal(t, pipeline.RoleMergedStream, out.Artifacts[0].Role)

	calls := inv.invocations()
	require.Len(t, calls, 1)
	mj, ok := calls[0].(*pipeline.MergeJob)
	require.True(t, ok)
	assert.Equal(t, []string{
		"/resources/vid_0_TC.mp4",
		"/resources/vid_1_TC.mp4",
		"/resources/vid_10_TC.mp4",
	}, mj.Chunks)
}

func TestReplaceNamesOutputAfterInput(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	out, err := r.Replace(context.Background(), b, "/resources/clip_TC.mp4", "v")
	require.NoError(t, err)

	require.Len(t, out.Artifacts, 1)
	assert.Equal(t, "clip.mp4", out.Artifacts[0].Name)
	assert.Equal(t, pipeline.RoleFinalContainer, out.Artifacts[0].Role)
}

func TestEachInvocationGetsOwnWorkScope(t *testing.T) {
	inv := &fakeInvoker{}
	r := pipeline.NewRunner(inv, testLogger())
	b := testBinding(t, "/videos/clip.mp4")

	require.NoError(t, touch(b.ResourcesDir, "vid_0.mp4"))
	require.NoError(t, touch(b.ResourcesDir, "vid_1.mp4"))

	_, err := r.Transcode(context.Background(), b, "vid", "mp4", pipeline.TranscodeOptions{
		VideoCodec: "mpeg2video",
		AudioCodec: "mp3",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(b.WorkDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, e.IsDir())
		assert.FileExists(t, filepath.Join(b.WorkDir, e.Name(), pipeline.DescriptorFile))
	}
}

func TestWorkerFailureMessage(t *testing.T) {
	wf := &pipeline.WorkerFailure{Stage: "transcode", Unit: "vid_2.mp4", ExitCode: 3, Stderr: "boom"}
	assert.Contains(t, wf.Error(), "transcode")
	assert.Contains(t, wf.Error(), "vid_2.mp4")
}
