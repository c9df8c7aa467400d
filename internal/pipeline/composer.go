package pipeline

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/wilsonfonseca/golem/pkg/logger"
)

// Named end-to-end scenarios the composer can run.
const (
	ScenarioExtractReplace      = "extract-replace"
	ScenarioFull                = "full"
	ScenarioSplitTranscodeMerge = "split-transcode-merge"
)

// RunRequest describes one pipeline run over a single input file. RunDir
// is the host scratch directory that receives the per-stage resources,
// work, and output directories; intermediates are left there when a stage
// fails.
type RunRequest struct {
	InputFile string
	RunDir    string
	Parts     int
	Transcode TranscodeOptions
}

// Composer chains stage runners into end-to-end flows by pointing each
// stage's resources directory at the previous stage's output directory.
// It fails fast on the first stage error and attempts no recovery or
// cleanup.
type Composer struct {
	runner *Runner
	logger logger.Logger
}

func NewComposer(runner *Runner, logger logger.Logger) *Composer {
	return &Composer{runner: runner, logger: logger}
}

// Run dispatches a named scenario and returns the final stage's output.
func (c *Composer) Run(ctx context.Context, scenario string, req RunRequest) (*StageOutput, error) {
	switch scenario {
	case ScenarioExtractReplace:
		return c.ExtractReplace(ctx, req)
	case ScenarioFull:
		return c.FullRoundTrip(ctx, req)
	case ScenarioSplitTranscodeMerge:
		return c.SplitTranscodeMerge(ctx, req)
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unknown scenario %q", scenario)
	}
}

// ExtractReplace extracts the video track, then replaces the original's
// video track with the extracted artifact. The extract output directory
// becomes the replace resources directory, so an external processing step
// may rewrite the artifact in place between the two stages.
func (c *Composer) ExtractReplace(ctx context.Context, req RunRequest) (*StageOutput, error) {
	eb, err := c.binding(req, "extract", "")
	if err != nil {
		return nil, err
	}
	eout, err := c.runner.Extract(ctx, eb)
	if err != nil {
		return nil, err
	}

	rb, err := c.binding(req, "replace", eout.Dir)
	if err != nil {
		return nil, err
	}
	return c.runner.Replace(ctx, rb, path.Join(ResourcesPath, eout.Artifacts[0].Name), "v")
}

// FullRoundTrip decomposes the input, transcodes every chunk, recombines
// them, and splices the recombined track back into the original container.
func (c *Composer) FullRoundTrip(ctx context.Context, req RunRequest) (*StageOutput, error) {
	eb, err := c.binding(req, "extract", "")
	if err != nil {
		return nil, err
	}
	eout, err := c.runner.Extract(ctx, eb)
	if err != nil {
		return nil, err
	}
	videoOnly := eout.Artifacts[0].Name

	sb, err := c.binding(req, "split", eout.Dir)
	if err != nil {
		return nil, err
	}
	sout, err := c.runner.Split(ctx, sb, path.Join(ResourcesPath, videoOnly), req.Parts)
	if err != nil {
		return nil, err
	}

	chunkStem, err := Stem(videoOnly)
	if err != nil {
		return nil, err
	}
	tb, err := c.binding(req, "transcode", sout.Dir)
	if err != nil {
		return nil, err
	}
	tout, err := c.runner.Transcode(ctx, tb, chunkStem, Extension(videoOnly), req.Transcode)
	if err != nil {
		return nil, err
	}

	merged, err := c.mergedName(req.InputFile)
	if err != nil {
		return nil, err
	}
	mb, err := c.binding(req, "merge", tout.Dir)
	if err != nil {
		return nil, err
	}
	mout, err := c.runner.Merge(ctx, mb, merged, tout.Names())
	if err != nil {
		return nil, err
	}

	rb, err := c.binding(req, "replace", mout.Dir)
	if err != nil {
		return nil, err
	}
	return c.runner.Replace(ctx, rb, path.Join(ResourcesPath, merged), "v")
}

// SplitTranscodeMerge decomposes, transcodes, and recombines the input
// without touching the original container.
func (c *Composer) SplitTranscodeMerge(ctx context.Context, req RunRequest) (*StageOutput, error) {
	sb, err := c.binding(req, "split", "")
	if err != nil {
		return nil, err
	}
	sout, err := c.runner.Split(ctx, sb, sb.InputAlias, req.Parts)
	if err != nil {
		return nil, err
	}

	base := path.Base(req.InputFile)
	chunkStem, err := Stem(base)
	if err != nil {
		return nil, err
	}
	tb, err := c.binding(req, "transcode", sout.Dir)
	if err != nil {
		return nil, err
	}
	tout, err := c.runner.Transcode(ctx, tb, chunkStem, Extension(base), req.Transcode)
	if err != nil {
		return nil, err
	}

	merged, err := c.mergedName(req.InputFile)
	if err != nil {
		return nil, err
	}
	mb, err := c.binding(req, "merge", tout.Dir)
	if err != nil {
		return nil, err
	}
	return c.runner.Merge(ctx, mb, merged, tout.Names())
}

func (c *Composer) mergedName(inputFile string) (string, error) {
	base := path.Base(inputFile)
	stem, err := Stem(base)
	if err != nil {
		return "", err
	}
	return TranscodedName(stem, Extension(base)), nil
}

// binding materializes the directory triple for one stage under the run
// directory. An empty resourcesDir means the stage owns a fresh resources
// directory; otherwise the previous stage's output directory is used
// directly, with no copying in between.
func (c *Composer) binding(req RunRequest, stage, resourcesDir string) (StageBinding, error) {
	stageDir := filepath.Join(req.RunDir, stage)
	if resourcesDir == "" {
		resourcesDir = filepath.Join(stageDir, "resources")
	}
	b := StageBinding{
		ResourcesDir: resourcesDir,
		WorkDir:      filepath.Join(stageDir, "work"),
		OutputDir:    filepath.Join(stageDir, "output"),
		InputFile:    req.InputFile,
		InputAlias:   InputAlias(req.InputFile),
	}
	for _, dir := range []string{b.ResourcesDir, b.WorkDir, b.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return StageBinding{}, errors.Wrapf(err, "%s: create stage directory", stage)
		}
	}
	return b, nil
}
