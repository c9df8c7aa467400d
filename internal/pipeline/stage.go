package pipeline

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wilsonfonseca/golem/pkg/logger"
)

// StageBinding is the directory triple handed to the invoker for one stage
// invocation: resources (stage inputs, rw), work (holds the descriptor
// file, rw), output (stage outputs, rw), plus the original input file and
// the in-worker alias it is mounted at read-only.
type StageBinding struct {
	ResourcesDir string
	WorkDir      string
	OutputDir    string
	InputFile    string
	InputAlias   string
}

// Invoker executes one unit of work. The descriptor has already been
// written to WorkDir when Invoke is called; the implementation mounts the
// bindings, blocks until the worker exits, and reports a non-zero exit as
// *WorkerFailure.
type Invoker interface {
	Invoke(ctx context.Context, desc Descriptor, binding StageBinding) error
}

type ArtifactRole string

const (
	RoleVideoOnly       ArtifactRole = "video-only"
	RoleChunk           ArtifactRole = "chunk"
	RoleTranscodedChunk ArtifactRole = "transcoded-chunk"
	RoleMergedStream    ArtifactRole = "merged-stream"
	RoleFinalContainer  ArtifactRole = "final-container"
)

// Artifact is a handle to one file a stage produced, identified by its
// name inside the stage output directory and its logical role.
type Artifact struct {
	Name string
	Role ArtifactRole
}

// StageOutput is the typed result passed from one stage to the next. The
// artifact list is ordered; downstream stages must use this order instead
// of re-deriving it from a directory listing.
type StageOutput struct {
	Stage     string
	Dir       string
	Artifacts []Artifact
}

// Names returns the artifact names in stage order.
func (s *StageOutput) Names() []string {
	names := make([]string, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		names = append(names, a.Name)
	}
	return names
}

// Runner drives the worker once per unit of work for each pipeline stage.
type Runner struct {
	invoker Invoker
	logger  logger.Logger
}

func NewRunner(invoker Invoker, logger logger.Logger) *Runner {
	return &Runner{invoker: invoker, logger: logger}
}

// invokeOne gives the invocation a fresh uuid-named work scope so that
// concurrent invocations never clobber each other's descriptor file,
// writes the descriptor there, and runs the worker. The scope is left in
// place afterwards for post-mortem inspection.
func (r *Runner) invokeOne(ctx context.Context, stage, unit string, d Descriptor, b StageBinding) error {
	scope := filepath.Join(b.WorkDir, uuid.New().String())
	if err := os.MkdirAll(scope, 0755); err != nil {
		return errors.Wrapf(err, "%s: create work scope", stage)
	}
	if err := writeDescriptor(scope, d); err != nil {
		return errors.Wrapf(err, "%s: stage descriptor", stage)
	}
	scoped := b
	scoped.WorkDir = scope
	if err := r.invoker.Invoke(ctx, d, scoped); err != nil {
		var wf *WorkerFailure
		if errors.As(err, &wf) {
			wf.Stage = stage
			wf.Unit = unit
			return wf
		}
		return errors.Wrapf(err, "%s: invoke worker", stage)
	}
	return nil
}

// Extract pulls the video track out of the original container.
func (r *Runner) Extract(ctx context.Context, b StageBinding) (*StageOutput, error) {
	job, err := NewExtractJob(b.InputAlias)
	if err != nil {
		return nil, err
	}
	r.logger.Infof("extract: %s -> %s", b.InputAlias, job.OutputFile)
	if err := r.invokeOne(ctx, "extract", "", job, b); err != nil {
		return nil, err
	}
	return &StageOutput{
		Stage:     "extract",
		Dir:       b.OutputDir,
		Artifacts: []Artifact{{Name: job.OutputFile, Role: RoleVideoOnly}},
	}, nil
}

// Split cuts the stream at pathToStream into parts time-ordered chunks.
// The produced chunk list is ordered by the ordinal encoded in each name,
// which is the only order later stages may rely on.
func (r *Runner) Split(ctx context.Context, b StageBinding, pathToStream string, parts int) (*StageOutput, error) {
	job, err := NewSplitJob(pathToStream, parts)
	if err != nil {
		return nil, err
	}
	r.logger.Infof("split: %s into %d parts", pathToStream, parts)
	if err := r.invokeOne(ctx, "split", "", job, b); err != nil {
		return nil, err
	}
	stem, err := Stem(path.Base(pathToStream))
	if err != nil {
		return nil, err
	}
	chunks, err := orderedChunks(b.OutputDir, stem, Extension(pathToStream))
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errors.Wrapf(ErrNoMatchingChunks, "split produced no chunks for stem %q in %s", stem, b.OutputDir)
	}
	out := &StageOutput{Stage: "split", Dir: b.OutputDir}
	for _, name := range chunks {
		out.Artifacts = append(out.Artifacts, Artifact{Name: name, Role: RoleChunk})
	}
	return out, nil
}

// Transcode fans out over every chunk of chunkStem found in the resources
// directory, one descriptor and one invocation per chunk. A single chunk
// failure aborts the remaining fan-out; outputs of chunks already invoked
// stay on disk.
func (r *Runner) Transcode(ctx context.Context, b StageBinding, chunkStem, format string, opts TranscodeOptions) (*StageOutput, error) {
	names, err := orderedChunks(b.ResourcesDir, chunkStem, format)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.Wrapf(ErrNoMatchingChunks, "transcode: no chunks for stem %q in %s", chunkStem, b.ResourcesDir)
	}
	r.logger.Infof("transcode: %d chunks for stem %q", len(names), chunkStem)

	artifacts := make([]Artifact, len(names))
	transcodeChunk := func(idx int, name string) error {
		chunkStem, err := Stem(name)
		if err != nil {
			return err
		}
		outName := TranscodedName(chunkStem, format)
		job, err := NewTranscodeJob(path.Join(ResourcesPath, name), outName, opts)
		if err != nil {
			return err
		}
		if err := r.invokeOne(ctx, "transcode", name, job, b); err != nil {
			return err
		}
		artifacts[idx] = Artifact{Name: outName, Role: RoleTranscodedChunk}
		return nil
	}

	if opts.Concurrency > 1 {
		if err := r.fanOut(names, opts.Concurrency, transcodeChunk); err != nil {
			return nil, err
		}
	} else {
		for i, name := range names {
			if err := transcodeChunk(i, name); err != nil {
				return nil, err
			}
		}
	}
	return &StageOutput{Stage: "transcode", Dir: b.OutputDir, Artifacts: artifacts}, nil
}

// fanOut runs fn for every chunk with at most limit invocations in flight.
// Safe because each invocation owns its work scope.
func (r *Runner) fanOut(names []string, limit int, fn func(int, string) error) error {
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	for i, name := range names {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, name string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := fn(idx, name); err != nil {
				select {
				case errChan <- err:
				default:
				}
			}
		}(i, name)
	}
	wg.Wait()
	close(errChan)
	if err := <-errChan; err != nil {
		return err
	}
	return nil
}

// Merge recombines transcoded chunks into one stream. The caller supplies
// chunks in playback order and that order is preserved verbatim.
func (r *Runner) Merge(ctx context.Context, b StageBinding, outputStream string, chunks []string) (*StageOutput, error) {
	job, err := NewMergeJob(outputStream, chunks)
	if err != nil {
		return nil, err
	}
	r.logger.Infof("merge: %d chunks -> %s", len(chunks), outputStream)
	if err := r.invokeOne(ctx, "merge", "", job, b); err != nil {
		return nil, err
	}
	return &StageOutput{
		Stage:     "merge",
		Dir:       b.OutputDir,
		Artifacts: []Artifact{{Name: outputStream, Role: RoleMergedStream}},
	}, nil
}

// Replace splices replacementSource over the targeted stream type of the
// original container; non-targeted streams pass through untouched.
func (r *Runner) Replace(ctx context.Context, b StageBinding, replacementSource, streamType string) (*StageOutput, error) {
	outName := path.Base(b.InputAlias)
	job, err := NewReplaceJob(b.InputAlias, replacementSource, outName, streamType)
	if err != nil {
		return nil, err
	}
	r.logger.Infof("replace: %s stream of %s with %s", streamType, b.InputAlias, replacementSource)
	if err := r.invokeOne(ctx, "replace", "", job, b); err != nil {
		return nil, err
	}
	return &StageOutput{
		Stage:     "replace",
		Dir:       b.OutputDir,
		Artifacts: []Artifact{{Name: outName, Role: RoleFinalContainer}},
	}, nil
}

// orderedChunks lists every entry of dir named {stem}_{ordinal}.{ext} with
// a numeric ordinal, ordered by that ordinal. Deliberately not a glob:
// stems may contain the bracketed video-only tag, which glob syntax would
// mangle, and listing order is not playback order.
func orderedChunks(dir, stem, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list chunks in %s", dir)
	}
	type chunk struct {
		name string
		ord  int
	}
	prefix := stem + ordinalSep
	suffix := "." + ext
	var found []chunk
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		ord, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
		if err != nil {
			continue
		}
		found = append(found, chunk{name: name, ord: ord})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ord < found[j].ord })
	names := make([]string, 0, len(found))
	for _, c := range found {
		names = append(names, c.name)
	}
	return names, nil
}
