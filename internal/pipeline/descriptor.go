package pipeline

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Command selects which transformation a worker performs for one unit of
// work.
type Command string

const (
	CommandExtract   Command = "extract"
	CommandSplit     Command = "split"
	CommandTranscode Command = "transcode"
	CommandMerge     Command = "merge"
	CommandReplace   Command = "replace"
)

// Descriptor is the serializable task specification handed to a worker.
// Each command kind is its own variant carrying only its own fields, so a
// malformed combination is unrepresentable. Every path inside a descriptor
// refers to the worker's mounted namespace, never the orchestrator's host
// filesystem; that is what makes a descriptor portable to any worker.
type Descriptor interface {
	Command() Command
}

var validate = validator.New()

func validateJob(d Descriptor) error {
	if err := validate.Struct(d); err != nil {
		return errors.Wrapf(ErrInvalidParameter, "%s descriptor: %v", d.Command(), err)
	}
	return nil
}

type ExtractJob struct {
	Cmd             Command  `json:"command" validate:"required,eq=extract"`
	InputFile       string   `json:"input_file" validate:"required"`
	OutputFile      string   `json:"output_file" validate:"required"`
	SelectedStreams []string `json:"selected_streams" validate:"required,min=1"`
}

func (ExtractJob) Command() Command { return CommandExtract }

// NewExtractJob builds the descriptor that pulls the video track out of the
// container mounted at inputPathInWorker. The output name is derived from
// the input so later stages can find it by re-deriving the same string.
func NewExtractJob(inputPathInWorker string) (*ExtractJob, error) {
	stem, err := Stem(path.Base(inputPathInWorker))
	if err != nil {
		return nil, err
	}
	j := &ExtractJob{
		Cmd:             CommandExtract,
		InputFile:       inputPathInWorker,
		OutputFile:      VideoOnlyName(stem, Extension(inputPathInWorker)),
		SelectedStreams: []string{"v"},
	}
	return j, validateJob(j)
}

type SplitJob struct {
	Cmd          Command `json:"command" validate:"required,eq=split"`
	PathToStream string  `json:"path_to_stream" validate:"required"`
	Parts        int     `json:"parts" validate:"required,min=1"`
}

func (SplitJob) Command() Command { return CommandSplit }

func NewSplitJob(pathToStream string, parts int) (*SplitJob, error) {
	if parts < 1 {
		return nil, errors.Wrapf(ErrInvalidParameter, "split: parts must be positive, got %d", parts)
	}
	j := &SplitJob{
		Cmd:          CommandSplit,
		PathToStream: pathToStream,
		Parts:        parts,
	}
	return j, validateJob(j)
}

// TranscodeOptions carries the target encoding parameters shared by every
// chunk of one transcode fan-out. Concurrency caps how many chunks encode
// at once; values below two run the chunks sequentially.
type TranscodeOptions struct {
	VideoCodec   string
	VideoBitrate string
	AudioCodec   string
	AudioBitrate string
	Resolution   [2]int
	FrameRate    int
	UsePlaylist  bool
	Concurrency  int
}

type StreamArgs struct {
	Codec   string `json:"codec" validate:"required"`
	Bitrate string `json:"bitrate,omitempty"`
}

type TranscodeArgs struct {
	Video      StreamArgs `json:"video"`
	Audio      StreamArgs `json:"audio"`
	Resolution [2]int     `json:"resolution"`
	FrameRate  int        `json:"frame_rate"`
}

type TranscodeJob struct {
	Cmd          Command       `json:"command" validate:"required,eq=transcode"`
	Track        string        `json:"track" validate:"required"`
	OutputStream string        `json:"output_stream" validate:"required"`
	UsePlaylist  bool          `json:"use_playlist"`
	Targs        TranscodeArgs `json:"targs"`
}

func (TranscodeJob) Command() Command { return CommandTranscode }

func NewTranscodeJob(track, outputStream string, opts TranscodeOptions) (*TranscodeJob, error) {
	j := &TranscodeJob{
		Cmd:          CommandTranscode,
		Track:        track,
		OutputStream: outputStream,
		UsePlaylist:  opts.UsePlaylist,
		Targs: TranscodeArgs{
			Video:      StreamArgs{Codec: opts.VideoCodec, Bitrate: opts.VideoBitrate},
			Audio:      StreamArgs{Codec: opts.AudioCodec, Bitrate: opts.AudioBitrate},
			Resolution: opts.Resolution,
			FrameRate:  opts.FrameRate,
		},
	}
	return j, validateJob(j)
}

type MergeJob struct {
	Cmd          Command  `json:"command" validate:"required,eq=merge"`
	OutputStream string   `json:"output_stream" validate:"required"`
	Chunks       []string `json:"chunks" validate:"required,min=1"`
}

func (MergeJob) Command() Command { return CommandMerge }

// NewMergeJob builds the merge descriptor from chunks already in the
// intended playback order. The order is taken verbatim; the caller owns it,
// because a directory listing cannot be trusted to reproduce it.
func NewMergeJob(outputStream string, chunks []string) (*MergeJob, error) {
	inWorker := make([]string, 0, len(chunks))
	for _, name := range chunks {
		inWorker = append(inWorker, path.Join(ResourcesPath, name))
	}
	j := &MergeJob{
		Cmd:          CommandMerge,
		OutputStream: outputStream,
		Chunks:       inWorker,
	}
	return j, validateJob(j)
}

type ReplaceJob struct {
	Cmd               Command `json:"command" validate:"required,eq=replace"`
	InputFile         string  `json:"input_file" validate:"required"`
	ReplacementSource string  `json:"replacement_source" validate:"required"`
	OutputFile        string  `json:"output_file" validate:"required"`
	StreamType        string  `json:"stream_type" validate:"required,oneof=v a"`
}

func (ReplaceJob) Command() Command { return CommandReplace }

func NewReplaceJob(inputFile, replacementSource, outputFile, streamType string) (*ReplaceJob, error) {
	if streamType != "v" && streamType != "a" {
		return nil, errors.Wrapf(ErrInvalidParameter, "replace: stream type must be v or a, got %q", streamType)
	}
	j := &ReplaceJob{
		Cmd:               CommandReplace,
		InputFile:         inputFile,
		ReplacementSource: replacementSource,
		OutputFile:        outputFile,
		StreamType:        streamType,
	}
	return j, validateJob(j)
}

// writeDescriptor materializes the descriptor as UTF-8 JSON at the fixed
// well-known path inside the work scope, the sole task specification the
// worker sees.
func writeDescriptor(workDir string, d Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s descriptor", d.Command())
	}
	target := filepath.Join(workDir, DescriptorFile)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s descriptor", d.Command())
	}
	return nil
}
