package pipeline

import (
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Naming conventions shared by every stage. Cross-stage lookups re-derive
// these strings instead of reading metadata, so the exact delimiters are
// part of the wire contract.
const (
	videoOnlyTag   = "[video-only]"
	transcodedTag  = "_TC"
	ResourcesPath  = "/resources"
	WorkPath       = "/work"
	OutputPath     = "/output"
	DescriptorFile = "params.json"
	inputAliasDir  = "/tmp"
	ordinalSep     = "_"
)

// Stem returns the path with its final extension removed.
func Stem(p string) (string, error) {
	if p == "" {
		return "", errors.Wrap(ErrInvalidParameter, "stem of empty path")
	}
	if i := strings.LastIndex(p, "."); i >= 0 {
		return p[:i], nil
	}
	return p, nil
}

// Extension returns the substring after the final dot, or "" if there is none.
func Extension(p string) string {
	if i := strings.LastIndex(p, "."); i >= 0 {
		return p[i+1:]
	}
	return ""
}

// VideoOnlyName names the video-only derivative of a stream.
func VideoOnlyName(stem, ext string) string {
	return stem + videoOnlyTag + "." + ext
}

// TranscodedName names the transcoded counterpart of a chunk.
func TranscodedName(chunkStem, ext string) string {
	return chunkStem + transcodedTag + "." + ext
}

// ChunkPattern is the glob matching every chunk derived from chunkStem.
func ChunkPattern(chunkStem, ext string) string {
	return chunkStem + ordinalSep + "*." + ext
}

// InputAlias is the in-worker path at which the pipeline's original input
// file is mounted read-only.
func InputAlias(inputPath string) string {
	return path.Join(inputAliasDir, path.Base(inputPath))
}
