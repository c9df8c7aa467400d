package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidParameter reports malformed descriptor construction input.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoMatchingChunks reports a transcode fan-out that discovered zero
	// chunks for a stem. It signals a naming or prior-stage failure upstream
	// and is surfaced, never silently skipped.
	ErrNoMatchingChunks = errors.New("no matching chunks")
)

// WorkerFailure reports a worker process that exited non-zero. The core
// performs no retry; the failure propagates to whoever drives the composer.
type WorkerFailure struct {
	Stage    string
	Unit     string
	ExitCode int
	Stderr   string
}

func (w *WorkerFailure) Error() string {
	if w.Unit != "" {
		return fmt.Sprintf("%s: worker failed on %s with exit code %d: %s", w.Stage, w.Unit, w.ExitCode, w.Stderr)
	}
	return fmt.Sprintf("%s: worker failed with exit code %d: %s", w.Stage, w.ExitCode, w.Stderr)
}
