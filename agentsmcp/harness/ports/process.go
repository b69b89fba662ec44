package harnessports

import (
	"context"
	"errors"
)

// ErrOutputLimitExceeded is returned when the agent writes more than the
// configured bound to one of its output streams.
var ErrOutputLimitExceeded = errors.New("agent output exceeded limit")

// ProcessOutput is what the external agent left on its streams.
type ProcessOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ProcessRunner runs the external agent once with a model id and a rendered prompt.
// A non-zero exit is reported through ExitCode; the error is reserved for runs
// that never completed (spawn failure, output bound, cancellation).
type ProcessRunner interface {
	Run(ctx context.Context, model, prompt string) (ProcessOutput, error)
}
