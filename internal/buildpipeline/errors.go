package buildpipeline

import (
	"errors"
	"fmt"

	"zealbuild/internal/diag"
)

var (
	// ErrStageExit marks a stage that returned a non-zero exit code.
	ErrStageExit = errors.New("stage exited with non-zero status")
	// ErrStageDiagnostics marks a stage that exited 0 but reported diagnostics.
	ErrStageDiagnostics = errors.New("stage reported diagnostics")
	// ErrStageOutput marks a stage that succeeded without writing a declared output.
	ErrStageOutput = errors.New("stage output missing")
)

// PipelineError is returned when a stage fails. Diagnostics holds every
// diagnostic of the run in emission order.
type PipelineError struct {
	Stage       Stage
	ExitCode    int
	Diagnostics []diag.Diagnostic
	Err         error
}

func (e *PipelineError) Error() string {
	n := len(e.Diagnostics)
	noun := "diagnostics"
	if n == 1 {
		noun = "diagnostic"
	}
	return fmt.Sprintf("%s failed (exit code %d, %d %s): %v", e.Stage, e.ExitCode, n, noun, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
