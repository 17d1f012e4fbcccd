package runner

import (
	"errors"
	"fmt"
)

// ProgramNotFoundError indicates the external program is not installed or
// not on PATH. Fatal for the chain; never retried.
type ProgramNotFoundError struct {
	Program string
	Err     error
}

// Error implements the error interface.
func (e *ProgramNotFoundError) Error() string {
	return fmt.Sprintf("external program %q not found: %v", e.Program, e.Err)
}

// Unwrap returns the underlying lookup error.
func (e *ProgramNotFoundError) Unwrap() error {
	return e.Err
}

// ExternalProgramError indicates a program exited non-zero. Invocations are
// deterministic given identical inputs, so retrying would reproduce the
// same failure; the error propagates to the caller instead.
type ExternalProgramError struct {
	Program  string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExternalProgramError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Program, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Program, e.ExitCode)
}

// OutputNotProducedError indicates a program reported success but its
// declared output path is absent or empty. Several wrapped binaries exit 0
// on partial failure, so the output check is part of the invocation
// contract.
type OutputNotProducedError struct {
	Program    string
	OutputPath string
}

// Error implements the error interface.
func (e *OutputNotProducedError) Error() string {
	return fmt.Sprintf("%s reported success but produced no output at %s", e.Program, e.OutputPath)
}

// IsProgramNotFound reports whether err is a ProgramNotFoundError.
func IsProgramNotFound(err error) bool {
	var target *ProgramNotFoundError
	return errors.As(err, &target)
}

// IsExternalProgramError reports whether err is an ExternalProgramError.
func IsExternalProgramError(err error) bool {
	var target *ExternalProgramError
	return errors.As(err, &target)
}

// IsOutputNotProduced reports whether err is an OutputNotProducedError.
func IsOutputNotProduced(err error) bool {
	var target *OutputNotProducedError
	return errors.As(err, &target)
}
