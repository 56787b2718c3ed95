package cmd

import (
	"errors"

	oerrors "github.com/saby/builder-sub003/internal/errors"
)

// ErrModuleFailed marks a run where some modules failed while the rest
// were built.
var ErrModuleFailed = errors.New("module build failed")

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int

	// Printed is set when the command already reported the error.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, oerrors.ErrValidation):
		return ExitValidationError
	case errors.Is(err, oerrors.ErrConcurrentCacheAccess), errors.Is(err, oerrors.ErrLockFileMissing):
		return ExitLockError
	case errors.Is(err, ErrModuleFailed):
		return ExitModuleFailed
	case errors.Is(err, oerrors.ErrNotFound):
		return ExitNotFound
	default:
		return ExitGeneralError
	}
}

// withExitCode wraps err in an ExitError carrying its mapped code.
func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return NewExitError(err, ExitCodeFromError(err))
}
