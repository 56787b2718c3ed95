// Package errors provides the error taxonomy of the builder.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// DetailError captures structured error information for user-facing failures.
type DetailError struct {
	// Type is the error category (required).
	Type string

	// Message is the specific description (required).
	Message string

	// Location is the file or cache resource responsible (optional).
	Location string

	// Context contains additional key-value context (optional).
	Context map[string]string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	var b strings.Builder

	b.WriteString("Error: ")
	b.WriteString(e.Type)
	b.WriteString("\n")

	if e.Location != "" {
		b.WriteString("  Location: ")
		b.WriteString(e.Location)
		b.WriteString("\n")
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Context[k])
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewConcurrentAccessError reports that a different process now owns the lock file.
func NewConcurrentAccessError(lockPath string, ownerPID, selfPID int) error {
	return &DetailError{
		Type:     "concurrent cache access",
		Message:  fmt.Sprintf("build cache is now owned by process %d, this run (process %d) cannot claim its results", ownerPID, selfPID),
		Location: lockPath,
		Context: map[string]string{
			"Owner PID": fmt.Sprint(ownerPID),
			"Self PID":  fmt.Sprint(selfPID),
		},
		Hint:  "Do not run several builds against the same cache directory at once.",
		Cause: ErrConcurrentCacheAccess,
	}
}

// NewLockFileMissingError reports that the lock file vanished while the run was in progress.
func NewLockFileMissingError(lockPath string) error {
	return &DetailError{
		Type:     "lock file missing",
		Message:  "build lock file was removed while the build was running, cache contents cannot be trusted",
		Location: lockPath,
		Hint:     "Check for processes that clean the cache directory during builds.",
		Cause:    ErrLockFileMissing,
	}
}

// NewArtifactReadError reports an unreadable artifact of a module.
func NewArtifactReadError(module, path string, cause error) error {
	return &DetailError{
		Type:     "artifact read failure",
		Message:  cause.Error(),
		Location: path,
		Context:  map[string]string{"Module": module},
		Cause:    fmt.Errorf("%w: %w", ErrArtifactRead, cause),
	}
}

// NewValidationError creates a validation error with details.
func NewValidationError(message, location, hint string) error {
	return &DetailError{
		Type:     "validation failed",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrValidation,
	}
}

// NewNotFoundError creates a not found error with details.
func NewNotFoundError(message, location, hint string) error {
	return &DetailError{
		Type:     "not found",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrNotFound,
	}
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
