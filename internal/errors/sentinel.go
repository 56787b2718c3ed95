package errors

import "errors"

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates a configuration schema validation failure.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a module, page or file was not found.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentCacheAccess indicates another process took over the build
	// lock file while this run was in progress.
	ErrConcurrentCacheAccess = errors.New("concurrent cache access")

	// ErrLockFileMissing indicates the build lock file disappeared mid-run.
	ErrLockFileMissing = errors.New("lock file missing")

	// ErrUnresolvedDependency indicates a referenced module is not part of
	// the dependency graph. It is logged, never fatal.
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrArtifactRead indicates a compiled artifact could not be read while
	// hashing or packing. Fatal to the owning module only.
	ErrArtifactRead = errors.New("artifact read failure")
)
