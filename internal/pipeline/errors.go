package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	oerrors "github.com/saby/builder-sub003/internal/errors"
)

// ModuleError is a failure confined to one module.
type ModuleError struct {
	// ModuleName is the failed module.
	ModuleName string

	// Phase is the run phase the failure happened in.
	Phase string

	Err error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %q failed during %s: %v", e.ModuleName, e.Phase, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// Module returns the failed module name.
func (e *ModuleError) Module() string {
	return e.ModuleName
}

// failedFile picks the file to record in the failure store: the location of
// a detailed error relative to the module source, or "." for the whole
// module.
func failedFile(err error, sourceDir string) string {
	var de *oerrors.DetailError
	if !errors.As(err, &de) || de.Location == "" {
		return "."
	}
	rel, relErr := filepath.Rel(sourceDir, de.Location)
	if relErr != nil || !filepath.IsLocal(rel) {
		return filepath.ToSlash(de.Location)
	}
	return filepath.ToSlash(rel)
}
