// Package pipeline drives one build run: it locks the cache, decides which
// modules to rebuild, packs their pages and records the outcome.
package pipeline

import (
	"fmt"
	"time"

	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/lockfile"
	"github.com/saby/builder-sub003/internal/packer"
)

// Concurrency bounds.
const (
	DefaultConcurrency = 20
	MaxConcurrency     = 50
)

// DefaultBundlesDir is the bundle directory inside a module output.
const DefaultBundlesDir = "bundles"

// Module is one build unit with its own output directory and hash record.
type Module struct {
	Name string

	// Source is the directory of the module's compiled inputs.
	Source string

	// Output is the module output directory. It must live under
	// Options.OutputRoot.
	Output string

	// Pages are HTML entry points relative to Output.
	Pages []string
}

// Options configures a build run.
type Options struct {
	// CacheDir holds the lock file, failure store and cached hash records.
	CacheDir string

	// OutputRoot is the application root all module outputs live under.
	OutputRoot string

	Modules []Module

	// Patch lists changed source files. A non-empty patch restricts the run
	// to the affected modules and files.
	Patch []string

	// PatchOutputRoot receives the writes of a patch build. Empty means
	// OutputRoot.
	PatchOutputRoot string

	// Concurrency bounds parallel module and file work, clamped to 1..50.
	// Zero means DefaultConcurrency.
	Concurrency int

	Minimize      bool
	Theme         string
	SelectorLimit int
	ResourceRoot  string
	ReplacePaths  bool

	// BundlesDir is relative to each module output. Empty means
	// DefaultBundlesDir.
	BundlesDir string

	// Identity overrides the lock identity; zero means this process.
	Identity lockfile.Identity

	// OnLastBuildFailed is passed to lockfile.Lock.
	OnLastBuildFailed func(cacheDir string)

	// OnPhase, when set, is called with the name of each phase as it starts.
	OnPhase func(phase string)
}

// Validate checks required options.
func (o *Options) Validate() error {
	if o.CacheDir == "" {
		return oerrors.NewValidationError("cache directory is required", "", "Set cacheDir in builder.yaml or pass --cache-dir.")
	}
	if o.OutputRoot == "" {
		return oerrors.NewValidationError("output directory is required", "", "Set outputDir in builder.yaml.")
	}
	seen := make(map[string]bool, len(o.Modules))
	for i, m := range o.Modules {
		loc := fmt.Sprintf("modules[%d]", i)
		if m.Name == "" {
			return oerrors.NewValidationError("module name is required", loc, "")
		}
		if seen[m.Name] {
			return oerrors.NewValidationError(fmt.Sprintf("duplicate module %q", m.Name), loc, "Module names must be unique.")
		}
		seen[m.Name] = true
		if m.Source == "" || m.Output == "" {
			return oerrors.NewValidationError(fmt.Sprintf("module %q needs source and output directories", m.Name), loc, "")
		}
	}
	return nil
}

func (o *Options) applyDefaults() {
	switch {
	case o.Concurrency == 0:
		o.Concurrency = DefaultConcurrency
	case o.Concurrency < 1:
		o.Concurrency = 1
	case o.Concurrency > MaxConcurrency:
		o.Concurrency = MaxConcurrency
	}
	if o.BundlesDir == "" {
		o.BundlesDir = DefaultBundlesDir
	}
	if o.SelectorLimit <= 0 {
		o.SelectorLimit = packer.DefaultSelectorLimit
	}
	if o.PatchOutputRoot == "" || len(o.Patch) == 0 {
		o.PatchOutputRoot = o.OutputRoot
	}
}

// ModuleResult is the outcome of one module. Err is set when the module
// failed; sibling modules are unaffected.
type ModuleResult struct {
	Module string

	// Skipped is set for modules whose record was kept untouched.
	Skipped bool

	// Built is the number of sources treated as rebuilt.
	Built int

	Bundles []packer.Bundle

	// ModuleHash is the persisted rollup, empty for skipped or failed modules.
	ModuleHash string

	Err error
}

// PhaseRecord captures timing of one run phase.
type PhaseRecord struct {
	Name     string
	Duration time.Duration
	Details  string
}

// Result summarizes a run.
type Result struct {
	// State is the cache state recorded at unlock.
	State   lockfile.CacheState
	Modules []ModuleResult
	Phases  []PhaseRecord
}

// Failed returns the results of failed modules.
func (r *Result) Failed() []ModuleResult {
	var out []ModuleResult
	for _, m := range r.Modules {
		if m.Err != nil {
			out = append(out, m)
		}
	}
	return out
}
