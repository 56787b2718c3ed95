// Package packer concatenates ordered resources into content-addressed
// bundles and registers them in the build metadata.
package packer

import (
	"github.com/saby/builder-sub003/internal/depgraph"
	"github.com/saby/builder-sub003/internal/metadata"
)

// DefaultSelectorLimit is the legacy per-stylesheet selector ceiling.
const DefaultSelectorLimit = 4000

// ResourceRootPlaceholder is substituted by deployment tooling when paths
// are not replaced at build time.
const ResourceRootPlaceholder = "%{RESOURCE_ROOT}"

// Bundle is a written, immutable bundle file.
type Bundle struct {
	// Name is the file name, e.g. en.index.3f2a9c0d1b2e4f56.min.js.
	Name string `json:"name"`

	// Path is the absolute path of the written file.
	Path string `json:"path"`

	// PublicURL is the address pages reference the bundle by.
	PublicURL string `json:"publicUrl"`

	Kind   depgraph.Kind `json:"kind"`
	Locale string        `json:"locale,omitempty"`

	// Skip marks locale bundles excluded from default page markup.
	Skip bool `json:"skip,omitempty"`

	// Hash is the content-derived name suffix.
	Hash string `json:"hash"`
}

// Options configures a Packer.
type Options struct {
	// Module is the build module the bundles belong to.
	Module string

	// OutputRoot is the root all module output directories live under.
	// Registered and public paths are relative to it.
	OutputRoot string

	// BundlesDir is the absolute directory bundles are written to.
	BundlesDir string

	// Registry receives every written bundle. May be nil.
	Registry *metadata.Registry

	// Concurrency bounds parallel file reads. Values below 1 mean 1.
	Concurrency int

	// Minimize adds .min to bundle names and writes unversioned siblings.
	Minimize bool

	// SelectorLimit is the per-chunk selector ceiling. Zero means
	// DefaultSelectorLimit.
	SelectorLimit int

	// ResourceRoot prefixes public bundle URLs. Ignored unless ReplacePaths.
	ResourceRoot string

	// ReplacePaths resolves the resource root at build time. When false the
	// public URL carries ResourceRootPlaceholder.
	ReplacePaths bool
}

// Packer packs the resources of one build module.
type Packer struct {
	opts Options
}

// New creates a Packer.
func New(opts Options) *Packer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SelectorLimit <= 0 {
		opts.SelectorLimit = DefaultSelectorLimit
	}
	if opts.ResourceRoot == "" {
		opts.ResourceRoot = "/"
	}
	return &Packer{opts: opts}
}
