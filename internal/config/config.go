// Package config provides configuration loading and management.
package config

import (
	"path/filepath"

	"github.com/saby/builder-sub003/internal/pipeline"
)

// Default values.
const (
	DefaultConcurrency    = pipeline.DefaultConcurrency
	DefaultSelectorLimit  = 4000
	DefaultBundlesDir     = pipeline.DefaultBundlesDir
	DefaultCacheDir       = ".builder-cache"
	DefaultOutputDir      = "out"
	DefaultResourceRoot   = "/"
	DefaultConfigFileName = "builder.yaml"
)

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `json:"timestamps,omitempty" yaml:"timestamps,omitempty" mapstructure:"timestamps"`
}

// ModuleConfig declares one build module.
type ModuleConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Source is the directory of the module's compiled inputs.
	Source string `json:"source" yaml:"source" mapstructure:"source"`

	// Output defaults to <outputDir>/<name>.
	Output string `json:"output,omitempty" yaml:"output,omitempty" mapstructure:"output"`

	// Pages are HTML entry points relative to the module output.
	Pages []string `json:"pages,omitempty" yaml:"pages,omitempty" mapstructure:"pages"`
}

// Config represents the builder configuration.
// Loaded from builder.yaml, validated against the embedded CUE schema.
type Config struct {
	// CacheDir holds the lock file and cached hash records.
	// Env: BUILDER_CACHE_DIR
	CacheDir string `json:"cacheDir" yaml:"cacheDir" mapstructure:"cacheDir"`

	// OutputDir is the application root all module outputs live under.
	// Env: BUILDER_OUTPUT_DIR
	OutputDir string `json:"outputDir" yaml:"outputDir" mapstructure:"outputDir"`

	// Concurrency bounds parallel work, 1..50.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty" mapstructure:"concurrency"`

	Minimize bool   `json:"minimize,omitempty" yaml:"minimize,omitempty" mapstructure:"minimize"`
	Theme    string `json:"theme,omitempty" yaml:"theme,omitempty" mapstructure:"theme"`

	// CSSSelectorLimit is the per-stylesheet selector ceiling.
	CSSSelectorLimit int `json:"cssSelectorLimit,omitempty" yaml:"cssSelectorLimit,omitempty" mapstructure:"cssSelectorLimit"`

	// ResourceRoot prefixes public bundle URLs when ReplacePaths is set.
	ResourceRoot string `json:"resourceRoot,omitempty" yaml:"resourceRoot,omitempty" mapstructure:"resourceRoot"`

	// ReplacePaths resolves resource roots at build time instead of leaving
	// placeholders for deployment.
	ReplacePaths bool `json:"replacePaths,omitempty" yaml:"replacePaths,omitempty" mapstructure:"replacePaths"`

	// BundlesDir is relative to each module output.
	BundlesDir string `json:"bundlesDir,omitempty" yaml:"bundlesDir,omitempty" mapstructure:"bundlesDir"`

	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty" mapstructure:"log"`

	Modules []ModuleConfig `json:"modules,omitempty" yaml:"modules,omitempty" mapstructure:"modules"`
}

// DefaultConfig returns a Config with all default values populated.
// Used by `builder config init` to generate the initial config file.
func DefaultConfig() *Config {
	return &Config{
		CacheDir:         DefaultCacheDir,
		OutputDir:        DefaultOutputDir,
		Concurrency:      DefaultConcurrency,
		CSSSelectorLimit: DefaultSelectorLimit,
		ResourceRoot:     DefaultResourceRoot,
		BundlesDir:       DefaultBundlesDir,
		Modules:          []ModuleConfig{},
	}
}

// WithDefaults returns a copy with unset values defaulted.
func (c *Config) WithDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.CacheDir == "" {
		out.CacheDir = def.CacheDir
	}
	if out.OutputDir == "" {
		out.OutputDir = def.OutputDir
	}
	if out.Concurrency == 0 {
		out.Concurrency = def.Concurrency
	}
	if out.CSSSelectorLimit == 0 {
		out.CSSSelectorLimit = def.CSSSelectorLimit
	}
	if out.ResourceRoot == "" {
		out.ResourceRoot = def.ResourceRoot
	}
	if out.BundlesDir == "" {
		out.BundlesDir = def.BundlesDir
	}
	return &out
}

// PipelineOptions converts the configuration into build options. Relative
// paths are resolved against baseDir, normally the config file directory.
func (c *Config) PipelineOptions(baseDir string) pipeline.Options {
	outputRoot := ResolvePath(baseDir, c.OutputDir)
	modules := make([]pipeline.Module, 0, len(c.Modules))
	for _, m := range c.Modules {
		out := ResolvePath(baseDir, m.Output)
		if m.Output == "" {
			out = filepath.Join(outputRoot, m.Name)
		}
		modules = append(modules, pipeline.Module{
			Name:   m.Name,
			Source: ResolvePath(baseDir, m.Source),
			Output: out,
			Pages:  m.Pages,
		})
	}

	return pipeline.Options{
		CacheDir:      ResolvePath(baseDir, c.CacheDir),
		OutputRoot:    outputRoot,
		Modules:       modules,
		Concurrency:   c.Concurrency,
		Minimize:      c.Minimize,
		Theme:         c.Theme,
		SelectorLimit: c.CSSSelectorLimit,
		ResourceRoot:  c.ResourceRoot,
		ReplacePaths:  c.ReplacePaths,
		BundlesDir:    c.BundlesDir,
	}
}
