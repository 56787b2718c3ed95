// Package metadata keeps build-wide registries consumed by deployment
// tooling: versioned and CDN artifact paths, and source files that failed
// to compile.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry file names inside the module .builder directory.
const (
	metaDir              = ".builder"
	VersionedModulesFile = "versioned_modules.json"
	CdnModulesFile       = "cdn_modules.json"
)

// Registry collects artifact paths per build module. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.Mutex
	versioned map[string]map[string]struct{}
	cdn       map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		versioned: make(map[string]map[string]struct{}),
		cdn:       make(map[string]map[string]struct{}),
	}
}

// AddVersionedModule registers an artifact eligible for cache busting.
func (r *Registry) AddVersionedModule(module, path string) {
	r.add(r.versioned, module, path)
}

// AddCdnModule registers an artifact eligible for CDN delivery.
func (r *Registry) AddCdnModule(module, path string) {
	r.add(r.cdn, module, path)
}

func (r *Registry) add(set map[string]map[string]struct{}, module, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths, ok := set[module]
	if !ok {
		paths = make(map[string]struct{})
		set[module] = paths
	}
	paths[filepath.ToSlash(path)] = struct{}{}
}

// Versioned returns the sorted versioned paths of a module.
func (r *Registry) Versioned(module string) []string {
	return r.list(r.versioned, module)
}

// Cdn returns the sorted CDN paths of a module.
func (r *Registry) Cdn(module string) []string {
	return r.list(r.cdn, module)
}

func (r *Registry) list(set map[string]map[string]struct{}, module string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(set[module]))
	for p := range set[module] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Save writes the module's registries to moduleOutputDir/.builder as sorted
// JSON arrays. Empty registries are written as [] so stale lists from a
// previous run never survive.
func (r *Registry) Save(module, moduleOutputDir string) error {
	meta := filepath.Join(moduleOutputDir, metaDir)
	if err := os.MkdirAll(meta, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", meta, err)
	}

	for name, paths := range map[string][]string{
		VersionedModulesFile: r.Versioned(module),
		CdnModulesFile:       r.Cdn(module),
	} {
		data, err := json.MarshalIndent(paths, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := writeFile(filepath.Join(meta, name), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadList reads a registry file written by Save. A missing file is an
// empty list.
func LoadList(moduleOutputDir, name string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(moduleOutputDir, metaDir, name))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return out, nil
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
