package hashstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File names inside the module .builder directory.
const (
	ModuleHashFile     = "moduleHash"
	ModuleHashListFile = "moduleHash-list"
	SourcesHashFile    = "hash.json"
)

// Dirs names the module directories a record is written to. Patch builds
// write to a separate output root while still updating the shared cache.
type Dirs struct {
	Cache  string
	Output string
}

func (d Dirs) targets() []string {
	if d.Output == "" || filepath.Clean(d.Output) == filepath.Clean(d.Cache) {
		return []string{d.Cache}
	}
	return []string{d.Cache, d.Output}
}

type sourcesDoc struct {
	SourcesHash string `json:"sourcesHash"`
}

// Load reads the record stored under moduleDir/.builder. Missing files mean
// there is no prior state and are not an error.
func Load(moduleDir string) (Record, error) {
	rec := Record{Hashes: Table{}}
	meta := filepath.Join(moduleDir, MetaDir)

	data, err := os.ReadFile(filepath.Join(meta, ModuleHashListFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return rec, fmt.Errorf("reading hash table: %w", err)
	default:
		if err := json.Unmarshal(data, &rec.Hashes); err != nil {
			return Record{Hashes: Table{}}, fmt.Errorf("parsing hash table %s: %w", filepath.Join(meta, ModuleHashListFile), err)
		}
	}

	data, err = os.ReadFile(filepath.Join(meta, SourcesHashFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return rec, fmt.Errorf("reading sources hash: %w", err)
	default:
		var doc sourcesDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return rec, fmt.Errorf("parsing sources hash: %w", err)
		}
		rec.SourcesHash = doc.SourcesHash
	}

	return rec, nil
}

// LoadModuleHash reads the rolled-up module hash, or "" when absent.
func LoadModuleHash(moduleDir string) string {
	data, err := os.ReadFile(filepath.Join(moduleDir, MetaDir, ModuleHashFile))
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}

// Persist writes the rolled-up hash, the key-sorted table and, when set,
// the sources hash to every target directory. It must run only after all
// artifact writes of the module have completed.
func Persist(dirs Dirs, rec Record) error {
	table := rec.Hashes
	if table == nil {
		table = Table{}
	}
	list, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding hash table: %w", err)
	}
	rollup := Rollup(table)

	var sources []byte
	if rec.SourcesHash != "" {
		sources, err = json.Marshal(sourcesDoc{SourcesHash: rec.SourcesHash})
		if err != nil {
			return fmt.Errorf("encoding sources hash: %w", err)
		}
	}

	for _, dir := range dirs.targets() {
		meta := filepath.Join(dir, MetaDir)
		if err := os.MkdirAll(meta, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", meta, err)
		}
		if err := writeFile(filepath.Join(meta, ModuleHashListFile), list); err != nil {
			return err
		}
		if sources != nil {
			if err := writeFile(filepath.Join(meta, SourcesHashFile), sources); err != nil {
				return err
			}
		}
		// The rollup goes last: its presence means the record is complete.
		if err := writeFile(filepath.Join(meta, ModuleHashFile), []byte(rollup)); err != nil {
			return err
		}
	}
	return nil
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
