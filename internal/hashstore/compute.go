package hashstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	oerrors "github.com/saby/builder-sub003/internal/errors"
)

// ArtifactAllowlist lists cross-cutting build artifacts covered by
// ComputeModuleArtifactsHash. Only files directly under the module output
// directory are considered.
var ArtifactAllowlist = []string{
	"contents.json",
	"libraries.json",
	"module-dependencies.json",
	"navigation-modules.json",
	"routes-info.json",
	"static_templates.json",
}

// MetaDir is the per-module directory holding builder state.
const MetaDir = ".builder"

// ArtifactsKey is the table key of the module artifacts rollup.
const ArtifactsKey = "module-artifacts"

// ComputeModuleArtifactsHash hashes a canonical projection of the allowlisted
// artifacts of a module. Keys are sorted and strings NFC-normalized, so the
// result does not depend on directory listing order or path encoding.
func ComputeModuleArtifactsHash(moduleDir string) (string, error) {
	doc := make(map[string]any)
	for _, name := range ArtifactAllowlist {
		path := filepath.Join(moduleDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", oerrors.NewArtifactReadError(filepath.Base(moduleDir), path, err)
		}

		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return "", oerrors.NewArtifactReadError(filepath.Base(moduleDir), path, err)
		}
		doc[name] = normalize(v)
	}

	// encoding/json sorts map keys, which gives the canonical form.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding artifacts of %s: %w", moduleDir, err)
	}
	return sum(canonical), nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case []any:
		for i := range val {
			val[i] = normalize(val[i])
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[norm.NFC.String(k)] = normalize(elem)
		}
		return out
	default:
		return v
	}
}

// HashFiles computes a content hash for every path (relative to root) using
// at most limit concurrent readers.
func HashFiles(ctx context.Context, module, root string, paths []string, limit int) (Table, error) {
	if limit < 1 {
		limit = 1
	}

	var mu sync.Mutex
	out := make(Table, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			full := filepath.Join(root, filepath.FromSlash(p))
			data, err := os.ReadFile(full)
			if err != nil {
				return oerrors.NewArtifactReadError(module, full, err)
			}
			h := sum(data)

			mu.Lock()
			out[p] = Hash(h)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeSourcesHash summarizes every file under dir. The .builder state
// directory is excluded.
func ComputeSourcesHash(ctx context.Context, module, dir string, limit int) (string, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return "", err
	}
	table, err := HashFiles(ctx, module, dir, files, limit)
	if err != nil {
		return "", err
	}
	return Rollup(table), nil
}

// ListFiles returns slash-separated paths of all regular files under dir,
// sorted, excluding the .builder state directory.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == MetaDir && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Rollup computes a single hash over a table. Keys are sorted first.
func Rollup(t Table) string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		e := t[k]
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(e.Kind))
		h.Write([]byte{0})
		h.Write([]byte(e.Value))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
