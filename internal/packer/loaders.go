package packer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/saby/builder-sub003/internal/depgraph"
	oerrors "github.com/saby/builder-sub003/internal/errors"
)

// loader turns one resolved item into bundle text.
type loader func(item depgraph.OrderItem, data []byte, bundleDir string) (string, error)

func loaderFor(item depgraph.OrderItem) loader {
	switch item.Kind {
	case depgraph.KindStylesheet:
		return loadStylesheet
	case depgraph.KindDictionary:
		return loadDictionary
	default:
		return loadLiteral
	}
}

// loadLiteral is used for scripts and compiled templates.
func loadLiteral(_ depgraph.OrderItem, data []byte, _ string) (string, error) {
	return string(data), nil
}

func loadStylesheet(item depgraph.OrderItem, data []byte, bundleDir string) (string, error) {
	return RebaseURLs(string(data), filepath.Dir(item.AbsPath), bundleDir)
}

// loadDictionary wraps a JSON dictionary into a module definition.
func loadDictionary(item depgraph.OrderItem, data []byte, _ string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return "", fmt.Errorf("dictionary %s is not valid JSON: %w", item.FullName, err)
	}
	id, err := json.Marshal(item.FullName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("define(%s, function(){return %s;});", id, buf.String()), nil
}

// PageGuard remembers which physical files were already emitted into the
// bundles of one page. It is safe for concurrent use.
type PageGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewPageGuard creates an empty guard for one page.
func NewPageGuard() *PageGuard {
	return &PageGuard{seen: make(map[string]bool)}
}

// Claim reports whether path has not been emitted yet and marks it emitted.
func (g *PageGuard) Claim(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	path = filepath.Clean(path)
	if g.seen[path] {
		return false
	}
	g.seen[path] = true
	return true
}

// isPacked reports items that are themselves bundles of an earlier pack.
func isPacked(item depgraph.OrderItem) bool {
	return strings.Contains(filepath.Base(item.FullPath), ".package.")
}

// PackFiles loads every item with its kind-specific loader and joins the
// results in input order with "\n". Stylesheet urls are rebased against
// bundleDir. Themed pages and already-packed items go through guard, which
// drops files the page has already emitted. guard may be nil.
func (p *Packer) PackFiles(ctx context.Context, items []depgraph.OrderItem, bundleDir, theme string, guard *PageGuard) (string, error) {
	selected := make([]depgraph.OrderItem, 0, len(items))
	for _, item := range items {
		if guard != nil && (theme != "" || isPacked(item)) && !guard.Claim(item.AbsPath) {
			continue
		}
		selected = append(selected, item)
	}

	parts := make([]string, len(selected))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, item := range selected {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(item.AbsPath)
			if err != nil {
				return oerrors.NewArtifactReadError(p.opts.Module, item.AbsPath, err)
			}
			text, err := loaderFor(item)(item, data, bundleDir)
			if err != nil {
				return fmt.Errorf("loading %s: %w", item.FullName, err)
			}
			parts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, "\n"), nil
}
