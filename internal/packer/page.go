package packer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/saby/builder-sub003/internal/depgraph"
)

// PageOptions describes the resources of one HTML entry point.
type PageOptions struct {
	// Page is the page file name, e.g. index.html.
	Page string

	// Theme is the page theme, empty for unthemed pages.
	Theme string

	Queue depgraph.ResultQueue
}

// PackPage packs every partition of a page queue and returns the written
// bundles sorted by name:
//   - scripts, preceded by stylesheet stubs, into one bundle;
//   - stylesheets into selector-limited chunks;
//   - per-locale dictionaries and stylesheets into Skip bundles.
func (p *Packer) PackPage(ctx context.Context, opts PageOptions) ([]Bundle, error) {
	base := strings.TrimSuffix(opts.Page, filepath.Ext(opts.Page))
	guard := NewPageGuard()
	var bundles []Bundle

	js, err := p.PackFiles(ctx, opts.Queue.JS, p.opts.BundlesDir, opts.Theme, guard)
	if err != nil {
		return nil, fmt.Errorf("packing scripts of %s: %w", opts.Page, err)
	}
	stubs := GenerateFakeModuleStubs(opts.Queue.CSS, opts.Theme, opts.Page)
	if stubs != "" {
		js = strings.TrimPrefix(stubs+"\n"+js, "\n")
	}
	if strings.TrimSpace(js) != "" {
		b, err := p.GeneratePackage(ctx, PackageOptions{Text: js, Base: base, Kind: depgraph.KindScript})
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}

	cssBundles, err := p.packStylesheets(ctx, opts.Queue.CSS, base, "", opts.Theme, guard)
	if err != nil {
		return nil, fmt.Errorf("packing stylesheets of %s: %w", opts.Page, err)
	}
	bundles = append(bundles, cssBundles...)

	for _, locale := range opts.Queue.Locales() {
		dict, err := p.PackFiles(ctx, opts.Queue.Dict[locale], p.opts.BundlesDir, opts.Theme, guard)
		if err != nil {
			return nil, fmt.Errorf("packing %s dictionaries of %s: %w", locale, opts.Page, err)
		}
		if strings.TrimSpace(dict) != "" {
			b, err := p.GeneratePackage(ctx, PackageOptions{Text: dict, Base: base, Kind: depgraph.KindDictionary, Locale: locale})
			if err != nil {
				return nil, err
			}
			bundles = append(bundles, b)
		}

		localeCSS, err := p.packStylesheets(ctx, opts.Queue.CSSForLocale[locale], base, locale, opts.Theme, guard)
		if err != nil {
			return nil, fmt.Errorf("packing %s stylesheets of %s: %w", locale, opts.Page, err)
		}
		bundles = append(bundles, localeCSS...)
	}

	sort.Slice(bundles, func(i, j int) bool { return bundles[i].Name < bundles[j].Name })
	return bundles, nil
}

func (p *Packer) packStylesheets(ctx context.Context, items []depgraph.OrderItem, base, locale, theme string, guard *PageGuard) ([]Bundle, error) {
	files := make([]string, 0, len(items))
	for _, item := range items {
		if (theme != "" || isPacked(item)) && !guard.Claim(item.AbsPath) {
			continue
		}
		files = append(files, item.AbsPath)
	}
	if len(files) == 0 {
		return nil, nil
	}

	chunks, err := PackCSS(files, p.opts.OutputRoot, p.opts.BundlesDir, p.opts.SelectorLimit)
	if err != nil {
		return nil, err
	}

	bundles := make([]Bundle, 0, len(chunks))
	for i, chunk := range chunks {
		chunkBase := base
		if i > 0 {
			chunkBase = base + "-" + strconv.Itoa(i)
		}
		b, err := p.GeneratePackage(ctx, PackageOptions{
			Text:   chunk,
			Base:   chunkBase,
			Kind:   depgraph.KindStylesheet,
			Locale: locale,
		})
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}
