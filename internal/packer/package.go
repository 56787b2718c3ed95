package packer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/saby/builder-sub003/internal/depgraph"
)

// suffixLen is the number of hex digits of the content hash used in names.
const suffixLen = 16

// PackageOptions describes one bundle to generate.
type PackageOptions struct {
	// Text is the complete bundle content.
	Text string

	// Base is the bundle base name, usually the page name.
	Base string

	// Kind selects the extension: stylesheets get .css, everything else .js.
	Kind depgraph.Kind

	// Locale prefixes the name and marks the bundle Skip.
	Locale string
}

// ContentSuffix returns the content-derived name suffix of a bundle text.
func ContentSuffix(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:suffixLen]
}

// BundleName returns [<locale>.]<base>[.<suffix>][.min].<ext>. An empty
// suffix yields the unversioned name.
func BundleName(base, locale, suffix string, kind depgraph.Kind, minimize bool) string {
	parts := make([]string, 0, 5)
	if locale != "" {
		parts = append(parts, locale)
	}
	parts = append(parts, base)
	if suffix != "" {
		parts = append(parts, suffix)
	}
	if minimize {
		parts = append(parts, "min")
	}
	ext := "js"
	if kind == depgraph.KindStylesheet {
		ext = "css"
	}
	parts = append(parts, ext)
	return strings.Join(parts, ".")
}

// GeneratePackage writes a bundle named after its content and registers it
// as a versioned and CDN module. Identical text always yields the same
// name, and an existing file with that name is left as is. With Minimize the
// unversioned sibling is written as well.
func (p *Packer) GeneratePackage(ctx context.Context, opts PackageOptions) (Bundle, error) {
	if err := ctx.Err(); err != nil {
		return Bundle{}, err
	}

	suffix := ContentSuffix(opts.Text)
	name := BundleName(opts.Base, opts.Locale, suffix, opts.Kind, p.opts.Minimize)
	full := filepath.Join(p.opts.BundlesDir, name)

	if err := os.MkdirAll(p.opts.BundlesDir, 0o755); err != nil {
		return Bundle{}, fmt.Errorf("creating bundle directory: %w", err)
	}
	if err := writeIfChanged(full, []byte(opts.Text)); err != nil {
		return Bundle{}, err
	}
	if p.opts.Minimize {
		sibling := BundleName(opts.Base, opts.Locale, "", opts.Kind, true)
		if err := writeIfChanged(filepath.Join(p.opts.BundlesDir, sibling), []byte(opts.Text)); err != nil {
			return Bundle{}, err
		}
	}

	rel, err := filepath.Rel(p.opts.OutputRoot, full)
	if err != nil {
		return Bundle{}, fmt.Errorf("bundle %s is outside the output root: %w", full, err)
	}
	rel = filepath.ToSlash(rel)
	if p.opts.Registry != nil {
		p.opts.Registry.AddVersionedModule(p.opts.Module, rel)
		p.opts.Registry.AddCdnModule(p.opts.Module, rel)
	}

	return Bundle{
		Name:      name,
		Path:      full,
		PublicURL: p.publicURL(rel),
		Kind:      opts.Kind,
		Locale:    opts.Locale,
		Skip:      opts.Locale != "",
		Hash:      suffix,
	}, nil
}

// publicURL resolves rel against the resource root. Without path replacement
// the placeholder wins over any configured root.
func (p *Packer) publicURL(rel string) string {
	if !p.opts.ReplacePaths {
		return ResourceRootPlaceholder + rel
	}
	root := p.opts.ResourceRoot
	if strings.Contains(root, "://") || strings.HasPrefix(root, "//") {
		return strings.TrimSuffix(root, "/") + "/" + rel
	}
	return path.Join("/", root, rel)
}

func writeIfChanged(full string, data []byte) error {
	if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing bundle %s: %w", full, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing bundle %s: %w", full, err)
	}
	return nil
}
