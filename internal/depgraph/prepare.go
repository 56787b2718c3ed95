package depgraph

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/saby/builder-sub003/internal/output"
)

// OrderItem is a graph node resolved to a physical file.
type OrderItem struct {
	// Module is the bare module name without plugins.
	Module string `json:"module"`

	// Plugin is the loading plugin ("" for plain scripts).
	Plugin string `json:"plugin,omitempty"`

	// FullName is the normalized node id.
	FullName string `json:"fullName"`

	// FullPath is the slash-separated file path relative to the application root.
	FullPath string `json:"fullPath"`

	// AbsPath is FullPath joined to the root given to PrepareResultQueue.
	AbsPath string `json:"-"`

	Kind   Kind   `json:"kind"`
	Locale string `json:"locale,omitempty"`
	AMD    bool   `json:"amd,omitempty"`
}

// pluginExt maps loading plugins to the extension appended to the module
// name. Plugins whose names already carry an extension map to "".
var pluginExt = map[string]string{
	"":     ".js",
	"css":  ".css",
	"html": ".xhtml",
	"tmpl": ".tmpl",
	"wml":  ".wml",
	"text": "",
	"json": "",
	"i18n": "",
}

// PrepareOptions configures queue preparation.
type PrepareOptions struct {
	// Minimize prefers *.min.* files when they exist.
	Minimize bool
}

// PrepareOrderQueue resolves ids to physical files inside fsys, which is
// rooted at the application root. Every id resolves to zero or one file.
// External, type-only and unresolvable ids are dropped without failing.
func PrepareOrderQueue(g *Graph, ids []string, fsys fs.FS, opts PrepareOptions) []OrderItem {
	items := make([]OrderItem, 0, len(ids))
	for _, raw := range ids {
		id, _ := Normalize(raw)
		plugin := ResourcePlugin(id)
		_, name := SplitPlugins(id)

		if isExternal(name) {
			output.Debug("skipping external module", "module", id)
			continue
		}
		ext, known := pluginExt[plugin]
		if plugin == "" && path.Ext(name) == ".json" {
			ext = ""
		}
		if !known {
			output.Debug("skipping module with unsupported plugin", "module", id, "plugin", plugin)
			continue
		}

		item := OrderItem{
			Module:   name,
			Plugin:   plugin,
			FullName: id,
			Kind:     KindOf(id),
			Locale:   LocaleOf(id),
		}
		var declared string
		if node, ok := g.Node(id); ok {
			item.Kind = node.Kind
			item.AMD = node.AMD
			declared = node.Path
		}

		file, ok := resolveFile(fsys, declared, name+ext, opts.Minimize)
		if !ok {
			output.Debug("module has no physical file", "module", id)
			continue
		}
		item.FullPath = file
		items = append(items, item)
	}
	return items
}

// resolveFile picks the declared path first, then the naming convention.
// With minimize set, the .min variant of each candidate is tried first.
func resolveFile(fsys fs.FS, declared, conventional string, minimize bool) (string, bool) {
	var candidates []string
	for _, c := range []string{declared, conventional} {
		if c == "" {
			continue
		}
		c = strings.TrimPrefix(path.Clean(filepath.ToSlash(c)), "/")
		if minimize {
			candidates = append(candidates, minName(c))
		}
		candidates = append(candidates, c)
	}

	for _, c := range candidates {
		if isTypeOnly(c) {
			continue
		}
		info, err := fs.Stat(fsys, c)
		if err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// minName inserts ".min" before the extension: a/b.css -> a/b.min.css.
func minName(p string) string {
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	if strings.HasSuffix(base, ".min") {
		return p
	}
	return base + ".min" + ext
}

func isExternal(name string) bool {
	return strings.HasPrefix(name, "http:") ||
		strings.HasPrefix(name, "https:") ||
		strings.HasPrefix(name, "//") ||
		strings.HasPrefix(name, "/cdn/")
}

// isTypeOnly reports declaration-only files, which never carry runtime code.
func isTypeOnly(p string) bool {
	return strings.HasSuffix(p, ".d.ts") || strings.HasSuffix(strings.TrimSuffix(p, ".js"), ".d")
}

// ResultQueue is a prepared queue partitioned by kind and locale.
type ResultQueue struct {
	JS           []OrderItem
	CSS          []OrderItem
	Dict         map[string][]OrderItem
	CSSForLocale map[string][]OrderItem
}

// Locales returns every locale present in the queue, sorted.
func (r ResultQueue) Locales() []string {
	seen := make(map[string]bool)
	for l := range r.Dict {
		seen[l] = true
	}
	for l := range r.CSSForLocale {
		seen[l] = true
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// PrepareResultQueue attaches absolute paths under root and partitions the
// prepared items, preserving their order.
func PrepareResultQueue(items []OrderItem, root string) ResultQueue {
	r := ResultQueue{
		Dict:         map[string][]OrderItem{},
		CSSForLocale: map[string][]OrderItem{},
	}
	for _, item := range items {
		item.AbsPath = filepath.Join(root, filepath.FromSlash(item.FullPath))
		switch item.Kind {
		case KindStylesheet:
			if item.Locale == "" {
				r.CSS = append(r.CSS, item)
			} else {
				r.CSSForLocale[item.Locale] = append(r.CSSForLocale[item.Locale], item)
			}
		case KindDictionary:
			r.Dict[item.Locale] = append(r.Dict[item.Locale], item)
		default:
			r.JS = append(r.JS, item)
		}
	}
	return r
}

// Flatten returns every id of the queue: scripts, stylesheets, then per
// locale stylesheets and dictionaries in locale order.
func (q OrderedQueue) Flatten() []string {
	out := make([]string, 0, len(q.JS)+len(q.CSS))
	out = append(out, q.JS...)
	out = append(out, q.CSS...)
	for _, l := range q.Locales() {
		out = append(out, q.CSSForLocale[l]...)
		out = append(out, q.Dict[l]...)
	}
	return out
}
