package depgraph

import (
	"regexp"
	"strings"
)

// Kind is the resource kind of a graph node.
type Kind string

const (
	// KindScript covers script modules and compiled templates.
	KindScript Kind = "script"

	// KindStylesheet covers css! modules, including per-locale stylesheets.
	KindStylesheet Kind = "stylesheet"

	// KindDictionary covers per-locale dictionaries.
	KindDictionary Kind = "dictionary"
)

// localeRe matches the locale directory of dictionaries and locale
// stylesheets: Module/lang/en-US/en-US.json, css!Module/lang/en/en.
var localeRe = regexp.MustCompile(`(?:^|/)lang/([a-z]{2}(?:-[A-Z]{2})?)/`)

// modifierPlugins do not change the resource a reference resolves to.
var modifierPlugins = map[string]bool{
	"optional": true,
	"browser":  true,
	"is":       true,
}

// SplitPlugins splits an AMD-style id into its plugin chain and bare name.
// "optional!css!A/b" yields (["optional", "css"], "A/b").
func SplitPlugins(id string) ([]string, string) {
	parts := strings.Split(id, "!")
	if len(parts) == 1 {
		return nil, id
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// Normalize strips modifier plugins so that "optional!css!A" and "css!A"
// name the same node. It reports whether the reference was optional.
func Normalize(id string) (string, bool) {
	plugins, name := SplitPlugins(id)
	optional := false
	kept := plugins[:0:0]
	for _, p := range plugins {
		if modifierPlugins[p] {
			if p == "optional" {
				optional = true
			}
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return name, optional
	}
	return strings.Join(kept, "!") + "!" + name, optional
}

// ResourcePlugin returns the plugin that decides how the id is loaded, or ""
// for plain script modules.
func ResourcePlugin(id string) string {
	plugins, _ := SplitPlugins(id)
	for i := len(plugins) - 1; i >= 0; i-- {
		if !modifierPlugins[plugins[i]] {
			return plugins[i]
		}
	}
	return ""
}

// LocaleOf extracts the locale tag from an id, or "" when the id is not
// locale specific.
func LocaleOf(id string) string {
	_, name := SplitPlugins(id)
	m := localeRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// KindOf infers the resource kind from the naming convention.
func KindOf(id string) Kind {
	if ResourcePlugin(id) == "css" {
		return KindStylesheet
	}
	_, name := SplitPlugins(id)
	if strings.HasSuffix(name, ".json") && LocaleOf(id) != "" {
		return KindDictionary
	}
	return KindScript
}
