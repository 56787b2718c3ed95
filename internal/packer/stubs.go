package packer

import (
	"strings"

	"github.com/saby/builder-sub003/internal/depgraph"
)

// legacyControlsPrefix names the component library whose stylesheets keep a
// page-specific carve-out.
const legacyControlsPrefix = "css!SBIS3.CONTROLS/"

// legacyPages still load SBIS3.CONTROLS stylesheets through the bundle and
// therefore need stubs for them. The list is fixed.
var legacyPages = map[string]bool{
	"carry.html":         true,
	"presto.html":        true,
	"carry_minimal.html": true,
	"booking.html":       true,
	"plugin.html":        true,
	"hint.html":          true,
	"sbisdisk.html":      true,
	"styles.html":        true,
}

// GenerateFakeModuleStubs declares an empty module for every stylesheet the
// page bundle already carries, so the page loader never fetches it again.
// AMD stylesheets define themselves and get no stub. SBIS3.CONTROLS
// stylesheets get a stub only on unthemed legacy pages. The result is empty
// when there is nothing to declare.
func GenerateFakeModuleStubs(items []depgraph.OrderItem, theme, page string) string {
	var b strings.Builder
	for _, item := range items {
		if item.Kind != depgraph.KindStylesheet || item.AMD {
			continue
		}
		if strings.HasPrefix(item.FullName, legacyControlsPrefix) && (theme != "" || !legacyPages[page]) {
			continue
		}
		b.WriteString("define('")
		b.WriteString(strings.ReplaceAll(item.FullName, "'", `\'`))
		b.WriteString("','');")
	}
	if b.Len() == 0 {
		return ""
	}
	return "(function(){" + b.String() + "})();"
}
