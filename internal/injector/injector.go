// Package injector splices bundle references into static HTML entry points
// and discovers the roots a page needs packed.
package injector

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/saby/builder-sub003/internal/depgraph"
	"github.com/saby/builder-sub003/internal/output"
	"github.com/saby/builder-sub003/internal/packer"
)

// Pack names written into data-pack-name.
const (
	PackNameScripts = "ws-mods-js"
	PackNameStyles  = "ws-mods-css"

	// PackNameSkip marks locale bundles that a later stage strips per locale.
	PackNameSkip = "skip"
)

// Target is an insertion point bracketed by a pair of marker comments.
// Open and Close are the comment texts; whitespace around them inside the
// comment is ignored, so <!-- [packedStyles] --> matches as well.
type Target struct {
	// Styles selects stylesheet bundles; otherwise script bundles.
	Styles bool
	Open   string
	Close  string
}

// Targets are the insertion points of a page, styles first.
var Targets = []Target{
	{Styles: true, Open: "[packedStyles]", Close: "[/packedStyles]"},
	{Styles: false, Open: "[packedScripts]", Close: "[/packedScripts]"},
}

// InsertDependencies replaces the content between every marker pair with
// one element per matching bundle, sorted by bundle name. A document
// without any marker pair is returned unchanged. Running it again with the
// same bundles yields the same document. The markers themselves are kept
// byte for byte.
func InsertDependencies(doc []byte, bundles []packer.Bundle) ([]byte, error) {
	out := doc
	for _, target := range Targets {
		spans := findMarkers(out, target)
		if len(spans) == 0 {
			continue
		}
		elements, err := renderBundles(target, bundles)
		if err != nil {
			return nil, err
		}
		out = replaceBetween(out, spans, elements)
	}
	return out, nil
}

// markerSpan locates the content between one marker pair: it starts right
// after the opening comment and ends where the closing comment begins.
type markerSpan struct {
	start, end int
}

// findMarkers tokenizes doc and returns the spans of every complete marker
// pair of target. Comment-looking text inside script or style elements is
// not a comment and never matches.
func findMarkers(doc []byte, target Target) []markerSpan {
	var spans []markerSpan
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset, open := 0, -1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		size := len(z.Raw())
		if tt == html.CommentToken {
			switch strings.TrimSpace(string(z.Text())) {
			case target.Open:
				if open < 0 {
					open = offset + size
				}
			case target.Close:
				if open >= 0 {
					spans = append(spans, markerSpan{start: open, end: offset})
					open = -1
				}
			}
		}
		offset += size
	}
	if open >= 0 {
		output.Warn("unterminated bundle marker", "marker", target.Open)
	}
	return spans
}

func replaceBetween(doc []byte, spans []markerSpan, elements []string) []byte {
	var b bytes.Buffer
	prev := 0
	for _, span := range spans {
		b.Write(doc[prev:span.start])
		b.WriteByte('\n')
		for _, el := range elements {
			b.WriteString(el)
			b.WriteByte('\n')
		}
		prev = span.end
	}
	b.Write(doc[prev:])
	return b.Bytes()
}

func renderBundles(target Target, bundles []packer.Bundle) ([]string, error) {
	selected := make([]packer.Bundle, 0, len(bundles))
	for _, bundle := range bundles {
		if (bundle.Kind == depgraph.KindStylesheet) == target.Styles {
			selected = append(selected, bundle)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })

	elements := make([]string, 0, len(selected))
	for _, bundle := range selected {
		var buf bytes.Buffer
		if err := html.Render(&buf, bundleNode(target, bundle)); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", bundle.Name, err)
		}
		elements = append(elements, buf.String())
	}
	return elements, nil
}

func bundleNode(target Target, bundle packer.Bundle) *html.Node {
	packName := PackNameScripts
	if target.Styles {
		packName = PackNameStyles
	}
	if bundle.Skip {
		packName = PackNameSkip
	}

	if target.Styles {
		return &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Link,
			Data:     "link",
			Attr: []html.Attribute{
				{Key: "rel", Val: "stylesheet"},
				{Key: "type", Val: "text/css"},
				{Key: "href", Val: bundle.PublicURL},
				{Key: "data-pack-name", Val: packName},
			},
		}
	}
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr: []html.Attribute{
			{Key: "type", Val: "text/javascript"},
			{Key: "src", Val: bundle.PublicURL},
			{Key: "data-pack-name", Val: packName},
		},
	}
}

// Root attributes naming the components a page renders.
var rootAttrs = []string{"data-component", "data-template-name"}

// ResolveStartNodes returns the unique component names of the document's
// root containers in document order. Names with a plugin separator are
// virtual references and are rejected with a warning.
func ResolveStartNodes(doc []byte) ([]string, error) {
	var (
		roots []string
		seen  = make(map[string]bool)
	)

	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("tokenizing page: %w", err)
			}
			return roots, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			for _, attr := range tok.Attr {
				if !isRootAttr(attr.Key) {
					continue
				}
				name := strings.TrimSpace(attr.Val)
				if name == "" || seen[name] {
					continue
				}
				seen[name] = true
				if strings.Contains(name, "!") {
					output.Warn("ignoring virtual pack start node", "name", name)
					continue
				}
				roots = append(roots, name)
			}
		}
	}
}

func isRootAttr(key string) bool {
	for _, a := range rootAttrs {
		if key == a {
			return true
		}
	}
	return false
}
