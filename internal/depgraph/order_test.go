package depgraph

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saby/builder-sub003/internal/output"
)

func chain() *Graph {
	g := New()
	g.AddNode(Node{ID: "A", Kind: KindScript, Deps: []string{"B"}})
	g.AddNode(Node{ID: "B", Kind: KindScript, Deps: []string{"C"}})
	g.AddNode(Node{ID: "C", Kind: KindStylesheet})
	return g
}

func TestGetLoadOrder_Chain(t *testing.T) {
	q := chain().GetLoadOrder([]string{"A"})

	assert.Equal(t, []string{"B", "A"}, q.JS)
	assert.Equal(t, []string{"C"}, q.CSS)
	assert.Empty(t, q.Dict)
	assert.Empty(t, q.CSSForLocale)
}

func TestGetLoadOrder_LoneStartNode(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "css!Lonely"})

	q := g.GetLoadOrder([]string{"css!Lonely"})
	assert.Equal(t, []string{"css!Lonely"}, q.CSS)
	assert.Empty(t, q.JS)
}

func TestGetLoadOrder_ShuffledRootsAreDeterministic(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "App/a", Deps: []string{"Lib/x", "css!App/a"}})
	g.AddNode(Node{ID: "App/b", Deps: []string{"Lib/y"}})
	g.AddNode(Node{ID: "App/c", Deps: []string{"Lib/x"}})
	g.AddNode(Node{ID: "Lib/x"})
	g.AddNode(Node{ID: "Lib/y"})
	g.AddNode(Node{ID: "css!App/a"})

	want := g.GetLoadOrder([]string{"App/a", "App/b", "App/c"})
	for _, roots := range [][]string{
		{"App/c", "App/b", "App/a"},
		{"App/b", "App/a", "App/c"},
		{"App/c", "App/a", "App/b"},
	} {
		assert.Equal(t, want, g.GetLoadOrder(roots), "roots %v", roots)
	}
	assert.Equal(t, []string{"Lib/x", "App/a", "Lib/y", "App/b", "App/c"}, want.JS)
}

func TestGetLoadOrder_Cycle(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "A", Deps: []string{"B"}})
	g.AddNode(Node{ID: "B", Deps: []string{"C"}})
	g.AddNode(Node{ID: "C", Deps: []string{"A"}})

	q := g.GetLoadOrder([]string{"A"})
	assert.Equal(t, []string{"C", "B", "A"}, q.JS)

	q = g.GetLoadOrder([]string{"B", "A", "C"})
	assert.Len(t, q.JS, 3)
}

func TestGetLoadOrder_SharedDependencyAppearsOnce(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "A", Deps: []string{"Shared"}})
	g.AddNode(Node{ID: "B", Deps: []string{"Shared"}})
	g.AddNode(Node{ID: "Shared"})

	q := g.GetLoadOrder([]string{"A", "B", "A"})
	assert.Equal(t, []string{"Shared", "A", "B"}, q.JS)
}

func TestGetLoadOrder_MissingDependencyWarns(t *testing.T) {
	var buf bytes.Buffer
	output.SetWriter(&buf)
	t.Cleanup(func() { output.SetupLogging(output.LogConfig{}) })

	g := New()
	g.AddNode(Node{ID: "A", Deps: []string{"Missing", "B"}})
	g.AddNode(Node{ID: "B"})

	q := g.GetLoadOrder([]string{"A", "Nowhere"})
	assert.Equal(t, []string{"B", "A"}, q.JS)
	assert.Contains(t, buf.String(), "dependency not found")
	assert.Contains(t, buf.String(), "Missing")
	assert.Contains(t, buf.String(), "start node not found")
}

func TestGetLoadOrder_OptionalMissingDependencyIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	output.SetWriter(&buf)
	t.Cleanup(func() { output.SetupLogging(output.LogConfig{}) })

	g := New()
	g.AddNode(Node{ID: "A", Deps: []string{"optional!Missing"}})

	q := g.GetLoadOrder([]string{"A"})
	assert.Equal(t, []string{"A"}, q.JS)
	assert.NotContains(t, buf.String(), "WARN")
}

func TestGetLoadOrder_Locales(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "App/page", Deps: []string{
		"App/lang/en/en.json",
		"App/lang/ru/ru.json",
		"css!App/lang/en/en",
		"css!App/page",
	}})
	g.AddNode(Node{ID: "App/lang/en/en.json"})
	g.AddNode(Node{ID: "App/lang/ru/ru.json"})
	g.AddNode(Node{ID: "css!App/lang/en/en"})
	g.AddNode(Node{ID: "css!App/page"})

	q := g.GetLoadOrder([]string{"App/page"})
	assert.Equal(t, []string{"App/page"}, q.JS)
	assert.Equal(t, []string{"css!App/page"}, q.CSS)
	assert.Equal(t, map[string][]string{
		"en": {"App/lang/en/en.json"},
		"ru": {"App/lang/ru/ru.json"},
	}, q.Dict)
	assert.Equal(t, map[string][]string{"en": {"css!App/lang/en/en"}}, q.CSSForLocale)
	assert.Equal(t, []string{"en", "ru"}, q.Locales())
	assert.Equal(t, []string{
		"App/page", "css!App/page", "css!App/lang/en/en", "App/lang/en/en.json", "App/lang/ru/ru.json",
	}, q.Flatten())
}

func TestPrepareOrderQueue(t *testing.T) {
	fsys := fstest.MapFS{
		"App/page.js":          {Data: []byte("define('App/page',[],1);")},
		"App/page.min.js":      {Data: []byte("define('App/page',[],1)")},
		"App/page.css":         {Data: []byte(".a{}")},
		"App/list.xhtml":       {Data: []byte("<div/>")},
		"App/row.tmpl":         {Data: []byte("<div/>")},
		"App/lang/en/en.json":  {Data: []byte(`{"a":"b"}`)},
		"Declared/real.js":     {Data: []byte("1")},
		"Types/entity.d.ts":    {Data: []byte("export {}")},
	}

	g := New()
	g.AddNode(Node{ID: "App/page", AMD: true})
	g.AddNode(Node{ID: "Declared/alias", Path: "Declared/real.js"})

	ids := []string{
		"App/page",
		"css!App/page",
		"html!App/list",
		"tmpl!App/row",
		"App/lang/en/en.json",
		"Declared/alias",
		"https://cdn.example.com/lib.js",
		"/cdn/jquery/3.3.1/jquery.js",
		"Types/entity",
		"App/missing",
		"unknownplugin!App/page",
	}

	items := PrepareOrderQueue(g, ids, fsys, PrepareOptions{})
	paths := make([]string, 0, len(items))
	for _, it := range items {
		paths = append(paths, it.FullPath)
	}
	assert.Equal(t, []string{
		"App/page.js",
		"App/page.css",
		"App/list.xhtml",
		"App/row.tmpl",
		"App/lang/en/en.json",
		"Declared/real.js",
	}, paths)

	assert.True(t, items[0].AMD)
	assert.Equal(t, KindScript, items[0].Kind)
	assert.Equal(t, "css", items[1].Plugin)
	assert.Equal(t, "App/page", items[1].Module)
	assert.Equal(t, KindStylesheet, items[1].Kind)
	assert.Equal(t, KindDictionary, items[4].Kind)
	assert.Equal(t, "en", items[4].Locale)
}

func TestPrepareOrderQueue_Minimize(t *testing.T) {
	fsys := fstest.MapFS{
		"App/page.js":     {Data: []byte("a")},
		"App/page.min.js": {Data: []byte("a")},
		"App/page.css":    {Data: []byte("b")},
	}
	items := PrepareOrderQueue(New(), []string{"App/page", "css!App/page"}, fsys, PrepareOptions{Minimize: true})
	require.Len(t, items, 2)
	assert.Equal(t, "App/page.min.js", items[0].FullPath)
	assert.Equal(t, "App/page.css", items[1].FullPath)
}

func TestPrepareResultQueue(t *testing.T) {
	items := []OrderItem{
		{FullName: "A", FullPath: "A.js", Kind: KindScript},
		{FullName: "css!A", FullPath: "A.css", Kind: KindStylesheet},
		{FullName: "css!A/lang/en/en", FullPath: "A/lang/en/en.css", Kind: KindStylesheet, Locale: "en"},
		{FullName: "A/lang/en/en.json", FullPath: "A/lang/en/en.json", Kind: KindDictionary, Locale: "en"},
		{FullName: "B", FullPath: "B.js", Kind: KindScript},
	}

	r := PrepareResultQueue(items, "/out")
	require.Len(t, r.JS, 2)
	assert.Equal(t, "A", r.JS[0].FullName)
	assert.Equal(t, "B", r.JS[1].FullName)
	assert.Equal(t, "/out/A.js", r.JS[0].AbsPath)
	require.Len(t, r.CSS, 1)
	assert.Len(t, r.CSSForLocale["en"], 1)
	assert.Len(t, r.Dict["en"], 1)
	assert.Equal(t, []string{"en"}, r.Locales())
}
