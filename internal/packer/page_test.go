package packer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saby/builder-sub003/internal/depgraph"
	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/testutil"
)

func item(root, name, rel string, kind depgraph.Kind) depgraph.OrderItem {
	return depgraph.OrderItem{
		FullName: name,
		FullPath: rel,
		AbsPath:  filepath.Join(root, filepath.FromSlash(rel)),
		Kind:     kind,
	}
}

func TestPackFiles_InputOrderAndLoaders(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	root := opts.OutputRoot
	testutil.WriteFiles(t, root, map[string]string{
		"App/b.js":            "b();",
		"App/a.js":            "a();",
		"App/lang/en/en.json": "{\n  \"Hello\": \"Привет\"\n}",
		"App/tpl.xhtml":       "<div/>",
	})

	text, err := p.PackFiles(context.Background(), []depgraph.OrderItem{
		item(root, "App/b", "App/b.js", depgraph.KindScript),
		item(root, "App/a", "App/a.js", depgraph.KindScript),
		item(root, "App/lang/en/en.json", "App/lang/en/en.json", depgraph.KindDictionary),
		item(root, "html!App/tpl", "App/tpl.xhtml", depgraph.KindScript),
	}, opts.BundlesDir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "b();\na();\ndefine(\"App/lang/en/en.json\", function(){return {\"Hello\":\"Привет\"};});\n<div/>", text)
}

func TestPackFiles_StylesheetRebased(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	root := opts.OutputRoot
	testutil.WriteFile(t, root, "App/page.css", ".p{background:url(img/bg.png)}")

	text, err := p.PackFiles(context.Background(), []depgraph.OrderItem{
		item(root, "css!App/page", "App/page.css", depgraph.KindStylesheet),
	}, opts.BundlesDir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, ".p{background:url(../img/bg.png)}", text)
}

func TestPackFiles_ThemedGuard(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	root := opts.OutputRoot
	testutil.WriteFile(t, root, "App/a.js", "a();")
	items := []depgraph.OrderItem{
		item(root, "App/a", "App/a.js", depgraph.KindScript),
		item(root, "App/a", "App/a.js", depgraph.KindScript),
	}

	text, err := p.PackFiles(context.Background(), items, opts.BundlesDir, "", NewPageGuard())
	require.NoError(t, err)
	assert.Equal(t, "a();\na();", text)

	guard := NewPageGuard()
	text, err = p.PackFiles(context.Background(), items, opts.BundlesDir, "dark", guard)
	require.NoError(t, err)
	assert.Equal(t, "a();", text)

	text, err = p.PackFiles(context.Background(), items[:1], opts.BundlesDir, "dark", guard)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestPackFiles_PackedItemsGuardedWithoutTheme(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	root := opts.OutputRoot
	testutil.WriteFile(t, root, "App/lib.package.js", "lib();")
	items := []depgraph.OrderItem{
		item(root, "App/lib.package", "App/lib.package.js", depgraph.KindScript),
		item(root, "App/lib.package", "App/lib.package.js", depgraph.KindScript),
	}

	text, err := p.PackFiles(context.Background(), items, opts.BundlesDir, "", NewPageGuard())
	require.NoError(t, err)
	assert.Equal(t, "lib();", text)
}

func TestPackFiles_UnreadableFile(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	_, err := p.PackFiles(context.Background(), []depgraph.OrderItem{
		item(opts.OutputRoot, "App/missing", "App/missing.js", depgraph.KindScript),
	}, opts.BundlesDir, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrArtifactRead)
	assert.Contains(t, err.Error(), "missing.js")
}

func TestPackFiles_InvalidDictionary(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	testutil.WriteFile(t, opts.OutputRoot, "App/lang/en/en.json", "{broken")
	_, err := p.PackFiles(context.Background(), []depgraph.OrderItem{
		item(opts.OutputRoot, "App/lang/en/en.json", "App/lang/en/en.json", depgraph.KindDictionary),
	}, opts.BundlesDir, "", nil)
	assert.Error(t, err)
}

func pageQueue(t *testing.T, root string) depgraph.ResultQueue {
	t.Helper()
	testutil.WriteFiles(t, root, map[string]string{
		"App/page.js":         "define('App/page',['Lib/x','css!App/page'],function(){});",
		"App/page.css":        ".page{background:url(img/bg.png)}",
		"App/lang/en/en.json": `{"Hello":"Hi"}`,
		"Lib/x.js":            "define('Lib/x',[],1);",
	})

	g := depgraph.New()
	g.AddNode(depgraph.Node{ID: "App/page", AMD: true, Deps: []string{"Lib/x", "css!App/page", "App/lang/en/en.json"}})
	g.AddNode(depgraph.Node{ID: "Lib/x", AMD: true})
	g.AddNode(depgraph.Node{ID: "css!App/page"})
	g.AddNode(depgraph.Node{ID: "App/lang/en/en.json"})

	order := g.GetLoadOrder([]string{"App/page"})
	items := depgraph.PrepareOrderQueue(g, order.Flatten(), os.DirFS(root), depgraph.PrepareOptions{})
	return depgraph.PrepareResultQueue(items, root)
}

func TestPackPage(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	queue := pageQueue(t, opts.OutputRoot)

	bundles, err := p.PackPage(context.Background(), PageOptions{Page: "index.html", Queue: queue})
	require.NoError(t, err)
	require.Len(t, bundles, 3)
	assert.True(t, sort.SliceIsSorted(bundles, func(i, j int) bool { return bundles[i].Name < bundles[j].Name }))

	byKind := map[depgraph.Kind]Bundle{}
	for _, b := range bundles {
		byKind[b.Kind] = b
	}

	js := byKind[depgraph.KindScript]
	assert.Equal(t,
		"(function(){define('css!App/page','');})();\ndefine('Lib/x',[],1);\ndefine('App/page',['Lib/x','css!App/page'],function(){});",
		testutil.ReadFile(t, opts.BundlesDir, js.Name))
	assert.False(t, js.Skip)

	css := byKind[depgraph.KindStylesheet]
	assert.Equal(t, ".page{background:url(../img/bg.png)}", testutil.ReadFile(t, opts.BundlesDir, css.Name))

	dict := byKind[depgraph.KindDictionary]
	assert.True(t, dict.Skip)
	assert.Equal(t, "en", dict.Locale)
	assert.Equal(t, `define("App/lang/en/en.json", function(){return {"Hello":"Hi"};});`,
		testutil.ReadFile(t, opts.BundlesDir, dict.Name))

	assert.Len(t, opts.Registry.Versioned("App"), 3)
}

func TestPackPage_Idempotent(t *testing.T) {
	p, opts := newTestPacker(t, nil)
	queue := pageQueue(t, opts.OutputRoot)

	first, err := p.PackPage(context.Background(), PageOptions{Page: "index.html", Queue: queue})
	require.NoError(t, err)
	second, err := p.PackPage(context.Background(), PageOptions{Page: "index.html", Queue: queue})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPackPage_SplitsStylesheets(t *testing.T) {
	p, opts := newTestPacker(t, func(o *Options) { o.SelectorLimit = 1 })
	root := opts.OutputRoot
	testutil.WriteFile(t, root, "App/a.css", ".a{}.b{}")

	queue := depgraph.PrepareResultQueue([]depgraph.OrderItem{
		{FullName: "css!App/a", FullPath: "App/a.css", Kind: depgraph.KindStylesheet, AMD: true},
	}, root)
	bundles, err := p.PackPage(context.Background(), PageOptions{Page: "index.html", Queue: queue})
	require.NoError(t, err)
	require.Len(t, bundles, 2)

	names := []string{bundles[0].Name, bundles[1].Name}
	assert.Contains(t, names, "index-1."+ContentSuffix(".b{}")+".css")
	assert.Contains(t, names, "index."+ContentSuffix(".a{}")+".css")
}
