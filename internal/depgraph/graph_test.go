package depgraph

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		id   string
		want Kind
	}{
		{"Controls/button", KindScript},
		{"css!Controls/button", KindStylesheet},
		{"optional!css!Controls/button", KindStylesheet},
		{"css!Controls/lang/en/en", KindStylesheet},
		{"Controls/lang/en-US/en-US.json", KindDictionary},
		{"Controls/data.json", KindScript},
		{"tmpl!Controls/list", KindScript},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.id))
		})
	}
}

func TestLocaleOf(t *testing.T) {
	assert.Equal(t, "en", LocaleOf("css!Controls/lang/en/en"))
	assert.Equal(t, "en-US", LocaleOf("Controls/lang/en-US/en-US.json"))
	assert.Equal(t, "", LocaleOf("Controls/language/en"))
	assert.Equal(t, "", LocaleOf("Controls/button"))
}

func TestNormalize(t *testing.T) {
	id, optional := Normalize("optional!css!A/b")
	assert.Equal(t, "css!A/b", id)
	assert.True(t, optional)

	id, optional = Normalize("browser!A/b")
	assert.Equal(t, "A/b", id)
	assert.False(t, optional)

	id, _ = Normalize("A/b")
	assert.Equal(t, "A/b", id)
}

func TestResourcePlugin(t *testing.T) {
	assert.Equal(t, "css", ResourcePlugin("optional!css!A"))
	assert.Equal(t, "tmpl", ResourcePlugin("tmpl!A"))
	assert.Equal(t, "", ResourcePlugin("optional!A"))
	assert.Equal(t, "", ResourcePlugin("A"))
}

func TestAddNode_Merges(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "A", Deps: []string{"B"}, Path: "A/a.js"})
	g.AddNode(Node{ID: "A", Deps: []string{"B", "C"}, Path: "other.js", AMD: true})

	require.Equal(t, 1, g.Len())
	n, ok := g.Node("A")
	require.True(t, ok)
	assert.Equal(t, []string{"B", "C"}, n.Deps)
	assert.Equal(t, "A/a.js", n.Path)
	assert.True(t, n.AMD)
	assert.Equal(t, KindScript, n.Kind)
}

func TestAddNode_NormalizesID(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "optional!css!A"})
	assert.True(t, g.Has("css!A"))
	assert.True(t, g.Has("optional!css!A"))
	assert.Equal(t, []string{"css!A"}, g.IDs())
}

func TestLoadModuleDependencies(t *testing.T) {
	fsys := fstest.MapFS{
		"Controls/module-dependencies.json": {Data: []byte(`{
			"links": {
				"Controls/button": ["css!Controls/button", "Types/entity"],
				"css!Controls/button": []
			},
			"nodes": {
				"Controls/button": {"path": "Controls/button.js", "amd": true},
				"css!Controls/button": {"path": "Controls/button.css"},
				"Types/entity": {"path": "Types/entity.js", "amd": true}
			}
		}`)},
	}

	g := New()
	require.NoError(t, g.LoadModuleDependencies(fsys, "Controls/module-dependencies.json"))
	assert.Equal(t, 3, g.Len())

	btn, ok := g.Node("Controls/button")
	require.True(t, ok)
	assert.Equal(t, []string{"css!Controls/button", "Types/entity"}, btn.Deps)
	assert.Equal(t, "Controls/button.js", btn.Path)
	assert.True(t, btn.AMD)

	css, ok := g.Node("css!Controls/button")
	require.True(t, ok)
	assert.Equal(t, KindStylesheet, css.Kind)
	assert.False(t, css.AMD)

	entity, ok := g.Node("Types/entity")
	require.True(t, ok)
	assert.Empty(t, entity.Deps)
}

func TestLoadModuleDependencies_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.json": {Data: []byte(`{"links": [}`)},
	}
	g := New()
	assert.Error(t, g.LoadModuleDependencies(fsys, "missing.json"))
	assert.Error(t, g.LoadModuleDependencies(fsys, "bad.json"))
}

func TestOwners(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "App/page", Path: "App/page.js"})
	g.AddNode(Node{ID: "css!Lib/theme", Path: "Themes/lib/theme.css"})

	owners := g.Owners([]string{"App/page", "optional!css!Lib/theme", "Types/entity", "App/other"})
	assert.Equal(t, []string{"App", "Lib", "Themes", "Types"}, owners)
	assert.Empty(t, g.Owners(nil))
}
