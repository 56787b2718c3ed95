package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saby/builder-sub003/internal/lockfile"
	"github.com/saby/builder-sub003/internal/testutil"
)

// newBuildProject lays out one module with a page and returns the config path.
func newBuildProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	testutil.WriteFiles(t, root, map[string]string{
		"builder.yaml": `cacheDir: cache
outputDir: out
concurrency: 4
replacePaths: true
log:
  timestamps: false
modules:
  - name: App
    source: src/App
    pages:
      - index.html
`,
		"src/App/page.ts": "export const page = 1;",
		"out/App/page.js": "define('App/page',[],function(){});",
		"out/App/index.html": "<html><head><!--[packedStyles]--><!--[/packedStyles]--></head>" +
			"<body><div data-component=\"App/page\"></div>" +
			"<!--[packedScripts]--><!--[/packedScripts]--></body></html>",
		"out/App/module-dependencies.json": `{
			"links": {"App/page": []},
			"nodes": {"App/page": {"path": "App/page.js", "amd": true}}
		}`,
		"out/App/.builder/output.json": `{
			"page.ts": ["page.js"],
			"index.html": ["index.html"],
			"module-dependencies.json": ["module-dependencies.json"]
		}`,
	})
	return filepath.Join(root, "builder.yaml")
}

func TestBuild_FullThenUnchanged(t *testing.T) {
	cfgPath := newBuildProject(t)
	cache := filepath.Join(filepath.Dir(cfgPath), "cache")

	out, err := execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "m:App")
	assert.Contains(t, out, "cache state: PASSED")
	assert.Equal(t, lockfile.StatePassed, lockfile.Load(cache))

	out, err = execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")
	assert.Contains(t, out, "0 built, 1 unchanged, 0 failed")
}

func TestBuild_CacheDirFlag(t *testing.T) {
	cfgPath := newBuildProject(t)
	cache := t.TempDir()

	_, err := execute(t, "build", "--config", cfgPath, "--cache-dir", cache)
	require.NoError(t, err)
	assert.Equal(t, lockfile.StatePassed, lockfile.Load(cache))
}

func TestBuild_InvalidConcurrency(t *testing.T) {
	cfgPath := newBuildProject(t)

	_, err := execute(t, "build", "--config", cfgPath, "--concurrency", "99")
	require.Error(t, err)
	assert.Equal(t, ExitValidationError, ExitCodeFromError(err))
}

func TestBuild_ModuleFailure(t *testing.T) {
	cfgPath := newBuildProject(t)
	root := filepath.Dir(cfgPath)
	testutil.WriteFiles(t, root, map[string]string{
		"builder.yaml": `cacheDir: cache
outputDir: out
modules:
  - name: App
    source: src/App
  - name: Broken
    source: src/Broken
`,
		"src/Broken/a.ts":          "1",
		"out/Broken/contents.json": "{not json",
	})

	out, err := execute(t, "build", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitModuleFailed, ExitCodeFromError(err))
	assert.Contains(t, out, "cache state: FAILED")
	assert.Equal(t, lockfile.StateFailed, lockfile.Load(filepath.Join(root, "cache")))
}

func TestBuild_RebuildsEverythingAfterFailedRun(t *testing.T) {
	cfgPath := newBuildProject(t)
	root := filepath.Dir(cfgPath)
	cache := filepath.Join(root, "cache")

	_, err := execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)

	s, err := lockfile.Lock(cache, lockfile.Options{Identity: lockfile.Identity{PID: 7, RunID: "crashed"}})
	require.NoError(t, err)
	s.ExitHandler()

	out, err := execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 built, 0 unchanged, 0 failed")
	assert.Equal(t, lockfile.StatePassed, lockfile.Load(cache))
}

func TestPhaseTitle(t *testing.T) {
	assert.Equal(t, "Packing bundles...", phaseTitle("pack"))
	assert.Equal(t, "Checking unchanged pages...", phaseTitle("relink"))
	assert.Equal(t, "custom...", phaseTitle("custom"))
}
