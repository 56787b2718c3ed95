package hashstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/testutil"
)

func TestComputeModuleArtifactsHash_KeyOrderIndependent(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	testutil.WriteFile(t, a, "contents.json", `{"modules":{"A":1,"B":2},"buildMode":"debug"}`)
	testutil.WriteFile(t, b, "contents.json", `{"buildMode":"debug","modules":{"B":2,"A":1}}`)

	ha, err := ComputeModuleArtifactsHash(a)
	require.NoError(t, err)
	hb, err := ComputeModuleArtifactsHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestComputeModuleArtifactsHash_NFC(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	testutil.WriteFile(t, a, "routes-info.json", "{\"/caf\u00e9\": \"x\"}")
	testutil.WriteFile(t, b, "routes-info.json", "{\"/cafe\u0301\": \"x\"}")

	ha, err := ComputeModuleArtifactsHash(a)
	require.NoError(t, err)
	hb, err := ComputeModuleArtifactsHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestComputeModuleArtifactsHash_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	before, err := ComputeModuleArtifactsHash(dir)
	require.NoError(t, err)

	testutil.WriteFile(t, dir, "unrelated.json", `{"a":1}`)
	testutil.WriteFile(t, dir, "nested/contents.json", `{"a":1}`)
	after, err := ComputeModuleArtifactsHash(dir)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	testutil.WriteFile(t, dir, "libraries.json", `["Lib/a"]`)
	changed, err := ComputeModuleArtifactsHash(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before, changed)
}

func TestComputeModuleArtifactsHash_Unparsable(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "contents.json", `{broken`)

	_, err := ComputeModuleArtifactsHash(dir)
	assert.True(t, errors.Is(err, oerrors.ErrArtifactRead))
}

func TestHashFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.js", "alert(1)")
	testutil.WriteFile(t, dir, "sub/b.js", "alert(1)")
	testutil.WriteFile(t, dir, "c.js", "alert(2)")

	table, err := HashFiles(context.Background(), "M", dir, []string{"a.js", "sub/b.js", "c.js"}, 2)
	require.NoError(t, err)
	assert.Len(t, table, 3)
	assert.Equal(t, table["a.js"], table["sub/b.js"])
	assert.NotEqual(t, table["a.js"], table["c.js"])
	assert.Equal(t, KindHash, table["a.js"].Kind)
}

func TestHashFiles_MissingFile(t *testing.T) {
	_, err := HashFiles(context.Background(), "M", t.TempDir(), []string{"nope.js"}, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrArtifactRead))
	assert.Contains(t, err.Error(), "nope.js")
}

func TestComputeSourcesHash_SkipsMetaDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.ts", "export const a = 1;")
	h1, err := ComputeSourcesHash(context.Background(), "M", dir, 4)
	require.NoError(t, err)

	testutil.WriteFile(t, dir, ".builder/moduleHash", "x")
	h2, err := ComputeSourcesHash(context.Background(), "M", dir, 4)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export const a = 2;"), 0o644))
	h3, err := ComputeSourcesHash(context.Background(), "M", dir, 4)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestRollup_OrderIndependent(t *testing.T) {
	a := Table{"x": Hash("1"), "y": RollupEntry("2")}
	b := Table{"y": RollupEntry("2"), "x": Hash("1")}
	assert.Equal(t, Rollup(a), Rollup(b))
	assert.NotEqual(t, Rollup(a), Rollup(Table{"x": Hash("1"), "y": Hash("2")}), "kind is part of the rollup")
}
