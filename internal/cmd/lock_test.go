package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saby/builder-sub003/internal/lockfile"
)

func TestLockStatus_Unknown(t *testing.T) {
	out, err := execute(t, "lock", "status", "--cache-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "cache state: UNKNOWN")
}

func TestLockStatus_AfterRun(t *testing.T) {
	cache := t.TempDir()
	session, err := lockfile.Lock(cache, lockfile.Options{
		Identity: lockfile.Identity{PID: 4242, RunID: "run-1"},
	})
	require.NoError(t, err)
	require.NoError(t, session.Unlock(lockfile.StatePassed))

	out, err := execute(t, "lock", "status", "--cache-dir", cache)
	require.NoError(t, err)
	assert.Contains(t, out, "cache state: PASSED")
	assert.Contains(t, out, "pid 4242")
	assert.Contains(t, out, "run-1")

	out, err = execute(t, "lock", "status", "--cache-dir", cache, "-o", "json")
	require.NoError(t, err)
	var info lockfile.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, lockfile.StatePassed, info.State)
	assert.Equal(t, 4242, info.PID)
}

func TestLockStatus_BadFormat(t *testing.T) {
	_, err := execute(t, "lock", "status", "--cache-dir", t.TempDir(), "-o", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitValidationError, ExitCodeFromError(err))
}
