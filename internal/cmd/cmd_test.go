package cmd

import (
	"bytes"
	"testing"

	"github.com/saby/builder-sub003/internal/output"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BUILDER_CONFIG", "")
	t.Setenv("BUILDER_CACHE_DIR", "")
	t.Cleanup(func() { output.SetupLogging(output.LogConfig{}) })

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}
