package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func captureLog(cfg LogConfig) *bytes.Buffer {
	var buf bytes.Buffer
	setup(&buf, cfg)
	return &buf
}

func TestSetupLogging_TimestampDefaultOn(t *testing.T) {
	buf := captureLog(LogConfig{})
	Info("test")
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}`, strings.TrimSpace(buf.String()))
}

func TestSetupLogging_TimestampExplicitlyDisabled(t *testing.T) {
	buf := captureLog(LogConfig{Timestamps: BoolPtr(false)})
	Info("hello")
	out := strings.TrimSpace(buf.String())
	assert.NotRegexp(t, `^\d{2}:\d{2}:\d{2}`, out, "output should not start with a timestamp")
	assert.Contains(t, out, "hello")
}

func TestSetupLogging_VerboseEnablesDebugLevel(t *testing.T) {
	buf := captureLog(LogConfig{Verbose: true, Timestamps: BoolPtr(false)})
	Debug("verbose-msg")
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "verbose-msg")
}

func TestSetupLogging_DefaultInfoLevel(t *testing.T) {
	buf := captureLog(LogConfig{})
	Debug("hidden")
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
}

func TestSetWriter_KeepsLevel(t *testing.T) {
	captureLog(LogConfig{Verbose: true})
	var buf bytes.Buffer
	SetWriter(&buf)
	Warn("cache busy", "pid", 42)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "cache busy")
	assert.Contains(t, buf.String(), "pid=42")
}

func TestModuleLogger_HasPrefix(t *testing.T) {
	SetupLogging(LogConfig{})
	modLog := ModuleLogger("Controls")
	assert.Contains(t, modLog.GetPrefix(), "Controls")
}

func TestModuleLogger_InheritsLevel(t *testing.T) {
	SetupLogging(LogConfig{Verbose: true})
	assert.Equal(t, log.DebugLevel, ModuleLogger("Controls").GetLevel())
}

func TestBoolPtr(t *testing.T) {
	assert.True(t, *BoolPtr(true))
	assert.False(t, *BoolPtr(false))
}
