// Package output provides terminal output utilities.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// logger is the global logger instance.
var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
}

// LogConfig controls logger setup.
type LogConfig struct {
	// Verbose enables debug level, caller reporting and timestamps.
	Verbose bool

	// Timestamps overrides timestamp display. nil means on.
	Timestamps *bool
}

// SetupLogging configures the logger based on verbosity.
func SetupLogging(cfg LogConfig) {
	setup(os.Stderr, cfg)
}

// SetWriter redirects log output, keeping the current configuration.
func SetWriter(w io.Writer) {
	logger = log.NewWithOptions(w, log.Options{
		Level:           logger.GetLevel(),
		ReportTimestamp: false,
	})
}

func setup(w io.Writer, cfg LogConfig) {
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	timestamps := true
	if !cfg.Verbose && cfg.Timestamps != nil {
		timestamps = *cfg.Timestamps
	}

	logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: timestamps,
		ReportCaller:    cfg.Verbose,
		TimeFormat:      "15:04:05",
	})
}

// ModuleLogger returns a sub-logger prefixed with the build module name.
func ModuleLogger(name string) *log.Logger {
	return logger.WithPrefix(StyleDim.Render("m:") + StyleNoun.Render(name))
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...interface{}) {
	logger.Debug(msg, keyvals...)
}

// Info logs an info message.
func Info(msg string, keyvals ...interface{}) {
	logger.Info(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg string, keyvals ...interface{}) {
	logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg string, keyvals ...interface{}) {
	logger.Error(msg, keyvals...)
}

// Println prints a message to stdout with a newline.
func Println(msg string) {
	os.Stdout.WriteString(msg + "\n")
}
