package config

import (
	"os"

	"github.com/saby/builder-sub003/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue records a resolved setting and what it shadowed.
type ResolvedValue struct {
	Key      string
	Value    any
	Source   ConfigSource
	Shadowed map[ConfigSource]any
}

// ResolveOptions contains the candidate values for one setting.
type ResolveOptions struct {
	Key         string
	FlagValue   string
	EnvVar      string
	ConfigValue string
	Default     string
}

// Resolve picks a string setting using precedence:
// (1) flag, (2) environment, (3) config file, (4) default.
func Resolve(opts ResolveOptions) ResolvedValue {
	candidates := []struct {
		source ConfigSource
		value  string
	}{
		{SourceFlag, opts.FlagValue},
		{SourceEnv, lookupEnv(opts.EnvVar)},
		{SourceConfig, opts.ConfigValue},
		{SourceDefault, opts.Default},
	}

	result := ResolvedValue{Key: opts.Key, Shadowed: make(map[ConfigSource]any)}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if result.Source == "" {
			result.Value = c.value
			result.Source = c.source
			continue
		}
		result.Shadowed[c.source] = c.value
	}
	return result
}

// String returns the resolved value as a string, empty when unset.
func (r ResolvedValue) String() string {
	s, _ := r.Value.(string)
	return s
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// ResolveConfigPathOptions contains options for config path resolution.
type ResolveConfigPathOptions struct {
	// FlagValue is the --config flag value (empty if not set).
	FlagValue string
}

// ResolveConfigPathResult contains the resolved config path and its source.
type ResolveConfigPathResult struct {
	// ConfigPath is the resolved config file path.
	ConfigPath string
	// Source indicates where the config path came from.
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) BUILDER_CONFIG env, (3) ./builder.yaml default
func ResolveConfigPath(opts ResolveConfigPathOptions) ResolveConfigPathResult {
	result := ResolveConfigPathResult{
		Shadowed: make(map[ConfigSource]string),
	}

	envValue := os.Getenv(EnvConfigFile)
	defaultPath := DefaultConfigFileName

	switch {
	case opts.FlagValue != "":
		result.ConfigPath = opts.FlagValue
		result.Source = SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		result.Shadowed[SourceDefault] = defaultPath
	case envValue != "":
		result.ConfigPath = envValue
		result.Source = SourceEnv
		result.Shadowed[SourceDefault] = defaultPath
	default:
		result.ConfigPath = defaultPath
		result.Source = SourceDefault
	}

	return result
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
