package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for builder configuration.
const envPrefix = "BUILDER"

// Loader handles loading and merging configuration from multiple sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Camel-case keys do not map through AutomaticEnv
	_ = v.BindEnv("cacheDir", "BUILDER_CACHE_DIR")
	_ = v.BindEnv("outputDir", "BUILDER_OUTPUT_DIR")
	_ = v.BindEnv("concurrency", "BUILDER_CONCURRENCY")
	_ = v.BindEnv("theme", "BUILDER_THEME")
	_ = v.BindEnv("minimize", "BUILDER_MINIMIZE")
	_ = v.BindEnv("resourceRoot", "BUILDER_RESOURCE_ROOT")

	return &Loader{v: v}
}

// Load loads configuration from the given file path.
// If configFile is empty, it uses the default config file path.
// Environment variables take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = GetConfigFile()
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	l.v.SetConfigFile(expandedPath)
	l.v.SetConfigType("yaml")

	// A missing file is fine, defaults and env vars apply
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration and applies defaults.
func (l *Loader) LoadWithDefaults(configFile string) (*Config, error) {
	cfg, err := l.Load(configFile)
	if err != nil {
		return nil, err
	}

	return cfg.WithDefaults(), nil
}

// BaseDir returns the directory relative paths in configFile resolve
// against.
func BaseDir(configFile string) string {
	if configFile == "" {
		configFile = GetConfigFile()
	}
	expanded, err := ExpandPath(configFile)
	if err != nil {
		expanded = configFile
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return filepath.Dir(expanded)
	}
	return filepath.Dir(abs)
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(configFile string) (bool, error) {
	if configFile == "" {
		configFile = GetConfigFile()
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(expandedPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
