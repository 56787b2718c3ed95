package config

import (
	"os"
	"path/filepath"
)

// EnvConfigFile overrides the default config file location.
const EnvConfigFile = "BUILDER_CONFIG"

// GetConfigFile returns the config file path.
// If BUILDER_CONFIG is set, it takes precedence over ./builder.yaml.
func GetConfigFile() string {
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		return envPath
	}
	return DefaultConfigFileName
}

// ResolvePath makes p absolute relative to baseDir. Empty stays empty.
func ResolvePath(baseDir, p string) string {
	if p == "" {
		return ""
	}
	if expanded, err := ExpandPath(p); err == nil {
		p = expanded
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}

	if path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	// Handle ~/path/to/something
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// ~username is not supported
	return path, nil
}
