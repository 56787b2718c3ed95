// Package cmd provides CLI command implementations.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/saby/builder-sub003/internal/config"
	"github.com/saby/builder-sub003/internal/output"
)

var (
	// Global flags
	configFlag     string
	verboseFlag    bool
	timestampsFlag bool
	cacheDirFlag   string

	// Resolved configuration (loaded during PersistentPreRunE)
	builderConfig *config.Config
	configPath    config.ResolveConfigPathResult
	cacheDir      config.ResolvedValue
)

// NewRootCmd creates the root command for the builder CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "builder",
		Short: "Incremental front-end asset builder",
		Long: `builder packs compiled front-end modules into page bundles.

It hashes module artifacts to skip unchanged work, orders resources by
their dependency graph, packs scripts, stylesheets and dictionaries into
bundles and injects them into HTML pages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config file (env: BUILDER_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&timestampsFlag, "timestamps", true, "Show timestamps in log output")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "Build cache directory (env: BUILDER_CACHE_DIR)")

	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewLockCmd())
	rootCmd.AddCommand(NewGraphCmd())
	rootCmd.AddCommand(NewHashCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// initializeGlobals sets up logging and loads configuration.
func initializeGlobals(cmd *cobra.Command) error {
	configPath = config.ResolveConfigPath(config.ResolveConfigPathOptions{
		FlagValue: configFlag,
	})

	loaded, err := config.NewLoader().Load(configPath.ConfigPath)
	if err != nil {
		// Commands that need the config report the failure themselves
		output.Debug("config load error", "error", err)
	}
	builderConfig = loaded

	var fileCacheDir string
	if builderConfig != nil {
		fileCacheDir = builderConfig.CacheDir
	}
	cacheDir = config.Resolve(config.ResolveOptions{
		Key:         "cacheDir",
		FlagValue:   cacheDirFlag,
		EnvVar:      "BUILDER_CACHE_DIR",
		ConfigValue: fileCacheDir,
		Default:     config.DefaultCacheDir,
	})

	// Timestamps: flag (if explicitly set) > config > default (nil = true)
	logCfg := output.LogConfig{
		Verbose: verboseFlag,
	}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(timestampsFlag)
	} else if builderConfig != nil && builderConfig.Log.Timestamps != nil {
		logCfg.Timestamps = builderConfig.Log.Timestamps
	}

	output.SetupLogging(logCfg)

	if verboseFlag {
		config.LogResolvedValues([]config.ResolvedValue{
			{Key: "config", Value: configPath.ConfigPath, Source: configPath.Source},
			cacheDir,
		})
	}

	return nil
}

// GetConfig returns the loaded configuration with defaults applied. A nil
// loaded config yields the defaults.
func GetConfig() *config.Config {
	if builderConfig == nil {
		return config.DefaultConfig()
	}
	return builderConfig.WithDefaults()
}

// GetConfigPath returns the resolved config path value.
func GetConfigPath() string {
	if configPath.ConfigPath != "" {
		return configPath.ConfigPath
	}
	return configFlag
}

// GetCacheDir returns the resolved cache directory, relative to the config
// file directory when the value came from the config file.
func GetCacheDir() string {
	dir := cacheDir.String()
	if dir == "" {
		dir = config.DefaultCacheDir
	}
	if cacheDir.Source == config.SourceConfig || cacheDir.Source == config.SourceDefault {
		return config.ResolvePath(config.BaseDir(GetConfigPath()), dir)
	}
	return config.ResolvePath(".", dir)
}
