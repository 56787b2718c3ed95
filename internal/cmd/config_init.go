package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saby/builder-sub003/internal/config"
	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/output"
)

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default builder.yaml",
		Long: `Write a builder.yaml with default settings at the resolved config path.

The path is resolved using precedence:
  --config flag > BUILDER_CONFIG env > ./builder.yaml

Examples:
  # Initialize configuration
  builder config init

  # Overwrite existing configuration
  builder config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	path := GetConfigPath()
	if path == "" {
		path = config.DefaultConfigFileName
	}

	if _, err := os.Stat(path); err == nil && !force {
		return withExitCode(&oerrors.DetailError{
			Type:     "validation failed",
			Message:  "configuration already exists",
			Location: path,
			Hint:     "Use --force to overwrite existing configuration.",
			Cause:    oerrors.ErrValidation,
		})
	}

	data, err := encodeDefaultConfig()
	if err != nil {
		return withExitCode(err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return withExitCode(fmt.Errorf("creating config directory: %w", err))
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return withExitCode(fmt.Errorf("writing %s: %w", path, err))
	}

	output.Debug("config written", "path", path)
	fmt.Fprintln(cmd.OutOrStdout(), output.FormatCheckmark("Configuration written to "+path))
	fmt.Fprintln(cmd.OutOrStdout(), "Add your modules, then validate with: builder config vet")
	return nil
}

func encodeDefaultConfig() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config.DefaultConfig()); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	return buf.Bytes(), nil
}
