package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/saby/builder-sub003/internal/config"
	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/output"
)

// NewConfigVetCmd creates the config vet command.
func NewConfigVetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vet",
		Short: "Validate configuration",
		Long: `Validate builder.yaml against the embedded CUE schema.

Checks performed:
  1. Config file exists at resolved path
  2. Config file is valid YAML
  3. Values satisfy the schema (types, bounds, module names)
  4. Module names are unique

Examples:
  builder config vet
  builder config vet --config ci/builder.yaml`,
		Args: cobra.NoArgs,
		RunE: runConfigVet,
	}
}

func runConfigVet(cmd *cobra.Command, args []string) error {
	path := GetConfigPath()

	output.Debug("validating config", "path", path, "source", configPath.Source)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return withExitCode(&oerrors.DetailError{
			Type:     "not found",
			Message:  "configuration file not found",
			Location: path,
			Hint:     "Run 'builder config init' to create default configuration",
			Cause:    oerrors.ErrNotFound,
		})
	}

	validator, err := config.NewValidator()
	if err != nil {
		return withExitCode(err)
	}
	if err := validator.ValidateFile(path); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			return withExitCode(err)
		}
		return withExitCode(fmt.Errorf("%w: %w", oerrors.ErrValidation, err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), output.FormatCheckmark("Configuration is valid: "+path))
	return nil
}
