package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/lockfile"
	"github.com/saby/builder-sub003/internal/output"
)

// NewLockCmd creates the lock command group.
func NewLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect the build cache lock",
	}

	cmd.AddCommand(NewLockStatusCmd())

	return cmd
}

// NewLockStatusCmd creates the lock status command.
func NewLockStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cache state recorded by the last run",
		Long: `Show the cache state recorded in build.lockfile.

States:
  UNKNOWN  no build has used the cache directory
  PENDING  a build is running or crashed before unlocking
  PASSED   the last build finished without critical failure
  FAILED   the last build failed or was interrupted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLockStatus(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, yaml, json")

	return cmd
}

func runLockStatus(cmd *cobra.Command, format string) error {
	dir := GetCacheDir()
	info, err := lockfile.Inspect(dir)
	if err != nil {
		return withExitCode(&oerrors.DetailError{
			Type:     "lock file unreadable",
			Message:  err.Error(),
			Location: lockfile.Path(dir),
			Hint:     "Remove the lock file to reset the cache state to UNKNOWN.",
			Cause:    oerrors.ErrValidation,
		})
	}

	w := cmd.OutOrStdout()
	if format != "text" {
		f, ok := output.ParseFormat(format)
		if !ok {
			return withExitCode(oerrors.NewValidationError(fmt.Sprintf("unknown output format %q", format), "", "Use text, yaml or json."))
		}
		return output.Write(w, info, f)
	}

	fmt.Fprintln(w, output.FormatState(info.State.String(), info.PID))
	if info.RunID != "" {
		fmt.Fprintln(w, output.StyleDim.Render("run id: ")+info.RunID)
	}
	fmt.Fprintln(w, output.StyleDim.Render("lock file: ")+lockfile.Path(dir))
	return nil
}
