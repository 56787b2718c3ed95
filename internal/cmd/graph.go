package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/saby/builder-sub003/internal/depgraph"
	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/output"
)

// NewGraphCmd creates the graph command group.
func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the module dependency graph",
	}

	cmd.AddCommand(NewGraphOrderCmd())

	return cmd
}

// NewGraphOrderCmd creates the graph order command.
func NewGraphOrderCmd() *cobra.Command {
	var (
		moduleDirs []string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "order <root>...",
		Short: "Print the load order for a set of start nodes",
		Long: `Print the load order of the given start nodes, partitioned into
scripts, stylesheets, dictionaries and localized stylesheets.

Each --module-dir must contain a module-dependencies.json file.

Examples:
  builder graph order App/index --module-dir out/App --module-dir out/Lib
  builder graph order css!App/page --module-dir out/App -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphOrder(cmd, args, moduleDirs, format)
		},
	}

	cmd.Flags().StringArrayVar(&moduleDirs, "module-dir", nil, "Module output directory (repeatable)")
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format: yaml, json")
	_ = cmd.MarkFlagRequired("module-dir")

	return cmd
}

func runGraphOrder(cmd *cobra.Command, roots, moduleDirs []string, format string) error {
	f, ok := output.ParseFormat(format)
	if !ok {
		return withExitCode(oerrors.NewValidationError(fmt.Sprintf("unknown output format %q", format), "", "Use yaml or json."))
	}

	g := depgraph.New()
	for _, dir := range moduleDirs {
		if err := g.LoadModuleDependencies(os.DirFS(dir), depgraph.DependenciesFile); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return withExitCode(oerrors.NewNotFoundError("module dependencies not found", dir, "Point --module-dir at a built module output."))
			}
			return withExitCode(err)
		}
	}
	output.Debug("graph loaded", "nodes", g.Len(), "modules", len(moduleDirs))

	return output.Write(cmd.OutOrStdout(), g.GetLoadOrder(roots), f)
}
