package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/hashstore"
	"github.com/saby/builder-sub003/internal/output"
)

// NewHashCmd creates the hash command group.
func NewHashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Inspect module hash records",
	}

	cmd.AddCommand(NewHashDiffCmd())

	return cmd
}

// NewHashDiffCmd creates the hash diff command.
func NewHashDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-module-dir> <new-module-dir>",
		Short: "Compare the hash tables of two module records",
		Long: `Compare the moduleHash-list tables stored under .builder in two
module directories and print the differing entries.

Example:
  builder hash diff .builder-cache/modules/App out/App`,
		Args: cobra.ExactArgs(2),
		RunE: runHashDiff,
	}
}

func runHashDiff(cmd *cobra.Command, args []string) error {
	old, err := loadHashTable(args[0])
	if err != nil {
		return withExitCode(err)
	}
	cur, err := loadHashTable(args[1])
	if err != nil {
		return withExitCode(err)
	}

	w := cmd.OutOrStdout()
	changes := hashstore.Compare(old, cur)
	if changes.Empty() {
		fmt.Fprintln(w, output.FormatCheckmark("hash tables are identical"))
		return nil
	}

	report, err := hashstore.DiffTables(old, cur, output.IsTTY())
	if err != nil {
		return withExitCode(err)
	}
	fmt.Fprintln(w, report)
	fmt.Fprintln(w, output.StyleSummary.Render(fmt.Sprintf(
		"%d added, %d removed, %d changed",
		len(changes.Added), len(changes.Removed), len(changes.Changed),
	)))
	return nil
}

func loadHashTable(moduleDir string) (hashstore.Table, error) {
	list := filepath.Join(moduleDir, hashstore.MetaDir, hashstore.ModuleHashListFile)
	if _, err := os.Stat(list); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, oerrors.NewNotFoundError("hash table not found", list, "Run a build first.")
		}
		return nil, err
	}
	rec, err := hashstore.Load(moduleDir)
	if err != nil {
		return nil, err
	}
	return rec.Hashes, nil
}
