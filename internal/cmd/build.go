package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/saby/builder-sub003/internal/config"
	"github.com/saby/builder-sub003/internal/output"
	"github.com/saby/builder-sub003/internal/pipeline"
)

type buildOptions struct {
	patch       []string
	outputDir   string
	theme       string
	concurrency int
}

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build configured modules",
		Long: `Build every module declared in builder.yaml.

Unchanged modules are skipped using the hash records in the cache
directory. With --patch only the modules owning the listed files are
rebuilt and the results are merged into the previous records.

Examples:
  # Full build
  builder build

  # Rebuild after two files changed, writing to a separate root
  builder build --patch src/App/page.ts --patch src/App/page.less --output-dir /tmp/patch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.patch, "patch", nil, "Changed source file (repeatable)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Output root; for patch builds the directory receiving patch writes")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "Theme name for stylesheet bundles")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Parallel module and file work (1-50)")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	cfg := GetConfig()
	if opts.theme != "" {
		cfg.Theme = opts.theme
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if opts.outputDir != "" && len(opts.patch) == 0 {
		abs, err := filepath.Abs(opts.outputDir)
		if err != nil {
			return withExitCode(fmt.Errorf("resolving output directory: %w", err))
		}
		cfg.OutputDir = abs
	}

	validator, err := config.NewValidator()
	if err != nil {
		return withExitCode(err)
	}
	if err := validator.Validate(cfg); err != nil {
		return withExitCode(err)
	}

	popts := cfg.PipelineOptions(config.BaseDir(GetConfigPath()))
	popts.CacheDir = GetCacheDir()
	for _, p := range opts.patch {
		abs, err := filepath.Abs(p)
		if err != nil {
			return withExitCode(fmt.Errorf("resolving patch file %s: %w", p, err))
		}
		popts.Patch = append(popts.Patch, abs)
	}
	if len(popts.Patch) > 0 && opts.outputDir != "" {
		abs, err := filepath.Abs(opts.outputDir)
		if err != nil {
			return withExitCode(fmt.Errorf("resolving output directory: %w", err))
		}
		popts.PatchOutputRoot = abs
	}
	popts.OnLastBuildFailed = func(dir string) {
		output.Warn("previous build failed, cached results are ignored and every module is rebuilt", "cache", dir)
	}

	output.Debug("starting build",
		"modules", len(popts.Modules),
		"patch", len(popts.Patch),
		"cache", popts.CacheDir,
		"output", popts.OutputRoot,
	)

	var result *pipeline.Result
	start := time.Now()
	err = output.RunWithProgress(cmd.Context(), func(report output.Progress) error {
		popts.OnPhase = func(phase string) { report(phaseTitle(phase)) }
		var runErr error
		result, runErr = pipeline.Run(cmd.Context(), popts)
		return runErr
	}, output.WithTitle("Building modules..."))
	if err != nil {
		return withExitCode(err)
	}

	for _, ph := range result.Phases {
		output.Debug("phase finished", "phase", ph.Name, "duration", ph.Duration, "details", ph.Details)
	}

	writeBuildSummary(cmd.OutOrStdout(), result, popts.OutputRoot, time.Since(start))

	if failed := result.Failed(); len(failed) > 0 {
		for _, m := range failed {
			output.Error("module failed", "module", m.Module, "error", m.Err)
		}
		return &ExitError{
			Err:     fmt.Errorf("%w: %d of %d modules", ErrModuleFailed, len(failed), len(result.Modules)),
			Code:    ExitModuleFailed,
			Printed: true,
		}
	}
	return nil
}

var phaseTitles = map[string]string{
	"hash":    "Hashing sources...",
	"graph":   "Loading dependency graph...",
	"relink":  "Checking unchanged pages...",
	"pack":    "Packing bundles...",
	"persist": "Saving build state...",
}

func phaseTitle(phase string) string {
	if title, ok := phaseTitles[phase]; ok {
		return title
	}
	return phase + "..."
}

func writeBuildSummary(w io.Writer, result *pipeline.Result, outputRoot string, elapsed time.Duration) {
	built, skipped := 0, 0
	for _, m := range result.Modules {
		status := fmt.Sprintf("built %d", m.Built)
		switch {
		case m.Err != nil:
			status = output.StateStyle("FAILED").Render("failed")
		case m.Skipped:
			status = output.StyleDim.Render("unchanged")
			skipped++
		default:
			built++
		}
		fmt.Fprintln(w, output.StyleDim.Render("m:")+output.StyleNoun.Render(m.Module)+"  "+status)

		for _, b := range m.Bundles {
			rel, err := filepath.Rel(outputRoot, b.Path)
			if err != nil {
				rel = b.Path
			}
			fmt.Fprintln(w, "  "+output.FormatBundleLine(filepath.ToSlash(rel), string(b.Kind), b.Skip))
		}
	}

	fmt.Fprintln(w, output.FormatState(result.State.String(), 0))
	fmt.Fprintln(w, output.StyleSummary.Render(fmt.Sprintf(
		"%d built, %d unchanged, %d failed in %s",
		built, skipped, len(result.Failed()), elapsed.Round(time.Millisecond),
	)))
}
