package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saby/builder-sub003/internal/depgraph"
	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/hashstore"
	"github.com/saby/builder-sub003/internal/injector"
	"github.com/saby/builder-sub003/internal/lockfile"
	"github.com/saby/builder-sub003/internal/metadata"
	"github.com/saby/builder-sub003/internal/output"
	"github.com/saby/builder-sub003/internal/packer"
)

// cacheModulesDir holds cached hash records inside the cache directory.
const cacheModulesDir = "modules"

// moduleRun is the mutable state of one module. Only the goroutine working
// on the module touches it during a phase.
type moduleRun struct {
	mod      Module
	cacheDir string
	target   string

	skipped     bool
	built       int
	sourcesHash string
	previous    hashstore.Table
	table       hashstore.Table
	bundles     []packer.Bundle
	moduleHash  string
	err         error
}

func (r *moduleRun) fail(phase string, err error) {
	r.err = &ModuleError{ModuleName: r.mod.Name, Phase: phase, Err: err}
}

type build struct {
	opts     Options
	trusted  bool
	patch    map[string]bool
	failures *metadata.FailureStore
	registry *metadata.Registry
	graph    *depgraph.Graph
	phases   []PhaseRecord
}

// Run executes one build run:
//
//  1. LOCK:    mark the cache PENDING
//  2. HASH:    per module, decide what to rebuild and merge hashes forward
//  3. GRAPH:   load every module's dependency metadata into one graph
//  4. RELINK:  repack unchanged modules whose pages load rebuilt modules
//  5. PACK:    per module, pack and inject the bundles of its pages
//  6. PERSIST: per module, save registries, then the hash record
//  7. UNLOCK:  record PASSED, or FAILED when any module failed
//
// Cached results are reused only when the previous run ended PASSED. After a
// PENDING, FAILED or unreadable lock every module is rebuilt in full.
//
// Module failures are reported in Result and never stop sibling modules.
// The returned error is reserved for run-level failures such as losing the
// cache lock. On SIGINT, SIGTERM or a panic the cache is marked FAILED.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	session, err := lockfile.Lock(opts.CacheDir, lockfile.Options{
		Identity:          opts.Identity,
		OnLastBuildFailed: opts.OnLastBuildFailed,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			session.ExitHandler()
			panic(r)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := watchSignals(session, cancel)
	defer stop()

	failures, err := metadata.OpenFailureStore(opts.CacheDir)
	if err != nil {
		session.ExitHandler()
		return nil, err
	}
	defer failures.Close()

	b := &build{
		opts:     opts,
		trusted:  session.Previous().Trusted(),
		failures: failures,
		registry: metadata.NewRegistry(),
		graph:    depgraph.New(),
	}
	if len(opts.Patch) > 0 {
		b.patch = make(map[string]bool, len(opts.Patch))
		for _, p := range opts.Patch {
			b.patch[filepath.Clean(p)] = true
		}
	}

	switch prev := session.Previous(); prev {
	case lockfile.StatePending, lockfile.StateFailed:
		output.Info("build cache not trusted, rebuilding all modules", "previous", prev)
	}

	runs := b.newRuns()
	b.phase("hash", func() { b.forEach(ctx, runs, "hash", false, b.hash) })
	b.phase("graph", func() { b.loadGraph(runs) })
	b.phase("relink", func() { b.relink(runs) })
	b.phase("pack", func() { b.forEach(ctx, runs, "pack", true, b.pack) })
	b.phase("persist", func() { b.forEach(ctx, runs, "persist", true, b.persist) })

	result := &Result{Phases: b.phases}
	final := lockfile.StatePassed
	for _, run := range runs {
		if run.err != nil {
			final = lockfile.StateFailed
			b.recordFailure(run)
		}
		result.Modules = append(result.Modules, ModuleResult{
			Module:     run.mod.Name,
			Skipped:    run.skipped,
			Built:      run.built,
			Bundles:    run.bundles,
			ModuleHash: run.moduleHash,
			Err:        run.err,
		})
	}
	if ctx.Err() != nil {
		final = lockfile.StateFailed
	}

	if err := session.Unlock(final); err != nil {
		return result, err
	}
	result.State = final
	return result, nil
}

func watchSignals(session *lockfile.Session, cancel context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigs:
			output.Warn("build interrupted", "signal", sig.String())
			session.ExitHandler()
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (b *build) newRuns() []*moduleRun {
	runs := make([]*moduleRun, 0, len(b.opts.Modules))
	for _, m := range b.opts.Modules {
		run := &moduleRun{
			mod:      m,
			cacheDir: filepath.Join(b.opts.CacheDir, cacheModulesDir, m.Name),
			target:   m.Output,
		}
		if rel, ok := b.relToRoot(m.Output); ok && b.patch != nil {
			run.target = filepath.Join(b.opts.PatchOutputRoot, rel)
		}
		runs = append(runs, run)
	}
	return runs
}

func (b *build) relToRoot(dir string) (string, bool) {
	rel, err := filepath.Rel(b.opts.OutputRoot, dir)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return rel, true
}

func (b *build) phase(name string, fn func()) {
	if b.opts.OnPhase != nil {
		b.opts.OnPhase(name)
	}
	start := time.Now()
	fn()
	rec := PhaseRecord{Name: name, Duration: time.Since(start)}
	b.phases = append(b.phases, rec)
	output.Debug("phase complete", "phase", name, "duration", rec.Duration)
}

// forEach runs fn for every healthy module with bounded concurrency. Module
// errors are recorded on the module and never cancel siblings.
func (b *build) forEach(ctx context.Context, runs []*moduleRun, phase string, skipUnchanged bool, fn func(context.Context, *moduleRun) error) {
	var g errgroup.Group
	g.SetLimit(b.opts.Concurrency)
	for _, run := range runs {
		if run.err != nil || (skipUnchanged && run.skipped) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				run.fail(phase, err)
				return nil
			}
			if err := fn(ctx, run); err != nil {
				output.ModuleLogger(run.mod.Name).Error("module failed", "phase", phase, "error", err)
				run.fail(phase, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (b *build) hash(ctx context.Context, run *moduleRun) error {
	name := run.mod.Name
	log := output.ModuleLogger(name)

	sourcesHash, err := hashstore.ComputeSourcesHash(ctx, name, run.mod.Source, b.opts.Concurrency)
	if err != nil {
		return err
	}
	prev, err := hashstore.Load(run.cacheDir)
	if err != nil {
		return err
	}
	failed, err := b.failures.Failed(ctx, name)
	if err != nil {
		return err
	}

	run.sourcesHash = sourcesHash
	run.previous = prev.Hashes

	full := b.patch == nil || !b.trusted
	if b.trusted && b.patch == nil && len(failed) == 0 && prev.SourcesHash == sourcesHash && hashstore.LoadModuleHash(run.cacheDir) != "" {
		log.Info("unchanged, keeping previous build")
		run.skipped = true
		return nil
	}

	mapping, err := hashstore.LoadOutputMapping(run.mod.Output)
	if err != nil {
		return err
	}
	built := b.builtSources(run, mapping, failed, full)
	if !full && len(built) == 0 {
		log.Debug("not affected by patch")
		run.skipped = true
		return nil
	}
	if len(failed) > 0 {
		log.Info("rebuilding after previous failures", "files", len(failed))
	}

	outputs := existingFiles(run.mod.Output, hashstore.BuiltOutputs(mapping, built))
	current, err := hashstore.HashFiles(ctx, name, run.mod.Output, outputs, b.opts.Concurrency)
	if err != nil {
		return err
	}
	table := hashstore.MergeForward(current, prev.Hashes, mapping, built)

	artifacts, err := hashstore.ComputeModuleArtifactsHash(run.mod.Output)
	if err != nil {
		return err
	}
	table[hashstore.ArtifactsKey] = hashstore.RollupEntry(artifacts)

	run.table = table
	run.built = len(built)
	log.Debug("hashed", "built", len(built), "outputs", len(outputs), "entries", len(table))
	return nil
}

// builtSources returns the sources treated as rebuilt: every source in a
// full build, the patched ones otherwise. Sources with recorded failures are
// always included.
func (b *build) builtSources(run *moduleRun, mapping hashstore.OutputMapping, failed []string, full bool) map[string]bool {
	built := make(map[string]bool)
	if full {
		for src := range mapping {
			built[src] = true
		}
		return built
	}

	for p := range b.patch {
		rel := p
		if filepath.IsAbs(p) {
			r, err := filepath.Rel(run.mod.Source, p)
			if err != nil || !filepath.IsLocal(r) {
				continue
			}
			rel = r
		}
		rel = filepath.ToSlash(rel)
		if _, ok := mapping[rel]; ok {
			built[rel] = true
		}
	}
	for _, f := range failed {
		if _, ok := mapping[f]; ok {
			built[f] = true
		}
	}
	return built
}

func existingFiles(dir string, rel []string) []string {
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(r)))
		if err == nil && info.Mode().IsRegular() {
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}

// loadGraph merges the dependency metadata of every module, including
// unchanged ones, into the shared graph.
func (b *build) loadGraph(runs []*moduleRun) {
	appFS := os.DirFS(b.opts.OutputRoot)
	for _, run := range runs {
		if run.err != nil {
			continue
		}
		rel, ok := b.relToRoot(run.mod.Output)
		if !ok {
			run.fail("graph", fmt.Errorf("module output %s is outside %s", run.mod.Output, b.opts.OutputRoot))
			continue
		}
		name := path.Join(filepath.ToSlash(rel), depgraph.DependenciesFile)
		if _, err := fs.Stat(appFS, name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := b.graph.LoadModuleDependencies(appFS, name); err != nil {
			run.fail("graph", err)
		}
	}
	output.Debug("dependency graph loaded", "nodes", b.graph.Len())
}

// relink brings back unchanged modules whose pages load a resource owned by
// a module rebuilt in this run: their bundles embed that resource. The
// previous hash table is carried over and the pages are packed again.
func (b *build) relink(runs []*moduleRun) {
	rebuilt := make(map[string]bool)
	for _, run := range runs {
		if run.err != nil || run.skipped {
			continue
		}
		rebuilt[run.mod.Name] = true
		if rel, ok := b.relToRoot(run.mod.Output); ok {
			top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
			rebuilt[top] = true
		}
	}
	if len(rebuilt) == 0 {
		return
	}

	for _, run := range runs {
		if run.err != nil || !run.skipped || len(run.mod.Pages) == 0 {
			continue
		}
		deps, err := b.rebuiltDependencies(run, rebuilt)
		if err != nil {
			run.fail("relink", err)
			continue
		}
		if len(deps) == 0 {
			continue
		}
		output.ModuleLogger(run.mod.Name).Info("dependencies rebuilt, repacking pages", "modules", deps)
		run.skipped = false
		run.table = run.previous.Clone()
		prefix := filepath.ToSlash(b.opts.BundlesDir) + "/"
		for key := range run.table {
			if strings.HasPrefix(key, prefix) {
				delete(run.table, key)
			}
		}
	}
}

// rebuiltDependencies lists the rebuilt modules reached by the load order of
// any page of run.
func (b *build) rebuiltDependencies(run *moduleRun, rebuilt map[string]bool) ([]string, error) {
	var deps []string
	for _, page := range run.mod.Pages {
		doc, err := os.ReadFile(filepath.Join(run.mod.Output, page))
		if err != nil {
			return nil, oerrors.NewArtifactReadError(run.mod.Name, filepath.Join(run.mod.Output, page), err)
		}
		roots, err := injector.ResolveStartNodes(doc)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", page, err)
		}
		for _, owner := range b.graph.Owners(b.graph.GetLoadOrder(roots).Flatten()) {
			if rebuilt[owner] && owner != run.mod.Name {
				deps = append(deps, owner)
			}
		}
	}
	sort.Strings(deps)
	return dedupe(deps), nil
}

func (b *build) pack(ctx context.Context, run *moduleRun) error {
	if len(run.mod.Pages) == 0 {
		return nil
	}
	name := run.mod.Name
	p := packer.New(packer.Options{
		Module:        name,
		OutputRoot:    b.opts.PatchOutputRoot,
		BundlesDir:    filepath.Join(run.target, b.opts.BundlesDir),
		Registry:      b.registry,
		Concurrency:   b.opts.Concurrency,
		Minimize:      b.opts.Minimize,
		SelectorLimit: b.opts.SelectorLimit,
		ResourceRoot:  b.opts.ResourceRoot,
		ReplacePaths:  b.opts.ReplacePaths,
	})
	appFS := os.DirFS(b.opts.OutputRoot)

	var written []string
	for _, page := range run.mod.Pages {
		src := filepath.Join(run.mod.Output, page)
		doc, err := os.ReadFile(src)
		if err != nil {
			return oerrors.NewArtifactReadError(name, src, err)
		}
		roots, err := injector.ResolveStartNodes(doc)
		if err != nil {
			return fmt.Errorf("page %s: %w", page, err)
		}

		order := b.graph.GetLoadOrder(roots)
		items := depgraph.PrepareOrderQueue(b.graph, order.Flatten(), appFS, depgraph.PrepareOptions{Minimize: b.opts.Minimize})
		queue := depgraph.PrepareResultQueue(items, b.opts.OutputRoot)

		bundles, err := p.PackPage(ctx, packer.PageOptions{
			Page:  filepath.Base(page),
			Theme: b.opts.Theme,
			Queue: queue,
		})
		if err != nil {
			return err
		}
		injected, err := injector.InsertDependencies(doc, bundles)
		if err != nil {
			return fmt.Errorf("page %s: %w", page, err)
		}

		dst := filepath.Join(run.target, page)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, injected, 0o644); err != nil {
			return fmt.Errorf("writing page %s: %w", dst, err)
		}

		written = append(written, filepath.ToSlash(filepath.Clean(page)))
		for _, bundle := range bundles {
			if rel, err := filepath.Rel(run.target, bundle.Path); err == nil {
				written = append(written, filepath.ToSlash(rel))
			}
		}
		run.bundles = append(run.bundles, bundles...)
		output.ModuleLogger(name).Debug("page packed", "page", page, "roots", len(roots), "bundles", len(bundles))
	}

	fresh, err := hashstore.HashFiles(ctx, name, run.target, dedupe(written), b.opts.Concurrency)
	if err != nil {
		return err
	}
	for k, v := range fresh {
		run.table[k] = v
	}
	return nil
}

// persist writes the registries and then the hash record. It runs after all
// artifact writes of the module.
func (b *build) persist(ctx context.Context, run *moduleRun) error {
	name := run.mod.Name
	if err := b.registry.Save(name, run.target); err != nil {
		return err
	}

	dirs := hashstore.Dirs{Cache: run.cacheDir, Output: run.target}
	rec := hashstore.Record{Hashes: run.table, SourcesHash: run.sourcesHash}
	if err := hashstore.Persist(dirs, rec); err != nil {
		return err
	}
	run.moduleHash = hashstore.Rollup(run.table)

	if err := b.failures.Clear(ctx, name); err != nil {
		return err
	}
	output.ModuleLogger(name).Info("built", "sources", run.built, "bundles", len(run.bundles))
	return nil
}

func (b *build) recordFailure(run *moduleRun) {
	if errors.Is(run.err, context.Canceled) {
		return
	}
	file := failedFile(run.err, run.mod.Source)
	if err := b.failures.MarkFileAsFailed(context.Background(), run.mod.Name, file); err != nil {
		output.Warn("recording module failure", "module", run.mod.Name, "error", err)
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
