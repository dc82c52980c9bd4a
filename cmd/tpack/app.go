// # cmd/tpack/app.go
package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tpack/internal/config"
	"tpack/internal/errors"
	"tpack/internal/extract"
	"tpack/internal/history"
	"tpack/internal/index"
	"tpack/internal/manifest"
	"tpack/internal/merge"
	"tpack/internal/observability"
	"tpack/internal/resolve"
	"tpack/internal/watcher"
)

type App struct {
	Config    *config.Config
	Extractor *extract.Extractor
	DryRun    bool

	// Roots are the repository roots to process, each independently
	// indexed. Defaults to the configured root.
	Roots []string

	// SkipVersionCheck disables the version action policy warning for this
	// invocation, regardless of per-manifest settings.
	SkipVersionCheck bool

	history    *history.Store
	watcher    *watcher.Watcher
	metricsSrv *http.Server
}

func NewApp(cfg *config.Config, dryRun bool) (*App, error) {
	e, err := extract.New(cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Extractor: e,
		DryRun:    dryRun,
		Roots:     []string{cfg.Root},
	}

	if cfg.History.Path != "" && !dryRun {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			slog.Warn("run history disabled", "path", cfg.History.Path, "error", err)
		} else {
			a.history = store
		}
	}
	if cfg.Metrics.Addr != "" {
		a.metricsSrv = observability.Serve(cfg.Metrics.Addr)
	}

	return a, nil
}

func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.history != nil {
		_ = a.history.Close()
	}
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Close()
	}
}

// Run regenerates every package under every root and returns the number of
// packages that failed. Warnings never count as failures.
func (a *App) Run() int {
	failed := 0
	for _, root := range a.Roots {
		failed += a.runRoot(root)
	}
	return failed
}

func (a *App) runRoot(root string) int {
	start := time.Now()
	defer func() {
		observability.RunDuration.Observe(time.Since(start).Seconds())
	}()

	ix, err := index.Build(root, a.Config.Exclude.Dirs)
	if err != nil {
		slog.Error("failed to build repository index", "error", err)
		return 1
	}

	pkgs, err := a.discoverPackages(root)
	if err != nil {
		slog.Error("failed to discover packages", "error", err)
		return 1
	}
	if len(pkgs) == 0 {
		slog.Warn("no packages found", "root", root)
		return 0
	}

	run := history.Run{
		Root:         root,
		PackageCount: len(pkgs),
		IndexedCount: ix.PackageCount(),
	}

	failed := 0
	for _, pkgDir := range pkgs {
		record, err := a.processPackage(pkgDir, ix)
		if err != nil {
			failed++
			record.Error = err.Error()
			observability.PackagesProcessed.WithLabelValues("error").Inc()
			slog.Error("package failed", "package", pkgDir, "error", err)
		} else {
			observability.PackagesProcessed.WithLabelValues("ok").Inc()
		}
		run.WarningCount += record.WarningCount
		run.Packages = append(run.Packages, record)
	}
	run.ErrorCount = failed
	run.Duration = time.Since(start)

	if a.history != nil {
		if _, err := a.history.SaveRun(run); err != nil {
			slog.Warn("failed to record run history", "error", err)
		}
	}

	slog.Info("run complete",
		"packages", len(pkgs),
		"indexed", ix.PackageCount(),
		"warnings", run.WarningCount,
		"errors", failed,
		"duration", run.Duration.Round(time.Millisecond))
	return failed
}

// processPackage runs the full pipeline for one package directory. An error
// fails that package only; the batch continues.
func (a *App) processPackage(pkgDir string, ix *index.Index) (history.PackageRecord, error) {
	record := history.PackageRecord{Package: filepath.Base(pkgDir)}

	existing, err := manifest.Load(pkgDir)
	if err != nil {
		return record, err
	}

	extraction, err := a.Extractor.ScanPackage(pkgDir)
	if err != nil {
		return record, err
	}

	in := resolve.Input{
		PackageName:          filepath.Base(pkgDir),
		StrictNamespace:      true,
		RequireVersionAction: true,
		Extraction:           extraction,
	}
	if existing != nil {
		if existing.Name != "" {
			in.PackageName = existing.Name
		}
		in.Namespace = existing.Namespace
		if existing.Generator == manifest.GeneratorName {
			in.StrictNamespace = existing.StrictNamespace
			in.RequireVersionAction = existing.RequiresVersionAction
		}
	}
	if a.SkipVersionCheck {
		in.RequireVersionAction = false
	}

	res := resolve.Resolve(in, ix)
	merged := merge.Merge(pkgDir, existing, res, VERSION)

	for _, w := range res.Warnings {
		observability.WarningsTotal.WithLabelValues(string(w.Kind)).Inc()
		slog.Warn("generator warning", "package", in.PackageName, "kind", w.Kind, "detail", w.Message)
	}

	changed, err := a.writeManifest(pkgDir, merged)
	if err != nil {
		return record, err
	}

	record.Package = merged.Name
	record.Namespace = merged.Namespace
	record.Contributes = res.Contributes.Total()
	record.Depends = res.Depends.Total()
	record.Dependencies = len(merged.Dependencies)
	record.WarningCount = len(res.Warnings)
	record.Changed = changed

	a.printPackageSummary(pkgDir, merged, extraction, res, changed)
	return record, nil
}

// writeManifest persists the manifest only when its encoded form differs from
// what is on disk, so untouched packages keep their mtimes and watch mode
// never loops on its own output.
func (a *App) writeManifest(pkgDir string, m *manifest.Manifest) (bool, error) {
	encoded, err := m.Encode()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInternal, "encode manifest")
	}

	current, err := os.ReadFile(manifest.Path(pkgDir))
	if err == nil && bytes.Equal(current, encoded) {
		return false, nil
	}

	if a.DryRun || !a.Config.Generators.Manifest {
		return true, nil
	}
	return true, manifest.Save(pkgDir, m)
}

// discoverPackages decides what counts as a package under the root: the root
// itself when it holds sources or a manifest directly, otherwise every
// immediate subdirectory that does.
func (a *App) discoverPackages(root string) ([]string, error) {
	if ok, err := isPackageDir(root); err != nil {
		return nil, err
	} else if ok {
		return []string{root}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIOFailure, "read repository root")
	}

	var pkgs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if a.excludedDir(entry.Name()) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		ok, err := isPackageDir(dir)
		if err != nil {
			slog.Warn("skipping unreadable directory", "path", dir, "error", err)
			continue
		}
		if ok {
			pkgs = append(pkgs, dir)
		}
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

func (a *App) excludedDir(name string) bool {
	for _, pattern := range a.Config.Exclude.Dirs {
		if pattern == name {
			return true
		}
	}
	return false
}

// isPackageDir reports whether dir directly contains voice-command sources or
// an existing manifest.
func isPackageDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == manifest.FileName {
			return true, nil
		}
		switch filepath.Ext(entry.Name()) {
		case ".py", ".talon":
			return true, nil
		}
	}
	return false, nil
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			slog.Info("source change detected", "files", len(paths))
			a.Run()
		},
	)
	if err != nil {
		return err
	}
	a.watcher = w

	slog.Info("watching for changes", "roots", a.Roots, "debounce", a.Config.Watch.Debounce)
	return w.Watch(a.Roots)
}

func (a *App) printPackageSummary(pkgDir string, m *manifest.Manifest, extraction *extract.Result, res resolve.Result, changed bool) {
	status := "unchanged"
	switch {
	case changed && (a.DryRun || !a.Config.Generators.Manifest):
		status = "would update"
	case changed:
		status = "updated"
	}

	fmt.Printf("\n%s (%s) [%s]\n", m.Name, m.Version, status)
	fmt.Printf("  namespace: %s\n", orDash(m.Namespace))
	fmt.Printf("  scanned: %d python, %d talon\n", extraction.ScriptFiles, extraction.TalonFiles)

	fmt.Printf("  contributes:")
	printKindCounts(&res.Contributes)
	fmt.Printf("  depends:")
	printKindCounts(&res.Depends)

	if len(m.Dependencies) > 0 {
		names := make([]string, 0, len(m.Dependencies))
		for name := range m.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("  dependencies:\n")
		for _, name := range names {
			dep := m.Dependencies[name]
			fmt.Printf("    %s >= %s\n", name, dep.MinVersion)
		}
	}
	if len(m.Requires) > 0 {
		fmt.Printf("  requires: %v\n", m.Requires)
	}
}

func printKindCounts(lists *manifest.EntityLists) {
	total := 0
	for _, kind := range manifest.Kinds {
		n := len(lists.ByKind(kind))
		if n == 0 {
			continue
		}
		fmt.Printf(" %s=%d", kind, n)
		total += n
	}
	if total == 0 {
		fmt.Printf(" none")
	}
	fmt.Println()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
