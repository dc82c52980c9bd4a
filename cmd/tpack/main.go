// # cmd/tpack/main.go
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"tpack/internal/config"
	"tpack/internal/manifest"
)

var (
	configPath       = flag.String("config", "./tpack.toml", "Path to config file")
	dryRun           = flag.Bool("dry-run", false, "Compute manifests without writing them")
	watch            = flag.Bool("watch", false, "Keep running and regenerate on source changes")
	manifestOnly     = flag.Bool("manifest-only", false, "Run only the manifest generator")
	noManifest       = flag.Bool("no-manifest", false, "Report without writing manifests")
	skipVersionCheck = flag.Bool("skip-version-check", false, "Skip the version action policy check")
	verbose          = flag.Bool("verbose", false, "Enable verbose logging")
	version          = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: tpack [flags] [command] [dir ...]

Commands:
  (none)                        Generate manifests for every package under each root
  info [dir]                    Print the manifest summary of one package
  version patch|minor|major [dir]  Bump the package version

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("tpack v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	args := flag.Args()
	var roots []string
	switch {
	case len(args) > 0 && args[0] == "info":
		dir := "."
		if len(args) > 1 {
			dir = args[1]
		}
		if err := runInfo(dir, os.Stdout); err != nil {
			slog.Error("info failed", "error", err)
			os.Exit(1)
		}
		return

	case len(args) > 0 && args[0] == "version":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "version command requires patch, minor or major")
			os.Exit(1)
		}
		dir := "."
		if len(args) > 2 {
			dir = args[2]
		}
		if err := runVersionBump(dir, manifest.BumpKind(args[1]), *dryRun); err != nil {
			slog.Error("version bump failed", "error", err)
			os.Exit(1)
		}
		return

	case len(args) > 0:
		cfg.Root = args[0]
		roots = args
	}

	if *manifestOnly {
		cfg.Generators = config.Generators{Manifest: true}
	}
	if *noManifest {
		cfg.Generators.Manifest = false
	}

	app, err := NewApp(cfg, *dryRun)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	app.SkipVersionCheck = *skipVersionCheck
	if len(roots) > 0 {
		app.Roots = roots
	}
	defer app.Close()

	failed := app.Run()

	if *watch {
		if err := app.StartWatcher(); err != nil {
			slog.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		select {}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func runVersionBump(dir string, kind manifest.BumpKind, dryRun bool) error {
	switch kind {
	case manifest.BumpMajor, manifest.BumpMinor, manifest.BumpPatch:
	default:
		return fmt.Errorf("unknown bump kind %q: expected patch, minor or major", kind)
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no %s in %s; run the generator first", manifest.FileName, dir)
	}

	old := m.Version
	m.Version = old.Bump(kind)
	fmt.Printf("%s: %s -> %s\n", m.Name, old, m.Version)

	if dryRun {
		return nil
	}
	return manifest.Save(dir, m)
}
