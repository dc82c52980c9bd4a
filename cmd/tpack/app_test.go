// # cmd/tpack/app_test.go
package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpack/internal/config"
	"tpack/internal/history"
	"tpack/internal/manifest"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func testConfig(root string) *config.Config {
	cfg := config.Default()
	cfg.Root = root
	cfg.History.Path = ""
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, dryRun bool) *App {
	t.Helper()
	app, err := NewApp(cfg, dryRun)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

const providerSource = `
from talon import Module

mod = Module()

@mod.action_class
class Actions:
    def numbers_speak(n: int):
        """Speak a number"""

    def numbers_version() -> str:
        """Report package version"""
`

const consumerSource = `
from talon import Module, actions

mod = Module()

@mod.action_class
class Actions:
    def tabs_open():
        """Open a tab"""

    def tabs_version() -> str:
        """Report package version"""

def helper():
    actions.user.numbers_speak(3)
`

func TestEndToEndTwoPackages(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"talon-numbers/numbers.py": providerSource,
		"talon-tabs/tabs.py":       consumerSource,
	})

	app := newTestApp(t, testConfig(root), false)

	// First run: no manifests exist yet, so the cross-package reference is
	// unresolved but both manifests are created.
	require.Equal(t, 0, app.Run())

	numbers, err := manifest.Load(filepath.Join(root, "talon-numbers"))
	require.NoError(t, err)
	require.NotNil(t, numbers)
	assert.Equal(t, "talon-numbers", numbers.Name)
	assert.Equal(t, "user.numbers", numbers.Namespace)
	assert.Contains(t, numbers.Contributes.Actions, "user.numbers_speak")
	assert.Equal(t, "0.0.0", numbers.Version.String())

	tabs, err := manifest.Load(filepath.Join(root, "talon-tabs"))
	require.NoError(t, err)
	require.NotNil(t, tabs)
	assert.Contains(t, tabs.Depends.Actions, "user.numbers_speak")
	assert.Empty(t, tabs.Dependencies, "first run has nothing indexed to resolve against")

	// Second run: talon-numbers is indexed now, so the reference resolves
	// into a versioned dependency.
	require.Equal(t, 0, app.Run())

	tabs, err = manifest.Load(filepath.Join(root, "talon-tabs"))
	require.NoError(t, err)
	require.NotNil(t, tabs)
	dep, ok := tabs.Dependencies["talon-numbers"]
	require.True(t, ok, "dependency on talon-numbers not recorded: %v", tabs.Dependencies)
	assert.Equal(t, "user.numbers", dep.Namespace)
	assert.Equal(t, "0.0.0", dep.MinVersion.String())

	// Third run must be byte-stable.
	before, err := os.ReadFile(manifest.Path(filepath.Join(root, "talon-tabs")))
	require.NoError(t, err)
	require.Equal(t, 0, app.Run())
	after, err := os.ReadFile(manifest.Path(filepath.Join(root, "talon-tabs")))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCorruptManifestFailsThatPackageOnly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"talon-good/good.py":      `mod.tag("good_ready")`,
		"talon-bad/bad.py":        `mod.tag("bad_ready")`,
		"talon-bad/manifest.json": `{"name": "talon-bad",`,
	})

	app := newTestApp(t, testConfig(root), false)
	assert.Equal(t, 1, app.Run(), "exactly the corrupt package should fail")

	good, err := manifest.Load(filepath.Join(root, "talon-good"))
	require.NoError(t, err)
	require.NotNil(t, good, "healthy package should still be generated")

	// The corrupt manifest must be left untouched for the owner to inspect.
	raw, err := os.ReadFile(filepath.Join(root, "talon-bad", manifest.FileName))
	require.NoError(t, err)
	assert.Equal(t, `{"name": "talon-bad",`, string(raw))
}

func TestDryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"talon-tabs/tabs.py": consumerSource,
	})

	app := newTestApp(t, testConfig(root), true)
	require.Equal(t, 0, app.Run())

	_, err := os.Stat(manifest.Path(filepath.Join(root, "talon-tabs")))
	assert.True(t, os.IsNotExist(err), "dry run must not write manifests")
}

func TestManualEditsSurviveRegeneration(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"talon-tabs/tabs.py": consumerSource,
	})

	cfg := testConfig(root)
	app := newTestApp(t, cfg, false)
	require.Equal(t, 0, app.Run())

	pkgDir := filepath.Join(root, "talon-tabs")
	m, err := manifest.Load(pkgDir)
	require.NoError(t, err)
	m.Description = "A tool I maintain by hand."
	m.Version = manifest.MustVersion("2.0.0")
	m.Extra = map[string]json.RawMessage{"internalNote": json.RawMessage(`"keep me"`)}
	require.NoError(t, manifest.Save(pkgDir, m))

	require.Equal(t, 0, app.Run())

	m, err = manifest.Load(pkgDir)
	require.NoError(t, err)
	assert.Equal(t, "A tool I maintain by hand.", m.Description)
	assert.Equal(t, "2.0.0", m.Version.String())
	assert.Equal(t, `"keep me"`, string(m.Extra["internalNote"]))
}

func TestRunHistoryRecorded(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"talon-tabs/tabs.py": consumerSource,
	})

	cfg := testConfig(root)
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	app := newTestApp(t, cfg, false)
	require.Equal(t, 0, app.Run())
	app.Close()

	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].PackageCount)
	assert.Equal(t, 0, runs[0].ErrorCount)
}

func TestSingularPackageRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tabs.py": consumerSource,
	})

	app := newTestApp(t, testConfig(root), false)
	require.Equal(t, 0, app.Run())

	m, err := manifest.Load(root)
	require.NoError(t, err)
	require.NotNil(t, m, "a root that is itself a package should be processed")
	assert.Contains(t, m.Contributes.Actions, "user.tabs_open")
}

func TestMultipleRootsProcessedIndependently(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeTree(t, rootA, map[string]string{
		"talon-numbers/numbers.py": providerSource,
	})
	writeTree(t, rootB, map[string]string{
		"talon-tabs/tabs.py": consumerSource,
	})

	app := newTestApp(t, testConfig(rootA), false)
	app.Roots = []string{rootA, rootB}
	require.Equal(t, 0, app.Run())

	numbers, err := manifest.Load(filepath.Join(rootA, "talon-numbers"))
	require.NoError(t, err)
	require.NotNil(t, numbers)

	tabs, err := manifest.Load(filepath.Join(rootB, "talon-tabs"))
	require.NoError(t, err)
	require.NotNil(t, tabs)
	// Each root gets its own index, so the cross-root reference stays
	// unresolved rather than leaking between repositories.
	assert.Empty(t, tabs.Dependencies)
}

func TestVersionBumpCommand(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tabs.py": consumerSource,
	})

	app := newTestApp(t, testConfig(root), false)
	require.Equal(t, 0, app.Run())

	require.NoError(t, runVersionBump(root, manifest.BumpMinor, false))
	m, err := manifest.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", m.Version.String())

	require.Error(t, runVersionBump(root, manifest.BumpKind("huge"), false))
}
