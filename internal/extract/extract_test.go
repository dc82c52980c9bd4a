package extract

import (
	"os"
	"path/filepath"
	"testing"

	"tpack/internal/errors"
	"tpack/internal/manifest"
)

func scanFixture(t *testing.T, files map[string]string) *Result {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	e, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.ScanPackage(dir)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func wantContributes(t *testing.T, res *Result, kind manifest.Kind, name string) {
	t.Helper()
	if !res.Contributes.Kind(kind).Has(name) {
		t.Errorf("Expected contributed %s %q, got %v", kind, name, res.Contributes.Kind(kind).Names())
	}
}

func wantDepends(t *testing.T, res *Result, kind manifest.Kind, name string) {
	t.Helper()
	if !res.Depends.Kind(kind).Has(name) {
		t.Errorf("Expected referenced %s %q, got %v", kind, name, res.Depends.Kind(kind).Names())
	}
}

func TestActionClassDeclaration(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"actions.py": `
from talon import Module

mod = Module()

@mod.action_class
class Actions:
    def open_tab():
        """Open a new tab"""

    def close_tab():
        """Close the current tab"""
`,
	})

	wantContributes(t, res, manifest.KindActions, "user.open_tab")
	wantContributes(t, res, manifest.KindActions, "user.close_tab")
	if res.Depends.Kind(manifest.KindActions).Len() != 0 {
		t.Errorf("Declarations leaked into references: %v", res.Depends.Kind(manifest.KindActions).Names())
	}
}

func TestActionClassOverrideIsReference(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"edit.py": `
from talon import Context

ctx = Context()

@ctx.action_class("edit")
class EditActions:
    def save():
        pass
`,
	})

	wantDepends(t, res, manifest.KindActions, "edit.save")
	if res.Contributes.Kind(manifest.KindActions).Len() != 0 {
		t.Errorf("Override declared actions: %v", res.Contributes.Kind(manifest.KindActions).Names())
	}
}

func TestExplicitActionDecorator(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"a.py": `
@mod.action("user.special_paste")
def special_paste():
    pass

@mod.capture(rule="<digits>")
def number_word(m):
    pass
`,
	})

	wantContributes(t, res, manifest.KindActions, "user.special_paste")
	wantContributes(t, res, manifest.KindCaptures, "user.number_word")
}

func TestDeclarationCalls(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"decl.py": `
mod.setting("zoom_level", type=int, default=3)
mod.tag("tabs_active", desc="Tab commands enabled")
mod.mode("sleep_override")
mod.list("symbol_key", desc="Symbols")
mod.list(desc="Named first", name="named_list")
`,
	})

	wantContributes(t, res, manifest.KindSettings, "user.zoom_level")
	wantContributes(t, res, manifest.KindTags, "user.tabs_active")
	wantContributes(t, res, manifest.KindModes, "user.sleep_override")
	wantContributes(t, res, manifest.KindLists, "user.symbol_key")
	wantContributes(t, res, manifest.KindLists, "user.named_list")
}

func TestActionReferences(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"refs.py": `
from talon import actions

def go():
    actions.user.open_tab()
    actions.edit.save()
    actions.key("enter")
    value = settings.get("user.zoom_level")
`,
	})

	wantDepends(t, res, manifest.KindActions, "user.open_tab")
	wantDepends(t, res, manifest.KindActions, "edit.save")
	wantDepends(t, res, manifest.KindSettings, "user.zoom_level")

	// actions.key is builtin-namespaced; recorded for requirement detection
	// but not as a dependency reference.
	if res.Depends.Kind(manifest.KindActions).Has("key") {
		t.Error("Bare builtin call misrecorded as reference")
	}
}

func TestContextAssignments(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"ctx.py": `
from talon import Context, Module

mod = Module()
ctx = Context()

ctx.matches = """
mode: command
tag: user.tabs_active
"""
ctx.tags = ["user.terminal_mode"]
ctx.lists["user.symbol_key"] = {"dot": "."}
mod.apps.vscode = "app.name: Code"
`,
	})

	wantDepends(t, res, manifest.KindModes, "command")
	wantDepends(t, res, manifest.KindTags, "user.tabs_active")
	wantDepends(t, res, manifest.KindTags, "user.terminal_mode")
	wantDepends(t, res, manifest.KindLists, "user.symbol_key")
	wantContributes(t, res, manifest.KindApps, "vscode")
}

func TestBetaDetection(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"beta.py": `
ctx.dynamic_list("user.running_apps", update)
`,
	})
	if !res.RequiresBeta {
		t.Error("dynamic_list not detected as beta")
	}
}

func TestTalonFileExtraction(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"commands.talon": `app: vscode
and tag: user.tabs_active
mode: command
settings():
    user.zoom_level = 5
-
open tab: user.open_tab()
next <user.ordinal>: actions.user.go_next()
say {user.symbol_key}: key("{symbol_key}")
`,
	})

	if res.TalonFiles != 1 {
		t.Fatalf("Expected 1 talon file, got %d", res.TalonFiles)
	}
	wantDepends(t, res, manifest.KindApps, "vscode")
	wantDepends(t, res, manifest.KindTags, "user.tabs_active")
	wantDepends(t, res, manifest.KindModes, "command")
	wantDepends(t, res, manifest.KindSettings, "user.zoom_level")
	wantDepends(t, res, manifest.KindActions, "user.open_tab")
	wantDepends(t, res, manifest.KindActions, "user.go_next")
	wantDepends(t, res, manifest.KindCaptures, "user.ordinal")
	wantDepends(t, res, manifest.KindLists, "user.symbol_key")
}

func TestTalonFileWithoutSeparatorIsHeaderOnly(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"matchers.talon": `tag: user.tabs_active
mode: dictation
`,
	})

	wantDepends(t, res, manifest.KindTags, "user.tabs_active")
	wantDepends(t, res, manifest.KindModes, "dictation")
	if res.Depends.Kind(manifest.KindActions).Len() != 0 {
		t.Errorf("Header-only file produced action references: %v",
			res.Depends.Kind(manifest.KindActions).Names())
	}
}

func TestTalonRequiresDetection(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"parrot.talon": `-
parrot(pop): user.click()
`,
	})

	if !res.Requires["parrot"] {
		t.Errorf("parrot requirement not detected: %v", res.Requires)
	}
	if !res.RequiresBeta {
		t.Error("parrot( not detected as beta")
	}
}

func TestDegradedFallbackOnSyntaxError(t *testing.T) {
	res := scanFixture(t, map[string]string{
		"broken.py": `
def broken(:
    actions.user.open_tab()
    settings.get("user.zoom_level")
`,
	})

	degraded := false
	for _, w := range res.Warnings {
		if w.Kind == errors.WarnParseDegraded {
			degraded = true
		}
	}
	if !degraded {
		t.Fatalf("Expected ParseDegraded warning, got %v", res.Warnings)
	}

	// References still found textually; declarations never are.
	wantDepends(t, res, manifest.KindActions, "user.open_tab")
	wantDepends(t, res, manifest.KindSettings, "user.zoom_level")
}

func TestExcludePatterns(t *testing.T) {
	files := map[string]string{
		"keep.py":                     `mod.tag("kept")`,
		"skip_me.py":                  `mod.tag("skipped_file")`,
		".venv/lib/site.py":           `mod.tag("skipped_dir")`,
		"__pycache__/cached.py":       `mod.tag("skipped_cache")`,
		"nested/deep/also_kept.talon": "-\nhello: user.wave()\n",
	}

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	e, err := New([]string{".venv", "__pycache__"}, []string{"skip_*.py"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.ScanPackage(dir)
	if err != nil {
		t.Fatal(err)
	}

	wantContributes(t, res, manifest.KindTags, "user.kept")
	wantDepends(t, res, manifest.KindActions, "user.wave")
	for _, name := range res.Contributes.Kind(manifest.KindTags).Names() {
		if name != "user.kept" {
			t.Errorf("Excluded file was scanned: %s", name)
		}
	}
	if res.ScriptFiles != 1 {
		t.Errorf("Expected 1 scanned python file, got %d", res.ScriptFiles)
	}
}

func TestScanPackageMissingRoot(t *testing.T) {
	e, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.ScanPackage(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("Expected error for missing root")
	}
	if !errors.IsCode(err, errors.CodeIOFailure) {
		t.Errorf("Expected IO_FAILURE, got %v", err)
	}
}
