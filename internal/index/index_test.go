package index

import (
	"os"
	"path/filepath"
	"testing"

	"tpack/internal/manifest"
)

func writeManifest(t *testing.T, root, dir string, m *manifest.Manifest) {
	t.Helper()
	pkgDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := manifest.Save(pkgDir, m); err != nil {
		t.Fatal(err)
	}
}

func writeRaw(t *testing.T, root, dir, content string) {
	t.Helper()
	pkgDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, manifest.FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func generated(name, namespace string) *manifest.Manifest {
	return &manifest.Manifest{
		Name:            name,
		Namespace:       namespace,
		Version:         manifest.MustVersion("1.0.0"),
		Generator:       manifest.GeneratorName,
		StrictNamespace: true,
	}
}

func TestBuildIndexesOnlyGeneratedManifests(t *testing.T) {
	root := t.TempDir()

	m := generated("talon-tabs", "user.tabs")
	m.Contributes.SetKind(manifest.KindActions, []string{"user.tabs_open"})
	writeManifest(t, root, "talon-tabs", m)

	foreign := &manifest.Manifest{Name: "talon-foreign", Version: manifest.MustVersion("1.0.0")}
	foreign.Contributes.SetKind(manifest.KindActions, []string{"user.foreign_action"})
	writeManifest(t, root, "talon-foreign", foreign)

	ix, err := Build(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if ix.PackageCount() != 1 {
		t.Errorf("Expected 1 indexed package, got %d", ix.PackageCount())
	}
	if got := ix.Lookup(manifest.KindActions, "user.tabs_open"); len(got) != 1 {
		t.Errorf("Expected one provider for user.tabs_open, got %v", got)
	}
	if got := ix.Lookup(manifest.KindActions, "user.foreign_action"); len(got) != 0 {
		t.Errorf("Hand-written manifest was indexed: %v", got)
	}
}

func TestBuildSkipsMalformedManifests(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "talon-good", generated("talon-good", "user.good"))
	writeRaw(t, root, "talon-broken", `{"name": "talon-broken",`)

	ix, err := Build(root, nil)
	if err != nil {
		t.Fatalf("Malformed manifest must not fail the index build: %v", err)
	}
	if ix.PackageCount() != 1 {
		t.Errorf("Expected 1 indexed package, got %d", ix.PackageCount())
	}
}

func TestBuildRespectsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "talon-kept", generated("talon-kept", "user.kept"))
	writeManifest(t, root, filepath.Join(".subtrees", "talon-vendored"), generated("talon-vendored", "user.vendored"))

	ix, err := Build(root, []string{".subtrees"})
	if err != nil {
		t.Fatal(err)
	}
	if ix.PackageCount() != 1 {
		t.Errorf("Expected 1 indexed package, got %d", ix.PackageCount())
	}
}

func TestLookupSortsProvidersByPackageName(t *testing.T) {
	root := t.TempDir()

	for _, name := range []string{"talon-zulu", "talon-alpha", "talon-mike"} {
		m := generated(name, "user."+name[len("talon-"):])
		m.Contributes.SetKind(manifest.KindActions, []string{"user.shared_action"})
		writeManifest(t, root, name, m)
	}

	ix, err := Build(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	providers := ix.Lookup(manifest.KindActions, "user.shared_action")
	if len(providers) != 3 {
		t.Fatalf("Expected 3 providers, got %d", len(providers))
	}
	want := []string{"talon-alpha", "talon-mike", "talon-zulu"}
	for i, p := range providers {
		if p.Package != want[i] {
			t.Errorf("providers[%d] = %s, want %s", i, p.Package, want[i])
		}
	}
}

func TestLenientClassification(t *testing.T) {
	root := t.TempDir()

	strict := generated("talon-strict", "user.strict")
	strict.Contributes.SetKind(manifest.KindTags, []string{"user.strict_tag"})
	writeManifest(t, root, "talon-strict", strict)

	noNamespace := generated("talon-nons", "")
	noNamespace.Contributes.SetKind(manifest.KindTags, []string{"user.nons_tag"})
	writeManifest(t, root, "talon-nons", noNamespace)

	optedOut := generated("talon-optout", "user.optout")
	optedOut.StrictNamespace = false
	optedOut.Contributes.SetKind(manifest.KindTags, []string{"user.optout_tag"})
	writeManifest(t, root, "talon-optout", optedOut)

	ix, err := Build(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		tag     string
		lenient bool
	}{
		{"user.strict_tag", false},
		{"user.nons_tag", true},
		{"user.optout_tag", true},
	}
	for _, c := range cases {
		providers := ix.Lookup(manifest.KindTags, c.tag)
		if len(providers) != 1 {
			t.Fatalf("Expected one provider for %s, got %d", c.tag, len(providers))
		}
		if providers[0].Lenient != c.lenient {
			t.Errorf("%s: lenient = %v, want %v", c.tag, providers[0].Lenient, c.lenient)
		}
	}
}
