package index

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	"tpack/internal/errors"
	"tpack/internal/manifest"
	"tpack/internal/observability"
)

// Key identifies one entity repository-wide.
type Key struct {
	Kind manifest.Kind
	Name string
}

// Provider is one package declaring an entity. Lenient providers (missing
// namespace, or strict-namespace disabled) are still indexed but ambiguity
// involving them is treated leniently at resolution time.
type Provider struct {
	Package   string
	Namespace string
	GitHub    string
	Version   manifest.Version
	Lenient   bool
}

// Index maps entities to the packages declaring them. More than one provider
// per entity is a conflict state, not an error state, until resolution time.
// The index is rebuilt fresh per invocation and never mutated afterwards.
type Index struct {
	providers map[Key][]Provider
	packages  int
}

// Build walks root and registers every directory holding a manifest generated
// by this tool. Malformed manifests are skipped silently; they are surfaced
// when their own package is processed.
func Build(root string, excludeDirs []string) (*Index, error) {
	globs := make([]glob.Glob, 0, len(excludeDirs))
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
		}
		globs = append(globs, g)
	}

	ix := &Index{providers: make(map[Key][]Provider)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			base := filepath.Base(path)
			for _, g := range globs {
				if g.Match(base) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if d.Name() != manifest.FileName {
			return nil
		}

		m, loadErr := manifest.Load(filepath.Dir(path))
		if loadErr != nil || m == nil {
			slog.Debug("skipping unreadable manifest", "path", path, "error", loadErr)
			return nil
		}
		ix.register(m)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIOFailure, "walk repository root")
	}

	observability.IndexedPackages.Set(float64(ix.packages))
	return ix, nil
}

func (ix *Index) register(m *manifest.Manifest) {
	if m.Generator != manifest.GeneratorName || m.Name == "" {
		return
	}

	ix.packages++
	lenient := m.Namespace == "" || !m.StrictNamespace

	p := Provider{
		Package:   m.Name,
		Namespace: m.Namespace,
		GitHub:    m.GitHub,
		Version:   m.Version,
		Lenient:   lenient,
	}
	for _, kind := range manifest.Kinds {
		for _, name := range m.Contributes.ByKind(kind) {
			key := Key{Kind: kind, Name: name}
			ix.providers[key] = append(ix.providers[key], p)
		}
	}
}

// Lookup returns every provider of an entity, sorted by package name so the
// lexicographically-lowest candidate is always first.
func (ix *Index) Lookup(kind manifest.Kind, name string) []Provider {
	providers := ix.providers[Key{Kind: kind, Name: name}]
	if len(providers) <= 1 {
		return providers
	}
	out := make([]Provider, len(providers))
	copy(out, providers)
	sort.Slice(out, func(i, j int) bool { return out[i].Package < out[j].Package })
	return out
}

func (ix *Index) PackageCount() int {
	return ix.packages
}
