// Package merge combines a package's freshly generated manifest sections with
// its existing manifest.json, preserving owner-authored content. Identity
// fields survive regeneration, generated sections are replaced, and anything
// listed in _generatorFrozenFields is restored verbatim afterwards.
package merge

import (
	"path/filepath"
	"strings"

	"tpack/internal/manifest"
	"tpack/internal/resolve"
)

// Merge builds the next manifest for pkgDir. existing may be nil, in which
// case identity fields are seeded from the package directory itself. The
// result is pure; callers decide whether and how to persist it.
func Merge(pkgDir string, existing *manifest.Manifest, res resolve.Result, generatorVersion string) *manifest.Manifest {
	out := &manifest.Manifest{
		Namespace:    res.Namespace,
		Contributes:  res.Contributes,
		Depends:      res.Depends,
		Dependencies: res.Dependencies,
		Requires:     res.Requires,

		Generator:             manifest.GeneratorName,
		GeneratorVersion:      generatorVersion,
		RequiresVersionAction: true,
		StrictNamespace:       true,
	}

	if existing != nil {
		carryIdentity(out, existing)
	}
	seedDefaults(out, pkgDir)

	ratchetVersions(out, existing)
	excludeDevDependencies(out)

	if out.ValidateDependencies == nil && len(out.Dependencies) > 0 {
		yes := true
		out.ValidateDependencies = &yes
	}
	if res.Contributes.Total() == 0 {
		out.RequiresVersionAction = false
	}

	applyFrozenFields(out, existing)
	out.Contributes.Normalize()
	out.Depends.Normalize()
	return out
}

// carryIdentity copies everything the owner may have hand-edited from the
// previous manifest.
func carryIdentity(out, existing *manifest.Manifest) {
	out.Name = existing.Name
	out.Title = existing.Title
	out.Description = existing.Description
	out.Version = existing.Version
	out.Status = existing.Status
	out.GitHub = existing.GitHub
	out.Preview = existing.Preview
	out.Author = existing.Author
	out.Tags = existing.Tags
	out.License = existing.License
	out.Platforms = existing.Platforms
	out.DevDependencies = existing.DevDependencies
	out.ValidateDependencies = existing.ValidateDependencies
	out.FrozenFields = existing.FrozenFields
	out.Extra = existing.Extra

	// Manifests written before this generator still get the current
	// defaults; opt-outs only stick once the generator stamp is present.
	if existing.Generator == manifest.GeneratorName {
		out.RequiresVersionAction = existing.RequiresVersionAction
		out.StrictNamespace = existing.StrictNamespace
	}
	if existing.Namespace != "" {
		out.Namespace = existing.Namespace
	}
}

// seedDefaults fills detected defaults into identity fields the owner has not
// set. Present fields stay verbatim; the seeded version is 0.0.0 so the first
// explicit bump is the package's first release.
func seedDefaults(out *manifest.Manifest, pkgDir string) {
	if out.Name == "" {
		out.Name = filepath.Base(pkgDir)
	}
	if out.Title == "" {
		out.Title = defaultTitle(out.Name)
	}
	if out.Description == "" {
		out.Description = "TODO: describe what this package does"
	}
	if out.Status == "" {
		out.Status = "experimental"
	}
	if out.License == "" {
		out.License = detectLicense(pkgDir)
	}
	if out.Preview == "" {
		out.Preview = detectPreview(pkgDir, out.GitHub)
	}
}

// ratchetVersions keeps min_version monotonic across regenerations: a
// dependency's floor never drops below what the previous manifest recorded.
func ratchetVersions(out, existing *manifest.Manifest) {
	if existing == nil {
		return
	}
	for name, dep := range out.Dependencies {
		prev, ok := existing.Dependencies[name]
		if !ok {
			continue
		}
		dep.MinVersion = manifest.MaxVersion(dep.MinVersion, prev.MinVersion)
		out.Dependencies[name] = dep
	}
}

// excludeDevDependencies drops generated dependencies the owner already lists
// as dev-only, so tooling packages never become install requirements.
func excludeDevDependencies(out *manifest.Manifest) {
	for name := range out.DevDependencies {
		delete(out.Dependencies, name)
	}
}

// applyFrozenFields restores frozen paths from the previous manifest, last so
// nothing generated above can override them. Paths are either a top-level
// field name or a dotted sub-path into contributes, depends, or dependencies.
func applyFrozenFields(out, existing *manifest.Manifest) {
	if existing == nil {
		return
	}
	for _, path := range existing.FrozenFields {
		parent, child, nested := strings.Cut(path, ".")
		if !nested {
			freezeField(out, existing, path)
			continue
		}
		switch parent {
		case "contributes":
			out.Contributes.SetKind(manifest.Kind(child), existing.Contributes.ByKind(manifest.Kind(child)))
		case "depends":
			out.Depends.SetKind(manifest.Kind(child), existing.Depends.ByKind(manifest.Kind(child)))
		case "dependencies":
			freezeDependency(out, existing, child)
		}
	}
}

// freezeDependency pins either a whole dependency entry ("dependencies.pkg")
// or only its version floor ("dependencies.pkg.min_version").
func freezeDependency(out, existing *manifest.Manifest, path string) {
	pkg, sub, nested := strings.Cut(path, ".")
	prev, hadPrev := existing.Dependencies[pkg]

	if nested {
		if sub != "min_version" || !hadPrev {
			return
		}
		if dep, ok := out.Dependencies[pkg]; ok {
			dep.MinVersion = prev.MinVersion
			out.Dependencies[pkg] = dep
		}
		return
	}

	if hadPrev {
		if out.Dependencies == nil {
			out.Dependencies = make(map[string]manifest.Dependency)
		}
		out.Dependencies[pkg] = prev
	} else {
		delete(out.Dependencies, pkg)
	}
}

func freezeField(out, existing *manifest.Manifest, field string) {
	switch field {
	case "name":
		out.Name = existing.Name
	case "title":
		out.Title = existing.Title
	case "description":
		out.Description = existing.Description
	case "version":
		out.Version = existing.Version
	case "status":
		out.Status = existing.Status
	case "namespace":
		out.Namespace = existing.Namespace
	case "github":
		out.GitHub = existing.GitHub
	case "preview":
		out.Preview = existing.Preview
	case "author":
		out.Author = existing.Author
	case "tags":
		out.Tags = existing.Tags
	case "license":
		out.License = existing.License
	case "platforms":
		out.Platforms = existing.Platforms
	case "requires":
		out.Requires = existing.Requires
	case "contributes":
		out.Contributes = existing.Contributes
	case "depends":
		out.Depends = existing.Depends
	case "dependencies":
		out.Dependencies = existing.Dependencies
	case "validateDependencies":
		out.ValidateDependencies = existing.ValidateDependencies
	}
}
