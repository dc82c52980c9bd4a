// Package resolve turns one package's extracted entity sets into its
// generated manifest sections, matching referenced-but-undeclared entities
// against the repository index. It never fails the run for a single
// package's issues: everything non-fatal accumulates as warnings.
package resolve

import (
	"sort"
	"strings"

	"tpack/internal/errors"
	"tpack/internal/extract"
	"tpack/internal/index"
	"tpack/internal/manifest"
)

type Input struct {
	// PackageName excludes the package's own index entries so it never
	// depends on itself.
	PackageName string

	// Namespace from the existing manifest; inferred from contributions
	// when empty and strict mode is on.
	Namespace string

	StrictNamespace      bool
	RequireVersionAction bool

	Extraction *extract.Result
}

type Result struct {
	Namespace    string
	Contributes  manifest.EntityLists
	Depends      manifest.EntityLists
	Dependencies map[string]manifest.Dependency
	Requires     []string
	Warnings     []errors.Warning
}

func Resolve(in Input, ix *index.Index) Result {
	res := Result{
		Dependencies: make(map[string]manifest.Dependency),
		Warnings:     append([]errors.Warning(nil), in.Extraction.Warnings...),
	}

	// Kind lists keep first-sighting order; the package walk is lexical, so
	// the order is stable across runs.
	for _, kind := range manifest.Kinds {
		res.Contributes.SetKind(kind, in.Extraction.Contributes.Kind(kind).Names())
	}

	res.Namespace = in.resolveNamespace(&res)
	in.checkNamespaceConsistency(res.Namespace, &res)
	in.checkVersionAction(res.Namespace, &res)

	for _, kind := range manifest.Kinds {
		var depends []string
		for _, name := range in.Extraction.Depends.Kind(kind).Names() {
			if in.Extraction.Contributes.HasName(name) {
				continue
			}
			if isBuiltin(kind, name) {
				continue
			}
			if underOwnNamespace(name, res.Namespace) {
				// Self-satisfied even without a textual declaration;
				// the declaration may live in a generated file.
				res.Warnings = append(res.Warnings, errors.Warningf(
					errors.WarnNamespaceInconsistency,
					"%s %s: declared namespace entity with no matching declaration found",
					kind, name))
				continue
			}

			depends = append(depends, name)
			in.resolveAgainstIndex(kind, name, ix, &res)
		}
		res.Depends.SetKind(kind, depends)
	}

	res.Requires = in.detectRequirements()
	return res
}

// resolveAgainstIndex classifies one candidate dependency: unresolved,
// uniquely resolved, or ambiguous with a deterministic tie-break.
func (in Input) resolveAgainstIndex(kind manifest.Kind, name string, ix *index.Index, res *Result) {
	providers := ix.Lookup(kind, name)

	candidates := providers[:0:0]
	for _, p := range providers {
		if p.Package == in.PackageName {
			continue
		}
		candidates = append(candidates, p)
	}

	switch len(candidates) {
	case 0:
		res.Warnings = append(res.Warnings, errors.Warningf(
			errors.WarnUnresolvedReference,
			"%s %s is not declared by any indexed package", kind, name))
		return
	case 1:
		res.mergeDependency(candidates[0])
		return
	}

	// Lookup returns candidates sorted by package name, so picking the
	// strict winner (or the overall first) is deterministic across runs.
	chosen := candidates[0]
	strict := strictOnly(candidates)
	if len(strict) == 1 {
		// A single strict-namespace provider beats lenient ones without
		// flagging ambiguity; lenient packages opted out of uniqueness.
		chosen = strict[0]
	} else {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Package
		}
		res.Warnings = append(res.Warnings, errors.Warningf(
			errors.WarnAmbiguousReference,
			"%s %s is declared by multiple packages (%s); resolved to %s",
			kind, name, strings.Join(names, ", "), chosen.Package))
	}
	res.mergeDependency(chosen)
}

func strictOnly(providers []index.Provider) []index.Provider {
	var out []index.Provider
	for _, p := range providers {
		if !p.Lenient {
			out = append(out, p)
		}
	}
	return out
}

// mergeDependency collapses entities from the same package into one entry;
// min_version only ever goes up.
func (res *Result) mergeDependency(p index.Provider) {
	dep, ok := res.Dependencies[p.Package]
	if !ok {
		res.Dependencies[p.Package] = manifest.Dependency{
			Namespace:  p.Namespace,
			GitHub:     p.GitHub,
			MinVersion: p.Version,
		}
		return
	}
	dep.MinVersion = manifest.MaxVersion(dep.MinVersion, p.Version)
	dep.Namespace = p.Namespace
	dep.GitHub = p.GitHub
	res.Dependencies[p.Package] = dep
}

func (in Input) resolveNamespace(res *Result) string {
	namespace := in.Namespace
	if namespace == "" && in.StrictNamespace {
		namespace = inferNamespace(in.Extraction.Contributes)
		if namespace == "" && in.Extraction.Contributes.Total() > 0 {
			res.Warnings = append(res.Warnings, errors.Warningf(
				errors.WarnNamespaceInconsistency,
				"could not infer namespace: no prefix appears in a majority of contributions"))
		}
	}
	if namespace != "" && !hasNamespacePrefix(namespace) {
		namespace = "user." + namespace
	}
	return namespace
}

func (in Input) checkNamespaceConsistency(namespace string, res *Result) {
	if !in.StrictNamespace || namespace == "" {
		return
	}
	offenders := namespaceOffenders(namespace, in.Extraction.Contributes)
	if len(offenders) > 0 {
		res.Warnings = append(res.Warnings, errors.Warningf(
			errors.WarnNamespaceInconsistency,
			"entities outside namespace %s: %s", namespace, strings.Join(offenders, ", ")))
	}
}

func (in Input) checkVersionAction(namespace string, res *Result) {
	if !in.RequireVersionAction || namespace == "" || in.Extraction.Contributes.Total() == 0 {
		return
	}
	base := strings.TrimPrefix(namespace, "user.")
	expected := "user." + base + "_version"
	if !in.Extraction.Contributes.Kind(manifest.KindActions).Has(expected) {
		res.Warnings = append(res.Warnings, errors.Warningf(
			errors.WarnMissingVersionAction,
			"missing version action %s; add one so dependents can validate versions", expected))
	}
}

func (in Input) detectRequirements() []string {
	requires := make(map[string]bool, len(in.Extraction.Requires))
	for r := range in.Extraction.Requires {
		requires[r] = true
	}
	for action := range in.Extraction.AllActions {
		if strings.HasPrefix(action, "tracking.") {
			requires["eyeTracker"] = true
			break
		}
	}
	if in.Extraction.RequiresBeta {
		requires["talonBeta"] = true
	}

	out := make([]string, 0, len(requires))
	for r := range requires {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
