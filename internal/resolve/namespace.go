package resolve

import (
	"sort"
	"strings"

	"tpack/internal/extract"
	"tpack/internal/manifest"
)

var namespacePrefixes = []string{"user.", "edit.", "core.", "app.", "code."}

func hasNamespacePrefix(s string) bool {
	for _, p := range namespacePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// inferNamespace finds the longest underscore-delimited prefix shared by a
// majority (>50%) of contributed entities. Apps are skipped; they do not
// follow the namespace pattern. Returns "" when no common pattern exists.
func inferNamespace(contributes *extract.Group) string {
	var entities []string
	for _, kind := range manifest.Kinds {
		if kind == manifest.KindApps {
			continue
		}
		for _, name := range contributes.Kind(kind).Names() {
			if strings.Contains(name, ".") {
				entities = append(entities, name)
			}
		}
	}

	if len(entities) == 0 {
		return ""
	}
	if len(entities) == 1 {
		entity := entities[0]
		if i := strings.LastIndex(entity, "_"); i >= 0 {
			return entity[:i]
		}
		return entity
	}

	prefixCounts := make(map[string]int)
	for _, entity := range entities {
		parts := strings.Split(entity, "_")
		for i := 1; i <= len(parts); i++ {
			prefixCounts[strings.Join(parts[:i], "_")]++
		}
	}

	threshold := float64(len(entities)) * 0.5
	var candidates []string
	for prefix, count := range prefixCounts {
		if float64(count) > threshold {
			candidates = append(candidates, prefix)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) > len(candidates[j])
		}
		if prefixCounts[candidates[i]] != prefixCounts[candidates[j]] {
			return prefixCounts[candidates[i]] > prefixCounts[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

// namespaceOffenders returns contributed user.* entities that fall outside
// the expected namespace or namespace_* pattern.
func namespaceOffenders(namespace string, contributes *extract.Group) []string {
	base := strings.TrimPrefix(namespace, "user.")

	var offenders []string
	for _, kind := range manifest.Kinds {
		if kind == manifest.KindApps {
			continue
		}
		for _, name := range contributes.Kind(kind).Names() {
			suffix, ok := strings.CutPrefix(name, "user.")
			if !ok || suffix == "" {
				continue
			}
			if suffix != base && !strings.HasPrefix(suffix, base+"_") {
				offenders = append(offenders, string(kind)+": "+name)
			}
		}
	}
	return offenders
}

// underOwnNamespace reports whether an entity name sits under the package's
// own namespace prefix (exact, underscore-suffixed, or dotted).
func underOwnNamespace(name, namespace string) bool {
	if namespace == "" {
		return false
	}
	return name == namespace ||
		strings.HasPrefix(name, namespace+"_") ||
		strings.HasPrefix(name, namespace+".")
}
