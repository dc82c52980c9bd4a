// # cmd/tpack/info.go
package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"tpack/internal/manifest"
)

// runInfo prints a human-readable report of one package's manifest.
func runInfo(dir string, w io.Writer) error {
	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no %s in %s; run the generator first", manifest.FileName, dir)
	}

	fmt.Fprintf(w, "%s v%s\n", m.Name, m.Version)
	if m.Title != "" {
		fmt.Fprintf(w, "%s\n", m.Title)
	}
	if m.Description != "" {
		fmt.Fprintf(w, "%s\n", m.Description)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "status:    %s\n", orUnset(m.Status))
	fmt.Fprintf(w, "namespace: %s\n", orUnset(m.Namespace))
	fmt.Fprintf(w, "license:   %s\n", orUnset(m.License))
	if m.GitHub != "" {
		fmt.Fprintf(w, "github:    %s\n", m.GitHub)
	}
	if len(m.Platforms) > 0 {
		fmt.Fprintf(w, "platforms: %s\n", strings.Join(m.Platforms, ", "))
	}
	if len(m.Requires) > 0 {
		fmt.Fprintf(w, "requires:  %s\n", strings.Join(m.Requires, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "contributes:")
	printEntitySection(w, &m.Contributes)
	fmt.Fprintln(w, "depends:")
	printEntitySection(w, &m.Depends)

	if len(m.Dependencies) > 0 {
		fmt.Fprintln(w, "dependencies:")
		names := make([]string, 0, len(m.Dependencies))
		for name := range m.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			dep := m.Dependencies[name]
			fmt.Fprintf(w, "  %s >= %s", name, dep.MinVersion)
			if dep.Namespace != "" {
				fmt.Fprintf(w, " (%s)", dep.Namespace)
			}
			fmt.Fprintln(w)
		}
	}

	if len(m.FrozenFields) > 0 {
		fmt.Fprintf(w, "frozen fields: %s\n", strings.Join(m.FrozenFields, ", "))
	}
	if m.Generator != "" {
		fmt.Fprintf(w, "generated by %s v%s\n", m.Generator, m.GeneratorVersion)
	}
	return nil
}

func printEntitySection(w io.Writer, lists *manifest.EntityLists) {
	empty := true
	for _, kind := range manifest.Kinds {
		names := lists.ByKind(kind)
		if len(names) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(w, "  %s (%d):\n", kind, len(names))
		for _, name := range names {
			fmt.Fprintf(w, "    %s\n", name)
		}
	}
	if empty {
		fmt.Fprintln(w, "  none")
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
