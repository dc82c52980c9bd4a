package merge

import (
	"os"
	"path/filepath"
	"strings"
)

var licenseFilenames = []string{
	"LICENSE", "LICENSE.txt", "LICENSE.md", "LICENCE", "LICENCE.txt", "LICENCE.md",
}

// Every pattern must appear (case-insensitively) for the license to match.
var licensePatterns = []struct {
	name     string
	patterns []string
}{
	{"MIT", []string{"permission is hereby granted, free of charge", "mit license"}},
	{"Apache-2.0", []string{"apache license", "version 2.0"}},
	{"GPL-3.0", []string{"gnu general public license", "version 3"}},
	{"GPL-2.0", []string{"gnu general public license", "version 2"}},
	{"BSD-3-Clause", []string{"redistribution and use", "neither the name"}},
	{"BSD-2-Clause", []string{"redistribution and use", "without specific prior written permission"}},
	{"ISC", []string{"permission to use, copy, modify", "isc"}},
	{"Unlicense", []string{"this is free and unencumbered software"}},
}

// detectLicense sniffs the LICENSE file of a package. Returns "" when no
// license file exists, "Custom" when one exists but matches no known type.
func detectLicense(pkgDir string) string {
	for _, filename := range licenseFilenames {
		content, err := os.ReadFile(filepath.Join(pkgDir, filename))
		if err != nil {
			continue
		}
		lower := strings.ToLower(string(content))
		for _, lp := range licensePatterns {
			matched := true
			for _, p := range lp.patterns {
				if !strings.Contains(lower, p) {
					matched = false
					break
				}
			}
			if matched {
				return lp.name
			}
		}
		return "Custom"
	}
	return ""
}

var previewExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// detectPreview finds a preview image and rewrites the package's github URL
// to the raw content URL serving it.
func detectPreview(pkgDir, githubURL string) string {
	if githubURL == "" {
		return ""
	}
	for _, ext := range previewExtensions {
		if _, err := os.Stat(filepath.Join(pkgDir, "preview"+ext)); err == nil {
			raw := strings.Replace(githubURL, "github.com", "raw.githubusercontent.com", 1)
			return strings.TrimRight(raw, "/") + "/main/preview" + ext
		}
	}
	return ""
}

// defaultTitle derives a human title from the directory name: drop the
// talon- prefix, map separators to spaces, Title Case the words.
func defaultTitle(name string) string {
	base := strings.TrimPrefix(strings.TrimPrefix(name, "talon-"), "talon_")
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)

	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
