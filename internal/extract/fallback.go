package extract

import (
	"regexp"

	"tpack/internal/manifest"
)

// Degraded scan for files that fail structured parsing: recognize dotted
// namespaced identifiers behind known call/access idioms. References only;
// declarations always require the structure-aware match to avoid false
// positives.
var (
	degradedActionRef  = regexp.MustCompile(`\bactions\.(user|edit|core|app|code)\.([a-z_][a-z0-9_]*)`)
	degradedSettingGet = regexp.MustCompile(`\bsettings\.get\s*\(\s*["']([a-z_][a-z0-9_.]*)["']`)
	degradedListKey    = regexp.MustCompile(`\.lists\[\s*["'](user\.[a-z_][a-z0-9_]*)["']\s*\]`)
)

func scanDegraded(content []byte, res *Result) {
	src := string(content)

	for _, m := range degradedActionRef.FindAllStringSubmatch(src, -1) {
		full := m[1] + "." + m[2]
		res.AllActions[full] = true
		res.Depends.Add(manifest.KindActions, full)
	}
	for _, m := range degradedSettingGet.FindAllStringSubmatch(src, -1) {
		res.Depends.Add(manifest.KindSettings, m[1])
	}
	for _, m := range degradedListKey.FindAllStringSubmatch(src, -1) {
		res.Depends.Add(manifest.KindLists, m[1])
	}
}
