package extract

import (
	"regexp"
	"strings"

	"tpack/internal/manifest"
)

// Context header patterns (before the '-' separator).
var (
	talonTag     = regexp.MustCompile(`(?m)^\s*(?:and\s+|not\s+)?tag:\s+(user\.[a-z_][a-z0-9_]*)`)
	talonApp     = regexp.MustCompile(`(?m)^\s*(?:and\s+|not\s+)?app:\s+([a-z_][a-z0-9_]*)`)
	talonMode    = regexp.MustCompile(`(?m)^\s*(?:and\s+|not\s+)?mode:\s+([a-z_][a-z0-9_.]*)`)
	talonScope   = regexp.MustCompile(`(?m)^\s*(?:and\s+|not\s+)?scope:\s+(user\.[a-z_][a-z0-9_]*)`)
	talonSetting = regexp.MustCompile(`(?m)^\s+(user\.[a-z_][a-z0-9_]*)\s*=`)
)

// Command body patterns (after the '-' separator).
var (
	talonUserAction    = regexp.MustCompile(`\buser\.([a-z_][a-z0-9_]*)\s*\(`)
	talonActionsUser   = regexp.MustCompile(`\bactions\.user\.([a-z_][a-z0-9_]*)\s*\(`)
	talonCapture       = regexp.MustCompile(`<(user\.[a-z_][a-z0-9_]*)>`)
	talonList          = regexp.MustCompile(`\{(user\.[a-z_][a-z0-9_]*)\}`)
	talonSettingsGet   = regexp.MustCompile(`settings\.get\s*\(\s*["']([^"']+)["']\s*\)`)
	talonRequiresCalls = map[string]*regexp.Regexp{
		"gamepad":    regexp.MustCompile(`\bgamepad\s*\(`),
		"streamDeck": regexp.MustCompile(`\bdeck\s*\(`),
		"parrot":     regexp.MustCompile(`\bparrot\s*\(`),
		"webcam":     regexp.MustCompile(`\bface\s*\(`),
	}
)

// Call patterns anywhere in a talon file that mark the package as needing
// the beta runtime.
var talonBetaPatterns = []string{"parrot(", "face(", "deck("}

func scanTalonSource(content []byte, res *Result) {
	header, body := splitTalonSections(string(content))

	for _, m := range talonTag.FindAllStringSubmatch(header, -1) {
		res.Depends.Add(manifest.KindTags, m[1])
	}
	for _, m := range talonApp.FindAllStringSubmatch(header, -1) {
		res.Depends.Add(manifest.KindApps, m[1])
	}
	for _, m := range talonMode.FindAllStringSubmatch(header, -1) {
		res.Depends.Add(manifest.KindModes, m[1])
	}
	for _, m := range talonScope.FindAllStringSubmatch(header, -1) {
		res.Depends.Add(manifest.KindScopes, m[1])
	}
	for _, m := range talonSetting.FindAllStringSubmatch(header, -1) {
		res.Depends.Add(manifest.KindSettings, m[1])
	}

	for _, m := range talonUserAction.FindAllStringSubmatch(body, -1) {
		res.Depends.Add(manifest.KindActions, "user."+m[1])
	}
	for _, m := range talonActionsUser.FindAllStringSubmatch(body, -1) {
		res.Depends.Add(manifest.KindActions, "user."+m[1])
	}
	for _, m := range talonCapture.FindAllStringSubmatch(body, -1) {
		res.Depends.Add(manifest.KindCaptures, m[1])
	}
	for _, m := range talonList.FindAllStringSubmatch(body, -1) {
		res.Depends.Add(manifest.KindLists, m[1])
	}
	for _, m := range talonSettingsGet.FindAllStringSubmatch(body, -1) {
		res.Depends.Add(manifest.KindSettings, m[1])
	}

	for requirement, pattern := range talonRequiresCalls {
		if pattern.MatchString(body) {
			res.Requires[requirement] = true
		}
	}

	lower := strings.ToLower(string(content))
	for _, p := range talonBetaPatterns {
		if strings.Contains(lower, p) {
			res.RequiresBeta = true
			break
		}
	}
}

// splitTalonSections separates the context header from the command body. A
// file may start directly with the '-' separator (no header) or omit the
// separator entirely (header only).
func splitTalonSections(content string) (header, body string) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == "-" {
			return strings.Join(lines[:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return content, ""
}
