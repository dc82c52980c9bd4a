package manifest

import (
	"bytes"
	"encoding/json"
	"sort"
)

const (
	// GeneratorName tags manifests produced by this tool. The repository
	// indexer only trusts manifests carrying it.
	GeneratorName = "talon-manifest-generator"

	FileName = "manifest.json"
)

// Dependency is one entry of the dependencies/devDependencies maps, keyed by
// the providing package's name.
type Dependency struct {
	Namespace  string  `json:"namespace"`
	GitHub     string  `json:"github,omitempty"`
	MinVersion Version `json:"min_version"`
}

// Older manifests recorded a dependency as a bare version string. Accept both
// shapes on read; always write the object form.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		v, err := ParseVersion(legacy)
		if err != nil {
			return err
		}
		*d = Dependency{MinVersion: v}
		return nil
	}
	type alias Dependency
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Dependency(a)
	return nil
}

// Manifest is the persisted manifest.json record. Field names and nesting are
// the wire contract the downstream runtime validator depends on; do not
// rename them. Fields the generator does not model are preserved in Extra and
// written back untouched.
type Manifest struct {
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Version     Version         `json:"version"`
	Status      string          `json:"status"`
	Namespace   string          `json:"namespace"`
	GitHub      string          `json:"github"`
	Preview     string          `json:"preview"`
	Author      json.RawMessage `json:"author"`
	Tags        []string        `json:"tags"`
	License     string          `json:"license,omitempty"`
	Platforms   []string        `json:"platforms,omitempty"`
	Requires    []string        `json:"requires,omitempty"`

	Dependencies    map[string]Dependency `json:"dependencies"`
	DevDependencies map[string]Dependency `json:"devDependencies"`
	Contributes     EntityLists           `json:"contributes"`
	Depends         EntityLists           `json:"depends"`

	ValidateDependencies *bool `json:"validateDependencies,omitempty"`

	Generator             string   `json:"_generator"`
	GeneratorVersion      string   `json:"_generatorVersion"`
	RequiresVersionAction bool     `json:"_generatorRequiresVersionAction"`
	StrictNamespace       bool     `json:"_generatorStrictNamespace"`
	FrozenFields          []string `json:"_generatorFrozenFields"`

	// Extra holds owner-authored top-level fields this tool does not model.
	Extra map[string]json.RawMessage `json:"-"`
}

// knownKeys mirrors the json tags above; anything else lands in Extra.
var knownKeys = map[string]bool{
	"name": true, "title": true, "description": true, "version": true,
	"status": true, "namespace": true, "github": true, "preview": true,
	"author": true, "tags": true, "license": true, "platforms": true,
	"requires": true, "dependencies": true, "devDependencies": true,
	"contributes": true, "depends": true, "validateDependencies": true,
	"_generator": true, "_generatorVersion": true,
	"_generatorRequiresVersionAction": true, "_generatorStrictNamespace": true,
	"_generatorFrozenFields": true,
}

type manifestAlias Manifest

func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var a manifestAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Manifest(a)

	for key, val := range raw {
		if knownKeys[key] {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, val); err != nil {
			return err
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[key] = append(json.RawMessage(nil), buf.Bytes()...)
	}
	return nil
}

func (m *Manifest) MarshalJSON() ([]byte, error) {
	a := manifestAlias(*m)
	if a.Author == nil {
		a.Author = json.RawMessage(`""`)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Dependencies == nil {
		a.Dependencies = map[string]Dependency{}
	}
	if a.DevDependencies == nil {
		a.DevDependencies = map[string]Dependency{}
	}
	if a.FrozenFields == nil {
		a.FrozenFields = []string{}
	}
	a.Contributes.Normalize()
	a.Depends.Normalize()

	known, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}

	// Splice unrecognized fields before the closing brace, sorted for
	// deterministic regeneration.
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(known[:len(known)-1])
	for _, k := range keys {
		buf.WriteByte(',')
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(m.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders the manifest exactly as persisted: two-space indented JSON
// with a trailing newline. Output is byte-stable for equal manifests.
func (m *Manifest) Encode() ([]byte, error) {
	compact, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// IsFrozen reports whether the given dotted field path is listed in
// _generatorFrozenFields.
func (m *Manifest) IsFrozen(path string) bool {
	if m == nil {
		return false
	}
	for _, f := range m.FrozenFields {
		if f == path {
			return true
		}
	}
	return false
}
