package manifest

// Kind identifies one of the entity categories a package can declare or use.
// The values double as the JSON keys of the contributes/depends sections.
type Kind string

const (
	KindApps     Kind = "apps"
	KindTags     Kind = "tags"
	KindModes    Kind = "modes"
	KindScopes   Kind = "scopes"
	KindSettings Kind = "settings"
	KindCaptures Kind = "captures"
	KindLists    Kind = "lists"
	KindActions  Kind = "actions"
)

// Kinds lists all entity kinds in wire order.
var Kinds = []Kind{
	KindApps, KindTags, KindModes, KindScopes,
	KindSettings, KindCaptures, KindLists, KindActions,
}

// EntityLists is one generated section (contributes or depends): an ordered
// list of qualified entity names per kind. Every kind is always emitted, as
// an empty list when the package has none.
type EntityLists struct {
	Apps     []string `json:"apps"`
	Tags     []string `json:"tags"`
	Modes    []string `json:"modes"`
	Scopes   []string `json:"scopes"`
	Settings []string `json:"settings"`
	Captures []string `json:"captures"`
	Lists    []string `json:"lists"`
	Actions  []string `json:"actions"`
}

func (e *EntityLists) ByKind(k Kind) []string {
	switch k {
	case KindApps:
		return e.Apps
	case KindTags:
		return e.Tags
	case KindModes:
		return e.Modes
	case KindScopes:
		return e.Scopes
	case KindSettings:
		return e.Settings
	case KindCaptures:
		return e.Captures
	case KindLists:
		return e.Lists
	case KindActions:
		return e.Actions
	}
	return nil
}

func (e *EntityLists) SetKind(k Kind, names []string) {
	if names == nil {
		names = []string{}
	}
	switch k {
	case KindApps:
		e.Apps = names
	case KindTags:
		e.Tags = names
	case KindModes:
		e.Modes = names
	case KindScopes:
		e.Scopes = names
	case KindSettings:
		e.Settings = names
	case KindCaptures:
		e.Captures = names
	case KindLists:
		e.Lists = names
	case KindActions:
		e.Actions = names
	}
}

func (e *EntityLists) Total() int {
	n := 0
	for _, k := range Kinds {
		n += len(e.ByKind(k))
	}
	return n
}

// Normalize replaces nil slices with empty ones so every kind key is present
// on the wire.
func (e *EntityLists) Normalize() {
	for _, k := range Kinds {
		if e.ByKind(k) == nil {
			e.SetKind(k, []string{})
		}
	}
}
