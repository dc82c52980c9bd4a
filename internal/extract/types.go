package extract

import (
	"tpack/internal/errors"
	"tpack/internal/manifest"
)

// Set is an ordered-unique collection of qualified entity names. Insertion
// order is the order of first sighting; duplicates are dropped.
type Set struct {
	names []string
	seen  map[string]struct{}
}

func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

func (s *Set) Add(name string) {
	if name == "" {
		return
	}
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
}

func (s *Set) Has(name string) bool {
	_, ok := s.seen[name]
	return ok
}

func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Set) Len() int {
	return len(s.names)
}

// Group partitions entity names by kind.
type Group struct {
	kinds map[manifest.Kind]*Set
}

func NewGroup() *Group {
	g := &Group{kinds: make(map[manifest.Kind]*Set, len(manifest.Kinds))}
	for _, k := range manifest.Kinds {
		g.kinds[k] = NewSet()
	}
	return g
}

func (g *Group) Add(kind manifest.Kind, name string) {
	g.kinds[kind].Add(name)
}

func (g *Group) Kind(kind manifest.Kind) *Set {
	return g.kinds[kind]
}

// HasName reports whether any kind contains the name. Self-references are
// satisfied locally no matter which kind declared them.
func (g *Group) HasName(name string) bool {
	for _, k := range manifest.Kinds {
		if g.kinds[k].Has(name) {
			return true
		}
	}
	return false
}

func (g *Group) Total() int {
	n := 0
	for _, k := range manifest.Kinds {
		n += g.kinds[k].Len()
	}
	return n
}

// Result is the outcome of scanning one package's source tree.
type Result struct {
	Contributes *Group
	Depends     *Group

	// Hardware/software requirements detected from source patterns.
	Requires     map[string]bool
	RequiresBeta bool

	// Every action reference seen, including built-ins. Used for
	// requirement detection (tracking.* implies an eye tracker).
	AllActions map[string]bool

	ScriptFiles int
	TalonFiles  int

	Warnings []errors.Warning
}

func newResult() *Result {
	return &Result{
		Contributes: NewGroup(),
		Depends:     NewGroup(),
		Requires:    make(map[string]bool),
		AllActions:  make(map[string]bool),
	}
}
