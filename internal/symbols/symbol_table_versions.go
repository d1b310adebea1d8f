package symbols

import (
	"sort"

	"github.com/funvibe/tyinfer/internal/ast"
)

type versionKey struct {
	base BindingID
	node ast.Node
}

// NewVersion returns the version of base introduced at node, creating it on
// first request. Repeated calls with the same (base, node) return the same
// binding, so re-running the rebinder never allocates new IDs.
func (e *Environment) NewVersion(base BindingID, node ast.Node) *Binding {
	root := e.Binding(base)
	if root == nil {
		return nil
	}
	base = root.Base
	root = e.Binding(base)
	key := versionKey{base: base, node: node}
	if id, ok := e.versions[key]; ok {
		b := e.Binding(id)
		b.Retired = false
		return b
	}
	b := e.newBinding(root.Scope, root.Name, root.Kind, node)
	b.Base = base
	b.Class = root.Class
	b.Version = len(e.versionsOf[base]) + 1
	e.versions[key] = b.ID
	e.versionsOf[base] = append(e.versionsOf[base], b.ID)
	return b
}

// JoinVersion is NewVersion for a control-flow merge point; sources are the
// versions live at the end of each incoming path.
func (e *Environment) JoinVersion(base BindingID, node ast.Node, sources []BindingID) *Binding {
	b := e.NewVersion(base, node)
	if b == nil {
		return nil
	}
	srcs := make([]BindingID, len(sources))
	copy(srcs, sources)
	e.joinSources[b.ID] = srcs
	return b
}

// JoinSources returns the incoming versions merged by a join binding.
func (e *Environment) JoinSources(id BindingID) ([]BindingID, bool) {
	s, ok := e.joinSources[id]
	return s, ok
}

// Joins returns all join bindings that are not retired, in ID order.
func (e *Environment) Joins() []*Binding {
	var out []*Binding
	for id := range e.joinSources {
		if b := e.Binding(id); b != nil && !b.Retired {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Versions returns base followed by its split versions, by version number.
func (e *Environment) Versions(base BindingID) []*Binding {
	root := e.Binding(base)
	if root == nil {
		return nil
	}
	out := []*Binding{e.Binding(root.Base)}
	for _, id := range e.versionsOf[root.Base] {
		out = append(out, e.Binding(id))
	}
	return out
}

// RetireVersions marks every split version not in live as retired.
func (e *Environment) RetireVersions(live map[BindingID]bool) {
	for _, ids := range e.versionsOf {
		for _, id := range ids {
			e.Binding(id).Retired = !live[id]
		}
	}
}

// NumberVersions renumbers the live versions of base in the given order,
// starting at 1, so version numbers follow program order.
func (e *Environment) NumberVersions(base BindingID, ordered []BindingID) {
	for i, id := range ordered {
		if b := e.Binding(id); b != nil && b.Base == base && b.ID != base {
			b.Version = i + 1
		}
	}
}
