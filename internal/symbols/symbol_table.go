// symbols/symbol_table.go - Binding environment entry point
//
// The environment is split into focused files:
// - symbol_table_core.go: BindingID, Binding, TypeInfo, Confidence
// - symbol_table_scopes.go: lexical scopes and name lookup
// - symbol_table_operations.go: declare, resolve, declared/inferred updates
// - symbol_table_signatures.go: write-once function signature table and classes
// - symbol_table_versions.go: flow-sensitive versions and join bindings
// - symbol_table_prelude.go: built-in function schemes and type methods

package symbols

import (
	"sort"

	"github.com/funvibe/tyinfer/internal/ast"
)

// Environment is the single BindingID-indexed store of everything the
// inference core knows about source-level names.
//
// It is mutated only by Pass 1, by the driver between passes and by the
// rebinder. The collector reads it concurrently and must not write to it.
type Environment struct {
	bindings []*Binding // index = BindingID-1
	scopes   []*Scope
	module   *Scope

	scopeOf    map[ast.Node]*Scope
	resolution map[ast.Node]BindingID

	signatures   map[string]*Signature
	sigByBinding map[BindingID]*Signature
	frozen       bool

	classes map[string]*ClassInfo

	versions    map[versionKey]BindingID
	versionsOf  map[BindingID][]BindingID
	joinSources map[BindingID][]BindingID

	builtins    map[string]Scheme
	typeMethods map[string]*TypeMethods
}

// NewEnvironment creates an empty environment with an open module scope.
func NewEnvironment() *Environment {
	e := &Environment{
		scopeOf:      make(map[ast.Node]*Scope),
		resolution:   make(map[ast.Node]BindingID),
		signatures:   make(map[string]*Signature),
		sigByBinding: make(map[BindingID]*Signature),
		classes:      make(map[string]*ClassInfo),
		versions:     make(map[versionKey]BindingID),
		versionsOf:   make(map[BindingID][]BindingID),
		joinSources:  make(map[BindingID][]BindingID),
		builtins:     make(map[string]Scheme),
		typeMethods:  make(map[string]*TypeMethods),
	}
	e.module = e.OpenScope(ScopeModule, "", nil, nil)
	return e
}

// Module returns the module (top-level) scope.
func (e *Environment) Module() *Scope { return e.module }

// Binding returns the binding for id, or nil.
func (e *Environment) Binding(id BindingID) *Binding {
	if id <= 0 || int(id) > len(e.bindings) {
		return nil
	}
	return e.bindings[id-1]
}

// Bindings returns every binding ever created, in ID order.
func (e *Environment) Bindings() []*Binding {
	out := make([]*Binding, len(e.bindings))
	copy(out, e.bindings)
	return out
}

// LiveBindings returns bindings that are not retired, in ID order.
func (e *Environment) LiveBindings() []*Binding {
	var out []*Binding
	for _, b := range e.bindings {
		if !b.Retired {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of bindings created so far.
func (e *Environment) Len() int { return len(e.bindings) }

// Find returns the live bindings with the given source name, sorted by ID.
func (e *Environment) Find(name string) []*Binding {
	var out []*Binding
	for _, b := range e.bindings {
		if b.Name == name && !b.Retired {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
