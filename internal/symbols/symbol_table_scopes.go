package symbols

import "github.com/funvibe/tyinfer/internal/ast"

type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeClass
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	case ScopeBlock:
		return "block"
	default:
		return "module"
	}
}

// Scope is a lexical frame owning its BindingIDs exclusively.
type Scope struct {
	ID     int
	Kind   ScopeKind
	Name   string
	Parent *Scope
	Node   ast.Node

	// Unit is the qualified name of the function whose body this scope
	// belongs to ("" for module level and class bodies).
	Unit string

	names  map[string]BindingID
	order  []BindingID
	closed bool
}

// OpenScope creates a child scope of parent. Function scopes start a new
// inference unit; other scopes inherit the parent's.
func (e *Environment) OpenScope(kind ScopeKind, name string, parent *Scope, node ast.Node) *Scope {
	s := &Scope{
		ID:     len(e.scopes),
		Kind:   kind,
		Name:   name,
		Parent: parent,
		Node:   node,
		names:  make(map[string]BindingID),
	}
	if parent != nil {
		s.Unit = parent.Unit
	}
	if kind == ScopeFunction {
		s.Unit = QualifiedName(parent, name)
	}
	e.scopes = append(e.scopes, s)
	if node != nil {
		e.scopeOf[node] = s
	}
	return s
}

// CloseScope marks the scope as exited. Its bindings stay addressable by ID
// but no new names may be declared in it.
func (e *Environment) CloseScope(s *Scope) { s.closed = true }

// ScopeOf returns the scope opened for a function, class or block node.
func (e *Environment) ScopeOf(node ast.Node) (*Scope, bool) {
	s, ok := e.scopeOf[node]
	return s, ok
}

// Scopes returns all scopes in creation order.
func (e *Environment) Scopes() []*Scope {
	out := make([]*Scope, len(e.scopes))
	copy(out, e.scopes)
	return out
}

// Local returns the binding declared for name directly in this scope.
func (s *Scope) Local(name string) (BindingID, bool) {
	id, ok := s.names[name]
	return id, ok
}

// Names returns the scope's bindings in declaration order.
func (s *Scope) Names() []BindingID {
	out := make([]BindingID, len(s.order))
	copy(out, s.order)
	return out
}

// Closed reports whether CloseScope was called.
func (s *Scope) Closed() bool { return s.closed }

// Lookup resolves name from scope outwards. Class bodies are only visible
// from the class scope itself, not from methods nested in it.
func (e *Environment) Lookup(scope *Scope, name string) (*Binding, bool) {
	for s, first := scope, true; s != nil; s, first = s.Parent, false {
		if s.Kind == ScopeClass && !first {
			continue
		}
		if id, ok := s.names[name]; ok {
			return e.Binding(id), true
		}
	}
	return nil, false
}

// QualifiedName joins the enclosing function/class names with dots.
func QualifiedName(parent *Scope, name string) string {
	var parts []string
	for s := parent; s != nil; s = s.Parent {
		if s.Kind == ScopeFunction || s.Kind == ScopeClass {
			parts = append(parts, s.Name)
		}
	}
	q := ""
	for i := len(parts) - 1; i >= 0; i-- {
		q += parts[i] + "."
	}
	return q + name
}
