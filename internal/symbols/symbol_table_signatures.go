package symbols

import (
	"errors"
	"fmt"
	"sort"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// ErrSignaturesFrozen is returned when registering after Pass 1.
var ErrSignaturesFrozen = errors.New("signature table is frozen")

// Signature is the write-once record of a function's parameters and return.
type Signature struct {
	Name    string // qualified, e.g. "Point.move"
	Binding BindingID
	Params  []BindingID

	// Return is the declared return type, or the function's return variable.
	Return         typesystem.Type
	ReturnDeclared bool

	Class string // non-empty for methods
	Node  *ast.FunctionDef
}

// ReturnVar is the unification variable used for an unannotated return.
func ReturnVar(fn BindingID) typesystem.TVar {
	return typesystem.TVar{Name: fmt.Sprintf("r%d", fn)}
}

// Type builds the function term from parameter variables and the return type.
func (s *Signature) Type(e *Environment) typesystem.TFunc {
	params := make([]typesystem.Type, len(s.Params))
	for i, p := range s.Params {
		params[i] = e.Binding(p).Var()
	}
	return typesystem.TFunc{Params: params, ReturnType: s.Return}
}

// BoundType is Type without the receiver, for methods looked up on an instance.
func (s *Signature) BoundType(e *Environment) typesystem.TFunc {
	ft := s.Type(e)
	if s.Class != "" && len(ft.Params) > 0 {
		ft.Params = ft.Params[1:]
	}
	return ft
}

// RegisterSignature adds a signature. Each function is registered once,
// and only before Freeze.
func (e *Environment) RegisterSignature(sig *Signature) error {
	if e.frozen {
		return fmt.Errorf("registering %s: %w", sig.Name, ErrSignaturesFrozen)
	}
	if _, ok := e.signatures[sig.Name]; ok {
		return fmt.Errorf("signature %s already registered", sig.Name)
	}
	e.signatures[sig.Name] = sig
	e.sigByBinding[sig.Binding] = sig
	return nil
}

// Freeze makes the signature table immutable. Reads need no locking afterwards.
func (e *Environment) Freeze() { e.frozen = true }

// Frozen reports whether Freeze was called.
func (e *Environment) Frozen() bool { return e.frozen }

func (e *Environment) Signature(name string) (*Signature, bool) {
	s, ok := e.signatures[name]
	return s, ok
}

// SignatureOf returns the signature of the function bound to id.
func (e *Environment) SignatureOf(id BindingID) (*Signature, bool) {
	if b := e.Binding(id); b != nil {
		id = b.Base
	}
	s, ok := e.sigByBinding[id]
	return s, ok
}

// Signatures returns all signatures sorted by qualified name.
func (e *Environment) Signatures() []*Signature {
	out := make([]*Signature, 0, len(e.signatures))
	for _, s := range e.signatures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ClassInfo describes a user class: its binding and member scope.
type ClassInfo struct {
	Name    string
	Binding BindingID
	Scope   *Scope
}

// Member returns the field or method binding declared in the class body.
func (c *ClassInfo) Member(name string) (BindingID, bool) {
	return c.Scope.Local(name)
}

// Type is the instance type of the class.
func (c *ClassInfo) Type() typesystem.TCon {
	return typesystem.TCon{Name: c.Name}
}

func (e *Environment) DeclareClass(name string, binding BindingID, scope *Scope) *ClassInfo {
	if c, ok := e.classes[name]; ok {
		return c
	}
	c := &ClassInfo{Name: name, Binding: binding, Scope: scope}
	e.classes[name] = c
	return c
}

func (e *Environment) Class(name string) (*ClassInfo, bool) {
	c, ok := e.classes[name]
	return c, ok
}
