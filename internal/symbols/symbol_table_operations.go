package symbols

import (
	"errors"
	"fmt"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// ErrScopeClosed is returned when declaring into a scope that has been exited.
var ErrScopeClosed = errors.New("scope is closed")

// DeclarationConflictError reports a second, different annotation for a binding.
type DeclarationConflictError struct {
	Binding  *Binding
	Existing typesystem.Type
	New      typesystem.Type
}

func (e *DeclarationConflictError) Error() string {
	return fmt.Sprintf("%s already declared as %s, cannot redeclare as %s", e.Binding.Name, e.Existing, e.New)
}

// Declare returns the binding for name in scope, creating it on first sight.
func (e *Environment) Declare(scope *Scope, name string, kind BindingKind, node ast.Node) (*Binding, error) {
	if id, ok := scope.names[name]; ok {
		return e.Binding(id), nil
	}
	if scope.closed {
		return nil, fmt.Errorf("declaring %q in %s scope %q: %w", name, scope.Kind, scope.Name, ErrScopeClosed)
	}
	b := e.newBinding(scope, name, kind, node)
	scope.names[name] = b.ID
	scope.order = append(scope.order, b.ID)
	return b, nil
}

func (e *Environment) newBinding(scope *Scope, name string, kind BindingKind, node ast.Node) *Binding {
	b := &Binding{
		ID:    BindingID(len(e.bindings) + 1),
		Name:  name,
		Kind:  kind,
		Scope: scope,
		Node:  node,
	}
	if node != nil {
		b.Location = node.Loc()
	}
	b.Base = b.ID
	e.bindings = append(e.bindings, b)
	return b
}

// SetDeclared records an explicit annotation. A second annotation with a
// different type is a *DeclarationConflictError; the first one is kept.
func (e *Environment) SetDeclared(id BindingID, t typesystem.Type) error {
	b := e.Binding(id)
	if b == nil {
		return fmt.Errorf("unknown binding %d", id)
	}
	if b.Info.Declared != nil {
		if typesystem.Equal(b.Info.Declared, t) {
			return nil
		}
		return &DeclarationConflictError{Binding: b, Existing: b.Info.Declared, New: t}
	}
	b.Info.Declared = t
	b.Info.Confidence = Explicit
	return nil
}

// SetInferred updates the inferred type of a binding without a declaration.
// Declared bindings are left untouched. Reports whether anything changed.
func (e *Environment) SetInferred(id BindingID, t typesystem.Type, conf Confidence) bool {
	b := e.Binding(id)
	if b == nil || b.IsDeclared() {
		return false
	}
	changed := !typesystem.Equal(b.Info.Inferred, t) || b.Info.Confidence != conf
	b.Info.Inferred = t
	b.Info.Confidence = conf
	return changed
}

// MarkUnknown sets confidence Unknown and attaches a warning.
// Declared bindings keep Explicit confidence; the warning is still recorded.
func (e *Environment) MarkUnknown(id BindingID, warning string) {
	b := e.Binding(id)
	if b == nil {
		return
	}
	if !b.IsDeclared() {
		b.Info.Inferred = nil
		b.Info.Confidence = Unknown
	}
	e.AddWarning(id, warning)
}

// AddWarning appends a warning once.
func (e *Environment) AddWarning(id BindingID, warning string) {
	b := e.Binding(id)
	if b == nil || warning == "" {
		return
	}
	for _, w := range b.Info.Warnings {
		if w == warning {
			return
		}
	}
	b.Info.Warnings = append(b.Info.Warnings, warning)
}

// ResetWarnings clears per-pass warnings on every binding.
func (e *Environment) ResetWarnings() {
	for _, b := range e.bindings {
		b.Info.Warnings = nil
	}
}

// AddUsage records a usage site for diagnostics.
func (e *Environment) AddUsage(id BindingID, loc ast.Location) {
	if b := e.Binding(id); b != nil {
		b.Info.UsageSites = append(b.Info.UsageSites, loc)
	}
}

// SetResolution maps a node (identifier or definition) to the binding it refers to.
func (e *Environment) SetResolution(node ast.Node, id BindingID) {
	e.resolution[node] = id
}

// Resolution returns the binding a node refers to.
func (e *Environment) Resolution(node ast.Node) (*Binding, bool) {
	id, ok := e.resolution[node]
	if !ok {
		return nil, false
	}
	return e.Binding(id), true
}
