package symbols

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// BindingID identifies one declared name in one lexical scope.
// IDs start at 1 and are never reused.
type BindingID int

type BindingKind int

const (
	VariableBinding BindingKind = iota
	ParameterBinding
	FunctionBinding
	ClassBinding
	FieldBinding
	ExternalBinding // used but never assigned in the unit
)

func (k BindingKind) String() string {
	switch k {
	case ParameterBinding:
		return "parameter"
	case FunctionBinding:
		return "function"
	case ClassBinding:
		return "class"
	case FieldBinding:
		return "field"
	case ExternalBinding:
		return "external"
	default:
		return "variable"
	}
}

// Confidence tags how a binding's type was established.
type Confidence int

const (
	Unknown Confidence = iota
	Inferred
	ExternallyValidated
	Explicit
)

func (c Confidence) String() string {
	switch c {
	case Inferred:
		return "Inferred"
	case ExternallyValidated:
		return "ExternallyValidated"
	case Explicit:
		return "Explicit"
	default:
		return "Unknown"
	}
}

// TypeInfo is the per-binding type record.
// Declared is immutable once set; Inferred and Confidence change across passes.
type TypeInfo struct {
	Declared   typesystem.Type
	Inferred   typesystem.Type
	Confidence Confidence
	UsageSites []ast.Location
	Warnings   []string
}

// Type returns the declared type if present, otherwise the inferred one.
func (ti TypeInfo) Type() typesystem.Type {
	if ti.Declared != nil {
		return ti.Declared
	}
	return ti.Inferred
}

type Binding struct {
	ID       BindingID
	Name     string
	Kind     BindingKind
	Scope    *Scope
	Node     ast.Node // defining node
	Location ast.Location

	// Base is the version-0 binding this one was split from (itself for version 0).
	Base    BindingID
	Version int
	Retired bool

	// Class is the owning class for fields and methods.
	Class string

	Info TypeInfo
}

// Var returns the stable unification variable standing for this binding.
func (b *Binding) Var() typesystem.TVar {
	return typesystem.TVar{Name: fmt.Sprintf("b%d", b.ID)}
}

// IsDeclared reports whether the binding carries an explicit annotation.
func (b *Binding) IsDeclared() bool { return b.Info.Declared != nil }

// Unit returns the name of the inference unit (function) owning the binding.
func (b *Binding) Unit() string {
	if b.Scope == nil {
		return ""
	}
	return b.Scope.Unit
}

func (b *Binding) String() string {
	return fmt.Sprintf("%s@%d", b.Name, b.Version)
}

// Scheme is a possibly generic signature: Params name the rigid TCon
// placeholders in Type that are replaced by fresh variables per use.
type Scheme struct {
	Params []string
	Type   typesystem.Type
}
