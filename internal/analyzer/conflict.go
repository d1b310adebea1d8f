package analyzer

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/diagnostics"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

type ConflictKind int

const (
	Mismatch ConflictKind = iota
	InfiniteType
	UnknownField
	ArityMismatch
	JoinConflict
	DeclarationConflict
)

var conflictCodes = map[ConflictKind]diagnostics.ErrorCode{
	Mismatch:            diagnostics.ErrT002,
	InfiniteType:        diagnostics.ErrT001,
	UnknownField:        diagnostics.ErrT007,
	ArityMismatch:       diagnostics.ErrT008,
	JoinConflict:        diagnostics.ErrT006,
	DeclarationConflict: diagnostics.ErrT009,
}

func (k ConflictKind) String() string {
	switch k {
	case InfiniteType:
		return "InfiniteType"
	case UnknownField:
		return "UnknownField"
	case ArityMismatch:
		return "ArityMismatch"
	case JoinConflict:
		return "JoinConflict"
	case DeclarationConflict:
		return "DeclarationConflict"
	default:
		return "Mismatch"
	}
}

// Conflict is a unification failure with both sides' provenance.
// Constraint is the one that failed; Related is the earlier constraint that
// pinned the variable it collided with, when known.
type Conflict struct {
	Kind       ConflictKind
	Constraint *Constraint
	Related    *Constraint
	Left       typesystem.Type
	Right      typesystem.Type
	Detail     string

	// Location/RelatedLocation are filled from the constraints when present.
	Location        ast.Location
	RelatedLocation ast.Location

	// Bindings whose type could not be established because of this conflict.
	Bindings []symbols.BindingID
}

func (c *Conflict) Error() string {
	return c.message()
}

func (c *Conflict) message() string {
	var msg string
	switch c.Kind {
	case InfiniteType:
		msg = fmt.Sprintf("%s occurs in %s", c.Left, c.Right)
	case UnknownField:
		msg = c.Detail
	case DeclarationConflict:
		return c.Detail
	default:
		if c.Left == nil || c.Right == nil {
			return c.Detail
		}
		msg = fmt.Sprintf("%s vs %s", c.Left, c.Right)
		if c.Detail != "" {
			msg += " (" + c.Detail + ")"
		}
	}
	if c.Constraint != nil {
		msg += " in " + c.Constraint.Reason.String()
	}
	return msg
}

// Diagnostic renders the conflict with its dual location.
func (c *Conflict) Diagnostic() *diagnostics.DiagnosticError {
	d := diagnostics.NewError(conflictCodes[c.Kind], c.Location, c.message())
	if c.Related != nil {
		d.WithRelated(c.Related.Location, "type first fixed by "+c.Related.Reason.String())
	} else if !c.RelatedLocation.IsZero() {
		d.WithRelated(c.RelatedLocation, "previous declaration")
	}
	return d
}

func newConflict(kind ConflictKind, c, related *Constraint, left, right typesystem.Type, detail string) *Conflict {
	cf := &Conflict{Kind: kind, Constraint: c, Related: related, Left: left, Right: right, Detail: detail}
	if c != nil {
		cf.Location = c.Location
	}
	if related != nil {
		cf.RelatedLocation = related.Location
	}
	return cf
}
