package analyzer

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// ConstraintKind represents the kind of constraint
type ConstraintKind int

const (
	Equal             ConstraintKind = iota // Left ~ Right
	Callable                                // Left is a function accepting Right's params, producing Right's return
	HasField                                // Left has member Field of type Right
	NumericCompatible                       // Left and Right are operands of arithmetic Op
)

func (k ConstraintKind) String() string {
	switch k {
	case Callable:
		return "Callable"
	case HasField:
		return "HasField"
	case NumericCompatible:
		return "NumericCompatible"
	default:
		return "Equal"
	}
}

// Tier orders solving: declared facts first, then validated observations,
// then plain inference.
type Tier int

const (
	TierDeclared Tier = iota
	TierValidated
	TierInferred
)

func (t Tier) String() string {
	switch t {
	case TierDeclared:
		return "declared"
	case TierValidated:
		return "validated"
	default:
		return "inferred"
	}
}

// Reason records why a constraint was emitted.
type Reason int

const (
	ReasonAnnotation Reason = iota
	ReasonSignature
	ReasonConstructor
	ReasonAssignment
	ReasonReturn
	ReasonCall
	ReasonArithmetic
	ReasonComparison
	ReasonAttribute
	ReasonIndex
	ReasonIteration
	ReasonMembership
	ReasonElement
	ReasonJoin
	ReasonObservation
)

var reasonNames = map[Reason]string{
	ReasonAnnotation:  "annotation",
	ReasonSignature:   "signature",
	ReasonConstructor: "constructor",
	ReasonAssignment:  "assignment",
	ReasonReturn:      "return",
	ReasonCall:        "call",
	ReasonArithmetic:  "arithmetic",
	ReasonComparison:  "comparison",
	ReasonAttribute:   "attribute access",
	ReasonIndex:       "indexing",
	ReasonIteration:   "iteration",
	ReasonMembership:  "membership test",
	ReasonElement:     "collection element",
	ReasonJoin:        "control-flow join",
	ReasonObservation: "runtime observation",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

// Constraint is an immutable typed relationship between two terms.
type Constraint struct {
	ID    int
	Kind  ConstraintKind
	Left  typesystem.Type
	Right typesystem.Type

	Field string // HasField: member name
	Op    string // NumericCompatible: operator

	// TupleIndex is the literal index of a subscript, or -1.
	TupleIndex int

	Reason   Reason
	Tier     Tier
	Location ast.Location
	Node     ast.Node
	Unit     string            // function whose body produced the constraint
	Binding  symbols.BindingID // binding the constraint concerns, if any
}

func (c *Constraint) String() string {
	switch c.Kind {
	case HasField:
		return fmt.Sprintf("HasField(%s, %s, %s)", c.Left, c.Field, c.Right)
	case NumericCompatible:
		return fmt.Sprintf("NumericCompatible(%s %s %s)", c.Left, c.Op, c.Right)
	default:
		return fmt.Sprintf("%s(%s, %s)", c.Kind, c.Left, c.Right)
	}
}

// Store is the append-only constraint log of one pass.
// It is cleared and rebuilt at the start of every pass.
type Store struct {
	constraints []*Constraint
}

func NewStore() *Store {
	return &Store{}
}

// Add appends c, assigning its ID.
func (s *Store) Add(c *Constraint) *Constraint {
	c.ID = len(s.constraints)
	s.constraints = append(s.constraints, c)
	return c
}

// AddAll appends cs in order.
func (s *Store) AddAll(cs []*Constraint) {
	for _, c := range cs {
		s.Add(c)
	}
}

func (s *Store) Len() int { return len(s.constraints) }

// All returns the constraints in insertion order.
func (s *Store) All() []*Constraint {
	out := make([]*Constraint, len(s.constraints))
	copy(out, s.constraints)
	return out
}

// Reset discards every constraint.
func (s *Store) Reset() { s.constraints = nil }

// Count returns the number of constraints of each kind.
func (s *Store) Count() map[ConstraintKind]int {
	counts := make(map[ConstraintKind]int)
	for _, c := range s.constraints {
		counts[c.Kind]++
	}
	return counts
}
