package analyzer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// TypeSolution is the result of solving one pass's constraint store.
type TypeSolution struct {
	// Assignments maps each variable with a concrete resolution to its term.
	Assignments map[string]typesystem.Type
	// Unsolved holds constraints that conflicted or stayed underdetermined.
	Unsolved  []*Constraint
	Conflicts []*Conflict
	// SubstitutionCount is the number of variable bindings made.
	SubstitutionCount int
	Subst             typesystem.Subst

	// Consumed are the Equal constraints that unified successfully.
	Consumed []*Constraint

	pinned map[string]*Constraint
}

// Resolve applies the final substitution to t.
func (s *TypeSolution) Resolve(t typesystem.Type) typesystem.Type {
	if t == nil {
		return nil
	}
	return t.Apply(s.Subst)
}

// PinnedBy returns the constraint whose unification first bound the variable.
func (s *TypeSolution) PinnedBy(name string) (*Constraint, bool) {
	c, ok := s.pinned[name]
	return c, ok
}

// ConflictFor returns the first conflict concerning the binding.
func (s *TypeSolution) ConflictFor(id symbols.BindingID) (*Conflict, bool) {
	for _, c := range s.Conflicts {
		for _, b := range c.Bindings {
			if b == id {
				return c, true
			}
		}
	}
	return nil, false
}

type solver struct {
	env    *symbols.Environment
	u      *typesystem.Unifier
	pinned map[string]*Constraint
	fresh  int
	sol    *TypeSolution
}

// Solve unifies the store's constraints in priority order: declared, then
// validated, then inferred; within a tier callee functions come before their
// callers. Constraints whose receiver is still unknown are retried in an
// extra sweep until no progress is made. Every conflict is gathered.
func Solve(store *Store, env *symbols.Environment, graph *CallGraph) *TypeSolution {
	s := &solver{
		env:    env,
		u:      typesystem.NewUnifier(),
		pinned: make(map[string]*Constraint),
		sol:    &TypeSolution{},
	}

	ordered := store.All()
	rank := map[string]int{}
	if graph != nil {
		rank, _ = graph.Order()
	}
	unitRank := func(unit string) int {
		if r, ok := rank[unit]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if ra, rb := unitRank(a.Unit), unitRank(b.Unit); ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})

	var deferred []*Constraint
	for _, c := range ordered {
		if s.process(c) {
			deferred = append(deferred, c)
		}
	}
	for progress := true; progress && len(deferred) > 0; {
		progress = false
		var next []*Constraint
		for _, c := range deferred {
			if s.process(c) {
				next = append(next, c)
			} else {
				progress = true
			}
		}
		deferred = next
	}
	s.sol.Unsolved = append(s.sol.Unsolved, deferred...)
	sort.SliceStable(s.sol.Unsolved, func(i, j int) bool { return s.sol.Unsolved[i].ID < s.sol.Unsolved[j].ID })

	s.sol.Subst = s.u.Substitution()
	s.sol.SubstitutionCount = s.u.Steps()
	s.sol.Assignments = make(map[string]typesystem.Type)
	for name, t := range s.sol.Subst {
		if typesystem.IsConcrete(t) {
			s.sol.Assignments[name] = t
		}
	}
	s.sol.pinned = s.pinned
	return s.sol
}

// process handles one constraint and reports whether it must be deferred.
func (s *solver) process(c *Constraint) bool {
	switch c.Kind {
	case Equal:
		if s.unify(c, c.Left, c.Right) {
			s.sol.Consumed = append(s.sol.Consumed, c)
		}
	case Callable:
		s.solveCallable(c)
	case HasField:
		recv := s.u.Resolve(c.Left)
		if _, ok := recv.(typesystem.TVar); ok {
			return true
		}
		member, err := s.member(recv, c)
		if err != nil {
			s.fail(newConflict(UnknownField, c, s.pinnedByTerm(c.Left, c), recv, nil, err.Error()), c, nil)
			return false
		}
		s.unify(c, c.Right, member)
	case NumericCompatible:
		if !s.unify(c, c.Left, c.Right) {
			return false
		}
		operand := s.u.Resolve(c.Left)
		if _, ok := operand.(typesystem.TVar); ok {
			return true
		}
		if !numericOperand(c.Op, operand) {
			s.fail(newConflict(Mismatch, c, s.pinnedByTerm(c.Left, c), operand, nil,
				fmt.Sprintf("operator %s is not defined for %s", c.Op, operand)), c, nil)
		}
	}
	return false
}

func (s *solver) solveCallable(c *Constraint) {
	call, ok := c.Right.(typesystem.TFunc)
	if !ok {
		s.unify(c, c.Left, c.Right)
		return
	}
	switch fn := s.u.Resolve(c.Left).(type) {
	case typesystem.TVar:
		s.unify(c, c.Left, call)
	case typesystem.TFunc:
		if detail := arityMismatch(fn, call); detail != "" {
			s.fail(newConflict(ArityMismatch, c, s.pinnedByTerm(c.Left, c), fn, call, detail), c, nil)
			return
		}
		s.unify(c, c.Left, call)
	default:
		s.fail(newConflict(Mismatch, c, s.pinnedByTerm(c.Left, c), fn, call, fmt.Sprintf("%s is not callable", fn)), c, nil)
	}
}

func arityMismatch(fn, call typesystem.TFunc) string {
	switch {
	case !fn.IsVariadic && len(fn.Params) != len(call.Params):
		return fmt.Sprintf("expected %d arguments, got %d", len(fn.Params), len(call.Params))
	case fn.IsVariadic && len(fn.Params) > 0 && len(call.Params) < len(fn.Params)-1:
		return fmt.Sprintf("expected at least %d arguments, got %d", len(fn.Params)-1, len(call.Params))
	}
	return ""
}

// member returns the type of recv.field: user class members first, then
// built-in type methods, then positional tuple access.
func (s *solver) member(recv typesystem.Type, c *Constraint) (typesystem.Type, error) {
	if con, ok := recv.(typesystem.TCon); ok {
		if cls, ok := s.env.Class(con.Name); ok {
			id, ok := cls.Member(c.Field)
			if !ok {
				return nil, fmt.Errorf("%s has no field %q", con.Name, c.Field)
			}
			b := s.env.Binding(id)
			if b.Kind == symbols.FunctionBinding {
				if sig, ok := s.env.SignatureOf(id); ok {
					return sig.BoundType(s.env), nil
				}
			}
			return b.Var(), nil
		}
	}
	if tuple, ok := isTupleType(recv); ok && c.Field == config.GetItemMethodName && c.TupleIndex >= 0 {
		if c.TupleIndex >= len(tuple.Args) {
			return nil, fmt.Errorf("tuple index %d out of range for %s", c.TupleIndex, recv)
		}
		return typesystem.Func(tuple.Args[c.TupleIndex], typesystem.Int), nil
	}
	if scheme, ok := s.env.Method(recv, c.Field); ok {
		return s.instantiate(scheme), nil
	}
	return nil, fmt.Errorf("%s has no field %q", recv, c.Field)
}

func (s *solver) instantiate(scheme symbols.Scheme) typesystem.Type {
	if len(scheme.Params) == 0 {
		return scheme.Type
	}
	args := make([]typesystem.Type, len(scheme.Params))
	for i := range scheme.Params {
		s.fresh++
		args[i] = typesystem.TVar{Name: "s" + strconv.Itoa(s.fresh)}
	}
	return typesystem.Instantiate(scheme.Type, scheme.Params, args)
}

// numericOperand reports whether op accepts operands of type t.
func numericOperand(op string, t typesystem.Type) bool {
	if typesystem.IsNumeric(t) {
		return true
	}
	name := typesystem.ConstructorName(t)
	switch op {
	case "+":
		return name == config.TextTypeName || name == config.BytesTypeName || name == config.ListTypeName
	case "<", "<=", ">", ">=":
		return name == config.TextTypeName || name == config.BytesTypeName
	}
	return false
}

// unify unifies a and b on behalf of c, recording which variables c pinned.
// On failure a conflict is recorded and false is returned.
func (s *solver) unify(c *Constraint, a, b typesystem.Type) bool {
	mark := s.u.Mark()
	err := s.u.Unify(a, b)
	if err == nil {
		for _, name := range s.u.BoundSince(mark) {
			if _, ok := s.pinned[name]; !ok {
				s.pinned[name] = c
			}
		}
		return true
	}
	var ue *typesystem.UnifyError
	if !errors.As(err, &ue) {
		s.fail(newConflict(Mismatch, c, nil, a, b, err.Error()), c, nil)
		return false
	}
	kind := Mismatch
	switch {
	case ue.Kind == typesystem.InfiniteType:
		kind = InfiniteType
	case c.Reason == ReasonJoin:
		kind = JoinConflict
	}
	related := s.pinnedVar(ue.LeftVar, c)
	if related == nil {
		related = s.pinnedVar(ue.RightVar, c)
	}
	vars := []string{ue.LeftVar, ue.RightVar}
	if kind == JoinConflict {
		// the incoming versions keep their own types
		vars = vars[:1]
	}
	s.fail(newConflict(kind, c, related, ue.Left, ue.Right, ue.Detail), c, vars)
	return false
}

func (s *solver) pinnedVar(name string, c *Constraint) *Constraint {
	if name == "" {
		return nil
	}
	if p, ok := s.pinned[name]; ok && p != c {
		return p
	}
	return nil
}

// pinnedByTerm finds the constraint that fixed a variable term, if t is one.
func (s *solver) pinnedByTerm(t typesystem.Type, c *Constraint) *Constraint {
	if tv, ok := t.(typesystem.TVar); ok {
		return s.pinnedVar(s.u.Origin(tv.Name), c)
	}
	return nil
}

// fail records a conflict and the bindings it leaves without a type.
// Bindings already fixed by a declared or validated constraint keep their
// type and are not listed.
func (s *solver) fail(cf *Conflict, c *Constraint, vars []string) {
	seen := make(map[symbols.BindingID]bool)
	add := func(id symbols.BindingID) {
		b := s.env.Binding(id)
		if b == nil || seen[id] || b.IsDeclared() {
			return
		}
		if p, ok := s.pinned[b.Var().Name]; ok && p.Tier != TierInferred {
			return
		}
		seen[id] = true
		cf.Bindings = append(cf.Bindings, id)
	}
	if c.Binding != 0 {
		add(c.Binding)
	}
	for _, v := range vars {
		if v == "" {
			continue
		}
		if id, ok := BindingOfVar(v); ok {
			add(id)
		}
		// bindings whose variable chain runs through v
		for _, b := range s.env.Bindings() {
			name := b.Var().Name
			s.u.Resolve(b.Var())
			if name != v && s.u.Origin(name) == v {
				add(b.ID)
			}
		}
	}
	s.sol.Conflicts = append(s.sol.Conflicts, cf)
	s.sol.Unsolved = append(s.sol.Unsolved, c)
}

// BindingOfVar maps a binding variable name ("b12") back to its BindingID.
func BindingOfVar(name string) (symbols.BindingID, bool) {
	rest, ok := strings.CutPrefix(name, "b")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return symbols.BindingID(n), true
}
