package typesystem

import "fmt"

// Unify attempts to find a substitution that makes t1 and t2 equal.
// It enforces strict equality (invariant); there is no implicit widening.
func Unify(t1, t2 Type) (Subst, error) {
	u := NewUnifier()
	if err := u.Unify(t1, t2); err != nil {
		return nil, err
	}
	return u.Substitution(), nil
}

// Bind binds a type variable to a type, performing the occurs check.
func Bind(tv TVar, t Type) (Subst, error) {
	if tVal, ok := t.(TVar); ok && tVal.Name == tv.Name {
		return Subst{}, nil
	}
	if OccursCheck(tv, t) {
		return nil, &UnifyError{Kind: InfiniteType, Left: tv, Right: t, LeftVar: tv.Name}
	}
	return Subst{tv.Name: t}, nil
}

// OccursCheck returns true if tv appears free in t.
func OccursCheck(tv TVar, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == tv.Name {
			return true
		}
	}
	return false
}

type trailEntry struct {
	name string
	prev Type
	had  bool
	bind bool
}

// Unifier owns the substitution built while solving a constraint set.
// Variable chains are resolved to their representative with path
// compression, so repeated lookups are amortised O(1). Every write goes
// through a trail so a failed Unify leaves the substitution untouched.
type Unifier struct {
	subst  Subst
	origin map[string]string
	trail  []trailEntry
	steps  int
}

func NewUnifier() *Unifier {
	return &Unifier{
		subst:  make(Subst),
		origin: make(map[string]string),
	}
}

// Unify extends the substitution so that t1 and t2 become equal.
// On failure the substitution is rolled back and a *UnifyError is returned.
func (u *Unifier) Unify(t1, t2 Type) error {
	mark := len(u.trail)
	steps := u.steps
	if err := u.unify(t1, t2); err != nil {
		u.rollback(mark)
		u.steps = steps
		return err
	}
	return nil
}

// Mark returns a position in the write log, for use with BoundSince.
func (u *Unifier) Mark() int { return len(u.trail) }

// BoundSince returns the variables bound (not merely compressed) after mark.
func (u *Unifier) BoundSince(mark int) []string {
	var names []string
	for _, e := range u.trail[mark:] {
		if e.bind {
			names = append(names, e.name)
		}
	}
	return names
}

// Steps returns the number of variable bindings made so far.
func (u *Unifier) Steps() int { return u.steps }

// Resolve applies the current substitution to t, producing a new term.
func (u *Unifier) Resolve(t Type) Type {
	switch tt := t.(type) {
	case nil:
		return nil
	case TVar:
		r, _ := u.find(tt)
		if rv, ok := r.(TVar); ok {
			return rv
		}
		return u.Resolve(r)
	case TApp:
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = u.Resolve(a)
		}
		return TApp{Constructor: tt.Constructor, Args: args}
	case TFunc:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = u.Resolve(p)
		}
		return TFunc{Params: params, ReturnType: u.Resolve(tt.ReturnType), IsVariadic: tt.IsVariadic}
	default:
		return t
	}
}

// Substitution returns a fully resolved copy of the substitution.
func (u *Unifier) Substitution() Subst {
	out := make(Subst, len(u.subst))
	for name := range u.subst {
		out[name] = u.Resolve(TVar{Name: name})
	}
	return out
}

// Origin returns the variable whose binding supplied the representative of name.
func (u *Unifier) Origin(name string) string {
	if o, ok := u.origin[name]; ok {
		return o
	}
	return name
}

func (u *Unifier) write(name string, t Type, bind bool) {
	prev, had := u.subst[name]
	u.trail = append(u.trail, trailEntry{name: name, prev: prev, had: had, bind: bind})
	u.subst[name] = t
}

func (u *Unifier) rollback(mark int) {
	for i := len(u.trail) - 1; i >= mark; i-- {
		e := u.trail[i]
		if e.had {
			u.subst[e.name] = e.prev
		} else {
			delete(u.subst, e.name)
			delete(u.origin, e.name)
		}
	}
	u.trail = u.trail[:mark]
}

// find returns the representative of t and the variable that was bound to it.
func (u *Unifier) find(t Type) (Type, string) {
	tv, ok := t.(TVar)
	if !ok {
		return t, ""
	}
	cur, ok := u.subst[tv.Name]
	if !ok {
		return tv, ""
	}
	path := []string{tv.Name}
	for {
		cv, ok := cur.(TVar)
		if !ok {
			break
		}
		next, ok := u.subst[cv.Name]
		if !ok {
			break
		}
		path = append(path, cv.Name)
		cur = next
	}
	last := path[len(path)-1]
	for _, name := range path[:len(path)-1] {
		if !Equal(u.subst[name], cur) {
			u.write(name, cur, false)
			u.origin[name] = u.Origin(last)
		}
	}
	return cur, u.Origin(last)
}

func (u *Unifier) unify(a, b Type) *UnifyError {
	aVar, bVar := "", ""
	if tv, ok := a.(TVar); ok {
		aVar = tv.Name
	}
	if tv, ok := b.(TVar); ok {
		bVar = tv.Name
	}
	ra, oa := u.find(a)
	rb, ob := u.find(b)
	if oa != "" {
		aVar = oa
	}
	if ob != "" {
		bVar = ob
	}

	if va, ok := ra.(TVar); ok {
		if vb, ok := rb.(TVar); ok && vb.Name == va.Name {
			return nil
		}
		return u.bind(va, rb)
	}
	if vb, ok := rb.(TVar); ok {
		return u.bind(vb, ra)
	}

	err := u.unifyStructure(ra, rb)
	if err != nil {
		if err.LeftVar == "" {
			err.LeftVar = aVar
		}
		if err.RightVar == "" {
			err.RightVar = bVar
		}
	}
	return err
}

func (u *Unifier) unifyStructure(a, b Type) *UnifyError {
	switch at := a.(type) {
	case TCon:
		bt, ok := b.(TCon)
		if ok && at.Name == bt.Name {
			return nil
		}
		return errMismatch(a, b, "")
	case TApp:
		bt, ok := b.(TApp)
		if !ok || at.Constructor.Name != bt.Constructor.Name {
			return errMismatch(a, b, "")
		}
		if len(at.Args) != len(bt.Args) {
			return errMismatch(a, b, fmt.Sprintf("%d vs %d type arguments", len(at.Args), len(bt.Args)))
		}
		for i := range at.Args {
			if err := u.unify(at.Args[i], bt.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case TFunc:
		bt, ok := b.(TFunc)
		if !ok {
			return errMismatch(a, b, "")
		}
		return u.unifyFunc(at, bt)
	default:
		return errMismatch(a, b, fmt.Sprintf("unknown term %T", a))
	}
}

func (u *Unifier) unifyFunc(f, g TFunc) *UnifyError {
	switch {
	case f.IsVariadic == g.IsVariadic:
		if len(f.Params) != len(g.Params) {
			return errMismatch(f, g, fmt.Sprintf("function parameter count mismatch: %d vs %d", len(f.Params), len(g.Params)))
		}
		for i := range f.Params {
			if err := u.unify(f.Params[i], g.Params[i]); err != nil {
				return err
			}
		}
	case f.IsVariadic:
		if err := u.unifyVariadic(f, g.Params, false); err != nil {
			return err
		}
	default:
		if err := u.unifyVariadic(g, f.Params, true); err != nil {
			return err
		}
	}
	return u.unify(returnOrNone(f.ReturnType), returnOrNone(g.ReturnType))
}

// unifyVariadic matches call arguments against a variadic signature.
// flipped keeps error operands in the caller's left/right order.
func (u *Unifier) unifyVariadic(sig TFunc, args []Type, flipped bool) *UnifyError {
	if len(sig.Params) == 0 {
		return nil
	}
	fixed := sig.Params[:len(sig.Params)-1]
	elem := sig.Params[len(sig.Params)-1]
	if len(args) < len(fixed) {
		return errMismatch(sig, TFunc{Params: args}, fmt.Sprintf("expected at least %d arguments, got %d", len(fixed), len(args)))
	}
	for i, arg := range args {
		param := elem
		if i < len(fixed) {
			param = fixed[i]
		}
		var err *UnifyError
		if flipped {
			err = u.unify(arg, param)
		} else {
			err = u.unify(param, arg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *Unifier) bind(v TVar, t Type) *UnifyError {
	resolved := u.Resolve(t)
	if OccursCheck(v, resolved) {
		return &UnifyError{Kind: InfiniteType, Left: v, Right: resolved, LeftVar: v.Name}
	}
	u.write(v.Name, t, true)
	u.steps++
	return nil
}

func returnOrNone(t Type) Type {
	if t == nil {
		return None
	}
	return t
}
