package typesystem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/tyinfer/internal/config"
)

// Type is the interface for all type terms.
// A term is a concrete constant (TCon), a unification variable (TVar),
// or a composite built from a constructor (TApp, TFunc).
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
	Kind() Kind
}

// TVar represents a unification variable (e.g. 'b12', 't3_7').
type TVar struct {
	Name string
}

func (t TVar) String() string { return t.Name }

func (t TVar) Kind() Kind { return Star }

func (t TVar) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TVar) FreeTypeVariables() []TVar {
	return []TVar{t}
}

// TCon represents a type constant (Int, Text, a user class) or a bare constructor (List).
type TCon struct {
	Name    string
	KindVal Kind
}

func (t TCon) Kind() Kind {
	if t.KindVal != nil {
		return t.KindVal
	}
	if k, ok := builtinKinds[t.Name]; ok {
		return k
	}
	return Star
}

func (t TCon) String() string { return t.Name }

func (t TCon) Apply(s Subst) Type {
	return t
}

func (t TCon) FreeTypeVariables() []TVar { return nil }

// TApp is a constructor applied to arguments: List[Int], Dict[Text, b3].
type TApp struct {
	Constructor TCon
	Args        []Type
}

func (t TApp) Kind() Kind { return Star }

func (t TApp) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", t.Constructor.Name, strings.Join(args, ", "))
}

func (t TApp) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TApp) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TFunc is the function-of composite.
// A variadic function with no parameters accepts any arguments unchecked;
// a variadic function with parameters unifies extra arguments with the last one.
type TFunc struct {
	Params     []Type
	ReturnType Type
	IsVariadic bool
}

func (t TFunc) Kind() Kind { return Star }

func (t TFunc) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	if t.IsVariadic {
		params = append(params, "...")
	}
	ret := "None"
	if t.ReturnType != nil {
		ret = t.ReturnType.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), ret)
}

func (t TFunc) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TFunc) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, p := range t.Params {
		vars = append(vars, p.FreeTypeVariables()...)
	}
	if t.ReturnType != nil {
		vars = append(vars, t.ReturnType.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// applyWithCycleCheck applies a substitution, never following a variable
// twice on the same path. Acyclic substitutions never hit the guard.
func applyWithCycleCheck(t Type, s Subst, visited map[string]bool) Type {
	if t == nil {
		return nil
	}
	switch typ := t.(type) {
	case TVar:
		if visited[typ.Name] {
			return typ
		}
		replacement, ok := s[typ.Name]
		if !ok {
			return typ
		}
		if tv, ok := replacement.(TVar); ok && tv.Name == typ.Name {
			return typ
		}
		visited[typ.Name] = true
		res := applyWithCycleCheck(replacement, s, visited)
		delete(visited, typ.Name)
		return res
	case TCon:
		return typ
	case TApp:
		args := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			args[i] = applyWithCycleCheck(a, s, visited)
		}
		return TApp{Constructor: typ.Constructor, Args: args}
	case TFunc:
		params := make([]Type, len(typ.Params))
		for i, p := range typ.Params {
			params[i] = applyWithCycleCheck(p, s, visited)
		}
		return TFunc{
			Params:     params,
			ReturnType: applyWithCycleCheck(typ.ReturnType, s, visited),
			IsVariadic: typ.IsVariadic,
		}
	default:
		return t.Apply(s)
	}
}

// Subst is a mapping from unification variable names to terms.
type Subst map[string]Type

// Compose returns s1 ∘ s2: s2 is applied first, then s1.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v.Apply(s1)
	}
	for k, v := range s1 {
		if _, ok := subst[k]; !ok {
			subst[k] = v
		}
	}
	return subst
}

// Keys returns the bound variable names in sorted order.
func (s Subst) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueTVars(vars []TVar) []TVar {
	seen := make(map[string]bool, len(vars))
	out := vars[:0:0]
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	return out
}

// IsConcrete reports whether t contains no unification variables.
func IsConcrete(t Type) bool {
	return t != nil && len(t.FreeTypeVariables()) == 0
}

// Equal reports structural equality of two terms.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch at := a.(type) {
	case TVar:
		bt, ok := b.(TVar)
		return ok && at.Name == bt.Name
	case TCon:
		bt, ok := b.(TCon)
		return ok && at.Name == bt.Name
	case TApp:
		bt, ok := b.(TApp)
		if !ok || at.Constructor.Name != bt.Constructor.Name || len(at.Args) != len(bt.Args) {
			return false
		}
		for i := range at.Args {
			if !Equal(at.Args[i], bt.Args[i]) {
				return false
			}
		}
		return true
	case TFunc:
		bt, ok := b.(TFunc)
		if !ok || at.IsVariadic != bt.IsVariadic || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !Equal(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return Equal(at.ReturnType, bt.ReturnType)
	}
	return false
}

// Concrete built-in types.
var (
	Int   = TCon{Name: config.IntTypeName}
	Float = TCon{Name: config.FloatTypeName}
	Bool  = TCon{Name: config.BoolTypeName}
	Text  = TCon{Name: config.TextTypeName}
	Bytes = TCon{Name: config.BytesTypeName}
	None  = TCon{Name: config.NoneTypeName}
)

// ListOf builds List[elem].
func ListOf(elem Type) TApp {
	return TApp{Constructor: TCon{Name: config.ListTypeName}, Args: []Type{elem}}
}

// DictOf builds Dict[key, value].
func DictOf(key, value Type) TApp {
	return TApp{Constructor: TCon{Name: config.DictTypeName}, Args: []Type{key, value}}
}

// SetOf builds Set[elem].
func SetOf(elem Type) TApp {
	return TApp{Constructor: TCon{Name: config.SetTypeName}, Args: []Type{elem}}
}

// OptionalOf builds Optional[elem].
func OptionalOf(elem Type) TApp {
	return TApp{Constructor: TCon{Name: config.OptionalTypeName}, Args: []Type{elem}}
}

// TupleOf builds Tuple[elems...].
func TupleOf(elems ...Type) TApp {
	return TApp{Constructor: TCon{Name: config.TupleTypeName}, Args: elems}
}

// Func builds a non-variadic function term.
func Func(ret Type, params ...Type) TFunc {
	return TFunc{Params: params, ReturnType: ret}
}

// IsNumeric reports whether t is Int or Float.
func IsNumeric(t Type) bool {
	c, ok := t.(TCon)
	return ok && (c.Name == config.IntTypeName || c.Name == config.FloatTypeName)
}

// ConstructorName extracts the constructor name from a concrete or composite term.
func ConstructorName(t Type) string {
	switch tt := t.(type) {
	case TCon:
		return tt.Name
	case TApp:
		return tt.Constructor.Name
	case TFunc:
		return config.FuncTypeName
	default:
		return ""
	}
}
