package typesystem

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/config"
)

// Kind represents the "type of a type".
// * (Star) is the kind of proper types (Int, List[Int]).
// * -> * is the kind of constructors (List, Optional).
type Kind interface {
	String() string
	Equal(Kind) bool
}

// KStar represents the kind of a value type (*).
type KStar struct{}

func (k KStar) String() string { return "*" }
func (k KStar) Equal(other Kind) bool {
	if _, ok := other.(KVariadic); ok {
		return true
	}
	_, ok := other.(KStar)
	return ok
}

// KVariadic is the kind of constructors taking any number of arguments (Tuple).
type KVariadic struct{}

func (k KVariadic) String() string        { return "*..." }
func (k KVariadic) Equal(other Kind) bool { return true }

// KArrow represents a constructor kind (k1 -> k2).
type KArrow struct {
	Left  Kind
	Right Kind
}

func (k KArrow) String() string {
	return fmt.Sprintf("(%s -> %s)", k.Left.String(), k.Right.String())
}

func (k KArrow) Equal(other Kind) bool {
	if _, ok := other.(KVariadic); ok {
		return true
	}
	o, ok := other.(KArrow)
	if !ok {
		return false
	}
	return k.Left.Equal(o.Left) && k.Right.Equal(o.Right)
}

var Star Kind = KStar{}
var Variadic Kind = KVariadic{}

// MakeArrow creates an N-ary arrow: MakeArrow(Star, Star, Star) is * -> * -> *.
func MakeArrow(args ...Kind) Kind {
	if len(args) == 0 {
		return Star
	}
	if len(args) == 1 {
		return args[0]
	}
	return KArrow{Left: args[0], Right: MakeArrow(args[1:]...)}
}

// Arity returns the number of arguments a constructor of kind k expects,
// or -1 for variadic constructors.
func Arity(k Kind) int {
	switch kk := k.(type) {
	case KVariadic:
		return -1
	case KArrow:
		return 1 + Arity(kk.Right)
	default:
		return 0
	}
}

var builtinKinds map[string]Kind

func init() {
	builtinKinds = make(map[string]Kind)
	arrow1 := MakeArrow(Star, Star)
	arrow2 := MakeArrow(Star, Star, Star)

	builtinKinds[config.ListTypeName] = arrow1
	builtinKinds[config.SetTypeName] = arrow1
	builtinKinds[config.OptionalTypeName] = arrow1
	builtinKinds[config.DictTypeName] = arrow2
	builtinKinds[config.TupleTypeName] = Variadic
}

// IsConstructor reports whether name is a built-in constructor taking arguments.
func IsConstructor(name string) bool {
	k, ok := builtinKinds[name]
	return ok && Arity(k) != 0
}

// CheckKind verifies that every constructor in t is applied to the number of
// arguments its kind requires.
func CheckKind(t Type) error {
	switch tt := t.(type) {
	case TCon:
		if n := Arity(tt.Kind()); n > 0 {
			return fmt.Errorf("constructor %s expects %d type arguments, got 0", tt.Name, n)
		}
	case TApp:
		n := Arity(tt.Constructor.Kind())
		if n == 0 {
			return fmt.Errorf("type %s does not take type arguments", tt.Constructor.Name)
		}
		if n > 0 && n != len(tt.Args) {
			return fmt.Errorf("constructor %s expects %d type arguments, got %d", tt.Constructor.Name, n, len(tt.Args))
		}
		for _, a := range tt.Args {
			if err := CheckKind(a); err != nil {
				return err
			}
		}
	case TFunc:
		for _, p := range tt.Params {
			if err := CheckKind(p); err != nil {
				return err
			}
		}
		if tt.ReturnType != nil {
			return CheckKind(tt.ReturnType)
		}
	}
	return nil
}
