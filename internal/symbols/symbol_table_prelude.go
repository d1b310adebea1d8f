package symbols

import (
	"sort"

	"github.com/funvibe/tyinfer/internal/typesystem"
)

// TypeMethods holds the method schemes of a built-in type constructor.
// Params name the constructor's type parameters as they appear in the
// method signatures (List[T] uses "T").
type TypeMethods struct {
	Name    string
	Params  []string
	Methods map[string]Scheme
}

// DefineBuiltin registers a built-in function scheme. Later definitions
// replace earlier ones, so user stubs can override the prelude.
func (e *Environment) DefineBuiltin(name string, s Scheme) {
	e.builtins[name] = s
}

func (e *Environment) Builtin(name string) (Scheme, bool) {
	s, ok := e.builtins[name]
	return s, ok
}

// BuiltinNames returns the registered built-in names, sorted.
func (e *Environment) BuiltinNames() []string {
	names := make([]string, 0, len(e.builtins))
	for n := range e.builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefineTypeMethods registers or extends the method table of a type.
func (e *Environment) DefineTypeMethods(typeName string, params []string, methods map[string]typesystem.Type, methodParams map[string][]string) {
	tm, ok := e.typeMethods[typeName]
	if !ok {
		tm = &TypeMethods{Name: typeName, Methods: make(map[string]Scheme)}
		e.typeMethods[typeName] = tm
	}
	if len(params) > 0 {
		tm.Params = params
	}
	for name, t := range methods {
		tm.Methods[name] = Scheme{Params: methodParams[name], Type: t}
	}
}

// Method looks up a method of a built-in type. The returned term is
// specialised to the constructor arguments of recv.
func (e *Environment) Method(recv typesystem.Type, name string) (Scheme, bool) {
	ctor := typesystem.ConstructorName(recv)
	tm, ok := e.typeMethods[ctor]
	if !ok {
		return Scheme{}, false
	}
	s, ok := tm.Methods[name]
	if !ok {
		return Scheme{}, false
	}
	if app, isApp := recv.(typesystem.TApp); isApp && len(tm.Params) == len(app.Args) {
		s.Type = typesystem.Instantiate(s.Type, tm.Params, app.Args)
	}
	return s, true
}

// HasTypeMethods reports whether a method table exists for the constructor.
func (e *Environment) HasTypeMethods(ctor string) bool {
	_, ok := e.typeMethods[ctor]
	return ok
}
