package analyzer

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// BuildType converts an annotation node into a term. Source spellings
// (int, str, list) are canonicalised; unknown names are user classes.
func BuildType(t ast.Type) (typesystem.Type, error) {
	built, err := buildType(t)
	if err != nil {
		return nil, err
	}
	if err := typesystem.CheckKind(built); err != nil {
		return nil, err
	}
	return built, nil
}

func buildType(t ast.Type) (typesystem.Type, error) {
	switch t := t.(type) {
	case *ast.NamedType:
		name := typesystem.CanonicalName(t.Name)
		if name == "Callable" {
			return buildCallable(t)
		}
		if len(t.Args) == 0 {
			return typesystem.TCon{Name: name}, nil
		}
		args := make([]typesystem.Type, len(t.Args))
		for i, a := range t.Args {
			built, err := buildType(a)
			if err != nil {
				return nil, err
			}
			args[i] = built
		}
		return typesystem.TApp{Constructor: typesystem.TCon{Name: name}, Args: args}, nil
	case *ast.FunctionType:
		params := make([]typesystem.Type, len(t.Parameters))
		for i, p := range t.Parameters {
			built, err := buildType(p)
			if err != nil {
				return nil, err
			}
			params[i] = built
		}
		var ret typesystem.Type = typesystem.None
		if t.ReturnType != nil {
			built, err := buildType(t.ReturnType)
			if err != nil {
				return nil, err
			}
			ret = built
		}
		return typesystem.TFunc{Params: params, ReturnType: ret}, nil
	case nil:
		return nil, fmt.Errorf("missing annotation")
	default:
		return nil, fmt.Errorf("unsupported annotation %T", t)
	}
}

// buildCallable handles Callable[[A, B], R], where the parameter list is
// written as an unnamed NamedType holding the parameters as Args.
func buildCallable(t *ast.NamedType) (typesystem.Type, error) {
	if len(t.Args) != 2 {
		return nil, fmt.Errorf("Callable expects [params, return], got %d arguments", len(t.Args))
	}
	ft := &ast.FunctionType{Location: t.Location, ReturnType: t.Args[1]}
	if params, ok := t.Args[0].(*ast.NamedType); ok && params.Name == "" {
		ft.Parameters = params.Args
	} else {
		ft.Parameters = []ast.Type{t.Args[0]}
	}
	return buildType(ft)
}

// isTupleType reports whether t is a Tuple application.
func isTupleType(t typesystem.Type) (typesystem.TApp, bool) {
	app, ok := t.(typesystem.TApp)
	return app, ok && app.Constructor.Name == config.TupleTypeName
}
