package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/stubs"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

type analysis struct {
	env   *symbols.Environment
	decls *Declarations
	res   *CollectResult
	store *Store
	sol   *TypeSolution
}

func analyze(t *testing.T, prog *ast.Program) *analysis {
	t.Helper()
	env := symbols.NewEnvironment()
	stubs.Prelude().Register(env, nil)
	decls := CollectAnnotations(prog, env)
	res, err := NewCollector(env).Collect(context.Background(), decls)
	require.NoError(t, err)
	store := NewStore()
	store.AddAll(res.Constraints)
	return &analysis{
		env:   env,
		decls: decls,
		res:   res,
		store: store,
		sol:   Solve(store, env, decls.Graph),
	}
}

// typeOf resolves the first live binding called name.
func (a *analysis) typeOf(t *testing.T, name string) typesystem.Type {
	t.Helper()
	bs := a.env.Find(name)
	require.NotEmpty(t, bs, "no binding %q", name)
	return a.sol.Resolve(bs[0].Var())
}

func (a *analysis) binding(t *testing.T, name string) *symbols.Binding {
	t.Helper()
	bs := a.env.Find(name)
	require.NotEmpty(t, bs, "no binding %q", name)
	return bs[0]
}

func named(name string, args ...ast.Type) *ast.NamedType {
	return ast.Named(name, args...)
}
