package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/diagnostics"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

func TestSolve_ParameterInferredFromOperator(t *testing.T) {
	// def f(a: int, b) -> int:
	//     return a + b
	prog := ast.Prog(
		ast.Def("f", []*ast.Param{ast.P("a", named("int")), ast.P("b", nil)}, named("int"), 1,
			ast.Return(ast.Bin("+", ast.Ident("a", 2), ast.Ident("b", 2), 2), 2),
		),
	)
	a := analyze(t, prog)

	require.Empty(t, a.sol.Conflicts)
	assert.Equal(t, typesystem.Int, a.typeOf(t, "b"))
	assert.Equal(t, typesystem.Int, a.typeOf(t, "a"))

	sig, ok := a.env.Signature("f")
	require.True(t, ok)
	assert.Equal(t, "(Int, Int) -> Int", a.sol.Resolve(sig.Type(a.env)).String())
}

func TestSolve_ConflictingCallSites(t *testing.T) {
	// def f(x):
	//     return x
	// f(1)
	// f("s")
	prog := ast.Prog(
		ast.Def("f", []*ast.Param{ast.P("x", nil)}, nil, 1,
			ast.Return(ast.Ident("x", 2), 2),
		),
		ast.Expr(ast.Call(ast.Ident("f", 3), 3, ast.Int(1, 3)), 3),
		ast.Expr(ast.Call(ast.Ident("f", 4), 4, ast.Str("s", 4)), 4),
	)
	a := analyze(t, prog)

	require.Len(t, a.sol.Conflicts, 1)
	cf := a.sol.Conflicts[0]
	assert.Equal(t, Mismatch, cf.Kind)
	assert.Equal(t, 4, cf.Location.Line)
	require.NotNil(t, cf.Related)
	assert.Equal(t, 3, cf.RelatedLocation.Line)
	assert.Equal(t, ReasonCall, cf.Related.Reason)

	x := a.binding(t, "x")
	assert.Contains(t, cf.Bindings, x.ID)
	got, ok := a.sol.ConflictFor(x.ID)
	require.True(t, ok)
	assert.Same(t, cf, got)

	// the first call keeps its resolution
	assert.Equal(t, typesystem.Int, a.typeOf(t, "x"))
	assert.Contains(t, a.sol.Unsolved, cf.Constraint)
}

func TestSolve_ConflictDiagnosticHasBothLocations(t *testing.T) {
	prog := ast.Prog(
		ast.Def("f", []*ast.Param{ast.P("x", nil)}, nil, 1,
			ast.Return(ast.Ident("x", 2), 2),
		),
		ast.Expr(ast.Call(ast.Ident("f", 3), 3, ast.Int(1, 3)), 3),
		ast.Expr(ast.Call(ast.Ident("f", 4), 4, ast.Str("s", 4)), 4),
	)
	a := analyze(t, prog)
	require.Len(t, a.sol.Conflicts, 1)

	d := a.sol.Conflicts[0].Diagnostic()
	assert.Equal(t, diagnostics.ErrT002, d.Code)
	assert.Equal(t, 4, d.Location.Line)
	require.Len(t, d.Related, 1)
	assert.Equal(t, 3, d.Related[0].Location.Line)
	assert.Equal(t, "type first fixed by call", d.Related[0].Message)
}

func TestSolve_SelfReferentialList(t *testing.T) {
	// x = [x]
	prog := ast.Prog(
		ast.Assign("x", ast.List(1, ast.Ident("x", 1)), 1),
	)
	a := analyze(t, prog)

	require.Len(t, a.sol.Conflicts, 1)
	cf := a.sol.Conflicts[0]
	assert.Equal(t, InfiniteType, cf.Kind)
	assert.Contains(t, cf.Bindings, a.binding(t, "x").ID)
	assert.Equal(t, diagnostics.ErrT001, cf.Diagnostic().Code)
}

func TestSolve_OccursCheckOnRawConstraint(t *testing.T) {
	x := typesystem.TVar{Name: "x"}
	store := NewStore()
	store.Add(&Constraint{Kind: Equal, Left: x, Right: typesystem.ListOf(x), Tier: TierInferred, TupleIndex: -1})

	sol := Solve(store, symbols.NewEnvironment(), nil)

	require.Len(t, sol.Conflicts, 1)
	assert.Equal(t, InfiniteType, sol.Conflicts[0].Kind)
	assert.Equal(t, 0, sol.SubstitutionCount)
	assert.Empty(t, sol.Subst)
}

func TestSolve_DeclaredTypeIsNeverOverwritten(t *testing.T) {
	// x: int = "a"
	prog := ast.Prog(
		ast.AssignTyped("x", named("int"), ast.Str("a", 1), 1),
	)
	a := analyze(t, prog)

	require.Len(t, a.sol.Conflicts, 1)
	cf := a.sol.Conflicts[0]
	assert.Equal(t, Mismatch, cf.Kind)
	require.NotNil(t, cf.Related)
	assert.Equal(t, ReasonAnnotation, cf.Related.Reason)
	assert.Empty(t, cf.Bindings)
	assert.Equal(t, typesystem.Int, a.typeOf(t, "x"))
}

func TestSolve_RedeclarationIsReportedOnce(t *testing.T) {
	// x: int = 1
	// x: str = "a"
	prog := ast.Prog(
		ast.AssignTyped("x", named("int"), ast.Int(1, 1), 1),
		ast.AssignTyped("x", named("str"), ast.Str("a", 2), 2),
	)
	a := analyze(t, prog)

	require.Len(t, a.decls.Conflicts, 1)
	assert.Equal(t, DeclarationConflict, a.decls.Conflicts[0].Kind)
	assert.Empty(t, a.sol.Conflicts)
	assert.Equal(t, typesystem.Int, a.typeOf(t, "x"))
}

func TestSolve_ValueConflictConcernsAssignedName(t *testing.T) {
	// x = 1 + 1.5
	prog := ast.Prog(
		ast.Assign("x", ast.Bin("+", ast.Int(1, 1), ast.Float(1.5, 1), 1), 1),
	)
	a := analyze(t, prog)

	require.Len(t, a.sol.Conflicts, 1)
	cf := a.sol.Conflicts[0]
	assert.Equal(t, Mismatch, cf.Kind)
	assert.Equal(t, ReasonArithmetic, cf.Constraint.Reason)
	assert.Equal(t, []symbols.BindingID{a.binding(t, "x").ID}, cf.Bindings)
}

func TestSolve_ClassMembers(t *testing.T) {
	// class Point:
	//     def __init__(self, x: int):
	//         self.x = x
	//     def norm(self) -> int:
	//         return self.x * 2
	// p = Point(3)
	// n = p.norm()
	// y = p.x
	prog := ast.Prog(
		ast.Class("Point", 1,
			ast.Def("__init__", []*ast.Param{ast.P("self", nil), ast.P("x", named("int"))}, nil, 2,
				ast.AssignTo(ast.Attr(ast.Ident("self", 3), "x", 3), ast.Ident("x", 3), 3),
			),
			ast.Def("norm", []*ast.Param{ast.P("self", nil)}, named("int"), 4,
				ast.Return(ast.Bin("*", ast.Attr(ast.Ident("self", 5), "x", 5), ast.Int(2, 5), 5), 5),
			),
		),
		ast.Assign("p", ast.Call(ast.Ident("Point", 6), 6, ast.Int(3, 6)), 6),
		ast.Assign("n", ast.Call(ast.Attr(ast.Ident("p", 7), "norm", 7), 7), 7),
		ast.Assign("y", ast.Attr(ast.Ident("p", 8), "x", 8), 8),
	)
	a := analyze(t, prog)

	require.Empty(t, a.sol.Conflicts)
	assert.Equal(t, typesystem.TCon{Name: "Point"}, a.typeOf(t, "p"))
	assert.Equal(t, typesystem.Int, a.typeOf(t, "n"))
	assert.Equal(t, typesystem.Int, a.typeOf(t, "y"))

	cls, ok := a.env.Class("Point")
	require.True(t, ok)
	field, ok := cls.Member("x")
	require.True(t, ok)
	assert.Equal(t, typesystem.Int, a.sol.Resolve(a.env.Binding(field).Var()))
}

func TestSolve_UnknownField(t *testing.T) {
	prog := ast.Prog(
		ast.Class("Box", 1,
			ast.AssignTyped("size", named("int"), ast.Int(0, 2), 2),
		),
		ast.Assign("b", ast.Call(ast.Ident("Box", 3), 3), 3),
		ast.Assign("z", ast.Attr(ast.Ident("b", 4), "missing", 4), 4),
	)
	a := analyze(t, prog)

	require.Len(t, a.sol.Conflicts, 1)
	cf := a.sol.Conflicts[0]
	assert.Equal(t, UnknownField, cf.Kind)
	assert.Equal(t, 4, cf.Location.Line)
	assert.Contains(t, cf.Error(), `has no field "missing"`)
	assert.Equal(t, diagnostics.ErrT007, cf.Diagnostic().Code)
}

func TestSolve_ArityMismatch(t *testing.T) {
	prog := ast.Prog(
		ast.Def("g", []*ast.Param{ast.P("a", nil)}, nil, 1,
			ast.Return(ast.Ident("a", 2), 2),
		),
		ast.Expr(ast.Call(ast.Ident("g", 3), 3, ast.Int(1, 3), ast.Int(2, 3)), 3),
	)
	a := analyze(t, prog)

	require.Len(t, a.sol.Conflicts, 1)
	assert.Equal(t, ArityMismatch, a.sol.Conflicts[0].Kind)
	assert.Contains(t, a.sol.Conflicts[0].Detail, "expected 1 arguments, got 2")
}

func TestSolve_NumericOperators(t *testing.T) {
	t.Run("bool operands", func(t *testing.T) {
		prog := ast.Prog(
			ast.Assign("flag", ast.Bool(true, 1), 1),
			ast.Assign("z", ast.Bin("-", ast.Ident("flag", 2), ast.Ident("flag", 2), 2), 2),
		)
		a := analyze(t, prog)
		require.Len(t, a.sol.Conflicts, 1)
		assert.Equal(t, Mismatch, a.sol.Conflicts[0].Kind)
		assert.Contains(t, a.sol.Conflicts[0].Detail, "operator - is not defined for Bool")
	})

	t.Run("text concatenation", func(t *testing.T) {
		prog := ast.Prog(
			ast.Assign("s", ast.Bin("+", ast.Str("a", 1), ast.Str("b", 1), 1), 1),
		)
		a := analyze(t, prog)
		require.Empty(t, a.sol.Conflicts)
		assert.Equal(t, typesystem.Text, a.typeOf(t, "s"))
	})

	t.Run("no implicit widening", func(t *testing.T) {
		prog := ast.Prog(
			ast.Assign("f", ast.Bin("+", ast.Int(1, 1), ast.Float(2.5, 1), 1), 1),
		)
		a := analyze(t, prog)
		require.Len(t, a.sol.Conflicts, 1)
		assert.Equal(t, Mismatch, a.sol.Conflicts[0].Kind)
	})
}

func TestSolve_Builtins(t *testing.T) {
	// n = len([1, 2])
	// s = str(n)
	// total = 0
	// for i in range(10):
	//     total = total + i
	prog := ast.Prog(
		ast.Assign("n", ast.Call(ast.Ident("len", 1), 1, ast.List(1, ast.Int(1, 1), ast.Int(2, 1))), 1),
		ast.Assign("s", ast.Call(ast.Ident("str", 2), 2, ast.Ident("n", 2)), 2),
		ast.Assign("total", ast.Int(0, 3), 3),
		ast.For("i", ast.Call(ast.Ident("range", 4), 4, ast.Int(10, 4)), 4,
			ast.Assign("total", ast.Bin("+", ast.Ident("total", 5), ast.Ident("i", 5), 5), 5),
		),
	)
	a := analyze(t, prog)

	require.Empty(t, a.sol.Conflicts)
	assert.Equal(t, typesystem.Int, a.typeOf(t, "n"))
	assert.Equal(t, typesystem.Text, a.typeOf(t, "s"))
	assert.Equal(t, typesystem.Int, a.typeOf(t, "i"))
	assert.Equal(t, typesystem.Int, a.typeOf(t, "total"))
}

func TestSolve_Subscripts(t *testing.T) {
	// d = {"a": 1}
	// v = d["a"]
	// t = (1, "a")
	// s = t[1]
	// ok = 1 in [1, 2]
	dict := &ast.DictLiteral{Location: ast.At(1), Keys: []ast.Expression{ast.Str("a", 1)}, Values: []ast.Expression{ast.Int(1, 1)}}
	prog := ast.Prog(
		ast.Assign("d", dict, 1),
		ast.Assign("v", ast.Index(ast.Ident("d", 2), ast.Str("a", 2), 2), 2),
		ast.Assign("t", ast.Tuple(3, ast.Int(1, 3), ast.Str("a", 3)), 3),
		ast.Assign("s", ast.Index(ast.Ident("t", 4), ast.Int(1, 4), 4), 4),
		ast.Assign("ok", ast.Bin("in", ast.Int(1, 5), ast.List(5, ast.Int(1, 5), ast.Int(2, 5)), 5), 5),
	)
	a := analyze(t, prog)

	require.Empty(t, a.sol.Conflicts)
	assert.Equal(t, typesystem.DictOf(typesystem.Text, typesystem.Int), a.typeOf(t, "d"))
	assert.Equal(t, typesystem.Int, a.typeOf(t, "v"))
	assert.Equal(t, typesystem.Text, a.typeOf(t, "s"))
	assert.Equal(t, typesystem.Bool, a.typeOf(t, "ok"))
}

func TestSolve_TupleIndexOutOfRange(t *testing.T) {
	prog := ast.Prog(
		ast.Assign("t", ast.Tuple(1, ast.Int(1, 1)), 1),
		ast.Assign("s", ast.Index(ast.Ident("t", 2), ast.Int(3, 2), 2), 2),
	)
	a := analyze(t, prog)

	require.Len(t, a.sol.Conflicts, 1)
	assert.Equal(t, UnknownField, a.sol.Conflicts[0].Kind)
	assert.Contains(t, a.sol.Conflicts[0].Detail, "tuple index 3 out of range")
}

func TestSolve_MutualRecursion(t *testing.T) {
	// def is_even(n: int) -> bool:
	//     return is_odd(n)
	// def is_odd(m):
	//     return is_even(m)
	prog := ast.Prog(
		ast.Def("is_even", []*ast.Param{ast.P("n", named("int"))}, named("bool"), 1,
			ast.Return(ast.Call(ast.Ident("is_odd", 2), 2, ast.Ident("n", 2)), 2),
		),
		ast.Def("is_odd", []*ast.Param{ast.P("m", nil)}, nil, 3,
			ast.Return(ast.Call(ast.Ident("is_even", 4), 4, ast.Ident("m", 4)), 4),
		),
	)
	a := analyze(t, prog)

	require.Empty(t, a.sol.Conflicts)
	assert.Equal(t, typesystem.Int, a.typeOf(t, "m"))

	sig, ok := a.env.Signature("is_odd")
	require.True(t, ok)
	assert.Equal(t, typesystem.Bool, a.sol.Resolve(sig.Return))

	_, recursive := a.decls.Graph.Order()
	assert.True(t, recursive["is_even"])
	assert.True(t, recursive["is_odd"])
}

func TestSolve_DeferredReceiver(t *testing.T) {
	// the attribute constraint is emitted before its receiver is known
	recv := typesystem.TVar{Name: "r"}
	field := typesystem.TVar{Name: "f"}
	env := symbols.NewEnvironment()
	env.DefineTypeMethods("Text", nil, map[string]typesystem.Type{
		"upper": typesystem.Func(typesystem.Text),
	}, nil)

	store := NewStore()
	store.Add(&Constraint{Kind: HasField, Left: recv, Right: field, Field: "upper", Tier: TierInferred, TupleIndex: -1})
	store.Add(&Constraint{Kind: Equal, Left: recv, Right: typesystem.Text, Tier: TierInferred, TupleIndex: -1})

	sol := Solve(store, env, nil)

	require.Empty(t, sol.Conflicts)
	require.Empty(t, sol.Unsolved)
	assert.Equal(t, "() -> Text", sol.Resolve(field).String())
}

func TestSolve_UnderdeterminedIsUnsolved(t *testing.T) {
	store := NewStore()
	c := store.Add(&Constraint{Kind: HasField, Left: typesystem.TVar{Name: "r"}, Right: typesystem.TVar{Name: "f"},
		Field: "name", Tier: TierInferred, TupleIndex: -1})

	sol := Solve(store, symbols.NewEnvironment(), nil)

	assert.Empty(t, sol.Conflicts)
	assert.Equal(t, []*Constraint{c}, sol.Unsolved)
}

func TestSolve_TierOrder(t *testing.T) {
	// an inferred constraint added first still loses to a declared one
	x := typesystem.TVar{Name: "x"}
	store := NewStore()
	store.Add(&Constraint{Kind: Equal, Left: x, Right: typesystem.Text, Tier: TierInferred, TupleIndex: -1})
	store.Add(&Constraint{Kind: Equal, Left: x, Right: typesystem.Int, Tier: TierDeclared, TupleIndex: -1})

	sol := Solve(store, symbols.NewEnvironment(), nil)

	require.Len(t, sol.Conflicts, 1)
	assert.Equal(t, TierInferred, sol.Conflicts[0].Constraint.Tier)
	assert.Equal(t, typesystem.Int, sol.Resolve(x))
	p, ok := sol.PinnedBy("x")
	require.True(t, ok)
	assert.Equal(t, TierDeclared, p.Tier)
}

func TestSolve_Idempotent(t *testing.T) {
	prog := ast.Prog(
		ast.Def("f", []*ast.Param{ast.P("x", nil)}, nil, 1,
			ast.Return(ast.Ident("x", 2), 2),
		),
		ast.Expr(ast.Call(ast.Ident("f", 3), 3, ast.Int(1, 3)), 3),
		ast.Expr(ast.Call(ast.Ident("f", 4), 4, ast.Str("s", 4)), 4),
		ast.Assign("n", ast.Call(ast.Ident("len", 5), 5, ast.List(5, ast.Int(1, 5))), 5),
	)
	a := analyze(t, prog)
	again := Solve(a.store, a.env, a.decls.Graph)

	assert.Equal(t, a.sol.Subst, again.Subst)
	assert.Equal(t, a.sol.SubstitutionCount, again.SubstitutionCount)
	require.Len(t, again.Conflicts, len(a.sol.Conflicts))
	for i := range again.Conflicts {
		assert.Equal(t, a.sol.Conflicts[i].Constraint.ID, again.Conflicts[i].Constraint.ID)
	}
}

func TestSolve_ConsumedConstraintsHold(t *testing.T) {
	prog := ast.Prog(
		ast.Assign("total", ast.Int(0, 1), 1),
		ast.For("i", ast.Call(ast.Ident("range", 2), 2, ast.Int(10, 2)), 2,
			ast.Assign("total", ast.Bin("+", ast.Ident("total", 3), ast.Ident("i", 3), 3), 3),
		),
		ast.Assign("xs", ast.List(4, ast.Ident("total", 4)), 4),
		ast.Assign("bad", ast.Bin("+", ast.Ident("total", 5), ast.Str("a", 5), 5), 5),
	)
	a := analyze(t, prog)
	require.NotEmpty(t, a.sol.Consumed)

	for _, c := range a.sol.Consumed {
		l, r := a.sol.Resolve(c.Left), a.sol.Resolve(c.Right)
		assert.True(t, typesystem.Equal(l, r), "%s: %s vs %s", c, l, r)
	}
}
