package driver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/tyinfer/internal/analyzer"
	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/diagnostics"
	"github.com/funvibe/tyinfer/internal/stubs"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/telemetry"
	"github.com/funvibe/tyinfer/internal/typesystem"
	"github.com/funvibe/tyinfer/internal/validation"
)

func infer(t *testing.T, prog *ast.Program, opts ...Option) *Result {
	t.Helper()
	res, err := Infer(context.Background(), prog, opts...)
	require.NoError(t, err)
	require.True(t, res.State.Halted())
	return res
}

func first(t *testing.T, res *Result, name string) *symbols.Binding {
	t.Helper()
	bs := res.Env.Find(name)
	require.NotEmpty(t, bs, "no binding %q", name)
	return bs[0]
}

func codes(diags []*diagnostics.DiagnosticError) []diagnostics.ErrorCode {
	var out []diagnostics.ErrorCode
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func splitProgram() *ast.Program {
	// x = 5
	// x = "a"
	return ast.Prog(
		ast.Assign("x", ast.Int(5, 1), 1),
		ast.Assign("x", ast.Str("a", 2), 2),
	)
}

func TestInfer_TypeChangingReassignment(t *testing.T) {
	res := infer(t, splitProgram())

	assert.Equal(t, Converged, res.State)
	assert.Equal(t, OutcomeSolved, res.Outcome)
	assert.Empty(t, res.Conflicts())
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []typesystem.Type{typesystem.Int, typesystem.Text}, res.TypeOf("x"))

	xs := res.Env.Find("x")
	require.Len(t, xs, 2)
	assert.Equal(t, "x@0", xs[0].String())
	assert.Equal(t, "x@1", xs[1].String())
	for _, b := range xs {
		assert.Equal(t, symbols.Inferred, b.Info.Confidence)
	}
	require.Len(t, res.Flow.Splits, 1)
	assert.GreaterOrEqual(t, res.Passes, 2)
}

func TestInfer_ParameterFromReturnArithmetic(t *testing.T) {
	// def f(a: int, b) -> int:
	//     return a + b
	res := infer(t, ast.Prog(
		ast.Def("f", []*ast.Param{ast.P("a", ast.Named("int")), ast.P("b", nil)}, ast.Named("int"), 1,
			ast.Return(ast.Bin("+", ast.Ident("a", 2), ast.Ident("b", 2), 2), 2),
		),
	))

	assert.Equal(t, OutcomeSolved, res.Outcome)
	b := first(t, res, "b")
	assert.Equal(t, typesystem.Int, b.Info.Inferred)
	assert.Equal(t, symbols.Inferred, b.Info.Confidence)
	a := first(t, res, "a")
	assert.Equal(t, symbols.Explicit, a.Info.Confidence)
	assert.Nil(t, a.Info.Inferred)
}

func TestInfer_ConflictingCallSites(t *testing.T) {
	// def f(x):
	//     return x
	// f(1)
	// f("s")
	res := infer(t, ast.Prog(
		ast.Def("f", []*ast.Param{ast.P("x", nil)}, nil, 1,
			ast.Return(ast.Ident("x", 2), 2),
		),
		ast.Expr(ast.Call(ast.Ident("f", 3), 3, ast.Int(1, 3)), 3),
		ast.Expr(ast.Call(ast.Ident("f", 4), 4, ast.Str("s", 4)), 4),
	))

	assert.Equal(t, Unsolvable, res.State)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, res.Conflicts(), 1)
	assert.Equal(t, analyzer.Mismatch, res.Conflicts()[0].Kind)
	assert.NotEmpty(t, res.UnsolvedConstraints())

	diags := res.Diagnostics()
	require.NotEmpty(t, diags)
	assert.Equal(t, diagnostics.ErrT002, diags[0].Code)
	assert.Equal(t, 4, diags[0].Location.Line)
	require.Len(t, diags[0].Related, 1)
	assert.Equal(t, 3, diags[0].Related[0].Location.Line)

	x := first(t, res, "x")
	assert.Equal(t, symbols.Unknown, x.Info.Confidence)
	assert.NotEmpty(t, x.Info.Warnings)
	assert.Contains(t, res.Unknown(), x)

	// the signature of f is not trusted either
	f := first(t, res, "f")
	assert.Equal(t, symbols.Unknown, f.Info.Confidence)
	assert.Contains(t, res.Unknown(), f)
}

func TestInfer_ParameterReassignedInBody(t *testing.T) {
	// def f(a):
	//     a = "s"
	//     return a
	// f(1)
	res := infer(t, ast.Prog(
		ast.Def("f", []*ast.Param{ast.P("a", nil)}, nil, 1,
			ast.Assign("a", ast.Str("s", 2), 2),
			ast.Return(ast.Ident("a", 3), 3),
		),
		ast.Expr(ast.Call(ast.Ident("f", 4), 4, ast.Int(1, 4)), 4),
	))

	assert.Equal(t, Converged, res.State)
	assert.Equal(t, OutcomeSolved, res.Outcome)
	assert.Empty(t, res.Conflicts())
	assert.Equal(t, []typesystem.Type{typesystem.Int, typesystem.Text}, res.TypeOf("a"))

	f := first(t, res, "f")
	assert.Equal(t, symbols.Inferred, f.Info.Confidence)
	assert.Equal(t, "(Int) -> Text", f.Info.Type().String())
}

func TestInfer_InfiniteType(t *testing.T) {
	// x = [x]
	res := infer(t, ast.Prog(
		ast.Assign("x", ast.List(1, ast.Ident("x", 1)), 1),
	))

	assert.Equal(t, Unsolvable, res.State)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.NotEmpty(t, res.Conflicts())
	assert.Equal(t, analyzer.InfiniteType, res.Conflicts()[0].Kind)
	assert.Contains(t, codes(res.Diagnostics()), diagnostics.ErrT001)
}

func TestInfer_ConflictInAssignedValue(t *testing.T) {
	// x = 1 + 1.5
	// y = 2
	res := infer(t, ast.Prog(
		ast.Assign("x", ast.Bin("+", ast.Int(1, 1), ast.Float(1.5, 1), 1), 1),
		ast.Assign("y", ast.Int(2, 2), 2),
	))

	assert.Equal(t, Unsolvable, res.State)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, res.Conflicts(), 1)
	cf := res.Conflicts()[0]
	assert.Equal(t, analyzer.Mismatch, cf.Kind)

	x := first(t, res, "x")
	assert.Contains(t, cf.Bindings, x.ID)
	assert.Equal(t, symbols.Unknown, x.Info.Confidence)
	assert.Nil(t, x.Info.Inferred)
	assert.NotEmpty(t, x.Info.Warnings)
	assert.Equal(t, []*symbols.Binding{x}, res.Unknown())

	assert.Equal(t, []typesystem.Type{typesystem.Int}, res.TypeOf("y"))
}

func TestInfer_DeclarationContradictedByObservation(t *testing.T) {
	// x: int = 1, observed as str at runtime
	res := infer(t, ast.Prog(
		ast.AssignTyped("x", ast.Named("int"), ast.Int(1, 1), 1),
	), WithGate(validation.StaticGate{{Name: "x", Type: "str", Line: 1}}))

	assert.Equal(t, Converged, res.State)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Empty(t, res.Conflicts())
	require.Len(t, res.ValidationConflicts(), 1)
	assert.Equal(t, typesystem.Text, res.ValidationConflicts()[0].Observed)

	x := first(t, res, "x")
	assert.Equal(t, typesystem.Int, x.Info.Type())
	assert.Equal(t, symbols.Explicit, x.Info.Confidence)
	assert.Contains(t, codes(res.Diagnostics()), diagnostics.ErrT005)
}

func TestInfer_ObservationTypesUncalledFunction(t *testing.T) {
	// def parse(raw):
	//     return raw
	res := infer(t, ast.Prog(
		ast.Def("parse", []*ast.Param{ast.P("raw", nil)}, nil, 1,
			ast.Return(ast.Ident("raw", 2), 2),
		),
	), WithGate(validation.StaticGate{{Function: "parse", Name: "raw", Type: "str"}}))

	assert.Equal(t, OutcomeSolved, res.Outcome)
	raw := first(t, res, "raw")
	assert.Equal(t, typesystem.Text, raw.Info.Inferred)
	assert.Equal(t, symbols.ExternallyValidated, raw.Info.Confidence)
	require.Len(t, res.Validation.Applied, 1)
}

func TestInfer_ObservationBeatsInference(t *testing.T) {
	// x = 1, observed as str at runtime
	res := infer(t, ast.Prog(
		ast.Assign("x", ast.Int(1, 1), 1),
	), WithGate(validation.StaticGate{{Name: "x", Type: "str"}}))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, res.Conflicts(), 1)
	assert.Equal(t, analyzer.Mismatch, res.Conflicts()[0].Kind)

	x := first(t, res, "x")
	assert.Equal(t, typesystem.Text, x.Info.Inferred)
	assert.Equal(t, symbols.ExternallyValidated, x.Info.Confidence)
}

func TestInfer_Underdetermined(t *testing.T) {
	// def g(v):
	//     return v
	sink := telemetry.NewMemorySink()
	res := infer(t, ast.Prog(
		ast.Def("g", []*ast.Param{ast.P("v", nil)}, nil, 1,
			ast.Return(ast.Ident("v", 2), 2),
		),
	), WithSink(sink))

	assert.Equal(t, Converged, res.State)
	assert.Equal(t, OutcomePartial, res.Outcome)
	v := first(t, res, "v")
	assert.Equal(t, symbols.Unknown, v.Info.Confidence)
	require.NotEmpty(t, v.Info.Warnings)
	assert.Contains(t, v.Info.Warnings[0], "could not be determined")
	assert.Contains(t, codes(res.Warnings), diagnostics.ErrT003)

	events := sink.Events()
	require.NotEmpty(t, events)
	var found bool
	for _, e := range events {
		assert.Equal(t, res.RunID, e.RunID)
		if e.Name == "v" {
			found = true
			assert.Equal(t, "g", e.Function)
			assert.Equal(t, "underdetermined", e.Reason)
			assert.Equal(t, 1, e.Location.Line)
		}
	}
	assert.True(t, found)
}

func TestInfer_Exhausted(t *testing.T) {
	res := infer(t, splitProgram(), WithMaxPasses(1))

	assert.Equal(t, Exhausted, res.State)
	assert.Equal(t, 1, res.Passes)
	assert.Contains(t, codes(res.Warnings), diagnostics.ErrT004)
	for _, b := range res.Env.LiveBindings() {
		if b.Info.Confidence == symbols.Unknown {
			assert.NotEmpty(t, b.Info.Warnings, "%s has no warning", b)
		} else {
			assert.True(t, typesystem.IsConcrete(b.Info.Type()), "%s", b)
		}
	}
}

func TestInfer_Terminates(t *testing.T) {
	programs := map[string]*ast.Program{
		"split": splitProgram(),
		"join": ast.Prog(
			ast.Assign("x", ast.Int(0, 1), 1),
			ast.If(ast.Bool(true, 2), ast.Stmts(ast.Assign("x", ast.Str("a", 3), 3)), nil, 2),
			ast.Assign("y", ast.Ident("x", 4), 4),
		),
		"loop": ast.Prog(
			ast.Assign("total", ast.Int(0, 1), 1),
			ast.While(ast.Bool(true, 2), 2,
				ast.Assign("total", ast.Str("s", 3), 3),
			),
		),
		"empty": ast.Prog(),
	}
	for name, prog := range programs {
		t.Run(name, func(t *testing.T) {
			res := infer(t, prog)
			assert.LessOrEqual(t, res.Passes, config.PassCeiling)
		})
	}
}

func TestInfer_Idempotent(t *testing.T) {
	prog := splitProgram()
	a := infer(t, prog)
	b := infer(t, prog)
	assert.Equal(t, a.State, b.State)
	assert.Equal(t, a.Passes, b.Passes)
	assert.Equal(t, a.TypeOf("x"), b.TypeOf("x"))
	assert.Equal(t, a.Solution.SubstitutionCount, b.Solution.SubstitutionCount)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestInfer_ParallelMatchesSequential(t *testing.T) {
	prog := ast.Prog(
		ast.Def("inc", []*ast.Param{ast.P("n", nil)}, nil, 1,
			ast.Return(ast.Bin("+", ast.Ident("n", 2), ast.Int(1, 2), 2), 2),
		),
		ast.Def("name", nil, nil, 3, ast.Return(ast.Str("tyinfer", 4), 4)),
		ast.Assign("a", ast.Call(ast.Ident("inc", 5), 5, ast.Int(1, 5)), 5),
		ast.Assign("s", ast.Call(ast.Ident("name", 6), 6), 6),
	)
	cfg := config.Default()
	cfg.Parallel = true
	cfg.Workers = 4

	seq := infer(t, prog)
	par := infer(t, prog, WithConfig(cfg))
	assert.Equal(t, OutcomeSolved, par.Outcome)
	assert.Equal(t, seq.TypeOf("a"), par.TypeOf("a"))
	assert.Equal(t, seq.TypeOf("s"), par.TypeOf("s"))
	assert.Equal(t, []typesystem.Type{typesystem.Int}, par.TypeOf("n"))
}

func TestInfer_Stubs(t *testing.T) {
	extra, err := stubs.Parse([]byte(`
version: 1
functions:
  - name: fetch
    signature: "(Text) -> Int"
`), "extra.yaml")
	require.NoError(t, err)

	// n = fetch("u")
	prog := ast.Prog(ast.Assign("n", ast.Call(ast.Ident("fetch", 1), 1, ast.Str("u", 1)), 1))
	res := infer(t, prog, WithStubs(extra))
	assert.Equal(t, OutcomeSolved, res.Outcome)
	assert.Equal(t, []typesystem.Type{typesystem.Int}, res.TypeOf("n"))
}

func TestInfer_ConfiguredStubFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(`
version: 1
functions:
  - name: fetch
    signature: "(Text) -> Float"
`), 0o644))
	cfg, err := config.ParseConfig([]byte("stubs: [extra.yaml]\n"), filepath.Join(dir, "tyinfer.yaml"))
	require.NoError(t, err)

	prog := ast.Prog(ast.Assign("n", ast.Call(ast.Ident("fetch", 1), 1, ast.Str("u", 1)), 1))
	res := infer(t, prog, WithConfig(cfg))
	assert.Equal(t, []typesystem.Type{typesystem.Float}, res.TypeOf("n"))

	cfg, err = config.ParseConfig([]byte("stubs: [missing.yaml]\n"), filepath.Join(dir, "tyinfer.yaml"))
	require.NoError(t, err)
	_, err = Infer(context.Background(), prog, WithConfig(cfg))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInfer_TargetVersionGatesStubs(t *testing.T) {
	// breakpoint()
	prog := ast.Prog(ast.Expr(ast.Call(ast.Ident("breakpoint", 1), 1), 1))

	res := infer(t, prog)
	assert.Equal(t, OutcomeSolved, res.Outcome)
	assert.Empty(t, res.Env.Find("breakpoint"))

	cfg := config.Default()
	cfg.TargetVersion = "3.6"
	res = infer(t, prog, WithConfig(cfg))
	assert.Equal(t, OutcomePartial, res.Outcome)
	bp := first(t, res, "breakpoint")
	assert.Equal(t, symbols.ExternalBinding, bp.Kind)
}

func TestInfer_SQLTelemetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	cfg := config.Default()
	cfg.Telemetry.DSN = path

	res := infer(t, ast.Prog(
		ast.Def("g", []*ast.Param{ast.P("v", nil)}, nil, 1, ast.Return(ast.Ident("v", 2), 2)),
	), WithConfig(cfg))
	require.NotEmpty(t, res.Unknown())

	sink, err := telemetry.OpenSQL(path)
	require.NoError(t, err)
	defer sink.Close()
	events, err := sink.Events(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Len(t, events, len(res.Unknown()))
}

type failingSink struct{}

func (failingSink) Record(context.Context, []telemetry.UnknownTypeEvent) error {
	return errors.New("disk full")
}

func (failingSink) Close() error { return nil }

func TestInfer_SinkFailureIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res, err := Infer(context.Background(), ast.Prog(
		ast.Def("g", []*ast.Param{ast.P("v", nil)}, nil, 1, ast.Return(ast.Ident("v", 2), 2)),
	), WithSink(failingSink{}), WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)

	out := buf.String()
	assert.Contains(t, out, "recording unknown types failed")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "pass complete")
	assert.Contains(t, out, "inference halted")
	assert.Contains(t, out, "run_id="+res.RunID)
}

type brokenGate struct{}

func (brokenGate) Observations(context.Context) ([]validation.ObservedBinding, error) {
	return nil, errors.New("trace unavailable")
}

func TestInfer_InvalidInput(t *testing.T) {
	_, err := Infer(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilProgram)

	_, err = Infer(context.Background(), splitProgram(), WithGate(brokenGate{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation gate: trace unavailable")

	_, err = Infer(context.Background(), splitProgram(),
		WithGate(validation.FileGate{Path: filepath.Join(t.TempDir(), "none.yaml")}))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Infer(ctx, splitProgram())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaxPasses(t *testing.T) {
	assert.Equal(t, config.PassCeiling, New().MaxPasses())
	assert.Equal(t, 3, New(WithMaxPasses(3)).MaxPasses())
	assert.Equal(t, config.PassCeiling, New(WithMaxPasses(50)).MaxPasses())

	cfg := config.Default()
	cfg.MaxPasses = 4
	assert.Equal(t, 4, New(WithConfig(cfg)).MaxPasses())
	assert.Equal(t, 2, New(WithConfig(cfg), WithMaxPasses(2)).MaxPasses())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "FlowSensitize", FlowSensitize.String())
	assert.True(t, Unsolvable.Halted())
	assert.False(t, ExternalValidate.Halted())
	assert.Equal(t, "partial", OutcomePartial.String())
}
