package analyzer

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// Collector walks inference units and emits constraints. It only reads the
// environment, so units can be collected concurrently.
type Collector struct {
	env      *symbols.Environment
	parallel bool
	workers  int
}

type CollectorOption func(*Collector)

// WithParallel collects units on a pool of at most workers goroutines.
func WithParallel(workers int) CollectorOption {
	return func(c *Collector) {
		c.parallel = true
		if workers > 0 {
			c.workers = workers
		}
	}
}

func NewCollector(env *symbols.Environment, opts ...CollectorOption) *Collector {
	c := &Collector{env: env, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectResult is the constraint set of one pass plus the term assigned to
// every expression, assignment target and loop.
type CollectResult struct {
	Constraints []*Constraint
	TypeMap     map[ast.Node]typesystem.Type
}

// Collect emits constraints for every unit. The result is independent of
// scheduling: units are merged back in program order.
func (c *Collector) Collect(ctx context.Context, decls *Declarations) (*CollectResult, error) {
	results := make([]*unitCollector, len(decls.Units))
	for i, u := range decls.Units {
		results[i] = &unitCollector{
			env:    c.env,
			decls:  decls,
			unit:   u,
			prefix: fmt.Sprintf("t%d_", i),
			types:  make(map[ast.Node]typesystem.Type),
		}
	}

	if c.parallel && len(results) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for _, uc := range results {
			uc := uc
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				uc.run()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("collecting constraints: %w", err)
		}
	} else {
		for _, uc := range results {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("collecting constraints: %w", err)
			}
			uc.run()
		}
	}

	res := &CollectResult{TypeMap: make(map[ast.Node]typesystem.Type)}
	for _, uc := range results {
		res.Constraints = append(res.Constraints, uc.out...)
		for n, t := range uc.types {
			res.TypeMap[n] = t
		}
	}
	return res, nil
}

type unitCollector struct {
	env    *symbols.Environment
	decls  *Declarations
	unit   *Unit
	prefix string
	next   int
	out    []*Constraint
	types  map[ast.Node]typesystem.Type

	// target is the binding assigned by the statement being collected.
	// Constraints of its value expression concern it.
	target symbols.BindingID
}

func (uc *unitCollector) fresh() typesystem.TVar {
	uc.next++
	return typesystem.TVar{Name: fmt.Sprintf("%s%d", uc.prefix, uc.next)}
}

func (uc *unitCollector) emit(kind ConstraintKind, left, right typesystem.Type, reason Reason, node ast.Node) *Constraint {
	c := &Constraint{
		Kind:       kind,
		Left:       left,
		Right:      right,
		Reason:     reason,
		Tier:       TierInferred,
		Node:       node,
		Unit:       uc.unit.Name,
		TupleIndex: -1,
		Binding:    uc.target,
	}
	if node != nil {
		c.Location = node.Loc()
	}
	uc.out = append(uc.out, c)
	return c
}

func (uc *unitCollector) run() {
	uc.declared()
	if sig := uc.unit.Signature; sig != nil {
		c := uc.emit(Equal, uc.env.Binding(sig.Binding).Var(), sig.Type(uc.env), ReasonSignature, sig.Node)
		c.Tier = TierDeclared
		c.Binding = sig.Binding
	}
	uc.statements(uc.unit.Body)
	uc.joins()
}

// declared emits the annotation of every binding owned by this unit.
func (uc *unitCollector) declared() {
	for _, s := range uc.env.Scopes() {
		if s.Unit != uc.unit.Name {
			continue
		}
		for _, id := range s.Names() {
			b := uc.env.Binding(id)
			if !b.IsDeclared() {
				continue
			}
			c := uc.emit(Equal, b.Var(), b.Info.Declared, ReasonAnnotation, b.Node)
			c.Tier = TierDeclared
			c.Binding = id
		}
	}
}

// joins ties every control-flow join version to its incoming versions.
func (uc *unitCollector) joins() {
	for _, j := range uc.env.Joins() {
		if j.Unit() != uc.unit.Name {
			continue
		}
		srcs, _ := uc.env.JoinSources(j.ID)
		for _, src := range srcs {
			c := uc.emit(Equal, j.Var(), uc.env.Binding(src).Var(), ReasonJoin, j.Node)
			c.Binding = j.ID
		}
	}
}

func (uc *unitCollector) statements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		uc.statement(stmt)
	}
}

func (uc *unitCollector) statement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		// collected as its own unit
	case *ast.ClassDef:
		uc.classDef(s)
	case *ast.AssignStatement:
		uc.assign(s)
	case *ast.ReturnStatement:
		sig := uc.unit.Signature
		if sig == nil {
			return
		}
		var value typesystem.Type = typesystem.None
		if s.Value != nil {
			value = uc.expr(s.Value)
		}
		uc.emit(Equal, value, sig.Return, ReasonReturn, s)
	case *ast.ExpressionStatement:
		uc.expr(s.Expression)
	case *ast.IfStatement:
		uc.expr(s.Condition)
		uc.statements(s.Then)
		uc.statements(s.Else)
	case *ast.WhileStatement:
		uc.expr(s.Condition)
		uc.statements(s.Body)
	case *ast.ForStatement:
		uc.forStatement(s)
	case *ast.BlockStatement:
		uc.statements(s.Body)
	}
}

func (uc *unitCollector) classDef(cd *ast.ClassDef) {
	cls, ok := uc.env.Resolution(cd)
	if !ok {
		return
	}
	info, ok := uc.env.Class(cd.Name)
	if !ok {
		return
	}
	ctor := typesystem.TFunc{ReturnType: info.Type()}
	if init, ok := uc.env.Signature(symbols.QualifiedName(info.Scope, config.InitMethodName)); ok {
		ctor.Params = init.BoundType(uc.env).Params
	}
	c := uc.emit(Equal, cls.Var(), ctor, ReasonConstructor, cd)
	c.Tier = TierDeclared
	c.Binding = cls.ID
	uc.statements(cd.Body)
}

func (uc *unitCollector) assign(as *ast.AssignStatement) {
	if as.Value == nil {
		if id, ok := as.Target.(*ast.Identifier); ok {
			if b, ok := uc.env.Resolution(id); ok {
				uc.types[id] = b.Var()
			}
		}
		return
	}
	if b, ok := uc.env.Resolution(as.Target); ok {
		uc.target = b.ID
	}
	value := uc.expr(as.Value)
	uc.target = 0
	switch target := as.Target.(type) {
	case *ast.Identifier:
		b, ok := uc.env.Resolution(target)
		if !ok {
			return
		}
		uc.types[target] = b.Var()
		if uc.decls.Redeclared(as) {
			return
		}
		c := uc.emit(Equal, b.Var(), value, ReasonAssignment, as)
		c.Binding = b.ID
	case *ast.AttributeExpression:
		if field, ok := uc.env.Resolution(target); ok {
			uc.types[target] = field.Var()
			if uc.decls.Redeclared(as) {
				return
			}
			c := uc.emit(Equal, field.Var(), value, ReasonAssignment, as)
			c.Binding = field.ID
			return
		}
		obj := uc.expr(target.Object)
		f := uc.fresh()
		hf := uc.emit(HasField, obj, f, ReasonAttribute, target)
		hf.Field = target.Name
		uc.types[target] = f
		uc.emit(Equal, f, value, ReasonAssignment, as)
	case *ast.IndexExpression:
		obj := uc.expr(target.Left)
		idx := uc.expr(target.Index)
		m := uc.fresh()
		hf := uc.emit(HasField, obj, m, ReasonIndex, target)
		hf.Field = config.GetItemMethodName
		uc.emit(Callable, m, typesystem.Func(value, idx), ReasonIndex, as)
		uc.types[target] = value
	}
}

func (uc *unitCollector) forStatement(fs *ast.ForStatement) {
	it := uc.expr(fs.Iterable)
	m := uc.fresh()
	hf := uc.emit(HasField, it, m, ReasonIteration, fs.Iterable)
	hf.Field = config.IterMethodName
	elem := uc.fresh()
	uc.emit(Callable, m, typesystem.Func(elem), ReasonIteration, fs)
	uc.types[fs] = elem
	if fs.Target != nil {
		if b, ok := uc.env.Resolution(fs.Target); ok {
			uc.types[fs.Target] = b.Var()
			c := uc.emit(Equal, b.Var(), elem, ReasonIteration, fs)
			c.Binding = b.ID
		}
	}
	uc.statements(fs.Body)
}
