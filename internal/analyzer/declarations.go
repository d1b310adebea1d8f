package analyzer

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// Unit is one independently collectable body: the module top level or a
// single function/method.
type Unit struct {
	Name      string
	Node      ast.Node // *ast.Program or *ast.FunctionDef
	Scope     *symbols.Scope
	Body      []ast.Statement
	Signature *symbols.Signature // nil for the module unit
}

// Declarations is the output of Pass 1.
type Declarations struct {
	Units     []*Unit
	Graph     *CallGraph
	Conflicts []*Conflict

	// redeclared holds assignments whose annotation contradicts an earlier one.
	redeclared map[ast.Node]bool
}

// Redeclared reports whether the annotation of assignment n was rejected as
// a redeclaration. Its conflict is already recorded.
func (d *Declarations) Redeclared(n ast.Node) bool { return d.redeclared[n] }

// Unit returns the unit with the given name.
func (d *Declarations) Unit(name string) (*Unit, bool) {
	for _, u := range d.Units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// CollectAnnotations is Pass 1: it declares every name, records explicit
// annotations and registers function signatures. No solving happens here.
// The signature table is frozen on return.
func CollectAnnotations(program *ast.Program, env *symbols.Environment) *Declarations {
	d := &declarer{
		env:   env,
		decls: &Declarations{Graph: NewCallGraph(), redeclared: make(map[ast.Node]bool)},
	}
	module := &Unit{Name: ModuleUnit, Node: program, Scope: env.Module(), Body: program.Statements}
	d.decls.Units = append(d.decls.Units, module)
	d.decls.Graph.AddNode(ModuleUnit)

	d.declareStatements(program.Statements, env.Module(), nil)
	d.resolveStatements(program.Statements, env.Module(), ModuleUnit)

	for _, s := range env.Scopes() {
		env.CloseScope(s)
	}
	env.Freeze()
	return d.decls
}

type declarer struct {
	env   *symbols.Environment
	decls *Declarations
}

// --- phase 1: declarations ---

func (d *declarer) declareStatements(stmts []ast.Statement, scope *symbols.Scope, method *symbols.Signature) {
	for _, stmt := range stmts {
		d.declareStatement(stmt, scope, method)
	}
}

func (d *declarer) declareStatement(stmt ast.Statement, scope *symbols.Scope, method *symbols.Signature) {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		d.declareFunction(s, scope)
	case *ast.ClassDef:
		d.declareClass(s, scope)
	case *ast.AssignStatement:
		d.declareTarget(s, scope, method)
	case *ast.ForStatement:
		if s.Target != nil {
			d.declareName(scope, s.Target, nil)
		}
		d.declareStatements(s.Body, scope, method)
	case *ast.IfStatement:
		d.declareStatements(s.Then, scope, method)
		d.declareStatements(s.Else, scope, method)
	case *ast.WhileStatement:
		d.declareStatements(s.Body, scope, method)
	case *ast.BlockStatement:
		block := d.env.OpenScope(symbols.ScopeBlock, "", scope, s)
		d.declareStatements(s.Body, block, method)
	}
}

func (d *declarer) declareFunction(fd *ast.FunctionDef, scope *symbols.Scope) {
	fn, err := d.env.Declare(scope, fd.Name, symbols.FunctionBinding, fd)
	if err != nil {
		return
	}
	d.env.SetResolution(fd, fn.ID)
	if scope.Kind == symbols.ScopeClass {
		fn.Class = scope.Name
	}

	fs := d.env.OpenScope(symbols.ScopeFunction, fd.Name, scope, fd)
	sig := &symbols.Signature{Name: fs.Unit, Binding: fn.ID, Class: fn.Class, Node: fd}
	for i, p := range fd.Params {
		pb, err := d.env.Declare(fs, p.Name, symbols.ParameterBinding, p)
		if err != nil {
			continue
		}
		d.env.SetResolution(p, pb.ID)
		sig.Params = append(sig.Params, pb.ID)
		switch {
		case p.Annotation != nil:
			d.declareType(pb, p.Annotation, p.Loc())
		case i == 0 && sig.Class != "":
			// receiver
			_ = d.env.SetDeclared(pb.ID, typesystem.TCon{Name: sig.Class})
		}
	}
	sig.Return = symbols.ReturnVar(fn.ID)
	if fd.ReturnType != nil {
		if rt, err := BuildType(fd.ReturnType); err != nil {
			d.badAnnotation(fn, fd.ReturnType.Loc(), err)
		} else {
			sig.Return = rt
			sig.ReturnDeclared = true
		}
	}
	if err := d.env.RegisterSignature(sig); err != nil {
		d.decls.Conflicts = append(d.decls.Conflicts, &Conflict{
			Kind:     DeclarationConflict,
			Location: fd.Loc(),
			Detail:   err.Error(),
			Bindings: []symbols.BindingID{fn.ID},
		})
		return
	}
	d.decls.Units = append(d.decls.Units, &Unit{Name: sig.Name, Node: fd, Scope: fs, Body: fd.Body, Signature: sig})
	d.decls.Graph.AddNode(sig.Name)

	var recv *symbols.Signature
	if sig.Class != "" && len(sig.Params) > 0 {
		recv = sig
	}
	d.declareStatements(fd.Body, fs, recv)
}

func (d *declarer) declareClass(cd *ast.ClassDef, scope *symbols.Scope) {
	cls, err := d.env.Declare(scope, cd.Name, symbols.ClassBinding, cd)
	if err != nil {
		return
	}
	d.env.SetResolution(cd, cls.ID)
	cs := d.env.OpenScope(symbols.ScopeClass, cd.Name, scope, cd)
	d.env.DeclareClass(cd.Name, cls.ID, cs)
	d.declareStatements(cd.Body, cs, nil)
}

func (d *declarer) declareTarget(as *ast.AssignStatement, scope *symbols.Scope, method *symbols.Signature) {
	switch target := as.Target.(type) {
	case *ast.Identifier:
		if d.declareName(scope, target, as.Annotation) {
			d.decls.redeclared[as] = true
		}
	case *ast.AttributeExpression:
		recv, ok := target.Object.(*ast.Identifier)
		if !ok || method == nil {
			return
		}
		self := d.env.Binding(method.Params[0])
		if recv.Value != self.Name {
			return
		}
		cls, ok := d.env.Class(method.Class)
		if !ok {
			return
		}
		field, err := d.env.Declare(cls.Scope, target.Name, symbols.FieldBinding, target)
		if err != nil {
			return
		}
		field.Class = cls.Name
		d.env.SetResolution(target, field.ID)
		d.env.AddUsage(field.ID, target.Loc())
		if as.Annotation != nil && d.declareType(field, as.Annotation, as.Loc()) {
			d.decls.redeclared[as] = true
		}
	}
}

// declareName reports whether annotation was rejected as a redeclaration.
func (d *declarer) declareName(scope *symbols.Scope, id *ast.Identifier, annotation ast.Type) bool {
	kind := symbols.VariableBinding
	if scope.Kind == symbols.ScopeClass {
		kind = symbols.FieldBinding
	}
	b, err := d.env.Declare(scope, id.Value, kind, id)
	if err != nil {
		return false
	}
	if kind == symbols.FieldBinding {
		b.Class = scope.Name
	}
	d.env.SetResolution(id, b.ID)
	d.env.AddUsage(b.ID, id.Loc())
	if annotation != nil {
		return d.declareType(b, annotation, id.Loc())
	}
	return false
}

// declareType reports whether b already carried a different annotation.
func (d *declarer) declareType(b *symbols.Binding, annotation ast.Type, loc ast.Location) bool {
	t, err := BuildType(annotation)
	if err != nil {
		d.badAnnotation(b, loc, err)
		return false
	}
	if err := d.env.SetDeclared(b.ID, t); err != nil {
		d.decls.Conflicts = append(d.decls.Conflicts, &Conflict{
			Kind:            DeclarationConflict,
			Left:            b.Info.Declared,
			Right:           t,
			Location:        loc,
			RelatedLocation: b.Location,
			Detail:          err.Error(),
			Bindings:        []symbols.BindingID{b.ID},
		})
		return true
	}
	return false
}

func (d *declarer) badAnnotation(b *symbols.Binding, loc ast.Location, err error) {
	d.decls.Conflicts = append(d.decls.Conflicts, &Conflict{
		Kind:     ArityMismatch,
		Location: loc,
		Detail:   fmt.Sprintf("invalid annotation for %s: %v", b.Name, err),
		Bindings: []symbols.BindingID{b.ID},
	})
}

// --- phase 2: uses and call edges ---

func (d *declarer) resolveStatements(stmts []ast.Statement, scope *symbols.Scope, unit string) {
	for _, stmt := range stmts {
		d.resolveStatement(stmt, scope, unit)
	}
}

func (d *declarer) resolveStatement(stmt ast.Statement, scope *symbols.Scope, unit string) {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		fs, ok := d.env.ScopeOf(s)
		if !ok {
			return
		}
		d.resolveStatements(s.Body, fs, fs.Unit)
	case *ast.ClassDef:
		cs, ok := d.env.ScopeOf(s)
		if !ok {
			return
		}
		d.resolveStatements(s.Body, cs, unit)
	case *ast.AssignStatement:
		d.resolveExpr(s.Value, scope, unit)
		switch target := s.Target.(type) {
		case *ast.AttributeExpression:
			d.resolveExpr(target.Object, scope, unit)
		case *ast.IndexExpression:
			d.resolveExpr(target, scope, unit)
		}
	case *ast.ReturnStatement:
		d.resolveExpr(s.Value, scope, unit)
	case *ast.ExpressionStatement:
		d.resolveExpr(s.Expression, scope, unit)
	case *ast.IfStatement:
		d.resolveExpr(s.Condition, scope, unit)
		d.resolveStatements(s.Then, scope, unit)
		d.resolveStatements(s.Else, scope, unit)
	case *ast.WhileStatement:
		d.resolveExpr(s.Condition, scope, unit)
		d.resolveStatements(s.Body, scope, unit)
	case *ast.ForStatement:
		d.resolveExpr(s.Iterable, scope, unit)
		d.resolveStatements(s.Body, scope, unit)
	case *ast.BlockStatement:
		bs, ok := d.env.ScopeOf(s)
		if !ok {
			return
		}
		d.resolveStatements(s.Body, bs, unit)
	}
}

func (d *declarer) resolveExpr(e ast.Expression, scope *symbols.Scope, unit string) {
	if e == nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Identifier:
			d.resolveIdentifier(n, scope)
		case *ast.CallExpression:
			d.addCallEdge(n, scope, unit)
		}
		return true
	})
}

func (d *declarer) resolveIdentifier(id *ast.Identifier, scope *symbols.Scope) {
	if b, ok := d.env.Lookup(scope, id.Value); ok {
		d.env.SetResolution(id, b.ID)
		d.env.AddUsage(b.ID, id.Loc())
		return
	}
	if _, ok := d.env.Builtin(id.Value); ok {
		return
	}
	b, err := d.env.Declare(d.env.Module(), id.Value, symbols.ExternalBinding, id)
	if err != nil {
		return
	}
	d.env.SetResolution(id, b.ID)
	d.env.AddUsage(b.ID, id.Loc())
}

func (d *declarer) addCallEdge(call *ast.CallExpression, scope *symbols.Scope, unit string) {
	switch fn := call.Function.(type) {
	case *ast.Identifier:
		b, ok := d.env.Lookup(scope, fn.Value)
		if !ok {
			return
		}
		switch b.Kind {
		case symbols.FunctionBinding:
			if sig, ok := d.env.SignatureOf(b.ID); ok {
				d.decls.Graph.AddEdge(unit, sig.Name)
			}
		case symbols.ClassBinding:
			init := symbols.QualifiedName(b.Scope, b.Name) + "." + config.InitMethodName
			if sig, ok := d.env.Signature(init); ok {
				d.decls.Graph.AddEdge(unit, sig.Name)
			}
		}
	case *ast.AttributeExpression:
		recv, ok := fn.Object.(*ast.Identifier)
		if !ok {
			return
		}
		b, ok := d.env.Lookup(scope, recv.Value)
		if !ok || b.Info.Declared == nil {
			return
		}
		cls, ok := d.env.Class(typesystem.ConstructorName(b.Info.Declared))
		if !ok {
			return
		}
		if sig, ok := d.env.Signature(symbols.QualifiedName(cls.Scope, fn.Name)); ok {
			d.decls.Graph.AddEdge(unit, sig.Name)
		}
	}
}
