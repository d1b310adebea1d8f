package analyzer

import (
	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "//": true, "%": true, "**": true}

var orderingOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}

// expr returns the term for e, emitting the constraints it implies.
func (uc *unitCollector) expr(e ast.Expression) typesystem.Type {
	t := uc.inferExpr(e)
	uc.types[e] = t
	return t
}

func (uc *unitCollector) inferExpr(e ast.Expression) typesystem.Type {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		return typesystem.Int
	case *ast.FloatLiteral:
		return typesystem.Float
	case *ast.StringLiteral:
		return typesystem.Text
	case *ast.BytesLiteral:
		return typesystem.Bytes
	case *ast.BooleanLiteral:
		return typesystem.Bool
	case *ast.NoneLiteral:
		return typesystem.None
	case *ast.Identifier:
		return uc.identifier(n)
	case *ast.ListLiteral:
		return typesystem.ListOf(uc.elements(n.Elements))
	case *ast.SetLiteral:
		return typesystem.SetOf(uc.elements(n.Elements))
	case *ast.TupleLiteral:
		elems := make([]typesystem.Type, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = uc.expr(el)
		}
		return typesystem.TupleOf(elems...)
	case *ast.DictLiteral:
		return typesystem.DictOf(uc.elements(n.Keys), uc.elements(n.Values))
	case *ast.BinaryExpression:
		return uc.binary(n)
	case *ast.UnaryExpression:
		operand := uc.expr(n.Operand)
		if n.Operator == "not" {
			return typesystem.Bool
		}
		c := uc.emit(NumericCompatible, operand, operand, ReasonArithmetic, n)
		c.Op = n.Operator
		return operand
	case *ast.CallExpression:
		return uc.call(n)
	case *ast.AttributeExpression:
		obj := uc.expr(n.Object)
		f := uc.fresh()
		c := uc.emit(HasField, obj, f, ReasonAttribute, n)
		c.Field = n.Name
		return f
	case *ast.IndexExpression:
		obj := uc.expr(n.Left)
		idx := uc.expr(n.Index)
		m := uc.fresh()
		hf := uc.emit(HasField, obj, m, ReasonIndex, n)
		hf.Field = config.GetItemMethodName
		if lit, ok := n.Index.(*ast.IntegerLiteral); ok {
			hf.TupleIndex = int(lit.Value)
		}
		r := uc.fresh()
		uc.emit(Callable, m, typesystem.Func(r, idx), ReasonIndex, n)
		return r
	default:
		return uc.fresh()
	}
}

func (uc *unitCollector) identifier(id *ast.Identifier) typesystem.Type {
	if b, ok := uc.env.Resolution(id); ok {
		return b.Var()
	}
	if s, ok := uc.env.Builtin(id.Value); ok {
		return uc.instantiate(s)
	}
	return uc.fresh()
}

// instantiate replaces a scheme's rigid parameters with fresh variables.
func (uc *unitCollector) instantiate(s symbols.Scheme) typesystem.Type {
	if len(s.Params) == 0 {
		return s.Type
	}
	args := make([]typesystem.Type, len(s.Params))
	for i := range s.Params {
		args[i] = uc.fresh()
	}
	return typesystem.Instantiate(s.Type, s.Params, args)
}

// elements unifies all elements with one fresh element variable.
func (uc *unitCollector) elements(elems []ast.Expression) typesystem.Type {
	elem := uc.fresh()
	for _, el := range elems {
		uc.emit(Equal, elem, uc.expr(el), ReasonElement, el)
	}
	return elem
}

func (uc *unitCollector) binary(be *ast.BinaryExpression) typesystem.Type {
	left := uc.expr(be.Left)
	right := uc.expr(be.Right)
	switch {
	case arithmeticOps[be.Operator]:
		c := uc.emit(NumericCompatible, left, right, ReasonArithmetic, be)
		c.Op = be.Operator
		return left
	case orderingOps[be.Operator]:
		c := uc.emit(NumericCompatible, left, right, ReasonComparison, be)
		c.Op = be.Operator
		return typesystem.Bool
	case be.Operator == "==" || be.Operator == "!=":
		uc.emit(Equal, left, right, ReasonComparison, be)
		return typesystem.Bool
	case be.Operator == "in" || be.Operator == "not in":
		m := uc.fresh()
		hf := uc.emit(HasField, right, m, ReasonMembership, be)
		hf.Field = config.ContainsMethodName
		uc.emit(Callable, m, typesystem.Func(typesystem.Bool, left), ReasonMembership, be)
		return typesystem.Bool
	default:
		// and, or, is, is not
		return typesystem.Bool
	}
}

func (uc *unitCollector) call(ce *ast.CallExpression) typesystem.Type {
	callee := uc.expr(ce.Function)
	args := make([]typesystem.Type, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = uc.expr(a)
	}
	r := uc.fresh()
	uc.emit(Callable, callee, typesystem.Func(r, args...), ReasonCall, ce)
	return r
}
