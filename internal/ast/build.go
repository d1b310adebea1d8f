package ast

// Constructors for building trees by hand. Every node is placed on the
// given line, column 1.

func At(line int) Location { return Location{Line: line, Column: 1} }

func Ident(name string, line int) *Identifier {
	return &Identifier{Location: At(line), Value: name}
}

func Int(v int64, line int) *IntegerLiteral { return &IntegerLiteral{Location: At(line), Value: v} }

func Float(v float64, line int) *FloatLiteral { return &FloatLiteral{Location: At(line), Value: v} }

func Str(v string, line int) *StringLiteral { return &StringLiteral{Location: At(line), Value: v} }

func Bool(v bool, line int) *BooleanLiteral { return &BooleanLiteral{Location: At(line), Value: v} }

func None(line int) *NoneLiteral { return &NoneLiteral{Location: At(line)} }

func List(line int, elems ...Expression) *ListLiteral {
	return &ListLiteral{Location: At(line), Elements: elems}
}

func Tuple(line int, elems ...Expression) *TupleLiteral {
	return &TupleLiteral{Location: At(line), Elements: elems}
}

func Bin(op string, left, right Expression, line int) *BinaryExpression {
	return &BinaryExpression{Location: At(line), Operator: op, Left: left, Right: right}
}

func Call(fn Expression, line int, args ...Expression) *CallExpression {
	return &CallExpression{Location: At(line), Function: fn, Arguments: args}
}

func Attr(obj Expression, name string, line int) *AttributeExpression {
	return &AttributeExpression{Location: At(line), Object: obj, Name: name}
}

func Index(left, index Expression, line int) *IndexExpression {
	return &IndexExpression{Location: At(line), Left: left, Index: index}
}

// Assign builds `name = value`.
func Assign(name string, value Expression, line int) *AssignStatement {
	return &AssignStatement{Location: At(line), Target: Ident(name, line), Value: value}
}

// AssignTyped builds `name: annotation = value`; value may be nil.
func AssignTyped(name string, annotation Type, value Expression, line int) *AssignStatement {
	return &AssignStatement{Location: At(line), Target: Ident(name, line), Annotation: annotation, Value: value}
}

// AssignTo builds `target = value` for attribute and index targets.
func AssignTo(target, value Expression, line int) *AssignStatement {
	return &AssignStatement{Location: At(line), Target: target, Value: value}
}

func Return(value Expression, line int) *ReturnStatement {
	return &ReturnStatement{Location: At(line), Value: value}
}

func Expr(e Expression, line int) *ExpressionStatement {
	return &ExpressionStatement{Location: At(line), Expression: e}
}

// P builds a parameter; annotation may be nil.
func P(name string, annotation Type) *Param {
	return &Param{Name: name, Annotation: annotation}
}

func Def(name string, params []*Param, ret Type, line int, body ...Statement) *FunctionDef {
	for _, p := range params {
		if p.Location.IsZero() {
			p.Location = At(line)
		}
	}
	return &FunctionDef{Location: At(line), Name: name, Params: params, ReturnType: ret, Body: body}
}

func Class(name string, line int, body ...Statement) *ClassDef {
	return &ClassDef{Location: At(line), Name: name, Body: body}
}

func If(cond Expression, then, els []Statement, line int) *IfStatement {
	return &IfStatement{Location: At(line), Condition: cond, Then: then, Else: els}
}

func While(cond Expression, line int, body ...Statement) *WhileStatement {
	return &WhileStatement{Location: At(line), Condition: cond, Body: body}
}

func For(target string, iter Expression, line int, body ...Statement) *ForStatement {
	return &ForStatement{Location: At(line), Target: Ident(target, line), Iterable: iter, Body: body}
}

func Block(line int, body ...Statement) *BlockStatement {
	return &BlockStatement{Location: At(line), Body: body}
}

// Prog builds a program in file "main.py".
func Prog(stmts ...Statement) *Program {
	p := &Program{Statements: stmts}
	p.SetFile("main.py")
	return p
}

// Stmts is shorthand for a statement list.
func Stmts(s ...Statement) []Statement { return s }
