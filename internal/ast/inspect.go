package ast

// Inspect traverses the tree rooted at node in depth-first program order,
// calling f for each node. If f returns false the children are skipped.
// Type annotations are not visited.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	switch n := node.(type) {
	case *Program:
		inspectStatements(n.Statements, f)
	case *FunctionDef:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		inspectStatements(n.Body, f)
	case *ClassDef:
		inspectStatements(n.Body, f)
	case *AssignStatement:
		// The value is evaluated before the target is bound.
		inspectExpr(n.Value, f)
		inspectExpr(n.Target, f)
	case *ReturnStatement:
		inspectExpr(n.Value, f)
	case *ExpressionStatement:
		inspectExpr(n.Expression, f)
	case *IfStatement:
		inspectExpr(n.Condition, f)
		inspectStatements(n.Then, f)
		inspectStatements(n.Else, f)
	case *WhileStatement:
		inspectExpr(n.Condition, f)
		inspectStatements(n.Body, f)
	case *ForStatement:
		inspectExpr(n.Iterable, f)
		if n.Target != nil {
			Inspect(n.Target, f)
		}
		inspectStatements(n.Body, f)
	case *BlockStatement:
		inspectStatements(n.Body, f)
	case *ListLiteral:
		inspectExprs(n.Elements, f)
	case *SetLiteral:
		inspectExprs(n.Elements, f)
	case *TupleLiteral:
		inspectExprs(n.Elements, f)
	case *DictLiteral:
		for i := range n.Keys {
			inspectExpr(n.Keys[i], f)
			if i < len(n.Values) {
				inspectExpr(n.Values[i], f)
			}
		}
	case *BinaryExpression:
		inspectExpr(n.Left, f)
		inspectExpr(n.Right, f)
	case *UnaryExpression:
		inspectExpr(n.Operand, f)
	case *CallExpression:
		inspectExpr(n.Function, f)
		inspectExprs(n.Arguments, f)
	case *AttributeExpression:
		inspectExpr(n.Object, f)
	case *IndexExpression:
		inspectExpr(n.Left, f)
		inspectExpr(n.Index, f)
	}
}

func inspectStatements(stmts []Statement, f func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, f)
	}
}

func inspectExprs(exprs []Expression, f func(Node) bool) {
	for _, e := range exprs {
		inspectExpr(e, f)
	}
}

// inspectExpr guards against typed-nil expressions stored in interfaces.
func inspectExpr(e Expression, f func(Node) bool) {
	if e == nil {
		return
	}
	Inspect(e, f)
}
