package ast

// SetFile records file as the program's source and fills it into every
// positioned node location that has none, annotations included.
func (p *Program) SetFile(file string) {
	p.File = file
	if file == "" {
		return
	}
	Inspect(p, func(n Node) bool {
		stamp(n, file)
		switch n := n.(type) {
		case *Param:
			stampType(n.Annotation, file)
		case *FunctionDef:
			stampType(n.ReturnType, file)
		case *AssignStatement:
			stampType(n.Annotation, file)
		}
		return true
	})
}

func stampType(t Type, file string) {
	switch t := t.(type) {
	case *NamedType:
		stamp(t, file)
		for _, a := range t.Args {
			stampType(a, file)
		}
	case *FunctionType:
		stamp(t, file)
		for _, a := range t.Parameters {
			stampType(a, file)
		}
		stampType(t.ReturnType, file)
	}
}

func stamp(n Node, file string) {
	if loc := locationOf(n); loc != nil && loc.File == "" && loc.Line > 0 {
		loc.File = file
	}
}

func locationOf(n Node) *Location {
	switch n := n.(type) {
	case *Param:
		return &n.Location
	case *FunctionDef:
		return &n.Location
	case *ClassDef:
		return &n.Location
	case *AssignStatement:
		return &n.Location
	case *ReturnStatement:
		return &n.Location
	case *ExpressionStatement:
		return &n.Location
	case *IfStatement:
		return &n.Location
	case *WhileStatement:
		return &n.Location
	case *ForStatement:
		return &n.Location
	case *BlockStatement:
		return &n.Location
	case *Identifier:
		return &n.Location
	case *IntegerLiteral:
		return &n.Location
	case *FloatLiteral:
		return &n.Location
	case *StringLiteral:
		return &n.Location
	case *BytesLiteral:
		return &n.Location
	case *BooleanLiteral:
		return &n.Location
	case *NoneLiteral:
		return &n.Location
	case *ListLiteral:
		return &n.Location
	case *SetLiteral:
		return &n.Location
	case *TupleLiteral:
		return &n.Location
	case *DictLiteral:
		return &n.Location
	case *BinaryExpression:
		return &n.Location
	case *UnaryExpression:
		return &n.Location
	case *CallExpression:
		return &n.Location
	case *AttributeExpression:
		return &n.Location
	case *IndexExpression:
		return &n.Location
	case *NamedType:
		return &n.Location
	case *FunctionType:
		return &n.Location
	}
	return nil
}
