package ast

import "fmt"

// Location is a stable source position attached to every node.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool { return l.Line == 0 && l.Column == 0 && l.File == "" }

// Node is the base interface for all tree nodes handed over by the HIR builder.
type Node interface {
	Loc() Location
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root of one compilation unit.
type Program struct {
	File       string
	Statements []Statement
}

func (p *Program) Loc() Location { return Location{File: p.File, Line: 1, Column: 1} }

// Param is a function parameter with an optional annotation.
type Param struct {
	Location   Location
	Name       string
	Annotation Type
}

func (p *Param) Loc() Location { return p.Location }

// FunctionDef declares a function or, inside a ClassDef, a method.
type FunctionDef struct {
	Location   Location
	Name       string
	Params     []*Param
	ReturnType Type // nil when unannotated
	Body       []Statement
}

func (fd *FunctionDef) Loc() Location  { return fd.Location }
func (fd *FunctionDef) statementNode() {}

// ClassDef declares a class. Its body holds annotated attributes and methods.
type ClassDef struct {
	Location Location
	Name     string
	Body     []Statement
}

func (cd *ClassDef) Loc() Location  { return cd.Location }
func (cd *ClassDef) statementNode() {}

// AssignStatement covers `x = v`, `x: T = v`, bare `x: T`, `obj.f = v` and `xs[i] = v`.
type AssignStatement struct {
	Location   Location
	Target     Expression // *Identifier, *AttributeExpression or *IndexExpression
	Annotation Type       // nil when unannotated
	Value      Expression // nil for a bare annotation
}

func (as *AssignStatement) Loc() Location  { return as.Location }
func (as *AssignStatement) statementNode() {}

// ReturnStatement returns from the enclosing function. Value may be nil.
type ReturnStatement struct {
	Location Location
	Value    Expression
}

func (rs *ReturnStatement) Loc() Location  { return rs.Location }
func (rs *ReturnStatement) statementNode() {}

// ExpressionStatement evaluates an expression for its effect.
type ExpressionStatement struct {
	Location   Location
	Expression Expression
}

func (es *ExpressionStatement) Loc() Location  { return es.Location }
func (es *ExpressionStatement) statementNode() {}

// IfStatement with an optional else branch (elif chains nest in Else).
type IfStatement struct {
	Location  Location
	Condition Expression
	Then      []Statement
	Else      []Statement
}

func (is *IfStatement) Loc() Location  { return is.Location }
func (is *IfStatement) statementNode() {}

// WhileStatement loops while Condition holds.
type WhileStatement struct {
	Location  Location
	Condition Expression
	Body      []Statement
}

func (ws *WhileStatement) Loc() Location  { return ws.Location }
func (ws *WhileStatement) statementNode() {}

// ForStatement iterates Iterable binding each element to Target.
type ForStatement struct {
	Location Location
	Target   *Identifier
	Iterable Expression
	Body     []Statement
}

func (fs *ForStatement) Loc() Location  { return fs.Location }
func (fs *ForStatement) statementNode() {}

// BlockStatement opens a lexical scope of its own.
type BlockStatement struct {
	Location Location
	Body     []Statement
}

func (bs *BlockStatement) Loc() Location  { return bs.Location }
func (bs *BlockStatement) statementNode() {}
