package ast

// Identifier is a use (or assignment target) of a source-level name.
type Identifier struct {
	Location Location
	Value    string
}

func (i *Identifier) Loc() Location   { return i.Location }
func (i *Identifier) expressionNode() {}

type IntegerLiteral struct {
	Location Location
	Value    int64
}

func (il *IntegerLiteral) Loc() Location   { return il.Location }
func (il *IntegerLiteral) expressionNode() {}

type FloatLiteral struct {
	Location Location
	Value    float64
}

func (fl *FloatLiteral) Loc() Location   { return fl.Location }
func (fl *FloatLiteral) expressionNode() {}

type StringLiteral struct {
	Location Location
	Value    string
}

func (sl *StringLiteral) Loc() Location   { return sl.Location }
func (sl *StringLiteral) expressionNode() {}

type BytesLiteral struct {
	Location Location
	Value    []byte
}

func (bl *BytesLiteral) Loc() Location   { return bl.Location }
func (bl *BytesLiteral) expressionNode() {}

type BooleanLiteral struct {
	Location Location
	Value    bool
}

func (bl *BooleanLiteral) Loc() Location   { return bl.Location }
func (bl *BooleanLiteral) expressionNode() {}

type NoneLiteral struct {
	Location Location
}

func (nl *NoneLiteral) Loc() Location   { return nl.Location }
func (nl *NoneLiteral) expressionNode() {}

// ListLiteral represents [a, b, c].
type ListLiteral struct {
	Location Location
	Elements []Expression
}

func (ll *ListLiteral) Loc() Location   { return ll.Location }
func (ll *ListLiteral) expressionNode() {}

// SetLiteral represents {a, b}.
type SetLiteral struct {
	Location Location
	Elements []Expression
}

func (sl *SetLiteral) Loc() Location   { return sl.Location }
func (sl *SetLiteral) expressionNode() {}

// TupleLiteral represents (a, b).
type TupleLiteral struct {
	Location Location
	Elements []Expression
}

func (tl *TupleLiteral) Loc() Location   { return tl.Location }
func (tl *TupleLiteral) expressionNode() {}

// DictLiteral represents {k1: v1, k2: v2}. Keys and Values have equal length.
type DictLiteral struct {
	Location Location
	Keys     []Expression
	Values   []Expression
}

func (dl *DictLiteral) Loc() Location   { return dl.Location }
func (dl *DictLiteral) expressionNode() {}

// BinaryExpression represents `left op right`.
type BinaryExpression struct {
	Location Location
	Operator string
	Left     Expression
	Right    Expression
}

func (be *BinaryExpression) Loc() Location   { return be.Location }
func (be *BinaryExpression) expressionNode() {}

// UnaryExpression represents `-x` or `not x`.
type UnaryExpression struct {
	Location Location
	Operator string
	Operand  Expression
}

func (ue *UnaryExpression) Loc() Location   { return ue.Location }
func (ue *UnaryExpression) expressionNode() {}

// CallExpression represents `f(args...)`, including method calls `obj.m(args...)`.
type CallExpression struct {
	Location  Location
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) Loc() Location   { return ce.Location }
func (ce *CallExpression) expressionNode() {}

// AttributeExpression represents `obj.name`.
type AttributeExpression struct {
	Location Location
	Object   Expression
	Name     string
}

func (ae *AttributeExpression) Loc() Location   { return ae.Location }
func (ae *AttributeExpression) expressionNode() {}

// IndexExpression represents `left[index]`.
type IndexExpression struct {
	Location Location
	Left     Expression
	Index    Expression
}

func (ie *IndexExpression) Loc() Location   { return ie.Location }
func (ie *IndexExpression) expressionNode() {}
