package ast

// --- Type annotation nodes ---

// Type is an explicit annotation attached by the HIR builder.
type Type interface {
	Node
	typeNode()
}

// NamedType represents 'int', 'List[str]', 'Point'.
type NamedType struct {
	Location Location
	Name     string
	Args     []Type
}

func (nt *NamedType) Loc() Location { return nt.Location }
func (nt *NamedType) typeNode()     {}

// FunctionType represents 'Callable[[int, str], bool]' style annotations.
type FunctionType struct {
	Location   Location
	Parameters []Type
	ReturnType Type
}

func (ft *FunctionType) Loc() Location { return ft.Location }
func (ft *FunctionType) typeNode()     {}

// Named builds a NamedType without location, for hand-built trees.
func Named(name string, args ...Type) *NamedType {
	return &NamedType{Name: name, Args: args}
}
