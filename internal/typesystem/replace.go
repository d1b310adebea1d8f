package typesystem

// ReplaceTCon replaces all occurrences of TCon with the given name with the replacement type.
// Generic stub signatures represent their type parameters as rigid TCons;
// this is how they are instantiated per call site.
func ReplaceTCon(t Type, name string, replacement Type) Type {
	if t == nil {
		return nil
	}
	switch typ := t.(type) {
	case TCon:
		if typ.Name == name {
			return replacement
		}
		return typ
	case TApp:
		newArgs := make([]Type, len(typ.Args))
		for i, arg := range typ.Args {
			newArgs[i] = ReplaceTCon(arg, name, replacement)
		}
		return TApp{Constructor: typ.Constructor, Args: newArgs}
	case TFunc:
		newParams := make([]Type, len(typ.Params))
		for i, p := range typ.Params {
			newParams[i] = ReplaceTCon(p, name, replacement)
		}
		return TFunc{
			Params:     newParams,
			ReturnType: ReplaceTCon(typ.ReturnType, name, replacement),
			IsVariadic: typ.IsVariadic,
		}
	default:
		return t
	}
}

// Instantiate replaces each rigid parameter in params with the matching term in args.
func Instantiate(t Type, params []string, args []Type) Type {
	for i, p := range params {
		if i >= len(args) {
			break
		}
		t = ReplaceTCon(t, p, args[i])
	}
	return t
}
