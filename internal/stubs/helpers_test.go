package stubs

import "github.com/funvibe/tyinfer/internal/typesystem"

func textType() typesystem.Type { return typesystem.Text }

func listOfInt() typesystem.Type { return typesystem.ListOf(typesystem.Int) }
