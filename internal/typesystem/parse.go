package typesystem

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/funvibe/tyinfer/internal/config"
)

// sourceAliases maps source-language spellings to canonical names.
var sourceAliases = map[string]string{
	"int":      config.IntTypeName,
	"float":    config.FloatTypeName,
	"bool":     config.BoolTypeName,
	"str":      config.TextTypeName,
	"bytes":    config.BytesTypeName,
	"NoneType": config.NoneTypeName,
	"list":     config.ListTypeName,
	"dict":     config.DictTypeName,
	"set":      config.SetTypeName,
	"tuple":    config.TupleTypeName,
}

// CanonicalName returns the canonical spelling of a type name.
func CanonicalName(name string) string {
	if c, ok := sourceAliases[name]; ok {
		return c
	}
	return name
}

// Parse parses a type expression such as "Dict[Text, List[Int]]" or
// "(Int, ...) -> Text". Unknown names become TCon (user classes or
// rigid type parameters).
func Parse(src string) (Type, error) {
	p := &typeParser{src: src}
	t, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("parsing type %q: %w", src, err)
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("parsing type %q: unexpected %q at offset %d", src, p.src[p.pos:], p.pos)
	}
	if err := CheckKind(t); err != nil {
		return nil, fmt.Errorf("parsing type %q: %w", src, err)
	}
	return t, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(src string) Type {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.accept(tok) {
		return fmt.Errorf("expected %q at offset %d", tok, p.pos)
	}
	return nil
}

func (p *typeParser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if c == '_' || c == '.' || unicode.IsLetter(c) || (p.pos > start && unicode.IsDigit(c)) {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return "", fmt.Errorf("expected type name at offset %d", p.pos)
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) parseType() (Type, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		return p.parseFunc()
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	name = CanonicalName(name)
	if !p.accept("[") {
		return TCon{Name: name}, nil
	}
	var args []Type
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.accept("]") {
			break
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
	return TApp{Constructor: TCon{Name: name}, Args: args}, nil
}

func (p *typeParser) parseFunc() (Type, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	fn := TFunc{}
	if !p.accept(")") {
		for {
			if p.accept("...") {
				fn.IsVariadic = true
				if err := p.expect(")"); err != nil {
					return nil, err
				}
				break
			}
			param, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, param)
			if p.accept(")") {
				break
			}
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect("->"); err != nil {
		return nil, err
	}
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	fn.ReturnType = ret
	return fn, nil
}
