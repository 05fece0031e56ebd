package schema

import (
	"fmt"
	"strings"
)

// Kind is the category of a declared field type.
type Kind int

const (
	KindString Kind = iota + 1
	KindInteger
	KindFloat
	KindBoolean
	KindAny
	KindArray   // homogeneous sequence of Elem
	KindMap     // string- or integer-keyed mapping to Elem
	KindRecord  // nested schema, named by Ref
	KindVariant // tagged variant family, named by Ref
)

var kindNames = map[Kind]string{
	KindString:  "string",
	KindInteger: "integer",
	KindFloat:   "float",
	KindBoolean: "boolean",
	KindAny:     "any",
}

// Type describes the declared type of a field.
type Type struct {
	Kind Kind
	Elem *Type // KindArray, KindMap
	Key  *Type // KindMap; KindString or KindInteger
	Ref  string
}

// Primitive type constructors.
var (
	String  = Type{Kind: KindString}
	Integer = Type{Kind: KindInteger}
	Float   = Type{Kind: KindFloat}
	Boolean = Type{Kind: KindBoolean}
	Any     = Type{Kind: KindAny}
)

// ArrayOf returns a sequence type.
func ArrayOf(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

// MapOf returns a mapping type.
func MapOf(key, elem Type) Type {
	return Type{Kind: KindMap, Key: &key, Elem: &elem}
}

// RecordOf references a nested schema by name.
func RecordOf(name string) Type {
	return Type{Kind: KindRecord, Ref: name}
}

// VariantOf references a variant family by name.
func VariantOf(family string) Type {
	return Type{Kind: KindVariant, Ref: family}
}

// Name renders the type the way catalogs and errors print it:
// "integer", "array[string]", "dict[string, any]", or a schema/family name.
func (t Type) Name() string {
	switch t.Kind {
	case KindArray:
		return "array[" + t.Elem.Name() + "]"
	case KindMap:
		return "dict[" + t.Key.Name() + ", " + t.Elem.Name() + "]"
	case KindRecord, KindVariant:
		return t.Ref
	}
	if name, ok := kindNames[t.Kind]; ok {
		return name
	}
	return "unknown"
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return t.Name()
}

// ParseType parses a type expression. Identifiers that are not primitive
// type names are treated as schema references; variant families are never
// produced by ParseType.
//
//	integer | float | string | boolean | any
//	array[T] | dict[K, V] | <SchemaName>
func ParseType(expr string) (Type, error) {
	p := typeParser{src: expr}
	t, err := p.parse()
	if err != nil {
		return Type{}, fmt.Errorf("parse type %q: %w", expr, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Type{}, fmt.Errorf("parse type %q: unexpected %q at offset %d", expr, p.src[p.pos:], p.pos)
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || p.pos > start && c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *typeParser) parse() (Type, error) {
	name := p.ident()
	switch name {
	case "":
		return Type{}, fmt.Errorf("expected type name at offset %d", p.pos)
	case "string", "str":
		return String, nil
	case "integer", "int":
		return Integer, nil
	case "float", "number":
		return Float, nil
	case "boolean", "bool":
		return Boolean, nil
	case "any":
		return Any, nil
	case "array", "list":
		if err := p.expect('['); err != nil {
			return Type{}, err
		}
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(']'); err != nil {
			return Type{}, err
		}
		return ArrayOf(elem), nil
	case "dict", "map":
		if err := p.expect('['); err != nil {
			return Type{}, err
		}
		key, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if key.Kind != KindString && key.Kind != KindInteger {
			return Type{}, fmt.Errorf("mapping key must be string or integer, got %s", key.Name())
		}
		if err := p.expect(','); err != nil {
			return Type{}, err
		}
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(']'); err != nil {
			return Type{}, err
		}
		return MapOf(key, elem), nil
	}
	if strings.ToUpper(name[:1]) != name[:1] {
		return Type{}, fmt.Errorf("unknown type %q (schema names start with an upper-case letter)", name)
	}
	return RecordOf(name), nil
}

// refs appends every schema or family name t mentions.
func (t Type) refs(out []Type) []Type {
	switch t.Kind {
	case KindArray:
		return t.Elem.refs(out)
	case KindMap:
		return t.Elem.refs(out)
	case KindRecord, KindVariant:
		return append(out, t)
	}
	return out
}
