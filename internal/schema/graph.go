package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/nullg/internal/ir"
)

// ErrInvalidGraph wraps every error returned by Builder.Build.
var ErrInvalidGraph = errors.New("invalid schema graph")

// Field is one declared field of a record schema.
type Field struct {
	Name        string
	Type        Type
	Required    bool
	Default     ir.Value // nil means no declared default
	Description string
	Examples    []string
	Category    string // explicit catalog category; empty inherits
}

// Schema is an ordered set of fields. Declaration order is significant:
// a discriminator must come before the variant field it governs.
type Schema struct {
	Name        string
	Description string
	fields      []Field
	index       map[string]int
}

// NewSchema builds a schema from fields in declaration order.
func NewSchema(name, description string, fields ...Field) *Schema {
	s := &Schema{Name: name, Description: description}
	for _, f := range fields {
		s.add(f)
	}
	return s
}

func (s *Schema) add(f Field) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, dup := s.index[f.Name]; !dup {
		s.index[f.Name] = len(s.fields)
	}
	s.fields = append(s.fields, f)
}

// Fields returns the fields in declaration order. The slice is a copy.
func (s *Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Position returns the declaration index of a field, or -1.
func (s *Schema) Position(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Branch is one concrete alternative of a variant family.
type Branch struct {
	Code   int64
	Label  string
	Schema string
}

// Family is a closed set of record schemas selected by an integer code read
// from a sibling discriminator field.
type Family struct {
	Name          string
	Discriminator string
	Description   string
	branches      []Branch
	byCode        map[int64]int
	byLabel       map[string]int
}

// NewFamily builds a variant family. Branch order is declaration order.
func NewFamily(name, discriminator, description string, branches ...Branch) *Family {
	f := &Family{
		Name:          name,
		Discriminator: discriminator,
		Description:   description,
		branches:      slices.Clone(branches),
		byCode:        make(map[int64]int, len(branches)),
		byLabel:       make(map[string]int, len(branches)),
	}
	for i, b := range f.branches {
		if _, dup := f.byCode[b.Code]; !dup {
			f.byCode[b.Code] = i
		}
		if b.Label != "" {
			if _, dup := f.byLabel[b.Label]; !dup {
				f.byLabel[b.Label] = i
			}
		}
	}
	return f
}

// Branches returns the branches in declaration order.
func (f *Family) Branches() []Branch {
	return slices.Clone(f.branches)
}

// ByCode resolves a discriminator code to its branch.
func (f *Family) ByCode(code int64) (Branch, bool) {
	i, ok := f.byCode[code]
	if !ok {
		return Branch{}, false
	}
	return f.branches[i], true
}

// ByLabel resolves an enumerated label, such as "mech", to its branch.
func (f *Family) ByLabel(label string) (Branch, bool) {
	i, ok := f.byLabel[label]
	if !ok {
		return Branch{}, false
	}
	return f.branches[i], true
}

// Graph is the immutable registry of record schemas and variant families.
// A Graph is safe for concurrent use; nothing mutates it after Build.
type Graph struct {
	schemas  map[string]*Schema
	families map[string]*Family
	order    []string
}

// Schema looks up a record schema by name.
func (g *Graph) Schema(name string) (*Schema, bool) {
	s, ok := g.schemas[name]
	return s, ok
}

// Family looks up a variant family by name.
func (g *Graph) Family(name string) (*Family, bool) {
	f, ok := g.families[name]
	return f, ok
}

// SchemaNames returns schema names in registration order.
func (g *Graph) SchemaNames() []string {
	return slices.Clone(g.order)
}

// FamilyNames returns family names sorted.
func (g *Graph) FamilyNames() []string {
	names := make([]string, 0, len(g.families))
	for name := range g.families {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe renders the graph as a typed value. Two graphs with equal
// descriptions behave identically; ir.SchemaHash of it is the graph version.
func (g *Graph) Describe() ir.Object {
	schemas := make(ir.Object, len(g.schemas))
	for name, s := range g.schemas {
		fields := make(ir.Array, 0, len(s.fields))
		for _, f := range s.fields {
			fd := ir.Object{
				"name":     ir.String(f.Name),
				"type":     ir.String(f.Type.Name()),
				"required": ir.Bool(f.Required),
			}
			if f.Type.Kind == KindVariant {
				fd["variant"] = ir.Bool(true)
			}
			if f.Default != nil {
				fd["default"] = f.Default
			}
			fields = append(fields, fd)
		}
		schemas[name] = fields
	}
	families := make(ir.Object, len(g.families))
	for name, f := range g.families {
		branches := make(ir.Array, 0, len(f.branches))
		for _, b := range f.branches {
			branches = append(branches, ir.Object{
				"code":   ir.Int(b.Code),
				"label":  ir.String(b.Label),
				"schema": ir.String(b.Schema),
			})
		}
		families[name] = ir.Object{
			"discriminator": ir.String(f.Discriminator),
			"branches":      branches,
		}
	}
	return ir.Object{"schemas": schemas, "families": families}
}

// Builder accumulates declarations and validates them into a Graph.
type Builder struct {
	schemas  []*Schema
	families []*Family
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddSchema registers a record schema.
func (b *Builder) AddSchema(s *Schema) *Builder {
	b.schemas = append(b.schemas, s)
	return b
}

// AddFamily registers a variant family.
func (b *Builder) AddFamily(f *Family) *Builder {
	b.families = append(b.families, f)
	return b
}

// Build validates every declaration and returns the graph. All problems are
// joined into one error wrapping ErrInvalidGraph.
//
// A variant field declared before its discriminator is accepted here; the
// resolver reports that at decode time and compiler.Validate lints it.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		schemas:  make(map[string]*Schema, len(b.schemas)),
		families: make(map[string]*Family, len(b.families)),
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, s := range b.schemas {
		if _, dup := g.schemas[s.Name]; dup {
			fail("schema %s declared twice", s.Name)
			continue
		}
		g.schemas[s.Name] = s
		g.order = append(g.order, s.Name)
	}
	for _, f := range b.families {
		if _, dup := g.families[f.Name]; dup {
			fail("family %s declared twice", f.Name)
			continue
		}
		if _, clash := g.schemas[f.Name]; clash {
			fail("family %s clashes with a schema of the same name", f.Name)
		}
		g.families[f.Name] = f
	}

	for _, f := range b.families {
		seenCode := make(map[int64]bool)
		seenLabel := make(map[string]bool)
		for _, br := range f.branches {
			if seenCode[br.Code] {
				fail("family %s: duplicate code %d", f.Name, br.Code)
			}
			seenCode[br.Code] = true
			if br.Label != "" {
				if seenLabel[br.Label] {
					fail("family %s: duplicate label %q", f.Name, br.Label)
				}
				seenLabel[br.Label] = true
			}
			if _, ok := g.schemas[br.Schema]; !ok {
				fail("family %s: branch %d references unknown schema %s", f.Name, br.Code, br.Schema)
			}
		}
	}

	for _, s := range b.schemas {
		seen := make(map[string]bool, len(s.fields))
		for _, f := range s.fields {
			if seen[f.Name] {
				fail("schema %s: field %s declared twice", s.Name, f.Name)
			}
			seen[f.Name] = true
			for _, ref := range f.Type.refs(nil) {
				switch ref.Kind {
				case KindRecord:
					if _, ok := g.schemas[ref.Ref]; !ok {
						fail("schema %s: field %s references unknown schema %s", s.Name, f.Name, ref.Ref)
					}
				case KindVariant:
					fam, ok := g.families[ref.Ref]
					if !ok {
						fail("schema %s: field %s references unknown family %s", s.Name, f.Name, ref.Ref)
						continue
					}
					if f.Type.Kind != KindVariant {
						fail("schema %s: field %s nests variant family %s inside a container", s.Name, f.Name, ref.Ref)
					}
					disc, ok := s.Field(fam.Discriminator)
					if !ok {
						fail("schema %s: field %s uses family %s but discriminator %s is not a sibling field",
							s.Name, f.Name, fam.Name, fam.Discriminator)
						continue
					}
					if disc.Type.Kind != KindInteger {
						fail("schema %s: discriminator %s must be integer, got %s", s.Name, disc.Name, disc.Type.Name())
					}
				}
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(errs...))
	}
	return g, nil
}

// MustBuild panics when Build fails. For static declarations only.
func (b *Builder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
