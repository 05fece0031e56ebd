package fieldcatalog

import (
	"fmt"
	"slices"

	"github.com/roach88/nullg/internal/schema"
)

// DefaultDescription is used for fields declared without a description.
const DefaultDescription = "No description"

// Query operators offered per type name. Types absent from the table get no
// operators; the catalog still lists them.
var operatorTable = map[string][]string{
	"integer":           {"$eq", "$gte", "$lte"},
	"float":             {"$eq", "$gte", "$lte"},
	"string":            {"$eq", "$regex"},
	"array[string]":     {"$in", "$regex"},
	"array[integer]":    {"$in"},
	"boolean":           {"$eq"},
	"dict[string, any]": {"$eq", "$regex", "$gt", "$gte", "$lt", "$lte"},
}

// OperatorsFor returns the operators offered for a type name. The result is
// a fresh slice and never nil.
func OperatorsFor(typeName string) []string {
	ops, ok := operatorTable[typeName]
	if !ok {
		return []string{}
	}
	return slices.Clone(ops)
}

// Entry describes one queryable field path.
type Entry struct {
	Path        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Operators   []string `json:"operators" yaml:"operators"`
	Example     *string  `json:"example" yaml:"example"`
	Category    string   `json:"category" yaml:"category"`
}

// Catalog is the flattened, de-duplicated field list of one record type.
type Catalog struct {
	Root    string  `json:"root" yaml:"root"`
	Entries []Entry `json:"fields" yaml:"fields"`
}

// Lookup finds the entry for a path.
func (c *Catalog) Lookup(path string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Paths lists entry paths in catalog order.
func (c *Catalog) Paths() []string {
	paths := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		paths[i] = e.Path
	}
	return paths
}

// BuildNamed builds the catalog of the schema called root.
func BuildNamed(g *schema.Graph, root string) (*Catalog, error) {
	s, ok := g.Schema(root)
	if !ok {
		return nil, fmt.Errorf("field catalog: unknown record type %q", root)
	}
	return Build(g, s), nil
}

// Build walks root depth-first and returns its catalog.
//
// Nested schemas, sequences of nested schemas and every branch of a variant
// family contribute fields under the enclosing field's path; none of them
// add a path segment of their own. The first visit to a path wins.
//
// Build panics if g does not contain a schema or family root references,
// which schema.Builder rules out.
func Build(g *schema.Graph, root *schema.Schema) *Catalog {
	w := &walker{
		graph:  g,
		seen:   make(map[string]bool),
		active: make(map[string]bool),
	}
	w.walk(root, "", "")
	if w.entries == nil {
		w.entries = []Entry{}
	}
	return &Catalog{Root: root.Name, Entries: w.entries}
}

type walker struct {
	graph   *schema.Graph
	entries []Entry
	seen    map[string]bool
	// active holds schemas on the current walk stack; revisiting one would
	// recurse forever on self-referential declarations.
	active map[string]bool
}

func (w *walker) walk(s *schema.Schema, prefix, category string) {
	if w.active[s.Name] {
		return
	}
	w.active[s.Name] = true
	defer delete(w.active, s.Name)

	for _, f := range s.Fields() {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		cat := category
		switch {
		case f.Category != "":
			cat = f.Category
		case prefix == "":
			cat = f.Name
		}

		if nested, ok := w.nestedSchemas(f.Type); ok {
			for _, ns := range nested {
				w.walk(ns, path, cat)
			}
			continue
		}

		if w.seen[path] {
			continue
		}
		w.seen[path] = true

		typeName := f.Type.Name()
		desc := f.Description
		if desc == "" {
			desc = DefaultDescription
		}
		var example *string
		if len(f.Examples) > 0 {
			ex := f.Examples[0]
			example = &ex
		}
		w.entries = append(w.entries, Entry{
			Path:        path,
			Type:        typeName,
			Description: desc,
			Operators:   OperatorsFor(typeName),
			Example:     example,
			Category:    cat,
		})
	}
}

// nestedSchemas returns the schemas a field's type descends into: a nested
// record, the element record of a sequence, or every branch of a family in
// code order.
func (w *walker) nestedSchemas(t schema.Type) ([]*schema.Schema, bool) {
	switch t.Kind {
	case schema.KindRecord:
		return []*schema.Schema{w.mustSchema(t.Ref)}, true
	case schema.KindArray:
		if t.Elem.Kind == schema.KindRecord {
			return []*schema.Schema{w.mustSchema(t.Elem.Ref)}, true
		}
	case schema.KindVariant:
		fam, ok := w.graph.Family(t.Ref)
		if !ok {
			panic(fmt.Sprintf("field catalog: family %s missing from graph", t.Ref))
		}
		var out []*schema.Schema
		for _, br := range fam.Branches() {
			out = append(out, w.mustSchema(br.Schema))
		}
		return out, true
	}
	return nil, false
}

func (w *walker) mustSchema(name string) *schema.Schema {
	s, ok := w.graph.Schema(name)
	if !ok {
		panic(fmt.Sprintf("field catalog: schema %s missing from graph", name))
	}
	return s
}
