package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/schema"
)

// Top-level sections of a declaration file.
const (
	SchemaSection = "schema"
	FamilySection = "family"
)

// CompileGraph compiles every declaration in v and builds the graph.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`schema: Pilot: { fields: { name: { type: "string" } } }`)
//	g, err := CompileGraph(v)
func CompileGraph(v cue.Value) (*schema.Graph, error) {
	b := schema.NewBuilder()
	if err := AddDeclarations(b, v); err != nil {
		return nil, err
	}
	return b.Build()
}

// AddDeclarations compiles the schema and family sections of v into b.
// Cross-references are not checked until b.Build, so declarations may be
// spread over several files.
func AddDeclarations(b *schema.Builder, v cue.Value) error {
	if err := v.Validate(); err != nil {
		return formatCUEError(err)
	}

	schemas := v.LookupPath(cue.ParsePath(SchemaSection))
	if schemas.Exists() {
		iter, err := schemas.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			s, err := CompileSchema(iter.Value())
			if err != nil {
				return err
			}
			b.AddSchema(s)
		}
	}

	families := v.LookupPath(cue.ParsePath(FamilySection))
	if families.Exists() {
		iter, err := families.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			f, err := CompileFamily(iter.Value())
			if err != nil {
				return err
			}
			b.AddFamily(f)
		}
	}
	return nil
}

// CompileSchema parses one schema declaration. The schema name is the
// last label of v's path; fields keep their CUE declaration order.
func CompileSchema(v cue.Value) (*schema.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	name := lastLabel(v)

	desc, err := optionalString(v, "description")
	if err != nil {
		return nil, err
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   "schema." + name,
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.Field
	for iter.Next() {
		f, err := compileField(name, labelOf(iter.Selector()), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return schema.NewSchema(name, desc, fields...), nil
}

func compileField(schemaName, name string, v cue.Value) (schema.Field, error) {
	where := fmt.Sprintf("schema.%s.fields.%s", schemaName, name)
	f := schema.Field{Name: name}

	typeExpr, err := optionalString(v, "type")
	if err != nil {
		return f, err
	}
	variant, err := optionalString(v, "variant")
	if err != nil {
		return f, err
	}
	switch {
	case typeExpr != "" && variant != "":
		return f, &CompileError{Field: where, Message: "type and variant are mutually exclusive", Pos: v.Pos()}
	case variant != "":
		f.Type = schema.VariantOf(variant)
	case typeExpr != "":
		t, err := schema.ParseType(typeExpr)
		if err != nil {
			return f, &CompileError{Field: where + ".type", Message: err.Error(), Pos: v.Pos()}
		}
		f.Type = t
	default:
		return f, &CompileError{Field: where, Message: "type or variant is required", Pos: v.Pos()}
	}

	if f.Description, err = optionalString(v, "description"); err != nil {
		return f, err
	}
	if f.Category, err = optionalString(v, "category"); err != nil {
		return f, err
	}

	if req := v.LookupPath(cue.ParsePath("required")); req.Exists() {
		if f.Required, err = req.Bool(); err != nil {
			return f, formatCUEError(err)
		}
	}

	if ex := v.LookupPath(cue.ParsePath("examples")); ex.Exists() {
		list, err := ex.List()
		if err != nil {
			return f, formatCUEError(err)
		}
		for list.Next() {
			s, err := exampleText(list.Value())
			if err != nil {
				return f, err
			}
			f.Examples = append(f.Examples, s)
		}
	}

	if def := v.LookupPath(cue.ParsePath("default")); def.Exists() {
		dv, err := defaultValue(f.Type, def)
		if err != nil {
			return f, &CompileError{Field: where + ".default", Message: err.Error(), Pos: def.Pos()}
		}
		f.Default = dv
	}
	return f, nil
}

// CompileFamily parses one variant family declaration. Branches keep their
// declaration order.
func CompileFamily(v cue.Value) (*schema.Family, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	name := lastLabel(v)
	where := "family." + name

	disc, err := optionalString(v, "discriminator")
	if err != nil {
		return nil, err
	}
	if disc == "" {
		return nil, &CompileError{Field: where + ".discriminator", Message: "discriminator is required", Pos: v.Pos()}
	}
	desc, err := optionalString(v, "description")
	if err != nil {
		return nil, err
	}

	var branches []schema.Branch
	if bv := v.LookupPath(cue.ParsePath("branches")); bv.Exists() {
		iter, err := bv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			label := labelOf(iter.Selector())
			br := iter.Value()

			codeVal := br.LookupPath(cue.ParsePath("code"))
			if !codeVal.Exists() {
				return nil, &CompileError{Field: where + ".branches." + label + ".code", Message: "code is required", Pos: br.Pos()}
			}
			code, err := codeVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			target, err := optionalString(br, "schema")
			if err != nil {
				return nil, err
			}
			if target == "" {
				return nil, &CompileError{Field: where + ".branches." + label + ".schema", Message: "schema is required", Pos: br.Pos()}
			}
			branches = append(branches, schema.Branch{Code: code, Label: label, Schema: target})
		}
	}
	return schema.NewFamily(name, disc, desc, branches...), nil
}

func lastLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return labelOf(sels[len(sels)-1])
}

func labelOf(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func optionalString(v cue.Value, key string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// exampleText renders an example as text; non-string examples use their
// JSON form.
func exampleText(v cue.Value) (string, error) {
	if s, err := v.String(); err == nil {
		return s, nil
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return "", formatCUEError(err)
	}
	return string(data), nil
}

// defaultValue converts a concrete CUE default into a typed value that
// matches the field type. Integral defaults of float fields become floats.
func defaultValue(t schema.Type, v cue.Value) (ir.Value, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("default must be concrete: %w", formatCUEError(err))
	}
	raw, err := ir.DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	val, err := ir.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	return conform(t, val)
}

func conform(t schema.Type, v ir.Value) (ir.Value, error) {
	if _, ok := v.(ir.Null); ok {
		return v, nil
	}
	mismatch := func() error {
		return fmt.Errorf("default %s does not match type %s", ir.KindOf(v), t.Name())
	}
	switch t.Kind {
	case schema.KindAny:
		return v, nil
	case schema.KindString:
		if _, ok := v.(ir.String); ok {
			return v, nil
		}
	case schema.KindBoolean:
		if _, ok := v.(ir.Bool); ok {
			return v, nil
		}
	case schema.KindInteger:
		switch n := v.(type) {
		case ir.Int:
			return n, nil
		case ir.Float:
			if i, ok := ir.AsInt(float64(n)); ok {
				return ir.Int(i), nil
			}
		}
	case schema.KindFloat:
		switch n := v.(type) {
		case ir.Int:
			return ir.Float(float64(n)), nil
		case ir.Float:
			return n, nil
		}
	case schema.KindArray:
		arr, ok := v.(ir.Array)
		if !ok {
			return nil, mismatch()
		}
		out := make(ir.Array, len(arr))
		for i, elem := range arr {
			ev, err := conform(*t.Elem, elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case schema.KindMap:
		obj, ok := v.(ir.Object)
		if !ok {
			return nil, mismatch()
		}
		out := make(ir.Object, len(obj))
		for k, elem := range obj {
			ev, err := conform(*t.Elem, elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	case schema.KindRecord, schema.KindVariant:
		if _, ok := v.(ir.Object); ok {
			return v, nil
		}
	}
	return nil, mismatch()
}
