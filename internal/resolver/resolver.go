package resolver

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/schema"
)

// DefaultMaxDepth bounds how deeply nested a raw record may be.
const DefaultMaxDepth = 64

// Resolver turns raw records into typed records against a schema graph.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	graph    *schema.Graph
	maxDepth int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDepth sets the nesting limit. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// New returns a resolver over g.
func New(g *schema.Graph, opts ...Option) *Resolver {
	r := &Resolver{graph: g, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graph returns the schema graph the resolver reads.
func (r *Resolver) Graph() *schema.Graph {
	return r.graph
}

// Resolve decodes raw against the schema or variant family called name.
//
// When name is a family, raw is a record that carries its own discriminator:
// the discriminator is read from raw, the selected branch schema governs the
// whole record, and the discriminator is kept on the result.
//
// An unknown name is a caller error and is not a *DecodeError.
func (r *Resolver) Resolve(name string, raw any) (ir.Object, error) {
	if s, ok := r.graph.Schema(name); ok {
		return r.ResolveSchema(s, raw)
	}
	if f, ok := r.graph.Family(name); ok {
		return r.resolveTagged(f, native(raw), "", 0)
	}
	return nil, fmt.Errorf("resolve: unknown record type %q", name)
}

// ResolveSchema decodes raw as a record of s.
func (r *Resolver) ResolveSchema(s *schema.Schema, raw any) (ir.Object, error) {
	return r.record(s, native(raw), "", 0)
}

// ResolveField decodes the raw value of one field of parent. partial holds
// the already-resolved siblings declared before field; a variant field reads
// its discriminator from it.
func (r *Resolver) ResolveField(parent *schema.Schema, field schema.Field, raw any, partial ir.Object) (ir.Value, error) {
	return r.field(parent, field, native(raw), true, partial, path(field.Name), 0)
}

// native lets callers hand in typed trees as well as raw ones.
func native(raw any) any {
	if v, ok := raw.(ir.Value); ok {
		return ir.ToNative(v)
	}
	return raw
}

func (r *Resolver) depthCheck(p path, depth int) error {
	if depth > r.maxDepth {
		return &DecodeError{Code: ErrCodeDepthExceeded, Path: p.String()}
	}
	return nil
}

// record resolves each declared field in declaration order. The output map
// doubles as the partial context for later siblings.
func (r *Resolver) record(s *schema.Schema, raw any, p path, depth int) (ir.Object, error) {
	if err := r.depthCheck(p, depth); err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, typeMismatch(p, s.Name, ir.KindOf(raw))
	}
	fields := s.Fields()
	out := make(ir.Object, len(fields))
	for _, f := range fields {
		rv, present := m[f.Name]
		v, err := r.field(s, f, rv, present, out, p.field(f.Name), depth)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func (r *Resolver) field(parent *schema.Schema, f schema.Field, raw any, present bool, partial ir.Object, p path, depth int) (ir.Value, error) {
	if !present {
		if f.Required {
			return nil, missingField(p)
		}
		if f.Default != nil {
			return ir.Clone(f.Default), nil
		}
		return ir.Null{}, nil
	}
	if raw == nil {
		if f.Required {
			return nil, typeMismatch(p, f.Type.Name(), ir.KindNull)
		}
		return ir.Null{}, nil
	}
	if f.Type.Kind == schema.KindVariant {
		return r.variant(parent, f, raw, partial, p, depth)
	}
	return r.value(f.Type, raw, p, depth)
}

// variant selects the concrete branch of a variant field from the sibling
// discriminator and resolves raw against it.
func (r *Resolver) variant(parent *schema.Schema, f schema.Field, raw any, partial ir.Object, p path, depth int) (ir.Value, error) {
	fam, ok := r.graph.Family(f.Type.Ref)
	if !ok {
		return nil, fmt.Errorf("resolve %s: family %s missing from graph", p, f.Type.Ref)
	}
	if parent != nil && parent.Position(fam.Discriminator) > parent.Position(f.Name) {
		return nil, &DecodeError{
			Code:          ErrCodeFieldOrderViolation,
			Path:          p.String(),
			Family:        fam.Name,
			Discriminator: fam.Discriminator,
		}
	}
	disc, ok := partial[fam.Discriminator]
	if _, isNull := disc.(ir.Null); !ok || isNull {
		return nil, &DecodeError{
			Code:          ErrCodeMissingDiscriminator,
			Path:          p.String(),
			Family:        fam.Name,
			Discriminator: fam.Discriminator,
		}
	}
	br, err := selectBranch(fam, disc, p)
	if err != nil {
		return nil, err
	}
	s, ok := r.graph.Schema(br.Schema)
	if !ok {
		return nil, fmt.Errorf("resolve %s: schema %s missing from graph", p, br.Schema)
	}
	return r.record(s, raw, p, depth+1)
}

// resolveTagged handles a record whose own discriminator field picks the
// schema for the whole record.
func (r *Resolver) resolveTagged(fam *schema.Family, raw any, p path, depth int) (ir.Object, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, typeMismatch(p, fam.Name, ir.KindOf(raw))
	}
	rawDisc, present := m[fam.Discriminator]
	if !present || rawDisc == nil {
		return nil, &DecodeError{
			Code:          ErrCodeMissingDiscriminator,
			Path:          p.String(),
			Family:        fam.Name,
			Discriminator: fam.Discriminator,
		}
	}
	disc, err := ir.FromRaw(rawDisc)
	if err != nil {
		return nil, typeMismatch(p.field(fam.Discriminator), schema.Integer.Name(), ir.KindOf(rawDisc))
	}
	br, err := selectBranch(fam, disc, p)
	if err != nil {
		return nil, err
	}
	s, ok := r.graph.Schema(br.Schema)
	if !ok {
		return nil, fmt.Errorf("resolve %s: schema %s missing from graph", p, br.Schema)
	}

	// A label selects the branch; the record always stores the code.
	body := make(map[string]any, len(m))
	for k, v := range m {
		body[k] = v
	}
	body[fam.Discriminator] = br.Code
	out, err := r.record(s, body, p, depth)
	if err != nil {
		return nil, err
	}
	if _, declared := s.Field(fam.Discriminator); !declared {
		out[fam.Discriminator] = ir.Int(br.Code)
	}
	return out, nil
}

func selectBranch(fam *schema.Family, disc ir.Value, p path) (schema.Branch, error) {
	var (
		br schema.Branch
		ok bool
	)
	switch v := disc.(type) {
	case ir.Int:
		br, ok = fam.ByCode(int64(v))
	case ir.String:
		br, ok = fam.ByLabel(string(v))
	case ir.Float:
		if code, integral := ir.AsInt(v); integral {
			br, ok = fam.ByCode(code)
		}
	}
	if !ok {
		return schema.Branch{}, &DecodeError{
			Code:          ErrCodeUnknownVariant,
			Path:          p.String(),
			Family:        fam.Name,
			Discriminator: fam.Discriminator,
			Value:         disc,
		}
	}
	return br, nil
}

// value checks raw structurally against t.
func (r *Resolver) value(t schema.Type, raw any, p path, depth int) (ir.Value, error) {
	switch t.Kind {
	case schema.KindString:
		if s, ok := raw.(string); ok {
			return ir.String(s), nil
		}
	case schema.KindInteger:
		if n, ok := ir.AsInt(raw); ok {
			return ir.Int(n), nil
		}
	case schema.KindFloat:
		if f, ok := ir.AsFloat(raw); ok {
			return ir.Float(f), nil
		}
	case schema.KindBoolean:
		if b, ok := raw.(bool); ok {
			return ir.Bool(b), nil
		}
	case schema.KindAny:
		if err := r.depthCheck(p, depth+anyDepth(raw, r.maxDepth-depth+1)); err != nil {
			return nil, err
		}
		v, err := ir.FromRaw(raw)
		if err != nil {
			return nil, typeMismatch(p, t.Name(), ir.KindOf(raw))
		}
		return v, nil
	case schema.KindArray:
		return r.array(t, raw, p, depth+1)
	case schema.KindMap:
		return r.mapping(t, raw, p, depth+1)
	case schema.KindRecord:
		s, ok := r.graph.Schema(t.Ref)
		if !ok {
			return nil, fmt.Errorf("resolve %s: schema %s missing from graph", p, t.Ref)
		}
		return r.record(s, raw, p, depth+1)
	case schema.KindVariant:
		// Variant families only appear directly on record fields.
		return nil, fmt.Errorf("resolve %s: variant %s outside a record field", p, t.Ref)
	}
	return nil, typeMismatch(p, t.Name(), ir.KindOf(raw))
}

func (r *Resolver) array(t schema.Type, raw any, p path, depth int) (ir.Value, error) {
	if err := r.depthCheck(p, depth); err != nil {
		return nil, err
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, typeMismatch(p, t.Name(), ir.KindOf(raw))
	}
	out := make(ir.Array, len(items))
	for i, item := range items {
		ip := p.index(i)
		if item == nil && t.Elem.Kind != schema.KindAny {
			return nil, typeMismatch(ip, t.Elem.Name(), ir.KindNull)
		}
		v, err := r.value(*t.Elem, item, ip, depth)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Resolver) mapping(t schema.Type, raw any, p path, depth int) (ir.Value, error) {
	if err := r.depthCheck(p, depth); err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, typeMismatch(p, t.Name(), ir.KindOf(raw))
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Sorted so the first reported error is the same on every run.
	slices.Sort(keys)

	out := make(ir.Object, len(m))
	for _, k := range keys {
		kp := p.key(k)
		if t.Key.Kind == schema.KindInteger {
			if _, err := strconv.ParseInt(k, 10, 64); err != nil {
				return nil, typeMismatch(kp, "integer key", "string key")
			}
		}
		item := m[k]
		if item == nil && t.Elem.Kind != schema.KindAny {
			return nil, typeMismatch(kp, t.Elem.Name(), ir.KindNull)
		}
		v, err := r.value(*t.Elem, item, kp, depth)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// anyDepth measures how deep raw nests, stopping once limit is passed.
func anyDepth(raw any, limit int) int {
	type frame struct {
		v     any
		depth int
	}
	deepest := 0
	stack := []frame{{raw, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.depth > deepest {
			deepest = top.depth
			if deepest > limit {
				return deepest
			}
		}
		switch v := top.v.(type) {
		case []any:
			for _, e := range v {
				stack = append(stack, frame{e, top.depth + 1})
			}
		case map[string]any:
			for _, e := range v {
				stack = append(stack, frame{e, top.depth + 1})
			}
		}
	}
	return deepest
}
