package queryir

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/roach88/nullg/internal/ir"
)

// OperatorPrefix marks a mapping key as an operator rather than a field name.
const OperatorPrefix = "$"

// DefaultMaxDepth bounds the container nesting of a checked expression.
const DefaultMaxDepth = 64

// filterOperators is the complete set of operators a filter may use.
var filterOperators = []string{
	"$eq", "$ne", "$gt", "$gte", "$lt", "$lte",
	"$in", "$nin",
	"$regex", "$exists",
	"$and", "$or", "$nor", "$not",
}

// deniedStages are the pipeline stages that write outside the query.
var deniedStages = []string{"$merge", "$out"}

type mode int

const (
	allowList mode = iota
	denyList
)

// Policy is a structural operator check. The zero value is unusable; start
// from FilterPolicy or PipelinePolicy.
type Policy struct {
	mode     mode
	keys     map[string]bool
	code     ErrorCode
	maxDepth int
}

// FilterPolicy rejects every operator outside the filter allow-list.
var FilterPolicy = Policy{mode: allowList, keys: setOf(filterOperators), code: ErrCodeOperatorNotAllowed, maxDepth: DefaultMaxDepth}

// PipelinePolicy rejects only the deny-listed write stages.
var PipelinePolicy = Policy{mode: denyList, keys: setOf(deniedStages), code: ErrCodeStageNotAllowed, maxDepth: DefaultMaxDepth}

func setOf(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// FilterOperators lists the filter allow-list, sorted.
func FilterOperators() []string {
	out := slices.Clone(filterOperators)
	slices.Sort(out)
	return out
}

// DeniedStages lists the pipeline deny-list, sorted.
func DeniedStages() []string {
	out := slices.Clone(deniedStages)
	slices.Sort(out)
	return out
}

// WithMaxDepth returns a copy of p with a different nesting limit.
func (p Policy) WithMaxDepth(n int) Policy {
	if n > 0 {
		p.maxDepth = n
	}
	return p
}

// Permits reports whether a single mapping key passes the policy. Keys
// without the operator prefix are field names and always pass.
func (p Policy) Permits(key string) bool {
	if len(key) == 0 || key[:1] != OperatorPrefix {
		return true
	}
	if p.mode == allowList {
		return p.keys[key]
	}
	return !p.keys[key]
}

// ValidateFilter checks a filter expression against the allow-list.
func ValidateFilter(expr any) error {
	return FilterPolicy.Check(expr)
}

// ValidatePipeline checks a pipeline expression against the deny-list.
func ValidatePipeline(expr any) error {
	return PipelinePolicy.Check(expr)
}

type frame struct {
	v     any
	path  string
	depth int
}

// Check walks expr depth-first with an explicit stack and returns the first
// rejected key. Keys of one mapping are checked in sorted order, so the
// reported key does not depend on map iteration.
func (p Policy) Check(expr any) error {
	stack := []frame{{v: expr}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := top.v.(type) {
		case map[string]any:
			children, err := p.checkMapping(top, len(v), func(k string) any { return v[k] }, keysOf(v))
			if err != nil {
				return err
			}
			stack = append(stack, children...)
		case ir.Object:
			children, err := p.checkMapping(top, len(v), func(k string) any { return v[k] }, v.SortedKeys())
			if err != nil {
				return err
			}
			stack = append(stack, children...)
		case []any:
			if err := p.checkDepth(top); err != nil {
				return err
			}
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, frame{v: v[i], path: indexPath(top.path, i), depth: top.depth + 1})
			}
		case ir.Array:
			if err := p.checkDepth(top); err != nil {
				return err
			}
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, frame{v: v[i], path: indexPath(top.path, i), depth: top.depth + 1})
			}
		default:
			if !isScalar(top.v) {
				return malformed(top.path, "unsupported value of type %T", top.v)
			}
		}
	}
	return nil
}

func (p Policy) checkDepth(f frame) error {
	if f.depth >= p.maxDepth {
		return &SecurityError{Code: ErrCodeDepthExceeded, Path: f.path, Message: "expression nests too deeply"}
	}
	return nil
}

// checkMapping validates the keys of one mapping and returns its children,
// ordered so the first key is popped first.
func (p Policy) checkMapping(f frame, n int, get func(string) any, keys []string) ([]frame, error) {
	if err := p.checkDepth(f); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if !p.Permits(k) {
			return nil, &SecurityError{Code: p.code, Key: k, Path: keyPath(f.path, k)}
		}
	}
	children := make([]frame, 0, n)
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		children = append(children, frame{v: get(k), path: keyPath(f.path, k), depth: f.depth + 1})
	}
	return children, nil
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func keyPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		ir.Null, ir.String, ir.Int, ir.Float, ir.Bool:
		return true
	}
	return false
}
