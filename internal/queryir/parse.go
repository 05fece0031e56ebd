package queryir

import (
	"regexp"
	"strings"

	"github.com/roach88/nullg/internal/ir"
)

// ParseFilter validates a filter and converts it into a Predicate.
//
// The filter must be a mapping. Field keys whose value is a mapping of
// operators become operator predicates joined by AND; any other value is an
// implicit $eq. Keys are processed in sorted order, so equal filters
// produce equal predicates.
func ParseFilter(expr any) (Predicate, error) {
	if err := ValidateFilter(expr); err != nil {
		return nil, err
	}
	v, err := ir.FromRaw(expr)
	if err != nil {
		return nil, malformed("", "%v", err)
	}
	doc, ok := v.(ir.Object)
	if !ok {
		return nil, malformed("", "filter must be a mapping, got %s", ir.KindOf(v))
	}
	return parseDocument(doc, "")
}

func parseDocument(doc ir.Object, path string) (Predicate, error) {
	var parts []Predicate
	for _, key := range doc.SortedKeys() {
		val := doc[key]
		kp := keyPath(path, key)

		switch key {
		case "$and", "$or", "$nor":
			preds, err := parseClauses(val, kp)
			if err != nil {
				return nil, err
			}
			switch key {
			case "$and":
				parts = append(parts, And{Predicates: preds})
			case "$or":
				parts = append(parts, Or{Predicates: preds})
			default:
				parts = append(parts, Nor{Predicates: preds})
			}
			continue
		case "$not":
			inner, ok := val.(ir.Object)
			if !ok {
				return nil, malformed(kp, "$not takes a mapping")
			}
			p, err := parseDocument(inner, kp)
			if err != nil {
				return nil, err
			}
			parts = append(parts, Not{Predicate: p})
			continue
		}
		if strings.HasPrefix(key, OperatorPrefix) {
			return nil, malformed(kp, "operator %s must be applied to a field", key)
		}

		p, err := parseField(key, val, kp)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return joinAnd(parts), nil
}

func parseClauses(v ir.Value, path string) ([]Predicate, error) {
	arr, ok := v.(ir.Array)
	if !ok || len(arr) == 0 {
		return nil, malformed(path, "expected a non-empty list of filters")
	}
	preds := make([]Predicate, 0, len(arr))
	for i, elem := range arr {
		doc, ok := elem.(ir.Object)
		if !ok {
			return nil, malformed(indexPath(path, i), "expected a filter mapping")
		}
		p, err := parseDocument(doc, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func parseField(field string, v ir.Value, path string) (Predicate, error) {
	doc, ok := v.(ir.Object)
	if !ok || !isOperatorDocument(doc) {
		return Compare{Field: field, Op: OpEq, Value: v}, nil
	}
	for _, k := range doc.SortedKeys() {
		if !strings.HasPrefix(k, OperatorPrefix) {
			return nil, malformed(keyPath(path, k), "cannot mix operators and field names")
		}
	}
	return parseOperators(field, doc, path)
}

// isOperatorDocument reports whether any key of doc is an operator.
func isOperatorDocument(doc ir.Object) bool {
	for k := range doc {
		if strings.HasPrefix(k, OperatorPrefix) {
			return true
		}
	}
	return false
}

func parseOperators(field string, doc ir.Object, path string) (Predicate, error) {
	var parts []Predicate
	for _, op := range doc.SortedKeys() {
		val := doc[op]
		opPath := keyPath(path, op)

		switch op {
		case "$eq", "$ne", "$gt", "$gte", "$lt", "$lte":
			parts = append(parts, Compare{Field: field, Op: CompareOp(op), Value: val})
		case "$in", "$nin":
			arr, ok := val.(ir.Array)
			if !ok {
				return nil, malformed(opPath, "%s takes a list", op)
			}
			parts = append(parts, In{Field: field, Values: []ir.Value(arr), Negate: op == "$nin"})
		case "$exists":
			want, ok := truthy(val)
			if !ok {
				return nil, malformed(opPath, "$exists takes a boolean")
			}
			parts = append(parts, Exists{Field: field, Want: want})
		case "$regex":
			p, err := regexPredicate(field, val, opPath)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		case "$not":
			var inner Predicate
			switch nv := val.(type) {
			case ir.Object:
				if !isOperatorDocument(nv) {
					return nil, malformed(opPath, "$not takes an operator mapping")
				}
				p, err := parseField(field, nv, opPath)
				if err != nil {
					return nil, err
				}
				inner = p
			case ir.String:
				p, err := regexPredicate(field, nv, opPath)
				if err != nil {
					return nil, err
				}
				inner = p
			default:
				return nil, malformed(opPath, "$not takes an operator mapping or a pattern")
			}
			parts = append(parts, Not{Predicate: inner})
		default:
			// $and/$or/$nor are allowed operators but have no meaning on a field.
			return nil, malformed(opPath, "operator %s cannot be applied to field %s", op, field)
		}
	}
	return joinAnd(parts), nil
}

func regexPredicate(field string, v ir.Value, path string) (Predicate, error) {
	s, ok := v.(ir.String)
	if !ok {
		return nil, malformed(path, "$regex takes a string")
	}
	if _, err := regexp.Compile(string(s)); err != nil {
		return nil, malformed(path, "invalid pattern: %v", err)
	}
	return Regex{Field: field, Pattern: string(s)}, nil
}

func truthy(v ir.Value) (bool, bool) {
	switch b := v.(type) {
	case ir.Bool:
		return bool(b), true
	case ir.Int:
		return b != 0, true
	}
	return false, false
}

func joinAnd(parts []Predicate) Predicate {
	switch len(parts) {
	case 0:
		return MatchAll{}
	case 1:
		return parts[0]
	}
	return And{Predicates: parts}
}
