package ir

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"github.com/goccy/go-json"
)

// Value is a sealed interface over the typed value kinds a resolved record
// may contain. Only Null, String, Int, Float, Bool, Array and Object
// implement it.
type Value interface {
	value() // sealed
}

// Null is an explicit JSON null.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value. Integers are always int64.
type Int int64

func (Int) value() {}

// Float is a floating point value. NaN and infinities are rejected at
// every boundary that produces a Float.
type Float float64

func (Float) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered sequence of values.
type Array []Value

func (Array) value() {}

// Object maps string keys to values. Iterate with SortedKeys for a
// deterministic order.
type Object map[string]Value

func (Object) value() {}

// Pair is a key/value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is shorthand for Pair.
//
//	ir.NewObject(ir.O("name", ir.String("Atlas")), ir.O("mass", ir.Int(100)))
func O(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject builds an Object from pairs. Later pairs win on duplicate keys.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// With returns a copy of obj with key set to v. obj is left untouched.
func (obj Object) With(key string, v Value) Object {
	out := make(Object, len(obj)+1)
	for k, existing := range obj {
		out[k] = existing
	}
	out[key] = v
	return out
}

// Get returns the value at key, or Null when the key is absent.
func (obj Object) Get(key string) Value {
	if v, ok := obj[key]; ok {
		return v
	}
	return Null{}
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 orders strings by UTF-16 code unit. Go's native string
// comparison works on UTF-8 bytes, which differs for supplementary planes.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON encodes obj with sorted keys. Use MarshalCanonical for hashing.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes arr element by element.
func (arr Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalValue encodes any Value as JSON.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case Float:
		return formatFloat(float64(val))
	case Bool:
		return strconv.AppendBool(nil, bool(val)), nil
	case Array:
		return val.MarshalJSON()
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// formatFloat renders f the way ECMAScript Number.prototype.toString does,
// which RFC 8785 requires for canonical numbers.
func formatFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v", f)
	}
	if f == 0 {
		return []byte("0"), nil
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// Go writes e-07 / e+21; ECMAScript writes e-7 / e+21.
		n := len(b)
		if n >= 4 && b[n-2] == '0' && (b[n-3] == '-' || b[n-3] == '+') {
			b = append(b[:n-2], b[n-1])
		}
	}
	return b, nil
}

// Equal reports whether a and b hold the same typed value. Int and Float are
// never equal to each other.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		switch b.(type) {
		case nil, Null:
			return true
		}
		return false
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// ToNative converts a Value into plain Go values (map[string]any, []any,
// string, int64, float64, bool, nil) for encoders that do not know about
// the sealed interface, such as yaml.v3.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToNative(elem)
		}
		return out
	}
	return nil
}

// Clone returns a deep copy of v. Scalars are immutable and returned as-is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	}
	return v
}
