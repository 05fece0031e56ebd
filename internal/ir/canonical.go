package ir

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON. It is the only encoding
// used for record content hashes.
//
// Differences from MarshalValue:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping
//   - strings NFC normalised
//   - numbers in ECMAScript form; NaN and infinities rejected
//
// v may be a Value or a raw tree.
func MarshalCanonical(v any) ([]byte, error) {
	if _, ok := v.(Value); !ok {
		converted, err := FromRaw(v)
		if err != nil {
			return nil, fmt.Errorf("canonical json: %w", err)
		}
		v = converted
	}
	return marshalCanonical(v.(Value))
}

func marshalCanonical(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return marshalCanonicalString(string(val))
	case Int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case Float:
		return formatFloat(float64(val))
	case Bool:
		return strconv.AppendBool(nil, bool(val)), nil
	case Array:
		return marshalCanonicalArray(val)
	case Object:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString writes s as an RFC 8785 string: NFC normalised,
// escaping only quote, backslash and control characters.
func marshalCanonicalString(s string) ([]byte, error) {
	const hex = "0123456789abcdef"
	s = norm.NFC.String(s)
	buf := make([]byte, 0, len(s)+2)
	buf = append(buf, '"')
	for _, r := range s {
		switch {
		case r == '"':
			buf = append(buf, '\\', '"')
		case r == '\\':
			buf = append(buf, '\\', '\\')
		case r == '\b':
			buf = append(buf, '\\', 'b')
		case r == '\f':
			buf = append(buf, '\\', 'f')
		case r == '\n':
			buf = append(buf, '\\', 'n')
		case r == '\r':
			buf = append(buf, '\\', 'r')
		case r == '\t':
			buf = append(buf, '\\', 't')
		case r < 0x20:
			buf = append(buf, '\\', 'u', '0', '0', hex[r>>4], hex[r&0xf])
		default:
			buf = utf8.AppendRune(buf, r)
		}
	}
	return append(buf, '"'), nil
}

func marshalCanonicalArray(arr Array) ([]byte, error) {
	buf := []byte{'['}
	for i, elem := range arr {
		if i > 0 {
			buf = append(buf, ',')
		}
		eb, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		buf = append(buf, eb...)
	}
	return append(buf, ']'), nil
}

func marshalCanonicalObject(obj Object) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := marshalCanonicalString(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}
