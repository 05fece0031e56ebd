package ir

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Raw kind names reported in type mismatch errors.
const (
	KindNull    = "null"
	KindString  = "string"
	KindInteger = "integer"
	KindFloat   = "float"
	KindBoolean = "boolean"
	KindArray   = "array"
	KindObject  = "object"
)

// DecodeRaw decodes a single JSON document into a raw tree. Numbers are kept
// as json.Number so integers survive without float rounding.
func DecodeRaw(data []byte) (any, error) {
	return DecodeRawReader(bytes.NewReader(data))
}

// DecodeRawReader is DecodeRaw over a reader. Trailing data after the first
// document is an error.
func DecodeRawReader(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode raw json: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode raw json: unexpected data after top-level value")
	}
	return raw, nil
}

// KindOf names the JSON kind of a raw value.
func KindOf(raw any) string {
	switch v := raw.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBoolean
	case json.Number:
		if _, ok := numberAsInt(v); ok {
			return KindInteger
		}
		return KindFloat
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case float32:
		return floatKind(float64(v))
	case float64:
		return floatKind(v)
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	case Value:
		return kindOfValue(v)
	}
	return fmt.Sprintf("%T", raw)
}

func floatKind(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return KindInteger
	}
	return KindFloat
}

func kindOfValue(v Value) string {
	switch v.(type) {
	case Null:
		return KindNull
	case String:
		return KindString
	case Int:
		return KindInteger
	case Float:
		return KindFloat
	case Bool:
		return KindBoolean
	case Array:
		return KindArray
	case Object:
		return KindObject
	}
	return fmt.Sprintf("%T", v)
}

// AsInt returns raw as an int64 when it is an integral number.
func AsInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		return numberAsInt(v)
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), v <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	case float32:
		return floatAsInt(float64(v))
	case float64:
		return floatAsInt(v)
	case Int:
		return int64(v), true
	case Float:
		return floatAsInt(float64(v))
	}
	return 0, false
}

// AsFloat returns raw as a float64 when it is any finite number.
func AsFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil && !math.IsInf(f, 0)
	case float32:
		return float64(v), !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case Float:
		return float64(v), true
	}
	if n, ok := AsInt(raw); ok {
		return float64(n), true
	}
	return 0, false
}

func numberAsInt(n json.Number) (int64, bool) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, false
	}
	return floatAsInt(f)
}

func floatAsInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// FromRaw converts a raw tree into a Value without any schema. Integral
// numbers become Int, other numbers Float. Values that are already typed
// pass through.
func FromRaw(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case []any:
		arr := make(Array, len(v))
		for i, elem := range v {
			ev, err := FromRaw(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(v))
		for k, elem := range v {
			ev, err := FromRaw(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	}
	if n, ok := AsInt(raw); ok {
		if num, isNumber := raw.(json.Number); isNumber && !isIntegerLiteral(num) {
			return Float(float64(n)), nil
		}
		return Int(n), nil
	}
	if f, ok := AsFloat(raw); ok {
		return Float(f), nil
	}
	return nil, fmt.Errorf("unsupported raw value %T", raw)
}

// isIntegerLiteral reports whether n was written without a fraction or
// exponent, so 3.0 stays a float when no schema says otherwise.
func isIntegerLiteral(n json.Number) bool {
	_, err := strconv.ParseInt(string(n), 10, 64)
	return err == nil
}
