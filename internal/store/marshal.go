package store

import (
	"fmt"

	"github.com/roach88/nullg/internal/ir"
)

// marshalBody encodes a record as canonical JSON TEXT.
func marshalBody(body ir.Object) (string, error) {
	data, err := ir.MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody decodes stored JSON TEXT back into a raw tree.
func unmarshalBody(data string) (any, error) {
	raw, err := ir.DecodeRaw([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	return raw, nil
}

// defaultDecoder types a stored body without a schema.
func defaultDecoder(_ string, raw any) (ir.Object, error) {
	v, err := ir.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("stored body is %s, not an object", ir.KindOf(v))
	}
	return obj, nil
}

// recordID reads the id of a typed record. Integer ids are rendered in
// base 10.
func recordID(body ir.Object) (string, bool) {
	switch v := body["id"].(type) {
	case ir.String:
		if v != "" {
			return string(v), true
		}
	case ir.Int:
		return fmt.Sprintf("%d", int64(v)), true
	}
	return "", false
}
