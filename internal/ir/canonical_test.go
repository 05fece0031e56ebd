package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", String("hello"), `"hello"`},
		{"html not escaped", String("<a&b>"), `"<a&b>"`},
		{"line separator literal", String("a\u2028b"), "\"a\u2028b\""},
		{"control escaped", String("a\x01\n"), `"a\u0001\n"`},
		{"quote and backslash", String(`"\`), `"\"\\"`},
		{"int", Int(-100), "-100"},
		{"max int64", Int(math.MaxInt64), "9223372036854775807"},
		{"float", Float(0.1), "0.1"},
		{"float integral", Float(100), "100"},
		{"float negative zero", Float(math.Copysign(0, -1)), "0"},
		{"float large", Float(1e21), "1e+21"},
		{"float small", Float(1e-7), "1e-7"},
		{"bool", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"nested", Object{"z": Array{Int(1)}, "a": Object{"y": Null{}, "x": Bool(false)}}, `{"a":{"x":false,"y":null},"z":[1]}`},
		{"raw tree", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute normalises to U+00E9.
	got, err := MarshalCanonical(String("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(got))
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(Object{"x": Float(math.NaN())})
	assert.Error(t, err)

	_, err = MarshalCanonical(Array{Float(math.Inf(1))})
	assert.Error(t, err)
}

func TestRecordHash(t *testing.T) {
	a := Object{"id": String("1"), "mass": Int(100)}
	b := Object{"mass": Int(100), "id": String("1")}

	ha, err := RecordHash("UnitData", a)
	require.NoError(t, err)
	hb, err := RecordHash("UnitData", b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb, "key order must not affect the hash")
	assert.Len(t, ha, 64)

	hc := MustRecordHash("EraItem", a)
	assert.NotEqual(t, ha, hc, "item class is part of the hash")

	hd := MustRecordHash("UnitData", a.With("mass", Int(101)))
	assert.NotEqual(t, ha, hd)
}

func TestHashWithDomainSeparation(t *testing.T) {
	assert.NotEqual(t, hashWithDomain("a", []byte("bc")), hashWithDomain("ab", []byte("c")))
}
