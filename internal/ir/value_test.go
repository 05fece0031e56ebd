package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("Atlas")
	var _ Value = Int(100)
	var _ Value = Float(3.5)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := Object{"a": Int(1), "A": Int(2), "aa": Int(3), "aA": Int(4), "Aa": Int(5), "AA": Int(6)}
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestObjectSortedKeysSurrogates(t *testing.T) {
	// U+1F600 encodes as D83D DE00 in UTF-16, which sorts before U+FF61.
	obj := Object{"｡": Int(1), "\U0001F600": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "｡"}, obj.SortedKeys())
}

func TestObjectWithCopies(t *testing.T) {
	orig := NewObject(O("name", String("Atlas")))
	next := orig.With("mass", Int(100))

	assert.Len(t, orig, 1)
	assert.Len(t, next, 2)
	assert.Equal(t, Int(100), next["mass"])
	_, ok := orig["mass"]
	assert.False(t, ok)
}

func TestObjectGetAbsentIsNull(t *testing.T) {
	assert.Equal(t, Null{}, Object{}.Get("missing"))
	assert.Equal(t, Int(1), Object{"x": Int(1)}.Get("x"))
}

func TestMarshalValue(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"string", String("a<b"), `"a<b"`},
		{"int", Int(-7), "-7"},
		{"float", Float(2.5), "2.5"},
		{"integral float", Float(3), "3"},
		{"bool", Bool(false), "false"},
		{"array", Array{Int(1), Null{}}, "[1,null]"},
		{"object", Object{"b": Int(2), "a": Int(1)}, `{"a":1,"b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Null{}, nil))
	assert.True(t, Equal(Array{Int(1), String("x")}, Array{Int(1), String("x")}))
	assert.True(t, Equal(Object{"a": Bool(true)}, Object{"a": Bool(true)}))
	assert.False(t, Equal(Int(1), Float(1)))
	assert.False(t, Equal(Object{"a": Int(1)}, Object{"b": Int(1)}))
	assert.False(t, Equal(Array{Int(1)}, Array{Int(1), Int(2)}))
}

func TestToNative(t *testing.T) {
	v := Object{
		"name":  String("Atlas"),
		"mass":  Int(100),
		"speed": Float(4.5),
		"tags":  Array{String("assault")},
		"notes": Null{},
	}
	assert.Equal(t, map[string]any{
		"name":  "Atlas",
		"mass":  int64(100),
		"speed": 4.5,
		"tags":  []any{"assault"},
		"notes": nil,
	}, ToNative(v))
}

func TestClone(t *testing.T) {
	orig := Object{
		"mass":   Float(3),
		"tags":   Array{String("a")},
		"nested": Object{"walkMp": Int(3)},
	}
	cp := Clone(orig).(Object)
	require.Equal(t, orig, cp)

	cp["tags"].(Array)[0] = String("b")
	cp["nested"].(Object)["walkMp"] = Int(5)
	cp["extra"] = Null{}

	assert.Equal(t, String("a"), orig["tags"].(Array)[0])
	assert.Equal(t, Int(3), orig["nested"].(Object)["walkMp"])
	assert.Len(t, orig, 3)
	assert.Equal(t, Float(3), cp["mass"])
	assert.Equal(t, String("x"), Clone(String("x")))
	assert.Nil(t, Clone(nil))
}
