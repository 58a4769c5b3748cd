package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal ints", Int(5), Int(5), true},
		{"unequal ints", Int(5), Int(6), false},
		{"int vs string", Int(5), String("5"), false},
		{"equal strings", String("x"), String("x"), true},
		{"nulls", Null{}, Null{}, true},
		{"null vs bool", Null{}, Bool(false), false},
		{"equal arrays", Array{Int(1), Int(2)}, Array{Int(1), Int(2)}, true},
		{"arrays differ in length", Array{Int(1)}, Array{Int(1), Int(2)}, false},
		{"equal objects", Object{"a": Int(1)}, Object{"a": Int(1)}, true},
		{"objects differ in key", Object{"a": Int(1)}, Object{"b": Int(1)}, false},
		{"equal tagged", Tagged{"c", Int(1)}, Tagged{"c", Int(1)}, true},
		{"tagged differ in tag", Tagged{"c", Int(1)}, Tagged{"f", Int(1)}, false},
		{"tagged vs payload", Tagged{"c", Int(1)}, Int(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "null", KindOf(Null{}))
	assert.Equal(t, "string", KindOf(String("x")))
	assert.Equal(t, "int", KindOf(Int(1)))
	assert.Equal(t, "bool", KindOf(Bool(true)))
	assert.Equal(t, "array", KindOf(Array{}))
	assert.Equal(t, "object", KindOf(Object{}))
	assert.Equal(t, "tagged", KindOf(Tagged{"t", Int(1)}))
}

func TestArrayHead(t *testing.T) {
	assert.Equal(t, "point", Array{String("point"), Int(1), Int(2)}.Head())
	assert.Equal(t, "", Array{}.Head())
	assert.Equal(t, "", Array{Int(1)}.Head())
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"name":  "circle",
		"r":     3,
		"open":  false,
		"tags":  []any{"a", "b"},
		"extra": nil,
	})
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, String("circle"), obj["name"])
	assert.Equal(t, Int(3), obj["r"])
	assert.Equal(t, Bool(false), obj["open"])
	assert.Equal(t, Array{String("a"), String("b")}, obj["tags"])
	assert.Equal(t, Null{}, obj["extra"])
}

func TestFromGoRejectsFloats(t *testing.T) {
	_, err := FromGo(1.5)
	require.Error(t, err)

	_, err = FromGo([]any{1, 2.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1]")
}

func TestUnmarshalValueRoundTrip(t *testing.T) {
	original := Object{
		"shape": Array{String("point"), Int(1), Int(2)},
		"temp":  Tagged{Tag: "celsius", Value: Int(20)},
	}

	data, err := MarshalValue(original)
	require.NoError(t, err)

	decoded, err := UnmarshalValue(data)
	require.NoError(t, err)
	assert.True(t, Equal(original, decoded))
}

func TestUnmarshalValueRejectsFloats(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"x": 1.5}`))
	require.Error(t, err)

	_, err = UnmarshalValue([]byte(`1e3`))
	require.Error(t, err)
}

func TestSortedKeysUTF16Order(t *testing.T) {
	obj := Object{"b": Int(1), "a": Int(2), "！": Int(3), "\U0001D306": Int(4)}
	assert.Equal(t, []string{"a", "b", "\U0001D306", "！"}, obj.SortedKeys())
}
