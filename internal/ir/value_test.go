package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = Bool(true)
	var _ Value = List{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{
		"zebra":  String("z"),
		"apple":  String("a"),
		"banana": String("b"),
	}

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestObjectSortedKeysUTF16(t *testing.T) {
	// U+E000 sorts before U+10000 in UTF-8 but after it in UTF-16
	obj := Object{
		"\U00010000": Int(1),
		"\uE000":     Int(2),
	}

	assert.Equal(t, []string{"\U00010000", "\uE000"}, obj.SortedKeys())
}

func TestObjectAccessors(t *testing.T) {
	obj := NewObject(
		O("kod", String("A1")),
		O("id", Int(7)),
		O("vazby", NewList(NewObject(O("typVazbyK", String("x"))))),
	)

	v, ok := obj.Get("kod")
	require.True(t, ok)
	assert.Equal(t, String("A1"), v)

	_, ok = obj.Get("missing")
	assert.False(t, ok)

	assert.Len(t, obj.List("vazby"), 1)
	assert.Nil(t, obj.List("kod"))
	assert.Nil(t, obj.List("missing"))

	text, ok := obj.Text("id")
	require.True(t, ok)
	assert.Equal(t, "7", text)

	var nilObj Object
	_, ok = nilObj.Get("kod")
	assert.False(t, ok)
}

func TestObjectClone(t *testing.T) {
	obj := NewObject(O("a", Int(1)))
	clone := obj.Clone()
	clone["b"] = Int(2)

	assert.Len(t, obj, 1)
	assert.Len(t, clone, 2)
}

func TestText(t *testing.T) {
	tests := []struct {
		name   string
		input  Value
		want   string
		wantOK bool
	}{
		{"string", String("Bob"), "Bob", true},
		{"int", Int(-3), "-3", true},
		{"float", Float(12.5), "12.5", true},
		{"float whole", Float(3), "3", true},
		{"bool", Bool(true), "true", true},
		{"null", Null{}, "", false},
		{"list", List{}, "", false},
		{"object", Object{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Text(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(String("")))
	assert.False(t, IsNull(List{}))
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"winstrom":{"@rowCount":"3","adresar":[{"id":12,"cena":1.25,"platce":true,"poznam":null}]}}`))
	require.NoError(t, err)

	root, ok := v.(Object)
	require.True(t, ok)
	envelope, ok := root["winstrom"].(Object)
	require.True(t, ok)
	assert.Equal(t, String("3"), envelope["@rowCount"])

	records := envelope.List("adresar")
	require.Len(t, records, 1)
	rec := records[0].(Object)
	assert.Equal(t, Int(12), rec["id"])
	assert.Equal(t, Float(1.25), rec["cena"])
	assert.Equal(t, Bool(true), rec["platce"])
	assert.Equal(t, Null{}, rec["poznam"])
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte(`{"winstrom":`))
	assert.Error(t, err)
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Null{}},
		{"bool", true, Bool(true)},
		{"string", "x", String("x")},
		{"int", 5, Int(5)},
		{"int64", int64(6), Int(6)},
		{"float", 2.5, Float(2.5)},
		{"json int", json.Number("10"), Int(10)},
		{"json float", json.Number("1e3"), Float(1000)},
		{"strings", []string{"a", "b"}, List{String("a"), String("b")}},
		{"list", []any{1, "a"}, List{Int(1), String("a")}},
		{"map", map[string]any{"k": nil}, Object{"k": Null{}}},
		{"value passthrough", String("v"), String("v")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo([]any{make(chan int)})
	assert.ErrorContains(t, err, "list[0]")
}

func TestToGoRoundTrip(t *testing.T) {
	v := NewObject(
		O("kod", String("A")),
		O("n", Int(2)),
		O("tags", Strings("x", "y")),
		O("none", Null{}),
	)

	back, err := FromGo(ToGo(v))
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestMarshal(t *testing.T) {
	v := NewObject(
		O("b", NewList(Int(1), Float(0.5), Bool(false), Null{})),
		O("a", String("<x>")),
	)

	data, err := Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"<x>","b":[1,0.5,false,null]}`, string(data))

	data, err = json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":[1,0.5,false,null]}`, string(data))
}
