package celfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

func TestParse(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want queryir.Filter
	}{
		{"empty", "", nil},
		{"equal string", `name == "Bob"`, queryir.Where("name", queryir.Equal, ir.String("Bob"))},
		{"equal int", `id == 5`, queryir.Where("id", queryir.Equal, ir.Int(5))},
		{"negative int", `zustatek == -5`, queryir.Where("zustatek", queryir.Equal, ir.Int(-5))},
		{"equal float", `cena == 1.5`, queryir.Where("cena", queryir.Equal, ir.Float(1.5))},
		{"not equal null", `age != null`, queryir.Where("age", queryir.NotEqual, ir.Null{})},
		{"equal bool", `active == true`, queryir.Where("active", queryir.Equal, ir.Bool(true))},
		{"bare field", `active`, queryir.Where("active", queryir.Equal, ir.Bool(true))},
		{"negated field", `!active`, queryir.Where("active", queryir.Equal, ir.Bool(false))},
		{"dotted field", `firma.kod == "ACME"`, queryir.Where("firma.kod", queryir.Equal, ir.String("ACME"))},
		{"less than", `sumCelkem < 100`, queryir.Where("sumCelkem", queryir.Operator("<"), ir.Int(100))},
		{"greater or equal", `datVyst >= "2024-01-01"`, queryir.Where("datVyst", queryir.Operator(">="), ir.String("2024-01-01"))},
		{"literal on the left mirrors", `100 < sumCelkem`, queryir.Where("sumCelkem", queryir.Operator(">"), ir.Int(100))},
		{"in", `id in [1, 2, 3]`, queryir.Where("id", queryir.In, ir.NewList(ir.Int(1), ir.Int(2), ir.Int(3)))},
		{"not in", `!(kod in ["a", "b"])`, queryir.Where("kod", queryir.NotIn, ir.Strings("a", "b"))},
		{"negated equality", `!(kod == "a")`, queryir.Where("kod", queryir.NotEqual, ir.String("a"))},
		{"negated inequality", `!(kod != "a")`, queryir.Where("kod", queryir.Equal, ir.String("a"))},
		{"negated less than", `!(zustatek < 5)`, queryir.Where("zustatek", queryir.Operator(">="), ir.Int(5))},
		{"double negation", `!!active`, queryir.Where("active", queryir.Equal, ir.Bool(true))},
		{"unsigned int", `id == 7u`, queryir.Where("id", queryir.Equal, ir.Int(7))},
		{"starts with", `kod.startsWith("FV")`, queryir.Where("kod", queryir.StartsWith, ir.String("FV"))},
		{"ends with", `kod.endsWith("24")`, queryir.Where("kod", queryir.EndsWith, ir.String("24"))},
		{"contains", `nazev.contains("s.r.o")`, queryir.Where("nazev", queryir.Contains, ir.String("s.r.o"))},
		{
			name: "and chain is flattened",
			text: `a == 1 && b == 2 && c == 3`,
			want: queryir.AllOf(
				queryir.Where("a", queryir.Equal, ir.Int(1)),
				queryir.Where("b", queryir.Equal, ir.Int(2)),
				queryir.Where("c", queryir.Equal, ir.Int(3)),
			),
		},
		{
			name: "negated and becomes or",
			text: `!(a == 1 && b == 2)`,
			want: queryir.AnyOf(
				queryir.Where("a", queryir.NotEqual, ir.Int(1)),
				queryir.Where("b", queryir.NotEqual, ir.Int(2)),
			),
		},
		{
			name: "negated or becomes and",
			text: `!(active || stav != "x")`,
			want: queryir.AllOf(
				queryir.Where("active", queryir.Equal, ir.Bool(false)),
				queryir.Where("stav", queryir.Equal, ir.String("x")),
			),
		},
		{
			name: "mixed nesting",
			text: `kod.startsWith("FV") && (stav == null || stav != "x")`,
			want: queryir.AllOf(
				queryir.Where("kod", queryir.StartsWith, ir.String("FV")),
				queryir.AnyOf(
					queryir.Where("stav", queryir.Equal, ir.Null{}),
					queryir.Where("stav", queryir.NotEqual, ir.String("x")),
				),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		unsupported bool
	}{
		{"syntax error", `a ==`, false},
		{"literal only", `true`, true},
		{"function call", `size(kod) > 1`, true},
		{"field on both sides", `a == b`, true},
		{"in without list", `a in b`, true},
		{"negated pattern", `!kod.startsWith("a")`, true},
		{"arithmetic value", `a == 1 + 2`, true},
		{"negated group with pattern", `!(a == 1 && kod.endsWith("x"))`, true},
		{"unsigned overflow", `id == 18446744073709551615u`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			if tt.unsupported {
				assert.ErrorIs(t, err, ErrUnsupported)
			}
		})
	}
}
