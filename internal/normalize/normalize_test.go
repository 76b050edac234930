package normalize_test

import (
	"reflect"
	"testing"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/normalize"
	"github.com/nullsafe/supercel/internal/value"
)

func TestValueCoercesBooleanStrings(t *testing.T) {
	cases := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"true_string", value.String("true"), value.Bool(true)},
		{"false_string", value.String("false"), value.Bool(false)},
		{"other_string_untouched", value.String("maybe"), value.String("maybe")},
		{"numeric_string_untouched", value.String("42"), value.String("42")},
		{"bool_untouched", value.Bool(true), value.Bool(true)},
		{"int_untouched", value.Int(5), value.Int(5)},
		{"null_untouched", value.Null(), value.Null()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalize.Value(tc.in); !value.Equal(got, tc.want) {
				t.Errorf("Value(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestValueRecursesThroughListAndMap(t *testing.T) {
	list := value.List([]value.Value{value.String("true"), value.String("false"), value.Int(3)})
	got := normalize.Value(list)
	want := value.List([]value.Value{value.Bool(true), value.Bool(false), value.Int(3)})
	if !value.Equal(got, want) {
		t.Errorf("List normalize = %v, want %v", got, want)
	}

	m := value.NewMap()
	m.Set(value.StringKey("a"), value.String("true"))
	m.Set(value.StringKey("b"), value.String("x"))
	got = normalize.Value(value.Map(m))
	gotMap := got.MapValue()
	if av, _ := gotMap.Get(value.StringKey("a")); !value.Equal(av, value.Bool(true)) {
		t.Errorf("map[a] = %v, want Bool(true)", av)
	}
	if bv, _ := gotMap.Get(value.StringKey("b")); !value.Equal(bv, value.String("x")) {
		t.Errorf("map[b] = %v, want String(x)", bv)
	}
}

func TestValueIsIdempotent(t *testing.T) {
	inputs := []value.Value{
		value.String("true"),
		value.String("maybe"),
		value.List([]value.Value{value.String("false"), value.Int(1)}),
	}
	for _, in := range inputs {
		once := normalize.Value(in)
		twice := normalize.Value(once)
		if !value.Equal(once, twice) {
			t.Errorf("Value not idempotent for %v: once=%v twice=%v", in, once, twice)
		}
	}
}

func TestAtomCoercesBooleanStrings(t *testing.T) {
	cases := []struct {
		name string
		in   ast.AtomLiteral
		want ast.AtomLiteral
	}{
		{"true_string", ast.StringLit("true"), ast.BoolLit(true)},
		{"false_string", ast.StringLit("false"), ast.BoolLit(false)},
		{"other_untouched", ast.StringLit("x"), ast.StringLit("x")},
		{"non_string_untouched", ast.IntLit(1), ast.IntLit(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalize.Atom(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Atom(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
