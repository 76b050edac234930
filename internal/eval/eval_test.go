package eval_test

import (
	"regexp"
	"testing"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/catalog"
	"github.com/nullsafe/supercel/internal/celerr"
	"github.com/nullsafe/supercel/internal/eval"
	"github.com/nullsafe/supercel/internal/exprparse"
	"github.com/nullsafe/supercel/internal/rewrite"
	"github.com/nullsafe/supercel/internal/value"
)

func evalSource(t *testing.T, src string, vars *value.MapValue, decl catalog.Declaration) (value.Value, error) {
	t.Helper()
	expr, err := exprparse.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	rewritten := rewrite.Rewrite(expr, decl)
	env := eval.NewEnvironment(vars, decl, nil)
	return eval.Eval(rewritten, env)
}

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want value.Value
	}{
		{"int_add", "1 + 2", value.Int(3)},
		{"int_sub", "5 - 2", value.Int(3)},
		{"int_mul", "3 * 4", value.Int(12)},
		{"int_div", "7 / 2", value.Int(3)},
		{"int_mod", "7 % 2", value.Int(1)},
		{"float_promote", "1 + 2.5", value.Float(3.5)},
		{"string_concat", `"a" + "b"`, value.String("ab")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := evalSource(t, tc.src, nil, catalog.Declaration{})
			if err != nil {
				t.Fatalf("eval(%q): %v", tc.src, err)
			}
			if !value.Equal(got, tc.want) {
				t.Errorf("eval(%q) = %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}

func TestEvalDivisionByZeroIsFatal(t *testing.T) {
	_, err := evalSource(t, "1 / 0", nil, catalog.Declaration{})
	if err == nil || celerr.IsTolerated(err) {
		t.Fatalf("expected fatal division-by-zero error, got %v", err)
	}
}

func TestEvalRelationAndTernary(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want value.Value
	}{
		{"eq_true", "1 == 1", value.Bool(true)},
		{"lt", "1 < 2", value.Bool(true)},
		{"ge_false", "1 >= 2", value.Bool(false)},
		{"ternary_then", "true ? 1 : 2", value.Int(1)},
		{"ternary_else", "false ? 1 : 2", value.Int(2)},
		{"and_short_circuit", "false && (1 / 0 == 0)", value.Bool(false)},
		{"or_short_circuit", "true || (1 / 0 == 0)", value.Bool(true)},
		{"in_list", "1 in [1, 2, 3]", value.Bool(true)},
		{"not_in_list", "4 in [1, 2, 3]", value.Bool(false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := evalSource(t, tc.src, nil, catalog.Declaration{})
			if err != nil {
				t.Fatalf("eval(%q): %v", tc.src, err)
			}
			if !value.Equal(got, tc.want) {
				t.Errorf("eval(%q) = %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}

func TestEvalNullOrderingIsTolerated(t *testing.T) {
	vars := value.NewMap()
	vars.Set(value.StringKey("missing"), value.Null())
	_, err := evalSource(t, "missing < 5", vars, catalog.Declaration{})
	if err == nil || !celerr.IsTolerated(err) {
		t.Fatalf("expected tolerated error, got %v", err)
	}
}

func TestEvalHasAndHasFn(t *testing.T) {
	vars := value.NewMap()
	m := value.NewMap()
	m.Set(value.StringKey("a"), value.Int(1))
	vars.Set(value.StringKey("x"), value.Map(m))

	got, err := evalSource(t, "has(x.a)", vars, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Bool(true)) {
		t.Errorf("has(x.a) = (%v, %v), want (true, nil)", got, err)
	}

	got, err = evalSource(t, "has(x.missing)", vars, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Bool(false)) {
		t.Errorf("has(x.missing) = (%v, %v), want (false, nil)", got, err)
	}

	got, err = evalSource(t, `hasFn("toString")`, vars, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Bool(true)) {
		t.Errorf(`hasFn("toString") = (%v, %v), want (true, nil)`, got, err)
	}

	got, err = evalSource(t, `hasFn("device.missing")`, vars, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Bool(false)) {
		t.Errorf(`hasFn("device.missing") = (%v, %v), want (false, nil)`, got, err)
	}
}

func TestEvalHasFnDeclaredDeviceFunction(t *testing.T) {
	decl := catalog.Declaration{Device: catalog.Catalogue{"battery": nil}}
	got, err := evalSource(t, `hasFn("device.battery")`, nil, decl)
	if err != nil || !value.Equal(got, value.Bool(true)) {
		t.Errorf(`hasFn("device.battery") = (%v, %v), want (true, nil)`, got, err)
	}
}

// A device.*/computed.* call reaching Eval directly (no rewriter guard, no
// declared catalogue at all) must downgrade to a tolerated UnknownFunction,
// not a fatal host-bridge error — it was never registered as callable.
func TestEvalUndeclaredHostCallIsTolerated(t *testing.T) {
	call := &ast.FunctionCall{Callee: &ast.Ident{Name: "foo"}, Receiver: &ast.Ident{Name: "device"}}
	env := eval.NewEnvironment(nil, catalog.Declaration{}, nil)
	_, err := eval.Eval(call, env)
	if err == nil || !celerr.IsTolerated(err) {
		t.Fatalf("expected tolerated error, got %v", err)
	}
}

// Same, but with a device catalogue declared for other names: a call to an
// undeclared fname under a declared object still must not reach the host
// bridge.
func TestEvalUndeclaredFnameUnderDeclaredObjectIsTolerated(t *testing.T) {
	decl := catalog.Declaration{Device: catalog.Catalogue{"battery": nil}}
	call := &ast.FunctionCall{Callee: &ast.Ident{Name: "foo"}, Receiver: &ast.Ident{Name: "device"}}
	env := eval.NewEnvironment(nil, decl, nil)
	_, err := eval.Eval(call, env)
	if err == nil || !celerr.IsTolerated(err) {
		t.Fatalf("expected tolerated error, got %v", err)
	}
}

func TestEvalMaybeIgnoresFirstOperand(t *testing.T) {
	got, err := evalSource(t, "maybe(1 / 0, 2, 3)", nil, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Int(2)) {
		t.Errorf("maybe(1/0, 2, 3) = (%v, %v), want (2, nil) — first operand must not be evaluated", got, err)
	}
}

func TestEvalConversionMethods(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want value.Value
	}{
		{"int_to_string", "42.intToString()", value.String("42")},
		{"to_int", `"7".toInt()`, value.Int(7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := evalSource(t, tc.src, nil, catalog.Declaration{})
			if err != nil {
				t.Fatalf("eval(%q): %v", tc.src, err)
			}
			if !value.Equal(got, tc.want) {
				t.Errorf("eval(%q) = %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}

// toBool's receiver must not be a bare "true"/"false" string *literal*
// (rule R1 would normalize that to a Bool before the call ever runs); a
// variable holding the same string is untouched by the atom rule.
func TestEvalToBoolOnVariable(t *testing.T) {
	vars := value.NewMap()
	vars.Set(value.StringKey("s"), value.String("true"))
	got, err := evalSource(t, "s.toBool()", vars, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Bool(true)) {
		t.Errorf(`s.toBool() = (%v, %v), want (true, nil)`, got, err)
	}
}

// P6: evaluating with an empty environment never surfaces a tolerated
// error's message as an Err after Downgrade (they all collapse to Null).
var toleratedMessagePattern = regexp.MustCompile(`Undeclared reference|Unknown function|Null can not be compared`)

func TestP6EmptyEnvironmentNeverLeaksToleratedMessages(t *testing.T) {
	exprs := []string{
		"nosuchvar",
		"nosuchvar == 1",
		"nosuchfunc()",
		"null < 1",
		"has(nosuchvar.x)",
		"a.b.c.d",
	}
	for _, src := range exprs {
		t.Run(src, func(t *testing.T) {
			expr, err := exprparse.Parse(src)
			if err != nil {
				t.Fatalf("Parse(%q): %v", src, err)
			}
			rewritten := rewrite.Rewrite(expr, catalog.Declaration{})
			env := eval.NewEnvironment(nil, catalog.Declaration{}, nil)
			v, evalErr := eval.Eval(rewritten, env)
			_, downgradedErr := celerr.Downgrade(v, evalErr)
			if downgradedErr != nil && toleratedMessagePattern.MatchString(downgradedErr.Error()) {
				t.Errorf("eval(%q) leaked tolerated message: %v", src, downgradedErr)
			}
		})
	}
}

func TestEvalListAndMapLiterals(t *testing.T) {
	got, err := evalSource(t, "[1, 2, 3][1]", nil, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Int(2)) {
		t.Errorf("[1,2,3][1] = (%v, %v), want (2, nil)", got, err)
	}

	got, err = evalSource(t, `{"a": 1, "b": 2}.a`, nil, catalog.Declaration{})
	if err != nil || !value.Equal(got, value.Int(1)) {
		t.Errorf(`{"a":1,"b":2}.a = (%v, %v), want (1, nil)`, got, err)
	}
}
