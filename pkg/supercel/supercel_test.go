package supercel_test

import (
	"encoding/json"
	"testing"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/catalog"
	"github.com/nullsafe/supercel/internal/value"
	"github.com/nullsafe/supercel/pkg/supercel"
)

// wireCtx mirrors the ctx_json shape the public API decodes: an
// expression (string or AST, left raw here), a "variables": {"map": {...}}
// envelope, and optional device/computed catalogues.
type wireCtx struct {
	Expression json.RawMessage          `json:"expression"`
	Variables  wireVars                 `json:"variables"`
	Device     map[string][]value.Value `json:"device,omitempty"`
	Computed   map[string][]value.Value `json:"computed,omitempty"`
}

type wireVars struct {
	Map map[string]value.Value `json:"map"`
}

func buildCtx(t *testing.T, expression string, vars map[string]value.Value, device, computed map[string][]value.Value) string {
	t.Helper()
	exprRaw, err := json.Marshal(expression)
	if err != nil {
		t.Fatal(err)
	}
	ctx := wireCtx{
		Expression: exprRaw,
		Variables:  wireVars{Map: vars},
		Device:     device,
		Computed:   computed,
	}
	raw, err := json.Marshal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func decodeEnvelope(t *testing.T, raw string) (value.Value, string) {
	t.Helper()
	var ok struct {
		Ok *value.Value `json:"Ok"`
	}
	if err := json.Unmarshal([]byte(raw), &ok); err == nil && ok.Ok != nil {
		return *ok.Ok, ""
	}
	var errEnv struct {
		Err string `json:"Err"`
	}
	if err := json.Unmarshal([]byte(raw), &errEnv); err != nil {
		t.Fatalf("result %q is neither Ok nor Err: %v", raw, err)
	}
	return value.Null(), errEnv.Err
}

// Scenario 1: literal arithmetic.
func TestScenario1LiteralArithmetic(t *testing.T) {
	ctx := buildCtx(t, "foo + bar == 142", map[string]value.Value{
		"foo": value.Int(100),
		"bar": value.Int(42),
	}, nil, nil)
	raw := supercel.EvaluateWithContext(ctx, nil)
	v, errMsg := decodeEnvelope(t, raw)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(v, value.Bool(true)) {
		t.Errorf("got %v, want Bool(true)", v)
	}
}

// Scenario 2: unknown object property, atomic rhs.
func TestScenario2UnknownPropertyAtomicRhs(t *testing.T) {
	ctx := buildCtx(t, "user.credits < 10", map[string]value.Value{
		"user": value.Map(value.NewMap()),
	}, nil, nil)
	raw := supercel.EvaluateWithContext(ctx, nil)
	v, errMsg := decodeEnvelope(t, raw)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(v, value.Bool(true)) {
		t.Errorf("got %v, want Bool(true)", v)
	}
}

// Scenario 3: unknown object property, non-atomic rhs.
func TestScenario3UnknownPropertyNonAtomicRhs(t *testing.T) {
	ctx := buildCtx(t, "user.credits < device.limit", map[string]value.Value{
		"user": value.Map(value.NewMap()),
	}, map[string][]value.Value{"limit": {}}, nil)
	raw := supercel.EvaluateWithContext(ctx, nil)
	v, errMsg := decodeEnvelope(t, raw)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(v, value.Bool(false)) {
		t.Errorf("got %v, want Bool(false)", v)
	}
}

// Scenario 4: declared but unimplemented host function in a relation.
func TestScenario4DeclaredUnimplementedHostFunction(t *testing.T) {
	ctx := buildCtx(t, "device.unknownFunc() > 5", nil,
		map[string][]value.Value{"knownFunc": {}}, nil)
	raw := supercel.EvaluateWithContext(ctx, nil)
	v, errMsg := decodeEnvelope(t, raw)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(v, value.Bool(false)) {
		t.Errorf("got %v, want Bool(false)", v)
	}
}

// Scenario 5: string atom "true" coerced via the variable normalizer.
func TestScenario5StringTrueCoerced(t *testing.T) {
	deviceMap := value.NewMap()
	deviceMap.Set(value.StringKey("flag"), value.String("true"))
	ctx := buildCtx(t, "device.flag == true", map[string]value.Value{
		"device": value.Map(deviceMap),
	}, nil, nil)
	raw := supercel.EvaluateWithContext(ctx, nil)
	v, errMsg := decodeEnvelope(t, raw)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(v, value.Bool(true)) {
		t.Errorf("got %v, want Bool(true)", v)
	}
}

// Scenario 6: has on a nested missing path.
func TestScenario6HasOnNestedMissingPath(t *testing.T) {
	userMap := value.NewMap()
	userMap.Set(value.StringKey("should_display"), value.Bool(true))
	ctx := buildCtx(t, "has(user.should_display.other_value)", map[string]value.Value{
		"user": value.Map(userMap),
	}, nil, nil)
	raw := supercel.EvaluateWithContext(ctx, nil)
	v, errMsg := decodeEnvelope(t, raw)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(v, value.Bool(false)) {
		t.Errorf("got %v, want Bool(false)", v)
	}
}

// Scenario 7: missing key equals null.
func TestScenario7MissingKeyEqualsNull(t *testing.T) {
	deviceMap := value.NewMap()
	deviceMap.Set(value.StringKey("existing_key"), value.String("test"))
	ctx := buildCtx(t, "device.nonexistent_key == null", map[string]value.Value{
		"device": value.Map(deviceMap),
	}, nil, nil)
	raw := supercel.EvaluateWithContext(ctx, nil)
	v, errMsg := decodeEnvelope(t, raw)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(v, value.Bool(true)) {
		t.Errorf("got %v, want Bool(true)", v)
	}
}

func TestParseToASTAndEvaluateAST(t *testing.T) {
	astJSON := supercel.ParseToAST("1 + 2")
	v := supercel.EvaluateAST(astJSON)
	got, errMsg := decodeEnvelope(t, v)
	if errMsg != "" {
		t.Fatalf("unexpected Err: %s", errMsg)
	}
	if !value.Equal(got, value.Int(3)) {
		t.Errorf("got %v, want Int(3)", got)
	}
}

func TestEvaluateBareRejectsUndeclaredAsNull(t *testing.T) {
	expr := &ast.Ident{Name: "missing"}
	v, err := supercel.EvaluateBare(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("got %v, want Null", v)
	}
}

// EvaluateBare/EvaluateAST run with no environment and no host bridge
// (spec §6 entry point 3). A bare device.*/computed.* call reaching eval
// unguarded (no catalogue declares it) must downgrade to Null like any
// other unknown function, not surface a host-bridge Err.
func TestEvaluateBareUndeclaredHostCallIsNull(t *testing.T) {
	expr := &ast.FunctionCall{Callee: &ast.Ident{Name: "foo"}, Receiver: &ast.Ident{Name: "device"}}
	v, err := supercel.EvaluateBare(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("got %v, want Null", v)
	}
}

func TestEvaluateGoNativeEntryPoint(t *testing.T) {
	vars := value.NewMap()
	vars.Set(value.StringKey("x"), value.Int(10))
	v, err := supercel.Evaluate("x * 2", vars, catalog.Declaration{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.Equal(v, value.Int(20)) {
		t.Errorf("got %v, want Int(20)", v)
	}
}

func TestEvaluateParseErrorSurfaces(t *testing.T) {
	_, err := supercel.Evaluate("1 +", nil, catalog.Declaration{}, nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEvaluateWithContextInvalidJSON(t *testing.T) {
	raw := supercel.EvaluateWithContext("not json", nil)
	_, errMsg := decodeEnvelope(t, raw)
	if errMsg == "" {
		t.Fatal("expected Err for invalid context JSON")
	}
}
