// Package supercel is the public embedding API for the null-safe CEL-like
// evaluator: the four entry points of spec §6, each offered both as a
// Go-native function and as a JSON-string function. The three evaluating
// JSON-string functions return the {"Ok":...}/{"Err":...} envelope;
// ParseToAST returns the bare AST JSON on success and the {"Err":...}
// envelope only on failure. The package mirrors the
// shape of funvibe-funxy's pkg/embed.VM — a single façade package wrapping
// the lexer, parser, rewriter and evaluator beneath it.
package supercel

import (
	"encoding/json"
	"fmt"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/catalog"
	"github.com/nullsafe/supercel/internal/celerr"
	"github.com/nullsafe/supercel/internal/eval"
	"github.com/nullsafe/supercel/internal/exprparse"
	"github.com/nullsafe/supercel/internal/hostbridge"
	"github.com/nullsafe/supercel/internal/normalize"
	"github.com/nullsafe/supercel/internal/rewrite"
	"github.com/nullsafe/supercel/internal/value"
)

// okEnvelope/errEnvelope implement spec §6's result envelope: every
// evaluating entry point returns exactly one of "Ok" or "Err"; ParseToAST
// uses only errEnvelope.
type okEnvelope struct {
	Ok value.Value `json:"Ok"`
}

type errEnvelope struct {
	Err string `json:"Err"`
}

func encodeOk(v value.Value) string {
	raw, err := json.Marshal(okEnvelope{Ok: v})
	if err != nil {
		return encodeErr(fmt.Errorf("supercel: encoding result: %w", err))
	}
	return string(raw)
}

func encodeErr(err error) string {
	raw, _ := json.Marshal(errEnvelope{Err: err.Error()})
	return string(raw)
}

func encodeResult(v value.Value, err error) string {
	if err != nil {
		return encodeErr(err)
	}
	return encodeOk(v)
}

// Parse parses source text into an Expression tree (parse_to_ast's
// Go-native form).
func Parse(source string) (ast.Expression, error) {
	return exprparse.Parse(source)
}

// ParseToAST implements entry point 4: parses expression to an AST JSON
// string. On success it returns the AST JSON itself, not wrapped in an
// {"Ok":...} envelope, so the result can be passed straight to EvaluateAST;
// a parse or encoding failure returns the {"Err":...} envelope.
func ParseToAST(expression string) string {
	expr, err := Parse(expression)
	if err != nil {
		return encodeErr(fmt.Errorf("supercel: parse error: %w", err))
	}
	raw, err := ast.MarshalExpression(expr)
	if err != nil {
		return encodeErr(fmt.Errorf("supercel: encoding AST: %w", err))
	}
	return string(raw)
}

// EvaluateBare implements entry point 3 (evaluate_ast)'s Go-native form: no
// environment and no host, only built-ins, atoms and operators. The
// expression is still rewritten first so has/hasFn/member defaults behave
// consistently with the other entry points, but with an empty declared
// catalogue — nothing can be a declared device/computed call, so rewriting
// reduces to atom normalisation (R1), bare-member guarding (R2) and the
// member-lhs relation guarding of R4.
func EvaluateBare(expr ast.Expression) (value.Value, error) {
	rewritten := rewrite.Rewrite(expr, catalog.Declaration{})
	env := eval.NewEnvironment(nil, catalog.Declaration{}, nil)
	return celerr.Downgrade(eval.Eval(rewritten, env))
}

// EvaluateAST implements entry point 3 as a JSON-string function: astJSON
// decodes to an AST, which is evaluated with no environment and no host.
func EvaluateAST(astJSON string) string {
	expr, err := ast.UnmarshalExpression([]byte(astJSON))
	if err != nil {
		return encodeErr(fmt.Errorf("supercel: invalid AST JSON: %w", err))
	}
	return encodeResult(EvaluateBare(expr))
}

// Evaluate implements entry point 1 (evaluate_with_context)'s Go-native
// form: expression is parsed as source text, normalised variables are bound,
// the tree is rewritten against decl, then evaluated against the full
// environment (including bridge for host calls).
func Evaluate(expression string, vars *value.MapValue, decl catalog.Declaration, bridge hostbridge.Bridge) (value.Value, error) {
	expr, err := exprparse.Parse(expression)
	if err != nil {
		return value.Null(), fmt.Errorf("supercel: parse error: %w", err)
	}
	return evaluateRewritten(expr, vars, decl, bridge)
}

// EvaluateASTExpr implements entry point 2 (evaluate_ast_with_context)'s
// Go-native form: the same pipeline as Evaluate, but starting from an
// already-parsed Expression instead of source text.
func EvaluateASTExpr(expr ast.Expression, vars *value.MapValue, decl catalog.Declaration, bridge hostbridge.Bridge) (value.Value, error) {
	return evaluateRewritten(expr, vars, decl, bridge)
}

func evaluateRewritten(expr ast.Expression, vars *value.MapValue, decl catalog.Declaration, bridge hostbridge.Bridge) (value.Value, error) {
	normalizedVars := normalizeVars(vars)
	rewritten := rewrite.Rewrite(expr, decl)
	env := eval.NewEnvironment(normalizedVars, decl, bridge)
	return celerr.Downgrade(eval.Eval(rewritten, env))
}

func normalizeVars(vars *value.MapValue) *value.MapValue {
	if vars == nil {
		return nil
	}
	normalized := normalize.Value(value.Map(vars))
	return normalized.MapValue()
}

// EvaluateWithContext implements entry point 1 as a JSON-string function
// (spec §6): ctx_json decodes to { expression: string, variables: { map },
// computed?, device? }.
func EvaluateWithContext(ctxJSON string, bridge hostbridge.Bridge) string {
	rawExpr, vars, decl, err := decodeContext(ctxJSON)
	if err != nil {
		return encodeErr(err)
	}
	var expression string
	if err := json.Unmarshal(rawExpr, &expression); err != nil {
		return encodeErr(fmt.Errorf("supercel: expression must be a string: %w", err))
	}
	return encodeResult(Evaluate(expression, vars, decl, bridge))
}

// EvaluateASTWithContext implements entry point 2 as a JSON-string function:
// the same ctx_json shape, but expression is already an AST JSON object.
func EvaluateASTWithContext(ctxJSON string, bridge hostbridge.Bridge) string {
	rawExpr, vars, decl, err := decodeContext(ctxJSON)
	if err != nil {
		return encodeErr(err)
	}
	expr, err := ast.UnmarshalExpression(rawExpr)
	if err != nil {
		return encodeErr(fmt.Errorf("supercel: invalid AST expression: %w", err))
	}
	return encodeResult(EvaluateASTExpr(expr, vars, decl, bridge))
}
