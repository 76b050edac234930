// Package eval implements the tree-walking evaluator of spec §4.5: it
// consumes a rewritten Expression and an Environment and returns a Value,
// propagating celerr.Fault for anything the top-level dispatch must
// downgrade or surface.
package eval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/celerr"
	"github.com/nullsafe/supercel/internal/config"
	"github.com/nullsafe/supercel/internal/normalize"
	"github.com/nullsafe/supercel/internal/value"
)

// Eval evaluates e against env, returning the raw (possibly fatal, possibly
// tolerated) error. Callers at the request boundary should route the result
// through celerr.Downgrade to apply §7's propagation policy.
func Eval(e ast.Expression, env *Environment) (value.Value, error) {
	switch n := e.(type) {
	case *ast.Atom:
		return evalAtom(n.Literal), nil
	case *ast.Ident:
		v, ok := env.Resolve(n.Name)
		if !ok {
			return value.Null(), celerr.UndeclaredReference(n.Name)
		}
		return v, nil
	case *ast.Unary:
		return evalUnary(n, env)
	case *ast.Arithmetic:
		return evalArithmetic(n, env)
	case *ast.Relation:
		return evalRelation(n, env)
	case *ast.And:
		return evalAnd(n, env)
	case *ast.Or:
		return evalOr(n, env)
	case *ast.Ternary:
		return evalTernary(n, env)
	case *ast.Member:
		return evalMember(n, env)
	case *ast.List:
		items := make([]value.Value, len(n.Items))
		for i, it := range n.Items {
			v, err := Eval(it, env)
			if err != nil {
				return value.Null(), err
			}
			items[i] = v
		}
		return value.List(items), nil
	case *ast.Map:
		m := value.NewMap()
		for _, entry := range n.Entries {
			k, err := Eval(entry.Key, env)
			if err != nil {
				return value.Null(), err
			}
			v, err := Eval(entry.Value, env)
			if err != nil {
				return value.Null(), err
			}
			key, ok := mapKeyOf(k)
			if !ok {
				return value.Null(), celerr.TypeMismatch("map key", k.Kind(), value.KindString)
			}
			m.Set(key, v)
		}
		return value.Map(m), nil
	case *ast.FunctionCall:
		return evalFunctionCall(n, env)
	default:
		return value.Null(), fmt.Errorf("eval: unhandled expression type %T", e)
	}
}

func evalAtom(lit ast.AtomLiteral) value.Value {
	switch lit.Kind {
	case ast.LitInt:
		return value.Int(lit.IntVal)
	case ast.LitUInt:
		return value.UInt(lit.UIntVal)
	case ast.LitFloat:
		return value.Float(lit.FloatVal)
	case ast.LitString:
		return value.String(lit.StringVal)
	case ast.LitBytes:
		return value.Bytes(lit.BytesVal)
	case ast.LitBool:
		return value.Bool(lit.BoolVal)
	case ast.LitNull:
		return value.Null()
	default:
		return value.Null()
	}
}

func evalUnary(n *ast.Unary, env *Environment) (value.Value, error) {
	v, err := Eval(n.Operand, env)
	if err != nil {
		return value.Null(), err
	}
	switch n.Op {
	case ast.Not:
		if v.Kind() != value.KindBool {
			return value.Null(), celerr.TypeMismatch("!", v.Kind(), v.Kind())
		}
		return value.Bool(!v.BoolValue()), nil
	case ast.DoubleNot:
		if v.Kind() != value.KindBool {
			return value.Null(), celerr.TypeMismatch("!!", v.Kind(), v.Kind())
		}
		return value.Bool(v.BoolValue()), nil
	case ast.Neg:
		return negate(v)
	case ast.DoubleNeg:
		neg, err := negate(v)
		if err != nil {
			return value.Null(), err
		}
		return negate(neg)
	default:
		return value.Null(), fmt.Errorf("eval: unknown unary operator")
	}
}

func negate(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindInt:
		return value.Int(-v.IntValue()), nil
	case value.KindFloat:
		return value.Float(-v.FloatValue()), nil
	default:
		return value.Null(), celerr.TypeMismatch("-", v.Kind(), v.Kind())
	}
}

func evalAnd(n *ast.And, env *Environment) (value.Value, error) {
	lhs, err := Eval(n.Lhs, env)
	if err != nil {
		return value.Null(), err
	}
	if lhs.Kind() != value.KindBool {
		return value.Null(), celerr.TypeMismatch("&&", lhs.Kind(), value.KindBool)
	}
	if !lhs.BoolValue() {
		return value.Bool(false), nil
	}
	rhs, err := Eval(n.Rhs, env)
	if err != nil {
		return value.Null(), err
	}
	if rhs.Kind() != value.KindBool {
		return value.Null(), celerr.TypeMismatch("&&", rhs.Kind(), value.KindBool)
	}
	return rhs, nil
}

func evalOr(n *ast.Or, env *Environment) (value.Value, error) {
	lhs, err := Eval(n.Lhs, env)
	if err != nil {
		return value.Null(), err
	}
	if lhs.Kind() != value.KindBool {
		return value.Null(), celerr.TypeMismatch("||", lhs.Kind(), value.KindBool)
	}
	if lhs.BoolValue() {
		return value.Bool(true), nil
	}
	rhs, err := Eval(n.Rhs, env)
	if err != nil {
		return value.Null(), err
	}
	if rhs.Kind() != value.KindBool {
		return value.Null(), celerr.TypeMismatch("||", rhs.Kind(), value.KindBool)
	}
	return rhs, nil
}

func evalTernary(n *ast.Ternary, env *Environment) (value.Value, error) {
	cond, err := Eval(n.Cond, env)
	if err != nil {
		return value.Null(), err
	}
	if cond.Kind() != value.KindBool {
		return value.Null(), celerr.TypeMismatch("?:", cond.Kind(), value.KindBool)
	}
	if cond.BoolValue() {
		return Eval(n.Then, env)
	}
	return Eval(n.Else, env)
}

// evalMember evaluates a (post-rewrite) bare member access directly: by
// construction every Member the rewriter leaves outside a has-guard is
// either already known to exist, or is being evaluated from inside a
// has/hasFn argument where standard CEL semantics (absence -> tolerated
// Null, not an error) apply.
func evalMember(n *ast.Member, env *Environment) (value.Value, error) {
	recv, err := Eval(n.Receiver, env)
	if err != nil {
		return value.Null(), err
	}
	switch acc := n.Accessor.(type) {
	case *ast.Attribute:
		if recv.Kind() != value.KindMap || recv.MapValue() == nil {
			return value.Null(), nil
		}
		v, ok := recv.MapValue().Get(value.StringKey(acc.Name))
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	case *ast.Index:
		idx, err := Eval(acc.Expr, env)
		if err != nil {
			return value.Null(), err
		}
		switch recv.Kind() {
		case value.KindList:
			items := recv.ListValue()
			i, ok := intIndex(idx)
			if !ok || i < 0 || i >= len(items) {
				return value.Null(), nil
			}
			return items[i], nil
		case value.KindMap:
			key, ok := mapKeyOf(idx)
			if !ok || recv.MapValue() == nil {
				return value.Null(), nil
			}
			v, _ := recv.MapValue().Get(key)
			return v, nil
		default:
			return value.Null(), celerr.TypeMismatch("[]", recv.Kind(), idx.Kind())
		}
	case *ast.Fields:
		m := value.NewMap()
		if recv.Kind() == value.KindMap && recv.MapValue() != nil {
			for _, k := range recv.MapValue().Keys() {
				v, _ := recv.MapValue().Get(k)
				m.Set(k, v)
			}
		}
		for _, f := range acc.Entries {
			v, err := Eval(f.Expr, env)
			if err != nil {
				return value.Null(), err
			}
			m.Set(value.StringKey(f.Name), v)
		}
		return value.Map(m), nil
	default:
		return value.Null(), fmt.Errorf("eval: unknown accessor type %T", acc)
	}
}

func evalFunctionCall(n *ast.FunctionCall, env *Environment) (value.Value, error) {
	if ident, ok := n.Callee.(*ast.Ident); ok && n.Receiver == nil {
		switch ident.Name {
		case "has":
			if len(n.Args) != 1 {
				return value.Null(), celerr.UnknownFunction("has")
			}
			return evalHas(env, n.Args[0])
		case "hasFn":
			args, err := evalArgs(n.Args, env)
			if err != nil {
				return value.Null(), err
			}
			return evalHasFn(env, args)
		case "maybe":
			if len(n.Args) != 3 {
				return value.Null(), celerr.UnknownFunction("maybe")
			}
			return evalMaybe(env, n.Args[1], n.Args[2])
		}
	}
	if obj, fname, ok := callTarget(env, n); ok {
		args, err := evalArgs(n.Args, env)
		if err != nil {
			return value.Null(), err
		}
		return evalHostCall(env, obj, fname, args)
	}
	if ident, ok := n.Callee.(*ast.Ident); ok && n.Receiver != nil && config.IsSupportedBuiltin(ident.Name) {
		recv, err := Eval(n.Receiver, env)
		if err != nil {
			return value.Null(), err
		}
		return evalConversion(ident.Name, recv)
	}
	name := "<call>"
	if ident, ok := n.Callee.(*ast.Ident); ok {
		name = ident.Name
	}
	return value.Null(), celerr.UnknownFunction(name)
}

func evalArgs(args []ast.Expression, env *Environment) ([]value.Value, error) {
	out := make([]value.Value, len(args))
	for i, a := range args {
		v, err := Eval(a, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalHostCall implements the function-dispatch paragraph of spec §4.5:
// serialise the evaluated arguments to JSON, call the host bridge, and
// decode the reply through the variable normalizer.
func evalHostCall(env *Environment, obj, fname string, args []value.Value) (value.Value, error) {
	if env.Bridge == nil {
		return value.Null(), celerr.HostFunctionError(fname, fmt.Errorf("no host bridge configured"))
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return value.Null(), celerr.HostFunctionError(fname, err)
	}
	var reply string
	ctx := context.Background()
	if obj == "computed" {
		reply, err = env.Bridge.ComputedProperty(ctx, fname, string(argsJSON))
	} else {
		reply, err = env.Bridge.DeviceProperty(ctx, fname, string(argsJSON))
	}
	if err != nil {
		return value.Null(), celerr.HostFunctionError(fname, err)
	}
	if reply == "" || reply == "null" {
		return value.Null(), nil
	}
	var v value.Value
	if err := json.Unmarshal([]byte(reply), &v); err != nil {
		return value.Null(), celerr.HostFunctionError(fname, err)
	}
	return normalize.Value(v), nil
}
