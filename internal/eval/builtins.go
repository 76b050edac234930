package eval

import (
	"strconv"
	"strings"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/celerr"
	"github.com/nullsafe/supercel/internal/config"
	"github.com/nullsafe/supercel/internal/value"
)

func isBuiltinIdent(name string) bool {
	return config.IsSupportedBuiltin(name)
}

// evalHas implements the has(e) built-in (spec §4.5): "standard CEL
// semantics on the pre-rewrite shape of e" — e is walked structurally rather
// than evaluated, so a missing intermediate map never raises an error.
func evalHas(env *Environment, arg ast.Expression) (value.Value, error) {
	ok, _, err := exists(env, arg)
	if err != nil {
		return value.Null(), err
	}
	return value.Bool(ok), nil
}

// exists walks e structurally, returning whether it resolves to something
// and, if so, its value. Tolerated evaluation errors along the way (an
// undeclared reference deeper in the chain, say) collapse to "does not
// exist" rather than propagating.
func exists(env *Environment, e ast.Expression) (bool, value.Value, error) {
	switch n := e.(type) {
	case *ast.Ident:
		v, ok := env.Resolve(n.Name)
		return ok, v, nil
	case *ast.Member:
		existsRecv, recv, err := exists(env, n.Receiver)
		if err != nil {
			return false, value.Null(), err
		}
		if !existsRecv {
			return false, value.Null(), nil
		}
		return existsAccessor(env, recv, n.Accessor)
	default:
		v, err := Eval(e, env)
		if err != nil {
			if celerr.IsTolerated(err) {
				return false, value.Null(), nil
			}
			return false, value.Null(), err
		}
		return true, v, nil
	}
}

func existsAccessor(env *Environment, recv value.Value, acc ast.Accessor) (bool, value.Value, error) {
	switch a := acc.(type) {
	case *ast.Attribute:
		if recv.Kind() != value.KindMap || recv.MapValue() == nil {
			return false, value.Null(), nil
		}
		v, ok := recv.MapValue().Get(value.StringKey(a.Name))
		return ok, v, nil
	case *ast.Index:
		idx, err := Eval(a.Expr, env)
		if err != nil {
			if celerr.IsTolerated(err) {
				return false, value.Null(), nil
			}
			return false, value.Null(), err
		}
		switch recv.Kind() {
		case value.KindList:
			items := recv.ListValue()
			i, ok := intIndex(idx)
			if !ok || i < 0 || i >= len(items) {
				return false, value.Null(), nil
			}
			return true, items[i], nil
		case value.KindMap:
			key, ok := mapKeyOf(idx)
			if !ok || recv.MapValue() == nil {
				return false, value.Null(), nil
			}
			v, ok2 := recv.MapValue().Get(key)
			return ok2, v, nil
		default:
			return false, value.Null(), nil
		}
	case *ast.Fields:
		return true, recv, nil
	}
	return false, value.Null(), nil
}

func intIndex(v value.Value) (int, bool) {
	switch v.Kind() {
	case value.KindInt:
		return int(v.IntValue()), true
	case value.KindUInt:
		return int(v.UIntValue()), true
	default:
		return 0, false
	}
}

func mapKeyOf(v value.Value) (value.MapKey, bool) {
	switch v.Kind() {
	case value.KindString:
		return value.StringKey(v.StringValue()), true
	case value.KindInt:
		return value.IntKey(v.IntValue()), true
	case value.KindUInt:
		return value.UIntKey(v.UIntValue()), true
	case value.KindBool:
		return value.BoolKey(v.BoolValue()), true
	default:
		return value.MapKey{}, false
	}
}

// callTarget reports whether n is a method-style device.fname()/
// computed.fname() call whose fname is declared in env's matching
// catalogue. An undeclared fname — or a call shaped like one but with no
// catalogue at all — reports ok=false, so callers fall back to ordinary
// function resolution (and downgrade to Null like any other unknown
// function) instead of routing an unregistered name to the host bridge.
func callTarget(env *Environment, n *ast.FunctionCall) (obj, fname string, ok bool) {
	if n.Receiver == nil {
		return "", "", false
	}
	recvIdent, isIdent := n.Receiver.(*ast.Ident)
	if !isIdent {
		return "", "", false
	}
	calleeIdent, isCalleeIdent := n.Callee.(*ast.Ident)
	if !isCalleeIdent {
		return "", "", false
	}
	if recvIdent.Name != "device" && recvIdent.Name != "computed" {
		return "", "", false
	}
	if !declaredIn(env, recvIdent.Name, calleeIdent.Name) {
		return "", "", false
	}
	return recvIdent.Name, calleeIdent.Name, true
}

func declaredIn(env *Environment, obj, fname string) bool {
	if obj == "computed" {
		return env.Declared.Computed.Declared(fname)
	}
	return env.Declared.Device.Declared(fname)
}

// evalHasFn implements hasFn(s): true for any supported builtin name, or for
// "device.<name>"/"computed.<name>" when <name> is declared in env (an
// evaluate_ast call with no environment simply never declares anything, so
// those prefixes naturally fall through to false).
func evalHasFn(env *Environment, args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Kind() != value.KindString {
		return value.Null(), celerr.MalformedHasFn()
	}
	s := args[0].StringValue()
	if config.IsSupportedBuiltin(s) {
		return value.Bool(true), nil
	}
	if name, ok := strings.CutPrefix(s, "device."); ok {
		return value.Bool(env.Declared.Device.Declared(name)), nil
	}
	if name, ok := strings.CutPrefix(s, "computed."); ok {
		return value.Bool(env.Declared.Computed.Declared(name)), nil
	}
	return value.Bool(false), nil
}

// evalMaybe implements maybe(this, a, b): this is accepted but never
// evaluated (SPEC_FULL §5 Open Question 2); a's value wins unless evaluating
// it errors, in which case b's value is returned instead.
func evalMaybe(env *Environment, a, b ast.Expression) (value.Value, error) {
	v, err := Eval(a, env)
	if err == nil {
		return v, nil
	}
	return Eval(b, env)
}

// evalConversion dispatches the supplemented *ToString/toBool/toInt/toFloat
// method family (SPEC_FULL §4), grounded on original_source/utility_functions.rs.
func evalConversion(name string, recv value.Value) (value.Value, error) {
	switch name {
	case "intToString":
		return value.String(strconv.FormatInt(recv.IntValue(), 10)), nil
	case "uintToString":
		return value.String(strconv.FormatUint(recv.UIntValue(), 10)), nil
	case "floatToString":
		return value.String(strconv.FormatFloat(recv.FloatValue(), 'g', -1, 64)), nil
	case "boolToString", "toString":
		return value.String(value.Display(recv)), nil
	case "toBool":
		if recv.Kind() != value.KindString {
			return value.Null(), celerr.TypeMismatch("toBool", recv.Kind(), value.KindString)
		}
		b, err := strconv.ParseBool(recv.StringValue())
		if err != nil {
			return value.Null(), celerr.TypeMismatch("toBool", recv.Kind(), value.KindString)
		}
		return value.Bool(b), nil
	case "toInt":
		if recv.Kind() != value.KindString {
			return value.Null(), celerr.TypeMismatch("toInt", recv.Kind(), value.KindString)
		}
		i, err := strconv.ParseInt(recv.StringValue(), 10, 64)
		if err != nil {
			return value.Null(), celerr.TypeMismatch("toInt", recv.Kind(), value.KindString)
		}
		return value.Int(i), nil
	case "toFloat":
		if recv.Kind() != value.KindString {
			return value.Null(), celerr.TypeMismatch("toFloat", recv.Kind(), value.KindString)
		}
		f, err := strconv.ParseFloat(recv.StringValue(), 64)
		if err != nil {
			return value.Null(), celerr.TypeMismatch("toFloat", recv.Kind(), value.KindString)
		}
		return value.Float(f), nil
	default:
		return value.Null(), celerr.UnknownFunction(name)
	}
}
