package eval

import (
	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/celerr"
	"github.com/nullsafe/supercel/internal/value"
)

// opName renders an ArithmeticOp for diagnostics.
func opName(op ast.ArithmeticOp) string {
	switch op {
	case ast.Add:
		return "+"
	case ast.Sub:
		return "-"
	case ast.Mul:
		return "*"
	case ast.Div:
		return "/"
	case ast.Mod:
		return "%"
	default:
		return "?"
	}
}

// evalArithmetic implements spec §4.5's arithmetic paragraph: integer,
// unsigned and float promotion follows standard numeric rules; a bare
// String "+" String performs concatenation, matching CEL's own `+` overload.
func evalArithmetic(n *ast.Arithmetic, env *Environment) (value.Value, error) {
	lhs, err := Eval(n.Lhs, env)
	if err != nil {
		return value.Null(), err
	}
	rhs, err := Eval(n.Rhs, env)
	if err != nil {
		return value.Null(), err
	}
	if n.Op == ast.Add && lhs.Kind() == value.KindString && rhs.Kind() == value.KindString {
		return value.String(lhs.StringValue() + rhs.StringValue()), nil
	}
	switch {
	case lhs.Kind() == value.KindFloat || rhs.Kind() == value.KindFloat:
		l, lok := asFloat(lhs)
		r, rok := asFloat(rhs)
		if !lok || !rok {
			return value.Null(), celerr.TypeMismatch(opName(n.Op), lhs.Kind(), rhs.Kind())
		}
		return floatArith(n.Op, l, r)
	case lhs.Kind() == value.KindUInt && rhs.Kind() == value.KindUInt:
		return uintArith(n.Op, lhs.UIntValue(), rhs.UIntValue())
	case lhs.Kind() == value.KindInt && rhs.Kind() == value.KindInt:
		return intArith(n.Op, lhs.IntValue(), rhs.IntValue())
	case (lhs.Kind() == value.KindInt || lhs.Kind() == value.KindUInt) &&
		(rhs.Kind() == value.KindInt || rhs.Kind() == value.KindUInt):
		// Mixed Int/UInt promotes to Int.
		l, _ := asInt(lhs)
		r, _ := asInt(rhs)
		return intArith(n.Op, l, r)
	default:
		return value.Null(), celerr.TypeMismatch(opName(n.Op), lhs.Kind(), rhs.Kind())
	}
}

func asFloat(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindFloat:
		return v.FloatValue(), true
	case value.KindInt:
		return float64(v.IntValue()), true
	case value.KindUInt:
		return float64(v.UIntValue()), true
	default:
		return 0, false
	}
}

func asInt(v value.Value) (int64, bool) {
	switch v.Kind() {
	case value.KindInt:
		return v.IntValue(), true
	case value.KindUInt:
		return int64(v.UIntValue()), true
	default:
		return 0, false
	}
}

func floatArith(op ast.ArithmeticOp, l, r float64) (value.Value, error) {
	switch op {
	case ast.Add:
		return value.Float(l + r), nil
	case ast.Sub:
		return value.Float(l - r), nil
	case ast.Mul:
		return value.Float(l * r), nil
	case ast.Div:
		if r == 0 {
			return value.Null(), celerr.DivisionByZero()
		}
		return value.Float(l / r), nil
	case ast.Mod:
		if r == 0 {
			return value.Null(), celerr.DivisionByZero()
		}
		return value.Float(floatMod(l, r)), nil
	default:
		return value.Null(), celerr.TypeMismatch(opName(op), value.KindFloat, value.KindFloat)
	}
}

func floatMod(l, r float64) float64 {
	q := int64(l / r)
	return l - float64(q)*r
}

func intArith(op ast.ArithmeticOp, l, r int64) (value.Value, error) {
	switch op {
	case ast.Add:
		return value.Int(l + r), nil
	case ast.Sub:
		return value.Int(l - r), nil
	case ast.Mul:
		return value.Int(l * r), nil
	case ast.Div:
		if r == 0 {
			return value.Null(), celerr.DivisionByZero()
		}
		return value.Int(l / r), nil
	case ast.Mod:
		if r == 0 {
			return value.Null(), celerr.DivisionByZero()
		}
		return value.Int(l % r), nil
	default:
		return value.Null(), celerr.TypeMismatch(opName(op), value.KindInt, value.KindInt)
	}
}

func uintArith(op ast.ArithmeticOp, l, r uint64) (value.Value, error) {
	switch op {
	case ast.Add:
		return value.UInt(l + r), nil
	case ast.Sub:
		return value.UInt(l - r), nil
	case ast.Mul:
		return value.UInt(l * r), nil
	case ast.Div:
		if r == 0 {
			return value.Null(), celerr.DivisionByZero()
		}
		return value.UInt(l / r), nil
	case ast.Mod:
		if r == 0 {
			return value.Null(), celerr.DivisionByZero()
		}
		return value.UInt(l % r), nil
	default:
		return value.Null(), celerr.TypeMismatch(opName(op), value.KindUInt, value.KindUInt)
	}
}
