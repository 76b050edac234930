package eval

import (
	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/celerr"
	"github.com/nullsafe/supercel/internal/value"
)

// evalRelation implements spec §4.5's relations paragraph: equality uses the
// §3 cross-type rule, ordering comparisons against Null are tolerated, and
// `in` holds iff the right-hand list/map contains the left value under
// equality.
func evalRelation(n *ast.Relation, env *Environment) (value.Value, error) {
	lhs, err := Eval(n.Lhs, env)
	if err != nil {
		return value.Null(), err
	}
	rhs, err := Eval(n.Rhs, env)
	if err != nil {
		return value.Null(), err
	}
	switch n.Op {
	case ast.Eq:
		return value.Bool(value.Equal(lhs, rhs)), nil
	case ast.Ne:
		return value.Bool(!value.Equal(lhs, rhs)), nil
	case ast.In:
		return evalIn(lhs, rhs)
	default:
		if lhs.IsNull() || rhs.IsNull() {
			return value.Null(), celerr.NullComparison()
		}
		return evalOrdering(n.Op, lhs, rhs)
	}
}

func evalOrdering(op ast.RelationOp, lhs, rhs value.Value) (value.Value, error) {
	if lhs.Kind() == value.KindString && rhs.Kind() == value.KindString {
		return value.Bool(compareInts(stringCompare(lhs.StringValue(), rhs.StringValue()), op)), nil
	}
	l, lok := asFloat(lhs)
	r, rok := asFloat(rhs)
	if !lok || !rok {
		return value.Null(), celerr.TypeMismatch(relOpName(op), lhs.Kind(), rhs.Kind())
	}
	var cmp int
	switch {
	case l < r:
		cmp = -1
	case l > r:
		cmp = 1
	default:
		cmp = 0
	}
	return value.Bool(compareInts(cmp, op)), nil
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInts(cmp int, op ast.RelationOp) bool {
	switch op {
	case ast.Lt:
		return cmp < 0
	case ast.Le:
		return cmp <= 0
	case ast.Gt:
		return cmp > 0
	case ast.Ge:
		return cmp >= 0
	default:
		return false
	}
}

func relOpName(op ast.RelationOp) string {
	switch op {
	case ast.Lt:
		return "<"
	case ast.Le:
		return "<="
	case ast.Gt:
		return ">"
	case ast.Ge:
		return ">="
	case ast.Eq:
		return "=="
	case ast.Ne:
		return "!="
	case ast.In:
		return "in"
	default:
		return "?"
	}
}

func evalIn(lhs, rhs value.Value) (value.Value, error) {
	switch rhs.Kind() {
	case value.KindList:
		for _, item := range rhs.ListValue() {
			if value.Equal(lhs, item) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case value.KindMap:
		key, ok := mapKeyOf(lhs)
		if !ok || rhs.MapValue() == nil {
			return value.Bool(false), nil
		}
		_, ok = rhs.MapValue().Get(key)
		return value.Bool(ok), nil
	default:
		return value.Null(), celerr.TypeMismatch("in", lhs.Kind(), rhs.Kind())
	}
}
