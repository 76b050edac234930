// Package normalize implements the variable normalizer of spec §4.3: a host
// that lacks discriminated types often hands back "true"/"false" strings for
// what are really booleans. Numeric-looking strings are left alone, since a
// quoted literal in an expression is authored deliberately and must be
// respected.
package normalize

import (
	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/value"
)

// Value canonicalises a wire value: String("true")/String("false") become
// Bool; any other String is returned unchanged; List and Map recurse;
// everything else is returned unchanged.
func Value(v value.Value) value.Value {
	switch v.Kind() {
	case value.KindString:
		switch v.StringValue() {
		case "true":
			return value.Bool(true)
		case "false":
			return value.Bool(false)
		default:
			return v
		}
	case value.KindList:
		items := v.ListValue()
		out := make([]value.Value, len(items))
		for i, item := range items {
			out[i] = Value(item)
		}
		return value.List(out)
	case value.KindMap:
		src := v.MapValue()
		dst := value.NewMap()
		if src != nil {
			for _, k := range src.Keys() {
				item, _ := src.Get(k)
				dst.Set(k, Value(item))
			}
		}
		return value.Map(dst)
	default:
		return v
	}
}

// Atom applies the same "true"/"false" rule to a single AtomLiteral; numeric
// string literals (e.g. a quoted "42") are never reclassified.
func Atom(lit ast.AtomLiteral) ast.AtomLiteral {
	if lit.Kind != ast.LitString {
		return lit
	}
	switch lit.StringVal {
	case "true":
		return ast.BoolLit(true)
	case "false":
		return ast.BoolLit(false)
	default:
		return lit
	}
}
