// Package rewrite implements the null-safety AST transformation of spec
// §4.4: a total, bottom-up pass over Expression that wraps member access and
// declared host-function calls so a missing value degrades to a type-aware
// default instead of raising an error.
package rewrite

import (
	"reflect"
	"strings"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/catalog"
	"github.com/nullsafe/supercel/internal/normalize"
)

// Rewrite applies the null-safety transformation to e using decl to decide
// which "device"/"computed" object names participate in R3/R4 wrapping. The
// rewriter is infallible: every input tree produces an output tree.
func Rewrite(e ast.Expression, decl catalog.Declaration) ast.Expression {
	return rewriteExpr(e, decl, false)
}

func rewriteExpr(e ast.Expression, decl catalog.Declaration, insideHas bool) ast.Expression {
	switch n := e.(type) {
	case *ast.Atom:
		// R1 — atom normalisation.
		return &ast.Atom{Literal: normalize.Atom(n.Literal)}
	case *ast.Ident:
		return &ast.Ident{Name: n.Name}
	case *ast.Member:
		return rewriteMember(n, decl, insideHas)
	case *ast.FunctionCall:
		return rewriteFunctionCall(n, decl, insideHas)
	case *ast.Relation:
		return rewriteRelation(n, decl, insideHas)
	case *ast.Ternary:
		// A Ternary shaped exactly like R2/R3/R4's own output (Cond is
		// has(X)/hasFn("obj.fname") and Then is that same X, or a Relation
		// guarded the same way) is already guarded: recurse into Then as if
		// inside has/hasFn so a second pass doesn't add another guard layer
		// (spec §4.4 rewrite invariants, §8 P3).
		thenInsideHas := insideHas
		if !insideHas && isAlreadyGuardedTernary(n) {
			thenInsideHas = true
		}
		return &ast.Ternary{
			Cond: rewriteExpr(n.Cond, decl, insideHas),
			Then: rewriteExpr(n.Then, decl, thenInsideHas),
			Else: rewriteExpr(n.Else, decl, insideHas),
		}
	case *ast.And:
		return &ast.And{Lhs: rewriteExpr(n.Lhs, decl, insideHas), Rhs: rewriteExpr(n.Rhs, decl, insideHas)}
	case *ast.Or:
		return &ast.Or{Lhs: rewriteExpr(n.Lhs, decl, insideHas), Rhs: rewriteExpr(n.Rhs, decl, insideHas)}
	case *ast.Unary:
		return &ast.Unary{Op: n.Op, Operand: rewriteExpr(n.Operand, decl, insideHas)}
	case *ast.Arithmetic:
		return &ast.Arithmetic{Lhs: rewriteExpr(n.Lhs, decl, insideHas), Op: n.Op, Rhs: rewriteExpr(n.Rhs, decl, insideHas)}
	case *ast.List:
		items := make([]ast.Expression, len(n.Items))
		for i, it := range n.Items {
			items[i] = rewriteExpr(it, decl, insideHas)
		}
		return &ast.List{Items: items}
	case *ast.Map:
		entries := make([]ast.MapEntry, len(n.Entries))
		for i, entry := range n.Entries {
			entries[i] = ast.MapEntry{
				Key:   rewriteExpr(entry.Key, decl, insideHas),
				Value: rewriteExpr(entry.Value, decl, insideHas),
			}
		}
		return &ast.Map{Entries: entries}
	default:
		return e
	}
}

func rewriteAccessor(a ast.Accessor, decl catalog.Declaration, insideHas bool) ast.Accessor {
	switch acc := a.(type) {
	case *ast.Attribute:
		return &ast.Attribute{Name: acc.Name}
	case *ast.Index:
		return &ast.Index{Expr: rewriteExpr(acc.Expr, decl, insideHas)}
	case *ast.Fields:
		entries := make([]ast.FieldEntry, len(acc.Entries))
		for i, f := range acc.Entries {
			entries[i] = ast.FieldEntry{Name: f.Name, Expr: rewriteExpr(f.Expr, decl, insideHas)}
		}
		return &ast.Fields{Entries: entries}
	default:
		return a
	}
}

// rewriteMember implements R2: outside has/hasFn, a bare attribute access is
// wrapped in a has-guarded ternary defaulting to Null; inside has/hasFn the
// node is left alone apart from recursing into its receiver.
func rewriteMember(n *ast.Member, decl catalog.Declaration, insideHas bool) ast.Expression {
	if insideHas {
		return &ast.Member{
			Receiver: rewriteExpr(n.Receiver, decl, true),
			Accessor: rewriteAccessor(n.Accessor, decl, true),
		}
	}
	if attr, ok := n.Accessor.(*ast.Attribute); ok {
		recv := rewriteExpr(n.Receiver, decl, false)
		member := &ast.Member{Receiver: recv, Accessor: &ast.Attribute{Name: attr.Name}}
		return &ast.Ternary{
			Cond: callHas(member),
			Then: member,
			Else: &ast.Atom{Literal: ast.NullLit()},
		}
	}
	return &ast.Member{
		Receiver: rewriteExpr(n.Receiver, decl, false),
		Accessor: rewriteAccessor(n.Accessor, decl, false),
	}
}

// shapeCall reports whether n is a method-style call `device.fname(...)` or
// `computed.fname(...)` (Receiver = Ident("device"|"computed"), Callee =
// Ident(fname)), and whether decl declares a catalogue for that object name
// at all. The specific fname's declaration is checked at runtime by hasFn,
// not gated here — see scenario 4 in spec §8, where an undeclared fname
// under a declared object still produces the hasFn-guarded shape.
func shapeCall(n *ast.FunctionCall, decl catalog.Declaration) (obj, fname string, ok bool) {
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
	switch recvIdent.Name {
	case "device":
		if decl.Device != nil {
			return "device", calleeIdent.Name, true
		}
	case "computed":
		if decl.Computed != nil {
			return "computed", calleeIdent.Name, true
		}
	}
	return "", "", false
}

func callHas(arg ast.Expression) ast.Expression {
	return &ast.FunctionCall{Callee: &ast.Ident{Name: "has"}, Args: []ast.Expression{arg}}
}

func callHasFn(s string) ast.Expression {
	return &ast.FunctionCall{Callee: &ast.Ident{Name: "hasFn"}, Args: []ast.Expression{&ast.Atom{Literal: ast.StringLit(s)}}}
}

// isAlreadyGuardedTernary reports whether n has exactly the shape R2/R3/R4
// produce: Cond is has(X) and Then is X itself (or a Relation whose Lhs is
// X), or Cond is hasFn("obj.fname") and Then is a device.fname()/
// computed.fname() call shaped that way (or a Relation whose Lhs is). A
// Ternary the caller didn't build this way — an ordinary user-written
// `cond ? a : b` — never matches, since its Cond is not itself a bare
// has/hasFn call.
func isAlreadyGuardedTernary(n *ast.Ternary) bool {
	guard, ok := n.Cond.(*ast.FunctionCall)
	if !ok || guard.Receiver != nil || len(guard.Args) != 1 {
		return false
	}
	guardName, ok := guard.Callee.(*ast.Ident)
	if !ok {
		return false
	}
	switch guardName.Name {
	case "has":
		guarded := guard.Args[0]
		if reflect.DeepEqual(n.Then, guarded) {
			return true
		}
		rel, ok := n.Then.(*ast.Relation)
		return ok && reflect.DeepEqual(rel.Lhs, guarded)
	case "hasFn":
		atom, ok := guard.Args[0].(*ast.Atom)
		if !ok || atom.Literal.Kind != ast.LitString {
			return false
		}
		obj, fname, ok := strings.Cut(atom.Literal.StringVal, ".")
		if !ok {
			return false
		}
		if call, ok := n.Then.(*ast.FunctionCall); ok {
			return callTargetsObjFn(call, obj, fname)
		}
		if rel, ok := n.Then.(*ast.Relation); ok {
			if call, ok := rel.Lhs.(*ast.FunctionCall); ok {
				return callTargetsObjFn(call, obj, fname)
			}
		}
		return false
	default:
		return false
	}
}

// callTargetsObjFn reports whether call is a method-style `obj.fname(...)`
// call, ignoring its argument list (which the hasFn guard string doesn't
// encode).
func callTargetsObjFn(call *ast.FunctionCall, obj, fname string) bool {
	if call.Receiver == nil {
		return false
	}
	recvIdent, ok := call.Receiver.(*ast.Ident)
	if !ok || recvIdent.Name != obj {
		return false
	}
	calleeIdent, ok := call.Callee.(*ast.Ident)
	return ok && calleeIdent.Name == fname
}

func rewriteArgs(args []ast.Expression, decl catalog.Declaration, insideHas bool) []ast.Expression {
	if args == nil {
		return nil
	}
	out := make([]ast.Expression, len(args))
	for i, a := range args {
		out[i] = rewriteExpr(a, decl, insideHas)
	}
	return out
}

// rewriteFunctionCall implements R3 (outside has/hasFn, as a standalone
// expression rather than the left-hand side of a Relation — R4 handles that
// case separately since its default lives inside the Relation, not around a
// bare Bool(false)).
func rewriteFunctionCall(n *ast.FunctionCall, decl catalog.Declaration, insideHas bool) ast.Expression {
	if insideHas {
		return rewriteFunctionCallPlain(n, decl, true)
	}
	if obj, fname, ok := shapeCall(n, decl); ok {
		original := &ast.FunctionCall{
			Callee:   n.Callee,
			Receiver: rewriteReceiver(n.Receiver, decl, false),
			Args:     rewriteArgs(n.Args, decl, false),
		}
		return &ast.Ternary{
			Cond: callHasFn(obj + "." + fname),
			Then: original,
			Else: &ast.Atom{Literal: ast.BoolLit(false)},
		}
	}
	return rewriteFunctionCallPlain(n, decl, false)
}

func rewriteReceiver(recv ast.Expression, decl catalog.Declaration, insideHas bool) ast.Expression {
	if recv == nil {
		return nil
	}
	return rewriteExpr(recv, decl, insideHas)
}

// rewriteFunctionCallPlain recurses into a call's receiver and arguments
// without R3 wrapping. has/hasFn calls flip inside_has to true for their own
// arguments so the rewriter never re-wraps a member chain that a has/hasFn
// built-in needs to inspect in its original shape.
func rewriteFunctionCallPlain(n *ast.FunctionCall, decl catalog.Declaration, insideHas bool) ast.Expression {
	childInsideHas := insideHas
	if !insideHas {
		if ident, ok := n.Callee.(*ast.Ident); ok && (ident.Name == "has" || ident.Name == "hasFn") {
			childInsideHas = true
		}
	}
	return &ast.FunctionCall{
		Callee:   n.Callee,
		Receiver: rewriteReceiver(n.Receiver, decl, insideHas),
		Args:     rewriteArgs(n.Args, decl, childInsideHas),
	}
}

// defaultForRhs implements R4's DefaultForRhs: the post-normalisation type of
// an atomic right-hand side selects the left-hand side's replacement default
// when the left-hand side is absent.
func defaultForRhs(lit ast.AtomLiteral) ast.Expression {
	switch lit.Kind {
	case ast.LitString:
		return &ast.Atom{Literal: ast.StringLit("")}
	case ast.LitInt:
		return &ast.Atom{Literal: ast.IntLit(0)}
	case ast.LitUInt:
		return &ast.Atom{Literal: ast.UIntLit(0)}
	case ast.LitFloat:
		return &ast.Atom{Literal: ast.FloatLit(0)}
	case ast.LitBool:
		return &ast.Atom{Literal: ast.BoolLit(false)}
	default:
		return &ast.Atom{Literal: ast.NullLit()}
	}
}

// rewriteRelation implements R4. It inspects the Relation's left-hand side
// before recursing, per spec §4.4.
func rewriteRelation(n *ast.Relation, decl catalog.Declaration, insideHas bool) ast.Expression {
	if insideHas {
		return &ast.Relation{
			Lhs: rewriteExpr(n.Lhs, decl, true),
			Op:  n.Op,
			Rhs: rewriteExpr(n.Rhs, decl, true),
		}
	}

	// Rule 1: bare Member left-hand side.
	if member, ok := n.Lhs.(*ast.Member); ok {
		if attr, ok2 := member.Accessor.(*ast.Attribute); ok2 {
			lhsMember := &ast.Member{
				Receiver: rewriteExpr(member.Receiver, decl, false),
				Accessor: &ast.Attribute{Name: attr.Name},
			}
			return relationWithGuardedLhs(n, lhsMember, callHas(lhsMember), decl)
		}
	}

	// Rule 2: declared device.fname()/computed.fname() call left-hand side.
	if call, ok := n.Lhs.(*ast.FunctionCall); ok {
		if obj, fname, ok2 := shapeCall(call, decl); ok2 {
			lhsCall := &ast.FunctionCall{
				Callee:   call.Callee,
				Receiver: rewriteReceiver(call.Receiver, decl, false),
				Args:     rewriteArgs(call.Args, decl, false),
			}
			return relationWithGuardedLhs(n, lhsCall, callHasFn(obj+"."+fname), decl)
		}
	}

	// Rule 3: anything else (including an already-wrapped Ternary, per the
	// "not a simple member access" resolution in SPEC_FULL §5 Open Question
	// 1) recurses structurally on both sides.
	return &ast.Relation{
		Lhs: rewriteExpr(n.Lhs, decl, false),
		Op:  n.Op,
		Rhs: rewriteExpr(n.Rhs, decl, false),
	}
}

// relationWithGuardedLhs builds the two R4 shapes shared by rules 1 and 2:
// when the right-hand side is an atom, the guard moves inside the Relation
// around a type-aware default; otherwise the whole Relation is guarded and
// defaults to Bool(false).
func relationWithGuardedLhs(n *ast.Relation, lhs, guard ast.Expression, decl catalog.Declaration) ast.Expression {
	rhs := rewriteExpr(n.Rhs, decl, false)
	if atomRhs, isAtom := n.Rhs.(*ast.Atom); isAtom {
		normalized := normalize.Atom(atomRhs.Literal)
		guarded := &ast.Ternary{Cond: guard, Then: lhs, Else: defaultForRhs(normalized)}
		return &ast.Relation{Lhs: guarded, Op: n.Op, Rhs: rhs}
	}
	return &ast.Ternary{
		Cond: guard,
		Then: &ast.Relation{Lhs: lhs, Op: n.Op, Rhs: rhs},
		Else: &ast.Atom{Literal: ast.BoolLit(false)},
	}
}
