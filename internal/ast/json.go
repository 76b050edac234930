package ast

import (
	"encoding/json"
	"fmt"
)

// envelope mirrors spec §6's AST JSON shape: {"type": <variant tag>,
// "value": <payload>}, the payload mirroring the Expression's fields.
type envelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func wrap(tag string, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: tag, Value: raw})
}

// MarshalExpression encodes an Expression in the tag-and-value wire shape.
func MarshalExpression(e Expression) ([]byte, error) {
	switch n := e.(type) {
	case *Arithmetic:
		lhs, err := MarshalExpression(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := MarshalExpression(n.Rhs)
		if err != nil {
			return nil, err
		}
		return wrap("Arithmetic", []json.RawMessage{lhs, mustJSON(arithOpTag(n.Op)), rhs})
	case *Relation:
		lhs, err := MarshalExpression(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := MarshalExpression(n.Rhs)
		if err != nil {
			return nil, err
		}
		return wrap("Relation", []json.RawMessage{lhs, mustJSON(relOpTag(n.Op)), rhs})
	case *Ternary:
		cond, err := MarshalExpression(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := MarshalExpression(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := MarshalExpression(n.Else)
		if err != nil {
			return nil, err
		}
		return wrap("Ternary", []json.RawMessage{cond, then, els})
	case *And:
		lhs, err := MarshalExpression(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := MarshalExpression(n.Rhs)
		if err != nil {
			return nil, err
		}
		return wrap("And", []json.RawMessage{lhs, rhs})
	case *Or:
		lhs, err := MarshalExpression(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := MarshalExpression(n.Rhs)
		if err != nil {
			return nil, err
		}
		return wrap("Or", []json.RawMessage{lhs, rhs})
	case *Unary:
		operand, err := MarshalExpression(n.Operand)
		if err != nil {
			return nil, err
		}
		return wrap("Unary", []json.RawMessage{mustJSON(unaryOpTag(n.Op)), operand})
	case *Member:
		recv, err := MarshalExpression(n.Receiver)
		if err != nil {
			return nil, err
		}
		acc, err := marshalAccessor(n.Accessor)
		if err != nil {
			return nil, err
		}
		return wrap("Member", []json.RawMessage{recv, acc})
	case *FunctionCall:
		callee, err := MarshalExpression(n.Callee)
		if err != nil {
			return nil, err
		}
		var recv json.RawMessage = []byte("null")
		if n.Receiver != nil {
			recv, err = MarshalExpression(n.Receiver)
			if err != nil {
				return nil, err
			}
		}
		args := make([]json.RawMessage, len(n.Args))
		for i, a := range n.Args {
			raw, err := MarshalExpression(a)
			if err != nil {
				return nil, err
			}
			args[i] = raw
		}
		argsRaw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		return wrap("FunctionCall", []json.RawMessage{callee, recv, argsRaw})
	case *List:
		items := make([]json.RawMessage, len(n.Items))
		for i, it := range n.Items {
			raw, err := MarshalExpression(it)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		return wrap("List", items)
	case *Map:
		entries := make([][2]json.RawMessage, len(n.Entries))
		for i, entry := range n.Entries {
			k, err := MarshalExpression(entry.Key)
			if err != nil {
				return nil, err
			}
			v, err := MarshalExpression(entry.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = [2]json.RawMessage{k, v}
		}
		return wrap("Map", entries)
	case *Atom:
		lit, err := marshalAtomLiteral(n.Literal)
		if err != nil {
			return nil, err
		}
		return wrap("Atom", lit)
	case *Ident:
		return wrap("Ident", n.Name)
	default:
		return nil, fmt.Errorf("ast: unknown expression type %T", e)
	}
}

func mustJSON(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

func arithOpTag(op ArithmeticOp) string {
	switch op {
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Mod:
		return "Mod"
	}
	return ""
}

func relOpTag(op RelationOp) string {
	switch op {
	case Lt:
		return "Lt"
	case Le:
		return "Le"
	case Gt:
		return "Gt"
	case Ge:
		return "Ge"
	case Eq:
		return "Eq"
	case Ne:
		return "Ne"
	case In:
		return "In"
	}
	return ""
}

func unaryOpTag(op UnaryOp) string {
	switch op {
	case Not:
		return "Not"
	case DoubleNot:
		return "DoubleNot"
	case Neg:
		return "Neg"
	case DoubleNeg:
		return "DoubleNeg"
	}
	return ""
}

func marshalAccessor(a Accessor) (json.RawMessage, error) {
	switch n := a.(type) {
	case *Attribute:
		return wrap("Attribute", n.Name)
	case *Index:
		expr, err := MarshalExpression(n.Expr)
		if err != nil {
			return nil, err
		}
		return wrap("Index", json.RawMessage(expr))
	case *Fields:
		pairs := make([][2]any, len(n.Entries))
		for i, f := range n.Entries {
			raw, err := MarshalExpression(f.Expr)
			if err != nil {
				return nil, err
			}
			pairs[i] = [2]any{f.Name, json.RawMessage(raw)}
		}
		return wrap("Fields", pairs)
	default:
		return nil, fmt.Errorf("ast: unknown accessor type %T", a)
	}
}

// UnmarshalExpression decodes the tag-and-value wire shape back into an
// Expression tree (spec §4.2's lossless round-trip, property P1).
func UnmarshalExpression(data []byte) (Expression, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "Arithmetic":
		var parts [3]json.RawMessage
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, err
		}
		lhs, err := UnmarshalExpression(parts[0])
		if err != nil {
			return nil, err
		}
		var opTag string
		if err := json.Unmarshal(parts[1], &opTag); err != nil {
			return nil, err
		}
		rhs, err := UnmarshalExpression(parts[2])
		if err != nil {
			return nil, err
		}
		op, err := arithOpFromTag(opTag)
		if err != nil {
			return nil, err
		}
		return &Arithmetic{Lhs: lhs, Op: op, Rhs: rhs}, nil
	case "Relation":
		var parts [3]json.RawMessage
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, err
		}
		lhs, err := UnmarshalExpression(parts[0])
		if err != nil {
			return nil, err
		}
		var opTag string
		if err := json.Unmarshal(parts[1], &opTag); err != nil {
			return nil, err
		}
		rhs, err := UnmarshalExpression(parts[2])
		if err != nil {
			return nil, err
		}
		op, err := relOpFromTag(opTag)
		if err != nil {
			return nil, err
		}
		return &Relation{Lhs: lhs, Op: op, Rhs: rhs}, nil
	case "Ternary":
		var parts [3]json.RawMessage
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, err
		}
		cond, err := UnmarshalExpression(parts[0])
		if err != nil {
			return nil, err
		}
		then, err := UnmarshalExpression(parts[1])
		if err != nil {
			return nil, err
		}
		els, err := UnmarshalExpression(parts[2])
		if err != nil {
			return nil, err
		}
		return &Ternary{Cond: cond, Then: then, Else: els}, nil
	case "And", "Or":
		var parts [2]json.RawMessage
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, err
		}
		lhs, err := UnmarshalExpression(parts[0])
		if err != nil {
			return nil, err
		}
		rhs, err := UnmarshalExpression(parts[1])
		if err != nil {
			return nil, err
		}
		if env.Type == "And" {
			return &And{Lhs: lhs, Rhs: rhs}, nil
		}
		return &Or{Lhs: lhs, Rhs: rhs}, nil
	case "Unary":
		var parts [2]json.RawMessage
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, err
		}
		var opTag string
		if err := json.Unmarshal(parts[0], &opTag); err != nil {
			return nil, err
		}
		operand, err := UnmarshalExpression(parts[1])
		if err != nil {
			return nil, err
		}
		op, err := unaryOpFromTag(opTag)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	case "Member":
		var parts [2]json.RawMessage
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, err
		}
		recv, err := UnmarshalExpression(parts[0])
		if err != nil {
			return nil, err
		}
		acc, err := unmarshalAccessor(parts[1])
		if err != nil {
			return nil, err
		}
		return &Member{Receiver: recv, Accessor: acc}, nil
	case "FunctionCall":
		var parts [3]json.RawMessage
		if err := json.Unmarshal(env.Value, &parts); err != nil {
			return nil, err
		}
		callee, err := UnmarshalExpression(parts[0])
		if err != nil {
			return nil, err
		}
		var recv Expression
		if string(parts[1]) != "null" {
			recv, err = UnmarshalExpression(parts[1])
			if err != nil {
				return nil, err
			}
		}
		var rawArgs []json.RawMessage
		if err := json.Unmarshal(parts[2], &rawArgs); err != nil {
			return nil, err
		}
		args := make([]Expression, len(rawArgs))
		for i, raw := range rawArgs {
			args[i], err = UnmarshalExpression(raw)
			if err != nil {
				return nil, err
			}
		}
		return &FunctionCall{Callee: callee, Receiver: recv, Args: args}, nil
	case "List":
		var rawItems []json.RawMessage
		if err := json.Unmarshal(env.Value, &rawItems); err != nil {
			return nil, err
		}
		items := make([]Expression, len(rawItems))
		for i, raw := range rawItems {
			item, err := UnmarshalExpression(raw)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return &List{Items: items}, nil
	case "Map":
		var rawEntries [][2]json.RawMessage
		if err := json.Unmarshal(env.Value, &rawEntries); err != nil {
			return nil, err
		}
		entries := make([]MapEntry, len(rawEntries))
		for i, pair := range rawEntries {
			k, err := UnmarshalExpression(pair[0])
			if err != nil {
				return nil, err
			}
			v, err := UnmarshalExpression(pair[1])
			if err != nil {
				return nil, err
			}
			entries[i] = MapEntry{Key: k, Value: v}
		}
		return &Map{Entries: entries}, nil
	case "Atom":
		lit, err := unmarshalAtomLiteral(env.Value)
		if err != nil {
			return nil, err
		}
		return &Atom{Literal: lit}, nil
	case "Ident":
		var name string
		if err := json.Unmarshal(env.Value, &name); err != nil {
			return nil, err
		}
		return &Ident{Name: name}, nil
	default:
		return nil, fmt.Errorf("ast: unknown expression tag %q", env.Type)
	}
}

func arithOpFromTag(tag string) (ArithmeticOp, error) {
	switch tag {
	case "Add":
		return Add, nil
	case "Sub":
		return Sub, nil
	case "Mul":
		return Mul, nil
	case "Div":
		return Div, nil
	case "Mod":
		return Mod, nil
	default:
		return 0, fmt.Errorf("ast: unknown arithmetic op tag %q", tag)
	}
}

func relOpFromTag(tag string) (RelationOp, error) {
	switch tag {
	case "Lt":
		return Lt, nil
	case "Le":
		return Le, nil
	case "Gt":
		return Gt, nil
	case "Ge":
		return Ge, nil
	case "Eq":
		return Eq, nil
	case "Ne":
		return Ne, nil
	case "In":
		return In, nil
	default:
		return 0, fmt.Errorf("ast: unknown relation op tag %q", tag)
	}
}

func unaryOpFromTag(tag string) (UnaryOp, error) {
	switch tag {
	case "Not":
		return Not, nil
	case "DoubleNot":
		return DoubleNot, nil
	case "Neg":
		return Neg, nil
	case "DoubleNeg":
		return DoubleNeg, nil
	default:
		return 0, fmt.Errorf("ast: unknown unary op tag %q", tag)
	}
}

func unmarshalAccessor(data []byte) (Accessor, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "Attribute":
		var name string
		if err := json.Unmarshal(env.Value, &name); err != nil {
			return nil, err
		}
		return &Attribute{Name: name}, nil
	case "Index":
		expr, err := UnmarshalExpression(env.Value)
		if err != nil {
			return nil, err
		}
		return &Index{Expr: expr}, nil
	case "Fields":
		var rawPairs []json.RawMessage
		if err := json.Unmarshal(env.Value, &rawPairs); err != nil {
			return nil, err
		}
		entries := make([]FieldEntry, len(rawPairs))
		for i, raw := range rawPairs {
			var pair [2]json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil {
				return nil, err
			}
			var name string
			if err := json.Unmarshal(pair[0], &name); err != nil {
				return nil, err
			}
			expr, err := UnmarshalExpression(pair[1])
			if err != nil {
				return nil, err
			}
			entries[i] = FieldEntry{Name: name, Expr: expr}
		}
		return &Fields{Entries: entries}, nil
	default:
		return nil, fmt.Errorf("ast: unknown accessor tag %q", env.Type)
	}
}

func unmarshalAtomLiteral(data []byte) (AtomLiteral, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return AtomLiteral{}, err
	}
	switch env.Type {
	case "Int":
		var i int64
		if err := json.Unmarshal(env.Value, &i); err != nil {
			return AtomLiteral{}, err
		}
		return IntLit(i), nil
	case "UInt":
		var u uint64
		if err := json.Unmarshal(env.Value, &u); err != nil {
			return AtomLiteral{}, err
		}
		return UIntLit(u), nil
	case "Float":
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return AtomLiteral{}, err
		}
		return FloatLit(f), nil
	case "String":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return AtomLiteral{}, err
		}
		return StringLit(s), nil
	case "Bytes":
		var ints []int
		if err := json.Unmarshal(env.Value, &ints); err != nil {
			return AtomLiteral{}, err
		}
		bs := make([]byte, len(ints))
		for i, n := range ints {
			bs[i] = byte(n)
		}
		return BytesLit(bs), nil
	case "Bool":
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return AtomLiteral{}, err
		}
		return BoolLit(b), nil
	case "Null":
		return NullLit(), nil
	default:
		return AtomLiteral{}, fmt.Errorf("ast: unknown atom literal tag %q", env.Type)
	}
}

func marshalAtomLiteral(l AtomLiteral) (json.RawMessage, error) {
	switch l.Kind {
	case LitInt:
		return wrap("Int", l.IntVal)
	case LitUInt:
		return wrap("UInt", l.UIntVal)
	case LitFloat:
		return wrap("Float", l.FloatVal)
	case LitString:
		return wrap("String", l.StringVal)
	case LitBytes:
		ints := make([]int, len(l.BytesVal))
		for i, b := range l.BytesVal {
			ints[i] = int(b)
		}
		return wrap("Bytes", ints)
	case LitBool:
		return wrap("Bool", l.BoolVal)
	case LitNull:
		raw, _ := json.Marshal(envelope{Type: "Null"})
		return raw, nil
	default:
		return nil, fmt.Errorf("ast: unknown atom literal kind %d", l.Kind)
	}
}
