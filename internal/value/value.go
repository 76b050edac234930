// Package value implements the tagged value universe that every expression
// in supercel evaluates to: Int, UInt, Float, Bool, String, Bytes, Null,
// Timestamp, List, Map and Function, plus their JSON wire encoding.
package value

import "fmt"

// Kind identifies a Value's variant. It mirrors the wire "type" tag.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindUInt
	KindFloat
	KindBool
	KindString
	KindBytes
	KindTimestamp
	KindList
	KindMap
	KindFunction
)

// String returns the wire tag for the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUInt:
		return "uint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTimestamp:
		return "timestamp"
	case KindNull:
		return "Null"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Value is the closed tagged union every expression evaluates to. It
// intentionally keeps its fields private: variants are built through the
// constructor functions below and read through the typed accessors, so the
// zero value is always the well-formed Null.
type Value struct {
	kind Kind

	i     int64
	u     uint64
	f     float64
	b     bool
	s     string
	bytes []byte

	list []Value
	m    *MapValue

	fnName string
	fnArg  *Value
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func UInt(u uint64) Value    { return Value{kind: KindUInt, u: u} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBytes, bytes: cp}
}
func Timestamp(epoch int64) Value { return Value{kind: KindTimestamp, i: epoch} }
func Null() Value                 { return Value{kind: KindNull} }

// List builds an ordered List value. The backing slice is copied.
func List(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Map builds a Map value from an already constructed MapValue.
func Map(m *MapValue) Value { return Value{kind: KindMap, m: m} }

// Function builds a Function sentinel value; arg is optional (nil for none).
func Function(name string, arg *Value) Value {
	return Value{kind: KindFunction, fnName: name, fnArg: arg}
}

// IntValue returns the payload of an Int value (zero otherwise).
func (v Value) IntValue() int64 { return v.i }

// UIntValue returns the payload of a UInt value (zero otherwise).
func (v Value) UIntValue() uint64 { return v.u }

// FloatValue returns the payload of a Float value (zero otherwise).
func (v Value) FloatValue() float64 { return v.f }

// BoolValue returns the payload of a Bool value (false otherwise).
func (v Value) BoolValue() bool { return v.b }

// StringValue returns the payload of a String value ("" otherwise).
func (v Value) StringValue() string { return v.s }

// BytesValue returns the payload of a Bytes value (nil otherwise).
func (v Value) BytesValue() []byte { return v.bytes }

// TimestampValue returns the epoch payload of a Timestamp value.
func (v Value) TimestampValue() int64 { return v.i }

// ListValue returns the elements of a List value (nil otherwise).
func (v Value) ListValue() []Value { return v.list }

// MapValue returns the underlying map of a Map value (nil otherwise).
func (v Value) MapValue() *MapValue { return v.m }

// FunctionName returns the name of a Function value.
func (v Value) FunctionName() string { return v.fnName }

// FunctionArg returns the optional single argument of a Function value.
func (v Value) FunctionArg() *Value { return v.fnArg }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// isNumeric reports whether v's kind participates in cross-type numeric
// equality (§3: Int, UInt, Float).
func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindUInt || v.kind == KindFloat
}

// asFloat converts a numeric Value to float64 for comparison purposes.
func (v Value) asFloat() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindUInt:
		return float64(v.u)
	case KindFloat:
		return v.f
	}
	return 0
}

// Equal implements §3's structural equality with cross-type numeric equality
// between Int, UInt and Float whenever the numeric value is exactly
// representable in both types.
func Equal(a, b Value) bool {
	if a.isNumeric() && b.isNumeric() {
		return numericEqual(a, b)
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindBytes:
		return bytesEqual(a.bytes, b.bytes)
	case KindTimestamp:
		return a.i == b.i
	case KindNull:
		return true
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return mapEqual(a.m, b.m)
	case KindFunction:
		if a.fnName != b.fnName {
			return false
		}
		if (a.fnArg == nil) != (b.fnArg == nil) {
			return false
		}
		if a.fnArg == nil {
			return true
		}
		return Equal(*a.fnArg, *b.fnArg)
	}
	return false
}

// numericEqual compares two numeric Values exactly, without float rounding
// for the Int/UInt pairing (e.g. Int(-1) != UInt(MAX)).
func numericEqual(a, b Value) bool {
	if a.kind == KindInt && b.kind == KindInt {
		return a.i == b.i
	}
	if a.kind == KindUInt && b.kind == KindUInt {
		return a.u == b.u
	}
	if a.kind == KindInt && b.kind == KindUInt {
		return a.i >= 0 && uint64(a.i) == b.u
	}
	if a.kind == KindUInt && b.kind == KindInt {
		return b.i >= 0 && uint64(b.i) == a.u
	}
	if a.kind == KindFloat && b.kind == KindFloat {
		return a.f == b.f
	}
	// Float is compared by exact representability in both directions: the
	// float must be a whole number in range that converts to the integer
	// without rounding.
	if a.kind == KindFloat {
		a, b = b, a
	}
	f := b.f
	if a.kind == KindInt {
		return f >= -(1<<63) && f < (1<<63) && int64(f) == a.i && float64(a.i) == f
	}
	return f >= 0 && f < (1<<64) && uint64(f) == a.u && float64(a.u) == f
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mapEqual(a, b *MapValue) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		av, _ := a.Get(k)
		bv, ok := b.Get(k)
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// Display produces canonical text for v, per §4.1.
func Display(v Value) string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindUInt:
		return fmt.Sprintf("%d", v.u)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%v", v.bytes)
	case KindTimestamp:
		return fmt.Sprintf("%d", v.i)
	case KindNull:
		return "null"
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = Display(item)
		}
		return joinDisplay(parts)
	case KindMap:
		return displayMap(v.m)
	case KindFunction:
		return v.fnName
	}
	return ""
}

func joinDisplay(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ",\n "
		}
		out += p
	}
	return out
}

func displayMap(m *MapValue) string {
	if m == nil {
		return "{}"
	}
	out := "{"
	for i, k := range m.Keys() {
		if i > 0 {
			out += ", "
		}
		v, _ := m.Get(k)
		out += k.Display() + ": " + Display(v)
	}
	out += "}"
	return out
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}
