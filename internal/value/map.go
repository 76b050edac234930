package value

import "fmt"

// MapKeyKind identifies a MapKey's variant (§3: String, Int, UInt, Bool).
type MapKeyKind uint8

const (
	MapKeyString MapKeyKind = iota
	MapKeyInt
	MapKeyUInt
	MapKeyBool
)

// MapKey is one of String, Int, UInt, Bool, used as a Map's key type.
type MapKey struct {
	kind MapKeyKind
	s    string
	i    int64
	u    uint64
	b    bool
}

func StringKey(s string) MapKey { return MapKey{kind: MapKeyString, s: s} }
func IntKey(i int64) MapKey     { return MapKey{kind: MapKeyInt, i: i} }
func UIntKey(u uint64) MapKey   { return MapKey{kind: MapKeyUInt, u: u} }
func BoolKey(b bool) MapKey     { return MapKey{kind: MapKeyBool, b: b} }

func (k MapKey) Kind() MapKeyKind { return k.kind }

// Display stringifies the key per §4.1.1: String keys use their underlying
// text; Int/UInt/Bool keys use their decimal/true-false textual form.
func (k MapKey) Display() string {
	switch k.kind {
	case MapKeyString:
		return k.s
	case MapKeyInt:
		return fmt.Sprintf("%d", k.i)
	case MapKeyUInt:
		return fmt.Sprintf("%d", k.u)
	case MapKeyBool:
		if k.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// comparable identity used internally for the backing Go map, since MapKey
// itself contains unexported fields but is otherwise a plain comparable
// struct (no slices/maps), so it can be a Go map key directly.

// MapValue is an insertion-order-preserving map from MapKey to Value.
// Equality over MapValue (§3) is unordered over keys; insertion order is
// retained only so JSON encoding and Display are deterministic for a given
// construction sequence.
type MapValue struct {
	entries map[MapKey]Value
	order   []MapKey
}

// NewMap returns an empty MapValue.
func NewMap() *MapValue {
	return &MapValue{entries: make(map[MapKey]Value)}
}

// Set inserts or replaces the value for key, preserving first-insertion
// order.
func (m *MapValue) Set(key MapKey, v Value) {
	if _, exists := m.entries[key]; !exists {
		m.order = append(m.order, key)
	}
	m.entries[key] = v
}

// Get returns the value for key and whether it was present.
func (m *MapValue) Get(key MapKey) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Len returns the number of entries.
func (m *MapValue) Len() int { return len(m.order) }

// Keys returns the keys in insertion order.
func (m *MapValue) Keys() []MapKey {
	out := make([]MapKey, len(m.order))
	copy(out, m.order)
	return out
}
