package value

import (
	"encoding/json"
	"fmt"
)

// wireEnvelope mirrors the wire value shape from spec §6:
// {"type": <tag>, "value": <payload>}. Null omits "value" entirely.
type wireEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

type wireFunction struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// MarshalJSON implements the {"type","value"} wire envelope for Value.
func (v Value) MarshalJSON() ([]byte, error) {
	env := wireEnvelope{Type: v.kind.String()}
	var payload any
	switch v.kind {
	case KindInt:
		payload = v.i
	case KindUInt:
		payload = v.u
	case KindFloat:
		payload = v.f
	case KindBool:
		payload = v.b
	case KindString:
		payload = v.s
	case KindBytes:
		ints := make([]int, len(v.bytes))
		for i, b := range v.bytes {
			ints[i] = int(b)
		}
		payload = ints
	case KindTimestamp:
		payload = v.i
	case KindNull:
		return json.Marshal(wireEnvelope{Type: "Null"})
	case KindList:
		payload = v.list
	case KindMap:
		obj := make(map[string]Value, v.m.Len())
		if v.m != nil {
			for _, k := range v.m.Keys() {
				val, _ := v.m.Get(k)
				obj[k.Display()] = val
			}
		}
		payload = obj
	case KindFunction:
		wf := wireFunction{Name: v.fnName}
		if v.fnArg != nil {
			raw, err := json.Marshal(*v.fnArg)
			if err != nil {
				return nil, err
			}
			wf.Args = raw
		}
		raw, err := json.Marshal(wf)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireEnvelope{Type: "function", Value: raw})
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env.Value = raw
	return json.Marshal(env)
}

// UnmarshalJSON decodes the {"type","value"} wire envelope into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Type {
	case "int":
		var i int64
		if err := json.Unmarshal(env.Value, &i); err != nil {
			return err
		}
		*v = Int(i)
	case "uint":
		var u uint64
		if err := json.Unmarshal(env.Value, &u); err != nil {
			return err
		}
		*v = UInt(u)
	case "float":
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case "bool":
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "string":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	case "bytes":
		var ints []int
		if err := json.Unmarshal(env.Value, &ints); err != nil {
			return err
		}
		bs := make([]byte, len(ints))
		for i, n := range ints {
			bs[i] = byte(n)
		}
		*v = Bytes(bs)
	case "timestamp":
		var i int64
		if err := json.Unmarshal(env.Value, &i); err != nil {
			return err
		}
		*v = Timestamp(i)
	case "Null", "null":
		*v = Null()
	case "list":
		var items []Value
		if err := json.Unmarshal(env.Value, &items); err != nil {
			return err
		}
		*v = List(items)
	case "map":
		var obj map[string]Value
		if err := json.Unmarshal(env.Value, &obj); err != nil {
			return err
		}
		m := NewMap()
		for k, val := range obj {
			m.Set(StringKey(k), val)
		}
		*v = Map(m)
	case "function":
		var wf wireFunction
		if err := json.Unmarshal(env.Value, &wf); err != nil {
			return err
		}
		var arg *Value
		if len(wf.Args) > 0 {
			var a Value
			if err := json.Unmarshal(wf.Args, &a); err != nil {
				return err
			}
			arg = &a
		}
		*v = Function(wf.Name, arg)
	default:
		return fmt.Errorf("value: unknown wire type %q", env.Type)
	}
	return nil
}
