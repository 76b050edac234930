package eval

import (
	"github.com/nullsafe/supercel/internal/catalog"
	"github.com/nullsafe/supercel/internal/hostbridge"
	"github.com/nullsafe/supercel/internal/value"
)

// Environment is the request-local state the evaluator consumes: the user's
// variables, the synthesized device/computed namespaces, the declared
// catalogue (for hasFn) and the host bridge handle. Every request builds its
// own Environment; none of its fields are shared mutable state (spec §5).
type Environment struct {
	Variables *value.MapValue
	Device    *value.MapValue
	Computed  *value.MapValue
	Declared  catalog.Declaration
	Bridge    hostbridge.Bridge
}

// NewEnvironment builds an Environment per spec §4.5's "Environment
// synthesis": for each catalogue name, bind a Function(name, Some(args))
// sentinel, then merge in whatever "device"/"computed" sub-map the caller
// supplied inside vars, without overwriting a catalogue entry of the same
// name (SPEC_FULL §4 resolves the precedence in favour of the catalogue).
func NewEnvironment(vars *value.MapValue, decl catalog.Declaration, bridge hostbridge.Bridge) *Environment {
	return &Environment{
		Variables: vars,
		Device:    synthesizeNamespace(decl.Device, subMap(vars, "device")),
		Computed:  synthesizeNamespace(decl.Computed, subMap(vars, "computed")),
		Declared:  decl,
		Bridge:    bridge,
	}
}

func subMap(vars *value.MapValue, name string) *value.MapValue {
	if vars == nil {
		return nil
	}
	v, ok := vars.Get(value.StringKey(name))
	if !ok || v.Kind() != value.KindMap {
		return nil
	}
	return v.MapValue()
}

func synthesizeNamespace(cat catalog.Catalogue, userSub *value.MapValue) *value.MapValue {
	m := value.NewMap()
	for name, args := range cat {
		specimen := value.List(args)
		m.Set(value.StringKey(name), value.Function(name, &specimen))
	}
	if userSub != nil {
		for _, k := range userSub.Keys() {
			if _, exists := m.Get(k); exists {
				continue
			}
			v, _ := userSub.Get(k)
			m.Set(k, v)
		}
	}
	return m
}

// Resolve implements the Ident resolution order of spec §4.5: user
// variables, then the synthesized device map, then computed, then built-in
// identifiers; the caller treats a false return as an undeclared reference.
// "device" and "computed" are resolved to their synthesized namespace
// directly rather than through Variables, since that namespace already
// incorporates whatever sub-map the caller supplied under those names.
func (e *Environment) Resolve(name string) (value.Value, bool) {
	switch name {
	case "device":
		return value.Map(e.Device), true
	case "computed":
		return value.Map(e.Computed), true
	}
	if e.Variables != nil {
		if v, ok := e.Variables.Get(value.StringKey(name)); ok {
			return v, true
		}
	}
	if isBuiltinIdent(name) {
		return value.Function(name, nil), true
	}
	return value.Null(), false
}
