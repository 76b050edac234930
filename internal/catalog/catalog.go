// Package catalog defines the declared host-function catalogue shared by
// internal/rewrite (which only needs to know whether a name is declared) and
// internal/eval (which also needs the specimen argument values to synthesise
// the device/computed Function sentinels of spec §4.5).
package catalog

import "github.com/nullsafe/supercel/internal/value"

// Catalogue maps a declared function name to its ordered list of specimen
// wire values.
type Catalogue map[string][]value.Value

// Declared reports whether name is present in the catalogue.
func (c Catalogue) Declared(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c[name]
	return ok
}

// Declaration is the full declared catalogue passed to the rewriter and the
// evaluator: one Catalogue for device.* names, one for computed.* names.
type Declaration struct {
	Device   Catalogue
	Computed Catalogue
}
