// Package config holds the small set of constants shared across supercel's
// packages: the version string and the names the evaluator recognises
// without consulting any declared catalogue.
package config

// Version is the module's release string, surfaced by cmd/supercel's
// "-version" flag.
const Version = "0.1.0"

// SupportedBuiltins is the literal set of names hasFn must answer true for
// regardless of any device/computed catalogue: has, hasFn, maybe, the
// generic toString alias, the typed *ToString conversion methods, and the
// toBool/toInt/toFloat string conversions.
var SupportedBuiltins = map[string]bool{
	"has":           true,
	"hasFn":         true,
	"maybe":         true,
	"toString":      true,
	"intToString":   true,
	"uintToString":  true,
	"floatToString": true,
	"boolToString":  true,
	"toBool":        true,
	"toInt":         true,
	"toFloat":       true,
}

// IsSupportedBuiltin reports whether name is one of SupportedBuiltins.
func IsSupportedBuiltin(name string) bool {
	return SupportedBuiltins[name]
}
