// Package celerr implements the error taxonomy of spec §7: tolerated
// runtime errors are downgraded to Null at the top-level dispatch boundary;
// fatal runtime errors propagate as Err("<diagnostic>").
package celerr

import (
	"errors"
	"fmt"

	"github.com/nullsafe/supercel/internal/value"
)

// Kind discriminates a Fault as tolerated or fatal per §7's taxonomy.
type Kind uint8

const (
	// Tolerated faults are replaced with Value::Null at the evaluator
	// boundary: undeclared references, unknown functions, Null comparisons.
	Tolerated Kind = iota
	// Fatal faults surface as Err: type mismatches, division by zero,
	// malformed hasFn arguments, host function errors.
	Fatal
)

// Fault is the evaluator's error type. It carries a Kind so the top-level
// dispatch can decide whether to downgrade it without matching on message
// text.
type Fault struct {
	Kind    Kind
	Message string
}

func (f *Fault) Error() string { return f.Message }

func newFault(k Kind, format string, args ...any) *Fault {
	return &Fault{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// UndeclaredReference reports an Ident that resolved nowhere in the
// environment. Tolerated: the rewriter should have insulated against this,
// but undeclared references may still surface from inputs the rewriter
// wasn't run over (e.g. evaluate_ast).
func UndeclaredReference(name string) *Fault {
	return newFault(Tolerated, "Undeclared reference: %s", name)
}

// UnknownFunction reports a call to a name that isn't has/hasFn/maybe, a
// conversion method, or a declared device/computed function. Tolerated.
func UnknownFunction(name string) *Fault {
	return newFault(Tolerated, "Unknown function: %s", name)
}

// NullComparison reports an ordering comparison (<, <=, >, >=) with a Null
// operand. Tolerated per §4.5 ("Ordering comparisons on Null are tolerated").
func NullComparison() *Fault {
	return newFault(Tolerated, "Null can not be compared")
}

// TypeMismatch reports an arithmetic or logical operator applied to operands
// of incompatible kinds. Fatal.
func TypeMismatch(op string, lhs, rhs value.Kind) *Fault {
	return newFault(Fatal, "type mismatch: %s not defined for %s and %s", op, lhs, rhs)
}

// DivisionByZero reports integer or float division/modulo by zero. Fatal.
func DivisionByZero() *Fault {
	return newFault(Fatal, "division by zero")
}

// MalformedHasFn reports a hasFn(...) call whose argument isn't exactly one
// string. Fatal.
func MalformedHasFn() *Fault {
	return newFault(Fatal, "hasFn expects exactly one string argument")
}

// HostFunctionError reports a failure surfaced by the host bridge, including
// bridge failures (timeouts, transport errors). Fatal.
func HostFunctionError(name string, cause error) *Fault {
	return newFault(Fatal, "host function %q failed: %v", name, cause)
}

// IsTolerated reports whether err is a *Fault with Kind == Tolerated.
func IsTolerated(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == Tolerated
	}
	return false
}

// Downgrade implements §7's propagation policy at the top-level dispatch: a
// tolerated Fault becomes (Null, nil); anything else (a fatal Fault, or any
// other error) passes through unchanged.
func Downgrade(v value.Value, err error) (value.Value, error) {
	if err == nil {
		return v, nil
	}
	if IsTolerated(err) {
		return value.Null(), nil
	}
	return v, err
}
