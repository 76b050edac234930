package celerr_test

import (
	"errors"
	"testing"

	"github.com/nullsafe/supercel/internal/celerr"
	"github.com/nullsafe/supercel/internal/value"
)

func TestIsTolerated(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"undeclared_reference", celerr.UndeclaredReference("x"), true},
		{"unknown_function", celerr.UnknownFunction("f"), true},
		{"null_comparison", celerr.NullComparison(), true},
		{"type_mismatch", celerr.TypeMismatch("+", value.KindInt, value.KindString), false},
		{"division_by_zero", celerr.DivisionByZero(), false},
		{"malformed_hasfn", celerr.MalformedHasFn(), false},
		{"host_function_error", celerr.HostFunctionError("f", errors.New("boom")), false},
		{"plain_error", errors.New("not a fault"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := celerr.IsTolerated(tc.err); got != tc.want {
				t.Errorf("IsTolerated(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDowngrade(t *testing.T) {
	t.Run("nil_error_passes_through", func(t *testing.T) {
		v, err := celerr.Downgrade(value.Int(5), nil)
		if err != nil || !value.Equal(v, value.Int(5)) {
			t.Errorf("Downgrade(5, nil) = (%v, %v), want (5, nil)", v, err)
		}
	})
	t.Run("tolerated_becomes_null", func(t *testing.T) {
		v, err := celerr.Downgrade(value.Null(), celerr.UndeclaredReference("x"))
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if !v.IsNull() {
			t.Errorf("expected Null, got %v", v)
		}
	})
	t.Run("fatal_propagates", func(t *testing.T) {
		faultErr := celerr.DivisionByZero()
		v, err := celerr.Downgrade(value.Null(), faultErr)
		if err != faultErr {
			t.Errorf("expected fatal error to propagate unchanged, got %v", err)
		}
		if !v.IsNull() {
			t.Errorf("expected Null passthrough, got %v", v)
		}
	})
}

func TestFaultErrorMessage(t *testing.T) {
	err := celerr.TypeMismatch("+", value.KindInt, value.KindString)
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
