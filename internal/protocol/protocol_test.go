package protocol_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/parashield/parashield/internal/protocol"
)

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "0"},
		{5_000_000, "5"},
		{2_500_000, "2.5"},
		{4_500_000, "4.5"},
		{1, "0.000001"},
		{15_000_000, "15"},
		{1_050_000, "1.05"},
		{-2_500_000, "-2.5"},
	}
	for _, tc := range cases {
		if got := protocol.FormatTokens(tc.amount); got != tc.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestTokens(t *testing.T) {
	if got := protocol.Tokens(5); got != 5_000_000 {
		t.Errorf("Tokens(5) = %d, want 5000000", got)
	}
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		err  error
		want protocol.Class
	}{
		{protocol.Validation("bad input"), protocol.ClassValidation},
		{protocol.Authorization("not admin"), protocol.ClassAuthorization},
		{protocol.State("wrong state"), protocol.ClassState},
		{protocol.Solvency("broke"), protocol.ClassSolvency},
	}
	for _, tc := range cases {
		class, ok := protocol.ClassOf(tc.err)
		if !ok {
			t.Fatalf("ClassOf(%v): not recognized as protocol error", tc.err)
		}
		if class != tc.want {
			t.Errorf("ClassOf(%v) = %v, want %v", tc.err, class, tc.want)
		}
	}
}

func TestClassOf_wrapped(t *testing.T) {
	err := fmt.Errorf("approve claim: %w", protocol.State("Claim is not pending"))
	class, ok := protocol.ClassOf(err)
	if !ok || class != protocol.ClassState {
		t.Errorf("ClassOf(wrapped) = %v, %v; want ClassState, true", class, ok)
	}
}

func TestClassOf_foreignError(t *testing.T) {
	if _, ok := protocol.ClassOf(errors.New("disk on fire")); ok {
		t.Error("ClassOf should not recognize a plain error")
	}
}

func TestErrorMessageVerbatim(t *testing.T) {
	err := protocol.Validation("Must send exactly 5 SHM for coverage")
	if err.Error() != "Must send exactly 5 SHM for coverage" {
		t.Errorf("Error() = %q, message must round-trip verbatim", err.Error())
	}
}

func TestClassString(t *testing.T) {
	if protocol.ClassSolvency.String() != "solvency" {
		t.Errorf("ClassSolvency.String() = %q", protocol.ClassSolvency.String())
	}
	if protocol.Class(99).String() != "unknown" {
		t.Errorf("unknown class should stringify as %q", "unknown")
	}
}
