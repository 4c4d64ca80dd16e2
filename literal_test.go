package backdoor

import "testing"

// TestLitExternalRoundTrip is the §8 "Round-trip" property: Lit -> i32 ->
// Lit is the identity for every nonzero representable literal.
func TestLitExternalRoundTrip(t *testing.T) {
	for _, n := range []int{1, -1, 2, -2, 100, -100} {
		l := LitFromExternal(n)
		if got := l.ToExternal(); got != n {
			t.Errorf("LitFromExternal(%d).ToExternal() = %d, want %d", n, got, n)
		}
	}
}

func TestLitFromExternalPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on zero literal")
		}
	}()
	LitFromExternal(0)
}

func TestLitNeg(t *testing.T) {
	l := NewLit(5, false)
	if l.Neg().Var() != l.Var() {
		t.Fatal("negation must not change the variable")
	}
	if !l.Neg().Negated() {
		t.Fatal("Neg() of a positive literal must be negated")
	}
	if l.Neg().Neg() != l {
		t.Fatal("double negation must be the identity")
	}
}
