package core

import "testing"

func TestFeltAddSubRoundTrip(t *testing.T) {
	a := NewFelt(123456789)
	b := NewFelt(987654321)
	if !a.Add(b).Sub(b).Equal(a) {
		t.Fatalf("(a+b)-b != a")
	}
}

func TestFeltAddWraps(t *testing.T) {
	a := NewFelt(Modulus - 1)
	got := a.Add(NewFelt(2))
	if !got.Equal(NewFelt(1)) {
		t.Fatalf("got %s, want 1", got)
	}
}

func TestFeltMulReductionNearModulus(t *testing.T) {
	a := NewFelt(Modulus - 1)
	b := NewFelt(Modulus - 1)
	// (p-1)*(p-1) mod p == 1
	if !a.Mul(b).Equal(OneFelt()) {
		t.Fatalf("(p-1)*(p-1) mod p should be 1, got %s", a.Mul(b))
	}
}

func TestFeltInvOfZeroFails(t *testing.T) {
	if _, err := ZeroFelt().Inv(); err == nil {
		t.Fatalf("expected error inverting zero")
	}
}

func TestFeltInvRoundTrip(t *testing.T) {
	a := NewFelt(42)
	inv, err := a.Inv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Mul(inv).Equal(OneFelt()) {
		t.Fatalf("a * a^-1 should be 1")
	}
}

func TestFeltNegRoundTrip(t *testing.T) {
	a := NewFelt(17)
	if !a.Add(a.Neg()).IsZero() {
		t.Fatalf("a + (-a) should be zero")
	}
}

func TestFeltSplitU32RoundTrip(t *testing.T) {
	a := NewFelt(0x1122334455667788)
	lo, hi := a.SplitU32()
	got := FeltFromU32Limbs(lo, hi)
	if !got.Equal(a) {
		t.Fatalf("split/reassemble round trip failed: got %s, want %s", got, a)
	}
}

func TestFeltFromInt64Negative(t *testing.T) {
	got := FeltFromInt64(-5)
	want := ZeroFelt().Sub(NewFelt(5))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestFeltExpMatchesRepeatedMul(t *testing.T) {
	a := NewFelt(3)
	got := a.Exp(5)
	want := a.Mul(a).Mul(a).Mul(a).Mul(a)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestFeltDivByZeroFails(t *testing.T) {
	if _, err := NewFelt(5).Div(ZeroFelt()); err == nil {
		t.Fatalf("expected error dividing by zero")
	}
}

func TestFeltNewFeltReducesAboveModulus(t *testing.T) {
	got := NewFelt(Modulus + 10)
	if !got.Equal(NewFelt(10)) {
		t.Fatalf("got %s, want 10", got)
	}
}

func TestFeltElementRoundTrip(t *testing.T) {
	a := NewFelt(123456789)
	if !FeltFromElement(a.Element()).Equal(a) {
		t.Fatalf("unwrap/rewrap round trip failed")
	}
	if a.Element().Value() != a.Uint64() {
		t.Fatalf("the wrapper and its element should agree on the representative")
	}
}
