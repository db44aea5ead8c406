package vybiummastvm

import "testing"

func TestCryptoElementRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 42, Modulus - 1} {
		f := NewFelt(v)
		got := FromCryptoElement(ToCryptoElement(f))
		if !got.Equal(f) {
			t.Fatalf("round trip mismatch for %d: got %v", v, got)
		}
	}
}

func TestPublicInputsToCrypto(t *testing.T) {
	digest := Digest{NewFelt(1), NewFelt(2), NewFelt(3), NewFelt(4)}
	stackIn := []Felt{NewFelt(5), NewFelt(6)}
	stackOut := []Felt{NewFelt(7)}
	kernel := []Digest{{NewFelt(8), NewFelt(9), NewFelt(10), NewFelt(11)}}

	out := PublicInputsToCrypto(digest, stackIn, stackOut, kernel)
	want := 4 + len(stackIn) + len(stackOut) + 4*len(kernel)
	if len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}
	if out[0].Value() != 1 || out[len(out)-1].Value() != 11 {
		t.Fatalf("unexpected boundary values: first=%d last=%d", out[0].Value(), out[len(out)-1].Value())
	}
}

func TestCommitPublicInputsIsDeterministicAndBinding(t *testing.T) {
	digest := Digest{NewFelt(1), NewFelt(2), NewFelt(3), NewFelt(4)}
	stackIn := []Felt{NewFelt(5)}

	a := CommitPublicInputs(digest, stackIn, nil, nil)
	b := CommitPublicInputs(digest, stackIn, nil, nil)
	if a.Value() != b.Value() {
		t.Fatalf("commitment should be deterministic")
	}
	c := CommitPublicInputs(digest, []Felt{NewFelt(6)}, nil, nil)
	if a.Value() == c.Value() {
		t.Fatalf("commitment should bind the stack inputs")
	}
}
