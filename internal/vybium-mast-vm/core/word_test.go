package core

import "testing"

func TestWordDigestRoundTrip(t *testing.T) {
	w := Word{NewFelt(1), NewFelt(2), NewFelt(3), NewFelt(4)}
	d := w.AsDigest()
	got := DigestAsWord(d)
	if !got.Equal(w) {
		t.Fatalf("word -> digest -> word round trip failed")
	}
}

func TestDigestEqual(t *testing.T) {
	a := Digest{NewFelt(1), NewFelt(2), NewFelt(3), NewFelt(4)}
	b := Digest{NewFelt(1), NewFelt(2), NewFelt(3), NewFelt(4)}
	c := Digest{NewFelt(1), NewFelt(2), NewFelt(3), NewFelt(5)}
	if !a.Equal(b) {
		t.Fatalf("identical digests should compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("different digests should not compare equal")
	}
}

func TestZeroWordAndDigest(t *testing.T) {
	if !ZeroWord().Equal(Word{}) {
		t.Fatalf("ZeroWord should be the zero value")
	}
	if !ZeroDigest().Equal(Digest{}) {
		t.Fatalf("ZeroDigest should be the zero value")
	}
}
