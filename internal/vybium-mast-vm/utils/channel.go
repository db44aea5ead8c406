package utils

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// Transcript is a Fiat-Shamir channel: the AIR's challenge generator
// absorbs public inputs (program digest, stack inputs/outputs, kernel)
// before drawing the LogUp-GKR randomness. Hashing is sha3 throughout;
// this layer has exactly one collaborator (the STARK library's
// Fiat-Shamir requirements), not a configurable prover.
type Transcript struct {
	state []byte
}

// NewTranscript starts a transcript from a domain-separation label.
func NewTranscript(label string) *Transcript {
	h := sha3.Sum256([]byte(label))
	return &Transcript{state: h[:]}
}

// Absorb mixes a field element into the transcript state.
func (t *Transcript) Absorb(f core.Felt) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], f.Uint64())
	t.absorbBytes(buf[:])
}

// AbsorbDigest mixes a full digest into the transcript state.
func (t *Transcript) AbsorbDigest(d core.Digest) {
	for _, f := range d {
		t.Absorb(f)
	}
}

// AbsorbWord mixes a full word into the transcript state.
func (t *Transcript) AbsorbWord(w core.Word) {
	for _, f := range w {
		t.Absorb(f)
	}
}

func (t *Transcript) absorbBytes(data []byte) {
	h := sha3.New256()
	h.Write(t.state)
	h.Write(data)
	t.state = h.Sum(nil)
}

// DrawFelt derives the next base-field challenge from the transcript state,
// updating the state so a subsequent draw differs.
func (t *Transcript) DrawFelt() core.Felt {
	h := sha3.Sum256(append(append([]byte(nil), t.state...), 0x01))
	t.state = h[:]
	return core.NewFelt(binary.LittleEndian.Uint64(h[:8]))
}

// DrawQuadFelt derives the next extension-field challenge, used to seed
// the LogUp-GKR Lagrange-kernel vector r.
func (t *Transcript) DrawQuadFelt() core.QuadFelt {
	return core.NewQuadFelt(t.DrawFelt(), t.DrawFelt())
}

// DrawFelts derives n independent base-field challenges in sequence.
func (t *Transcript) DrawFelts(n int) []core.Felt {
	out := make([]core.Felt, n)
	for i := range out {
		out[i] = t.DrawFelt()
	}
	return out
}
