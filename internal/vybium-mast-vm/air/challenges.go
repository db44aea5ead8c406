package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/utils"
)

// RLC is a random-linear-combination denominator builder shared by every
// bus except ACE's (whose wiring denominator is a fixed 4-term formula):
// a constant plus up to 5 challenge-weighted scalar terms, covering every
// bus key shape (a label plus up to 4 more fields).
type RLC struct {
	Const  core.QuadFelt
	Coeffs [5]core.QuadFelt
}

// Eval folds scalars (at most 5) into the denominator alpha0 + sum_i
// alpha_{i+1} * scalars[i].
func (r RLC) Eval(scalars ...core.Felt) core.QuadFelt {
	acc := r.Const
	for i, s := range scalars {
		acc = acc.Add(r.Coeffs[i].MulBase(s))
	}
	return acc
}

// Challenges are the verifier-supplied (Fiat-Shamir-derived) randomness
// every bus and the LogUp-GKR Lagrange-kernel column need. Each bus gets
// its own named RLC since each has its own key shape.
type Challenges struct {
	Bitwise RLC              // label, a, b, output
	Hasher  RLC              // label, digest[0..3]
	Memory  RLC              // ctx, addr, clk, value
	Kernel  RLC              // label, digest[0..3]
	Range   RLC              // value
	Ace     [4]core.QuadFelt // alpha0..alpha3 of the wiring denominator
	GkrR    []core.QuadFelt  // Lagrange-kernel vector r
}

func drawRLC(t *utils.Transcript) RLC {
	var r RLC
	r.Const = t.DrawQuadFelt()
	for i := range r.Coeffs {
		r.Coeffs[i] = t.DrawQuadFelt()
	}
	return r
}

// DeriveChallenges absorbs the public inputs (program digest, stack
// inputs, stack outputs, kernel) into a fresh transcript, in that
// order and before any draw, then derives every random coefficient the
// buses and the auxiliary column need. height must be a power of two;
// len(GkrR) = log2(height).
func DeriveChallenges(pub PublicInputs, height int) *Challenges {
	t := utils.NewTranscript("vybium-mast-vm/air/logup-gkr")
	t.AbsorbDigest(pub.ProgramDigest)
	for _, f := range pub.StackInputs {
		t.Absorb(f)
	}
	for _, f := range pub.StackOutputs {
		t.Absorb(f)
	}
	for _, d := range pub.Kernel {
		t.AbsorbDigest(d)
	}

	ch := &Challenges{
		Bitwise: drawRLC(t),
		Hasher:  drawRLC(t),
		Memory:  drawRLC(t),
		Kernel:  drawRLC(t),
		Range:   drawRLC(t),
	}
	for i := range ch.Ace {
		ch.Ace[i] = t.DrawQuadFelt()
	}

	depth := utils.Log2(height)
	if depth < 0 {
		depth = 0
	}
	ch.GkrR = make([]core.QuadFelt, depth)
	for i := range ch.GkrR {
		ch.GkrR[i] = t.DrawQuadFelt()
	}
	return ch
}
