package air

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/utils"
)

// LagrangeKernel evaluates the multilinear equality polynomial eq(r, x)
// at the boolean point whose bits are x's binary expansion, the weight
// the auxiliary trace's Lagrange-kernel column carries at row x.
func LagrangeKernel(r []core.QuadFelt, x int) core.QuadFelt {
	acc := core.OneQuadFelt()
	for i, ri := range r {
		bit := (x >> uint(len(r)-1-i)) & 1
		if bit == 1 {
			acc = acc.Mul(ri)
		} else {
			acc = acc.Mul(core.OneQuadFelt().Sub(ri))
		}
	}
	return acc
}

// LagrangeColumn returns eq(r, x) for every x in [0, 2^len(r)).
func LagrangeColumn(r []core.QuadFelt) []core.QuadFelt {
	height := 1 << uint(len(r))
	col := make([]core.QuadFelt, height)
	for x := 0; x < height; x++ {
		col[x] = LagrangeKernel(r, x)
	}
	return col
}

// InnerProduct evaluates <alpha, row>, embedding each base-field opening
// into the extension field before weighting it by its challenge.
func InnerProduct(alpha []core.QuadFelt, row []core.Felt) core.QuadFelt {
	acc := core.ZeroQuadFelt()
	for i, v := range row {
		acc = acc.Add(alpha[i].MulBase(v))
	}
	return acc
}

// AuxColumn builds the Lagrange-kernel column and the accumulating s
// column over openings (s = prev + kernel * <alpha, row>), one row of
// openings per trace row. len(r) must equal log2(len(openings)) and
// every openings row must have at least len(alpha) entries.
func AuxColumn(r, alpha []core.QuadFelt, openings [][]core.Felt) (lagrange, s []core.QuadFelt, err error) {
	height := 1 << uint(len(r))
	if len(openings) != height {
		return nil, nil, fmt.Errorf("air: openings has %d rows, want 2^%d = %d", len(openings), len(r), height)
	}
	lagrange = LagrangeColumn(r)
	s = make([]core.QuadFelt, height)
	s[0] = lagrange[0].Mul(InnerProduct(alpha, openings[0]))
	for i := 1; i < height; i++ {
		s[i] = s[i-1].Add(lagrange[i].Mul(InnerProduct(alpha, openings[i])))
	}
	return lagrange, s, nil
}

// AuxBoundaryFirst is the aux column's first boundary residual: s[0]
// must equal eq(r,0) * <alpha, openings[0]>. Zero means the boundary
// holds.
func AuxBoundaryFirst(lagrange, s []core.QuadFelt, alpha []core.QuadFelt, openings [][]core.Felt) core.QuadFelt {
	want := lagrange[0].Mul(InnerProduct(alpha, openings[0]))
	return s[0].Sub(want)
}

// AuxBoundaryLast is the aux column's terminal boundary residual: s at
// the final row must equal <alpha, openings[last]>.
func AuxBoundaryLast(s []core.QuadFelt, alpha []core.QuadFelt, openings [][]core.Felt) core.QuadFelt {
	last := len(s) - 1
	want := InnerProduct(alpha, openings[last])
	return s[last].Sub(want)
}

// AuxTransition is the aux column's single transition constraint:
// s[row] - s[row-1] - lagrange[row]*<alpha, openings[row]> must
// vanish.
func AuxTransition(row int, lagrange, s []core.QuadFelt, alpha []core.QuadFelt, openings [][]core.Felt) core.QuadFelt {
	if row == 0 {
		return core.ZeroQuadFelt()
	}
	got := s[row].Sub(s[row-1])
	want := lagrange[row].Mul(InnerProduct(alpha, openings[row]))
	return got.Sub(want)
}

// GkrProof is the sum-check-shaped transcript for the LogUp-GKR
// bus-fraction circuit: the claimed total sum over the boolean hypercube,
// plus one triple per variable. Triple i holds the weighted sums over
// rows [0, 2^(n-1-i)) and [2^(n-1-i), 2^(n-i)), then the linear
// extrapolation 2*second - first; these are not full sum-check round
// polynomials, and Verify does not read them. The STARK/FRI layer
// that would make this succinct lives in a general-purpose prover;
// Verify here recomputes the column directly rather than only checking a
// short transcript, so the type carries the interface without claiming
// succinctness on its own.
type GkrProof struct {
	Claim  core.QuadFelt
	Rounds [][3]core.QuadFelt
}

// FinalOpeningClaim is the point and value a sum-check proof reduces
// to: the verifier must check this claim against the prover's committed
// trace at the end of the protocol.
type FinalOpeningClaim struct {
	Point []core.QuadFelt
	Value core.QuadFelt
}

// Prove draws the Lagrange-kernel vector r from transcript, builds the
// aux column over openings, and returns the resulting GkrProof. alpha is
// the lookup randomness: the random-linear-combination coefficients
// weighting each opening column.
func Prove(openings [][]core.Felt, alpha []core.QuadFelt, transcript *utils.Transcript) (*GkrProof, error) {
	n := utils.Log2(len(openings))
	if n < 0 {
		return nil, fmt.Errorf("air: openings length %d is not a power of two", len(openings))
	}
	r := make([]core.QuadFelt, n)
	for i := range r {
		r[i] = transcript.DrawQuadFelt()
	}
	lagrange, s, err := AuxColumn(r, alpha, openings)
	if err != nil {
		return nil, err
	}

	rounds := make([][3]core.QuadFelt, n)
	for i := range rounds {
		half := 1 << uint(n-1-i)
		var at0, at1 core.QuadFelt
		for x := 0; x < half; x++ {
			at0 = at0.Add(lagrange[x].Mul(InnerProduct(alpha, openings[x])))
		}
		for x := half; x < 2*half; x++ {
			at1 = at1.Add(lagrange[x].Mul(InnerProduct(alpha, openings[x])))
		}
		at2 := at1.Add(at1.Sub(at0))
		rounds[i] = [3]core.QuadFelt{at0, at1, at2}
	}

	return &GkrProof{Claim: s[len(s)-1], Rounds: rounds}, nil
}

// Verify redraws r from transcript (which must have absorbed the same
// prior state the prover's transcript had), recomputes the aux column
// over openings, and checks it reduces to proof's claimed sum.
func Verify(claim core.QuadFelt, proof *GkrProof, openings [][]core.Felt, alpha []core.QuadFelt, transcript *utils.Transcript) (*FinalOpeningClaim, error) {
	n := utils.Log2(len(openings))
	if n < 0 {
		return nil, fmt.Errorf("air: openings length %d is not a power of two", len(openings))
	}
	r := make([]core.QuadFelt, n)
	for i := range r {
		r[i] = transcript.DrawQuadFelt()
	}
	_, s, err := AuxColumn(r, alpha, openings)
	if err != nil {
		return nil, err
	}
	total := s[len(s)-1]
	if !total.Equal(proof.Claim) {
		return nil, fmt.Errorf("air: gkr proof claim mismatch: recomputed %s, proof says %s", total, proof.Claim)
	}
	if !total.Equal(claim) {
		return nil, fmt.Errorf("air: gkr proof does not match the claimed sum %s", claim)
	}
	return &FinalOpeningClaim{Point: r, Value: total}, nil
}
