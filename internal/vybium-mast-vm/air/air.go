// Package air implements the Algebraic Intermediate Representation: the
// boundary and transition constraint packages for every subsystem plus
// the LogUp-GKR auxiliary-column construction that ties each chiplet's
// local trace back to the main trace through a permutation/lookup bus.
//
// The STARK composition/low-degree-testing machinery lives in a
// general-purpose STARK library, so this package's constraints are
// evaluator functions over concrete trace rows rather than symbolic
// polynomials: each returns the residual Felt the composition polynomial
// would carry at that row, which must be zero for every row of a valid
// trace.
package air

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// Assertion is one boundary constraint: a named column value fixed at a
// specific row.
type Assertion struct {
	Row   int
	Label string
	Value core.Felt
}

// Subsystem is one constraint package: a named group of boundary
// assertions and a per-row transition residual function, carrying the
// declared approximate constraint count and max degree used by the STARK
// composition polynomial.
type Subsystem struct {
	Name         string
	ApproxCount  int
	MaxDegree    int
	BoundaryFn   func(*trace.Trace) []Assertion
	TransitionFn func(*trace.Trace, int) []core.Felt
}

// Subsystems returns every per-subsystem constraint package, excluding
// the auxiliary LogUp package (built separately in logup.go/bus.go since
// it depends on verifier challenges, not just the trace).
func Subsystems() []Subsystem {
	return []Subsystem{
		{"system", 2, 1, SystemBoundary, SystemTransition},
		{"decoder", 40, 5, DecoderBoundary, DecoderTransition},
		{"stack", 130, 6, StackBoundary, StackTransition},
		{"range_checker", 6, 3, RangeCheckBoundary, RangeCheckTransition},
		{"hasher", 45, 8, HasherBoundary, HasherTransition},
		{"bitwise", 15, 3, BitwiseBoundary, BitwiseTransition},
		{"memory", 20, 5, MemoryBoundary, MemoryTransition},
		{"kernel_rom", 3, 2, KernelRomBoundary, KernelRomTransition},
		{"ace", 25, 3, AceBoundary, AceTransition},
	}
}

// Air is the assembled AIR over one materialised trace: the
// per-subsystem constraint packages plus the LogUp-GKR auxiliary column.
// It is a pure function of (trace, public inputs, challenges).
type Air struct {
	Trace   *trace.Trace
	Public  PublicInputs
	Systems []Subsystem
}

// New assembles the AIR over tr for the given public inputs.
func New(tr *trace.Trace, pub PublicInputs) *Air {
	return &Air{Trace: tr, Public: pub, Systems: Subsystems()}
}

// Residual is one nonzero constraint evaluation: a concrete witness
// that the trace violates the named subsystem's constraint at a given
// row, returned by Evaluate for diagnostic purposes.
type Residual struct {
	Subsystem string
	Row       int
	Index     int
	Value     core.Felt
}

// Evaluate runs every subsystem's boundary assertions and row-local
// transition residuals over the trace and returns every nonzero result.
// A valid execution's trace yields an empty slice.
func (a *Air) Evaluate() []Residual {
	var bad []Residual
	for _, sys := range a.Systems {
		for _, assertion := range sys.BoundaryFn(a.Trace) {
			if !assertion.Value.IsZero() {
				bad = append(bad, Residual{Subsystem: sys.Name, Row: assertion.Row, Value: assertion.Value})
			}
		}
		for row := 0; row < a.Trace.Height; row++ {
			for i, v := range sys.TransitionFn(a.Trace, row) {
				if !v.IsZero() {
					bad = append(bad, Residual{Subsystem: sys.Name, Row: row, Index: i, Value: v})
				}
			}
		}
	}
	return bad
}

// PublicInputs are absorbed into the Fiat-Shamir transcript before any
// random challenge is drawn.
type PublicInputs struct {
	ProgramDigest core.Digest
	StackInputs   []core.Felt
	StackOutputs  []core.Felt
	Kernel        []core.Digest
}

// Verify is the AIR's end-to-end contract over a concrete trace: every
// subsystem residual is zero and, if challenges are supplied, every
// bus's accumulated LogUp fraction also reduces to zero. It is not a
// STARK verification (no FRI, no composition polynomial query); it is
// the algebraic check a STARK prover/verifier pair builds on top of.
func (a *Air) Verify(ch *Challenges) error {
	if bad := a.Evaluate(); len(bad) > 0 {
		first := bad[0]
		return fmt.Errorf("air: %d constraint violation(s), first in %q at row %d: %s",
			len(bad), first.Subsystem, first.Row, first.Value)
	}
	if ch != nil {
		if err := VerifyBuses(a.Trace, ch); err != nil {
			return err
		}
	}
	return nil
}
