package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/chiplets"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// AceBoundary asserts the circuit's acceptance condition (the output
// node of the last eval row evaluates to zero in QuadFelt) and that
// every eval row's declared output matches the gate operation applied to
// its declared operands.
func AceBoundary(tr *trace.Trace) []Assertion {
	var out []Assertion
	evals := tr.AceEvals
	if len(evals) == 0 {
		return out
	}
	last := evals[len(evals)-1]
	if !last.OutputVal.IsZero() {
		out = append(out, Assertion{Row: len(evals) - 1, Label: "ace_circuit_accepts", Value: core.OneFelt()})
	}
	for i, e := range evals {
		var want core.QuadFelt
		switch e.Op {
		case chiplets.GateAdd:
			want = e.LeftVal.Add(e.RightVal)
		case chiplets.GateSub:
			want = e.LeftVal.Sub(e.RightVal)
		case chiplets.GateMul:
			want = e.LeftVal.Mul(e.RightVal)
		}
		if !want.Equal(e.OutputVal) {
			out = append(out, Assertion{Row: i, Label: "ace_gate_evaluates_correctly", Value: core.OneFelt()})
		}
	}
	return out
}

// AceTransition has no row-to-row relation within the Read/Eval sections
// beyond each row's own gate-correctness check in AceBoundary; the
// cross-section wiring identity (node ids referenced consistently across
// reads and evals) is enforced by the wiring bus in bus.go.
func AceTransition(tr *trace.Trace, row int) []core.Felt { return nil }
