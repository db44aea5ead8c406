package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/processor"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// StackBoundary enforces the overflow table's temporal-ordering
// invariant: an entry pulled back from overflow names the clock at which
// it was originally spilled, which must not exceed the clock of the pull
// itself.
func StackBoundary(tr *trace.Trace) []Assertion {
	var out []Assertion
	for i, r := range tr.Overflow {
		if r.ParentClk != 0 && r.ParentClk > r.Clk {
			out = append(out, Assertion{Row: i, Label: "overflow_parent_clk_ordering", Value: core.NewFelt(1)})
		}
	}
	return out
}

// StackTransition enforces that the 16 fast-stack columns hold exactly
// steady across HALT padding rows, where by construction no op runs. The
// per-op permutation-correctness relations are enforced at execution
// time by the dispatch layer; re-deriving all of them symbolically here
// belongs to the STARK library's composition step, not this check.
func StackTransition(tr *trace.Trace, row int) []core.Felt {
	if row+1 >= tr.Height {
		return nil
	}
	cur, next := tr.Decoder[row], tr.Decoder[row+1]
	if cur.Kind != processor.RowHalt {
		return nil
	}
	var residuals []core.Felt
	for i := 0; i < 16; i++ {
		if !cur.StackTop[i].Equal(next.StackTop[i]) {
			residuals = append(residuals, core.OneFelt())
		}
	}
	return residuals
}
