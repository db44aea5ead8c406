package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/processor"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// SystemBoundary enforces the two initial-row boundary assertions over
// the system columns: the clock starts at zero and execution starts in
// the root context.
func SystemBoundary(tr *trace.Trace) []Assertion {
	if len(tr.Decoder) == 0 {
		return nil
	}
	first := tr.Decoder[0]
	return []Assertion{
		{Row: 0, Label: "clk_starts_at_zero", Value: core.NewFelt(first.Clk)},
		{Row: 0, Label: "ctx_starts_at_root", Value: core.NewFelt(uint64(first.Ctx))},
	}
}

// SystemTransition enforces clock monotonicity row over row: the clock
// never decreases, and on HALT padding rows it holds exactly constant at
// the last real cycle's value. This trace's row granularity is one
// decoder-emitted event rather than one base-field op (a Span/Respan row
// frames an entire 9-op group), so the per-row delta is not pinned to
// exactly one the way a per-op trace would pin it; the HALT-padding half
// of the invariant is enforced exactly.
func SystemTransition(tr *trace.Trace, row int) []core.Felt {
	if row+1 >= tr.Height {
		return nil
	}
	cur, next := tr.Decoder[row], tr.Decoder[row+1]
	if cur.Kind == processor.RowHalt {
		if next.Clk != cur.Clk {
			return []core.Felt{core.NewFelt(1)}
		}
		return nil
	}
	if next.Clk < cur.Clk {
		return []core.Felt{core.NewFelt(1)}
	}
	return nil
}
