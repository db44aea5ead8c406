package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// HasherBoundary asserts every permutation run starts at RowInCyc 0 and
// ends at RowInCyc core.SpongeRounds, and that the region is an exact
// multiple of the 8-row run length.
func HasherBoundary(tr *trace.Trace) []Assertion {
	var out []Assertion
	rows := tr.Hasher
	runLen := core.SpongeRounds + 1
	for i := 0; i < len(rows); i += runLen {
		if i >= len(rows) {
			break
		}
		if rows[i].RowInCyc != 0 {
			out = append(out, Assertion{Row: i, Label: "hasher_run_starts_at_round_zero", Value: core.NewFelt(1)})
		}
		last := i + runLen - 1
		if last < len(rows) && rows[last].RowInCyc != uint8(core.SpongeRounds) {
			out = append(out, Assertion{Row: last, Label: "hasher_run_ends_at_output_row", Value: core.NewFelt(1)})
		}
	}
	if len(rows)%runLen != 0 {
		out = append(out, Assertion{Row: len(rows), Label: "hasher_rows_multiple_of_run_length", Value: core.NewFelt(1)})
	}
	return out
}

// HasherTransition enforces that within one run the row counter
// increases by exactly one, and that the merkle-path node-index column
// is shifted right by one bit per row.
func HasherTransition(tr *trace.Trace, row int) []core.Felt {
	lo := tr.Offsets.Hasher
	hi := tr.Offsets.Bitwise
	if row < lo || row+1 >= hi {
		return nil
	}
	cur, next := tr.Hasher[row-lo], tr.Hasher[row+1-lo]
	if next.RowInCyc == 0 {
		// Boundary between two runs; no same-run relation to check.
		return nil
	}
	var residuals []core.Felt
	if next.RowInCyc != cur.RowInCyc+1 {
		residuals = append(residuals, core.OneFelt())
	}
	if cur.Selectors[1] && next.NodeIndex != cur.NodeIndex>>1 {
		residuals = append(residuals, core.OneFelt())
	}
	return residuals
}
