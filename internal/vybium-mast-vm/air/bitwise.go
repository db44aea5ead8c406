package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// BitwiseBoundary asserts nibble columns are in [0, 2^4), enforced
// here by explicit decomposition rather than the range checker, and that
// every 8-row group's final accumulator equals the output recomputed
// from its own partial-output column, asserted as the AIR's own check
// rather than trusted from the chiplet.
func BitwiseBoundary(tr *trace.Trace) []Assertion {
	var out []Assertion
	rows := tr.Bitwise
	for i, r := range rows {
		if r.NibbleA > 0xF || r.NibbleB > 0xF {
			out = append(out, Assertion{Row: i, Label: "bitwise_nibble_decomposition", Value: core.NewFelt(1)})
		}
	}
	for i := 7; i < len(rows); i += 8 {
		// Recompute the declared output from this group's 8 nibbles and
		// compare against the row's own accumulator.
		var acc uint32
		for k := 0; k < 8; k++ {
			acc = (acc << 4) | uint32(rows[i-7+k].PartialOut)
		}
		if acc != rows[i].Accumulator {
			out = append(out, Assertion{Row: i, Label: "bitwise_output_matches_accumulator", Value: core.NewFelt(1)})
		}
	}
	return out
}

// BitwiseTransition enforces the accumulator's
// shift-in-one-nibble-per-row recurrence within an 8-row group.
func BitwiseTransition(tr *trace.Trace, row int) []core.Felt {
	lo := tr.Offsets.Bitwise
	hi := tr.Offsets.Memory
	if row < lo || row+1 >= hi {
		return nil
	}
	localRow := row - lo
	if (localRow+1)%8 == 0 {
		return nil // last row of a group; next row starts a new group.
	}
	cur, next := tr.Bitwise[localRow], tr.Bitwise[localRow+1]
	want := (cur.Accumulator << 4) | uint32(next.PartialOut)
	if next.Accumulator != want {
		return []core.Felt{core.OneFelt()}
	}
	return nil
}
