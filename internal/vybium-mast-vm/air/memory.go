package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// MemoryBoundary asserts the table is sorted by (ctx, addr, clk).
func MemoryBoundary(tr *trace.Trace) []Assertion {
	var out []Assertion
	rows := tr.Memory
	for i := 1; i < len(rows); i++ {
		a, b := rows[i-1], rows[i]
		ordered := a.Ctx < b.Ctx ||
			(a.Ctx == b.Ctx && a.Addr < b.Addr) ||
			(a.Ctx == b.Ctx && a.Addr == b.Addr && a.Clk < b.Clk)
		if !ordered {
			out = append(out, Assertion{Row: i, Label: "memory_sorted_by_ctx_addr_clk", Value: core.NewFelt(1)})
		}
	}
	return out
}

// MemoryTransition enforces the discriminant/inverse witness the
// chiplet computed per consecutive pair: DeltaInv is the true inverse of
// the discriminant reconstructed from its 16-bit limbs whenever that
// discriminant is nonzero, proving the tuple strictly increased.
func MemoryTransition(tr *trace.Trace, row int) []core.Felt {
	lo := tr.Offsets.Memory
	hi := tr.Offsets.KernelRom
	if row < lo || row >= hi-1 {
		return nil
	}
	r := tr.Memory[row-lo]
	discriminant := core.NewFelt(uint64(r.DeltaLo) | uint64(r.DeltaHi)<<16)
	if discriminant.IsZero() {
		if !r.DeltaInv.IsZero() {
			return []core.Felt{core.OneFelt()}
		}
		return nil
	}
	prod := discriminant.Mul(r.DeltaInv)
	if !prod.IsOne() {
		return []core.Felt{core.OneFelt()}
	}
	return nil
}
