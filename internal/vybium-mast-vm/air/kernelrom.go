package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// KernelRomBoundary asserts every row's digest is distinct: the kernel
// ROM has exactly one row per approved syscall target.
func KernelRomBoundary(tr *trace.Trace) []Assertion {
	var out []Assertion
	seen := make(map[core.Digest]bool)
	for i, r := range tr.KernelRom {
		if seen[r.Digest] {
			out = append(out, Assertion{Row: i, Label: "kernel_rom_distinct_entries", Value: core.NewFelt(1)})
		}
		seen[r.Digest] = true
	}
	return out
}

// KernelRomTransition has no row-to-row relation: multiplicities are
// independent per kernel entry, so the subsystem's only constraints are
// the boundary check above and the bus identity in bus.go.
func KernelRomTransition(tr *trace.Trace, row int) []core.Felt { return nil }
