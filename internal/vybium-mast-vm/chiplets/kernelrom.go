package chiplets

import "github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"

// KernelRomRow is one row of the kernel-ROM chiplet: a fixed kernel
// procedure digest and the number of times it was called.
type KernelRomRow struct {
	Digest       core.Digest
	Multiplicity uint64
}

// KernelRom is the kernel-ROM chiplet: a fixed set of approved syscall
// targets with call-count multiplicity.
type KernelRom struct {
	digests []core.Digest
	index   map[core.Digest]int
	counts  []uint64
}

// NewKernelRom builds the fixed table from the kernel's procedure digests.
func NewKernelRom(digests []core.Digest) *KernelRom {
	k := &KernelRom{
		digests: digests,
		index:   make(map[core.Digest]int, len(digests)),
		counts:  make([]uint64, len(digests)),
	}
	for i, d := range digests {
		k.index[d] = i
	}
	return k
}

// RequestCall records a syscall request for digest d, incrementing its
// multiplicity. Returns false if d is not in the kernel.
func (k *KernelRom) RequestCall(d core.Digest) bool {
	i, ok := k.index[d]
	if !ok {
		return false
	}
	k.counts[i]++
	return true
}

// Contains reports whether d is an approved syscall target.
func (k *KernelRom) Contains(d core.Digest) bool {
	_, ok := k.index[d]
	return ok
}

// GenerateTrace returns one row per kernel entry with its accumulated
// call multiplicity.
func (k *KernelRom) GenerateTrace() []KernelRomRow {
	rows := make([]KernelRomRow, len(k.digests))
	for i, d := range k.digests {
		rows[i] = KernelRomRow{Digest: d, Multiplicity: k.counts[i]}
	}
	return rows
}
