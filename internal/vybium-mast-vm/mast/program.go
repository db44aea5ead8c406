package mast

import "github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"

// Program is a Forest plus the NodeId of its entry point.
type Program struct {
	Forest *Forest
	Entry  NodeId
}

// NewProgram wraps a forest and entry point, checking the forest is
// acyclic from that entry.
func NewProgram(forest *Forest, entry NodeId) (*Program, error) {
	if err := forest.CheckAcyclic([]NodeId{entry}); err != nil {
		return nil, err
	}
	return &Program{Forest: forest, Entry: entry}, nil
}

// Digest returns the program's entry-point digest, used as a public
// input to the AIR.
func (p *Program) Digest() core.Digest {
	n, _ := p.Forest.Get(p.Entry)
	return n.digest
}

// Kernel is a set of approved syscall target digests. The contents are a
// deployment parameter: the kernel is an input to the system, not a
// constant baked into it.
type Kernel struct {
	digests []core.Digest
	index   map[core.Digest]int
}

// NewKernel builds a kernel from a list of procedure digests.
func NewKernel(digests []core.Digest) *Kernel {
	k := &Kernel{digests: digests, index: make(map[core.Digest]int, len(digests))}
	for i, d := range digests {
		k.index[d] = i
	}
	return k
}

// Contains reports whether d is an approved syscall target.
func (k *Kernel) Contains(d core.Digest) bool {
	_, ok := k.index[d]
	return ok
}

// Digests returns the kernel's procedure digests in table order.
func (k *Kernel) Digests() []core.Digest { return k.digests }
