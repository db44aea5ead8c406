package vybiummastvm

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

// NodeId is an opaque handle into a ProgramBuilder's forest.
type NodeId = mast.NodeId

// NilNodeId is never a valid node handle.
const NilNodeId = mast.NilNodeId

// Program is a MAST forest plus the NodeId of its entry point. It is
// immutable once built; construct one with ProgramBuilder or load one
// with LoadProgram/LoadLibrary.
type Program struct {
	inner *mast.Program
}

// Digest returns the program's entry-point digest, the public input
// every proof binds to.
func (p *Program) Digest() Digest { return p.inner.Digest() }

// Kernel is the set of syscall targets a program may call into. A nil
// *Kernel rejects every SysCall.
type Kernel struct {
	inner *mast.Kernel
}

// NewKernel builds a kernel from its approved procedure digests.
func NewKernel(digests []Digest) *Kernel {
	return &Kernel{inner: mast.NewKernel(digests)}
}

// ProgramBuilder assembles a MastForest one node at a time: a thin
// pass-through that calls straight into the internal type rather than
// re-implementing it.
type ProgramBuilder struct {
	forest *mast.Forest
}

// NewProgramBuilder returns an empty builder.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{forest: mast.NewForest()}
}

// Block appends a basic block of ops and returns its NodeId.
func (b *ProgramBuilder) Block(ops []Op) (NodeId, error) { return b.forest.AddBlock(ops) }

// Join appends a sequential-composition node.
func (b *ProgramBuilder) Join(left, right NodeId) (NodeId, error) {
	return b.forest.AddJoin(left, right)
}

// Split appends a conditional node; then/els run depending on the
// popped top-of-stack.
func (b *ProgramBuilder) Split(then, els NodeId) (NodeId, error) {
	return b.forest.AddSplit(then, els)
}

// Loop appends a pre-tested while node.
func (b *ProgramBuilder) Loop(body NodeId) (NodeId, error) { return b.forest.AddLoop(body) }

// Call appends a call node; isSyscall additionally routes the callee
// digest through the kernel ROM check.
func (b *ProgramBuilder) Call(callee NodeId, isSyscall bool) (NodeId, error) {
	return b.forest.AddCall(callee, isSyscall)
}

// Dyn appends a dynamic-dispatch node whose callee digest is read from
// memory at execution time.
func (b *ProgramBuilder) Dyn(isDyncall bool) (NodeId, error) { return b.forest.AddDyn(isDyncall) }

// External appends a placeholder node for a procedure to be supplied by
// another forest at merge time.
func (b *ProgramBuilder) External(digest Digest) (NodeId, error) {
	return b.forest.AddExternal(digest)
}

// Export records a procedure root under a qualified name for later
// cross-forest merges.
func (b *ProgramBuilder) Export(name string, root NodeId) { b.forest.Export(name, root) }

// Finish checks the forest is acyclic from entry and returns the
// completed Program.
func (b *ProgramBuilder) Finish(entry NodeId) (*Program, error) {
	p, err := mast.NewProgram(b.forest, entry)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &Program{inner: p}, nil
}

// Merge combines several builders' forests into one, resolving External
// placeholders against concrete nodes supplied by any input. It returns
// a fresh builder plus, for each input builder in order, a function
// remapping that builder's NodeIds into the merged forest.
func Merge(builders []*ProgramBuilder) (*ProgramBuilder, []func(NodeId) NodeId, error) {
	forests := make([]*mast.Forest, len(builders))
	for i, b := range builders {
		forests[i] = b.forest
	}
	merged, remaps, err := mast.Merge(forests)
	if err != nil {
		return nil, nil, wrapErr(err)
	}
	fns := make([]func(NodeId) NodeId, len(remaps))
	for i, remap := range remaps {
		m := remap
		fns[i] = func(id NodeId) NodeId { return m[id] }
	}
	return &ProgramBuilder{forest: merged}, fns, nil
}

// NodeDigest returns the digest of the node id names within b's forest,
// the value an Export or a cross-library Dependency records.
func (b *ProgramBuilder) NodeDigest(id NodeId) (Digest, error) {
	n, err := b.forest.Get(id)
	if err != nil {
		return core.Digest{}, wrapErr(err)
	}
	return n.Digest(), nil
}
