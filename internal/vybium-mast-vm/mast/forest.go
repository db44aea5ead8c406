package mast

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// Forest owns all control-flow nodes of one or more programs by index.
// Node digests are content-addressed: within one forest a given digest
// appears at most once, and identical subtrees dedupe by construction
// (addWithDigest looks up by digest before appending).
type Forest struct {
	nodes   []Node
	byHash  map[core.Digest]NodeId
	exports map[string]NodeId
}

// NewForest returns an empty forest.
func NewForest() *Forest {
	return &Forest{
		byHash:  make(map[core.Digest]NodeId),
		exports: make(map[string]NodeId),
	}
}

// ErrCycle is returned when a proposed node would make the forest
// non-acyclic.
type ErrCycle struct{ At NodeId }

func (e *ErrCycle) Error() string { return fmt.Sprintf("mast: cycle detected through node %d", e.At) }

// ErrHashCollision is returned when two nodes with the same digest but
// different content are declared; this is fatal.
type ErrHashCollision struct{ Digest core.Digest }

func (e *ErrHashCollision) Error() string {
	return fmt.Sprintf("mast: hash collision at digest %s with differing content", e.Digest)
}

// AddJoin appends a sequential-composition node.
func (f *Forest) AddJoin(left, right NodeId) (NodeId, error) {
	d := core.MergeInDomain(f.nodes[left].digest, f.nodes[right].digest, core.NewFelt(domainJoin))
	return f.addWithDigest(Node{Kind: KindJoin, Left: left, Right: right, digest: d})
}

// AddSplit appends a conditional node.
func (f *Forest) AddSplit(then, els NodeId) (NodeId, error) {
	d := core.MergeInDomain(f.nodes[then].digest, f.nodes[els].digest, core.NewFelt(domainSplit))
	return f.addWithDigest(Node{Kind: KindSplit, Left: then, Right: els, digest: d})
}

// AddLoop appends a pre-tested-while node.
func (f *Forest) AddLoop(body NodeId) (NodeId, error) {
	d := core.MergeInDomain(f.nodes[body].digest, core.ZeroDigest(), core.NewFelt(domainLoop))
	return f.addWithDigest(Node{Kind: KindLoop, Left: body, digest: d})
}

// AddCall appends a call node; isSyscall distinguishes Call from SysCall
// at the decoder/processor layer.
func (f *Forest) AddCall(callee NodeId, isSyscall bool) (NodeId, error) {
	domain := core.NewFelt(domainCall)
	if isSyscall {
		domain = core.NewFelt(domainSyscall)
	}
	d := core.MergeInDomain(f.nodes[callee].digest, core.ZeroDigest(), domain)
	return f.addWithDigest(Node{Kind: KindCall, Callee: callee, IsSyscall: isSyscall, digest: d})
}

// AddDyn appends a dynamic-dispatch node; isDyncall distinguishes Dyn from
// Dyncall.
func (f *Forest) AddDyn(isDyncall bool) (NodeId, error) {
	domain := core.NewFelt(domainDyn)
	if isDyncall {
		domain = core.NewFelt(domainDyncall)
	}
	d := core.MergeInDomain(core.ZeroDigest(), core.ZeroDigest(), domain)
	return f.addWithDigest(Node{Kind: KindDyn, IsDyncall: isDyncall, digest: d})
}

// AddExternal appends a placeholder node for a procedure supplied by
// another MAST at execution or merge time.
func (f *Forest) AddExternal(digest core.Digest) (NodeId, error) {
	d := core.MergeInDomain(digest, core.ZeroDigest(), core.NewFelt(domainExternal))
	return f.addWithDigest(Node{Kind: KindExternal, ExternalDigest: digest, digest: d})
}

// AddBlock appends a basic block of packed op-batches.
func (f *Forest) AddBlock(ops []Op) (NodeId, error) {
	batches := PackOps(ops)
	d := blockDigest(batches)
	return f.addWithDigest(Node{Kind: KindBlock, Batches: batches, digest: d})
}

func (f *Forest) addWithDigest(n Node) (NodeId, error) {
	if existing, ok := f.byHash[n.digest]; ok {
		if !f.sameContent(existing, n) {
			return 0, &ErrHashCollision{Digest: n.digest}
		}
		return existing, nil
	}
	id := NodeId(len(f.nodes))
	f.nodes = append(f.nodes, n)
	f.byHash[n.digest] = id
	return id, nil
}

func (f *Forest) sameContent(existing NodeId, n Node) bool {
	e := f.nodes[existing]
	if e.Kind != n.Kind || e.Left != n.Left || e.Right != n.Right ||
		e.Callee != n.Callee || e.IsSyscall != n.IsSyscall || e.IsDyncall != n.IsDyncall ||
		e.ExternalDigest != n.ExternalDigest || len(e.Batches) != len(n.Batches) {
		return false
	}
	for i := range e.Batches {
		if e.Batches[i] != n.Batches[i] {
			return false
		}
	}
	return true
}

// Resolve looks up the node owning digest d, used by Dyn/Dyncall to turn
// a runtime-supplied digest (read from memory) into a NodeId to
// execute.
func (f *Forest) Resolve(d core.Digest) (NodeId, bool) {
	id, ok := f.byHash[d]
	return id, ok
}

// Get returns the node at id.
func (f *Forest) Get(id NodeId) (*Node, error) {
	if int(id) >= len(f.nodes) {
		return nil, fmt.Errorf("mast: node id %d out of range (forest has %d nodes)", id, len(f.nodes))
	}
	return &f.nodes[id], nil
}

// Export records a procedure root under a qualified name so cross-forest
// merges can resolve External nodes against it.
func (f *Forest) Export(name string, root NodeId) {
	f.exports[name] = root
}

// ProcedureRoots iterates every exported procedure digest.
func (f *Forest) ProcedureRoots() []core.Digest {
	roots := make([]core.Digest, 0, len(f.exports))
	for _, id := range f.exports {
		roots = append(roots, f.nodes[id].digest)
	}
	return roots
}

// NumNodes returns the number of nodes owned by the forest.
func (f *Forest) NumNodes() int { return len(f.nodes) }

// CheckAcyclic walks every node reachable from roots and fails if it
// revisits a node on the current path, confirming the DAG invariant.
func (f *Forest) CheckAcyclic(roots []NodeId) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(f.nodes))
	var visit func(id NodeId) error
	visit = func(id NodeId) error {
		switch color[id] {
		case gray:
			return &ErrCycle{At: id}
		case black:
			return nil
		}
		color[id] = gray
		n := &f.nodes[id]
		children := n.children()
		for _, c := range children {
			if c == NilNodeId {
				continue
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	for _, r := range roots {
		if err := visit(r); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) children() []NodeId {
	switch n.Kind {
	case KindJoin, KindSplit:
		return []NodeId{n.Left, n.Right}
	case KindLoop:
		return []NodeId{n.Left}
	case KindCall:
		return []NodeId{n.Callee}
	default:
		return nil
	}
}

// Merge combines several forests into one, substituting each External
// node whose digest matches a concrete node supplied by any input forest.
// It returns the merged forest and, for each input forest
// in order, a map from its old NodeIds to the merged forest's NodeIds so
// callers can rewrite entry points. Merging is deterministic given a fixed
// input order; it is commutative in the sense that node identity is
// digest-based regardless of which input forest first contributed a node.
func Merge(forests []*Forest) (*Forest, []map[NodeId]NodeId, error) {
	merged := NewForest()
	remaps := make([]map[NodeId]NodeId, len(forests))

	// First pass: copy every concrete (non-External) node so External
	// placeholders in a later pass can resolve against them.
	for i, f := range forests {
		remaps[i] = make(map[NodeId]NodeId, len(f.nodes))
	}
	for pass := 0; pass < 2; pass++ {
		for i, f := range forests {
			for old := 0; old < len(f.nodes); old++ {
				oldId := NodeId(old)
				if _, done := remaps[i][oldId]; done {
					continue
				}
				n := f.nodes[old]
				if n.Kind == KindExternal && pass == 0 {
					continue // resolved in the second pass, once all concretes exist
				}
				newId, err := mergeCopyNode(merged, f, remaps[i], oldId)
				if err != nil {
					return nil, nil, err
				}
				remaps[i][oldId] = newId
			}
		}
	}
	// Fix-up pass: an External placeholder copied before a later forest
	// supplied its concrete node still lingers in the merged forest; point
	// every child edge and remap entry at the concrete node instead.
	resolveExternal := func(id NodeId) NodeId {
		n := &merged.nodes[id]
		if n.Kind != KindExternal {
			return id
		}
		if concrete, ok := merged.byHash[n.ExternalDigest]; ok {
			return concrete
		}
		return id
	}
	for i := range merged.nodes {
		n := &merged.nodes[i]
		switch n.Kind {
		case KindJoin, KindSplit:
			n.Left = resolveExternal(n.Left)
			n.Right = resolveExternal(n.Right)
		case KindLoop:
			n.Left = resolveExternal(n.Left)
		case KindCall:
			n.Callee = resolveExternal(n.Callee)
		}
	}
	for i := range remaps {
		for old, id := range remaps[i] {
			remaps[i][old] = resolveExternal(id)
		}
	}

	for i, f := range forests {
		for name, root := range f.exports {
			merged.Export(name, remaps[i][root])
		}
	}
	return merged, remaps, nil
}

func mergeCopyNode(merged *Forest, src *Forest, remap map[NodeId]NodeId, id NodeId) (NodeId, error) {
	n := src.nodes[id]
	switch n.Kind {
	case KindBlock:
		return merged.addWithDigest(Node{Kind: KindBlock, Batches: n.Batches, digest: n.digest, Debug: n.Debug})
	case KindExternal:
		if concrete, ok := merged.byHash[n.ExternalDigest]; ok {
			return concrete, nil
		}
		return merged.addWithDigest(Node{Kind: KindExternal, ExternalDigest: n.ExternalDigest, digest: n.digest})
	case KindJoin, KindSplit:
		left, err := resolveChild(merged, src, remap, n.Left)
		if err != nil {
			return 0, err
		}
		right, err := resolveChild(merged, src, remap, n.Right)
		if err != nil {
			return 0, err
		}
		return merged.addWithDigest(Node{Kind: n.Kind, Left: left, Right: right, digest: n.digest})
	case KindLoop:
		left, err := resolveChild(merged, src, remap, n.Left)
		if err != nil {
			return 0, err
		}
		return merged.addWithDigest(Node{Kind: KindLoop, Left: left, digest: n.digest})
	case KindCall:
		callee, err := resolveChild(merged, src, remap, n.Callee)
		if err != nil {
			return 0, err
		}
		return merged.addWithDigest(Node{Kind: KindCall, Callee: callee, IsSyscall: n.IsSyscall, digest: n.digest})
	case KindDyn:
		return merged.addWithDigest(Node{Kind: KindDyn, IsDyncall: n.IsDyncall, digest: n.digest})
	default:
		return 0, fmt.Errorf("mast: unknown node kind %v during merge", n.Kind)
	}
}

// resolveChild copies a child node into merged if it hasn't been copied
// yet (needed because children may be visited out of index order only
// within the same forest; cross-forest External resolution happens via
// byHash lookups in mergeCopyNode).
func resolveChild(merged *Forest, src *Forest, remap map[NodeId]NodeId, old NodeId) (NodeId, error) {
	if id, ok := remap[old]; ok {
		return id, nil
	}
	id, err := mergeCopyNode(merged, src, remap, old)
	if err != nil {
		return 0, err
	}
	remap[old] = id
	return id, nil
}
