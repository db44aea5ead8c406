// Package mast implements the Merkleised Abstract Syntax Tree: the
// immutable, content-addressed DAG of control-flow nodes that a Program
// executes. Nodes are a closed tagged-variant set; each carries a sponge
// digest uniquely determined by its content, so identical subtrees
// dedupe and digests double as cross-forest handles.
package mast

import "github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"

// NodeId is an opaque 32-bit index into a MastForest's node table.
type NodeId uint32

// NilNodeId is the largest NodeId, never a valid index in practice;
// callers that need an explicit "no node" sentinel use this.
const NilNodeId NodeId = 1<<32 - 1

// Kind discriminates the closed set of MAST node variants.
type Kind uint8

const (
	KindBlock Kind = iota
	KindJoin
	KindSplit
	KindLoop
	KindCall
	KindDyn
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "Block"
	case KindJoin:
		return "Join"
	case KindSplit:
		return "Split"
	case KindLoop:
		return "Loop"
	case KindCall:
		return "Call"
	case KindDyn:
		return "Dyn"
	case KindExternal:
		return "External"
	default:
		return "Unknown"
	}
}

// domain tags feed MergeInDomain so each node kind hashes into a distinct
// subspace even when two nodes share the same children.
const (
	domainJoin     = 0
	domainSplit    = 1
	domainLoop     = 2
	domainCall     = 3
	domainSyscall  = 4
	domainDyn      = 5
	domainDyncall  = 6
	domainExternal = 7
	// domainBlockBase separates block digests from binary-node digests;
	// see blockDigest.
	domainBlockBase = 8
)

// Node is a single MAST node. Exactly one of the kind-specific fields is
// meaningful, selected by Kind: a tagged variant expressed as a flat
// struct rather than an interface, since the decoder needs a single
// switch over Kind and an interface would scatter that switch across
// per-kind methods.
type Node struct {
	Kind Kind

	// KindBlock
	Batches []OpBatch

	// KindJoin, KindSplit, KindLoop: Left/Then/Body use Left; Right/Else use Right.
	Left  NodeId
	Right NodeId

	// KindCall, KindDyn
	Callee    NodeId // KindCall only
	IsSyscall bool   // KindCall only
	IsDyncall bool   // KindDyn only

	// KindExternal
	ExternalDigest core.Digest

	digest core.Digest

	// Debug carries an optional source label; nil is the common case for
	// programmatically constructed forests.
	Debug *DebugInfo
}

// DebugInfo attaches a human-readable location to a node for error
// reporting when no assembler is present to do it automatically.
type DebugInfo struct {
	File string
	Line int
	Note string
}

// Digest returns the node's content-addressed identity.
func (n *Node) Digest() core.Digest { return n.digest }

// DomainFelt returns the domain tag the node's digest is merged under,
// letting the decoder recompute digests through the hasher chiplet.
func (n *Node) DomainFelt() core.Felt {
	switch n.Kind {
	case KindJoin:
		return core.NewFelt(domainJoin)
	case KindSplit:
		return core.NewFelt(domainSplit)
	case KindLoop:
		return core.NewFelt(domainLoop)
	case KindCall:
		if n.IsSyscall {
			return core.NewFelt(domainSyscall)
		}
		return core.NewFelt(domainCall)
	case KindDyn:
		if n.IsDyncall {
			return core.NewFelt(domainDyncall)
		}
		return core.NewFelt(domainDyn)
	case KindExternal:
		return core.NewFelt(domainExternal)
	default:
		return core.NewFelt(domainBlockBase)
	}
}

// EncodedOps flattens a block's op-batches into the field elements its
// digest absorbs.
func (n *Node) EncodedOps() []core.Felt {
	var elems []core.Felt
	for _, b := range n.Batches {
		elems = append(elems, b.Encode()...)
	}
	return elems
}

func blockDigest(batches []OpBatch) core.Digest {
	var elems []core.Felt
	for _, b := range batches {
		elems = append(elems, b.Encode()...)
	}
	d := core.LinearHash(elems)
	// Fold in a block-specific domain so an identical op sequence never
	// collides with a non-block node's digest.
	return core.MergeInDomain(d, core.ZeroDigest(), core.NewFelt(domainBlockBase))
}
