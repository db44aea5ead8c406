package processor

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

// RowKind is the op-code a decoder row carries: Start rows open a
// control-flow node, End rows close one, Span/Respan rows frame a basic
// block's op-groups.
type RowKind uint8

const (
	RowStart RowKind = iota
	RowEnd
	RowSpan
	RowRespan
	// RowHalt is the padding op the trace-materialisation pass fills
	// unused tail rows with.
	RowHalt
)

// Row is one decoder-trace row: hasher-state columns expose either the
// two children's digests (on a start row) or the node's own digest (on
// an end row). It also carries a snapshot of every other system/stack
// column so the trace package can use decoder rows as the backbone of
// the main trace without re-deriving per-row state.
type Row struct {
	Clk       uint64
	Kind      RowKind
	NodeKind  mast.Kind
	Left      core.Digest
	Right     core.Digest
	Digest    core.Digest
	GroupIdx  int
	Ctx       uint32
	InSyscall bool
	Fmp       uint64
	FnHash    core.Digest
	StackTop  [16]core.Felt
}

// blockInfo is one entry of the decoder's explicit block-stack, pushed on
// entering a non-leaf node and popped on leaving it. computed is the
// digest the hasher chiplet produced for the node's allocated slot; the
// end row asserts it equals the node's declared digest.
type blockInfo struct {
	node     mast.NodeId
	hashSlot int
	computed core.Digest
	ctxSaved ctxFrame
	isCall   bool
}

// Decoder drives the MAST depth-first walk and materialises its trace
// rows, delegating basic-block dispatch to the Processor it's given. The
// walk is an explicit stack of pending continuations rather than native
// Go recursion, so a deeply nested MAST (arbitrary Join/Split/Loop
// nesting) never grows the Go call stack with it, only the explicit
// stack below, mirroring the decoder's own explicit block-stack table.
type Decoder struct {
	forest      *mast.Forest
	kernel      *mast.Kernel
	blockStack  []blockInfo
	rows        []Row
	groupCursor int
}

// NewDecoder returns a decoder over forest, enforcing syscalls against
// kernel (nil kernel rejects every SysCall).
func NewDecoder(forest *mast.Forest, kernel *mast.Kernel) *Decoder {
	return &Decoder{forest: forest, kernel: kernel}
}

// Rows returns the recorded decoder trace.
func (d *Decoder) Rows() []Row { return append([]Row(nil), d.rows...) }

func (d *Decoder) pushBlock(id mast.NodeId, computed core.Digest, isCall bool, saved ctxFrame) blockInfo {
	bi := blockInfo{node: id, hashSlot: len(d.rows), computed: computed, ctxSaved: saved, isCall: isCall}
	d.blockStack = append(d.blockStack, bi)
	return bi
}

func (d *Decoder) popBlock() blockInfo {
	bi := d.blockStack[len(d.blockStack)-1]
	d.blockStack = d.blockStack[:len(d.blockStack)-1]
	return bi
}

// childDigest resolves a child's digest, or the zero digest for the nil
// sentinel.
func (d *Decoder) childDigest(id mast.NodeId) core.Digest {
	if id == mast.NilNodeId {
		return core.ZeroDigest()
	}
	if n, err := d.forest.Get(id); err == nil {
		return n.Digest()
	}
	return core.ZeroDigest()
}

// hashNode recomputes a control-flow node's digest through the hasher
// chiplet, allocating the 8-row slot its end row will be checked
// against. Basic blocks hash their op-batches in execBlock instead.
func (d *Decoder) hashNode(p *Processor, node *mast.Node, left, right core.Digest) core.Digest {
	return p.Hasher.Merge(left, right, node.DomainFelt())
}

// Run walks the MAST from entry, dispatching basic blocks and system
// bookkeeping through p, until the walk completes or an error aborts it.
func (d *Decoder) Run(p *Processor, entry mast.NodeId) error {
	var stack []func() error
	push := func(c func() error) { stack = append(stack, c) }
	pop := func() func() error {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return c
	}

	var enter func(id mast.NodeId) error
	enter = func(id mast.NodeId) error {
		if err := p.checkBudget(); err != nil {
			return err
		}
		node, err := d.forest.Get(id)
		if err != nil {
			return newErr(KindMalformedProgram, p.Sys.Clk, nil, "unresolvable node id: %v", err)
		}
		switch node.Kind {
		case mast.KindBlock:
			return d.execBlock(p, node)

		case mast.KindJoin:
			d.emitStart(p, node, node.Left, node.Right)
			computed := d.hashNode(p, node, d.childDigest(node.Left), d.childDigest(node.Right))
			bi := d.pushBlock(id, computed, false, ctxFrame{})
			push(func() error { return d.emitEnd(p, bi, node) })
			push(func() error { return enter(node.Right) })
			push(func() error { return enter(node.Left) })
			return nil

		case mast.KindSplit:
			cond, err := p.Stack.Pop(p.Sys.Clk)
			if err != nil {
				return err
			}
			if !cond.IsZero() && !cond.IsOne() {
				return newErr(KindNotBinaryValue, p.Sys.Clk, node.Debug, "split condition is not binary")
			}
			d.emitStart(p, node, node.Left, node.Right)
			computed := d.hashNode(p, node, d.childDigest(node.Left), d.childDigest(node.Right))
			bi := d.pushBlock(id, computed, false, ctxFrame{})
			branch := node.Right
			if cond.IsOne() {
				branch = node.Left
			}
			push(func() error { return d.emitEnd(p, bi, node) })
			push(func() error { return enter(branch) })
			return nil

		case mast.KindLoop:
			cond, err := p.Stack.Pop(p.Sys.Clk)
			if err != nil {
				return err
			}
			if !cond.IsZero() && !cond.IsOne() {
				return newErr(KindNotBinaryValue, p.Sys.Clk, node.Debug, "loop condition is not binary")
			}
			d.emitStart(p, node, node.Left, mast.NilNodeId)
			computed := d.hashNode(p, node, d.childDigest(node.Left), core.ZeroDigest())
			bi := d.pushBlock(id, computed, false, ctxFrame{})
			var iterate func() error
			iterate = func() error {
				again, err := p.Stack.Pop(p.Sys.Clk)
				if err != nil {
					return err
				}
				if again.IsOne() {
					push(iterate)
					return enter(node.Left)
				}
				if !again.IsZero() {
					return newErr(KindNotBinaryValue, p.Sys.Clk, node.Debug, "loop continuation is not binary")
				}
				return d.emitEnd(p, bi, node)
			}
			if cond.IsOne() {
				push(iterate)
				return enter(node.Left)
			}
			return d.emitEnd(p, bi, node)

		case mast.KindCall, mast.KindDyn:
			return d.enterCallLike(p, node, enter, push)

		case mast.KindExternal:
			return newErr(KindMalformedProgram, p.Sys.Clk, node.Debug, "unresolved External node digest %s", node.ExternalDigest)

		default:
			return newErr(KindMalformedProgram, p.Sys.Clk, nil, "unknown node kind %v", node.Kind)
		}
	}

	push(func() error { return enter(entry) })
	for len(stack) > 0 {
		c := pop()
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

// enterCallLike handles Call/SysCall (static callee) and Dyn/Dyncall
// (callee digest read from memory), sharing the context-switch protocol:
// the caller's system columns and overflow table are snapshotted, the
// callee runs in a fresh depth-16 context under its own fn hash, and the
// matching end row restores the caller after checking the callee
// returned with depth exactly 16.
func (d *Decoder) enterCallLike(p *Processor, node *mast.Node, enter func(mast.NodeId) error, push func(func() error)) error {
	var calleeId mast.NodeId
	if node.Kind == mast.KindCall {
		if node.IsSyscall {
			if p.Sys.InSyscall {
				return newErr(KindSyscallTargetNotInKernel, p.Sys.Clk, node.Debug, "nested syscall rejected")
			}
			calleeNode, err := d.forest.Get(node.Callee)
			if err != nil {
				return newErr(KindMalformedProgram, p.Sys.Clk, node.Debug, "unresolvable syscall callee: %v", err)
			}
			if d.kernel == nil || !p.Kernel.RequestCall(calleeNode.Digest()) {
				return newErr(KindSyscallTargetNotInKernel, p.Sys.Clk, node.Debug, "callee digest %s not in kernel", calleeNode.Digest())
			}
		}
		calleeId = node.Callee
	} else {
		// Dyn/Dyncall: the callee digest is read from memory at the word
		// address on top of the stack.
		addr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		word, err := p.Mem.ReadWord(p.Sys.Ctx, uint32(addr.Uint64()), p.Sys.Clk)
		if err != nil {
			return err
		}
		digest := word.AsDigest()
		id, ok := d.forest.Resolve(digest)
		if !ok {
			return newErr(KindMalformedProgram, p.Sys.Clk, node.Debug, "dyn callee digest %s not present in forest", digest)
		}
		calleeId = id
	}

	calleeDigest := d.childDigest(calleeId)
	saved := p.Sys.snapshot()
	d.emitStart(p, node, calleeId, mast.NilNodeId)
	var computed core.Digest
	if node.Kind == mast.KindDyn {
		// A dyn node's digest commits to the dispatch itself, not to the
		// runtime-resolved callee.
		computed = d.hashNode(p, node, core.ZeroDigest(), core.ZeroDigest())
	} else {
		computed = d.hashNode(p, node, calleeDigest, core.ZeroDigest())
	}
	bi := d.pushBlock(calleeId, computed, true, saved)

	p.Stack.PushOverflowContext()
	p.Sys.Ctx = p.Sys.AllocCtx()
	p.Sys.FnHash = calleeDigest
	if node.Kind == mast.KindCall && node.IsSyscall {
		p.Sys.InSyscall = true
	}
	push(func() error {
		depth := p.Stack.Depth()
		if node.Kind == mast.KindDyn && node.IsDyncall && depth < 16 {
			return newErr(KindDynamicCallOverflowsStack, p.Sys.Clk, node.Debug, "dyncall returned with depth %d", depth)
		}
		if depth != 16 {
			return newErr(KindInvalidStackDepthOnReturn, p.Sys.Clk, node.Debug, "call returned with depth %d", depth)
		}
		p.Stack.PopOverflowContext()
		p.Sys.restore(saved)
		return d.emitEnd(p, bi, node)
	})
	return enter(calleeId)
}

func (d *Decoder) snapshot(p *Processor) (uint64, core.Digest, [16]core.Felt) {
	return p.Sys.Fmp, p.Sys.FnHash, p.Stack.Top16()
}

func (d *Decoder) emitStart(p *Processor, node *mast.Node, left, right mast.NodeId) {
	fmp, fnHash, top := d.snapshot(p)
	row := Row{Clk: p.Sys.Clk, Kind: RowStart, NodeKind: node.Kind, Ctx: p.Sys.Ctx, InSyscall: p.Sys.InSyscall, Fmp: fmp, FnHash: fnHash, StackTop: top}
	row.Left = d.childDigest(left)
	if right != mast.NilNodeId {
		row.Right = d.childDigest(right)
	}
	d.rows = append(d.rows, row)
}

// emitEnd pops the block-stack entry and closes the node, asserting the
// digest the hasher chiplet computed for the node's slot equals the
// node's declared digest.
func (d *Decoder) emitEnd(p *Processor, bi blockInfo, node *mast.Node) error {
	d.popBlock()
	if !bi.computed.Equal(node.Digest()) {
		return newErr(KindMalformedProgram, p.Sys.Clk, node.Debug, "node digest mismatch: hasher computed %s, node declares %s", bi.computed, node.Digest())
	}
	fmp, fnHash, top := d.snapshot(p)
	d.rows = append(d.rows, Row{
		Clk: p.Sys.Clk, Kind: RowEnd, NodeKind: node.Kind,
		Digest: node.Digest(), Ctx: p.Sys.Ctx, InSyscall: p.Sys.InSyscall,
		Fmp: fmp, FnHash: fnHash, StackTop: top,
	})
	return nil
}

// execBlock dispatches a basic block's packed op-batches one op at a time
// through the processor, framing each op-group with Span/Respan rows and
// incrementing the op-group counter.
func (d *Decoder) execBlock(p *Processor, node *mast.Node) error {
	lh := p.Hasher.LinearHash(node.EncodedOps())
	computed := p.Hasher.Merge(lh, core.ZeroDigest(), node.DomainFelt())

	first := true
	for _, batch := range node.Batches {
		for g := 0; g < 8; g++ {
			if err := p.checkBudget(); err != nil {
				return err
			}
			kind := RowSpan
			if !first {
				kind = RowRespan
			}
			first = false
			fmp, fnHash, top := d.snapshot(p)
			d.rows = append(d.rows, Row{Clk: p.Sys.Clk, Kind: kind, GroupIdx: d.groupCursor, Ctx: p.Sys.Ctx, InSyscall: p.Sys.InSyscall, Fmp: fmp, FnHash: fnHash, StackTop: top})
			d.groupCursor++
			for slot := 0; slot < 9; slot++ {
				op := batch.Ops[g*9+slot]
				if err := p.dispatch(op); err != nil {
					return err
				}
			}
		}
	}
	if !computed.Equal(node.Digest()) {
		return newErr(KindMalformedProgram, p.Sys.Clk, node.Debug, "block digest mismatch: hasher computed %s, node declares %s", computed, node.Digest())
	}
	fmp, fnHash, top := d.snapshot(p)
	d.rows = append(d.rows, Row{Clk: p.Sys.Clk, Kind: RowEnd, NodeKind: mast.KindBlock, Digest: node.Digest(), Ctx: p.Sys.Ctx, InSyscall: p.Sys.InSyscall, Fmp: fmp, FnHash: fnHash, StackTop: top})
	return nil
}
