package mast

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// OpCode is the closed 7-bit op-code space. Declared here, rather than
// in the processor package, because a Block node's op-batches are mast's
// own data and the decoder needs to read op-codes to decide hash-slot
// allocation before the processor ever dispatches them.
type OpCode uint8

const (
	// System
	OpNoop OpCode = iota
	OpHalt
	OpAssert
	OpFmpAdd
	OpFmpUpdate
	OpClk

	// Stack
	OpPad
	OpDrop
	OpDup
	OpSwap
	OpSwapW
	OpSwapDW
	OpMovUp
	OpMovDn
	OpCSwap
	OpCSwapW

	// Field
	OpAdd
	OpMul
	OpNeg
	OpInv
	OpEq
	OpEqz
	OpExpacc

	// u32
	OpU32split
	OpU32add
	OpU32sub
	OpU32mul
	OpU32div
	OpU32and
	OpU32xor
	OpU32lt
	OpU32lte
	OpU32gt
	OpU32gte

	// I/O
	OpMLoad
	OpMStore
	OpMLoadW
	OpMStoreW
	OpMStream
	OpPipe
	OpAdvPop
	OpAdvPopW

	// Crypto
	OpHPerm
	OpHMerge
	OpMpVerify
	OpMrUpdate

	// Extension
	OpExt2Add
	OpExt2Mul
	OpExt2Inv
	OpHornerBase
	OpHornerExt

	// ACE
	OpArithmeticCircuitEval
)

// opsWithImmediate marks op-codes that carry an immediate felt. The
// immediate travels in the op's own Imm field: it occupies no extra op
// slot in a batch and adds one element to the batch's encoding.
var opsWithImmediate = map[OpCode]bool{
	OpFmpAdd: true,
	OpDup:    true,
	OpMovUp:  true,
	OpMovDn:  true,
}

// HasImmediate reports whether op carries an immediate felt.
func (op OpCode) HasImmediate() bool { return opsWithImmediate[op] }

// Op is a single primitive operation inside a basic block: a 7-bit code
// plus at most one immediate field element.
type Op struct {
	Code OpCode
	Imm  core.Felt
}

const (
	groupsPerBatch = 8
	opsPerGroup    = 9
	opsPerBatch    = groupsPerBatch * opsPerGroup
)

// OpBatch is a fixed-size bundle of 8 groups x 9 ops (72 ops total), the
// hashing unit for basic blocks. Unfilled trailing slots are padded with
// OpNoop.
type OpBatch struct {
	Ops [opsPerBatch]Op
}

// PackOps splits a flat op sequence into fixed-size batches, padding the
// final batch with Noop.
func PackOps(ops []Op) []OpBatch {
	if len(ops) == 0 {
		return []OpBatch{{}}
	}
	var batches []OpBatch
	var cur OpBatch
	slot := 0
	for _, op := range ops {
		if slot >= opsPerBatch {
			batches = append(batches, cur)
			cur = OpBatch{}
			slot = 0
		}
		cur.Ops[slot] = op
		slot++
	}
	for i := slot; i < opsPerBatch; i++ {
		cur.Ops[i] = Op{Code: OpNoop}
	}
	batches = append(batches, cur)
	return batches
}

// Encode flattens a batch into the field elements the hasher chiplet
// absorbs to compute a block's digest: each op contributes its code, and
// immediate-carrying ops additionally contribute their immediate value.
func (b OpBatch) Encode() []core.Felt {
	elems := make([]core.Felt, 0, opsPerBatch)
	for _, op := range b.Ops {
		elems = append(elems, core.NewFelt(uint64(op.Code)))
		if op.Code.HasImmediate() {
			elems = append(elems, op.Imm)
		}
	}
	return elems
}

// String renders an op-code name for diagnostics.
func (op OpCode) String() string {
	names := map[OpCode]string{
		OpNoop: "noop", OpHalt: "halt", OpAssert: "assert", OpFmpAdd: "fmpadd",
		OpFmpUpdate: "fmpupdate", OpClk: "clk", OpPad: "pad", OpDrop: "drop",
		OpDup: "dup", OpSwap: "swap", OpSwapW: "swapw", OpSwapDW: "swapdw",
		OpMovUp: "movup", OpMovDn: "movdn", OpCSwap: "cswap", OpCSwapW: "cswapw",
		OpAdd: "add", OpMul: "mul", OpNeg: "neg", OpInv: "inv", OpEq: "eq",
		OpEqz: "eqz", OpExpacc: "expacc", OpU32split: "u32split", OpU32add: "u32add",
		OpU32sub: "u32sub", OpU32mul: "u32mul", OpU32div: "u32div", OpU32and: "u32and",
		OpU32xor: "u32xor", OpU32lt: "u32lt", OpU32lte: "u32lte", OpU32gt: "u32gt",
		OpU32gte: "u32gte", OpMLoad: "mload", OpMStore: "mstore", OpMLoadW: "mloadw",
		OpMStoreW: "mstorew", OpMStream: "mstream", OpPipe: "pipe", OpAdvPop: "advpop",
		OpAdvPopW: "advpopw", OpHPerm: "hperm", OpHMerge: "hmerge", OpMpVerify: "mpverify",
		OpMrUpdate: "mrupdate", OpExt2Add: "ext2add", OpExt2Mul: "ext2mul",
		OpExt2Inv: "ext2inv", OpHornerBase: "hornerbase", OpHornerExt: "hornerext",
		OpArithmeticCircuitEval: "ace_eval",
	}
	if name, ok := names[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}
