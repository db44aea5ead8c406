package vybiummastvm

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

// Felt is a base-field element. Public callers build stack inputs and
// advice tapes out of these.
type Felt = core.Felt

// QuadFelt is a degree-2 extension-field element, used by Ext2* ops and
// by ACE circuit encodings supplied through memory.
type QuadFelt = core.QuadFelt

// Digest is the 4-Felt sponge output and MAST node identity.
type Digest = core.Digest

// Word is the 4-Felt stack/memory transfer unit.
type Word = core.Word

// NewFelt, ZeroFelt and OneFelt mirror core's constructors so callers never
// need to import the internal package directly.
var (
	NewFelt  = core.NewFelt
	ZeroFelt = core.ZeroFelt
	OneFelt  = core.OneFelt
)

// Modulus is the base field's prime, re-exported so a caller validating a
// raw uint64 before it reaches NewFelt doesn't need core directly.
const Modulus = core.Modulus

// Op is a single primitive operation inside a basic block. OpCode is
// the closed 7-bit op-code space; both are re-exported unchanged from
// the internal mast package so a caller assembling a Program never
// imports it.
type Op = mast.Op
type OpCode = mast.OpCode

// The op-code space, re-exported under the names a caller builds blocks
// with.
const (
	OpNoop      = mast.OpNoop
	OpHalt      = mast.OpHalt
	OpAssert    = mast.OpAssert
	OpFmpAdd    = mast.OpFmpAdd
	OpFmpUpdate = mast.OpFmpUpdate
	OpClk       = mast.OpClk

	OpPad    = mast.OpPad
	OpDrop   = mast.OpDrop
	OpDup    = mast.OpDup
	OpSwap   = mast.OpSwap
	OpSwapW  = mast.OpSwapW
	OpSwapDW = mast.OpSwapDW
	OpMovUp  = mast.OpMovUp
	OpMovDn  = mast.OpMovDn
	OpCSwap  = mast.OpCSwap
	OpCSwapW = mast.OpCSwapW

	OpAdd    = mast.OpAdd
	OpMul    = mast.OpMul
	OpNeg    = mast.OpNeg
	OpInv    = mast.OpInv
	OpEq     = mast.OpEq
	OpEqz    = mast.OpEqz
	OpExpacc = mast.OpExpacc

	OpU32split = mast.OpU32split
	OpU32add   = mast.OpU32add
	OpU32sub   = mast.OpU32sub
	OpU32mul   = mast.OpU32mul
	OpU32div   = mast.OpU32div
	OpU32and   = mast.OpU32and
	OpU32xor   = mast.OpU32xor
	OpU32lt    = mast.OpU32lt
	OpU32lte   = mast.OpU32lte
	OpU32gt    = mast.OpU32gt
	OpU32gte   = mast.OpU32gte

	OpMLoad   = mast.OpMLoad
	OpMStore  = mast.OpMStore
	OpMLoadW  = mast.OpMLoadW
	OpMStoreW = mast.OpMStoreW
	OpMStream = mast.OpMStream
	OpPipe    = mast.OpPipe
	OpAdvPop  = mast.OpAdvPop
	OpAdvPopW = mast.OpAdvPopW

	OpHPerm    = mast.OpHPerm
	OpHMerge   = mast.OpHMerge
	OpMpVerify = mast.OpMpVerify
	OpMrUpdate = mast.OpMrUpdate

	OpExt2Add    = mast.OpExt2Add
	OpExt2Mul    = mast.OpExt2Mul
	OpExt2Inv    = mast.OpExt2Inv
	OpHornerBase = mast.OpHornerBase
	OpHornerExt  = mast.OpHornerExt

	OpArithmeticCircuitEval = mast.OpArithmeticCircuitEval
)

// AssertOp returns an Assert op carrying code as its detail. The value
// popped and checked against one lives on the stack; code only labels
// the error if that check fails.
func AssertOp(code Felt) Op { return Op{Code: OpAssert, Imm: code} }

// DupOp returns a Dup op copying stack position i to the top.
func DupOp(i uint64) Op { return Op{Code: OpDup, Imm: NewFelt(i)} }

// MovUpOp returns a MovUp op bringing stack position i to the top.
func MovUpOp(i uint64) Op { return Op{Code: OpMovUp, Imm: NewFelt(i)} }

// MovDnOp returns a MovDn op sending the top element to position i.
func MovDnOp(i uint64) Op { return Op{Code: OpMovDn, Imm: NewFelt(i)} }

// FmpAddOp returns an FmpAdd op adding delta to the free-memory pointer.
func FmpAddOp(delta Felt) Op { return Op{Code: OpFmpAdd, Imm: delta} }

// Plain returns a fixed op with no immediate (everything but Assert, Dup,
// MovUp, MovDn, FmpAdd).
func Plain(code OpCode) Op { return Op{Code: code} }
