package processor

import "github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"

// Category groups op-codes by the chiplet or core-ALU concern that
// evaluates them.
type Category uint8

const (
	CategorySystem Category = iota
	CategoryStack
	CategoryField
	CategoryU32
	CategoryIO
	CategoryCrypto
	CategoryExtension
	CategoryACE
)

// OpInfo describes one op-code's dispatch-relevant metadata: its
// category and net stack-depth effect (positive pushes, negative pops).
// A flat data table the dispatcher switches on, not a method per op.
type OpInfo struct {
	Category   Category
	StackDelta int
}

// opTable is the metadata table indexed by mast.OpCode. Declared as a
// map rather than an array because mast.OpCode is not contiguous over
// the full 7-bit space.
var opTable = map[mast.OpCode]OpInfo{
	mast.OpNoop:       {CategorySystem, 0},
	mast.OpHalt:       {CategorySystem, 0},
	mast.OpAssert:     {CategorySystem, -1},
	mast.OpFmpAdd:     {CategorySystem, 0},
	mast.OpFmpUpdate:  {CategorySystem, -1},
	mast.OpClk:        {CategorySystem, 1},

	mast.OpPad:     {CategoryStack, 1},
	mast.OpDrop:    {CategoryStack, -1},
	mast.OpDup:     {CategoryStack, 1},
	mast.OpSwap:    {CategoryStack, 0},
	mast.OpSwapW:   {CategoryStack, 0},
	mast.OpSwapDW:  {CategoryStack, 0},
	mast.OpMovUp:   {CategoryStack, 0},
	mast.OpMovDn:   {CategoryStack, 0},
	mast.OpCSwap:   {CategoryStack, -1},
	mast.OpCSwapW:  {CategoryStack, -1},

	mast.OpAdd:     {CategoryField, -1},
	mast.OpMul:     {CategoryField, -1},
	mast.OpNeg:     {CategoryField, 0},
	mast.OpInv:     {CategoryField, 0},
	mast.OpEq:      {CategoryField, -1},
	mast.OpEqz:     {CategoryField, 0},
	mast.OpExpacc:  {CategoryField, -1},

	mast.OpU32split: {CategoryU32, 1},
	mast.OpU32add:   {CategoryU32, 0},
	mast.OpU32sub:   {CategoryU32, 0},
	mast.OpU32mul:   {CategoryU32, 0},
	mast.OpU32div:   {CategoryU32, 0},
	mast.OpU32and:   {CategoryU32, -1},
	mast.OpU32xor:   {CategoryU32, -1},
	mast.OpU32lt:    {CategoryU32, -1},
	mast.OpU32lte:   {CategoryU32, -1},
	mast.OpU32gt:    {CategoryU32, -1},
	mast.OpU32gte:   {CategoryU32, -1},

	mast.OpMLoad:    {CategoryIO, 0},
	mast.OpMStore:   {CategoryIO, -2},
	mast.OpMLoadW:   {CategoryIO, 3},
	mast.OpMStoreW:  {CategoryIO, -5},
	mast.OpMStream:  {CategoryIO, 8},
	mast.OpPipe:     {CategoryIO, 0},
	mast.OpAdvPop:   {CategoryIO, 1},
	mast.OpAdvPopW:  {CategoryIO, 4},

	mast.OpHPerm:     {CategoryCrypto, 0},
	mast.OpHMerge:    {CategoryCrypto, -4},
	mast.OpMpVerify:  {CategoryCrypto, -6},
	mast.OpMrUpdate:  {CategoryCrypto, -10},

	mast.OpExt2Add:    {CategoryExtension, -2},
	mast.OpExt2Mul:    {CategoryExtension, -2},
	mast.OpExt2Inv:    {CategoryExtension, 0},
	mast.OpHornerBase: {CategoryExtension, -1},
	mast.OpHornerExt:  {CategoryExtension, -1},

	mast.OpArithmeticCircuitEval: {CategoryACE, -3},
}

// Lookup returns op's metadata, failing with InvalidOpcode if the code
// is not in the fixed op-code space.
func Lookup(clk uint64, op mast.OpCode) (OpInfo, error) {
	info, ok := opTable[op]
	if !ok {
		return OpInfo{}, newErr(KindInvalidOpcode, clk, nil, "unknown op-code %d", uint8(op))
	}
	return info, nil
}
