package processor

import (
	"testing"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

func newTestProcessor(t *testing.T, inputs []core.Felt) *Processor {
	t.Helper()
	p, err := New(inputs, NewAdviceProvider(nil), nil, 0)
	if err != nil {
		t.Fatalf("unexpected error building processor: %v", err)
	}
	return p
}

func mustDispatch(t *testing.T, p *Processor, op mast.Op) {
	t.Helper()
	if err := p.dispatch(op); err != nil {
		t.Fatalf("unexpected error dispatching %s: %v", op.Code, err)
	}
}

func TestAssertPassesOnOne(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.OneFelt()})
	mustDispatch(t, p, mast.Op{Code: mast.OpAssert})
}

func TestAssertFailsOnNonOneWithDeclaredCode(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.ZeroFelt()})
	err := p.dispatch(mast.Op{Code: mast.OpAssert, Imm: core.NewFelt(0)})
	if err == nil {
		t.Fatalf("expected AssertionFailed")
	}
	perr := err.(*Error)
	if perr.Kind != KindAssertionFailed {
		t.Fatalf("expected KindAssertionFailed, got %v", perr.Kind)
	}
}

func TestFmpAddWithinBoundsUpdatesFmp(t *testing.T) {
	p := newTestProcessor(t, nil)
	mustDispatch(t, p, mast.Op{Code: mast.OpFmpAdd, Imm: core.NewFelt(10)})
	if p.Sys.Fmp != FmpMin+10 {
		t.Fatalf("expected fmp %d, got %d", FmpMin+10, p.Sys.Fmp)
	}
}

func TestFmpAddOutOfBoundsFails(t *testing.T) {
	p := newTestProcessor(t, nil)
	delta := (FmpMax - FmpMin) + 1
	err := p.dispatch(mast.Op{Code: mast.OpFmpAdd, Imm: core.NewFelt(delta)})
	if err == nil {
		t.Fatalf("expected a MemoryError for an out-of-range fmp update")
	}
	if err.(*Error).Kind != KindMemoryError {
		t.Fatalf("expected KindMemoryError, got %v", err.(*Error).Kind)
	}
}

func TestClkPushesCurrentClock(t *testing.T) {
	p := newTestProcessor(t, nil)
	mustDispatch(t, p, mast.Op{Code: mast.OpNoop})
	mustDispatch(t, p, mast.Op{Code: mast.OpNoop})
	mustDispatch(t, p, mast.Op{Code: mast.OpClk})
	top, err := p.Stack.Get(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top.Uint64() != 2 {
		t.Fatalf("expected pushed clk 2, got %s", top)
	}
}

func TestDupDuplicatesRequestedDepth(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(7), core.NewFelt(9)})
	mustDispatch(t, p, mast.Op{Code: mast.OpDup, Imm: core.NewFelt(1)})
	top, _ := p.Stack.Get(0)
	if top.Uint64() != 7 {
		t.Fatalf("dup.1 should duplicate the element at depth 1, got %s", top)
	}
}

func TestSwapExchangesTopTwo(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(7), core.NewFelt(9)})
	mustDispatch(t, p, mast.Op{Code: mast.OpSwap})
	top, _ := p.Stack.Get(0)
	second, _ := p.Stack.Get(1)
	if top.Uint64() != 7 || second.Uint64() != 9 {
		t.Fatalf("expected top/second swapped to (7,9), got (%s,%s)", top, second)
	}
}

func TestMovUpBringsElementToTop(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(1), core.NewFelt(2), core.NewFelt(3)})
	mustDispatch(t, p, mast.Op{Code: mast.OpMovUp, Imm: core.NewFelt(2)})
	top, _ := p.Stack.Get(0)
	if top.Uint64() != 1 {
		t.Fatalf("movup.2 should bring depth-2 element to top, got %s", top)
	}
}

func TestCSwapRequiresBinaryCondition(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(5), core.NewFelt(1), core.NewFelt(2)})
	err := p.dispatch(mast.Op{Code: mast.OpCSwap})
	if err == nil {
		t.Fatalf("expected NotBinaryValue for a non-binary cswap condition")
	}
	if err.(*Error).Kind != KindNotBinaryValue {
		t.Fatalf("expected KindNotBinaryValue, got %v", err.(*Error).Kind)
	}
}

func TestCSwapSwapsWhenConditionIsOne(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(20), core.NewFelt(10), core.OneFelt()})
	mustDispatch(t, p, mast.Op{Code: mast.OpCSwap})
	top, _ := p.Stack.Get(0)
	if top.Uint64() != 20 {
		t.Fatalf("cswap with condition 1 should swap, top should be 20, got %s", top)
	}
}

func TestFieldAddMulNeg(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(3), core.NewFelt(4)})
	mustDispatch(t, p, mast.Op{Code: mast.OpAdd})
	top, _ := p.Stack.Get(0)
	if top.Uint64() != 7 {
		t.Fatalf("expected 3+4=7, got %s", top)
	}

	p2 := newTestProcessor(t, []core.Felt{core.NewFelt(3), core.NewFelt(4)})
	mustDispatch(t, p2, mast.Op{Code: mast.OpMul})
	top2, _ := p2.Stack.Get(0)
	if top2.Uint64() != 12 {
		t.Fatalf("expected 3*4=12, got %s", top2)
	}

	p3 := newTestProcessor(t, []core.Felt{core.NewFelt(3)})
	mustDispatch(t, p3, mast.Op{Code: mast.OpNeg})
	top3, _ := p3.Stack.Get(0)
	if !top3.Equal(core.NewFelt(3).Neg()) {
		t.Fatalf("expected -3, got %s", top3)
	}
}

func TestInvOfZeroFails(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.ZeroFelt()})
	err := p.dispatch(mast.Op{Code: mast.OpInv})
	if err == nil || err.(*Error).Kind != KindDivideByZero {
		t.Fatalf("expected DivideByZero, got %v", err)
	}
}

func TestEqAndEqz(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(5), core.NewFelt(5)})
	mustDispatch(t, p, mast.Op{Code: mast.OpEq})
	top, _ := p.Stack.Get(0)
	if !top.IsOne() {
		t.Fatalf("5 == 5 should push 1, got %s", top)
	}

	p2 := newTestProcessor(t, []core.Felt{core.ZeroFelt()})
	mustDispatch(t, p2, mast.Op{Code: mast.OpEqz})
	top2, _ := p2.Stack.Get(0)
	if !top2.IsOne() {
		t.Fatalf("eqz of 0 should push 1, got %s", top2)
	}
}

func TestExpaccRejectsNonBinaryBit(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(2), core.NewFelt(3), core.NewFelt(9)})
	err := p.dispatch(mast.Op{Code: mast.OpExpacc})
	if err == nil || err.(*Error).Kind != KindNotBinaryValue {
		t.Fatalf("expected NotBinaryValue, got %v", err)
	}
}

func TestExpaccSquaresBaseAndConditionallyMultipliesAcc(t *testing.T) {
	// stack (top..bottom): bit=1, base=3, acc=2
	p := newTestProcessor(t, []core.Felt{core.NewFelt(2), core.NewFelt(3), core.OneFelt()})
	mustDispatch(t, p, mast.Op{Code: mast.OpExpacc})
	newAcc, _ := p.Stack.Get(0)
	newBase, _ := p.Stack.Get(1)
	if newAcc.Uint64() != 6 {
		t.Fatalf("expected acc 2*3=6, got %s", newAcc)
	}
	if newBase.Uint64() != 9 {
		t.Fatalf("expected base 3^2=9, got %s", newBase)
	}
}

func TestU32SplitDecomposesIntoLowHighLimbs(t *testing.T) {
	v := (uint64(7) << 32) | uint64(123)
	p := newTestProcessor(t, []core.Felt{core.NewFelt(v)})
	mustDispatch(t, p, mast.Op{Code: mast.OpU32split})
	lo, _ := p.Stack.Get(0)
	hi, _ := p.Stack.Get(1)
	if lo.Uint64() != 123 || hi.Uint64() != 7 {
		t.Fatalf("expected (lo,hi)=(123,7), got (%s,%s)", lo, hi)
	}
}

func TestU32AddOverflowsIntoHighLimb(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(4294967295), core.NewFelt(1)})
	mustDispatch(t, p, mast.Op{Code: mast.OpU32add})
	lo, _ := p.Stack.Get(0)
	hi, _ := p.Stack.Get(1)
	if lo.Uint64() != 0 {
		t.Fatalf("expected wrapped low limb 0, got %s", lo)
	}
	if hi.Uint64() != 1 {
		t.Fatalf("expected overflow flag 1, got %s", hi)
	}
}

func TestU32SubBorrows(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(5), core.NewFelt(3)})
	mustDispatch(t, p, mast.Op{Code: mast.OpU32sub})
	lo, _ := p.Stack.Get(0)
	hi, _ := p.Stack.Get(1)
	if lo.Uint64() != 2 || hi.Uint64() != 0 {
		t.Fatalf("expected 5-3=2 with no borrow, got (%s,%s)", lo, hi)
	}
}

func TestU32DivByZeroFails(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(10), core.ZeroFelt()})
	err := p.dispatch(mast.Op{Code: mast.OpU32div})
	if err == nil || err.(*Error).Kind != KindDivideByZero {
		t.Fatalf("expected DivideByZero, got %v", err)
	}
}

func TestU32DivQuotientAndRemainder(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(10), core.NewFelt(3)})
	mustDispatch(t, p, mast.Op{Code: mast.OpU32div})
	quot, _ := p.Stack.Get(0)
	rem, _ := p.Stack.Get(1)
	if quot.Uint64() != 3 || rem.Uint64() != 1 {
		t.Fatalf("expected 10/3 -> (3,1), got (%s,%s)", quot, rem)
	}
}

func TestU32AndXorDelegateToBitwiseChiplet(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(0xF0F0), core.NewFelt(0x0FF0)})
	mustDispatch(t, p, mast.Op{Code: mast.OpU32and})
	top, _ := p.Stack.Get(0)
	if top.Uint64() != uint64(0xF0F0&0x0FF0) {
		t.Fatalf("expected AND result, got %s", top)
	}
	if len(p.Bitwise.BusResponses()) != 1 {
		t.Fatalf("expected exactly one bitwise bus response")
	}
}

func TestU32Comparisons(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(3), core.NewFelt(5)})
	mustDispatch(t, p, mast.Op{Code: mast.OpU32lt})
	top, _ := p.Stack.Get(0)
	if !top.IsOne() {
		t.Fatalf("3 < 5 should push 1, got %s", top)
	}
}

func TestMStoreMLoadRoundTrip(t *testing.T) {
	p := newTestProcessor(t, []core.Felt{core.NewFelt(42), core.NewFelt(100)})
	mustDispatch(t, p, mast.Op{Code: mast.OpMStore})
	mustDispatch(t, p, mast.Op{Code: mast.OpNoop}) // advance clk before re-reading same addr
	p.Stack.Push(p.Sys.Clk, core.NewFelt(100))
	mustDispatch(t, p, mast.Op{Code: mast.OpMLoad})
	top, _ := p.Stack.Get(0)
	if top.Uint64() != 42 {
		t.Fatalf("expected stored value 42 back, got %s", top)
	}
}

func TestMStoreWMLoadWRoundTrip(t *testing.T) {
	// stack (top..bottom): addr=100, w0=4, w1=3, w2=2, w3=1, addr2=100
	inputs := []core.Felt{core.NewFelt(100), core.NewFelt(1), core.NewFelt(2), core.NewFelt(3), core.NewFelt(4), core.NewFelt(100)}
	p := newTestProcessor(t, inputs)
	mustDispatch(t, p, mast.Op{Code: mast.OpMStoreW})
	mustDispatch(t, p, mast.Op{Code: mast.OpMLoadW})
	want := []uint64{4, 3, 2, 1}
	for i, w := range want {
		v, err := p.Stack.Get(i)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Uint64() != w {
			t.Fatalf("position %d: got %s, want %d", i, v, w)
		}
	}
}

func TestAdvPopAndAdvPopW(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.Host = NewAdviceProvider([]core.Felt{core.NewFelt(1), core.NewFelt(2), core.NewFelt(3), core.NewFelt(4), core.NewFelt(5)})
	mustDispatch(t, p, mast.Op{Code: mast.OpAdvPop})
	top, _ := p.Stack.Get(0)
	if top.Uint64() != 1 {
		t.Fatalf("expected advpop to yield 1, got %s", top)
	}
	mustDispatch(t, p, mast.Op{Code: mast.OpAdvPopW})
	want := []uint64{2, 3, 4, 5}
	for i, w := range want {
		v, _ := p.Stack.Get(i)
		if v.Uint64() != w {
			t.Fatalf("advpopw position %d: got %s, want %d", i, v, w)
		}
	}
}

func TestAdvPopFailsOnExhaustedTape(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.Host = NewAdviceProvider(nil)
	err := p.dispatch(mast.Op{Code: mast.OpAdvPop})
	if err == nil || err.(*Error).Kind != KindAdviceError {
		t.Fatalf("expected AdviceError, got %v", err)
	}
}

func TestHPermMatchesCorePermute(t *testing.T) {
	p := newTestProcessor(t, nil)
	for i := 0; i < core.SpongeWidth; i++ {
		p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(i)))
	}
	mustDispatch(t, p, mast.Op{Code: mast.OpHPerm})
	var expect [core.SpongeWidth]core.Felt
	for i := 0; i < core.SpongeWidth; i++ {
		expect[i] = core.NewFelt(uint64(i))
	}
	want := core.Permute(expect)
	for i := 0; i < core.SpongeWidth; i++ {
		got, _ := p.Stack.Get(i)
		if !got.Equal(want[core.SpongeWidth-1-i]) {
			t.Fatalf("hperm output mismatch at position %d", i)
		}
	}
}

func TestHMergeMatchesCoreMergeZeroDomain(t *testing.T) {
	p := newTestProcessor(t, nil)
	left := core.LinearHash([]core.Felt{core.NewFelt(1)})
	right := core.LinearHash([]core.Felt{core.NewFelt(2)})
	p.pushWord(core.DigestAsWord(left))
	p.pushWord(core.DigestAsWord(right))
	mustDispatch(t, p, mast.Op{Code: mast.OpHMerge})
	w, err := p.popWord()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := core.Merge(left, right)
	if !w.AsDigest().Equal(want) {
		t.Fatalf("hmerge result mismatch")
	}
}

func TestExt2AddMulInv(t *testing.T) {
	p := newTestProcessor(t, nil)
	a := core.NewQuadFelt(core.NewFelt(3), core.NewFelt(4))
	b := core.NewQuadFelt(core.NewFelt(1), core.NewFelt(2))
	p.pushQuad(a)
	p.pushQuad(b)
	mustDispatch(t, p, mast.Op{Code: mast.OpExt2Add})
	got, err := p.popQuad()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(a.Add(b)) {
		t.Fatalf("ext2add result mismatch")
	}
}

func TestExt2InvOfZeroFails(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.pushQuad(core.ZeroQuadFelt())
	err := p.dispatch(mast.Op{Code: mast.OpExt2Inv})
	if err == nil || err.(*Error).Kind != KindDivideByZero {
		t.Fatalf("expected DivideByZero, got %v", err)
	}
}

func TestHornerStepAccumulates(t *testing.T) {
	p := newTestProcessor(t, nil)
	acc := core.QuadFeltFromBase(core.NewFelt(2))
	x := core.QuadFeltFromBase(core.NewFelt(3))
	p.pushQuad(acc)
	p.pushQuad(x)
	p.Stack.Push(p.Sys.Clk, core.NewFelt(5))
	mustDispatch(t, p, mast.Op{Code: mast.OpHornerBase})
	newAcc, err := p.popQuad()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := acc.Mul(x).Add(core.QuadFeltFromBase(core.NewFelt(5)))
	if !newAcc.Equal(want) {
		t.Fatalf("horner step result mismatch: got %s, want %s", newAcc, want)
	}
}

// buildMerklePath builds a binary tree over leaves with core.Merge (the
// same combination MpVerify's hasher chiplet uses) and returns the root
// plus the sibling path for index, deepest sibling first.
func buildMerklePath(leaves []core.Digest, index uint64) (core.Digest, []core.Digest) {
	level := leaves
	idx := index
	var path []core.Digest
	for len(level) > 1 {
		sibling := idx ^ 1
		path = append(path, level[sibling])
		next := make([]core.Digest, len(level)/2)
		for i := range next {
			next[i] = core.Merge(level[2*i], level[2*i+1])
		}
		level = next
		idx >>= 1
	}
	return level[0], path
}

func TestMpVerifyAcceptsValidPath(t *testing.T) {
	leaves := []core.Digest{
		core.LinearHash([]core.Felt{core.NewFelt(1)}),
		core.LinearHash([]core.Felt{core.NewFelt(2)}),
		core.LinearHash([]core.Felt{core.NewFelt(3)}),
		core.LinearHash([]core.Felt{core.NewFelt(4)}),
	}
	root, path := buildMerklePath(leaves, 2)

	tape := make([]core.Felt, 0, 4*len(path))
	for _, d := range path {
		tape = append(tape, d[0], d[1], d[2], d[3])
	}
	p := newTestProcessor(t, nil)
	p.Host = NewAdviceProvider(tape)

	p.pushWord(core.DigestAsWord(root))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(len(path))))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(2))
	p.pushWord(core.DigestAsWord(leaves[2]))

	mustDispatch(t, p, mast.Op{Code: mast.OpMpVerify})

	got, err := p.popWord()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.AsDigest().Equal(root) {
		t.Fatalf("MpVerify should leave the claimed root on top")
	}
}

func TestMpVerifyRejectsWrongRoot(t *testing.T) {
	leaves := []core.Digest{
		core.LinearHash([]core.Felt{core.NewFelt(1)}),
		core.LinearHash([]core.Felt{core.NewFelt(2)}),
	}
	_, path := buildMerklePath(leaves, 0)
	wrongRoot := core.LinearHash([]core.Felt{core.NewFelt(99)})

	tape := make([]core.Felt, 0, 4*len(path))
	for _, d := range path {
		tape = append(tape, d[0], d[1], d[2], d[3])
	}
	p := newTestProcessor(t, nil)
	p.Host = NewAdviceProvider(tape)

	p.pushWord(core.DigestAsWord(wrongRoot))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(len(path))))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(0))
	p.pushWord(core.DigestAsWord(leaves[0]))

	if err := p.dispatch(mast.Op{Code: mast.OpMpVerify}); err == nil {
		t.Fatalf("expected error for mismatched root")
	}
}

func TestMpVerifyResolvesPathFromHostMerkleStore(t *testing.T) {
	// Eight single-element leaves; the authentication path for index 3
	// comes from the host's registered tree, not the advice tape.
	leaves := make([]core.Word, 8)
	for i := range leaves {
		leaves[i] = core.Word{core.NewFelt(uint64(i + 1))}
	}
	p := newTestProcessor(t, nil)
	root, err := p.Host.RegisterMerkleTree(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.pushWord(core.DigestAsWord(root))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(3)) // depth
	p.Stack.Push(p.Sys.Clk, core.NewFelt(3)) // index
	p.pushWord(leaves[3])

	mustDispatch(t, p, mast.Op{Code: mast.OpMpVerify})

	got, err := p.popWord()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.AsDigest().Equal(root) {
		t.Fatalf("MpVerify should leave the claimed root on top")
	}
}

func TestMpVerifyStorePathDepthMismatchFails(t *testing.T) {
	leaves := make([]core.Word, 4)
	for i := range leaves {
		leaves[i] = core.Word{core.NewFelt(uint64(i + 1))}
	}
	p := newTestProcessor(t, nil)
	root, err := p.Host.RegisterMerkleTree(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.pushWord(core.DigestAsWord(root))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(5)) // declared depth does not match the tree
	p.Stack.Push(p.Sys.Clk, core.NewFelt(0))
	p.pushWord(leaves[0])

	err = p.dispatch(mast.Op{Code: mast.OpMpVerify})
	if err == nil || err.(*Error).Kind != KindAdviceError {
		t.Fatalf("expected AdviceError for a depth mismatch, got %v", err)
	}
}
