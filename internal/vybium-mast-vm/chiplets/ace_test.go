package chiplets

import (
	"testing"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

func TestEncodeDecodeGateRoundTrip(t *testing.T) {
	for _, op := range []GateOp{GateSub, GateMul, GateAdd} {
		encoded, err := EncodeGate(5, 9, op)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		idL, idR, gotOp, err := DecodeGate(encoded)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if idL != 5 || idR != 9 || gotOp != op {
			t.Fatalf("round trip mismatch: got (%d, %d, %v), want (5, 9, %v)", idL, idR, gotOp, op)
		}
	}
}

func TestEncodeGateRejectsOversizedId(t *testing.T) {
	if _, err := EncodeGate(1<<30, 0, GateAdd); err == nil {
		t.Fatalf("expected error for an id exceeding the 30-bit width")
	}
}

func TestDecodeGateRejectsOutOfRangeOp(t *testing.T) {
	// op field value 3 is out of {Sub=0,Mul=1,Add=2} and must be rejected.
	raw := uint64(3) << opShift
	if _, _, _, err := DecodeGate(core.NewFelt(raw)); err == nil {
		t.Fatalf("expected error decoding an out-of-range gate op")
	}
}

func TestAceEvalAddSubMul(t *testing.T) {
	a := NewAce()
	a.LoadInput(0, core.QuadFeltFromBase(core.NewFelt(3)))
	a.LoadInput(1, core.QuadFeltFromBase(core.NewFelt(4)))

	if err := a.Eval(0, 1, 2, GateAdd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Eval(0, 1, 3, GateMul); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Eval(1, 0, 4, GateSub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, evals := a.GenerateTrace()
	if !evals[0].OutputVal.Equal(core.QuadFeltFromBase(core.NewFelt(7))) {
		t.Fatalf("3+4 should be 7, got %s", evals[0].OutputVal)
	}
	if !evals[1].OutputVal.Equal(core.QuadFeltFromBase(core.NewFelt(12))) {
		t.Fatalf("3*4 should be 12, got %s", evals[1].OutputVal)
	}
	if !evals[2].OutputVal.Equal(core.QuadFeltFromBase(core.NewFelt(1))) {
		t.Fatalf("4-3 should be 1, got %s", evals[2].OutputVal)
	}
}

func TestAceEvalFailsOnUndefinedOperand(t *testing.T) {
	a := NewAce()
	a.LoadInput(0, core.QuadFeltFromBase(core.NewFelt(1)))
	if err := a.Eval(0, 99, 1, GateAdd); err == nil {
		t.Fatalf("expected error referencing an undefined node")
	}
}

func TestAceAcceptSucceedsWhenFinalNodeIsZero(t *testing.T) {
	a := NewAce()
	a.LoadInput(0, core.QuadFeltFromBase(core.NewFelt(5)))
	a.LoadInput(1, core.QuadFeltFromBase(core.NewFelt(5)))
	if err := a.Eval(0, 1, 2, GateSub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Accept(); err != nil {
		t.Fatalf("circuit evaluating to zero should be accepted: %v", err)
	}
}

func TestAceAcceptFailsWhenFinalNodeNonzero(t *testing.T) {
	a := NewAce()
	a.LoadInput(0, core.QuadFeltFromBase(core.NewFelt(5)))
	a.LoadInput(1, core.QuadFeltFromBase(core.NewFelt(4)))
	if err := a.Eval(0, 1, 2, GateSub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Accept(); err == nil {
		t.Fatalf("expected rejection when the final node is nonzero")
	}
}

func TestAceAcceptFailsOnEmptyCircuit(t *testing.T) {
	a := NewAce()
	if err := a.Accept(); err == nil {
		t.Fatalf("expected rejection of an empty circuit")
	}
}

func TestAceWiringBusProducesOneFractionPerReference(t *testing.T) {
	a := NewAce()
	a.LoadInput(0, core.QuadFeltFromBase(core.NewFelt(1)))
	a.LoadInput(1, core.QuadFeltFromBase(core.NewFelt(2)))
	if err := a.Eval(0, 1, 2, GateAdd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alpha := [4]core.QuadFelt{
		core.QuadFeltFromBase(core.NewFelt(2)),
		core.QuadFeltFromBase(core.NewFelt(3)),
		core.QuadFeltFromBase(core.NewFelt(5)),
		core.QuadFeltFromBase(core.NewFelt(7)),
	}
	fractions := a.WiringBus(alpha)
	// 2 read definitions + (1 output definition + 2 operand references)
	// from the one eval.
	if len(fractions) != 5 {
		t.Fatalf("expected 5 wiring fractions, got %d", len(fractions))
	}
	for _, f := range fractions {
		if f.Denominator.IsZero() {
			t.Fatalf("wiring denominator should not be zero for distinct challenges/ids")
		}
	}

	// Definitions weighted by use count net exactly against references.
	sum := core.ZeroQuadFelt()
	for _, f := range fractions {
		inv, err := f.Denominator.Inv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sum = sum.Add(f.Numerator.Mul(inv))
	}
	if !sum.IsZero() {
		t.Fatalf("wiring bus should net to zero for a consistent circuit, got %s", sum)
	}
}

func TestAceGenerateTraceRecordsUseMultiplicities(t *testing.T) {
	a := NewAce()
	a.LoadInput(0, core.QuadFeltFromBase(core.NewFelt(3)))
	a.LoadInput(1, core.QuadFeltFromBase(core.NewFelt(3)))
	if err := a.Eval(0, 0, 2, GateMul); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Eval(2, 1, 3, GateSub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reads, evals := a.GenerateTrace()
	if reads[0].Multiplicity != 2 {
		t.Fatalf("node 0 is referenced twice, got multiplicity %d", reads[0].Multiplicity)
	}
	if reads[1].Multiplicity != 1 {
		t.Fatalf("node 1 is referenced once, got multiplicity %d", reads[1].Multiplicity)
	}
	if evals[0].OutputMult != 1 {
		t.Fatalf("gate output 2 is referenced once, got multiplicity %d", evals[0].OutputMult)
	}
	if evals[1].OutputMult != 0 {
		t.Fatalf("the final output is never referenced, got multiplicity %d", evals[1].OutputMult)
	}
}
