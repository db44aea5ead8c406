package air

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/chiplets"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// Fraction is one (numerator, denominator) pair a chiplet contributes to
// a LogUp bus: every response (or request) posts a term
// numerator/denominator, and a valid trace's bus sums to zero once
// responses are netted against requests.
type Fraction struct {
	Num, Den core.QuadFelt
}

// sum adds every fraction's num/den via extension-field inversion,
// skipping (rather than failing on) a degenerate zero denominator: a
// colliding bus key the owning subsystem's boundary constraints already
// flag separately.
func sum(fs []Fraction) core.QuadFelt {
	acc := core.ZeroQuadFelt()
	for _, f := range fs {
		inv, err := f.Den.Inv()
		if err != nil {
			continue
		}
		acc = acc.Add(f.Num.Mul(inv))
	}
	return acc
}

// degenerate reports whether any fraction in fs carries a zero
// denominator.
func degenerate(fs []Fraction) bool {
	for _, f := range fs {
		if f.Den.IsZero() {
			return true
		}
	}
	return false
}

// BitwiseBus builds one response fraction per completed 8-row bitwise
// call, keyed by (op, a, b, output). The op dispatcher calls straight
// into the chiplet, so the response log here is also the only record of
// the request; VerifyBuses checks the keys are well-formed rather than
// netting against an independent request side.
func BitwiseBus(tr *trace.Trace, ch *Challenges) []Fraction {
	rows := tr.Bitwise
	var out []Fraction
	for i := 7; i < len(rows); i += 8 {
		var a, b uint32
		for k := 0; k < 8; k++ {
			a = (a << 4) | uint32(rows[i-7+k].NibbleA)
			b = (b << 4) | uint32(rows[i-7+k].NibbleB)
		}
		last := rows[i]
		den := ch.Bitwise.Eval(
			core.NewFelt(uint64(last.Op)),
			core.NewFelt(uint64(a)),
			core.NewFelt(uint64(b)),
			core.NewFelt(uint64(last.Accumulator)),
		)
		out = append(out, Fraction{Num: core.OneQuadFelt(), Den: den})
	}
	return out
}

// HasherBus builds the merge-keyed bus fractions: one response per 8-row
// SelMerge run recorded in tr.Hasher, and one request per Merge call
// recorded independently in tr.HasherRequests. Requests and responses
// come from two independent logs keyed by (label, output digest), so the
// two sides must net to zero.
func HasherBus(tr *trace.Trace, ch *Challenges) (responses, requests []Fraction) {
	runLen := core.SpongeRounds + 1
	mergeBits := [2]bool{uint8(chiplets.SelMerge)&1 != 0, uint8(chiplets.SelMerge)&2 != 0}
	for i := 0; i+runLen <= len(tr.Hasher); i += runLen {
		row := tr.Hasher[i]
		if row.Selectors[0] != mergeBits[0] || row.Selectors[1] != mergeBits[1] {
			continue
		}
		out := tr.Hasher[i+runLen-1]
		den := ch.Hasher.Eval(
			core.NewFelt(uint64(chiplets.SelMerge)),
			out.State[0], out.State[1], out.State[2], out.State[3],
		)
		responses = append(responses, Fraction{Num: core.OneQuadFelt(), Den: den})
	}
	for _, req := range tr.HasherRequests {
		den := ch.Hasher.Eval(
			core.NewFelt(req.Label),
			req.Digest[0], req.Digest[1], req.Digest[2], req.Digest[3],
		)
		requests = append(requests, Fraction{Num: core.OneQuadFelt(), Den: den})
	}
	return responses, requests
}

// MemoryBus builds one response fraction per materialised memory row,
// keyed by (ctx, addr, clk, value). As with BitwiseBus, the access log is
// both request and response in this architecture.
func MemoryBus(tr *trace.Trace, ch *Challenges) []Fraction {
	var out []Fraction
	for _, r := range tr.Memory {
		den := ch.Memory.Eval(
			core.NewFelt(uint64(r.Ctx)),
			core.NewFelt(uint64(r.Addr)),
			core.NewFelt(r.Clk),
			r.Value,
		)
		out = append(out, Fraction{Num: core.OneQuadFelt(), Den: den})
	}
	return out
}

// KernelRomBus builds one response fraction per kernel entry, weighted by
// its call multiplicity.
func KernelRomBus(tr *trace.Trace, ch *Challenges) []Fraction {
	var out []Fraction
	for _, r := range tr.KernelRom {
		den := ch.Kernel.Eval(core.NewFelt(0), r.Digest[0], r.Digest[1], r.Digest[2], r.Digest[3])
		out = append(out, Fraction{Num: core.QuadFeltFromBase(core.NewFelt(r.Multiplicity)), Den: den})
	}
	return out
}

// RangeCheckBus builds the table side (one fraction per distinct value,
// weighted by its multiplicity) and the consumer side (one fraction per
// individual lookup event) of the range-check LogUp identity. These are
// two genuinely independent logs: the table aggregates by value, the
// consumer log records every lookup call in request order.
func RangeCheckBus(tr *trace.Trace, ch *Challenges) (table, consumers []Fraction) {
	for _, r := range tr.RangeCheck {
		den := ch.Range.Eval(core.NewFelt(uint64(r.Value)))
		table = append(table, Fraction{Num: core.QuadFeltFromBase(core.NewFelt(r.Multiplicity)), Den: den})
	}
	for _, v := range tr.RangeCheckEvents {
		den := ch.Range.Eval(core.NewFelt(uint64(v)))
		consumers = append(consumers, Fraction{Num: core.OneQuadFelt(), Den: den})
	}
	return table, consumers
}

// AceBus rebuilds the ACE chiplet's wiring bus over the materialised Read
// and Eval rows: each node definition contributes +multiplicity over its
// wiring denominator, each operand reference contributes -1 over the
// denominator of the (id, value) pair it read. The sum is zero exactly
// when every reference agrees with its definition.
func AceBus(tr *trace.Trace, ch *Challenges) []Fraction {
	alpha := ch.Ace
	denom := func(id uint32, v core.QuadFelt) core.QuadFelt {
		idF := core.QuadFeltFromBase(core.NewFelt(uint64(id)))
		return alpha[0].Add(alpha[1].Mul(idF)).Add(alpha[2].MulBase(v.A0)).Add(alpha[3].MulBase(v.A1))
	}
	negOne := core.OneQuadFelt().Neg()
	var out []Fraction
	for _, r := range tr.AceReads {
		out = append(out, Fraction{Num: core.QuadFeltFromBase(core.NewFelt(r.Multiplicity)), Den: denom(r.NodeID, r.Value)})
	}
	for _, e := range tr.AceEvals {
		out = append(out,
			Fraction{Num: core.QuadFeltFromBase(core.NewFelt(e.OutputMult)), Den: denom(e.Output, e.OutputVal)},
			Fraction{Num: negOne, Den: denom(e.Left, e.LeftVal)},
			Fraction{Num: negOne, Den: denom(e.Right, e.RightVal)},
		)
	}
	return out
}

// VerifyBuses checks every bus against tr: the two-sided buses
// (range-check, hasher) must net to zero once responses are weighed
// against requests/consumers, the ACE wiring bus must net to zero on its
// own, and the remaining buses (whose request and response sides
// coincide by construction in this architecture) are checked for key
// well-formedness only.
func VerifyBuses(tr *trace.Trace, ch *Challenges) error {
	if bit := BitwiseBus(tr, ch); degenerate(bit) {
		return fmt.Errorf("air: bitwise bus has a degenerate (colliding) key")
	}
	if mem := MemoryBus(tr, ch); degenerate(mem) {
		return fmt.Errorf("air: memory bus has a degenerate (colliding) key")
	}
	if krom := KernelRomBus(tr, ch); degenerate(krom) {
		return fmt.Errorf("air: kernel rom bus has a degenerate (colliding) key")
	}

	hResp, hReq := HasherBus(tr, ch)
	if len(hResp) != len(hReq) {
		return fmt.Errorf("air: hasher bus imbalance: %d merge responses vs %d requests", len(hResp), len(hReq))
	}
	if net := sum(hResp).Sub(sum(hReq)); !net.IsZero() {
		return fmt.Errorf("air: hasher bus does not net to zero: %s", net)
	}

	rcTable, rcConsumers := RangeCheckBus(tr, ch)
	if net := sum(rcTable).Sub(sum(rcConsumers)); !net.IsZero() {
		return fmt.Errorf("air: range-check bus does not net to zero: %s", net)
	}

	if net := sum(AceBus(tr, ch)); !net.IsZero() {
		return fmt.Errorf("air: ace wiring bus does not net to zero: %s", net)
	}

	return nil
}
