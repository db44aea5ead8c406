package chiplets

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// GateOp is the arithmetic operation a gate record performs.
type GateOp uint8

const (
	GateSub GateOp = 0
	GateMul GateOp = 1
	GateAdd GateOp = 2
)

// masks matching the gate encoding: id_l | id_r << 30 | op << 60.
const (
	idMask  = (uint64(1) << 30) - 1
	idShift = 30
	opShift = 60
	opMask  = uint64(0x3)
)

// AceError covers every circuit-evaluation failure: malformed gate
// encodings, references to undefined nodes, and a nonzero final output.
type AceError struct{ Reason string }

func (e *AceError) Error() string { return fmt.Sprintf("ace: %s", e.Reason) }

// DecodeGate unpacks a gate-encoding Felt into (idL, idR, op), failing if
// any field overflows its allotted width.
func DecodeGate(encoded core.Felt) (idL, idR uint32, op GateOp, err error) {
	raw := encoded.Uint64()
	if raw>>opShift > opMask {
		return 0, 0, 0, &AceError{Reason: "gate op field overflows its allotted width"}
	}
	opVal := GateOp((raw >> opShift) & opMask)
	if opVal > GateAdd {
		return 0, 0, 0, &AceError{Reason: "gate op field out of range"}
	}
	idRRaw := (raw >> idShift) & idMask
	idLRaw := raw & idMask
	return uint32(idLRaw), uint32(idRRaw), opVal, nil
}

// EncodeGate packs (idL, idR, op) into the Felt encoding, failing if
// either id exceeds 30 bits.
func EncodeGate(idL, idR uint32, op GateOp) (core.Felt, error) {
	if uint64(idL) > idMask || uint64(idR) > idMask {
		return core.Felt{}, &AceError{Reason: "node id exceeds 30-bit width"}
	}
	raw := uint64(idL) | uint64(idR)<<idShift | uint64(op)<<opShift
	return core.NewFelt(raw), nil
}

// ReadRow is one row of the Read section: an input or constant node and
// its value, with the number of downstream gate references recorded as
// its wiring-bus multiplicity.
type ReadRow struct {
	NodeID       uint32
	Value        core.QuadFelt
	Multiplicity uint64
}

// EvalRow is one row of the Eval section: one gate evaluation, plus the
// output node's downstream reference count for the wiring bus.
type EvalRow struct {
	Left, Right, Output          uint32
	LeftVal, RightVal, OutputVal core.QuadFelt
	Op                           GateOp
	OutputMult                   uint64
}

// Ace is the arithmetic-circuit-evaluation chiplet: evaluates read-only
// arithmetic circuits over QuadFelt.
type Ace struct {
	reads  []ReadRow
	evals  []EvalRow
	values map[uint32]core.QuadFelt
	uses   map[uint32]uint64
}

// NewAce returns an empty ACE chiplet.
func NewAce() *Ace {
	return &Ace{
		values: make(map[uint32]core.QuadFelt),
		uses:   make(map[uint32]uint64),
	}
}

// LoadInput registers a circuit input or constant at nodeID.
func (a *Ace) LoadInput(nodeID uint32, value core.QuadFelt) {
	a.values[nodeID] = value
	a.reads = append(a.reads, ReadRow{NodeID: nodeID, Value: value})
}

// Eval evaluates one gate, reading its operands from previously defined
// node values (inputs or earlier gate outputs) and recording the node's
// result for subsequent gates to reference.
func (a *Ace) Eval(idL, idR, idOut uint32, op GateOp) error {
	left, ok := a.values[idL]
	if !ok {
		return &AceError{Reason: fmt.Sprintf("left operand node %d not yet defined", idL)}
	}
	right, ok := a.values[idR]
	if !ok {
		return &AceError{Reason: fmt.Sprintf("right operand node %d not yet defined", idR)}
	}
	var out core.QuadFelt
	switch op {
	case GateAdd:
		out = left.Add(right)
	case GateSub:
		out = left.Sub(right)
	case GateMul:
		out = left.Mul(right)
	default:
		return &AceError{Reason: "unknown gate op"}
	}
	a.values[idOut] = out
	a.uses[idL]++
	a.uses[idR]++
	a.evals = append(a.evals, EvalRow{Left: idL, Right: idR, Output: idOut, LeftVal: left, RightVal: right, OutputVal: out, Op: op})
	return nil
}

// Accept checks that the output node of the last eval row equals zero in
// QuadFelt, the circuit's acceptance condition.
func (a *Ace) Accept() error {
	if len(a.evals) == 0 {
		return &AceError{Reason: "empty circuit has no accepting row"}
	}
	last := a.evals[len(a.evals)-1]
	if !last.OutputVal.IsZero() {
		return &AceError{Reason: "final node does not evaluate to zero"}
	}
	return nil
}

// WiringFraction is a (numerator, denominator) pair contributed to the
// wiring bus for one node definition or operand reference.
type WiringFraction struct {
	Numerator   core.QuadFelt
	Denominator core.QuadFelt
}

// WiringBus builds the node-id wiring bus: each node definition (a read
// row or a gate output) contributes +uses/denominator and each operand
// reference contributes -1/denominator, where the denominator is the
// random linear combination alpha0 + alpha1*id + alpha2*v0 + alpha3*v1.
// The accumulated sum is zero exactly when every reference to a node id
// agrees with its definition's value.
func (a *Ace) WiringBus(alpha [4]core.QuadFelt) []WiringFraction {
	denom := func(id uint32, v core.QuadFelt) core.QuadFelt {
		idF := core.QuadFeltFromBase(core.NewFelt(uint64(id)))
		return alpha[0].Add(alpha[1].Mul(idF)).Add(alpha[2].MulBase(v.A0)).Add(alpha[3].MulBase(v.A1))
	}
	negOne := core.OneQuadFelt().Neg()
	var fractions []WiringFraction
	for _, r := range a.reads {
		fractions = append(fractions, WiringFraction{
			Numerator:   core.QuadFeltFromBase(core.NewFelt(a.uses[r.NodeID])),
			Denominator: denom(r.NodeID, r.Value),
		})
	}
	for _, e := range a.evals {
		fractions = append(fractions,
			WiringFraction{Numerator: core.QuadFeltFromBase(core.NewFelt(a.uses[e.Output])), Denominator: denom(e.Output, e.OutputVal)},
			WiringFraction{Numerator: negOne, Denominator: denom(e.Left, e.LeftVal)},
			WiringFraction{Numerator: negOne, Denominator: denom(e.Right, e.RightVal)},
		)
	}
	return fractions
}

// GenerateTrace returns the Read and Eval section rows with their final
// wiring multiplicities filled in.
func (a *Ace) GenerateTrace() (reads []ReadRow, evals []EvalRow) {
	reads = append([]ReadRow(nil), a.reads...)
	for i := range reads {
		reads[i].Multiplicity = a.uses[reads[i].NodeID]
	}
	evals = append([]EvalRow(nil), a.evals...)
	for i := range evals {
		evals[i].OutputMult = a.uses[evals[i].Output]
	}
	return reads, evals
}
