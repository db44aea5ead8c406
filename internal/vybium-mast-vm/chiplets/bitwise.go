package chiplets

import "github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"

// BitwiseOp selects AND or XOR.
type BitwiseOp uint8

const (
	BitwiseAnd BitwiseOp = iota
	BitwiseXor
)

// BitwiseRow is one of the 8 rows emitted per bitwise(op, a, b) call: row
// k holds the k-th nibble (from the most significant) of a and b, the
// per-row partial output, and a running accumulator.
type BitwiseRow struct {
	Op          BitwiseOp
	NibbleA     uint8 // in [0, 2^4)
	NibbleB     uint8
	PartialOut  uint8
	Accumulator uint32
}

// Bitwise is the bitwise chiplet: decomposes two u32 inputs into 4-bit
// limbs over an 8-row cycle.
type Bitwise struct {
	rows []BitwiseRow
}

// NewBitwise returns an empty bitwise chiplet.
func NewBitwise() *Bitwise { return &Bitwise{} }

// Eval performs bitwise(op, a, b), recording the 8-row decomposition and
// returning the u32 result.
func (b *Bitwise) Eval(op BitwiseOp, a, c uint32) uint32 {
	var acc uint32
	for k := 0; k < 8; k++ {
		shift := uint(28 - 4*k)
		nibA := uint8((a >> shift) & 0xF)
		nibB := uint8((c >> shift) & 0xF)
		var partial uint8
		if op == BitwiseAnd {
			partial = nibA & nibB
		} else {
			partial = nibA ^ nibB
		}
		acc = (acc << 4) | uint32(partial)
		b.rows = append(b.rows, BitwiseRow{Op: op, NibbleA: nibA, NibbleB: nibB, PartialOut: partial, Accumulator: acc})
	}
	return acc
}

// GenerateTrace returns the recorded rows; the final row of each 8-row
// group carries the declared output in Accumulator.
func (b *Bitwise) GenerateTrace() []BitwiseRow { return append([]BitwiseRow(nil), b.rows...) }

// BusResponses returns the (op, a, b, output) keys the chiplet posts on
// the bus for each completed call.
func (b *Bitwise) BusResponses() []BusKey {
	var out []BusKey
	for i := 0; i+7 < len(b.rows); i += 8 {
		last := b.rows[i+7]
		// Reconstruct a, c from nibbles across the 8-row group.
		var a, c uint32
		for k := 0; k < 8; k++ {
			a = (a << 4) | uint32(b.rows[i+k].NibbleA)
			c = (c << 4) | uint32(b.rows[i+k].NibbleB)
		}
		out = append(out, BusKey{
			Label:  uint64(last.Op),
			A:      core.NewFelt(uint64(a)),
			B:      core.NewFelt(uint64(c)),
			Output: core.NewFelt(uint64(last.Accumulator)),
		})
	}
	return out
}

// BusKey is a (label, operands, output) tuple describing one bitwise bus
// response entry.
type BusKey struct {
	Label  uint64
	A, B   core.Felt
	Output core.Felt
}
