// Package trace assembles the final rectangular execution trace from the
// processor's decoder rows and each chiplet's local trace: a single
// assembly point that concatenates the named regions and pads everything
// to the same power-of-two height.
package trace

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/chiplets"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/processor"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/stack"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/utils"
)

// ChipletOffsets records the first row of each chiplet's region within
// the shared chiplets row range, so the decoder's hash-address column
// and the AIR's bus builders can address a specific chiplet row.
type ChipletOffsets struct {
	Hasher     int
	Bitwise    int
	Memory     int
	KernelRom  int
	RangeCheck int
	AceRead    int
	AceEval    int
	Total      int
}

// Trace is the fully materialised execution trace: the decoder/system/
// stack region (one row per decoder-emitted event, padded with RowHalt
// rows) plus the concatenated chiplet regions, both extended to the same
// power-of-two Height.
type Trace struct {
	Height int

	// Decoder is the main region: system columns, stack snapshot, and
	// decoder bookkeeping.
	Decoder []processor.Row

	// Chiplet regions, concatenated within [0, Height) using Offsets.
	Hasher []chiplets.HasherRow
	// HasherRequests are the merge calls issued by callers, the consumer
	// side of the hasher bus's merge-keyed LogUp identity; independent of
	// Hasher's own run log.
	HasherRequests []chiplets.HashRequest
	Bitwise        []chiplets.BitwiseRow
	Memory         []chiplets.Row
	KernelRom      []chiplets.KernelRomRow
	RangeCheck     []chiplets.RangeCheckRow
	// RangeCheckEvents are the individual 16-bit lookups every consumer
	// performed, in request order (not the table's own aggregated
	// multiplicity), the consumer side of the range-check LogUp
	// identity.
	RangeCheckEvents []uint16
	AceReads         []chiplets.ReadRow
	AceEvals         []chiplets.EvalRow
	Offsets          ChipletOffsets

	// Overflow is the operand-stack spill log, a separate auxiliary-only
	// region consumed by the AIR's overflow multiset column.
	Overflow []stack.OverflowRow
}

// Build assembles the trace from a Processor and the Decoder that drove
// it, after Decoder.Run has completed successfully.
func Build(p *processor.Processor, d *processor.Decoder) *Trace {
	decoderRows := d.Rows()
	hasherRows := p.Hasher.GenerateTrace()
	bitwiseRows := p.Bitwise.GenerateTrace()
	memRows := p.Mem.GenerateTrace()
	kernelRows := p.Kernel.GenerateTrace()
	rangeRows := p.Range.GenerateTrace()
	aceReads, aceEvals := p.Ace.GenerateTrace()

	var off ChipletOffsets
	off.Hasher = 0
	off.Bitwise = off.Hasher + len(hasherRows)
	off.Memory = off.Bitwise + len(bitwiseRows)
	off.KernelRom = off.Memory + len(memRows)
	off.RangeCheck = off.KernelRom + len(kernelRows)
	off.AceRead = off.RangeCheck + len(rangeRows)
	off.AceEval = off.AceRead + len(aceReads)
	off.Total = off.AceEval + len(aceEvals)

	height := utils.NextPowerOfTwo(maxInt(len(decoderRows), maxInt(off.Total, 1)))

	decoderRows = padDecoder(decoderRows, height)

	return &Trace{
		Height:           height,
		Decoder:          decoderRows,
		Hasher:           hasherRows,
		HasherRequests:   p.Hasher.Requests(),
		Bitwise:          bitwiseRows,
		Memory:           memRows,
		KernelRom:        kernelRows,
		RangeCheck:       rangeRows,
		RangeCheckEvents: p.Range.Events(),
		AceReads:         aceReads,
		AceEvals:         aceEvals,
		Offsets:          off,
		Overflow:         p.Stack.OverflowRows(),
	}
}

// padDecoder extends rows to height with RowHalt padding rows that
// repeat the last real clock and stack state.
func padDecoder(rows []processor.Row, height int) []processor.Row {
	if len(rows) >= height {
		return rows
	}
	last := processor.Row{}
	if len(rows) > 0 {
		last = rows[len(rows)-1]
	}
	out := make([]processor.Row, height)
	copy(out, rows)
	for i := len(rows); i < height; i++ {
		out[i] = processor.Row{
			Clk: last.Clk, Kind: processor.RowHalt, Ctx: last.Ctx,
			InSyscall: last.InSyscall, Fmp: last.Fmp, FnHash: last.FnHash,
			StackTop: last.StackTop,
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ChipletKind names which chiplet region (if any) owns a row index
// within the shared chiplets row range, used by the AIR to decide which
// transition constraint package applies to that row.
type ChipletKind uint8

const (
	ChipletNone ChipletKind = iota
	ChipletHasher
	ChipletBitwise
	ChipletMemory
	ChipletKernelRom
	ChipletRangeCheck
	ChipletAceRead
	ChipletAceEval
)

// At returns which chiplet owns global row, and that chiplet's local row
// index within its own region.
func (t *Trace) At(row int) (ChipletKind, int) {
	o := t.Offsets
	switch {
	case row < o.Bitwise:
		return ChipletHasher, row - o.Hasher
	case row < o.Memory:
		return ChipletBitwise, row - o.Bitwise
	case row < o.KernelRom:
		return ChipletMemory, row - o.Memory
	case row < o.RangeCheck:
		return ChipletKernelRom, row - o.KernelRom
	case row < o.AceRead:
		return ChipletRangeCheck, row - o.RangeCheck
	case row < o.AceEval:
		return ChipletAceRead, row - o.AceRead
	case row < o.Total:
		return ChipletAceEval, row - o.AceEval
	default:
		return ChipletNone, -1
	}
}
