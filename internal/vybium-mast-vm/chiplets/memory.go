// Package chiplets implements the processor's co-processors: memory,
// hasher, bitwise, kernel ROM, ACE, and the range checker. Each
// accumulates access events during execution, then GenerateTrace
// materialises a fixed-width region that the trace assembly concatenates
// after the decoder's rows.
package chiplets

import (
	"fmt"
	"sort"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// MemoryError covers every memory-chiplet failure: out-of-bounds
// addresses, unaligned word access, and conflicting same-cycle accesses.
type MemoryError struct {
	Reason string
	Ctx    uint32
	Addr   uint32
	Clk    uint64
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory: %s (ctx=%d addr=%d clk=%d)", e.Reason, e.Ctx, e.Addr, e.Clk)
}

// accessKind distinguishes reads from writes for same-cycle conflict
// checking.
type accessKind uint8

const (
	accessRead accessKind = iota
	accessWrite
)

// access is one memory event, recorded in execution order before being
// sorted into (ctx, addr, clk) trace order.
type access struct {
	Ctx    uint32
	Addr   uint32
	Clk    uint64
	Kind   accessKind
	Before core.Felt
	After  core.Felt
}

// Memory is the word/element-addressed memory chiplet. Its per-row delta
// witnesses are fed into rc as 16-bit limbs when the trace materialises.
type Memory struct {
	cells   map[memKey]core.Felt
	log     []access
	seenClk map[clkKey]bool
	rc      *RangeChecker
}

type memKey struct {
	ctx  uint32
	addr uint32
}

type clkKey struct {
	ctx  uint32
	addr uint32
	clk  uint64
}

// New returns an empty memory chiplet; every cell reads as zero until
// written. Delta limbs computed during GenerateTrace are registered with
// rc, which may be nil in unit tests that don't assemble a full trace.
func New(rc *RangeChecker) *Memory {
	return &Memory{
		cells:   make(map[memKey]core.Felt),
		seenClk: make(map[clkKey]bool),
		rc:      rc,
	}
}

func (m *Memory) checkAligned(addr uint32) error {
	if addr%4 != 0 {
		return &MemoryError{Reason: "unaligned word access", Addr: addr}
	}
	return nil
}

// checkTemporal enforces the one-access-per-cycle rule: within a single
// clock cycle the same (ctx, addr) admits a single access. A write's row
// already carries both the before and after value, so a read-modify-write
// is one event, not two.
func (m *Memory) checkTemporal(ctx, addr uint32, clk uint64, kind accessKind) error {
	key := clkKey{ctx, addr, clk}
	if m.seenClk[key] {
		return &MemoryError{Reason: "illegal memory access: conflicting access at same clock", Ctx: ctx, Addr: addr, Clk: clk}
	}
	m.seenClk[key] = true
	return nil
}

// ReadElement reads one field element at (ctx, addr), returning zero for
// an unset cell.
func (m *Memory) ReadElement(ctx, addr uint32, clk uint64) (core.Felt, error) {
	if err := m.checkTemporal(ctx, addr, clk, accessRead); err != nil {
		return core.Felt{}, err
	}
	v := m.cells[memKey{ctx, addr}]
	m.log = append(m.log, access{Ctx: ctx, Addr: addr, Clk: clk, Kind: accessRead, Before: v, After: v})
	return v, nil
}

// WriteElement writes one field element at (ctx, addr).
func (m *Memory) WriteElement(ctx, addr uint32, clk uint64, v core.Felt) error {
	if err := m.checkTemporal(ctx, addr, clk, accessWrite); err != nil {
		return err
	}
	key := memKey{ctx, addr}
	before := m.cells[key]
	m.cells[key] = v
	m.log = append(m.log, access{Ctx: ctx, Addr: addr, Clk: clk, Kind: accessWrite, Before: before, After: v})
	return nil
}

// ReadWord reads a full Word at (ctx, addr); addr must be 4-aligned.
func (m *Memory) ReadWord(ctx, addr uint32, clk uint64) (core.Word, error) {
	if err := m.checkAligned(addr); err != nil {
		return core.Word{}, err
	}
	var w core.Word
	for i := 0; i < 4; i++ {
		v, err := m.ReadElement(ctx, addr+uint32(i), clk)
		if err != nil {
			return core.Word{}, err
		}
		w[i] = v
	}
	return w, nil
}

// WriteWord writes a full Word at (ctx, addr); addr must be 4-aligned.
func (m *Memory) WriteWord(ctx, addr uint32, clk uint64, w core.Word) error {
	if err := m.checkAligned(addr); err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		if err := m.WriteElement(ctx, addr+uint32(i), clk, w[i]); err != nil {
			return err
		}
	}
	return nil
}

// Row is one materialised trace row. Each consecutive pair of accesses
// contributes a discriminant, the first nonzero of (ctx delta, addr
// delta, clk delta minus one), split into 16-bit limbs for the range
// checker, plus its inverse so a transition constraint can prove the
// (ctx, addr, clk) tuple strictly increased.
type Row struct {
	Ctx, Addr uint32
	Clk       uint64
	Value     core.Felt
	IsWrite   bool
	DeltaLo   uint16
	DeltaHi   uint16
	DeltaInv  core.Felt
}

// GenerateTrace sorts the recorded accesses by (ctx, addr, clk), computes
// each consecutive pair's discriminant limbs and inverse, and registers
// the limbs with the range checker.
func (m *Memory) GenerateTrace() []Row {
	sorted := append([]access(nil), m.log...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Ctx != b.Ctx {
			return a.Ctx < b.Ctx
		}
		if a.Addr != b.Addr {
			return a.Addr < b.Addr
		}
		return a.Clk < b.Clk
	})

	rows := make([]Row, len(sorted))
	for i, a := range sorted {
		row := Row{Ctx: a.Ctx, Addr: a.Addr, Clk: a.Clk, Value: a.After, IsWrite: a.Kind == accessWrite}
		if i+1 < len(sorted) {
			b := sorted[i+1]
			var discriminant uint64
			switch {
			case b.Ctx != a.Ctx:
				discriminant = uint64(b.Ctx - a.Ctx)
			case b.Addr != a.Addr:
				discriminant = uint64(b.Addr - a.Addr)
			case b.Clk > a.Clk:
				discriminant = b.Clk - a.Clk - 1
			}
			row.DeltaLo = uint16(discriminant)
			row.DeltaHi = uint16(discriminant >> 16)
			if m.rc != nil {
				m.rc.Lookup(row.DeltaLo)
				m.rc.Lookup(row.DeltaHi)
			}
			d := core.NewFelt(discriminant)
			if !d.IsZero() {
				inv, _ := d.Inv()
				row.DeltaInv = inv
			}
		}
		rows[i] = row
	}
	return rows
}
