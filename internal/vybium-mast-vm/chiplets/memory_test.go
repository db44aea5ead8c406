package chiplets

import (
	"testing"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

func TestMemoryReadUnsetCellIsZero(t *testing.T) {
	m := New(nil)
	v, err := m.ReadElement(0, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsZero() {
		t.Fatalf("unset cell should read as zero, got %s", v)
	}
}

func TestMemoryWriteReadRoundTrip(t *testing.T) {
	m := New(nil)
	if err := m.WriteElement(0, 4, 1, core.NewFelt(99)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := m.ReadElement(0, 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Equal(core.NewFelt(99)) {
		t.Fatalf("got %s, want 99", v)
	}
}

func TestMemoryWordReadWriteRoundTrip(t *testing.T) {
	m := New(nil)
	w := core.Word{core.NewFelt(1), core.NewFelt(2), core.NewFelt(3), core.NewFelt(4)}
	if err := m.WriteWord(0, 0, 1, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.ReadWord(0, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(w) {
		t.Fatalf("got %s, want %s", got, w)
	}
}

func TestMemoryWordAccessRejectsUnaligned(t *testing.T) {
	m := New(nil)
	if _, err := m.ReadWord(0, 1, 0); err == nil {
		t.Fatalf("expected error reading an unaligned word address")
	}
	if err := m.WriteWord(0, 2, 0, core.Word{}); err == nil {
		t.Fatalf("expected error writing an unaligned word address")
	}
}

func TestMemoryContextsAreIsolated(t *testing.T) {
	m := New(nil)
	if err := m.WriteElement(1, 0, 0, core.NewFelt(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := m.ReadElement(2, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsZero() {
		t.Fatalf("a different context should not see another context's write, got %s", v)
	}
}

func TestMemoryRejectsConflictingAccessAtSameClock(t *testing.T) {
	m := New(nil)
	if err := m.WriteElement(0, 0, 5, core.NewFelt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.WriteElement(0, 0, 5, core.NewFelt(2)); err == nil {
		t.Fatalf("expected error: two writes to the same cell at the same clock")
	}
}

func TestMemoryRejectsReadAfterWriteAtSameClock(t *testing.T) {
	m := New(nil)
	if err := m.WriteElement(0, 0, 5, core.NewFelt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.ReadElement(0, 0, 5); err == nil {
		t.Fatalf("expected error: read of a cell already accessed at the same clock")
	}
}

func TestMemoryDistinctCellsShareAClockFreely(t *testing.T) {
	m := New(nil)
	if err := m.WriteElement(0, 0, 5, core.NewFelt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.WriteElement(0, 1, 5, core.NewFelt(2)); err != nil {
		t.Fatalf("distinct addresses at the same clock should not conflict: %v", err)
	}
	if err := m.WriteElement(1, 0, 5, core.NewFelt(3)); err != nil {
		t.Fatalf("distinct contexts at the same clock should not conflict: %v", err)
	}
}

func TestMemoryGenerateTraceFeedsDeltaLimbsToRangeChecker(t *testing.T) {
	rc := NewRangeChecker()
	m := New(rc)
	_ = m.WriteElement(0, 0, 1, core.NewFelt(1))
	_ = m.WriteElement(0, 0, 10, core.NewFelt(2))
	rows := m.GenerateTrace()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Clock delta discriminant is 10 - 1 - 1 = 8, split as limbs (8, 0).
	if rows[0].DeltaLo != 8 || rows[0].DeltaHi != 0 {
		t.Fatalf("delta limbs = (%d, %d), want (8, 0)", rows[0].DeltaLo, rows[0].DeltaHi)
	}
	events := rc.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 range-check events (one per limb), got %d", len(events))
	}
}

func TestMemoryGenerateTraceSortsByCtxAddrClk(t *testing.T) {
	m := New(nil)
	_ = m.WriteElement(1, 8, 3, core.NewFelt(1))
	_ = m.WriteElement(0, 4, 5, core.NewFelt(2))
	_ = m.WriteElement(0, 0, 1, core.NewFelt(3))

	rows := m.GenerateTrace()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		a, b := rows[i-1], rows[i]
		less := a.Ctx < b.Ctx ||
			(a.Ctx == b.Ctx && a.Addr < b.Addr) ||
			(a.Ctx == b.Ctx && a.Addr == b.Addr && a.Clk < b.Clk)
		if !less {
			t.Fatalf("rows not sorted by (ctx, addr, clk) at index %d: %+v then %+v", i, a, b)
		}
	}
}

func TestMemoryGenerateTraceDeltaInvNonzeroForDistinctKeys(t *testing.T) {
	m := New(nil)
	_ = m.WriteElement(0, 0, 0, core.NewFelt(1))
	_ = m.WriteElement(0, 4, 0, core.NewFelt(2))
	rows := m.GenerateTrace()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DeltaInv.IsZero() {
		t.Fatalf("DeltaInv should be nonzero when the discriminant advances across a row boundary")
	}
}
