package chiplets

import (
	"testing"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

func TestRangeCheckerAccumulatesMultiplicity(t *testing.T) {
	r := NewRangeChecker()
	r.Lookup(5)
	r.Lookup(5)
	r.Lookup(7)
	rows := r.GenerateTrace()
	if len(rows) != 2 {
		t.Fatalf("expected 2 distinct values, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Value == 5 && row.Multiplicity != 2 {
			t.Fatalf("value 5 should have multiplicity 2, got %d", row.Multiplicity)
		}
		if row.Value == 7 && row.Multiplicity != 1 {
			t.Fatalf("value 7 should have multiplicity 1, got %d", row.Multiplicity)
		}
	}
}

func TestRangeCheckerGenerateTraceSortedByValue(t *testing.T) {
	r := NewRangeChecker()
	r.Lookup(30)
	r.Lookup(10)
	r.Lookup(20)
	rows := r.GenerateTrace()
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Value > rows[i].Value {
			t.Fatalf("rows should be sorted by value")
		}
	}
}

func TestRangeCheckerEventsPreserveRequestOrder(t *testing.T) {
	r := NewRangeChecker()
	r.Lookup(3)
	r.Lookup(1)
	r.Lookup(2)
	events := r.Events()
	want := []uint16{3, 1, 2}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, v := range want {
		if events[i] != v {
			t.Fatalf("event %d: got %d, want %d", i, events[i], v)
		}
	}
}

func TestLookupFeltTruncatesToLow16Bits(t *testing.T) {
	r := NewRangeChecker()
	r.LookupFelt(core.NewFelt(1<<16 | 42))
	events := r.Events()
	if len(events) != 1 || events[0] != 42 {
		t.Fatalf("expected a single lookup of 42, got %v", events)
	}
}
