package chiplets

import (
	"sort"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// RangeCheckRow is one row of the range-check table: a 16-bit value and
// the number of times any consumer looked it up.
type RangeCheckRow struct {
	Value        uint16
	Multiplicity uint64
}

// RangeChecker collects every 16-bit value needed by the memory chiplet
// and the u32 ops, with a multiplicity column enforced against consumers
// by a LogUp relation.
type RangeChecker struct {
	counts map[uint16]uint64
	events []uint16
}

// NewRangeChecker returns an empty range checker.
func NewRangeChecker() *RangeChecker {
	return &RangeChecker{counts: make(map[uint16]uint64)}
}

// Lookup records one 16-bit value lookup from a consumer (memory chiplet
// deltas, u32 op witnesses). Individual events are retained, not just
// their aggregated multiplicity, so the bus builder can build the
// consumer side of the LogUp identity independently of the table side.
func (r *RangeChecker) Lookup(v uint16) {
	r.counts[v]++
	r.events = append(r.events, v)
}

// Events returns every individual lookup in request order.
func (r *RangeChecker) Events() []uint16 { return append([]uint16(nil), r.events...) }

// LookupFelt records a lookup whose value is carried as a Felt already
// known to fit in 16 bits (callers are responsible for the range
// invariant; the AIR's boundary constraints enforce it over the trace).
func (r *RangeChecker) LookupFelt(v core.Felt) {
	r.Lookup(uint16(v.Uint64()))
}

// GenerateTrace returns one row per distinct value looked up, sorted by
// value, with its accumulated multiplicity.
func (r *RangeChecker) GenerateTrace() []RangeCheckRow {
	rows := make([]RangeCheckRow, 0, len(r.counts))
	for v, m := range r.counts {
		rows = append(rows, RangeCheckRow{Value: v, Multiplicity: m})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Value < rows[j].Value })
	return rows
}
