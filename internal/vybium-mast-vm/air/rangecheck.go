package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// RangeCheckBoundary asserts the table is sorted by value with no
// duplicates and every multiplicity is positive.
func RangeCheckBoundary(tr *trace.Trace) []Assertion {
	var out []Assertion
	rows := tr.RangeCheck
	for i := 1; i < len(rows); i++ {
		if rows[i].Value <= rows[i-1].Value {
			out = append(out, Assertion{Row: i, Label: "range_check_strictly_sorted", Value: core.NewFelt(1)})
		}
	}
	for i, r := range rows {
		if r.Multiplicity == 0 {
			out = append(out, Assertion{Row: i, Label: "range_check_nonzero_multiplicity", Value: core.NewFelt(1)})
		}
	}
	return out
}

// RangeCheckTransition has no cross-row relation beyond the
// sorted-order boundary check above; the LogUp identity against
// consumers lives in bus.go, since it spans the range-check table and
// every chiplet that requested a lookup.
func RangeCheckTransition(tr *trace.Trace, row int) []core.Felt { return nil }
