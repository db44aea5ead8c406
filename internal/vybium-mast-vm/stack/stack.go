// Package stack implements the 16-wide operand stack and its overflow
// spill table: a fixed-width fast region exposed as trace columns plus an
// auxiliary spill region addressed by clock. Logical depth never drops
// below 16; shifts past the overflow table pull zeros from the implicit
// bottom.
package stack

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// fastDepth is the number of positions exposed as columns in the main
// trace.
const fastDepth = 16

// OverflowRow records one spill interaction as (clk, parent_clk, value),
// letting the auxiliary trace build a multi-set column over spills.
type OverflowRow struct {
	Clk       uint64
	ParentClk uint64
	Value     core.Felt
}

// Stack is the operand stack: conceptually infinite, physically 16 fast
// positions plus an overflow spill table.
type Stack struct {
	fast     [fastDepth]core.Felt
	overflow []core.Felt // logical values below position 15, top-of-overflow last
	rows     []OverflowRow
	lastClk  []uint64 // clk at which each overflow entry was pushed, parallel to overflow
	saved    []overflowFrame
}

// overflowFrame is a caller's hidden spill region while a call executes in
// its own stack context.
type overflowFrame struct {
	overflow []core.Felt
	lastClk  []uint64
}

// New returns a stack of depth exactly 16, all zero: the initial state
// before stack inputs are loaded.
func New() *Stack {
	return &Stack{}
}

// Depth returns the current logical depth; always >= 16.
func (s *Stack) Depth() int { return fastDepth + len(s.overflow) }

// PushOverflowContext hides the current overflow table, starting the
// fresh, depth-16 stack context a call executes in. The fast positions
// carry over so the callee sees the caller's top 16 values.
func (s *Stack) PushOverflowContext() {
	s.saved = append(s.saved, overflowFrame{overflow: s.overflow, lastClk: s.lastClk})
	s.overflow = nil
	s.lastClk = nil
}

// PopOverflowContext restores the overflow table hidden by the matching
// PushOverflowContext. Any spill the callee left behind is discarded;
// callers check Depth() == 16 before restoring.
func (s *Stack) PopOverflowContext() {
	f := s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
	s.overflow = f.overflow
	s.lastClk = f.lastClk
}

// Get returns the value at logical position i (0 = top), i < Depth().
func (s *Stack) Get(i int) (core.Felt, error) {
	if i < 0 || i >= s.Depth() {
		return core.Felt{}, fmt.Errorf("stack: position %d out of range (depth %d)", i, s.Depth())
	}
	if i < fastDepth {
		return s.fast[i], nil
	}
	return s.overflow[len(s.overflow)-1-(i-fastDepth)], nil
}

// Set overwrites the value at logical position i, i < Depth().
func (s *Stack) Set(i int, v core.Felt) error {
	if i < 0 || i >= s.Depth() {
		return fmt.Errorf("stack: position %d out of range (depth %d)", i, s.Depth())
	}
	if i < fastDepth {
		s.fast[i] = v
		return nil
	}
	s.overflow[len(s.overflow)-1-(i-fastDepth)] = v
	return nil
}

// Push inserts v at position 0, shifting everything else down by one.
// Equivalent to shiftRight(1) with the incoming value supplied, so it
// always appends exactly one overflow row.
func (s *Stack) Push(clk uint64, v core.Felt) {
	s.shiftRightBy(clk, 1, []core.Felt{v})
}

// Pop removes and returns position 0, shifting everything else up by one.
func (s *Stack) Pop(clk uint64) (core.Felt, error) {
	top, err := s.Get(0)
	if err != nil {
		return core.Felt{}, err
	}
	s.shiftLeftBy(clk, 1)
	return top, nil
}

// ShiftLeft moves the top n elements off the fast region, pulling n values
// up from the overflow table (or zero, past the implicit bottom) to
// refill position 15 downward.
func (s *Stack) ShiftLeft(clk uint64, n int) {
	s.shiftLeftBy(clk, n)
}

// ShiftRight pushes n new values onto the top, spilling n values off
// position 15 into the overflow table.
func (s *Stack) ShiftRight(clk uint64, values []core.Felt) {
	s.shiftRightBy(clk, len(values), values)
}

func (s *Stack) shiftLeftBy(clk uint64, n int) {
	for i := 0; i < n; i++ {
		// Shift fast[0..14] each up one slot; fast[15] is refilled from
		// the overflow table's top, or zero if none remains.
		for j := 0; j < fastDepth-1; j++ {
			s.fast[j] = s.fast[j+1]
		}
		if len(s.overflow) > 0 {
			s.fast[fastDepth-1] = s.overflow[len(s.overflow)-1]
			parentClk := s.lastClk[len(s.lastClk)-1]
			s.overflow = s.overflow[:len(s.overflow)-1]
			s.lastClk = s.lastClk[:len(s.lastClk)-1]
			s.rows = append(s.rows, OverflowRow{Clk: clk, ParentClk: parentClk, Value: s.fast[fastDepth-1]})
		} else {
			s.fast[fastDepth-1] = core.ZeroFelt()
		}
	}
}

func (s *Stack) shiftRightBy(clk uint64, n int, incoming []core.Felt) {
	for i := 0; i < n; i++ {
		spilled := s.fast[fastDepth-1]
		for j := fastDepth - 1; j > 0; j-- {
			s.fast[j] = s.fast[j-1]
		}
		s.fast[0] = incoming[i]
		s.overflow = append(s.overflow, spilled)
		s.lastClk = append(s.lastClk, clk)
		s.rows = append(s.rows, OverflowRow{Clk: clk, ParentClk: 0, Value: spilled})
	}
}

// OverflowRows returns the recorded spill interactions in chronological
// order, the witness for the auxiliary multiset column over spills.
func (s *Stack) OverflowRows() []OverflowRow { return append([]OverflowRow(nil), s.rows...) }

// OverflowValues returns the current logical overflow remainder, the
// entry at position 16 first and the deepest last, reported alongside the
// fast positions as the run's stack outputs.
func (s *Stack) OverflowValues() []core.Felt {
	out := make([]core.Felt, len(s.overflow))
	for i, v := range s.overflow {
		out[len(s.overflow)-1-i] = v
	}
	return out
}

// Top16 returns a snapshot of the 16 fast positions, used both for the
// main trace's stack columns and for reporting final stack outputs.
func (s *Stack) Top16() [16]core.Felt { return s.fast }

// LoadInputs initializes the fast region from a vector of at most 16
// Felt; the first declared input ends up deepest.
func LoadInputs(inputs []core.Felt) (*Stack, error) {
	if len(inputs) > fastDepth {
		return nil, fmt.Errorf("stack: at most %d stack inputs allowed, got %d", fastDepth, len(inputs))
	}
	s := New()
	for i, v := range inputs {
		// inputs[0] is deepest: position (len-1-i) from the top.
		s.fast[len(inputs)-1-i] = v
	}
	return s, nil
}
