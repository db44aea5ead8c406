package processor

import "github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"

// FmpMin and FmpMax bound the free-memory-pointer column; FmpAdd and
// FmpUpdate fail if the update would leave this range.
const (
	FmpMin uint64 = 1 << 30
	FmpMax uint64 = (1 << 32) - 1
)

// System holds the columns every row of the trace carries regardless of
// which op is executing: the clock, free-memory pointer, execution
// context, the digest of the function currently running, and whether
// execution is inside a syscall.
type System struct {
	Clk       uint64
	Fmp       uint64
	Ctx       uint32
	FnHash    core.Digest
	InSyscall bool

	nextCtx uint32
}

// NewSystem returns the system columns' initial state: clk=0, fmp at its
// floor, ctx=0 (the root context), not in a syscall.
func NewSystem() *System {
	return &System{Fmp: FmpMin, nextCtx: 1}
}

// Tick advances the clock by one, the total order every op participates
// in.
func (s *System) Tick() { s.Clk++ }

// AllocCtx returns a fresh execution context from the monotonic counter
// Call/SysCall/Dyncall allocate on entry.
func (s *System) AllocCtx() uint32 {
	c := s.nextCtx
	s.nextCtx++
	return c
}

// ctxFrame is what Call/SysCall/Dyncall snapshot onto the block-stack
// row before switching, and restore on the matching end row.
type ctxFrame struct {
	Ctx       uint32
	Fmp       uint64
	InSyscall bool
	FnHash    core.Digest
}

func (s *System) snapshot() ctxFrame {
	return ctxFrame{Ctx: s.Ctx, Fmp: s.Fmp, InSyscall: s.InSyscall, FnHash: s.FnHash}
}

func (s *System) restore(f ctxFrame) {
	s.Ctx, s.Fmp, s.InSyscall, s.FnHash = f.Ctx, f.Fmp, f.InSyscall, f.FnHash
}
