package processor

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/chiplets"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/stack"
)

// Processor owns all execution state: the system columns, the operand
// stack, and the chiplets, and dispatches basic-block ops against them.
// There is no ambient state; the processor is the single writer of every
// chiplet.
type Processor struct {
	Sys     *System
	Stack   *stack.Stack
	Mem     *chiplets.Memory
	Hasher  *chiplets.Hasher
	Bitwise *chiplets.Bitwise
	Range   *chiplets.RangeChecker
	Kernel  *chiplets.KernelRom
	Ace     *chiplets.Ace
	Host    *AdviceProvider

	maxCycles uint64
}

// Result is what a successful Execute returns: the final state of the 16
// fast stack positions plus any declared overflow remainder.
type Result struct {
	Top16    [16]core.Felt
	Overflow []core.Felt
}

// New builds a processor ready to run, with stack initialized from
// stackInputs. The memory chiplet shares the range checker so its delta
// witnesses land in the lookup table at trace time.
func New(stackInputs []core.Felt, host *AdviceProvider, kernelDigests []core.Digest, maxCycles uint64) (*Processor, error) {
	st, err := stack.LoadInputs(stackInputs)
	if err != nil {
		return nil, err
	}
	rc := chiplets.NewRangeChecker()
	return &Processor{
		Sys:       NewSystem(),
		Stack:     st,
		Mem:       chiplets.New(rc),
		Hasher:    chiplets.NewHasher(),
		Bitwise:   chiplets.NewBitwise(),
		Range:     rc,
		Kernel:    chiplets.NewKernelRom(kernelDigests),
		Ace:       chiplets.NewAce(),
		Host:      host,
		maxCycles: maxCycles,
	}, nil
}

// checkBudget fails with CycleLimitExceeded once the clock reaches the
// declared budget.
func (p *Processor) checkBudget() error {
	if p.maxCycles > 0 && p.Sys.Clk >= p.maxCycles {
		return newErr(KindCycleLimitExceeded, p.Sys.Clk, nil, "exceeded budget of %d cycles", p.maxCycles)
	}
	return nil
}

// Execute runs prog's entry node to completion or to the first error
// and reports the final stack outputs.
func Execute(prog *mast.Program, kernel *mast.Kernel, stackInputs []core.Felt, host *AdviceProvider, maxCycles uint64) (*Result, error) {
	var kernelDigests []core.Digest
	if kernel != nil {
		kernelDigests = kernel.Digests()
	}
	p, err := New(stackInputs, host, kernelDigests, maxCycles)
	if err != nil {
		return nil, err
	}
	d := NewDecoder(prog.Forest, kernel)
	if err := d.Run(p, prog.Entry); err != nil {
		return nil, err
	}
	return &Result{Top16: p.Stack.Top16(), Overflow: p.Stack.OverflowValues()}, nil
}

// dispatch executes a single op against the processor state, advancing
// the clock exactly once per call regardless of category.
func (p *Processor) dispatch(op mast.Op) error {
	defer p.Sys.Tick()
	info, err := Lookup(p.Sys.Clk, op.Code)
	if err != nil {
		return err
	}
	switch info.Category {
	case CategorySystem:
		return p.dispatchSystem(op)
	case CategoryStack:
		return p.dispatchStack(op)
	case CategoryField:
		return p.dispatchField(op)
	case CategoryU32:
		return p.dispatchU32(op)
	case CategoryIO:
		return p.dispatchIO(op)
	case CategoryCrypto:
		return p.dispatchCrypto(op)
	case CategoryExtension:
		return p.dispatchExtension(op)
	case CategoryACE:
		return p.dispatchAce(op)
	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled category for op %s", op.Code)
	}
}
