package processor

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/chiplets"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

func (p *Processor) dispatchSystem(op mast.Op) error {
	switch op.Code {
	case mast.OpNoop, mast.OpHalt:
		return nil
	case mast.OpAssert:
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		if !v.IsOne() {
			return newErr(KindAssertionFailed, p.Sys.Clk, nil, "assertion failed with code %s", op.Imm)
		}
		return nil
	case mast.OpFmpAdd:
		return p.fmpShift(op.Imm)
	case mast.OpFmpUpdate:
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		return p.fmpShift(v)
	case mast.OpClk:
		p.Stack.Push(p.Sys.Clk, core.NewFelt(p.Sys.Clk))
		return nil
	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled system op %s", op.Code)
	}
}

// fmpShift applies a field-element delta to the free-memory pointer.
// Values above p/2 act as negative offsets, so fmp can shrink as well as
// grow; either way the result must stay within [FmpMin, FmpMax].
func (p *Processor) fmpShift(delta core.Felt) error {
	var next uint64
	if v := delta.Uint64(); v > core.Modulus/2 {
		next = p.Sys.Fmp - (core.Modulus - v)
	} else {
		next = p.Sys.Fmp + v
	}
	if next < FmpMin || next > FmpMax {
		return newErr(KindMemoryError, p.Sys.Clk, nil, "fmp update out of [%d, %d]", FmpMin, FmpMax)
	}
	p.Sys.Fmp = next
	return nil
}

func (p *Processor) dispatchStack(op mast.Op) error {
	switch op.Code {
	case mast.OpPad:
		p.Stack.Push(p.Sys.Clk, core.ZeroFelt())
	case mast.OpDrop:
		_, err := p.Stack.Pop(p.Sys.Clk)
		return err
	case mast.OpDup:
		i := int(op.Imm.Uint64())
		v, err := p.Stack.Get(i)
		if err != nil {
			return err
		}
		p.Stack.Push(p.Sys.Clk, v)
	case mast.OpSwap:
		return p.swapRange(0, 1)
	case mast.OpSwapW:
		return p.swapWords(0, 1)
	case mast.OpSwapDW:
		return p.swapRange(0, 8)
	case mast.OpMovUp:
		return p.moveToTop(int(op.Imm.Uint64()))
	case mast.OpMovDn:
		return p.moveFromTop(int(op.Imm.Uint64()))
	case mast.OpCSwap:
		return p.condSwap(1)
	case mast.OpCSwapW:
		return p.condSwap(4)
	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled stack op %s", op.Code)
	}
	return nil
}

// swapRange exchanges the n elements starting at a with the n elements
// starting at b (used for Swap and SwapDW, whose n and offsets differ).
func (p *Processor) swapRange(a, b int) error {
	n := 1
	if b == 8 {
		n = 8
	}
	for k := 0; k < n; k++ {
		va, err := p.Stack.Get(a + k)
		if err != nil {
			return err
		}
		vb, err := p.Stack.Get(b + k)
		if err != nil {
			return err
		}
		if err := p.Stack.Set(a+k, vb); err != nil {
			return err
		}
		if err := p.Stack.Set(b+k, va); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) swapWords(wa, wb int) error {
	for k := 0; k < 4; k++ {
		a, b := wa*4+k, wb*4+k
		va, err := p.Stack.Get(a)
		if err != nil {
			return err
		}
		vb, err := p.Stack.Get(b)
		if err != nil {
			return err
		}
		if err := p.Stack.Set(a, vb); err != nil {
			return err
		}
		if err := p.Stack.Set(b, va); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) moveToTop(i int) error {
	v, err := p.Stack.Get(i)
	if err != nil {
		return err
	}
	for k := i; k > 0; k-- {
		prev, err := p.Stack.Get(k - 1)
		if err != nil {
			return err
		}
		if err := p.Stack.Set(k, prev); err != nil {
			return err
		}
	}
	return p.Stack.Set(0, v)
}

func (p *Processor) moveFromTop(i int) error {
	v, err := p.Stack.Get(0)
	if err != nil {
		return err
	}
	for k := 0; k < i; k++ {
		next, err := p.Stack.Get(k + 1)
		if err != nil {
			return err
		}
		if err := p.Stack.Set(k, next); err != nil {
			return err
		}
	}
	return p.Stack.Set(i, v)
}

func (p *Processor) condSwap(width int) error {
	cond, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	if !cond.IsZero() && !cond.IsOne() {
		return newErr(KindNotBinaryValue, p.Sys.Clk, nil, "cswap condition is not binary")
	}
	if cond.IsOne() {
		for k := 0; k < width; k++ {
			a, err := p.Stack.Get(k)
			if err != nil {
				return err
			}
			b, err := p.Stack.Get(width + k)
			if err != nil {
				return err
			}
			if err := p.Stack.Set(k, b); err != nil {
				return err
			}
			if err := p.Stack.Set(width+k, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) dispatchField(op mast.Op) error {
	switch op.Code {
	case mast.OpAdd:
		return p.binFelt(func(a, b core.Felt) core.Felt { return a.Add(b) })
	case mast.OpMul:
		return p.binFelt(func(a, b core.Felt) core.Felt { return a.Mul(b) })
	case mast.OpNeg:
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		p.Stack.Push(p.Sys.Clk, v.Neg())
		return nil
	case mast.OpInv:
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		inv, err := v.Inv()
		if err != nil {
			return newErr(KindDivideByZero, p.Sys.Clk, nil, "inv of zero")
		}
		p.Stack.Push(p.Sys.Clk, inv)
		return nil
	case mast.OpEq:
		return p.binFelt(func(a, b core.Felt) core.Felt {
			if a.Equal(b) {
				return core.OneFelt()
			}
			return core.ZeroFelt()
		})
	case mast.OpEqz:
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		if v.IsZero() {
			p.Stack.Push(p.Sys.Clk, core.OneFelt())
		} else {
			p.Stack.Push(p.Sys.Clk, core.ZeroFelt())
		}
		return nil
	case mast.OpExpacc:
		bit, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		base, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		acc, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		if !bit.IsZero() && !bit.IsOne() {
			return newErr(KindNotBinaryValue, p.Sys.Clk, nil, "expacc bit is not binary")
		}
		if bit.IsOne() {
			acc = acc.Mul(base)
		}
		p.Stack.Push(p.Sys.Clk, base.Square())
		p.Stack.Push(p.Sys.Clk, acc)
		return nil
	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled field op %s", op.Code)
	}
}

func (p *Processor) binFelt(f func(a, b core.Felt) core.Felt) error {
	b, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	a, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	p.Stack.Push(p.Sys.Clk, f(a, b))
	return nil
}

func (p *Processor) dispatchU32(op mast.Op) error {
	switch op.Code {
	case mast.OpU32split:
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		lo, hi := v.SplitU32()
		p.Range.Lookup(uint16(lo))
		p.Range.Lookup(uint16(lo >> 16))
		p.Range.Lookup(uint16(hi))
		p.Range.Lookup(uint16(hi >> 16))
		p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(hi)))
		p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(lo)))
		return nil
	case mast.OpU32add:
		return p.u32Pair(func(a, b uint32) (lo, hi uint64) {
			sum := uint64(a) + uint64(b)
			return sum & 0xFFFFFFFF, sum >> 32
		})
	case mast.OpU32sub:
		return p.u32Pair(func(a, b uint32) (lo, hi uint64) {
			if a >= b {
				return uint64(a - b), 0
			}
			return uint64(a-b) & 0xFFFFFFFF, 1
		})
	case mast.OpU32mul:
		return p.u32Pair(func(a, b uint32) (lo, hi uint64) {
			prod := uint64(a) * uint64(b)
			return prod & 0xFFFFFFFF, prod >> 32
		})
	case mast.OpU32div:
		b, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		a, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		divisor := uint32(b.Uint64())
		if divisor == 0 {
			return newErr(KindDivideByZero, p.Sys.Clk, nil, "u32div by zero")
		}
		dividend := uint32(a.Uint64())
		p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(dividend%divisor)))
		p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(dividend/divisor)))
		return nil
	case mast.OpU32and:
		return p.u32Bitwise(chiplets.BitwiseAnd)
	case mast.OpU32xor:
		return p.u32Bitwise(chiplets.BitwiseXor)
	case mast.OpU32lt:
		return p.u32Cmp(func(a, b uint32) bool { return a < b })
	case mast.OpU32lte:
		return p.u32Cmp(func(a, b uint32) bool { return a <= b })
	case mast.OpU32gt:
		return p.u32Cmp(func(a, b uint32) bool { return a > b })
	case mast.OpU32gte:
		return p.u32Cmp(func(a, b uint32) bool { return a >= b })
	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled u32 op %s", op.Code)
	}
}

func (p *Processor) u32Pair(f func(a, b uint32) (lo, hi uint64)) error {
	b, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	a, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	lo, hi := f(uint32(a.Uint64()), uint32(b.Uint64()))
	p.Range.Lookup(uint16(lo))
	p.Range.Lookup(uint16(lo >> 16))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(hi))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(lo))
	return nil
}

func (p *Processor) u32Bitwise(kind chiplets.BitwiseOp) error {
	b, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	a, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	out := p.Bitwise.Eval(kind, uint32(a.Uint64()), uint32(b.Uint64()))
	p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(out)))
	return nil
}

func (p *Processor) u32Cmp(f func(a, b uint32) bool) error {
	b, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	a, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return err
	}
	if f(uint32(a.Uint64()), uint32(b.Uint64())) {
		p.Stack.Push(p.Sys.Clk, core.OneFelt())
	} else {
		p.Stack.Push(p.Sys.Clk, core.ZeroFelt())
	}
	return nil
}
