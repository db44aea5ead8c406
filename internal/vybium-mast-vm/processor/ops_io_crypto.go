package processor

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/chiplets"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

func (p *Processor) dispatchIO(op mast.Op) error {
	switch op.Code {
	case mast.OpMLoad:
		addr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		v, err := p.Mem.ReadElement(p.Sys.Ctx, uint32(addr.Uint64()), p.Sys.Clk)
		if err != nil {
			return err
		}
		p.Stack.Push(p.Sys.Clk, v)
		return nil

	case mast.OpMStore:
		addr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		return p.Mem.WriteElement(p.Sys.Ctx, uint32(addr.Uint64()), p.Sys.Clk, v)

	case mast.OpMLoadW:
		addr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		w, err := p.Mem.ReadWord(p.Sys.Ctx, uint32(addr.Uint64()), p.Sys.Clk)
		if err != nil {
			return err
		}
		for i := 3; i >= 0; i-- {
			p.Stack.Push(p.Sys.Clk, w[i])
		}
		return nil

	case mast.OpMStoreW:
		addr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		var w core.Word
		for i := 0; i < 4; i++ {
			v, err := p.Stack.Pop(p.Sys.Clk)
			if err != nil {
				return err
			}
			w[i] = v
		}
		return p.Mem.WriteWord(p.Sys.Ctx, uint32(addr.Uint64()), p.Sys.Clk, w)

	case mast.OpMStream:
		addr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		base := uint32(addr.Uint64())
		for w := 0; w < 2; w++ {
			word, err := p.Mem.ReadWord(p.Sys.Ctx, base+uint32(w*4), p.Sys.Clk)
			if err != nil {
				return err
			}
			for i := 3; i >= 0; i-- {
				p.Stack.Push(p.Sys.Clk, word[i])
			}
		}
		p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(base+8)))
		return nil

	case mast.OpPipe:
		addr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		base := uint32(addr.Uint64())
		for w := 0; w < 2; w++ {
			word, err := p.Host.PopWord(p.Sys.Clk)
			if err != nil {
				return err
			}
			if err := p.Mem.WriteWord(p.Sys.Ctx, base+uint32(w*4), p.Sys.Clk, word); err != nil {
				return err
			}
		}
		p.Stack.Push(p.Sys.Clk, core.NewFelt(uint64(base+8)))
		return nil

	case mast.OpAdvPop:
		v, err := p.Host.PopFelt(p.Sys.Clk)
		if err != nil {
			return err
		}
		p.Stack.Push(p.Sys.Clk, v)
		return nil

	case mast.OpAdvPopW:
		w, err := p.Host.PopWord(p.Sys.Clk)
		if err != nil {
			return err
		}
		for i := 3; i >= 0; i-- {
			p.Stack.Push(p.Sys.Clk, w[i])
		}
		return nil

	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled io op %s", op.Code)
	}
}

// authPath supplies the authentication path a merkle op consumes: from
// the host's Merkle store when a tree is registered under root, else one
// digest per level off the advice tape.
func (p *Processor) authPath(root core.Digest, index uint64, depth int) ([]core.Digest, error) {
	if p.Host.HasMerkleTree(root) {
		_, path, err := p.Host.MerklePath(p.Sys.Clk, root, int(index))
		if err != nil {
			return nil, err
		}
		if len(path) != depth {
			return nil, newErr(KindAdviceError, p.Sys.Clk, nil, "merkle path depth %d does not match declared depth %d", len(path), depth)
		}
		return path, nil
	}
	path := make([]core.Digest, depth)
	for i := range path {
		w, err := p.Host.PopWord(p.Sys.Clk)
		if err != nil {
			return nil, err
		}
		path[i] = w.AsDigest()
	}
	return path, nil
}

func (p *Processor) popWord() (core.Word, error) {
	var w core.Word
	for i := 0; i < 4; i++ {
		v, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return core.Word{}, err
		}
		w[i] = v
	}
	return w, nil
}

func (p *Processor) pushWord(w core.Word) {
	for i := 3; i >= 0; i-- {
		p.Stack.Push(p.Sys.Clk, w[i])
	}
}

func (p *Processor) dispatchCrypto(op mast.Op) error {
	switch op.Code {
	case mast.OpHPerm:
		var state [core.SpongeWidth]core.Felt
		for i := core.SpongeWidth - 1; i >= 0; i-- {
			v, err := p.Stack.Pop(p.Sys.Clk)
			if err != nil {
				return err
			}
			state[i] = v
		}
		out := p.Hasher.Permute(state)
		for i := 0; i < core.SpongeWidth; i++ {
			p.Stack.Push(p.Sys.Clk, out[i])
		}
		return nil

	case mast.OpHMerge:
		right, err := p.popWord()
		if err != nil {
			return err
		}
		left, err := p.popWord()
		if err != nil {
			return err
		}
		out := p.Hasher.Merge(left.AsDigest(), right.AsDigest(), core.ZeroFelt())
		p.pushWord(core.DigestAsWord(out))
		return nil

	case mast.OpMpVerify:
		leafW, err := p.popWord()
		if err != nil {
			return err
		}
		index, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		depth, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		rootW, err := p.popWord()
		if err != nil {
			return err
		}
		path, err := p.authPath(rootW.AsDigest(), index.Uint64(), int(depth.Uint64()))
		if err != nil {
			return err
		}
		if err := p.Hasher.MerklePathVerify(leafW.AsDigest(), index.Uint64(), path, rootW.AsDigest()); err != nil {
			return err
		}
		p.pushWord(rootW)
		return nil

	case mast.OpMrUpdate:
		newLeafW, err := p.popWord()
		if err != nil {
			return err
		}
		oldLeafW, err := p.popWord()
		if err != nil {
			return err
		}
		index, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		depth, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		oldRootW, err := p.popWord()
		if err != nil {
			return err
		}
		path, err := p.authPath(oldRootW.AsDigest(), index.Uint64(), int(depth.Uint64()))
		if err != nil {
			return err
		}
		newRoot, err := p.Hasher.MerklePathUpdate(oldLeafW.AsDigest(), newLeafW.AsDigest(), index.Uint64(), path, oldRootW.AsDigest())
		if err != nil {
			return err
		}
		p.pushWord(core.DigestAsWord(newRoot))
		return nil

	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled crypto op %s", op.Code)
	}
}

func (p *Processor) dispatchExtension(op mast.Op) error {
	switch op.Code {
	case mast.OpExt2Add:
		return p.binQuad(func(a, b core.QuadFelt) core.QuadFelt { return a.Add(b) })
	case mast.OpExt2Mul:
		return p.binQuad(func(a, b core.QuadFelt) core.QuadFelt { return a.Mul(b) })
	case mast.OpExt2Inv:
		a, err := p.popQuad()
		if err != nil {
			return err
		}
		inv, err := a.Inv()
		if err != nil {
			return newErr(KindDivideByZero, p.Sys.Clk, nil, "ext2inv of zero")
		}
		p.pushQuad(inv)
		return nil
	case mast.OpHornerBase, mast.OpHornerExt:
		coeff, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		x, err := p.popQuad()
		if err != nil {
			return err
		}
		acc, err := p.popQuad()
		if err != nil {
			return err
		}
		next := acc.Mul(x).Add(core.QuadFeltFromBase(coeff))
		p.pushQuad(x)
		p.pushQuad(next)
		return nil
	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled extension op %s", op.Code)
	}
}

func (p *Processor) popQuad() (core.QuadFelt, error) {
	a1, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return core.QuadFelt{}, err
	}
	a0, err := p.Stack.Pop(p.Sys.Clk)
	if err != nil {
		return core.QuadFelt{}, err
	}
	return core.NewQuadFelt(a0, a1), nil
}

func (p *Processor) pushQuad(v core.QuadFelt) {
	p.Stack.Push(p.Sys.Clk, v.A0)
	p.Stack.Push(p.Sys.Clk, v.A1)
}

func (p *Processor) binQuad(f func(a, b core.QuadFelt) core.QuadFelt) error {
	b, err := p.popQuad()
	if err != nil {
		return err
	}
	a, err := p.popQuad()
	if err != nil {
		return err
	}
	p.pushQuad(f(a, b))
	return nil
}

func (p *Processor) dispatchAce(op mast.Op) error {
	switch op.Code {
	case mast.OpArithmeticCircuitEval:
		numEval, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		numRead, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		ptr, err := p.Stack.Pop(p.Sys.Clk)
		if err != nil {
			return err
		}
		return p.evalCircuit(uint32(ptr.Uint64()), uint64(numRead.Uint64()), uint64(numEval.Uint64()))
	default:
		return newErr(KindInvalidOpcode, p.Sys.Clk, nil, "unhandled ace op %s", op.Code)
	}
}

// evalCircuit reads a read-only arithmetic circuit out of memory
// starting at ptr: numRead QuadFelt inputs/constants (two Felt each)
// followed by numEval gate encodings (one Felt each), dispatching every
// gate to the ACE chiplet.
func (p *Processor) evalCircuit(ptr uint32, numRead, numEval uint64) error {
	addr := ptr
	nodeId := uint32(0)
	for i := uint64(0); i < numRead; i++ {
		lo, err := p.Mem.ReadElement(p.Sys.Ctx, addr, p.Sys.Clk)
		if err != nil {
			return err
		}
		hi, err := p.Mem.ReadElement(p.Sys.Ctx, addr+1, p.Sys.Clk)
		if err != nil {
			return err
		}
		p.Ace.LoadInput(nodeId, core.NewQuadFelt(lo, hi))
		nodeId++
		addr += 2
	}
	for i := uint64(0); i < numEval; i++ {
		encoded, err := p.Mem.ReadElement(p.Sys.Ctx, addr, p.Sys.Clk)
		if err != nil {
			return err
		}
		addr++
		idL, idR, gop, err := chiplets.DecodeGate(encoded)
		if err != nil {
			return newErr(KindAceError, p.Sys.Clk, nil, "%v", err)
		}
		if err := p.Ace.Eval(idL, idR, nodeId, gop); err != nil {
			return newErr(KindAceError, p.Sys.Clk, nil, "%v", err)
		}
		nodeId++
	}
	if err := p.Ace.Accept(); err != nil {
		return newErr(KindAceError, p.Sys.Clk, nil, "%v", err)
	}
	return nil
}
