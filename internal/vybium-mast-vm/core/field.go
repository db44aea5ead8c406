package core

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Modulus is the Goldilocks prime p = 2^64 - 2^32 + 1, the modulus of
// field.Element. Every canonical representative lies in [0, Modulus).
const Modulus uint64 = 18446744069414584321

// Felt is one element of the base field GF(p), a thin wrapper over
// field.Element so every subsystem in this VM computes with the shared
// toolchain arithmetic rather than a second field implementation. The
// zero value is the field's zero element.
type Felt struct {
	e field.Element
}

// NewFelt reduces v modulo the field's modulus and returns the element.
func NewFelt(v uint64) Felt {
	return Felt{e: field.New(v)}
}

// FeltFromInt64 wraps a signed value into the field, taking p's
// complement for negative inputs.
func FeltFromInt64(v int64) Felt {
	return Felt{e: field.NewFromInt64(v)}
}

// FeltFromElement wraps a toolchain field element unchanged.
func FeltFromElement(e field.Element) Felt { return Felt{e: e} }

// Element returns the underlying toolchain field element, the form
// external collaborators (the prover, the verifier) exchange values in.
func (f Felt) Element() field.Element { return f.e }

// ZeroFelt returns the additive identity.
func ZeroFelt() Felt { return Felt{e: field.Zero} }

// OneFelt returns the multiplicative identity.
func OneFelt() Felt { return Felt{e: field.One} }

// Uint64 returns the canonical representative in [0, Modulus).
func (f Felt) Uint64() uint64 { return f.e.Value() }

// IsZero reports whether f is the additive identity.
func (f Felt) IsZero() bool { return f.e.IsZero() }

// IsOne reports whether f is the multiplicative identity.
func (f Felt) IsOne() bool { return f.e.IsOne() }

// Equal reports whether f and g represent the same field element.
func (f Felt) Equal(g Felt) bool { return f.e.Equal(g.e) }

// Add returns f + g mod p.
func (f Felt) Add(g Felt) Felt { return Felt{e: f.e.Add(g.e)} }

// Sub returns f - g mod p.
func (f Felt) Sub(g Felt) Felt { return Felt{e: f.e.Sub(g.e)} }

// Neg returns -f mod p.
func (f Felt) Neg() Felt { return Felt{e: f.e.Neg()} }

// Mul returns f * g mod p.
func (f Felt) Mul(g Felt) Felt { return Felt{e: f.e.Mul(g.e)} }

// Square returns f * f mod p.
func (f Felt) Square() Felt { return f.Mul(f) }

// Exp raises f to the given exponent by square-and-multiply.
func (f Felt) Exp(exponent uint64) Felt {
	result := OneFelt()
	base := f
	for exponent > 0 {
		if exponent&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		exponent >>= 1
	}
	return result
}

// Inv returns the multiplicative inverse of f. Fails only when f is
// zero.
func (f Felt) Inv() (Felt, error) {
	if f.IsZero() {
		return Felt{}, fmt.Errorf("core: cannot invert zero field element")
	}
	return Felt{e: f.e.Inverse()}, nil
}

// Div returns f / g, failing when g is zero.
func (f Felt) Div(g Felt) (Felt, error) {
	inv, err := g.Inv()
	if err != nil {
		return Felt{}, fmt.Errorf("core: division failed: %w", err)
	}
	return f.Mul(inv), nil
}

// String renders the canonical decimal representative.
func (f Felt) String() string { return fmt.Sprintf("%d", f.e.Value()) }

// SplitU32 decomposes f's canonical representative into (low32, high32)
// limbs, the witness shape U32split and the memory chiplet's delta
// range checks consume.
func (f Felt) SplitU32() (lo, hi uint32) {
	v := f.e.Value()
	return uint32(v), uint32(v >> 32)
}

// FeltFromU32Limbs reassembles a field element from (low32, high32) limbs.
func FeltFromU32Limbs(lo, hi uint32) Felt {
	return NewFelt(uint64(hi)<<32 | uint64(lo))
}
