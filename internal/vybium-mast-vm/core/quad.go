package core

import "fmt"

// QuadFelt is an element of the degree-2 extension GF(p^2) = GF(p)[x]/(x^2 -
// nonResidue), used for Fiat-Shamir challenges and the ACE chiplet's wiring
// denominators.
type QuadFelt struct {
	A0, A1 Felt
}

// nonResidue is the smallest value for which x^2 - nonResidue is
// irreducible over the Goldilocks base field.
var nonResidue = NewFelt(7)

// NewQuadFelt builds a0 + a1*x.
func NewQuadFelt(a0, a1 Felt) QuadFelt { return QuadFelt{A0: a0, A1: a1} }

// QuadFeltFromBase embeds a base-field element as a0 + 0*x.
func QuadFeltFromBase(a Felt) QuadFelt { return QuadFelt{A0: a, A1: ZeroFelt()} }

// ZeroQuadFelt is the additive identity.
func ZeroQuadFelt() QuadFelt { return QuadFelt{A0: ZeroFelt(), A1: ZeroFelt()} }

// OneQuadFelt is the multiplicative identity.
func OneQuadFelt() QuadFelt { return QuadFelt{A0: OneFelt(), A1: ZeroFelt()} }

// IsZero reports whether q is the additive identity.
func (q QuadFelt) IsZero() bool { return q.A0.IsZero() && q.A1.IsZero() }

// Equal reports whether q and r are the same extension-field element.
func (q QuadFelt) Equal(r QuadFelt) bool { return q.A0.Equal(r.A0) && q.A1.Equal(r.A1) }

// Add returns q + r.
func (q QuadFelt) Add(r QuadFelt) QuadFelt {
	return QuadFelt{A0: q.A0.Add(r.A0), A1: q.A1.Add(r.A1)}
}

// Sub returns q - r.
func (q QuadFelt) Sub(r QuadFelt) QuadFelt {
	return QuadFelt{A0: q.A0.Sub(r.A0), A1: q.A1.Sub(r.A1)}
}

// Neg returns -q.
func (q QuadFelt) Neg() QuadFelt { return QuadFelt{A0: q.A0.Neg(), A1: q.A1.Neg()} }

// Mul returns q * r using schoolbook multiplication reduced by x^2 = nonResidue.
func (q QuadFelt) Mul(r QuadFelt) QuadFelt {
	a0b0 := q.A0.Mul(r.A0)
	a1b1 := q.A1.Mul(r.A1)
	cross := q.A0.Add(q.A1).Mul(r.A0.Add(r.A1)).Sub(a0b0).Sub(a1b1)
	return QuadFelt{A0: a0b0.Add(a1b1.Mul(nonResidue)), A1: cross}
}

// MulBase scales q by a base-field element.
func (q QuadFelt) MulBase(s Felt) QuadFelt {
	return QuadFelt{A0: q.A0.Mul(s), A1: q.A1.Mul(s)}
}

// Square returns q * q.
func (q QuadFelt) Square() QuadFelt { return q.Mul(q) }

// conjugate returns a0 - a1*x, the Frobenius image used by norm/inverse.
func (q QuadFelt) conjugate() QuadFelt { return QuadFelt{A0: q.A0, A1: q.A1.Neg()} }

// norm returns q * conjugate(q), which lies in the base field, as a Felt.
func (q QuadFelt) norm() Felt {
	return q.A0.Mul(q.A0).Sub(q.A1.Mul(q.A1).Mul(nonResidue))
}

// Inv returns the multiplicative inverse of q, failing only when q is zero.
func (q QuadFelt) Inv() (QuadFelt, error) {
	if q.IsZero() {
		return QuadFelt{}, fmt.Errorf("core: cannot invert zero extension element")
	}
	n, err := q.norm().Inv()
	if err != nil {
		return QuadFelt{}, err
	}
	conj := q.conjugate()
	return QuadFelt{A0: conj.A0.Mul(n), A1: conj.A1.Mul(n)}, nil
}

// String renders "(a0 + a1*x)".
func (q QuadFelt) String() string { return fmt.Sprintf("(%s + %s*x)", q.A0, q.A1) }
