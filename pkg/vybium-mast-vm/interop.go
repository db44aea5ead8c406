package vybiummastvm

import (
	cryptofield "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	cryptohash "github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// ToCryptoElement unwraps a Felt into the toolchain field element the
// prover and verifier exchange values in. Felt is a wrapper over
// field.Element, so this is a plain accessor, not a conversion.
func ToCryptoElement(f Felt) cryptofield.Element {
	return f.Element()
}

// FromCryptoElement wraps a toolchain field element back into a Felt.
func FromCryptoElement(e cryptofield.Element) Felt {
	return core.FeltFromElement(e)
}

// PublicInputsToCrypto renders a public-inputs bundle (program digest,
// stack inputs, stack outputs, kernel) as toolchain field elements, the
// form a downstream STARK prover expects its Fiat-Shamir transcript seed
// in.
func PublicInputsToCrypto(programDigest Digest, stackInputs, stackOutputs []Felt, kernel []Digest) []cryptofield.Element {
	out := make([]cryptofield.Element, 0, 4+len(stackInputs)+len(stackOutputs)+4*len(kernel))
	for _, f := range programDigest {
		out = append(out, f.Element())
	}
	for _, f := range stackInputs {
		out = append(out, f.Element())
	}
	for _, f := range stackOutputs {
		out = append(out, f.Element())
	}
	for _, d := range kernel {
		for _, f := range d {
			out = append(out, f.Element())
		}
	}
	return out
}

// CommitPublicInputs collapses a public-inputs bundle into a single
// Poseidon commitment. Execute stamps every Result with it, so a proof
// envelope can carry the commitment in place of the full bundle.
func CommitPublicInputs(programDigest Digest, stackInputs, stackOutputs []Felt, kernel []Digest) cryptofield.Element {
	return cryptohash.PoseidonHash(PublicInputsToCrypto(programDigest, stackInputs, stackOutputs, kernel))
}
