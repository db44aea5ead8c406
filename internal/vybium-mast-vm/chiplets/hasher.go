package chiplets

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// HasherSelector encodes the operation kind driving one 8-row permutation
// run; the first two selector flags are its binary expansion.
type HasherSelector uint8

const (
	SelPermute HasherSelector = iota
	SelLinearHash
	SelMerge
	SelMerklePath
)

// HasherRow is one row of a permutation run: three binary selector flags,
// the 12 state elements, a row counter, and a node-index column used for
// merkle operations.
type HasherRow struct {
	Selectors [3]bool
	State     [core.SpongeWidth]core.Felt
	RowInCyc  uint8 // 0..7: 7 rounds + output row
	NodeIndex uint64
}

// HashRequest records one caller-issued merge: the label of the run kind
// and the digest it produced, the request side of the hasher bus.
type HashRequest struct {
	Label  uint64
	Digest core.Digest
}

// Hasher is the hasher chiplet: sponge permutation plus merkle path
// verify/update.
type Hasher struct {
	rows []HasherRow
	reqs []HashRequest
}

// NewHasher returns an empty hasher chiplet.
func NewHasher() *Hasher { return &Hasher{} }

func selectorBits(sel HasherSelector) [3]bool {
	return [3]bool{sel&1 != 0, sel&2 != 0, false}
}

// appendRun materialises one 8-row run (7 rounds + output row) for a
// width-12 initial state, returning the full output state so multi-chunk
// absorption can continue from it. The node-index column is shifted
// right by one bit per row for merkle operations so that after depth
// steps the index is fully consumed.
func (h *Hasher) appendRun(sel HasherSelector, initial [core.SpongeWidth]core.Felt, nodeIndex uint64) [core.SpongeWidth]core.Felt {
	steps := core.PermuteSteps(initial)
	sb := selectorBits(sel)
	idx := nodeIndex
	for row := 0; row <= core.SpongeRounds; row++ {
		h.rows = append(h.rows, HasherRow{Selectors: sb, State: steps[row], RowInCyc: uint8(row), NodeIndex: idx})
		if sel == SelMerklePath {
			idx >>= 1
		}
	}
	return steps[core.SpongeRounds]
}

func squeeze(state [core.SpongeWidth]core.Felt) core.Digest {
	return core.Digest{state[0], state[1], state[2], state[3]}
}

// Permute runs the fixed 7-round permutation and records the 8-row trace.
func (h *Hasher) Permute(state [core.SpongeWidth]core.Felt) [core.SpongeWidth]core.Felt {
	return h.appendRun(SelPermute, state, 0)
}

// LinearHash absorbs elements through the rate and squeezes a digest,
// recording one 8-row run per SpongeRate-sized chunk. The capacity
// carries across chunks, so the result matches core.LinearHash for any
// input length.
func (h *Hasher) LinearHash(elements []core.Felt) core.Digest {
	var state [core.SpongeWidth]core.Felt
	if len(elements) == 0 {
		return squeeze(h.appendRun(SelLinearHash, state, 0))
	}
	for i := 0; i < len(elements); i += core.SpongeRate {
		end := i + core.SpongeRate
		if end > len(elements) {
			end = len(elements)
		}
		for j := i; j < end; j++ {
			state[j-i] = state[j-i].Add(elements[j])
		}
		state = h.appendRun(SelLinearHash, state, 0)
	}
	return squeeze(state)
}

// Merge combines two digests under a domain tag, recording one 8-row run
// and posting the request side of the merge-keyed bus.
func (h *Hasher) Merge(left, right core.Digest, domain core.Felt) core.Digest {
	var state [core.SpongeWidth]core.Felt
	state[0], state[1], state[2], state[3] = left[0], left[1], left[2], left[3]
	state[4], state[5], state[6], state[7] = right[0], right[1], right[2], right[3]
	state[8] = domain
	out := squeeze(h.appendRun(SelMerge, state, 0))
	h.reqs = append(h.reqs, HashRequest{Label: uint64(SelMerge), Digest: out})
	return out
}

// ErrMerklePath is returned on path-depth mismatch or an out-of-range
// index at the declared depth.
type ErrMerklePath struct{ Reason string }

func (e *ErrMerklePath) Error() string { return fmt.Sprintf("hasher: merkle path error: %s", e.Reason) }

// MerklePathVerify recomputes the root from a leaf, its index, and an
// authentication path, recording one 8-row run per tree level, and fails
// if the recomputed root does not equal the claimed root.
func (h *Hasher) MerklePathVerify(leaf core.Digest, index uint64, path []core.Digest, root core.Digest) error {
	if len(path) == 0 {
		return &ErrMerklePath{Reason: "path depth mismatch: empty path"}
	}
	if index >= 1<<uint(len(path)) {
		return &ErrMerklePath{Reason: "index out of range at declared depth"}
	}
	cur := leaf
	idx := index
	for _, sibling := range path {
		if idx&1 == 0 {
			cur = squeeze(h.appendRun(SelMerklePath, packPair(cur, sibling), idx))
		} else {
			cur = squeeze(h.appendRun(SelMerklePath, packPair(sibling, cur), idx))
		}
		idx >>= 1
	}
	if !cur.Equal(root) {
		return &ErrMerklePath{Reason: "recomputed root does not match claimed root"}
	}
	return nil
}

// MerklePathUpdate recomputes the path with a replaced leaf, producing
// the new root.
func (h *Hasher) MerklePathUpdate(oldLeaf, newLeaf core.Digest, index uint64, path []core.Digest, oldRoot core.Digest) (core.Digest, error) {
	if err := h.MerklePathVerify(oldLeaf, index, path, oldRoot); err != nil {
		return core.Digest{}, err
	}
	cur := newLeaf
	idx := index
	for _, sibling := range path {
		if idx&1 == 0 {
			cur = squeeze(h.appendRun(SelMerklePath, packPair(cur, sibling), idx))
		} else {
			cur = squeeze(h.appendRun(SelMerklePath, packPair(sibling, cur), idx))
		}
		idx >>= 1
	}
	return cur, nil
}

func packPair(left, right core.Digest) [core.SpongeWidth]core.Felt {
	var state [core.SpongeWidth]core.Felt
	state[0], state[1], state[2], state[3] = left[0], left[1], left[2], left[3]
	state[4], state[5], state[6], state[7] = right[0], right[1], right[2], right[3]
	return state
}

// GenerateTrace returns the recorded hasher rows.
func (h *Hasher) GenerateTrace() []HasherRow { return append([]HasherRow(nil), h.rows...) }

// Requests returns the merge requests callers issued, the consumer side
// of the hasher bus's merge-keyed identity.
func (h *Hasher) Requests() []HashRequest { return append([]HashRequest(nil), h.reqs...) }
