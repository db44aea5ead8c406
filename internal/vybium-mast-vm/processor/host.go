package processor

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// AdviceProvider is the host-side non-determinism source: a public advice
// tape consumed by AdvPop/AdvPopW, a Digest-keyed map consumed by
// adv_map events, and a store of Merkle trees the host can answer
// authentication-path lookups from. The store's trees hash with the same
// sponge as the hasher chiplet, so paths served out-of-band verify
// in-circuit unchanged.
type AdviceProvider struct {
	tape []core.Felt
	pos  int
	m    map[core.Digest][]core.Felt

	trees map[core.Digest]*core.MerkleTree
}

// NewAdviceProvider returns a provider seeded with a public advice tape.
func NewAdviceProvider(tape []core.Felt) *AdviceProvider {
	return &AdviceProvider{
		tape:  append([]core.Felt(nil), tape...),
		m:     make(map[core.Digest][]core.Felt),
		trees: make(map[core.Digest]*core.MerkleTree),
	}
}

// PutMap registers a key -> values entry ahead of execution, or via an
// adv_map_insert event.
func (a *AdviceProvider) PutMap(key core.Digest, values []core.Felt) error {
	if _, exists := a.m[key]; exists {
		return fmt.Errorf("advice map key %s already present", key)
	}
	a.m[key] = append([]core.Felt(nil), values...)
	return nil
}

// PopFelt consumes the next element of the advice tape.
func (a *AdviceProvider) PopFelt(clk uint64) (core.Felt, error) {
	if a.pos >= len(a.tape) {
		return core.Felt{}, newErr(KindAdviceError, clk, nil, "advice tape exhausted")
	}
	v := a.tape[a.pos]
	a.pos++
	return v, nil
}

// PopWord consumes the next four elements of the advice tape as a Word.
func (a *AdviceProvider) PopWord(clk uint64) (core.Word, error) {
	var w core.Word
	for i := 0; i < 4; i++ {
		v, err := a.PopFelt(clk)
		if err != nil {
			return core.Word{}, err
		}
		w[i] = v
	}
	return w, nil
}

// MapGet looks up a Digest-keyed advice value, failing with AdviceError
// on a missing key.
func (a *AdviceProvider) MapGet(clk uint64, key core.Digest) ([]core.Felt, error) {
	v, ok := a.m[key]
	if !ok {
		return nil, newErr(KindAdviceError, clk, nil, "advice map key %s not present", key)
	}
	return v, nil
}

// RegisterMerkleTree builds and stores a Merkle tree over leaves, keyed
// by its root digest, and returns that root. Tree contents stay on the
// host; execution pulls individual authentication paths as it needs
// them.
func (a *AdviceProvider) RegisterMerkleTree(leaves []core.Word) (core.Digest, error) {
	tree, err := core.NewMerkleTree(leaves)
	if err != nil {
		return core.Digest{}, err
	}
	a.trees[tree.Root()] = tree
	return tree.Root(), nil
}

// HasMerkleTree reports whether a tree is registered under root.
func (a *AdviceProvider) HasMerkleTree(root core.Digest) bool {
	_, ok := a.trees[root]
	return ok
}

// MerklePath returns the leaf and authentication path at index within
// the tree registered under root, failing with AdviceError on an unknown
// root or out-of-range index.
func (a *AdviceProvider) MerklePath(clk uint64, root core.Digest, index int) (core.Word, []core.Digest, error) {
	tree, ok := a.trees[root]
	if !ok {
		return core.Word{}, nil, newErr(KindAdviceError, clk, nil, "merkle lookup miss: no tree with root %s", root)
	}
	leaf, err := tree.Leaf(index)
	if err != nil {
		return core.Word{}, nil, newErr(KindAdviceError, clk, nil, "merkle lookup miss: %v", err)
	}
	path, err := tree.Path(index)
	if err != nil {
		return core.Word{}, nil, newErr(KindAdviceError, clk, nil, "merkle lookup miss: %v", err)
	}
	return leaf, path, nil
}

// EventHandler processes a host event identified by id, with the current
// stack top available via peek/mutate hooks supplied by the caller.
type EventHandler func(clk uint64, id uint32) error

// OnEvent invokes handler and normalizes any failure into the
// AdviceError kind with the event id attached, so a handler's own error
// never escapes as an untyped failure.
func OnEvent(clk uint64, id uint32, handler EventHandler) error {
	if err := handler(clk, id); err != nil {
		return newErr(KindAdviceError, clk, nil, "event %d failed: %v", id, err)
	}
	return nil
}
