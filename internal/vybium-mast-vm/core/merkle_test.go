package core

import "testing"

func wordOf(v uint64) Word {
	return Word{NewFelt(v), ZeroFelt(), ZeroFelt(), ZeroFelt()}
}

func TestMerkleTreePathVerifies(t *testing.T) {
	leaves := []Word{wordOf(1), wordOf(2), wordOf(3), wordOf(4), wordOf(5), wordOf(6), wordOf(7), wordOf(8)}
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Depth() != 3 {
		t.Fatalf("depth = %d, want 3", tree.Depth())
	}
	for i, leaf := range leaves {
		path, err := tree.Path(i)
		if err != nil {
			t.Fatalf("path(%d): unexpected error: %v", i, err)
		}
		if len(path) != 3 {
			t.Fatalf("path(%d) has %d siblings, want 3", i, len(path))
		}
		if !VerifyMerklePath(leaf.AsDigest(), uint64(i), path, tree.Root()) {
			t.Fatalf("path for leaf %d did not verify", i)
		}
	}
}

func TestMerkleTreePathRejectsWrongLeaf(t *testing.T) {
	leaves := []Word{wordOf(1), wordOf(2), wordOf(3), wordOf(4)}
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path, err := tree.Path(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if VerifyMerklePath(wordOf(99).AsDigest(), 0, path, tree.Root()) {
		t.Fatalf("path verified against a forged leaf")
	}
}

func TestMerkleTreeRejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, 1, 3, 6} {
		leaves := make([]Word, n)
		for i := range leaves {
			leaves[i] = wordOf(uint64(i))
		}
		if _, err := NewMerkleTree(leaves); err == nil {
			t.Fatalf("expected error building a tree over %d leaves", n)
		}
	}
}

func TestMerkleTreePathOutOfRangeErrors(t *testing.T) {
	tree, err := NewMerkleTree([]Word{wordOf(1), wordOf(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tree.Path(5); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
	if _, err := tree.Leaf(-1); err == nil {
		t.Fatalf("expected error for negative index")
	}
}

func TestMerkleTreeRootDependsOnLeafOrder(t *testing.T) {
	a, err := NewMerkleTree([]Word{wordOf(1), wordOf(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewMerkleTree([]Word{wordOf(2), wordOf(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Root().Equal(b.Root()) {
		t.Fatalf("swapping leaves should change the root")
	}
}
