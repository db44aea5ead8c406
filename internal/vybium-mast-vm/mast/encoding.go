package mast

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// Magic tags for the MAST binary format: a flat tag-byte plus
// length-prefixed-fields layout.
var (
	MagicProgram = [4]byte{'P', 'R', 'G', 0}
	MagicLibrary = [4]byte{'L', 'I', 'B', 0}
)

// Encode serialises a forest plus optional entry point into the MAST
// binary format. isProgram selects the "PRG\0" vs "LIB\0" magic tag.
func Encode(w io.Writer, f *Forest, entry NodeId, isProgram bool) error {
	magic := MagicLibrary
	if isProgram {
		magic = MagicProgram
	}
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(f.nodes))); err != nil {
		return err
	}
	for _, n := range f.nodes {
		if err := encodeNode(w, n); err != nil {
			return err
		}
	}
	if isProgram {
		if err := writeUint32(w, uint32(entry)); err != nil {
			return err
		}
	}
	return nil
}

func encodeNode(w io.Writer, n Node) error {
	if _, err := w.Write([]byte{byte(n.Kind)}); err != nil {
		return err
	}
	switch n.Kind {
	case KindBlock:
		if err := writeUint32(w, uint32(len(n.Batches)*opsPerBatch)); err != nil {
			return err
		}
		for _, b := range n.Batches {
			for _, op := range b.Ops {
				if _, err := w.Write([]byte{byte(op.Code)}); err != nil {
					return err
				}
				if op.Code.HasImmediate() {
					if err := writeUint64(w, op.Imm.Uint64()); err != nil {
						return err
					}
				}
			}
		}
	case KindJoin, KindSplit:
		if err := writeUint32(w, uint32(n.Left)); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(n.Right)); err != nil {
			return err
		}
	case KindLoop:
		if err := writeUint32(w, uint32(n.Left)); err != nil {
			return err
		}
	case KindCall:
		if err := writeUint32(w, uint32(n.Callee)); err != nil {
			return err
		}
		flag := byte(0)
		if n.IsSyscall {
			flag = 1
		}
		if _, err := w.Write([]byte{flag}); err != nil {
			return err
		}
	case KindDyn:
		flag := byte(0)
		if n.IsDyncall {
			flag = 1
		}
		if _, err := w.Write([]byte{flag}); err != nil {
			return err
		}
	case KindExternal:
		if err := writeDigest(w, n.ExternalDigest); err != nil {
			return err
		}
	default:
		return fmt.Errorf("mast: cannot encode node kind %v", n.Kind)
	}
	return nil
}

// Decode parses a MAST binary blob back into a Forest (plus the entry
// NodeId if the blob is a program), re-deriving each node's digest from
// its content rather than trusting a stored value.
func Decode(r io.Reader) (forest *Forest, entry NodeId, isProgram bool, err error) {
	var magic [4]byte
	if _, err = io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, false, fmt.Errorf("mast: reading magic: %w", err)
	}
	switch magic {
	case MagicProgram:
		isProgram = true
	case MagicLibrary:
		isProgram = false
	default:
		return nil, 0, false, fmt.Errorf("mast: unrecognized magic tag %q", magic)
	}

	count, err := readUint32(r)
	if err != nil {
		return nil, 0, false, fmt.Errorf("mast: reading node count: %w", err)
	}

	forest = NewForest()
	// Raw nodes are decoded first with placeholder child ids, then
	// re-inserted through the constructors below once every node exists,
	// so digests recompute bottom-up exactly as AddJoin et al. would for a
	// freshly built forest.
	raw := make([]Node, count)
	for i := range raw {
		n, derr := decodeNode(r)
		if derr != nil {
			return nil, 0, false, fmt.Errorf("mast: decoding node %d: %w", i, derr)
		}
		raw[i] = n
	}

	remap := make(map[NodeId]NodeId, len(raw))
	for i, n := range raw {
		id := NodeId(i)
		var newId NodeId
		var cerr error
		switch n.Kind {
		case KindBlock:
			ops := flattenBatches(n.Batches)
			newId, cerr = forest.AddBlock(ops)
		case KindJoin:
			newId, cerr = forest.AddJoin(remap[n.Left], remap[n.Right])
		case KindSplit:
			newId, cerr = forest.AddSplit(remap[n.Left], remap[n.Right])
		case KindLoop:
			newId, cerr = forest.AddLoop(remap[n.Left])
		case KindCall:
			newId, cerr = forest.AddCall(remap[n.Callee], n.IsSyscall)
		case KindDyn:
			newId, cerr = forest.AddDyn(n.IsDyncall)
		case KindExternal:
			newId, cerr = forest.AddExternal(n.ExternalDigest)
		default:
			cerr = fmt.Errorf("unknown node kind %v", n.Kind)
		}
		if cerr != nil {
			return nil, 0, false, fmt.Errorf("mast: rebuilding node %d: %w", i, cerr)
		}
		remap[id] = newId
	}

	if isProgram {
		rawEntry, rerr := readUint32(r)
		if rerr != nil {
			return nil, 0, false, fmt.Errorf("mast: reading entry point: %w", rerr)
		}
		entry = remap[NodeId(rawEntry)]
	}
	return forest, entry, isProgram, nil
}

func flattenBatches(batches []OpBatch) []Op {
	var ops []Op
	for _, b := range batches {
		ops = append(ops, b.Ops[:]...)
	}
	// Trim trailing Noop padding added by PackOps so re-encoding the
	// flattened sequence round-trips to the same batch count.
	for len(ops) > 0 && ops[len(ops)-1].Code == OpNoop {
		ops = ops[:len(ops)-1]
	}
	return ops
}

func decodeNode(r io.Reader) (Node, error) {
	var kindByte [1]byte
	if _, err := io.ReadFull(r, kindByte[:]); err != nil {
		return Node{}, err
	}
	kind := Kind(kindByte[0])
	switch kind {
	case KindBlock:
		count, err := readUint32(r)
		if err != nil {
			return Node{}, err
		}
		ops := make([]Op, 0, count)
		for i := uint32(0); i < count; i++ {
			var codeByte [1]byte
			if _, err := io.ReadFull(r, codeByte[:]); err != nil {
				return Node{}, err
			}
			op := Op{Code: OpCode(codeByte[0])}
			if op.Code.HasImmediate() {
				v, err := readUint64(r)
				if err != nil {
					return Node{}, err
				}
				op.Imm = core.NewFelt(v)
			}
			ops = append(ops, op)
		}
		return Node{Kind: KindBlock, Batches: PackOps(ops)}, nil
	case KindJoin, KindSplit:
		left, err := readUint32(r)
		if err != nil {
			return Node{}, err
		}
		right, err := readUint32(r)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: kind, Left: NodeId(left), Right: NodeId(right)}, nil
	case KindLoop:
		left, err := readUint32(r)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: KindLoop, Left: NodeId(left)}, nil
	case KindCall:
		callee, err := readUint32(r)
		if err != nil {
			return Node{}, err
		}
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return Node{}, err
		}
		return Node{Kind: KindCall, Callee: NodeId(callee), IsSyscall: flag[0] == 1}, nil
	case KindDyn:
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return Node{}, err
		}
		return Node{Kind: KindDyn, IsDyncall: flag[0] == 1}, nil
	case KindExternal:
		d, err := readDigest(r)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: KindExternal, ExternalDigest: d}, nil
	default:
		return Node{}, fmt.Errorf("unrecognized node kind byte %d", kindByte[0])
	}
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeDigest(w io.Writer, d core.Digest) error {
	for _, f := range d {
		if err := writeUint64(w, f.Uint64()); err != nil {
			return err
		}
	}
	return nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readDigest(r io.Reader) (core.Digest, error) {
	var d core.Digest
	for i := range d {
		v, err := readUint64(r)
		if err != nil {
			return core.Digest{}, err
		}
		d[i] = core.NewFelt(v)
	}
	return d, nil
}

// EncodeToBytes is a convenience wrapper over Encode for callers that want
// an in-memory blob (e.g. the Package manifest, pkg/manifest.go).
func EncodeToBytes(f *Forest, entry NodeId, isProgram bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, entry, isProgram); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
