package vybiummastvm

import (
	"bytes"
	"io"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

// SaveProgram writes prog's MAST binary encoding to w, tagged "PRG\0".
func SaveProgram(w io.Writer, prog *Program) error {
	return mast.Encode(w, prog.inner.Forest, prog.inner.Entry, true)
}

// ProgramBytes returns prog's MAST binary encoding as an in-memory blob,
// the shape manifest.go embeds inside a package.
func ProgramBytes(prog *Program) ([]byte, error) {
	return mast.EncodeToBytes(prog.inner.Forest, prog.inner.Entry, true)
}

// LoadProgram parses a "PRG\0"-tagged MAST binary back into a Program,
// re-deriving every node digest from its content rather than trusting a
// stored value.
func LoadProgram(r io.Reader) (*Program, error) {
	forest, entry, isProgram, err := mast.Decode(r)
	if err != nil {
		return nil, wrapErr(err)
	}
	if !isProgram {
		return nil, wrapErr(errNotAProgram)
	}
	p, err := mast.NewProgram(forest, entry)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &Program{inner: p}, nil
}

// LoadProgramBytes is a convenience wrapper over LoadProgram for an
// in-memory blob.
func LoadProgramBytes(data []byte) (*Program, error) {
	return LoadProgram(bytes.NewReader(data))
}

// SaveLibrary writes b's forest to w tagged "LIB\0". A library has no
// single entry point; External nodes in other forests are resolved
// against its exports at merge time.
func SaveLibrary(w io.Writer, b *ProgramBuilder) error {
	return mast.Encode(w, b.forest, mast.NilNodeId, false)
}

// LoadLibrary parses a "LIB\0"-tagged MAST binary into a ProgramBuilder
// ready for further Merge calls.
func LoadLibrary(r io.Reader) (*ProgramBuilder, error) {
	forest, _, isProgram, err := mast.Decode(r)
	if err != nil {
		return nil, wrapErr(err)
	}
	if isProgram {
		return nil, wrapErr(errNotALibrary)
	}
	return &ProgramBuilder{forest: forest}, nil
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	errNotAProgram staticErr = "mast: binary is tagged LIB\\0, not a program"
	errNotALibrary staticErr = "mast: binary is tagged PRG\\0, not a library"
)
