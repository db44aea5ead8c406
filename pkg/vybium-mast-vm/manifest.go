package vybiummastvm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
)

// MagicPackage tags the on-disk package format.
var MagicPackage = [4]byte{'P', 'K', 'G', 0}

const packageVersion uint32 = 1

// Export pairs a qualified procedure name with its digest, the unit the
// manifest's exports list carries.
type Export struct {
	Name   string
	Digest Digest
}

// Dependency pairs a package name with the digest it is expected to
// resolve External nodes against.
type Dependency struct {
	Name   string
	Digest Digest
}

// Manifest is a package's exports and dependencies. Package resolution
// (linking a dependency's digest against another package's exports to
// substitute External nodes) is the link layer's job; this type only
// reads and writes the manifest's declared shape.
type Manifest struct {
	Exports      []Export
	Dependencies []Dependency
}

// Package is a named MAST program or library plus its manifest: the
// "PKG\0" magic, a version, a UTF-8 name, an inner "PRG\0"/"LIB\0" MAST
// blob, then the manifest lists.
type Package struct {
	Name     string
	IsLib    bool
	MastBlob []byte
	Manifest Manifest
}

// WritePackage serialises pkg to w in the on-disk package format.
func WritePackage(w io.Writer, pkg *Package) error {
	if _, err := w.Write(MagicPackage[:]); err != nil {
		return err
	}
	if err := writeU32(w, packageVersion); err != nil {
		return err
	}
	if err := writeString(w, pkg.Name); err != nil {
		return err
	}
	inner := [4]byte{'P', 'R', 'G', 0}
	if pkg.IsLib {
		inner = [4]byte{'L', 'I', 'B', 0}
	}
	if _, err := w.Write(inner[:]); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(pkg.MastBlob))); err != nil {
		return err
	}
	if _, err := w.Write(pkg.MastBlob); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(pkg.Manifest.Exports))); err != nil {
		return err
	}
	for _, e := range pkg.Manifest.Exports {
		if err := writeString(w, e.Name); err != nil {
			return err
		}
		if err := writeDigest(w, e.Digest); err != nil {
			return err
		}
	}
	if err := writeU32(w, uint32(len(pkg.Manifest.Dependencies))); err != nil {
		return err
	}
	for _, d := range pkg.Manifest.Dependencies {
		if err := writeString(w, d.Name); err != nil {
			return err
		}
		if err := writeDigest(w, d.Digest); err != nil {
			return err
		}
	}
	return nil
}

// ReadPackage parses a package previously produced by WritePackage.
func ReadPackage(r io.Reader) (*Package, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, wrapErr(fmt.Errorf("manifest: reading magic: %w", err))
	}
	if magic != MagicPackage {
		return nil, wrapErr(fmt.Errorf("manifest: unrecognized package magic %q", magic))
	}
	if _, err := readU32(r); err != nil { // version, currently unused beyond presence
		return nil, wrapErr(fmt.Errorf("manifest: reading version: %w", err))
	}
	name, err := readString(r)
	if err != nil {
		return nil, wrapErr(fmt.Errorf("manifest: reading name: %w", err))
	}
	var inner [4]byte
	if _, err := io.ReadFull(r, inner[:]); err != nil {
		return nil, wrapErr(fmt.Errorf("manifest: reading inner tag: %w", err))
	}
	isLib := inner == [4]byte{'L', 'I', 'B', 0}
	blobLen, err := readU32(r)
	if err != nil {
		return nil, wrapErr(fmt.Errorf("manifest: reading blob length: %w", err))
	}
	blob := make([]byte, blobLen)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, wrapErr(fmt.Errorf("manifest: reading blob: %w", err))
	}
	numExports, err := readU32(r)
	if err != nil {
		return nil, wrapErr(fmt.Errorf("manifest: reading export count: %w", err))
	}
	exports := make([]Export, numExports)
	for i := range exports {
		n, err := readString(r)
		if err != nil {
			return nil, wrapErr(fmt.Errorf("manifest: reading export %d name: %w", i, err))
		}
		d, err := readDigest(r)
		if err != nil {
			return nil, wrapErr(fmt.Errorf("manifest: reading export %d digest: %w", i, err))
		}
		exports[i] = Export{Name: n, Digest: d}
	}
	numDeps, err := readU32(r)
	if err != nil {
		return nil, wrapErr(fmt.Errorf("manifest: reading dependency count: %w", err))
	}
	deps := make([]Dependency, numDeps)
	for i := range deps {
		n, err := readString(r)
		if err != nil {
			return nil, wrapErr(fmt.Errorf("manifest: reading dependency %d name: %w", i, err))
		}
		d, err := readDigest(r)
		if err != nil {
			return nil, wrapErr(fmt.Errorf("manifest: reading dependency %d digest: %w", i, err))
		}
		deps[i] = Dependency{Name: n, Digest: d}
	}
	return &Package{Name: name, IsLib: isLib, MastBlob: blob, Manifest: Manifest{Exports: exports, Dependencies: deps}}, nil
}

// PackageBytes is a convenience wrapper over WritePackage for an
// in-memory blob.
func PackageBytes(pkg *Package) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePackage(&buf, pkg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeDigest(w io.Writer, d Digest) error {
	for _, f := range d {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], f.Uint64())
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func readDigest(r io.Reader) (Digest, error) {
	var d Digest
	for i := range d {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Digest{}, err
		}
		d[i] = core.NewFelt(binary.LittleEndian.Uint64(buf[:]))
	}
	return d, nil
}
