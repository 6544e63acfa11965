package region

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/openrecon/mvmatch/internal/scene"
)

// Descriptor file layout, little-endian:
//
//	magic   [4]byte "RSET"
//	version uint8
//	type    uint8   (0 = scalar float32, 1 = binary)
//	dim     uint32  elements per descriptor
//	count   uint32  number of descriptors
//	payload count*dim float32s or bytes
const (
	codecMagic   = "RSET"
	codecVersion = 1

	typeScalar uint8 = 0
	typeBinary uint8 = 1

	// maxElems bounds dim*count so a corrupt header cannot force a
	// multi-gigabyte allocation before the payload is read.
	maxElems = 1 << 28
)

// ReadFile loads a descriptor file written by WriteFile.
func ReadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// Read decodes a descriptor stream.
func Read(r io.Reader) (*Set, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("region: short header: %w", err)
	}
	if string(magic[:]) != codecMagic {
		return nil, fmt.Errorf("region: bad magic %q", magic)
	}

	var header struct {
		Version uint8
		Type    uint8
		Dim     uint32
		Count   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("region: short header: %w", err)
	}
	if header.Version != codecVersion {
		return nil, fmt.Errorf("region: unsupported format version %d", header.Version)
	}
	if header.Dim == 0 {
		return nil, fmt.Errorf("region: zero descriptor dim")
	}
	elems := uint64(header.Dim) * uint64(header.Count)
	if elems > maxElems {
		return nil, fmt.Errorf("region: header declares %d descriptor elements, limit is %d", elems, maxElems)
	}

	n := int(elems)
	switch header.Type {
	case typeScalar:
		data := make([]float32, n)
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("region: truncated scalar payload: %w", err)
		}
		return NewScalarSet(int(header.Dim), data)
	case typeBinary:
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("region: truncated binary payload: %w", err)
		}
		return NewBinarySet(int(header.Dim), data)
	default:
		return nil, fmt.Errorf("region: unknown descriptor type byte %d", header.Type)
	}
}

// WriteFile writes a descriptor file atomically (temp file + rename).
func WriteFile(path string, s *Set) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := Write(w, s); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Write encodes a descriptor set.
func Write(w io.Writer, s *Set) error {
	if _, err := w.Write([]byte(codecMagic)); err != nil {
		return err
	}

	var typ uint8
	switch s.Type {
	case scene.DescriptorScalar:
		typ = typeScalar
	case scene.DescriptorBinary:
		typ = typeBinary
	default:
		return fmt.Errorf("region: unknown descriptor type %q", s.Type)
	}

	header := struct {
		Version uint8
		Type    uint8
		Dim     uint32
		Count   uint32
	}{codecVersion, typ, uint32(s.Dim), uint32(s.Count)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}

	if typ == typeScalar {
		return binary.Write(w, binary.LittleEndian, s.Scalars)
	}
	_, err := w.Write(s.Binary)
	return err
}
