package bytecode

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

var ErrBadBundle = errors.New("bad bundle")

// bundleVersion is the current binary layout.
const bundleVersion byte = 0x01

// bundleMagic opens every serialized bundle
var bundleMagic = []byte{'E', 'W', 'B', 'C'}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Bundle is a program ready to run without re-reading or re-optimizing it.
type Bundle struct {
	// BuildID identifies one compilation.
	BuildID uuid.UUID `cbor:"1,keyasint"`

	// Source is the path the program was read from (for diagnostics).
	Source string `cbor:"2,keyasint,omitempty"`

	// SourceHash is the sha256 of the bytecode text.
	SourceHash [32]byte `cbor:"3,keyasint"`

	// Optimized records whether the optimizer ran.
	Optimized bool `cbor:"4,keyasint"`

	Program *Program `cbor:"5,keyasint"`
}

// NewBundle wraps p, hashing the text it was read from.
func NewBundle(source string, text []byte, p *Program, optimized bool) *Bundle {
	return &Bundle{
		BuildID:    uuid.New(),
		Source:     source,
		SourceHash: sha256.Sum256(text),
		Optimized:  optimized,
		Program:    p,
	}
}

// Serialize converts a Bundle to binary format.
// Format:
// - Magic number (4 bytes): "EWBC"
// - Version (1 byte): 0x01
// - Canonical CBOR-encoded Bundle
func (b *Bundle) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(bundleMagic)
	buf.WriteByte(bundleVersion)

	body, err := cborEncMode.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle cbor encoding failed: %w", err)
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// Deserialize reads data written by Serialize and validates the program.
func Deserialize(data []byte) (*Bundle, error) {
	if len(data) < len(bundleMagic)+1 {
		return nil, fmt.Errorf("%w: data too short", ErrBadBundle)
	}
	if !bytes.Equal(data[:len(bundleMagic)], bundleMagic) {
		return nil, fmt.Errorf("%w: invalid magic number, expected EWBC", ErrBadBundle)
	}
	if v := data[len(bundleMagic)]; v != bundleVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (this binary supports %d)", ErrBadBundle, v, bundleVersion)
	}

	var b Bundle
	if err := cbor.Unmarshal(data[len(bundleMagic)+1:], &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBundle, err)
	}
	if b.Program == nil {
		return nil, fmt.Errorf("%w: no program", ErrBadBundle)
	}
	if b.Program.Labels == nil {
		b.Program.Labels = make(map[string]int)
	}
	if err := b.Program.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBundle, err)
	}
	return &b, nil
}
