// Package header implements the 80-byte Bitcoin block header codec (spec.md
// §3, §4.2): fixed-offset field accessors over the raw bytes and the
// double-SHA256 header hash.
//
// The field layout mirrors how the teacher's wire.BlockHeader struct
// (referenced by chaincfg/mainnetparams.go's genesis-block construction)
// exposes a parsed header, adapted from Decred's stake-augmented header
// down to Bitcoin's plain 80-byte layout named in spec.md §3/§6.
package header

import (
	"fmt"

	"github.com/lantr-io/binocular/primitives"
)

// Size is the fixed length of a raw Bitcoin block header in bytes.
const Size = 80

// Field byte offsets within the raw header, per spec.md §3.
const (
	offVersion    = 0
	offPrevHash   = 4
	offMerkleRoot = 36
	offTimestamp  = 68
	offBits       = 72
	offNonce      = 76
)

// BlockHeader is a parsed view over an 80-byte raw Bitcoin block header.
// All accessors read directly from the backing bytes; there is no
// independent copy of field values to keep in sync.
type BlockHeader struct {
	raw [Size]byte
}

// Parse validates that b is exactly Size bytes and returns a BlockHeader
// backed by a copy of it. It performs no consensus validation; that is done
// by forktree.AddBlockToForksTree.
func Parse(b []byte) (BlockHeader, error) {
	if len(b) != Size {
		return BlockHeader{}, fmt.Errorf("header: raw header must be %d bytes, got %d", Size, len(b))
	}
	var h BlockHeader
	copy(h.raw[:], b)
	return h, nil
}

// Bytes returns the raw 80-byte header.
func (h BlockHeader) Bytes() [Size]byte {
	return h.raw
}

// Version returns the header's version field. spec.md models it as an
// unsigned 32-bit integer decoded from its little-endian wire bytes (§3),
// even though Bitcoin Core treats it as signed; for the version >= 4 check
// in spec.md §4.5 step 6 the distinction never matters since valid versions
// are always small positive numbers.
func (h BlockHeader) Version() uint32 {
	return primitives.LEUint32(h.raw[:], offVersion)
}

// PrevBlockHash returns the hash of the parent block, in internal
// (little-endian) byte order.
func (h BlockHeader) PrevBlockHash() primitives.Hash256 {
	var out primitives.Hash256
	copy(out[:], h.raw[offPrevHash:offPrevHash+primitives.HashSize])
	return out
}

// MerkleRoot returns the header's transaction Merkle root, in internal byte
// order.
func (h BlockHeader) MerkleRoot() primitives.Hash256 {
	var out primitives.Hash256
	copy(out[:], h.raw[offMerkleRoot:offMerkleRoot+primitives.HashSize])
	return out
}

// Timestamp returns the header's timestamp as seconds since the Unix epoch.
func (h BlockHeader) Timestamp() uint32 {
	return primitives.LEUint32(h.raw[:], offTimestamp)
}

// Bits returns the header's compact difficulty target.
func (h BlockHeader) Bits() uint32 {
	return primitives.LEUint32(h.raw[:], offBits)
}

// Nonce returns the header's nonce field.
func (h BlockHeader) Nonce() uint32 {
	return primitives.LEUint32(h.raw[:], offNonce)
}

// Hash computes the block hash: SHA256(SHA256(raw header bytes)), in
// internal (little-endian) byte order (spec.md §3).
func (h BlockHeader) Hash() primitives.Hash256 {
	return primitives.DoubleSHA256(h.raw[:])
}

// MarshalBinary implements encoding.BinaryMarshaler so package wire's CBOR
// codec encodes a BlockHeader as a fixed-length byte string rather than an
// array of integers (spec.md §6: "sequence<BlockHeader80>").
func (h BlockHeader) MarshalBinary() ([]byte, error) {
	raw := h.raw
	return raw[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the decode side of
// MarshalBinary.
func (h *BlockHeader) UnmarshalBinary(b []byte) error {
	parsed, err := Parse(b)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
