// Package primitives implements the low-level byte-and-integer codecs that
// every other oracle package builds on: little-endian integer decoding,
// double-SHA256, VarInt decoding, and the compact-target <-> big-integer
// conversions used by Bitcoin's difficulty encoding.
//
// Naming follows the newer decred/dcrd "standalone primitives" staging area
// (internal/staging/primitives/pow_bench_test.go: DiffBitsToUint256,
// Uint256ToDiffBits, CalcWork, HashToUint256, CheckProofOfWork) crossed with
// the still-current blockchain/standalone public API demonstrated in
// standalone/example_test.go (CompactToBig, BigToCompact) and used
// unqualified inside package blockchain itself in chain_test.go
// (CompactToBig, HashToBig). Both names are kept as they name the same
// operation from two eras of the same lineage.
package primitives

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
)

// HashSize is the number of bytes in a block or transaction hash.
const HashSize = 32

// Hash256 is a double-SHA256 digest, stored in internal (little-endian)
// byte order as described in spec.md §3.
type Hash256 [HashSize]byte

// IsZero reports whether h is the all-zero hash, which spec.md uses to mark
// an empty slot in the rolling Merkle accumulator.
func (h Hash256) IsZero() bool {
	return h == Hash256{}
}

// DoubleSHA256 computes SHA256(SHA256(b)).
func DoubleSHA256(b []byte) Hash256 {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second
}

// DoubleSHA256H computes SHA256(SHA256(a || b)) over a single 64-byte buffer
// holding the concatenation, which is the hot path for both the
// rolling Merkle accumulator (merkle package) and inclusion-proof
// verification (txproof package).
func DoubleSHA256H(a, b Hash256) Hash256 {
	buf := make([]byte, 0, HashSize*2)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return DoubleSHA256(buf)
}

// LEUint32 decodes a 4-byte little-endian unsigned integer starting at
// offset off in b.
func LEUint32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// PutLEUint32 encodes v as 4 little-endian bytes starting at offset off in b.
func PutLEUint32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// HashToBig interprets a hash as a 256-bit unsigned integer in little-endian
// byte order, as required to compare a block's hash against its target
// (spec.md §3, I5; §4.2).
//
// This is the same operation the newer staging area calls HashToUint256;
// both names are exported so callers can use whichever reads better at the
// call site.
func HashToBig(h Hash256) *big.Int {
	reversed := reverse(h)
	return new(big.Int).SetBytes(reversed[:])
}

// HashToUint256 is an alias of HashToBig kept for parity with the
// DiffBitsToUint256/Uint256ToDiffBits naming used elsewhere in this package.
func HashToUint256(h Hash256) *big.Int {
	return HashToBig(h)
}

func reverse(h Hash256) Hash256 {
	var out Hash256
	for i := 0; i < HashSize; i++ {
		out[i] = h[HashSize-1-i]
	}
	return out
}

// ReadVarInt decodes a Bitcoin VarInt starting at offset off in b and
// returns the decoded value along with the number of bytes consumed.
//
// Encoding (spec.md §4.1):
//
//	value < 0xFD            -> 1 byte, the value itself
//	selector byte == 0xFD    -> 2 little-endian bytes follow
//	selector byte == 0xFE    -> 4 little-endian bytes follow
//	selector byte == 0xFF    -> 8 little-endian bytes follow
func ReadVarInt(b []byte, off int) (value uint64, n int, err error) {
	if off >= len(b) {
		return 0, 0, fmt.Errorf("primitives: varint: offset %d out of range (len %d)", off, len(b))
	}
	selector := b[off]
	switch {
	case selector < 0xFD:
		return uint64(selector), 1, nil
	case selector == 0xFD:
		if off+3 > len(b) {
			return 0, 0, fmt.Errorf("primitives: varint: truncated 2-byte payload")
		}
		return uint64(binary.LittleEndian.Uint16(b[off+1 : off+3])), 3, nil
	case selector == 0xFE:
		if off+5 > len(b) {
			return 0, 0, fmt.Errorf("primitives: varint: truncated 4-byte payload")
		}
		return uint64(binary.LittleEndian.Uint32(b[off+1 : off+5])), 5, nil
	default: // 0xFF
		if off+9 > len(b) {
			return 0, 0, fmt.Errorf("primitives: varint: truncated 8-byte payload")
		}
		return binary.LittleEndian.Uint64(b[off+1 : off+9]), 9, nil
	}
}
