package primitives

import (
	"math/big"

	"github.com/lantr-io/binocular/internal/oracleerr"
)

// MainNetPowLimit is the highest proof-of-work target the frozen mainnet
// parameter set permits: 2^224 - 1 (spec.md §6). Its compact form,
// 0x1d00ffff, is lossy: it decodes to 0xffff * 256^26, the largest
// compact-representable target not above this limit. consensus.MainNetParams()
// uses this as its Params.PowLimit; every decode/validate function in this
// file takes its limit as an explicit argument instead of reading a
// package-level constant, so test code can exercise the same logic against
// a looser limit without mining at real mainnet difficulty.
var MainNetPowLimit = func() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 224)
	return limit.Sub(limit, big.NewInt(1))
}()

// CompactToBig converts the 4-byte "bits" compact difficulty encoding to its
// 256-bit big-integer target, matching Bitcoin Core's
// arith_uint256::SetCompact semantics for non-negative mantissas (spec.md
// §4.1). limit bounds the decoded target: callers pass
// consensus.Params.PowLimit so the same decoder serves both the frozen
// mainnet constant and a looser limit exercised by tests, rather than
// baking one network's PowLimit into the primitives package itself.
//
// The internal layout of bits, once decoded from its little-endian wire
// form, is [mantissa_lo, mantissa_mid, mantissa_hi, exponent] -- i.e. bits
// is itself a big-endian-style packed uint32 of the form
// 0xEEMMMMMM where EE is the exponent and MMMMMM is the 24-bit mantissa.
func CompactToBig(bits uint32, limit *big.Int) (*big.Int, error) {
	mantissa := bits & 0x007fffff
	isNegative := bits&0x00800000 != 0
	exponent := bits >> 24

	if isNegative {
		return nil, oracleerr.New(oracleerr.ErrBitsOutOfRange,
			"compact bits have the sign bit set")
	}

	m := big.NewInt(int64(mantissa))

	var target *big.Int
	if exponent < 3 {
		shift := uint(8 * (3 - exponent))
		target = new(big.Int).Rsh(m, shift)
	} else {
		// Overflow guards mirror spec.md §4.1 exactly: these are the
		// conditions under which m * 256^(e-3) would not fit the
		// representation Bitcoin Core itself accepts.
		if exponent > 34 {
			return nil, oracleerr.New(oracleerr.ErrBitsOutOfRange,
				"compact bits exponent too large")
		}
		if mantissa > 0xff && exponent > 33 {
			return nil, oracleerr.New(oracleerr.ErrBitsOutOfRange,
				"compact bits mantissa/exponent combination overflows")
		}
		if mantissa > 0xffff && exponent > 32 {
			return nil, oracleerr.New(oracleerr.ErrBitsOutOfRange,
				"compact bits mantissa/exponent combination overflows")
		}
		shift := uint(8 * (exponent - 3))
		target = new(big.Int).Lsh(m, shift)
	}

	if target.Cmp(limit) > 0 {
		return nil, oracleerr.New(oracleerr.ErrTargetAbovePowLimit,
			"decoded target exceeds PowLimit")
	}
	return target, nil
}

// BigToCompact is the left inverse of CompactToBig, used only to emit a new
// bits value at a retarget boundary (spec.md §4.1). It normalizes the
// mantissa's top bit the same way Bitcoin Core's arith_uint256::GetCompact
// does: if the most significant byte of the mantissa would have its own
// high bit set (which would be read back as the sign bit), the mantissa is
// shifted down a byte and the exponent bumped to compensate.
func BigToCompact(target *big.Int) uint32 {
	if target.Sign() == 0 {
		return 0
	}

	bytes := target.Bytes() // big-endian, no leading zeros
	exponent := uint32(len(bytes))

	var mantissa uint32
	switch {
	case exponent <= 3:
		// Left-pad into the low bytes of a 3-byte mantissa.
		var buf [3]byte
		copy(buf[3-len(bytes):], bytes)
		mantissa = uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	default:
		mantissa = uint32(bytes[0])<<16 | uint32(bytes[1])<<8 | uint32(bytes[2])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	return mantissa | exponent<<24
}

// CalcWork returns the "work" represented by block with the given compact
// difficulty bits: limit / target(bits) (spec.md §4.5 step 7, GLOSSARY
// "Chainwork"). It returns zero if bits decodes to an invalid or zero
// target, mirroring the teacher's treatment of pathological difficulty
// values as contributing no work rather than panicking.
func CalcWork(bits uint32, limit *big.Int) *big.Int {
	target, err := CompactToBig(bits, limit)
	if err != nil || target.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Div(limit, target)
}

// CheckProofOfWork reports whether hash, read as a little-endian 256-bit
// integer, is less than or equal to the target encoded by bits (spec.md §3
// I5, §4.2).
func CheckProofOfWork(hash Hash256, bits uint32, limit *big.Int) error {
	target, err := CompactToBig(bits, limit)
	if err != nil {
		return err
	}
	hashInt := HashToBig(hash)
	if hashInt.Cmp(target) > 0 {
		return oracleerr.New(oracleerr.ErrInvalidPoW,
			"block hash exceeds target encoded by bits")
	}
	return nil
}

// DiffBitsToUint256 is an alias of CompactToBig that drops the error and
// returns the zero target on failure, kept for parity with the naming used
// by the newer decred/dcrd staging primitives
// (internal/staging/primitives/pow_bench_test.go).
func DiffBitsToUint256(bits uint32, limit *big.Int) *big.Int {
	target, err := CompactToBig(bits, limit)
	if err != nil {
		return big.NewInt(0)
	}
	return target
}

// Uint256ToDiffBits is an alias of BigToCompact, kept for the same naming
// parity as DiffBitsToUint256.
func Uint256ToDiffBits(target *big.Int) uint32 {
	return BigToCompact(target)
}
