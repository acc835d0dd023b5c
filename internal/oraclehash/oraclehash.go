// Package oraclehash computes the advisory inputDatumHash spec.md §6
// defines: blake2b_256(cbor(prevState)). It is advisory only - §6 says a
// validator "MAY accept any value but SHOULD verify" it - so nothing in
// package oracle depends on this package; it exists for callers assembling
// or checking a redeemer outside the pure state transition.
//
// golang.org/x/crypto is already part of the teacher's own dependency
// graph (EXCCoin-exccd/equihash imports it for its Blake2b-based PoW), and
// core-coin-go-core carries a vendored blake2b implementation of its own;
// this package uses the former's x/crypto/blake2b directly rather than
// hand-rolling hashing the way the rest of this corpus never does.
package oraclehash

import (
	"golang.org/x/crypto/blake2b"

	"github.com/fxamacker/cbor/v2"
)

// Sum256 returns blake2b_256(cbor(v)) for any value fxamacker/cbor can
// marshal. A datum that is already CBOR-encoded, such as a ChainState datum
// from package wire, is passed as a cbor.RawMessage so its bytes are hashed
// as they are.
func Sum256(v any) ([32]byte, error) {
	encoded, err := cbor.Marshal(v)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(encoded), nil
}

// Verify reports whether claimed equals Sum256(v).
func Verify(v any, claimed [32]byte) (bool, error) {
	sum, err := Sum256(v)
	if err != nil {
		return false, err
	}
	return sum == claimed, nil
}
