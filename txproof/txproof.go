// Package txproof implements the transaction-inclusion verifier (spec.md
// §4.8, C8): a small companion check, separate from the UpdateOracle state
// transition, that proves a transaction is included in a block that is
// itself included in the oracle's confirmed accumulator.
//
// Unlike package oracle's computeUpdateOracleState, this verifier is not
// part of the closed §7 error taxonomy the core rejects transitions with -
// it is a read-only query against an already-confirmed ChainState, so its
// failures are reported as plain errors naming which of the three checks
// failed, the same way blockchain/standalone/example_test.go's
// ExampleCalcMerkleRoot treats a mismatched root as an ordinary comparison
// rather than a consensus-rule violation.
package txproof

import (
	"errors"

	"github.com/lantr-io/binocular/header"
	"github.com/lantr-io/binocular/merkle"
	"github.com/lantr-io/binocular/primitives"
)

// ErrBlockNotInAccumulator indicates the block-in-accumulator proof does
// not recompute to confirmedBlocksTree's root.
var ErrBlockNotInAccumulator = errors.New("txproof: block hash not included in confirmed accumulator")

// ErrHeaderHashMismatch indicates the supplied header bytes do not hash to
// expectedBlockHash.
var ErrHeaderHashMismatch = errors.New("txproof: block header does not hash to expected block hash")

// ErrTxNotInBlock indicates the tx-in-block proof does not recompute to the
// header's merkle root.
var ErrTxNotInBlock = errors.New("txproof: transaction not included in block")

// Proof bundles everything the caller must supply to verify that a
// transaction is included in a block that is itself confirmed in
// confirmedBlocksTree (spec.md §4.8).
type Proof struct {
	// ExpectedTxHash is the Bitcoin transaction id, internal byte order.
	ExpectedTxHash primitives.Hash256
	// ExpectedBlockHash is the block hash the transaction is claimed to
	// belong to, internal byte order.
	ExpectedBlockHash primitives.Hash256
	// TxIndex is the transaction's position within the block.
	TxIndex uint64
	// TxMerkleProof is the sibling path from the transaction leaf up to
	// the block's classic transaction Merkle root.
	TxMerkleProof []primitives.Hash256
	// BlockIndex is the block's position (promotion order) within the
	// confirmed accumulator.
	BlockIndex uint64
	// BlockMerkleProof is the sibling path from the block-hash leaf up to
	// confirmedBlocksTree's root.
	BlockMerkleProof []primitives.Hash256
	// BlockHeaderBytes is the raw 80-byte header of ExpectedBlockHash.
	BlockHeaderBytes [header.Size]byte
}

// Verify runs all three checks spec.md §4.8 requires against
// confirmedBlocksTree (the oracle's rolling Merkle accumulator, recovered
// from ChainState), returning the first failing check as an error or nil if
// every check holds.
func Verify(proof Proof, confirmedBlocksTree merkle.Levels) error {
	accumulatorRoot := merkle.Root(confirmedBlocksTree)
	recomputedAccumulatorRoot := merkle.VerifyInclusionProof(proof.ExpectedBlockHash, proof.BlockIndex, proof.BlockMerkleProof)
	if recomputedAccumulatorRoot != accumulatorRoot {
		return ErrBlockNotInAccumulator
	}

	hdr, err := header.Parse(proof.BlockHeaderBytes[:])
	if err != nil {
		return err
	}
	if hdr.Hash() != proof.ExpectedBlockHash {
		return ErrHeaderHashMismatch
	}

	recomputedMerkleRoot := merkle.VerifyInclusionProof(proof.ExpectedTxHash, proof.TxIndex, proof.TxMerkleProof)
	if recomputedMerkleRoot != hdr.MerkleRoot() {
		return ErrTxNotInBlock
	}

	return nil
}
