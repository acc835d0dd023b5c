// Package oracle composes C2-C5 into the pure state-transition function
// computeUpdateOracleState (spec.md §4.6, C6) and implements promotion and
// garbage collection (spec.md §4.7, C7) on top of it.
//
// Nothing in this package performs I/O, reads a clock, or consults any
// source of randomness: every function here is a pure transformation of its
// arguments, mirroring the teacher's own blockchain.BestState/ProcessBlock
// split between "pure computation" and "the surrounding node that drives
// it" - this package is only the former.
package oracle

import (
	"math/big"

	"github.com/lantr-io/binocular/forktree"
	"github.com/lantr-io/binocular/merkle"
	"github.com/lantr-io/binocular/primitives"
)

// ChainState is the oracle datum (spec.md §3 "ChainState"): the confirmed
// scalars, the rolling Merkle accumulator over every promoted block hash,
// and the bounded forest of unconfirmed branches above the confirmed tip.
//
// ConfirmedChainwork resolves spec.md §9's open question on "parent
// chainwork at the confirmed boundary" in favor of persisting a real
// cumulative scalar (option (a) in the spec's own text) rather than using
// PowLimit/target(currentTarget) as a proxy for the confirmed tip's
// chainwork: the latter only approximates the true cumulative work already
// spent reaching the confirmed tip, while this field carries it exactly,
// the same way blockchain.BestState tracks a running ChainWork total rather
// than re-deriving it from the tip's bits alone.
type ChainState struct {
	// BlockHeight is the confirmed tip's height.
	BlockHeight int64
	// BlockHash is the confirmed tip's hash.
	BlockHash primitives.Hash256
	// CurrentTarget is the confirmed tip's bits, i.e. the difficulty that
	// applied to it (and, outside a retarget boundary, still applies to
	// its children).
	CurrentTarget uint32
	// BlockTimestamp is the confirmed tip's timestamp.
	BlockTimestamp uint32
	// RecentTimestamps holds up to MedianTimeSpan confirmed timestamps,
	// newest-first, descending (spec.md §3 I1).
	RecentTimestamps []int64
	// PreviousDifficultyAdjustmentTimestamp is the timestamp recorded at
	// the start of the confirmed tip's current retarget window.
	PreviousDifficultyAdjustmentTimestamp int64
	// ConfirmedChainwork is the cumulative chainwork of the confirmed tip.
	ConfirmedChainwork *big.Int

	// ConfirmedBlocksTree is the rolling Merkle accumulator's levels array
	// over every block hash ever promoted, in promotion order (spec.md §3
	// I6).
	ConfirmedBlocksTree merkle.Levels

	// ForksTree is the bounded forest of unconfirmed branches above the
	// confirmed tip (spec.md §3).
	ForksTree []forktree.ForkBranch
}

// confirmedTip projects the confirmed scalars of s into a
// forktree.ConfirmedTip, the shape forktree.AddBlockToForksTree expects as
// its parent-lookup anchor.
func (s ChainState) confirmedTip() forktree.ConfirmedTip {
	return forktree.ConfirmedTip{
		Hash:                                  s.BlockHash,
		Height:                                s.BlockHeight,
		Chainwork:                             s.ConfirmedChainwork,
		Timestamp:                             s.BlockTimestamp,
		Bits:                                  s.CurrentTarget,
		RecentTimestamps:                      s.RecentTimestamps,
		PreviousDifficultyAdjustmentTimestamp: s.PreviousDifficultyAdjustmentTimestamp,
	}
}
