package oracle

import (
	"math/big"

	"github.com/lantr-io/binocular/consensus"
	"github.com/lantr-io/binocular/forktree"
	"github.com/lantr-io/binocular/header"
	"github.com/lantr-io/binocular/internal/oracleerr"
	"github.com/lantr-io/binocular/merkle"
)

// ComputeUpdateOracleState is the pure state-transition function spec.md
// §4.6 names computeUpdateOracleState: given the previous confirmed oracle
// state, a non-empty batch of candidate headers, and the environment's
// current time, it folds every header through the fork tree (C5), promotes
// and garbage-collects the result (C7), and returns the next ChainState.
//
// No argument is mutated: prev's slices are never written through, and the
// returned ChainState shares no backing array with prev that this function
// still writes to.
func ComputeUpdateOracleState(prev ChainState, headers []header.BlockHeader, currentTime int64, params *consensus.Params) (ChainState, error) {
	if err := forktree.CheckSubmissionShape(headers, prev.ForksTree, prev.BlockHash); err != nil {
		return ChainState{}, err
	}
	if len(headers) == 0 {
		return ChainState{}, oracleerr.New(oracleerr.ErrEmptySubmission, "headers submission is empty")
	}

	confirmedTip := prev.confirmedTip()
	// Copy so that in-place branch updates never write through prev.ForksTree.
	branches := append([]forktree.ForkBranch(nil), prev.ForksTree...)
	for _, hdr := range headers {
		var err error
		branches, _, err = forktree.AddBlockToForksTree(branches, hdr, confirmedTip, currentTime, params)
		if err != nil {
			return ChainState{}, err
		}
	}

	canonicalIdx, hasCanonical := forktree.SelectCanonicalChain(branches)

	var (
		promoted []forktree.BlockSummary
		forest   = branches
	)
	if hasCanonical {
		promoted, forest = Promote(branches, canonicalIdx, currentTime, params)
		if len(forest) > params.MaxForksTreeSize {
			// canonicalIdx may have shifted if the canonical branch was
			// entirely consumed by promotion and removed; re-resolve it
			// against the post-promotion forest.
			newCanonicalIdx, ok := forktree.SelectCanonicalChain(forest)
			if ok {
				confirmedHeight := prev.BlockHeight
				if len(promoted) > 0 {
					confirmedHeight = promoted[len(promoted)-1].Height
				}
				forest = GarbageCollect(forest, newCanonicalIdx, confirmedHeight, currentTime, params)
			}
		}
	}

	if len(promoted) == 0 {
		return ChainState{
			BlockHeight:                            prev.BlockHeight,
			BlockHash:                               prev.BlockHash,
			CurrentTarget:                           prev.CurrentTarget,
			BlockTimestamp:                          prev.BlockTimestamp,
			RecentTimestamps:                        prev.RecentTimestamps,
			PreviousDifficultyAdjustmentTimestamp:    prev.PreviousDifficultyAdjustmentTimestamp,
			ConfirmedChainwork:                       prev.ConfirmedChainwork,
			ConfirmedBlocksTree:                      prev.ConfirmedBlocksTree,
			ForksTree:                                forest,
		}, nil
	}

	latest := promoted[len(promoted)-1]

	// merkle.Append updates slots in place, so append onto a copy.
	confirmedBlocksTree := appendPromotedHashes(append(merkle.Levels(nil), prev.ConfirmedBlocksTree...), promoted)

	recentTimestamps := recomputeRecentTimestamps(prev.RecentTimestamps, promoted, params.MedianTimeSpan)
	prevAdjTimestamp := recomputePreviousDifficultyAdjustmentTimestamp(prev, promoted, params)

	next := ChainState{
		BlockHeight:                            latest.Height,
		BlockHash:                               latest.Hash,
		CurrentTarget:                           latest.Bits,
		BlockTimestamp:                          latest.Timestamp,
		RecentTimestamps:                        recentTimestamps,
		PreviousDifficultyAdjustmentTimestamp:   prevAdjTimestamp,
		ConfirmedChainwork:                      new(big.Int).Set(latest.Chainwork),
		ConfirmedBlocksTree:                     confirmedBlocksTree,
		ForksTree:                               forest,
	}
	return next, nil
}

// appendPromotedHashes extends levels with every promoted block's hash, in
// order from oldest to newest (spec.md §4.6 step 7). Promote already
// returns promoted in that order.
func appendPromotedHashes(levels merkle.Levels, promoted []forktree.BlockSummary) merkle.Levels {
	for _, b := range promoted {
		levels = merkle.Append(levels, b.Hash)
	}
	return levels
}

// recomputeRecentTimestamps rebuilds the up-to-MedianTimeSpan newest-first
// confirmed timestamp window after promotion (spec.md §9 open question,
// resolved here as a requirement rather than left as "SHOULD"): the newly
// promoted blocks' timestamps, newest promoted first, followed by as many
// of the previously confirmed timestamps as are needed to fill the window.
func recomputeRecentTimestamps(prevTimestamps []int64, promoted []forktree.BlockSummary, span int) []int64 {
	out := make([]int64, 0, span)
	for i := len(promoted) - 1; i >= 0 && len(out) < span; i-- {
		out = append(out, int64(promoted[i].Timestamp))
	}
	for _, ts := range prevTimestamps {
		if len(out) >= span {
			break
		}
		out = append(out, ts)
	}
	return out
}

// recomputePreviousDifficultyAdjustmentTimestamp determines the timestamp
// recorded at the start of the new confirmed tip's retarget window. Because
// promoted blocks form a height-contiguous prefix starting at
// prev.BlockHeight+1, the timestamp of any particular height within that
// range can be read directly off promoted without needing to re-walk the
// whole confirmed chain.
func recomputePreviousDifficultyAdjustmentTimestamp(prev ChainState, promoted []forktree.BlockSummary, params *consensus.Params) int64 {
	newHeight := promoted[len(promoted)-1].Height
	interval := params.DifficultyAdjustmentInterval
	newWindowStart := (newHeight / interval) * interval
	oldWindowStart := (prev.BlockHeight / interval) * interval

	if newWindowStart <= oldWindowStart || newWindowStart <= prev.BlockHeight {
		return prev.PreviousDifficultyAdjustmentTimestamp
	}

	idx := newWindowStart - (prev.BlockHeight + 1)
	if idx < 0 || int(idx) >= len(promoted) {
		return prev.PreviousDifficultyAdjustmentTimestamp
	}
	return int64(promoted[idx].Timestamp)
}
