// Package forktree implements the bounded forest of unconfirmed branches
// above the confirmed tip (spec.md §4.5, C5): admission of new headers,
// branch extension, and canonical-chain selection by cumulative chainwork.
//
// The branch-list representation follows spec.md §9's resolution of the
// "sorted-map keyed by block hash" vs. "list of branches" design tension in
// favor of the latter, since it is the one that keeps each branch's own
// recentBlocks available for per-branch median-time-past. Structurally this
// plays the role the teacher's blockNode/blockIndex pair plays in
// blockchain/blockindex_test.go, but flattened into a forest of
// newest-first slices rather than a shared index of parent-linked nodes,
// since the oracle core never needs to walk more history than a branch's
// own recentBlocks holds.
package forktree

import (
	"math/big"

	"github.com/lantr-io/binocular/primitives"
)

// BlockSummary is the minimal record of an admitted (but not yet promoted)
// block that a ForkBranch needs to validate further extensions and to
// qualify the block for promotion (spec.md §3).
type BlockSummary struct {
	Hash      primitives.Hash256
	Height    int64
	Chainwork *big.Int
	Timestamp uint32
	Bits      uint32
	// AddedTime is the host-chain time at which this block was admitted,
	// used by promotion's ChallengeAging check (spec.md §4.7).
	AddedTime int64
}

// ForkBranch is one unconfirmed chain above the confirmed tip. RecentBlocks
// is ordered newest-first: RecentBlocks[0] is the tip, and for every
// adjacent pair (child, parent) child.Height == parent.Height+1. For a
// branch rooted at the confirmed tip, the last element's parent is the
// confirmed tip; a branch created at a fork point inside another branch
// holds only blocks from the fork point on, so its last element's parent is
// an interior block of that other branch.
type ForkBranch struct {
	TipHash      primitives.Hash256
	TipHeight    int64
	TipChainwork *big.Int
	RecentBlocks []BlockSummary
}

// ConfirmedTip carries the confirmed-chain facts the admission procedure
// needs when a submitted header's parent is the confirmed tip itself,
// rather than a block already sitting in the forks tree.
//
// Chainwork is the confirmed tip's cumulative work, not a proxy: spec.md
// §9's "Parent chainwork at the confirmed boundary" open question notes the
// source used compactBitsToTarget(currentTarget) as a stand-in. Binocular
// resolves it by persisting a real cumulative scalar on ChainState (see
// package oracle's ConfirmedChainwork field and DESIGN.md), so this field
// carries that persisted value rather than a recomputed proxy.
type ConfirmedTip struct {
	Hash      primitives.Hash256
	Height    int64
	Chainwork *big.Int
	Timestamp uint32
	Bits      uint32
	// RecentTimestamps is the confirmed chain's own descending timestamp
	// window, used for median-time-past when a submitted header's parent
	// is the confirmed tip.
	RecentTimestamps []int64
	// PreviousDifficultyAdjustmentTimestamp is the timestamp recorded at
	// the start of the confirmed tip's current retarget window.
	PreviousDifficultyAdjustmentTimestamp int64
}
