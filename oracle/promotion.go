package oracle

import (
	"math/big"

	"github.com/decred/slog"
	"github.com/lantr-io/binocular/consensus"
	"github.com/lantr-io/binocular/forktree"
	"github.com/lantr-io/binocular/internal/oraclelog"
	"github.com/lantr-io/binocular/primitives"
)

// log is this package's logger, defaulting to a no-op. Set a backend with
// UseLogger.
var log = oraclelog.Disabled

// UseLogger sets the logger used by the oracle package.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Promote walks the canonical branch from oldest to newest and removes its
// qualifying prefix (spec.md §4.7), returning the promoted summaries
// oldest-first (the order confirmedBlocksTree must be extended in, spec.md
// §4.6 step 7) and the branches slice with that prefix removed.
//
// canonicalIdx indexes into branches; if the canonical branch's entire
// recentBlocks is promoted, the branch itself is dropped from the returned
// slice rather than left behind empty.
func Promote(branches []forktree.ForkBranch, canonicalIdx int, currentTime int64, params *consensus.Params) (promoted []forktree.BlockSummary, updated []forktree.ForkBranch) {
	if len(branches) == 0 {
		return nil, branches
	}
	canonical := branches[canonicalIdx]
	recentBlocks := canonical.RecentBlocks
	n := len(recentBlocks)

	// cut is the newest index still kept in the forest; everything with a
	// higher index (recentBlocks is newest-first, so a higher index means
	// older) has qualified and is promoted. Walking from the tail (index
	// n-1, the oldest block) toward 0 is "oldest to newest".
	cut := n - 1
	for cut >= 0 {
		b := recentBlocks[cut]
		depth := canonical.TipHeight - b.Height
		age := currentTime - b.AddedTime
		if depth >= params.MaturationConfirmations && age >= params.ChallengeAging {
			cut--
			continue
		}
		break
	}

	if cut == n-1 {
		return nil, branches
	}

	promoted = make([]forktree.BlockSummary, 0, n-1-cut)
	for i := n - 1; i > cut; i-- {
		promoted = append(promoted, recentBlocks[i])
	}
	log.Debugf("promoting %d blocks from branch %d, heights %d..%d",
		len(promoted), canonicalIdx, promoted[0].Height, promoted[len(promoted)-1].Height)

	updated = make([]forktree.ForkBranch, 0, len(branches))
	for i, b := range branches {
		if i != canonicalIdx {
			updated = append(updated, b)
			continue
		}
		if cut < 0 {
			// The entire branch was promoted; it no longer exists in the
			// forest.
			continue
		}
		remaining := make([]forktree.BlockSummary, cut+1)
		copy(remaining, recentBlocks[:cut+1])
		updated = append(updated, forktree.ForkBranch{
			TipHash:      b.TipHash,
			TipHeight:    b.TipHeight,
			TipChainwork: b.TipChainwork,
			RecentBlocks: remaining,
		})
	}
	return promoted, updated
}

// GarbageCollect enforces spec.md §4.7's bounded-forest discipline. It is
// only meaningful to call once |branches| > params.MaxForksTreeSize; it
// first removes any non-canonical branch matching one of the three aging
// rules, then, if still oversize, keeps only the top MaxForksTreeSize
// branches by TipChainwork.
func GarbageCollect(branches []forktree.ForkBranch, canonicalIdx int, confirmedHeight int64, currentTime int64, params *consensus.Params) []forktree.ForkBranch {
	if len(branches) <= params.MaxForksTreeSize {
		return branches
	}
	canonical := branches[canonicalIdx]

	// The "stale competing fork" rule's unit of chainwork, spec.md §4.7:
	// PowLimit/target(0x1d00ffff), computed against this parameter set's
	// own PowLimit rather than a hard-coded real-mainnet constant so the
	// rule still behaves sensibly against a looser test PowLimit.
	gapUnit := primitives.CalcWork(0x1d00ffff, params.PowLimit)

	kept := make([]forktree.ForkBranch, 0, len(branches))
	var keptCanonicalIdx int
	for i, b := range branches {
		if i == canonicalIdx {
			keptCanonicalIdx = len(kept)
			kept = append(kept, b)
			continue
		}
		if shouldGarbageCollect(b, canonical, confirmedHeight, currentTime, params, gapUnit) {
			log.Debugf("garbage collecting branch tip %x at height %d", b.TipHash, b.TipHeight)
			continue
		}
		kept = append(kept, b)
	}

	if len(kept) <= params.MaxForksTreeSize {
		return kept
	}
	return keepTopByChainwork(kept, keptCanonicalIdx, params.MaxForksTreeSize)
}

// shouldGarbageCollect applies spec.md §4.7's three removal rules to a
// single non-canonical branch b.
func shouldGarbageCollect(b, canonical forktree.ForkBranch, confirmedHeight, currentTime int64, params *consensus.Params, gapUnit *big.Int) bool {
	oldestBlock := b.RecentBlocks[len(b.RecentBlocks)-1]
	age := currentTime - oldestBlock.AddedTime
	chainworkGap := new(big.Int).Sub(canonical.TipChainwork, b.TipChainwork)

	// Old dead fork.
	heightGap := canonical.TipHeight - b.TipHeight
	if heightGap >= 100 && age >= params.ChallengeAging {
		return true
	}

	// Stale competing fork.
	if gapUnit.Sign() > 0 {
		threshold := new(big.Int).Mul(gapUnit, big.NewInt(params.ChainworkGapThreshold))
		if age >= params.StaleCompetingForkAge && chainworkGap.Cmp(threshold) >= 0 {
			return true
		}
	}

	// Long competing fork past challenge.
	if age >= params.ChallengeAging && b.TipHeight >= confirmedHeight+params.MaturationConfirmations && chainworkGap.Sign() > 0 {
		return true
	}

	return false
}

// keepTopByChainwork returns the params.MaxForksTreeSize branches with the
// highest TipChainwork, always retaining the branch at canonicalIdx (the
// canonical chain is never garbage collected, spec.md §4.7 only ever
// removes "non-canonical" branches).
func keepTopByChainwork(branches []forktree.ForkBranch, canonicalIdx, limit int) []forktree.ForkBranch {
	if len(branches) <= limit {
		return branches
	}

	order := make([]int, len(branches))
	for i := range order {
		order[i] = i
	}
	// Simple insertion sort by descending TipChainwork: forest sizes are
	// bounded by MaxForksTreeSize (180) so an O(n^2) sort never approaches
	// a performance concern, and it keeps ties in original (stable) order
	// matching selectCanonicalChain's own tie-break discipline.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && branches[order[j]].TipChainwork.Cmp(branches[order[j-1]].TipChainwork) > 0 {
			order[j], order[j-1] = order[j-1], order[j]
			j--
		}
	}

	keepIdx := make(map[int]struct{}, limit)
	keepIdx[canonicalIdx] = struct{}{}
	for _, idx := range order {
		if len(keepIdx) >= limit {
			break
		}
		keepIdx[idx] = struct{}{}
	}

	out := make([]forktree.ForkBranch, 0, limit)
	for i, b := range branches {
		if _, ok := keepIdx[i]; ok {
			out = append(out, b)
		}
	}
	return out
}
