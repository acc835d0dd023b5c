package consensus

import (
	"math/big"

	"github.com/decred/slog"
	"github.com/lantr-io/binocular/internal/oraclelog"
	"github.com/lantr-io/binocular/primitives"
)

// log is this package's logger, defaulting to a no-op. Set a backend with
// UseLogger.
var log = oraclelog.Disabled

// UseLogger sets the logger used by the consensus package.
func UseLogger(logger slog.Logger) {
	log = logger
}

// IsRetargetHeight reports whether the block at parentHeight+1 falls on a
// difficulty-retarget boundary (spec.md §4.3). Operator precedence matters
// here exactly as spec.md calls out: it is ((parentHeight+1) mod interval)
// == 0, not parentHeight+1 mod (interval == 0).
func IsRetargetHeight(parentHeight int64, params *Params) bool {
	return (parentHeight+1)%params.DifficultyAdjustmentInterval == 0
}

// CalcNextRequiredBits computes the difficulty bits required for the block
// that follows the block at parentHeight, given the current target
// (currentBits), the timestamp of that parent block (parentTime), and the
// timestamp recorded at the start of the current retarget window
// (windowStartTime, i.e. ChainState.previousDifficultyAdjustmentTimestamp).
//
// Outside of a retarget boundary the current bits simply carry forward
// (spec.md §4.3). At a retarget boundary the new target is the current
// target scaled by the clamped ratio of actual to expected window duration,
// capped at PowLimit, mirroring blockchain/difficulty.go's
// calcNextRequiredDifficulty in shape (old/new target logging via
// log.Debugf, min/max clamps) even though the arithmetic itself follows
// classic Bitcoin retargeting rather than Decred's DCP0001 algorithm -
// Decred retargets an exponentially weighted average of past windows for
// both PoW and stake difficulty, which has no analogue in spec.md's single
// linear-clamp rule.
func CalcNextRequiredBits(parentHeight int64, currentBits uint32, parentTime, windowStartTime int64, params *Params) (uint32, error) {
	if !IsRetargetHeight(parentHeight, params) {
		return currentBits, nil
	}

	currentTarget, err := primitives.CompactToBig(currentBits, params.PowLimit)
	if err != nil {
		return 0, err
	}

	span := parentTime - windowStartTime
	targetTimespan := params.TargetBlockTime * params.DifficultyAdjustmentInterval
	minSpan := targetTimespan / 4
	maxSpan := targetTimespan * 4
	if span < minSpan {
		span = minSpan
	}
	if span > maxSpan {
		span = maxSpan
	}

	newTarget := new(big.Int).Mul(currentTarget, big.NewInt(span))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))
	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	newBits := primitives.BigToCompact(newTarget)
	log.Debugf("difficulty retarget at height %d", parentHeight+1)
	log.Debugf("old target %#08x (%064x)", currentBits, currentTarget)
	log.Debugf("new target %#08x (%064x)", newBits, newTarget)
	return newBits, nil
}

// CalcPastMedianTime returns the median of recentTimestamps, which must
// already be sorted newest-first (descending), per spec.md §4.3. An empty
// slice returns the Bitcoin genesis epoch, matching spec.md's fallback.
func CalcPastMedianTime(recentTimestamps []int64, params *Params) int64 {
	if len(recentTimestamps) == 0 {
		return params.UnixEpoch
	}
	return recentTimestamps[len(recentTimestamps)/2]
}
