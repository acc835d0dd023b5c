// Package consensus carries the frozen Bitcoin-consensus constants the
// oracle core validates against (spec.md §4.3, §6) and implements the
// difficulty-retarget and median-time-past half of C3 on top of them; the
// proof-of-work check itself is primitives.CheckProofOfWork.
//
// The Params type mirrors the role chaincfg.Params plays in the teacher:
// chaincfg.MainNetParams() groups a network's constants behind a single
// constructor rather than scattering package-level vars, so application
// code can look parameters up through one value (chaincfg/doc.go). Binocular
// only ever runs against one frozen parameter set, but the seam is kept so
// a future network variant does not require touching the validation
// functions themselves.
package consensus

import (
	"math/big"

	"github.com/lantr-io/binocular/primitives"
)

// Params groups the frozen consensus constants spec.md §6 requires the
// oracle to validate against.
type Params struct {
	// TargetBlockTime is the intended spacing between blocks, in seconds.
	TargetBlockTime int64

	// DifficultyAdjustmentInterval is the number of blocks between
	// retargets.
	DifficultyAdjustmentInterval int64

	// MaxFutureBlockTime bounds how far a header's timestamp may lie
	// beyond the environment-supplied current time, in seconds.
	MaxFutureBlockTime int64

	// MedianTimeSpan is the number of ancestor timestamps considered when
	// computing median-time-past.
	MedianTimeSpan int

	// PowLimit is the easiest allowed target.
	PowLimit *big.Int

	// PowLimitBits is PowLimit encoded in compact form.
	PowLimitBits uint32

	// MaturationConfirmations is the minimum depth (in blocks) a block
	// must reach before it may be promoted into the confirmed
	// accumulator.
	MaturationConfirmations int64

	// ChallengeAging is the minimum on-chain age (in seconds) a block
	// must reach before promotion.
	ChallengeAging int64

	// StaleCompetingForkAge is the age threshold (in seconds) used by the
	// "stale competing fork" garbage-collection rule.
	StaleCompetingForkAge int64

	// ChainworkGapThreshold is the multiplier used by the "stale
	// competing fork" garbage-collection rule.
	ChainworkGapThreshold int64

	// MaxForksTreeSize is the maximum number of branches retained in the
	// forks tree after any transition.
	MaxForksTreeSize int

	// TimeToleranceSeconds bounds the allowed skew between redeemerTime
	// and validityIntervalTime.
	TimeToleranceSeconds int64

	// UnixEpoch is the fallback median-time-past value used when there
	// are no recorded timestamps (the Bitcoin genesis block time).
	UnixEpoch int64

	// MinHeaderVersion is the minimum accepted header version.
	MinHeaderVersion uint32
}

// MainNetParams returns the single frozen parameter set Binocular validates
// against (spec.md §6).
func MainNetParams() *Params {
	return &Params{
		TargetBlockTime:               600,
		DifficultyAdjustmentInterval:  2016,
		MaxFutureBlockTime:            7200,
		MedianTimeSpan:                11,
		PowLimit:                      new(big.Int).Set(primitives.MainNetPowLimit),
		PowLimitBits:                  0x1d00ffff,
		MaturationConfirmations:       100,
		ChallengeAging:                200 * 60,
		StaleCompetingForkAge:         400 * 60,
		ChainworkGapThreshold:         10,
		MaxForksTreeSize:              180,
		TimeToleranceSeconds:          36 * 60 * 60,
		UnixEpoch:                     1231006505,
		MinHeaderVersion:              4,
	}
}
