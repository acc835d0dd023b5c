package consensus

import (
	"math/big"
	"testing"

	"github.com/lantr-io/binocular/primitives"
)

func TestIsRetargetHeight(t *testing.T) {
	params := MainNetParams()
	// (parentHeight+1) % 2016 == 0
	tests := []struct {
		parentHeight int64
		want         bool
	}{
		{2015, true}, // next height 2016
		{4031, true}, // next height 4032
		{0, false},
		{2014, false},
		{2016, false},
	}
	for _, test := range tests {
		if got := IsRetargetHeight(test.parentHeight, params); got != test.want {
			t.Errorf("IsRetargetHeight(%d) = %v, want %v", test.parentHeight, got, test.want)
		}
	}
}

func TestCalcNextRequiredBitsCarriesForwardOffRetarget(t *testing.T) {
	params := MainNetParams()
	bits, err := CalcNextRequiredBits(100, 0x1d00ffff, 1000, 0, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bits != 0x1d00ffff {
		t.Fatalf("bits = %#x, want unchanged %#x", bits, 0x1d00ffff)
	}
}

func TestCalcNextRequiredBitsAtRetarget(t *testing.T) {
	params := MainNetParams()
	parentHeight := int64(2015) // next height 2016, a retarget boundary
	windowStart := int64(0)
	targetSpan := params.TargetBlockTime * params.DifficultyAdjustmentInterval
	parentTime := windowStart + targetSpan // exactly on schedule -> no change

	bits, err := CalcNextRequiredBits(parentHeight, params.PowLimitBits, parentTime, windowStart, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An on-schedule span scales the target by exactly 1, so the result
	// is the same 0x1d00ffff target, which lies below PowLimit and needs
	// no clamping; check that it decodes to a valid target within PowLimit.
	target, err := primitives.CompactToBig(bits, params.PowLimit)
	if err != nil {
		t.Fatalf("decoded bits invalid: %v", err)
	}
	if target.Cmp(params.PowLimit) > 0 {
		t.Fatalf("retargeted target exceeds PowLimit")
	}
}

func TestCalcNextRequiredBitsClampsSpan(t *testing.T) {
	params := MainNetParams()
	parentHeight := int64(2015)
	windowStart := int64(0)
	targetSpan := params.TargetBlockTime * params.DifficultyAdjustmentInterval

	// Span way too short (blocks mined far too fast) should clamp to
	// targetSpan/4, making the new target a quarter of the old one.
	parentTime := int64(1) // span=1s, clamped to targetSpan/4
	oldBits := uint32(0x1b0404cb)
	oldTarget, _ := primitives.CompactToBig(oldBits, params.PowLimit)

	bits, err := CalcNextRequiredBits(parentHeight, oldBits, parentTime, windowStart, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newTarget, _ := primitives.CompactToBig(bits, params.PowLimit)

	expected := new(big.Int).Mul(oldTarget, big.NewInt(targetSpan/4))
	expected.Div(expected, big.NewInt(targetSpan))

	// BigToCompact loses precision, so compare via round trip instead of
	// exact equality.
	got := new(big.Int).Set(newTarget)
	diff := new(big.Int).Sub(got, expected)
	diff.Abs(diff)
	// allow a small rounding tolerance relative to magnitude
	tolerance := new(big.Int).Rsh(expected, 16)
	if diff.Cmp(tolerance) > 0 {
		t.Fatalf("clamped target too far from expected: got %s, want ~%s", got, expected)
	}
}

func TestCalcPastMedianTime(t *testing.T) {
	params := MainNetParams()
	tests := []struct {
		name       string
		timestamps []int64
		want       int64
	}{
		{"empty", nil, params.UnixEpoch},
		{"one", []int64{100}, 100},
		{"descending eleven", []int64{
			1517189371, 1517189311, 1517189251, 1517189191, 1517189131,
			1517189071, 1517189011, 1517188951, 1517188891, 1517188831,
			1517188771,
		}, 1517189071},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := CalcPastMedianTime(test.timestamps, params); got != test.want {
				t.Errorf("CalcPastMedianTime() = %d, want %d", got, test.want)
			}
		})
	}
}
