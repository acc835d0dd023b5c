package forktree

import (
	"math/big"
	"testing"

	"github.com/lantr-io/binocular/consensus"
	"github.com/lantr-io/binocular/header"
	"github.com/lantr-io/binocular/internal/oracleerr"
	"github.com/lantr-io/binocular/primitives"
)

// testBits is a deliberately easy compact target (exponent 0x1f, mantissa
// 0x00ffff) used throughout this file so that fixture headers can be mined
// in a fraction of a second rather than at real mainnet difficulty. Using a
// custom, looser PowLimit for test fixtures mirrors how chaincfg keeps a
// SimNetParams/RegNetParams with relaxed proof-of-work specifically so
// tests do not have to mine at mainnet cost.
const testBits = 0x1f00ffff

func testParams() *consensus.Params {
	p := consensus.MainNetParams()
	mantissa := big.NewInt(0xffff)
	p.PowLimit = new(big.Int).Lsh(mantissa, 8*(0x1f-3))
	p.PowLimitBits = testBits
	return p
}

func mustParseHeader(t *testing.T, hexRaw string) header.BlockHeader {
	t.Helper()
	b, err := hexDecode(hexRaw)
	if err != nil {
		t.Fatalf("invalid fixture hex: %v", err)
	}
	h, err := header.Parse(b)
	if err != nil {
		t.Fatalf("header.Parse: %v", err)
	}
	return h
}

// hexDecode avoids importing encoding/hex at the package level just for
// test fixtures; kept local and trivial.
func hexDecode(s string) ([]byte, error) {
	out := make([]byte, len(s)/2)
	for i := range out {
		var hi, lo byte
		hi = hexNibble(s[2*i])
		lo = hexNibble(s[2*i+1])
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

// Fixture headers, mined offline against testBits's easy target:
//
//	h1: parent is the all-zero confirmed-tip stand-in, timestamp 1700000000
//	h2: canonical extension of h1, timestamp 1700000600
//	h2b: a fork sibling of h2, also parented on h1, timestamp 1700000500
//	h2BadVersion: parented on h1, version 3 (below MinHeaderVersion)
const (
	h1Raw = "040000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000f15365ffff001fe7100200"
	h2Raw = "04000000647fef4ba4413f709631443d576544f61d7b37f1403e48844207bfd063550000000000000000000000000000000000000000000000000000000000000000000058f35365ffff001fb5f90000"
	h2bRaw = "04000000647fef4ba4413f709631443d576544f61d7b37f1403e48844207bfd0635500001111111111111111111111111111111111111111111111111111111111111111f4f25365ffff001feb9d0100"
	h2BadVersionRaw = "03000000647fef4ba4413f709631443d576544f61d7b37f1403e48844207bfd063550000222222222222222222222222222222222222222222222222222222222222222258f35365ffff001f9c600200"
)

// confirmedTipHeight is chosen so that parentHeight+1 does not fall on a
// difficulty-retarget boundary (500001 % 2016 != 0), so admitting h1 off
// this stand-in confirmed tip carries testBits forward unchanged instead of
// recomputing a retarget.
const confirmedTipHeight = 500000

func zeroConfirmedTip(params *consensus.Params) ConfirmedTip {
	return ConfirmedTip{
		Hash:                                  primitives.Hash256{},
		Height:                                confirmedTipHeight,
		Chainwork:                             big.NewInt(0),
		Timestamp:                             0,
		Bits:                                  testBits,
		RecentTimestamps:                      nil,
		PreviousDifficultyAdjustmentTimestamp: 0,
	}
}

func TestAddBlockToForksTreeRootsNewBranchAtConfirmedTip(t *testing.T) {
	params := testParams()
	h1 := mustParseHeader(t, h1Raw)
	confirmed := zeroConfirmedTip(params)

	branches, summary, err := AddBlockToForksTree(nil, h1, confirmed, 1700000000+params.MaxFutureBlockTime, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Height != confirmedTipHeight+1 {
		t.Fatalf("summary.Height = %d, want %d", summary.Height, confirmedTipHeight+1)
	}
	if len(branches) != 1 || len(branches[0].RecentBlocks) != 1 {
		t.Fatalf("expected exactly one branch of length 1, got %+v", branches)
	}
	if branches[0].TipHash != h1.Hash() {
		t.Fatalf("branch tip hash mismatch")
	}
}

func TestAddBlockToForksTreeExtendsExistingTip(t *testing.T) {
	params := testParams()
	h1 := mustParseHeader(t, h1Raw)
	h2 := mustParseHeader(t, h2Raw)
	confirmed := zeroConfirmedTip(params)

	branches, _, err := AddBlockToForksTree(nil, h1, confirmed, 1700000700, params)
	if err != nil {
		t.Fatalf("unexpected error on h1: %v", err)
	}
	branches, summary, err := AddBlockToForksTree(branches, h2, confirmed, 1700000700, params)
	if err != nil {
		t.Fatalf("unexpected error on h2: %v", err)
	}
	if len(branches) != 1 {
		t.Fatalf("expected a single branch after extending its tip, got %d", len(branches))
	}
	if summary.Height != confirmedTipHeight+2 {
		t.Fatalf("summary.Height = %d, want %d", summary.Height, confirmedTipHeight+2)
	}
	if len(branches[0].RecentBlocks) != 2 {
		t.Fatalf("expected 2 recent blocks, got %d", len(branches[0].RecentBlocks))
	}
	if branches[0].RecentBlocks[0].Hash != h2.Hash() || branches[0].RecentBlocks[1].Hash != h1.Hash() {
		t.Fatalf("recentBlocks not newest-first as expected")
	}
}

func TestAddBlockToForksTreeForksInteriorCreatesNewBranch(t *testing.T) {
	params := testParams()
	h1 := mustParseHeader(t, h1Raw)
	h2 := mustParseHeader(t, h2Raw)
	h2b := mustParseHeader(t, h2bRaw)
	confirmed := zeroConfirmedTip(params)

	branches, _, err := AddBlockToForksTree(nil, h1, confirmed, 1700000700, params)
	if err != nil {
		t.Fatalf("unexpected error on h1: %v", err)
	}
	branches, _, err = AddBlockToForksTree(branches, h2, confirmed, 1700000700, params)
	if err != nil {
		t.Fatalf("unexpected error on h2: %v", err)
	}
	// h2b's parent (h1) is now interior to the branch [h2, h1]: this
	// should create an independent second branch rather than extending
	// the first.
	branches, summary, err := AddBlockToForksTree(branches, h2b, confirmed, 1700000700, params)
	if err != nil {
		t.Fatalf("unexpected error on h2b: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("expected two branches after an interior fork, got %d", len(branches))
	}
	if summary.Height != confirmedTipHeight+2 {
		t.Fatalf("summary.Height = %d, want %d", summary.Height, confirmedTipHeight+2)
	}
	if len(branches[1].RecentBlocks) != 1 {
		t.Fatalf("new fork branch should not copy the shared prefix, got %d blocks", len(branches[1].RecentBlocks))
	}
}

func TestAddBlockToForksTreeRejectsUnknownParent(t *testing.T) {
	params := testParams()
	h2 := mustParseHeader(t, h2Raw) // parent is h1, which is not in the forest
	confirmed := zeroConfirmedTip(params)

	_, _, err := AddBlockToForksTree(nil, h2, confirmed, 1700000700, params)
	var ruleErr oracleerr.RuleError
	if rerr, ok := err.(oracleerr.RuleError); !ok || rerr.ErrorCode != oracleerr.ErrUnknownParent {
		t.Fatalf("err = %v, want ErrUnknownParent (ruleErr=%v ok=%v)", err, ruleErr, ok)
	}
}

func TestAddBlockToForksTreeRejectsOutdatedVersion(t *testing.T) {
	params := testParams()
	h1 := mustParseHeader(t, h1Raw)
	h2v := mustParseHeader(t, h2BadVersionRaw)
	confirmed := zeroConfirmedTip(params)

	branches, _, err := AddBlockToForksTree(nil, h1, confirmed, 1700000700, params)
	if err != nil {
		t.Fatalf("unexpected error on h1: %v", err)
	}
	_, _, err = AddBlockToForksTree(branches, h2v, confirmed, 1700000700, params)
	if rerr, ok := err.(oracleerr.RuleError); !ok || rerr.ErrorCode != oracleerr.ErrOutdatedVersion {
		t.Fatalf("err = %v, want ErrOutdatedVersion", err)
	}
}

func TestSelectCanonicalChainPicksMaxChainworkFirstEncounteredTie(t *testing.T) {
	a := ForkBranch{TipHash: primitives.Hash256{0x01}, TipChainwork: big.NewInt(5)}
	b := ForkBranch{TipHash: primitives.Hash256{0x02}, TipChainwork: big.NewInt(9)}
	c := ForkBranch{TipHash: primitives.Hash256{0x03}, TipChainwork: big.NewInt(9)}

	idx, ok := SelectCanonicalChain([]ForkBranch{a, b, c})
	if !ok {
		t.Fatalf("expected ok")
	}
	if idx != 1 {
		t.Fatalf("idx = %d, want 1 (first-encountered tie winner)", idx)
	}
}

func TestSelectCanonicalChainEmptyIsNotOK(t *testing.T) {
	if _, ok := SelectCanonicalChain(nil); ok {
		t.Fatalf("expected ok=false for empty forest")
	}
}

func TestExtendBranchPrependsAndUpdatesTip(t *testing.T) {
	base := ForkBranch{
		TipHash:      primitives.Hash256{0x01},
		TipHeight:    10,
		TipChainwork: big.NewInt(100),
		RecentBlocks: []BlockSummary{{Hash: primitives.Hash256{0x01}, Height: 10, Chainwork: big.NewInt(100)}},
	}
	next := BlockSummary{Hash: primitives.Hash256{0x02}, Height: 11, Chainwork: big.NewInt(101)}
	extended := ExtendBranch(base, next)

	if extended.TipHash != next.Hash || extended.TipHeight != 11 {
		t.Fatalf("tip not updated: %+v", extended)
	}
	if len(extended.RecentBlocks) != 2 || extended.RecentBlocks[0].Hash != next.Hash {
		t.Fatalf("expected newest-first prepend, got %+v", extended.RecentBlocks)
	}
	// original branch must be unmodified (no aliasing).
	if len(base.RecentBlocks) != 1 {
		t.Fatalf("ExtendBranch mutated its input branch")
	}
}

func TestCheckSubmissionShapeRejectsDuplicate(t *testing.T) {
	h1 := mustParseHeader(t, h1Raw)
	err := CheckSubmissionShape([]header.BlockHeader{h1, h1}, nil, primitives.Hash256{})
	if rerr, ok := err.(oracleerr.RuleError); !ok || rerr.ErrorCode != oracleerr.ErrDuplicateInBatch {
		t.Fatalf("err = %v, want ErrDuplicateInBatch", err)
	}
}

func TestCheckSubmissionShapeRejectsForkOnlySubmission(t *testing.T) {
	h2 := mustParseHeader(t, h2Raw) // prevHash = h1, not the confirmed tip
	err := CheckSubmissionShape([]header.BlockHeader{h2}, nil, primitives.Hash256{})
	if rerr, ok := err.(oracleerr.RuleError); !ok || rerr.ErrorCode != oracleerr.ErrMissingCanonicalExtension {
		t.Fatalf("err = %v, want ErrMissingCanonicalExtension", err)
	}
}

func TestCheckSubmissionShapeAcceptsChainedCanonicalExtensions(t *testing.T) {
	h1 := mustParseHeader(t, h1Raw)
	h2 := mustParseHeader(t, h2Raw)
	// h1 extends the confirmed (zero) tip, h2 extends h1: a two-block
	// canonical batch, no forest yet.
	err := CheckSubmissionShape([]header.BlockHeader{h1, h2}, nil, primitives.Hash256{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckSubmissionShapeAcceptsForkAlongsideCanonicalExtension(t *testing.T) {
	h1 := mustParseHeader(t, h1Raw)
	h2 := mustParseHeader(t, h2Raw)
	h2b := mustParseHeader(t, h2bRaw)
	// branches already contains a tip at h1; h2 extends it canonically,
	// h2b forks off the same parent in the same batch.
	branches := []ForkBranch{{
		TipHash:      h1.Hash(),
		TipHeight:    0,
		TipChainwork: big.NewInt(1),
		RecentBlocks: []BlockSummary{{Hash: h1.Hash(), Height: 0, Chainwork: big.NewInt(1)}},
	}}
	err := CheckSubmissionShape([]header.BlockHeader{h2, h2b}, branches, primitives.Hash256{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindBranchLocatesInteriorBlock(t *testing.T) {
	h1 := primitives.Hash256{0x01}
	h2 := primitives.Hash256{0x02}
	branches := []ForkBranch{{
		TipHash:      h2,
		TipHeight:    1,
		TipChainwork: big.NewInt(2),
		RecentBlocks: []BlockSummary{
			{Hash: h2, Height: 1, Chainwork: big.NewInt(2)},
			{Hash: h1, Height: 0, Chainwork: big.NewInt(1)},
		},
	}}

	idx, summary, isTip, found := FindBranch(branches, h1)
	if !found || isTip || idx != 0 {
		t.Fatalf("FindBranch(interior) = idx %d isTip %v found %v", idx, isTip, found)
	}
	if summary.Hash != h1 {
		t.Fatalf("summary.Hash mismatch")
	}

	_, _, isTip, found = FindBranch(branches, h2)
	if !found || !isTip {
		t.Fatalf("FindBranch(tip) = isTip %v found %v, want true/true", isTip, found)
	}

	_, _, _, found = FindBranch(branches, primitives.Hash256{0x99})
	if found {
		t.Fatalf("FindBranch(unknown) found = true, want false")
	}
}
