// Package wire implements the CBOR encodings spec.md §6 fixes for the
// redeemer (action) and datum (ChainState) that cross the boundary between
// a host chain and the pure oracle core.
//
// Both shapes are plain CBOR: the redeemer is a tagged union with a single
// current member, UpdateOracle, and the datum is ChainState's field-by-field
// encoding. fxamacker/cbor/v2 is the only CBOR library any example repo in
// this corpus references (other_examples/manifests/arejula27-p2pool-go's
// go.mod); no pack repo implements a tagged union of its own; the shape
// here follows spec.md §9's "tagged-union redeemer" design note directly.
package wire

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/lantr-io/binocular/forktree"
	"github.com/lantr-io/binocular/header"
	"github.com/lantr-io/binocular/merkle"
	"github.com/lantr-io/binocular/oracle"
	"github.com/lantr-io/binocular/primitives"
)

// ActionTag is the stable discriminant spec.md §9 requires for the
// redeemer's closed sum type. UpdateOracle is presently its only member;
// the tag still gets its own field so a future member never has to
// renumber it.
type ActionTag uint8

// UpdateOracleTag is the only member of the Action union today.
const UpdateOracleTag ActionTag = 0

// Action is the redeemer wire shape (spec.md §6). Tag selects which of the
// optional payload fields is populated; today that is always Update.
type Action struct {
	Tag    ActionTag       `cbor:"1,keyasint"`
	Update *UpdateOraclePayload `cbor:"2,keyasint,omitempty"`
}

// UpdateOraclePayload is the UpdateOracle action's payload (spec.md §6):
// the candidate header batch, the host's current time, and an advisory
// hash of the consumed input datum.
type UpdateOraclePayload struct {
	BlockHeaders    []header.BlockHeader `cbor:"1,keyasint"`
	CurrentTime     int64                `cbor:"2,keyasint"`
	InputDatumHash  primitives.Hash256   `cbor:"3,keyasint"`
}

// NewUpdateOracleAction builds the single Action member this core ever
// emits or consumes.
func NewUpdateOracleAction(blockHeaders []header.BlockHeader, currentTime int64, inputDatumHash primitives.Hash256) Action {
	return Action{
		Tag: UpdateOracleTag,
		Update: &UpdateOraclePayload{
			BlockHeaders:   blockHeaders,
			CurrentTime:    currentTime,
			InputDatumHash: inputDatumHash,
		},
	}
}

// MarshalAction encodes a redeemer Action to CBOR.
func MarshalAction(a Action) ([]byte, error) {
	return cbor.Marshal(a)
}

// UnmarshalAction decodes a redeemer Action from CBOR, rejecting any tag
// this core does not recognize.
func UnmarshalAction(b []byte) (Action, error) {
	var a Action
	if err := cbor.Unmarshal(b, &a); err != nil {
		return Action{}, err
	}
	switch a.Tag {
	case UpdateOracleTag:
		if a.Update == nil {
			return Action{}, fmt.Errorf("wire: UpdateOracle action missing its payload")
		}
	default:
		return Action{}, fmt.Errorf("wire: unrecognized action tag %d", a.Tag)
	}
	return a, nil
}

// chainStateWire is ChainState's CBOR wire shape (spec.md §6). It exists
// apart from oracle.ChainState because that type carries no cbor
// struct tags of its own - package oracle has no reason to know about
// the wire encoding of the state it computes, and this keeps that
// separation intact.
type chainStateWire struct {
	BlockHeight                            int64                 `cbor:"1,keyasint"`
	BlockHash                              primitives.Hash256    `cbor:"2,keyasint"`
	CurrentTarget                          uint32                `cbor:"3,keyasint"`
	BlockTimestamp                         uint32                `cbor:"4,keyasint"`
	RecentTimestamps                       []int64               `cbor:"5,keyasint"`
	PreviousDifficultyAdjustmentTimestamp  int64                 `cbor:"6,keyasint"`
	ConfirmedChainwork                     []byte                `cbor:"7,keyasint"`
	ConfirmedBlocksTree                    []primitives.Hash256  `cbor:"8,keyasint"`
	ForksTree                              []forktree.ForkBranch `cbor:"9,keyasint"`
}

// MarshalChainState encodes a ChainState datum to CBOR (spec.md §6).
func MarshalChainState(s oracle.ChainState) ([]byte, error) {
	var chainwork []byte
	if s.ConfirmedChainwork != nil {
		chainwork = s.ConfirmedChainwork.Bytes()
	}
	w := chainStateWire{
		BlockHeight:                           s.BlockHeight,
		BlockHash:                             s.BlockHash,
		CurrentTarget:                         s.CurrentTarget,
		BlockTimestamp:                        s.BlockTimestamp,
		RecentTimestamps:                      s.RecentTimestamps,
		PreviousDifficultyAdjustmentTimestamp: s.PreviousDifficultyAdjustmentTimestamp,
		ConfirmedChainwork:                    chainwork,
		ConfirmedBlocksTree:                   []primitives.Hash256(s.ConfirmedBlocksTree),
		ForksTree:                             s.ForksTree,
	}
	return cbor.Marshal(w)
}

// UnmarshalChainState decodes a ChainState datum from CBOR.
func UnmarshalChainState(b []byte) (oracle.ChainState, error) {
	var w chainStateWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return oracle.ChainState{}, err
	}
	return oracle.ChainState{
		BlockHeight:                            w.BlockHeight,
		BlockHash:                              w.BlockHash,
		CurrentTarget:                          w.CurrentTarget,
		BlockTimestamp:                         w.BlockTimestamp,
		RecentTimestamps:                       w.RecentTimestamps,
		PreviousDifficultyAdjustmentTimestamp:  w.PreviousDifficultyAdjustmentTimestamp,
		ConfirmedChainwork:                     bytesToBigInt(w.ConfirmedChainwork),
		ConfirmedBlocksTree:                    merkle.Levels(w.ConfirmedBlocksTree),
		ForksTree:                              w.ForksTree,
	}, nil
}

// bytesToBigInt reads a big-endian unsigned integer, treating a nil or
// empty slice as zero (CBOR has no way to distinguish an omitted field from
// an empty byte string here, and spec.md §3 never lets ConfirmedChainwork
// be negative).
func bytesToBigInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
