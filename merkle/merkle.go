// Package merkle implements the rolling (append-only, incremental) Merkle
// accumulator used for the confirmed-blocks tree (spec.md §4.4, C4), plus
// the sibling-path verification routine its companion proof verifier (C8,
// package txproof) builds on.
//
// The pairwise combine step, SHA256(SHA256(left || right)), is the same
// hashing discipline demonstrated by
// blockchain/standalone/example_test.go's ExampleCalcMerkleRoot, which
// folds a flat list of leaves bottom-up in one pass; this package
// generalizes that into an incremental structure that can append one leaf
// at a time without ever re-hashing the whole tree, which is what lets
// Binocular extend the confirmed accumulator by one promoted block without
// replaying every prior promotion.
package merkle

import "github.com/lantr-io/binocular/primitives"

// Levels is the levels-array representation of a rolling Merkle
// accumulator: Levels[i] holds either the all-zero hash (empty slot) or a
// single pending hash at tree level i (spec.md §4.4). The representation is
// exactly the ChainState.confirmedBlocksTree field's wire shape.
type Levels []primitives.Hash256

// Append adds hash h to the accumulator, returning the updated levels
// slice. The rolling algorithm (spec.md §4.4):
//
//  1. Start at level 0.
//  2. If the slot is empty, store h there; done.
//  3. Otherwise combine h' = SHA256(SHA256(slot || h)), clear the slot, set
//     h := h', advance one level, and repeat from step 2.
//
// This never touches more than O(log n) slots per append and never
// shrinks the slice beyond growing it by at most one level.
func Append(levels Levels, h primitives.Hash256) Levels {
	cur := h
	for i := 0; i < len(levels); i++ {
		if levels[i].IsZero() {
			levels[i] = cur
			return levels
		}
		cur = primitives.DoubleSHA256H(levels[i], cur)
		levels[i] = primitives.Hash256{}
	}
	return append(levels, cur)
}

// AppendAll appends each hash in hs to levels in order, as promotion does
// when extending confirmedBlocksTree with every newly matured block
// (spec.md §4.6 step 7: "appending every promoted hash in order from
// oldest to newest").
func AppendAll(levels Levels, hs []primitives.Hash256) Levels {
	for _, h := range hs {
		levels = Append(levels, h)
	}
	return levels
}

// Root folds the remaining non-empty slots of levels upward into a single
// root hash (spec.md §4.4 "getMerkleRoot"). An empty tree's root is the
// all-zero hash; a single-element tree's root is that element. A pending
// subtree that has no partner at its level is paired with itself, the way
// Bitcoin's classic Merkle tree duplicates an odd node, so the result equals
// the classic pairwise root over the same leaves for any leaf count.
func Root(levels Levels) primitives.Hash256 {
	var acc primitives.Hash256
	haveAcc := false
	accLevel := 0
	for i := 0; i < len(levels); i++ {
		if levels[i].IsZero() {
			continue
		}
		if !haveAcc {
			acc = levels[i]
			haveAcc = true
			accLevel = i
			continue
		}
		// Lift the accumulator to this slot's level by self-pairing.
		for ; accLevel < i; accLevel++ {
			acc = primitives.DoubleSHA256H(acc, acc)
		}
		// The higher-indexed (older, more-combined) slot is the left
		// operand.
		acc = primitives.DoubleSHA256H(levels[i], acc)
		accLevel = i + 1
	}
	if !haveAcc {
		return primitives.Hash256{}
	}
	return acc
}

// VerifyInclusionProof recomputes the Merkle root implied by leaf at the
// given index combined with the provided sibling path, ordered leaf-to-root
// (spec.md §4.4 "Verification side"). At each step, if index is even the
// current hash is the left operand, otherwise it is the right operand; the
// index is then halved for the next level. An empty sibling list returns
// leaf unchanged, matching a single-leaf tree whose root is the leaf
// itself.
//
// This same routine backs both halves of the two-level proof in package
// txproof (C8): the tx-in-block proof against a header's classic
// transaction Merkle root, and the block-in-accumulator proof against
// Root(confirmedBlocksTree). Both are ordinary binary Merkle trees from the
// verifier's point of view; only the accumulator's construction (package
// merkle's Append) is incremental.
func VerifyInclusionProof(leaf primitives.Hash256, index uint64, siblings []primitives.Hash256) primitives.Hash256 {
	current := leaf
	for _, sibling := range siblings {
		if index%2 == 0 {
			current = primitives.DoubleSHA256H(current, sibling)
		} else {
			current = primitives.DoubleSHA256H(sibling, current)
		}
		index /= 2
	}
	return current
}
