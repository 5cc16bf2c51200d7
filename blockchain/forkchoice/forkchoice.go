// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package forkchoice implements §4.7's heaviest-chain rule: deterministic
// per-block work, finality-respecting reorg restriction, and
// lexicographic header-hash tie-break.
package forkchoice

import (
	"errors"

	"github.com/Steake/BitCell-sub000/blockchain/block"
	"github.com/Steake/BitCell-sub000/ids"
)

// StepCost is the per-matched-participant work unit in §4.7's work
// metric: work(block) = |matched_participants| * StepCost.
const StepCost = 1

// Work computes the deterministic, non-probabilistic work a block
// contributes (§4.7).
func Work(matchedParticipants int) uint64 {
	return uint64(matchedParticipants) * StepCost
}

// Node is one entry in the candidate chain store: a header plus its
// cumulative work and parent linkage by hash, avoiding ownership cycles
// per §9's "Cyclic state graphs" re-architecture pattern.
type Node struct {
	Header        *block.Header
	Hash          ids.ID
	CumulativeWork uint64
}

var ErrCrossesFinalizedBlock = errors.New("forkchoice: candidate chain does not extend the finalized head")

// ChainStore owns blocks keyed by hash; parent references are hash
// values, never ownership handles (§9).
type ChainStore struct {
	byHash map[ids.ID]*Node
}

// New returns an empty chain store.
func New() *ChainStore {
	return &ChainStore{byHash: make(map[ids.ID]*Node)}
}

// Insert adds a block to the store, computing its cumulative work from
// its parent (which must already be present, except for the genesis
// block whose PrevHash is the zero ID).
func (c *ChainStore) Insert(h *block.Header, matchedParticipants int) (*Node, error) {
	hash := h.Hash()
	work := Work(matchedParticipants)
	cumulative := work
	if h.PrevHash != ids.Empty {
		parent, ok := c.byHash[h.PrevHash]
		if !ok {
			return nil, errors.New("forkchoice: parent not found")
		}
		cumulative += parent.CumulativeWork
	}
	node := &Node{Header: h, Hash: hash, CumulativeWork: cumulative}
	c.byHash[hash] = node
	return node, nil
}

// Get returns a stored node by hash.
func (c *ChainStore) Get(h ids.ID) (*Node, bool) {
	n, ok := c.byHash[h]
	return n, ok
}

// isAncestor reports whether candidate hash h descends from ancestor,
// walking parent links.
func (c *ChainStore) isAncestor(ancestor, h ids.ID) bool {
	cur := h
	for {
		if cur == ancestor {
			return true
		}
		node, ok := c.byHash[cur]
		if !ok || node.Header.PrevHash == ids.Empty {
			return cur == ancestor
		}
		cur = node.Header.PrevHash
	}
}

// Head selects the heaviest cumulative-work chain among all candidates
// whose ancestry includes finalizedHead, breaking ties by lexicographic
// header hash (§4.7, §8 property 7: "the selected head has every
// finalized block as an ancestor").
func (c *ChainStore) Head(finalizedHead ids.ID) (*Node, error) {
	var best *Node
	for hash, node := range c.byHash {
		if finalizedHead != ids.Empty && !c.isAncestor(finalizedHead, hash) {
			continue
		}
		if best == nil {
			best = node
			continue
		}
		switch {
		case node.CumulativeWork > best.CumulativeWork:
			best = node
		case node.CumulativeWork == best.CumulativeWork && node.Hash.Compare(best.Hash) < 0:
			best = node
		}
	}
	if best == nil {
		return nil, ErrCrossesFinalizedBlock
	}
	return best, nil
}
