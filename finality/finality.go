// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finality implements the §4.8 BFT finality gadget:
// prevote/precommit voting over recent heads, 2/3-stake thresholds, and
// equivocation evidence.
package finality

import (
	"errors"

	"github.com/Steake/BitCell-sub000/ids"
)

// VoteType distinguishes the two rounds of §4.8's two-round-trip
// protocol.
type VoteType uint8

const (
	Prevote VoteType = iota
	Precommit
)

// Vote is a single signed vote (§4.8 Vote types).
type Vote struct {
	Height    uint64
	Round     uint32
	Type      VoteType
	BlockHash ids.ID
	Voter     ids.NodeID
	Signature []byte
}

// HeightState is the §4.8 per-height lifecycle.
type HeightState uint8

const (
	Pending HeightState = iota
	Prevoted
	Finalized
)

// RecentWindow bounds how many heights of vote history are retained
// (§5 "explicit caps with eviction policies"); heights older than the
// current finalized height minus RecentWindow are pruned.
const RecentWindow = 256

var (
	ErrUnknownVoter         = errors.New("finality: voter not in the active stake set at this height")
	ErrAlreadyFinalizedPast = errors.New("finality: height already finalized; vote ignored")
)

// EquivocationEvidence names the two conflicting votes proving a voter
// signed two distinct block hashes for the same (height, round, type)
// (§4.8 Equivocation).
type EquivocationEvidence struct {
	Voter ids.NodeID
	First, Second Vote
}

// voteKey identifies one (height, round, type) slot.
type voteKey struct {
	height uint64
	round  uint32
	typ    VoteType
}

// heightRecord tracks accumulated stake per block hash, per vote type,
// for one height, plus every voter's first vote per (round, type)
// to detect equivocation.
type heightRecord struct {
	state       HeightState
	votesByHash map[VoteType]map[ids.ID]uint64         // type -> blockHash -> accumulated stake
	seenVoters  map[voteKey]map[ids.NodeID]Vote         // (height,round,type) -> voter -> their vote
	bannedSeen  map[string]struct{}                     // idempotency for equivocation evidence ids
}

func newHeightRecord() *heightRecord {
	return &heightRecord{
		votesByHash: make(map[VoteType]map[ids.ID]uint64),
		seenVoters:  make(map[voteKey]map[ids.NodeID]Vote),
		bannedSeen:  make(map[string]struct{}),
	}
}

// Tracker drives the finality state machine across heights. Voting
// stake and proposing eligibility are treated as the same set (§9 Open
// Question 4): no special-casing excludes a proposer from voting on its
// own block.
type Tracker struct {
	byHeight map[uint64]*heightRecord
	finalizedHeight uint64
	totalStake func(height uint64) uint64
	stakeOf    func(height uint64, voter ids.NodeID) (uint64, bool)
}

// NewTracker constructs a tracker. totalStake and stakeOf let the
// caller supply the active bonded stake snapshot per height (owned by
// chainstate), keeping this package free of a chainstate import cycle.
func NewTracker(totalStake func(uint64) uint64, stakeOf func(uint64, ids.NodeID) (uint64, bool)) *Tracker {
	return &Tracker{
		byHeight:   make(map[uint64]*heightRecord),
		totalStake: totalStake,
		stakeOf:    stakeOf,
	}
}

func (t *Tracker) record(height uint64) *heightRecord {
	r, ok := t.byHeight[height]
	if !ok {
		r = newHeightRecord()
		t.byHeight[height] = r
	}
	return r
}

// AddVote applies a vote, returning equivocation evidence if this voter
// already signed a different block hash for the same (height, round,
// type). Votes for heights at or below the current finalized height are
// rejected (§7 StaleMessage).
func (t *Tracker) AddVote(v Vote) (*EquivocationEvidence, error) {
	if v.Height <= t.finalizedHeight && t.finalizedHeight > 0 {
		return nil, ErrAlreadyFinalizedPast
	}
	stake, ok := t.stakeOf(v.Height, v.Voter)
	if !ok {
		return nil, ErrUnknownVoter
	}

	r := t.record(v.Height)
	key := voteKey{height: v.Height, round: v.Round, typ: v.Type}
	if r.seenVoters[key] == nil {
		r.seenVoters[key] = make(map[ids.NodeID]Vote)
	}
	if prior, dup := r.seenVoters[key][v.Voter]; dup {
		if prior.BlockHash != v.BlockHash {
			return &EquivocationEvidence{Voter: v.Voter, First: prior, Second: v}, nil
		}
		return nil, nil // exact duplicate, no-op
	}
	r.seenVoters[key][v.Voter] = v

	if r.votesByHash[v.Type] == nil {
		r.votesByHash[v.Type] = make(map[ids.ID]uint64)
	}
	r.votesByHash[v.Type][v.BlockHash] += stake

	total := t.totalStake(v.Height)
	threshold := total*2/3 + 1
	if v.Type == Prevote && r.votesByHash[Prevote][v.BlockHash] >= threshold && r.state == Pending {
		r.state = Prevoted
	}
	if v.Type == Precommit && r.votesByHash[Precommit][v.BlockHash] >= threshold {
		r.state = Finalized
		if v.Height > t.finalizedHeight {
			t.finalizedHeight = v.Height
			t.prune()
		}
	}
	return nil, nil
}

// prune drops vote history for heights older than RecentWindow below
// the current finalized height (§5 memory bound).
func (t *Tracker) prune() {
	if t.finalizedHeight <= RecentWindow {
		return
	}
	cutoff := t.finalizedHeight - RecentWindow
	for h := range t.byHeight {
		if h < cutoff {
			delete(t.byHeight, h)
		}
	}
}

// State returns a height's current lifecycle state.
func (t *Tracker) State(height uint64) HeightState {
	r, ok := t.byHeight[height]
	if !ok {
		return Pending
	}
	return r.state
}

// FinalizedHeight returns the highest height finalized so far.
func (t *Tracker) FinalizedHeight() uint64 {
	return t.finalizedHeight
}

// IsFinalized reports whether a specific block hash at height has been
// precommitted past the 2/3 threshold.
func (t *Tracker) IsFinalized(height uint64, hash ids.ID) bool {
	r, ok := t.byHeight[height]
	if !ok {
		return false
	}
	total := t.totalStake(height)
	threshold := total*2/3 + 1
	return r.votesByHash[Precommit][hash] >= threshold
}

// ApplyEquivocation records that evidence was processed, idempotent per
// evidence id (§4.8: "a second submission of the same pair is a
// no-op"); the caller is responsible for slashing/banning via ebsl.
func (t *Tracker) ApplyEquivocation(evidenceID string, ev EquivocationEvidence) (applied bool) {
	r := t.record(ev.First.Height)
	if _, dup := r.bannedSeen[evidenceID]; dup {
		return false
	}
	r.bannedSeen[evidenceID] = struct{}{}
	return true
}
