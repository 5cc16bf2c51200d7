// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package commitreveal implements the ring-signed glider commit/reveal
// protocol of §4.3/§5: participants post ring-signed commitments over the
// epoch's eligible pubkey set, duplicate key images are equivocation
// evidence, and reveals are checked against their prior commitment, with
// missing/mismatched reveals producing forfeits. The ledger keeps no
// deadline or tick count: AddReveal accepts a matching reveal whenever it
// is called, and Forfeited reports a committed participant with no
// recorded reveal at the moment it is asked.
package commitreveal

import (
	"errors"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/bitcrypto/ring"
	"github.com/Steake/BitCell-sub000/ca"
	"github.com/Steake/BitCell-sub000/ids"
)

var (
	ErrInvalidRingSig   = errors.New("commitreveal: ring signature does not verify over the eligible set")
	ErrCommitNotFound   = errors.New("commitreveal: no commitment recorded for participant")
	ErrRevealMismatch   = errors.New("commitreveal: reveal does not open the recorded commitment")
	ErrPastDeadline     = errors.New("commitreveal: submitted after the phase deadline tick")
	ErrDuplicateCommit  = errors.New("commitreveal: participant already committed this epoch")
)

// Commitment is the §3 ring-signed-commitment record as received during
// the Commit phase.
type Commitment struct {
	Participant ids.NodeID
	CommitID    ids.ID
	RingSig     *ring.Signature
	KeyImage    []byte
}

// Reveal is the §3 reveal record: the pattern/nonce opening a prior
// commitment.
type Reveal struct {
	Participant ids.NodeID
	Pattern     ca.Pattern
	Nonce       [32]byte
}

// Ledger tracks one epoch's commit/reveal state: who committed, with
// which key image, and who has revealed. Equivocation (duplicate key
// image) is detected as commitments are added.
type Ledger struct {
	eligibleRing []*ecdsa.PublicKey
	commits      map[ids.NodeID]*Commitment
	keyImages    map[string]ids.NodeID // raw key-image bytes -> first committer
	reveals      map[ids.NodeID]*Reveal
}

// NewLedger starts a fresh epoch's commit/reveal tracking over the
// snapshot of eligible public keys (§4.4 Eligibility -> Commit).
func NewLedger(eligibleRing []*ecdsa.PublicKey) *Ledger {
	return &Ledger{
		eligibleRing: eligibleRing,
		commits:      make(map[ids.NodeID]*Commitment),
		keyImages:    make(map[string]ids.NodeID),
		reveals:      make(map[ids.NodeID]*Reveal),
	}
}

// EquivocationEvidence names two commitments that share a key image,
// proving the same secret key produced both (§3, §8 property 4).
type EquivocationEvidence struct {
	First, Second ids.NodeID
	KeyImage      []byte
}

// AddCommit records a commitment, verifying its ring signature over the
// epoch's eligible set. If the key image has already been seen this
// epoch (from a different participant slot, which under an honest
// mapping from NodeID to ring position cannot happen unless the same
// secret key signed twice), it returns equivocation evidence instead of
// an error — the caller forwards that to ebsl.
func (l *Ledger) AddCommit(c *Commitment, message []byte) (*EquivocationEvidence, error) {
	if !ring.Verify(l.eligibleRing, message, c.RingSig) {
		return nil, ErrInvalidRingSig
	}
	keyImageHex := string(c.KeyImage)
	if prior, dup := l.keyImages[keyImageHex]; dup && prior != c.Participant {
		return &EquivocationEvidence{First: prior, Second: c.Participant, KeyImage: c.KeyImage}, nil
	}
	if _, already := l.commits[c.Participant]; already {
		return nil, ErrDuplicateCommit
	}
	l.commits[c.Participant] = c
	l.keyImages[keyImageHex] = c.Participant
	return nil, nil
}

// CommitCount returns the number of distinct participants who committed.
func (l *Ledger) CommitCount() int {
	return len(l.commits)
}

// Committed reports whether a participant committed this epoch.
func (l *Ledger) Committed(p ids.NodeID) bool {
	_, ok := l.commits[p]
	return ok
}

// Commit returns a participant's recorded commitment, if any.
func (l *Ledger) Commit(p ids.NodeID) (*Commitment, bool) {
	c, ok := l.commits[p]
	return c, ok
}

// AddReveal checks that a reveal opens the participant's recorded
// commitment (§4.1 Battle step 1's commitment check, reused here at
// reveal time) and records it.
func (l *Ledger) AddReveal(r *Reveal, pubkeyBytes []byte) error {
	c, ok := l.commits[r.Participant]
	if !ok {
		return ErrCommitNotFound
	}
	expected := ca.CommitPattern(r.Pattern, r.Nonce, pubkeyBytes)
	if expected != c.CommitID {
		return ErrRevealMismatch
	}
	l.reveals[r.Participant] = r
	return nil
}

// Revealed reports whether a participant successfully revealed.
func (l *Ledger) Revealed(p ids.NodeID) bool {
	_, ok := l.reveals[p]
	return ok
}

// Reveal returns a participant's reveal, if any.
func (l *Ledger) Reveal(p ids.NodeID) (*Reveal, bool) {
	r, ok := l.reveals[p]
	return r, ok
}

// Forfeited reports whether a committed participant has no recorded
// reveal, the §4.3 forfeit condition. It does not record MissedReveal
// evidence itself.
func (l *Ledger) Forfeited(p ids.NodeID) bool {
	return l.Committed(p) && !l.Revealed(p)
}

// MinCommits implements §4.4's "minimum |commits| for a valid epoch is
// max(2, ceil(|M_h|/2))".
func MinCommits(eligibleCount int) int {
	half := (eligibleCount + 1) / 2
	if half < 2 {
		return 2
	}
	return half
}
