// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tournament implements the per-epoch tournament state machine of
// §4.4: an explicit Phase enum advanced by a single Step(event) function
// (per §9's guidance to model "coroutine-style tournament flow" as an
// explicit state machine rather than implicit suspension), bracket
// assembly, forfeit/failure semantics, and the §7 empty-epoch liveness
// fallback.
package tournament

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
	"github.com/Steake/BitCell-sub000/ca"
	"github.com/Steake/BitCell-sub000/commitreveal"
	"github.com/Steake/BitCell-sub000/ids"
)

// Phase is one state in the epoch's progress, per §4.4's diagram.
type Phase int

const (
	PhaseEligibility Phase = iota
	PhaseCommit
	PhaseSeed
	PhasePairing
	PhaseReveal
	PhaseBattle
	PhasePropose
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhaseEligibility:
		return "Eligibility"
	case PhaseCommit:
		return "Commit"
	case PhaseSeed:
		return "Seed"
	case PhasePairing:
		return "Pairing"
	case PhaseReveal:
		return "Reveal"
	case PhaseBattle:
		return "Battle"
	case PhasePropose:
		return "Propose"
	case PhaseFinalize:
		return "Finalize"
	default:
		return "Unknown"
	}
}

// EventKind names the trigger that advances the state machine (§4.4
// transition labels).
type EventKind int

const (
	EvSnapshotTaken EventKind = iota
	EvCommitDeadline
	EvSeedDerived
	EvBracketFixed
	EvRevealDeadline
	EvAllMatchesResolved
	EvBlockSigned
)

// Event is the single input type the state machine's Step function
// consumes.
type Event struct {
	Kind EventKind
}

var (
	ErrWrongPhase    = errors.New("tournament: event not valid in current phase")
	ErrTooFewCommits = errors.New("tournament: commit count below the §4.4 minimum; epoch must fall back to empty-epoch")
)

// Match is one bracket slot: either a real pairing (A vs B) or a bye,
// where A advances automatically with no opponent.
type Match struct {
	A, B ids.NodeID
	Bye  bool
}

// Outcome is one resolved match's result, either a real battle or a
// distinguished walkover (§4.1 Battle, §4.3 Reveal phase, §4.5 Walkover
// variant).
type Outcome struct {
	Winner   ids.NodeID
	Walkover bool
	Battle   *ca.Result
}

// Params are the energy budget and other epoch-wide battle parameters
// (§3 Glider: nominal energy budget E0 assigned to every spawned cell).
type Params struct {
	Energy0 uint8
}

// DefaultParams mirrors the teacher-style "sane default" constructor
// pattern used across the crypto packages.
func DefaultParams() Params { return Params{Energy0: 64} }

// Tournament holds one epoch's full mutable state, driven exclusively
// through Step.
type Tournament struct {
	Epoch           uint64
	Phase           Phase
	Params          Params
	Eligible        []ids.NodeID // M_h, frozen at Eligibility->Commit
	Ledger          *commitreveal.Ledger
	Seed            [32]byte
	Bracket         []Match
	Results         map[int]Outcome // keyed by bracket match index
	Winner          ids.NodeID
	Empty           bool // true iff the §7 empty-epoch fallback fired
	Round           int  // current single-elimination round, 0-based
	MatchesResolved int  // total matches resolved across every round so far
}

// New starts a fresh epoch at PhaseEligibility.
func New(epoch uint64, params Params) *Tournament {
	return &Tournament{
		Epoch:   epoch,
		Phase:   PhaseEligibility,
		Params:  params,
		Results: make(map[int]Outcome),
	}
}

// Snapshot freezes M_h and opens the commit ledger (§4.4 Eligibility ->
// Commit).
func (t *Tournament) Snapshot(eligible []ids.NodeID, eligibleRing []*ecdsa.PublicKey) error {
	if t.Phase != PhaseEligibility {
		return ErrWrongPhase
	}
	sorted := append([]ids.NodeID(nil), eligible...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })
	t.Eligible = sorted
	t.Ledger = commitreveal.NewLedger(eligibleRing)
	t.Phase = PhaseCommit
	return nil
}

// CloseCommit closes commit collection at the deadline. If the number of
// commits is below max(2, ceil(|M_h|/2)), the caller must treat this
// epoch as empty (§4.4 Commit -> Seed, §7 fallback); CloseCommit itself
// reports that via ErrTooFewCommits rather than silently degrading, so
// the caller can decide how to emit the empty-epoch marker.
func (t *Tournament) CloseCommit() error {
	if t.Phase != PhaseCommit {
		return ErrWrongPhase
	}
	if t.Ledger.CommitCount() < commitreveal.MinCommits(len(t.Eligible)) {
		t.Empty = true
		return ErrTooFewCommits
	}
	t.Phase = PhaseSeed
	return nil
}

// committedParticipants returns the sorted set of participants who
// committed, the population the seed/bracket are derived over.
func (t *Tournament) committedParticipants() []ids.NodeID {
	out := make([]ids.NodeID, 0, len(t.Eligible))
	for _, p := range t.Eligible {
		if t.Ledger.Committed(p) {
			out = append(out, p)
		}
	}
	return out
}

// DeriveSeed sets the epoch's tournament seed (§4.4 Seed -> Pairing). The
// seed itself is computed upstream by vrfchain.CombineSeed over the
// matched proposers'/committee's VRF outputs; this method only records
// it and advances the phase, since seed derivation is C4's
// responsibility, not C6's.
func (t *Tournament) DeriveSeed(seed [32]byte) error {
	if t.Phase != PhaseSeed {
		return ErrWrongPhase
	}
	t.Seed = seed
	t.Phase = PhasePairing
	return nil
}

// counterPRNG produces a deterministic uint64 stream from seed via
// counter-mode hashing (§4.4: "Fisher-Yates with PRNG = counter-mode hash
// of seed").
func counterPRNG(seed [32]byte, counter uint64) uint64 {
	var cbuf [8]byte
	for i := 7; i >= 0; i-- {
		cbuf[i] = byte(counter)
		counter >>= 8
	}
	digest := hash.Domain("bitcell/tournament/shuffle", seed[:], cbuf[:])
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(digest[i])
	}
	return v
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// AssembleBracket shuffles the committed set by seed (Fisher-Yates,
// counter-mode PRNG) and builds a single-elimination bracket with byes
// to the next power of two (§4.4 Seed -> Pairing).
func AssembleBracket(participants []ids.NodeID, seed [32]byte) []Match {
	shuffled := append([]ids.NodeID(nil), participants...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(counterPRNG(seed, uint64(i)) % uint64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	n := len(shuffled)
	target := nextPowerOfTwo(n)
	byes := target - n

	matches := make([]Match, 0, target/2)
	idx := 0
	for i := 0; i < byes; i++ {
		matches = append(matches, Match{A: shuffled[idx], Bye: true})
		idx++
	}
	for idx+1 < len(shuffled) {
		matches = append(matches, Match{A: shuffled[idx], B: shuffled[idx+1]})
		idx += 2
	}
	return matches
}

// FixBracket publishes the bracket (§4.4 Pairing -> Reveal).
func (t *Tournament) FixBracket() error {
	if t.Phase != PhasePairing {
		return ErrWrongPhase
	}
	t.Bracket = AssembleBracket(t.committedParticipants(), t.Seed)
	t.Phase = PhaseReveal
	return nil
}

// CloseReveal ends the reveal window and advances to Battle (§4.4 Reveal
// -> Battle). Forfeit detection happens during RunBattles, since a
// forfeit is resolved per-match rather than globally.
func (t *Tournament) CloseReveal() error {
	if t.Phase != PhaseReveal {
		return ErrWrongPhase
	}
	t.Phase = PhaseBattle
	return nil
}

// PubkeyLookup resolves a participant's public key bytes for battle
// verification; supplied by the caller since the
// tournament package does not itself own the pubkey directory.
type PubkeyLookup func(ids.NodeID) []byte

// RunBattles resolves every bracket match: byes advance automatically;
// forfeited matches (one or both sides failed to reveal) produce a
// walkover outcome with no CA simulation; fully-revealed matches run
// ca.Battle (§4.1, §4.5 Walkover variant).
func (t *Tournament) RunBattles(pubkeys PubkeyLookup) error {
	if t.Phase != PhaseBattle {
		return ErrWrongPhase
	}
	for i, m := range t.Bracket {
		if m.Bye {
			t.Results[i] = Outcome{Winner: m.A}
			continue
		}

		aForfeit := t.Ledger.Forfeited(m.A)
		bForfeit := t.Ledger.Forfeited(m.B)
		switch {
		case aForfeit && bForfeit:
			// Degenerate double-forfeit: neither advances validly; the
			// fallback empty-epoch rule (§7) governs the overall epoch if
			// this cascades to no winner.
			t.Results[i] = Outcome{Walkover: true}
			continue
		case aForfeit:
			t.Results[i] = Outcome{Winner: m.B, Walkover: true}
			continue
		case bForfeit:
			t.Results[i] = Outcome{Winner: m.A, Walkover: true}
			continue
		}

		revealA, _ := t.Ledger.Reveal(m.A)
		revealB, _ := t.Ledger.Reveal(m.B)
		commitA, _ := t.Ledger.Commit(m.A)
		commitB, _ := t.Ledger.Commit(m.B)

		result, err := ca.Battle(
			commitA.CommitID, commitB.CommitID,
			revealA.Pattern, revealB.Pattern,
			revealA.Nonce, revealB.Nonce,
			pubkeys(m.A), pubkeys(m.B),
			t.Seed, t.Params.Energy0,
		)
		if err != nil {
			// ca.Battle fails when a commitment does not open or the
			// patterns overlap (§4.4 Failure semantics). RunBattles does
			// not return err or raise evidence; it records a walkover to
			// the side whose commitment opened, or a double-invalid
			// result with no winner if neither (or both) opened.
			okA := ca.CommitPattern(revealA.Pattern, revealA.Nonce, pubkeys(m.A)) == commitA.CommitID
			okB := ca.CommitPattern(revealB.Pattern, revealB.Nonce, pubkeys(m.B)) == commitB.CommitID
			switch {
			case okA && !okB:
				t.Results[i] = Outcome{Winner: m.A, Walkover: true}
			case okB && !okA:
				t.Results[i] = Outcome{Winner: m.B, Walkover: true}
			default:
				t.Results[i] = Outcome{Walkover: true}
			}
			continue
		}

		switch result.Winner {
		case ca.WinnerA:
			t.Results[i] = Outcome{Winner: m.A, Battle: &result}
		case ca.WinnerB:
			t.Results[i] = Outcome{Winner: m.B, Battle: &result}
		default:
			// A Draw within a single-elimination bracket must still
			// produce an advancing side; §4.1 only defines the battle
			// outcome, so the tournament layer tie-breaks a Draw to the
			// lexicographically smaller NodeID, consistent with every
			// other tie-break rule in this spec.
			winner := m.A
			if m.B.Compare(m.A) < 0 {
				winner = m.B
			}
			t.Results[i] = Outcome{Winner: winner, Battle: &result}
		}
	}
	t.Phase = PhasePropose
	return nil
}

// FinalWinner returns the overall bracket winner once a single round's
// results leave exactly one participant.
func (t *Tournament) FinalWinner() (ids.NodeID, bool) {
	if len(t.Bracket) != 1 {
		var zero ids.NodeID
		return zero, false
	}
	out, ok := t.Results[0]
	if !ok {
		var zero ids.NodeID
		return zero, false
	}
	return out.Winner, true
}

// roundWinners collects the current round's survivors, sorted for
// determinism. A double-forfeit match (Walkover with the zero NodeID,
// per RunBattles) eliminates both sides and contributes no survivor.
func (t *Tournament) roundWinners() []ids.NodeID {
	var zero ids.NodeID
	out := make([]ids.NodeID, 0, len(t.Bracket))
	for i := range t.Bracket {
		result, ok := t.Results[i]
		if !ok || result.Winner == zero {
			continue
		}
		out = append(out, result.Winner)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func roundCounterBytes(round int) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(round))
	return b[:]
}

// PlayRounds resolves the bracket through successive single-elimination
// rounds, re-pairing each round's survivors and re-running RunBattles,
// until at most one participant remains, then calls Propose with that
// participant (§4.4 Battle -> Propose, single-elimination per §4.4). It
// must be called with the tournament already in PhaseBattle (i.e. right
// after CloseReveal); every round reuses the commit/reveal data recorded
// during the single Reveal window, since only pairing changes round to
// round, not commitments.
func (t *Tournament) PlayRounds(pubkeys PubkeyLookup) error {
	for {
		if err := t.RunBattles(pubkeys); err != nil {
			return err
		}
		t.MatchesResolved += len(t.Bracket)

		winners := t.roundWinners()
		if len(winners) <= 1 {
			var winner ids.NodeID
			if len(winners) == 1 {
				winner = winners[0]
			}
			return t.Propose(winner)
		}

		t.Round++
		t.Seed = hash.Domain("bitcell/tournament/round-seed", t.Seed[:], roundCounterBytes(t.Round))
		t.Bracket = AssembleBracket(winners, t.Seed)
		t.Results = make(map[int]Outcome)
		t.Phase = PhaseBattle
	}
}

// Propose marks the bracket winner as the block proposer (§4.4 Battle ->
// Propose).
func (t *Tournament) Propose(winner ids.NodeID) error {
	if t.Phase != PhasePropose {
		return ErrWrongPhase
	}
	t.Winner = winner
	t.Phase = PhaseFinalize
	return nil
}

// Finalize completes the epoch once the proposed block has been signed
// and broadcast (§4.4 Propose -> Finalize). There is no further
// state-machine work beyond this point for C6; finality itself is C11's
// responsibility.
func (t *Tournament) Finalize() error {
	if t.Phase != PhaseFinalize {
		return ErrWrongPhase
	}
	return nil
}

// Step is the single state-transition entry point named by §9's
// "explicit state-machine enum with a single step(event) function"
// guidance. It dispatches to the phase-specific methods above and
// returns the resulting phase.
func (t *Tournament) Step(ev Event) (Phase, error) {
	var err error
	switch ev.Kind {
	case EvSnapshotTaken:
		// Snapshot requires its own arguments and is invoked directly by
		// the caller rather than through Step; Step only validates phase
		// here for callers driving a generic event loop.
		if t.Phase != PhaseEligibility {
			err = ErrWrongPhase
		}
	case EvCommitDeadline:
		err = t.CloseCommit()
	case EvSeedDerived:
		if t.Phase != PhaseSeed {
			err = ErrWrongPhase
		}
	case EvBracketFixed:
		err = t.FixBracket()
	case EvRevealDeadline:
		err = t.CloseReveal()
	case EvAllMatchesResolved:
		if t.Phase != PhaseBattle {
			err = ErrWrongPhase
		} else {
			t.Phase = PhasePropose
		}
	case EvBlockSigned:
		err = t.Finalize()
	default:
		err = ErrWrongPhase
	}
	return t.Phase, err
}

// EmptyEpochMarker is the §7 fallback liveness record: height advances
// by one with zero work and no state transition.
type EmptyEpochMarker struct {
	Epoch  uint64
	Signer ids.NodeID
}
