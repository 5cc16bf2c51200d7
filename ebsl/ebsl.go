// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ebsl implements the Evidence-Based Subjective Logic trust and
// slashing engine (§4.2): per-participant evidence counters, opinion
// projection, per-epoch asymmetric decay, and evidence-typed slash
// decisions.
package ebsl

import (
	"errors"
	"math"

	"github.com/Steake/BitCell-sub000/ids"
	"github.com/Steake/BitCell-sub000/safemath"
)

// Kind tags an evidence event (§3 Evidence event).
type Kind uint8

const (
	GoodBlock Kind = iota
	BattleWon
	InvalidProof
	DoubleCommit
	MissedReveal
	Equivocation
)

// Params holds the governance-tunable constants named in §9's Open
// Question 3. The core never hardcodes these into control flow.
type Params struct {
	AlphaPos float64 // positive-evidence decay factor, default 0.99
	AlphaNeg float64 // negative-evidence decay factor, default 0.999
	K        float64 // uncertainty constant, default 2
	A        float64 // base rate, default 0.4
	TMin     float64 // eligibility floor, default 0.75
	TKill    float64 // permanent-ban threshold, default 0.2
	BMin     uint64  // minimum bond, default 1000
}

// DefaultParams returns the documented defaults from §3/§9.
func DefaultParams() Params {
	return Params{
		AlphaPos: 0.99,
		AlphaNeg: 0.999,
		K:        2,
		A:        0.4,
		TMin:     0.75,
		TKill:    0.2,
		BMin:     1000,
	}
}

// increment gives the kind-specific (r,s) delta from §4.2's observe
// table. Equivocation uses +Inf on s, modeling the permanent ban.
func (k Kind) increment() (dr, ds float64) {
	switch k {
	case GoodBlock:
		return 1, 0
	case BattleWon:
		return 1, 0
	case InvalidProof:
		return 0, 3
	case MissedReveal:
		return 0, 2
	case DoubleCommit:
		return 0, 10
	case Equivocation:
		return 0, math.Inf(1)
	default:
		return 0, 0
	}
}

// SlashAction is the consequence §4.2's slash(kind) maps to.
type SlashAction struct {
	Fraction float64 // fraction of bond to forfeit, in [0,1]
	BanAll   bool    // Equivocation: slash entire bond and ban permanently
}

// Slash maps an evidence kind to its slash action per §4.2.
func Slash(k Kind) SlashAction {
	switch k {
	case InvalidProof:
		return SlashAction{Fraction: 0.10}
	case MissedReveal:
		return SlashAction{Fraction: 0.05}
	case DoubleCommit:
		return SlashAction{Fraction: 0.50}
	case Equivocation:
		return SlashAction{Fraction: 1.0, BanAll: true}
	default:
		return SlashAction{}
	}
}

// counters is one participant's accumulator pair plus ban state.
type counters struct {
	r, s   float64
	banned bool
}

// maxSeenEvidence bounds the idempotency tracking set per §5's "explicit
// caps with eviction policies"; oldest-first eviction once full.
const maxSeenEvidence = 1 << 16

var ErrUnknownParticipant = errors.New("ebsl: unknown participant")

// Engine owns every participant's evidence counters. It has a single
// writer (the consensus task, §5); there is no internal locking.
type Engine struct {
	params   Params
	byParty  map[ids.NodeID]*counters
	seen     map[string]struct{}
	seenFIFO []string
}

// New constructs an engine with the given parameters.
func New(params Params) *Engine {
	return &Engine{
		params:  params,
		byParty: make(map[ids.NodeID]*counters),
		seen:    make(map[string]struct{}),
	}
}

func (e *Engine) get(p ids.NodeID) *counters {
	c, ok := e.byParty[p]
	if !ok {
		c = &counters{}
		e.byParty[p] = c
	}
	return c
}

// Observe applies a kind-specific increment to a participant's counters
// (§4.2 observe). Equivocation permanently bans the participant; once
// banned, no subsequent evidence can un-ban them (§4.2 invariants).
func (e *Engine) Observe(p ids.NodeID, k Kind) {
	c := e.get(p)
	if c.banned {
		return
	}
	dr, ds := k.increment()
	c.r += dr
	c.s += ds
	if math.IsInf(c.s, 1) {
		c.banned = true
	}
}

// ObserveEvidence applies Observe idempotently keyed by evidenceID:
// replaying the same evidence (e.g. a re-submitted equivocation proof)
// must not re-slash (§4.2 invariants, §8 property 6).
func (e *Engine) ObserveEvidence(evidenceID string, p ids.NodeID, k Kind) {
	if _, dup := e.seen[evidenceID]; dup {
		return
	}
	e.markSeen(evidenceID)
	e.Observe(p, k)
}

func (e *Engine) markSeen(id string) {
	if len(e.seenFIFO) >= maxSeenEvidence {
		oldest := e.seenFIFO[0]
		e.seenFIFO = e.seenFIFO[1:]
		delete(e.seen, oldest)
	}
	e.seen[id] = struct{}{}
	e.seenFIFO = append(e.seenFIFO, id)
}

// DecayEpoch multiplies every participant's (r,s) by (AlphaPos,
// AlphaNeg), executed exactly once per block height (§4.2).
func (e *Engine) DecayEpoch() {
	for _, c := range e.byParty {
		if c.banned {
			continue
		}
		c.r *= e.params.AlphaPos
		c.s *= e.params.AlphaNeg
	}
}

// Opinion is the §3 belief/disbelief/uncertainty/trust tuple.
type Opinion struct {
	Belief      float64
	Disbelief   float64
	Uncertainty float64
	Trust       float64
}

// opinionOf computes the §3 formula for a raw (r,s) pair.
func (p Params) opinionOf(r, s float64) Opinion {
	w := r + s
	denom := w + p.K
	belief := r / denom
	disbelief := s / denom
	uncertainty := p.K / denom
	return Opinion{
		Belief:      belief,
		Disbelief:   disbelief,
		Uncertainty: uncertainty,
		Trust:       belief + p.A*uncertainty,
	}
}

// Opinion returns the current subjective-logic opinion for a
// participant. Unknown participants have r=s=0, so Trust = A (the base
// rate), matching §8's boundary behavior.
func (e *Engine) Opinion(p ids.NodeID) Opinion {
	c, ok := e.byParty[p]
	if !ok {
		return e.params.opinionOf(0, 0)
	}
	return e.params.opinionOf(c.r, c.s)
}

// Trust returns trust(participant) per §4.2.
func (e *Engine) Trust(p ids.NodeID) float64 {
	return e.Opinion(p).Trust
}

// Banned reports whether a participant has been permanently banned by
// an Equivocation evidence.
func (e *Engine) Banned(p ids.NodeID) bool {
	c, ok := e.byParty[p]
	return ok && c.banned
}

// BondStatus mirrors the subset of chainstate's bond status this
// package needs to evaluate eligibility, so that ebsl does not import
// chainstate (neither package imports the other).
type BondStatus uint8

const (
	BondActive BondStatus = iota
	BondUnbonding
	BondSlashed
)

// Eligible implements §4.2's eligible(participant) predicate.
func (e *Engine) Eligible(p ids.NodeID, bondStatus BondStatus, bondAmount uint64) bool {
	if e.Banned(p) {
		return false
	}
	if bondStatus != BondActive {
		return false
	}
	if bondAmount < e.params.BMin {
		return false
	}
	return e.Trust(p) >= e.params.TMin
}

// ApplySlash computes the post-slash bond amount using saturating
// arithmetic; boundary amounts never panic (§4.2 invariants).
func ApplySlash(action SlashAction, amount uint64) uint64 {
	if action.BanAll {
		return 0
	}
	fractionNum := uint32(action.Fraction * 1_000_000)
	slashed := safemath.SaturatingFraction(amount, fractionNum, 1_000_000)
	return safemath.SaturatingSub(amount, slashed)
}
