// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ca

import (
	"errors"

	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
	"github.com/Steake/BitCell-sub000/ids"
)

// Steps is the fixed evolution length of a protocol battle (§4.1: "steps
// is a fixed constant (1000) for protocol battles").
const Steps = 1000

// Winner is the outcome of a battle.
type Winner uint8

const (
	WinnerDraw Winner = iota
	WinnerA
	WinnerB
)

func (w Winner) String() string {
	switch w {
	case WinnerA:
		return "A"
	case WinnerB:
		return "B"
	default:
		return "Draw"
	}
}

var (
	ErrCommitMismatchA = errors.New("ca: commit_a does not open pattern_a/nonce_a/pk_a")
	ErrCommitMismatchB = errors.New("ca: commit_b does not open pattern_b/nonce_b/pk_b")
	ErrPatternOverlap  = errors.New("ca: pattern bounding boxes overlap at derived spawn origins")
)

// Result is the public outcome of a battle, the pair the tournament and
// the battle ZK circuit (§4.5) both agree on.
type Result struct {
	Winner        Winner
	HistoryDigest ids.ID
	EnergyA       uint64
	EnergyB       uint64
}

// patternBytes is the canonical serialization committed to by a glider
// reveal: kind, energy budget, then each offset pair, in list order.
func patternBytes(p Pattern) []byte {
	out := make([]byte, 0, 2+4*len(p.Offsets))
	out = append(out, byte(p.Kind), p.Energy0)
	for _, o := range p.Offsets {
		out = append(out, byte(int8(o.DX)), byte(int8(o.DY)))
	}
	return out
}

// CommitPattern computes H(pattern || nonce || pk), the commitment opened
// at reveal time (§4.1 Battle step 1, §4.3 Commit-Reveal).
func CommitPattern(p Pattern, nonce [32]byte, pk []byte) ids.ID {
	sum := hash.Domain("bitcell/battle/commit", patternBytes(p), nonce[:], pk)
	id, _ := ids.ToID(sum[:])
	return id
}

// spawnOrigins derives the two non-overlapping placement points from seed
// per the pinned rule in §4.1's "Determinism obligations": A spawns at
// (seed_low mod 1024, seed_high mod 1024); B spawns in the opposing
// anti-diagonal quadrant, offset by half the grid so the two bounding
// boxes of any <=16x16 pattern can never overlap.
func spawnOrigins(seed [32]byte) (ax, ay, bx, by int) {
	seedLow := beUint64(seed[0:8])
	seedHigh := beUint64(seed[8:16])
	ax = int(seedLow % Size)
	ay = int(seedHigh % Size)
	bx = wrap(ax + Size/2)
	by = wrap(ay + Size/2)
	return ax, ay, bx, by
}

func beUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// boxesOverlap reports whether two axis-aligned, toroidally-wrapped boxes
// of the given extents starting at the given origins intersect.
func boxesOverlap(ax, ay, aw, ah, bx, by, bw, bh int) bool {
	for dy := 0; dy < ah; dy++ {
		for dx := 0; dx < aw; dx++ {
			x, y := wrap(ax+dx), wrap(ay+dy)
			for ddy := 0; ddy < bh; ddy++ {
				for ddx := 0; ddx < bw; ddx++ {
					if wrap(bx+ddx) == x && wrap(by+ddy) == y {
						return true
					}
				}
			}
		}
	}
	return false
}

// Battle implements the §4.1 battle(...) contract: verifying both
// commitments open, placing patterns at deterministic non-overlapping
// spawn origins, running Steps evolution steps, and reading off the
// winner from the final energy sums.
func Battle(
	commitA, commitB ids.ID,
	patternA, patternB Pattern,
	nonceA, nonceB [32]byte,
	pkA, pkB []byte,
	seed [32]byte,
	energy0 uint8,
) (Result, error) {
	if CommitPattern(patternA, nonceA, pkA) != commitA {
		return Result{}, ErrCommitMismatchA
	}
	if CommitPattern(patternB, nonceB, pkB) != commitB {
		return Result{}, ErrCommitMismatchB
	}

	patternA.Energy0 = energy0
	patternB.Energy0 = energy0

	ax, ay, bx, by := spawnOrigins(seed)
	aw, ah := patternA.BoundingBox()
	bw, bh := patternB.BoundingBox()
	if boxesOverlap(ax, ay, aw, ah, bx, by, bw, bh) {
		return Result{}, ErrPatternOverlap
	}

	grid := NewGrid()
	patternA.Place(grid, ax, ay, OwnerA)
	patternB.Place(grid, bx, by, OwnerB)

	final, digest := Simulate(grid, Steps)
	energyA, energyB := final.EnergySums()

	result := Result{HistoryDigest: digest, EnergyA: energyA, EnergyB: energyB}
	switch {
	case energyA > energyB:
		result.Winner = WinnerA
	case energyB > energyA:
		result.Winner = WinnerB
	default:
		result.Winner = WinnerDraw
	}
	return result, nil
}
