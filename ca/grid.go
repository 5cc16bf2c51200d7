// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ca implements the deterministic, energy-carrying cellular
// automaton that underlies every tournament battle (§4.1 CA Engine). The
// evolution rule, tie-break and rounding choices are pinned at the byte
// level so that simulate(initial_grid, steps) is reproducible across
// platforms and thread schedules, a hard requirement of the battle circuit
// (§4.5) and of testable property 1 (CA determinism).
package ca

import (
	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
	"github.com/Steake/BitCell-sub000/ids"
)

// Size is the fixed edge length of the toroidal battle grid (§3 Grid).
const Size = 1024

// Owner identifies which side's life pressure occupies a cell.
type Owner uint8

const (
	OwnerNone Owner = iota
	OwnerA
	OwnerB
)

// Less implements the lexicographic tie-break rule used for birth-cell
// owner assignment (§4.1: "tie-break: lexicographically smaller owner id").
func (o Owner) Less(other Owner) bool { return o < other }

// Cell is a single grid position. The invariant "!alive => energy=0 &&
// owner=None" (§3 Cell) is maintained by every mutator in this package; no
// exported constructor allows violating it.
type Cell struct {
	Alive  bool
	Energy uint8
	Owner  Owner
}

// Grid is the fixed 1024x1024 toroidal board. Cells are stored row-major so
// that byte serialization (used only inside circuit witnesses, never
// broadcast, §3 Grid) is a direct memory dump.
type Grid struct {
	cells [Size * Size]Cell
}

// NewGrid returns an all-dead, zero-energy grid.
func NewGrid() *Grid {
	return &Grid{}
}

func wrap(v int) int {
	v %= Size
	if v < 0 {
		v += Size
	}
	return v
}

func index(x, y int) int {
	return y*Size + x
}

// At returns the cell at (x,y), wrapping coordinates toroidally.
func (g *Grid) At(x, y int) Cell {
	return g.cells[index(wrap(x), wrap(y))]
}

// Set writes a cell, enforcing the dead-cell invariant.
func (g *Grid) Set(x, y int, c Cell) {
	if !c.Alive {
		c.Energy = 0
		c.Owner = OwnerNone
	}
	g.cells[index(wrap(x), wrap(y))] = c
}

// Clone returns a deep copy, used so Step never mutates its input in place
// (required for the history digest to reflect a pure function of steps).
func (g *Grid) Clone() *Grid {
	out := &Grid{}
	out.cells = g.cells
	return out
}

// EnergySums returns the total energy held by cells owned by A and by B,
// the regional-energy tally the winner rule compares (§4.1 step 5).
func (g *Grid) EnergySums() (energyA, energyB uint64) {
	for _, c := range g.cells {
		switch c.Owner {
		case OwnerA:
			energyA += uint64(c.Energy)
		case OwnerB:
			energyB += uint64(c.Energy)
		}
	}
	return energyA, energyB
}

// Bytes returns the canonical row-major, little-endian cell encoding used
// inside circuit witnesses (§3 Grid: "never broadcast"). Each cell is three
// bytes: alive (0 or 1), owner, energy, which keeps the encoding trivially
// invertible for tests and witness generation.
func (g *Grid) Bytes() []byte {
	out := make([]byte, 0, Size*Size*3)
	for _, c := range g.cells {
		var alive byte
		if c.Alive {
			alive = 1
		}
		out = append(out, alive, byte(c.Owner), c.Energy)
	}
	return out
}

// neighborInfo returns, for cell (x,y), the number of live neighbours and
// how many of those are owned by A vs B, using the toroidal 8-neighbourhood
// (§4.1 Evolution rule).
func (g *Grid) neighborInfo(x, y int) (live int, ownerCounts [3]int) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := g.At(x+dx, y+dy)
			if n.Alive {
				live++
				ownerCounts[n.Owner]++
			}
		}
	}
	return live, ownerCounts
}

// majorityOwner picks the plurality owner among a birth cell's three live
// neighbours, tie-broken to the lexicographically smaller owner id per
// §4.1. ownerCounts is indexed by Owner; OwnerNone never appears among live
// neighbours by construction.
func majorityOwner(ownerCounts [3]int) Owner {
	best := OwnerA
	bestCount := ownerCounts[OwnerA]
	for _, o := range []Owner{OwnerB} {
		if ownerCounts[o] > bestCount || (ownerCounts[o] == bestCount && o.Less(best)) {
			best = o
			bestCount = ownerCounts[o]
		}
	}
	return best
}

// Step applies one generation of the evolution rule and returns a new
// grid, iterating row-major top-to-bottom, left-to-right (§4.1
// Determinism obligations) so that the result never depends on execution
// order even if an implementation parallelizes the inner loop.
func (g *Grid) Step() *Grid {
	next := NewGrid()
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			cur := g.At(x, y)
			live, ownerCounts := g.neighborInfo(x, y)

			switch {
			case cur.Alive && (live == 2 || live == 3):
				energy := cur.Energy
				if energy > 0 {
					energy--
				}
				next.Set(x, y, Cell{Alive: true, Energy: energy, Owner: cur.Owner})
			case !cur.Alive && live == 3:
				owner := majorityOwner(ownerCounts)
				energySum := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						n := g.At(x+dx, y+dy)
						if n.Alive && n.Owner == owner {
							energySum += int(n.Energy)
						}
					}
				}
				count := ownerCounts[owner]
				mean := 0
				if count > 0 {
					mean = energySum / count // floor(mean(...)), §4.1
				}
				energy := mean + 1
				if energy > 255 {
					energy = 255
				}
				next.Set(x, y, Cell{Alive: true, Energy: uint8(energy), Owner: owner})
			default:
				next.Set(x, y, Cell{})
			}
		}
	}
	return next
}

// Simulate runs steps generations and returns the final grid together with
// a deterministic digest of the full run, usable as a compact witness
// commitment without re-broadcasting every intermediate grid.
func Simulate(initial *Grid, steps int) (*Grid, ids.ID) {
	cur := initial
	digest := ids.Empty
	for i := 0; i < steps; i++ {
		cur = cur.Step()
		digest = mixDigest(digest, cur)
	}
	return cur, digest
}

func mixDigest(prev ids.ID, g *Grid) ids.ID {
	energyA, energyB := g.EnergySums()
	var buf [16]byte
	putUint64(buf[0:8], energyA)
	putUint64(buf[8:16], energyB)
	sum := hash.Concat(prev[:], buf[:])
	id, _ := ids.ToID(sum[:])
	return id
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
