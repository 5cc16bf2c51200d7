// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ca

import "errors"

// MaxCustomExtent bounds a custom pattern's bounding box (§3 Glider:
// "custom patterns whose spatial extent <= 16x16").
const MaxCustomExtent = 16

// Offset is one live cell in a glider pattern, relative to its spawn
// origin.
type Offset struct {
	DX, DY int
}

// PatternKind names a documented glider from the standard library, or a
// caller-supplied custom pattern (§3 Glider).
type PatternKind uint8

const (
	PatternStandard PatternKind = iota
	PatternLWSS
	PatternMWSS
	PatternHWSS
	PatternCustom
)

// Pattern is a finite glider: an ordered offset list plus the nominal
// per-cell energy budget assigned at spawn.
type Pattern struct {
	Kind    PatternKind
	Offsets []Offset
	Energy0 uint8
}

var (
	ErrEnergyTooHigh  = errors.New("ca: glider energy budget exceeds 255")
	ErrPatternEmpty   = errors.New("ca: glider pattern has no live cells")
	ErrExtentTooLarge = errors.New("ca: custom pattern extent exceeds 16x16")
)

// StandardGlider is the classic 5-cell Conway glider.
func StandardGlider(energy0 uint8) Pattern {
	return Pattern{
		Kind: PatternStandard,
		Offsets: []Offset{
			{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2},
		},
		Energy0: energy0,
	}
}

// LWSS is the lightweight spaceship.
func LWSS(energy0 uint8) Pattern {
	return Pattern{
		Kind: PatternLWSS,
		Offsets: []Offset{
			{1, 0}, {4, 0},
			{0, 1},
			{0, 2}, {4, 2},
			{0, 3}, {1, 3}, {2, 3}, {3, 3},
		},
		Energy0: energy0,
	}
}

// MWSS is the middleweight spaceship.
func MWSS(energy0 uint8) Pattern {
	return Pattern{
		Kind: PatternMWSS,
		Offsets: []Offset{
			{2, 0},
			{0, 1}, {4, 1},
			{5, 2},
			{0, 3}, {5, 3},
			{1, 4}, {2, 4}, {3, 4}, {4, 4}, {5, 4},
		},
		Energy0: energy0,
	}
}

// HWSS is the heavyweight spaceship.
func HWSS(energy0 uint8) Pattern {
	return Pattern{
		Kind: PatternHWSS,
		Offsets: []Offset{
			{2, 0}, {3, 0},
			{0, 1}, {5, 1},
			{6, 2},
			{0, 3}, {6, 3},
			{1, 4}, {2, 4}, {3, 4}, {4, 4}, {5, 4}, {6, 4},
		},
		Energy0: energy0,
	}
}

// CustomPattern validates and constructs an arbitrary caller-supplied
// pattern, enforcing the §3 extent bound.
func CustomPattern(offsets []Offset, energy0 uint8) (Pattern, error) {
	if len(offsets) == 0 {
		return Pattern{}, ErrPatternEmpty
	}
	minX, maxX := offsets[0].DX, offsets[0].DX
	minY, maxY := offsets[0].DY, offsets[0].DY
	for _, o := range offsets {
		if o.DX < minX {
			minX = o.DX
		}
		if o.DX > maxX {
			maxX = o.DX
		}
		if o.DY < minY {
			minY = o.DY
		}
		if o.DY > maxY {
			maxY = o.DY
		}
	}
	if maxX-minX+1 > MaxCustomExtent || maxY-minY+1 > MaxCustomExtent {
		return Pattern{}, ErrExtentTooLarge
	}
	return Pattern{Kind: PatternCustom, Offsets: append([]Offset(nil), offsets...), Energy0: energy0}, nil
}

// BoundingBox returns the pattern's (width, height) footprint.
func (p Pattern) BoundingBox() (width, height int) {
	minX, maxX := p.Offsets[0].DX, p.Offsets[0].DX
	minY, maxY := p.Offsets[0].DY, p.Offsets[0].DY
	for _, o := range p.Offsets {
		if o.DX < minX {
			minX = o.DX
		}
		if o.DX > maxX {
			maxX = o.DX
		}
		if o.DY < minY {
			minY = o.DY
		}
		if o.DY > maxY {
			maxY = o.DY
		}
	}
	return maxX - minX + 1, maxY - minY + 1
}

// Place spawns the pattern on g at origin (ox,oy), owned by owner, with
// every spawned cell carrying Energy0 (§4.1 Battle step 3).
func (p Pattern) Place(g *Grid, ox, oy int, owner Owner) {
	for _, o := range p.Offsets {
		g.Set(ox+o.DX, oy+o.DY, Cell{Alive: true, Energy: p.Energy0, Owner: owner})
	}
}
