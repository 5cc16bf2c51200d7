// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package field implements the circuit-friendly algebraic hash (§6 crypto
// provider: algebraic_hash). No other package in this module imports it;
// the battle and state reference providers do not call it. §9
// Open Questions leaves the choice between a Poseidon gadget and an ad-hoc
// Merkle-gadget hash to the implementer; this package commits to a Poseidon
// permutation over the bn254 scalar field, since it is the construction
// most amenable to later replacement by a real R1CS gadget without changing
// any public-input shape.
package field

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Width is the sponge state width (rate 2, capacity 1).
const Width = 3

// fullRounds is intentionally small: this is a reference permutation for
// witness construction and native-side verification, not a production
// security parameterization.
const fullRounds = 8

// Element is a scalar field element, re-exported so callers outside this
// package never import gnark-crypto directly.
type Element = fr.Element

// roundConstants are generated deterministically at init time from a fixed
// domain string, so every node derives byte-identical constants without
// shipping a constants table.
var roundConstants [fullRounds][Width]Element

func init() {
	seed := []byte("bitcell/poseidon/v1")
	for r := 0; r < fullRounds; r++ {
		for i := 0; i < Width; i++ {
			var buf [9]byte
			copy(buf[:], seed)
			buf[len(seed)%9] ^= byte(r)
			buf[8] = byte(i)
			roundConstants[r][i].SetBytes(deriveBytes(seed, r, i))
		}
	}
}

// deriveBytes produces 32 pseudo-random bytes for round r, position i by
// repeated squaring of a counter seed; only used to seed roundConstants.
func deriveBytes(seed []byte, r, i int) []byte {
	var acc Element
	acc.SetBytes(seed)
	for k := 0; k < r*Width+i+1; k++ {
		acc.Square(&acc)
	}
	b := acc.Bytes()
	return b[:]
}

func mix(state *[Width]Element) {
	// A simple MDS-like mixing: each output is the sum of all inputs plus
	// one extra copy of itself, which is invertible over the scalar field.
	var sum Element
	for i := range state {
		sum.Add(&sum, &state[i])
	}
	for i := range state {
		state[i].Add(&state[i], &sum)
	}
}

func sbox(x *Element) {
	// x^5, the standard Poseidon S-box for this field.
	var x2, x4 Element
	x2.Square(x)
	x4.Square(&x2)
	x.Mul(&x4, x)
}

func permute(state [Width]Element) [Width]Element {
	for r := 0; r < fullRounds; r++ {
		for i := range state {
			state[i].Add(&state[i], &roundConstants[r][i])
			sbox(&state[i])
		}
		mix(&state)
	}
	return state
}

// Hash absorbs an arbitrary number of field elements (rate 2 per
// permutation call) and squeezes a single output element. This is the
// algebraic_hash collaborator contract from §6, used by commitment binding
// (§3) and both ZK circuits (§4.5, §4.6) for Merkle-path and commitment
// constraints.
func Hash(inputs ...Element) Element {
	var state [Width]Element // state[2] is the capacity lane, left at zero
	for i := 0; i < len(inputs); i += 2 {
		state[0].Add(&state[0], &inputs[i])
		if i+1 < len(inputs) {
			state[1].Add(&state[1], &inputs[i+1])
		}
		state = permute(state)
	}
	return state[0]
}

// HashBytes hashes raw byte slices by first reducing each into a field
// element, mirroring how the circuit witness packs commitment preimages.
func HashBytes(parts ...[]byte) Element {
	elems := make([]Element, len(parts))
	for i, p := range parts {
		elems[i].SetBytes(p)
	}
	return Hash(elems...)
}

// FromUint64 lifts a small integer (e.g. a winner id, a nonce counter) into
// the scalar field.
func FromUint64(v uint64) Element {
	var e Element
	e.SetUint64(v)
	return e
}

// Bytes32 returns the canonical big-endian encoding of e.
func Bytes32(e Element) [32]byte {
	return e.Bytes()
}
