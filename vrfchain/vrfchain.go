// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vrfchain implements the per-block VRF proof chain and tournament
// seed derivation of §4.3: each proposer's VRF input is exactly the
// previous block's VRF output, so the proposer cannot grind for a
// favorable value, and the seed for an epoch's bracket is a fixed,
// domain-separated function of the matched proposers' VRF outputs.
package vrfchain

import (
	"errors"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
	"github.com/Steake/BitCell-sub000/bitcrypto/vrf"
)

// ErrChainMismatch is returned when a header's VRF input does not equal
// the parent's VRF output.
var ErrChainMismatch = errors.New("vrfchain: vrf input does not chain from parent output")

// Link is one block's VRF contribution to the chain: the proposer's
// public key, the VRF output, and the proof that ties them to the input.
type Link struct {
	ProposerPub *ecdsa.PublicKey
	Input       []byte // must equal the parent block's Output
	Output      []byte
	Proof       *vrf.Proof
}

// Produce computes this proposer's VRF output/proof for the next block,
// whose input is mandated to be exactly the parent's output (§4.3
// grinding resistance).
func Produce(sk *ecdsa.PrivateKey, parentOutput []byte) (*Link, error) {
	output, proof, err := vrf.Prove(sk, parentOutput)
	if err != nil {
		return nil, err
	}
	return &Link{
		ProposerPub: sk.Public(),
		Input:       append([]byte(nil), parentOutput...),
		Output:      output,
		Proof:       proof,
	}, nil
}

// Verify checks that a Link is internally consistent (the VRF proof
// verifies for the claimed output under the claimed input) and that its
// input chains from parentOutput.
func Verify(link *Link, parentOutput []byte) (bool, error) {
	if !bytesEqual(link.Input, parentOutput) {
		return false, ErrChainMismatch
	}
	return vrf.Verify(link.ProposerPub, link.Input, link.Output, link.Proof)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CombineSeed derives the tournament seed for an epoch from the matched
// proposers'/committee's VRF outputs, via domain-separated concatenation
// hash (§4.3: "seed_h = H(combine(vrf_outputs...))"). The order of
// outputs must be canonical (callers sort by participant NodeID before
// calling) so that seed_h is a fixed function of the closed commit set,
// independent of message arrival order.
func CombineSeed(vrfOutputs [][]byte) [32]byte {
	return hash.Domain("bitcell/tournament/seed", vrfOutputs...)
}
