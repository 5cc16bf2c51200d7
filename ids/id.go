// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids defines the fixed-width content identifiers used across the
// protocol: 32-byte digests (ID) for blocks, commitments and state roots, and
// 20-byte digests (NodeID) for participant public keys.
package ids

import (
	"encoding/hex"
	"errors"

	"github.com/mr-tron/base58"
)

const (
	// IDLen is the length in bytes of an ID.
	IDLen = 32
	// NodeIDLen is the length in bytes of a NodeID.
	NodeIDLen = 20
)

var (
	// Empty is the zero-value ID.
	Empty ID

	// EmptyNodeID is the zero-value NodeID.
	EmptyNodeID NodeID

	errWrongIDLen     = errors.New("ids: wrong ID length")
	errWrongNodeIDLen = errors.New("ids: wrong NodeID length")
)

// ID is a 32-byte content identifier, used for block hashes, commitments,
// state roots and tournament seeds.
type ID [IDLen]byte

// String returns the base58 encoding of the ID.
func (id ID) String() string {
	return base58.Encode(id[:])
}

// Hex returns the hex encoding of the ID, prefixed with 0x.
func (id ID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Bytes returns a copy of the underlying bytes.
func (id ID) Bytes() []byte {
	out := make([]byte, IDLen)
	copy(out, id[:])
	return out
}

// Compare implements a deterministic lexicographic ordering, used for
// tie-breaks in fork choice and CA majority-owner resolution.
func (id ID) Compare(other ID) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ToID copies b into an ID. b must be exactly IDLen bytes.
func ToID(b []byte) (ID, error) {
	var id ID
	if len(b) != IDLen {
		return id, errWrongIDLen
	}
	copy(id[:], b)
	return id, nil
}

// NodeID is a 20-byte identifier derived from a participant's public key.
type NodeID [NodeIDLen]byte

// String returns the base58 encoding of the NodeID.
func (n NodeID) String() string {
	return base58.Encode(n[:])
}

// Bytes returns a copy of the underlying bytes.
func (n NodeID) Bytes() []byte {
	out := make([]byte, NodeIDLen)
	copy(out, n[:])
	return out
}

// Compare implements lexicographic ordering over NodeIDs, used as the
// tie-break rule for CA birth-cell owner assignment (§4.1) and ring
// membership canonicalization.
func (n NodeID) Compare(other NodeID) int {
	for i := range n {
		if n[i] != other[i] {
			if n[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ToNodeID copies b into a NodeID. b must be exactly NodeIDLen bytes.
func ToNodeID(b []byte) (NodeID, error) {
	var n NodeID
	if len(b) != NodeIDLen {
		return n, errWrongNodeIDLen
	}
	copy(n[:], b)
	return n, nil
}

// NodeIDFromDigest derives a NodeID from the collision-resistant digest of
// a compressed secp256k1 public key by truncating it to NodeIDLen bytes. The
// hash itself is supplied by the caller (bitcrypto/hash) to keep this
// package dependency-free.
func NodeIDFromDigest(digest []byte) NodeID {
	var n NodeID
	copy(n[:], digest[:NodeIDLen])
	return n
}
