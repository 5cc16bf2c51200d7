// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hash provides the collision-resistant, domain-separated digest
// used for header hashing, commitment binding and canonical encodings
// (§6 crypto provider interface: hash(bytes) -> 32-byte digest). It is not
// circuit-friendly; bitcrypto/field provides the algebraic hash.
package hash

import (
	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Sum256 returns the blake3-256 digest of data.
func Sum256(data []byte) [Size]byte {
	return blake3.Sum256(data)
}

// Domain hashes data under an ASCII domain separator, e.g. the header
// encoding domain "bitcell/header/v1" from §6, so that digests computed for
// different purposes can never collide by construction.
func Domain(domain string, parts ...[]byte) [Size]byte {
	h := blake3.New()
	_, _ = h.Write([]byte(domain))
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil)[:Size])
	return out
}

// Concat hashes the concatenation of parts with no domain separator. Used
// for commitment construction (§3 Commitment: H(pattern‖nonce‖pubkey)).
func Concat(parts ...[]byte) [Size]byte {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil)[:Size])
	return out
}

// Streaming exposes an incremental hasher for callers that feed many small
// fields in sequence, such as the ring-signature transcript.
type Streaming struct {
	h *blake3.Hasher
}

// NewStreaming returns a fresh incremental hasher.
func NewStreaming() *Streaming {
	return &Streaming{h: blake3.New()}
}

// Write appends bytes to the running digest.
func (s *Streaming) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

// Sum returns the current 32-byte digest without finalizing further writes.
func (s *Streaming) Sum() [Size]byte {
	var out [Size]byte
	copy(out[:], s.h.Sum(nil)[:Size])
	return out
}
