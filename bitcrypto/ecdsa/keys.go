// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ecdsa wraps secp256k1 key generation and ECDSA signing, the
// ecdsa.sign/verify collaborator from §6. Every other primitive in
// bitcrypto (Pedersen commitments, the VRF, CLSAG ring signatures) is built
// on the same curve so a node only needs one elliptic-curve implementation.
package ecdsa

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dsaecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
	"github.com/Steake/BitCell-sub000/ids"
)

// PrivateKey is a participant's secp256k1 signing key.
type PrivateKey struct {
	inner *secp256k1.PrivateKey
}

// PublicKey is a participant's secp256k1 verification key.
type PublicKey struct {
	inner *secp256k1.PublicKey
}

// GenerateKey creates a new random keypair.
func GenerateKey() (*PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{inner: k}, nil
}

// PrivateKeyFromBytes parses a 32-byte scalar into a PrivateKey.
func PrivateKeyFromBytes(b []byte) *PrivateKey {
	return &PrivateKey{inner: secp256k1.PrivKeyFromBytes(b)}
}

// Bytes returns the raw 32-byte scalar.
func (k *PrivateKey) Bytes() []byte {
	return k.inner.Serialize()
}

// Public returns the corresponding public key.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{inner: k.inner.PubKey()}
}

// Sign produces a deterministic (RFC 6979) ECDSA signature over digest,
// which callers obtain from bitcrypto/hash. No randomness source is taken:
// the nonce is derived from the key and digest.
func (k *PrivateKey) Sign(digest []byte) []byte {
	sig := dsaecdsa.Sign(k.inner, digest)
	return sig.Serialize()
}

// Scalar exposes the raw secp256k1 private key for use by the VRF and ring
// signature packages, which need direct curve operations beyond ECDSA.
func (k *PrivateKey) Scalar() *secp256k1.PrivateKey {
	return k.inner
}

// ParsePublicKey parses a 33-byte compressed public key.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, err
	}
	return &PublicKey{inner: pk}, nil
}

// Bytes returns the 33-byte compressed encoding.
func (p *PublicKey) Bytes() []byte {
	return p.inner.SerializeCompressed()
}

// Point exposes the raw secp256k1 public key for curve arithmetic used by
// the VRF, Pedersen and ring-signature packages.
func (p *PublicKey) Point() *secp256k1.PublicKey {
	return p.inner
}

// NodeID derives this public key's NodeID the way every eligibility
// snapshot and ring membership check in the tournament state machine does
// (§3 Bonded participant).
func (p *PublicKey) NodeID() ids.NodeID {
	digest := hash.Sum256(p.Bytes())
	return ids.NodeIDFromDigest(digest[:])
}

// Verify checks an ECDSA signature over digest.
func Verify(pub *PublicKey, digest, sig []byte) bool {
	parsed, err := dsaecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest, pub.inner)
}
