// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pedersen implements additively-homomorphic Pedersen commitments
// over secp256k1 (§6 crypto provider: pedersen.commit(value, blinding) -> C),
// with a nothing-up-my-sleeve second generator H. The VRF and ring-signature
// packages do not import this package.
package pedersen

import (
	"encoding/binary"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
)

// gCompressed is the standard secp256k1 base point in compressed form.
var gCompressed = []byte{
	0x02, 0x79, 0xbe, 0x66, 0x7e, 0xf9, 0xdc, 0xbb, 0xac, 0x55, 0xa0, 0x62, 0x95, 0xce, 0x87, 0x0b,
	0x07, 0x02, 0x9b, 0xfc, 0xdb, 0x2d, 0xce, 0x28, 0xd9, 0x59, 0xf2, 0x81, 0x5b, 0x16, 0xf8, 0x17, 0x98,
}

// Commitment is a compressed secp256k1 point C = value*G + blinding*H.
type Commitment struct {
	point *secp256k1.PublicKey
}

// Bytes returns the 33-byte compressed point encoding.
func (c *Commitment) Bytes() []byte {
	return c.point.SerializeCompressed()
}

// secondGenerator derives H by repeatedly hashing G's encoding until the
// digest parses as a valid compressed point: the standard try-and-increment
// construction for a nothing-up-my-sleeve second generator.
func secondGenerator() *secp256k1.PublicKey {
	seed := hash.Domain("bitcell/pedersen/H", gCompressed)
	for nonce := uint32(0); ; nonce++ {
		var nb [4]byte
		binary.BigEndian.PutUint32(nb[:], nonce)
		digest := hash.Concat(seed[:], nb[:])
		compressed := append([]byte{0x02}, digest[:]...)
		if pk, err := secp256k1.ParsePubKey(compressed); err == nil {
			return pk
		}
	}
}

var hGenerator = secondGenerator()

func scalarFromUint64(v uint64) secp256k1.ModNScalar {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[24:], v)
	var s secp256k1.ModNScalar
	s.SetBytes(&buf)
	return s
}

func jacobianOf(pk *secp256k1.PublicKey) secp256k1.JacobianPoint {
	var p secp256k1.JacobianPoint
	pk.AsJacobian(&p)
	return p
}

// Commit returns C = value*G + blinding*H.
func Commit(value uint64, blinding [32]byte) *Commitment {
	valueScalar := scalarFromUint64(value)
	var blindScalar secp256k1.ModNScalar
	blindScalar.SetBytes(&blinding)

	var vPoint, bPoint, sum secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&valueScalar, &vPoint)
	hJacobian := jacobianOf(hGenerator)
	secp256k1.ScalarMultNonConst(&blindScalar, &hJacobian, &bPoint)
	secp256k1.AddNonConst(&vPoint, &bPoint, &sum)
	sum.ToAffine()

	return &Commitment{point: secp256k1.NewPublicKey(&sum.X, &sum.Y)}
}

// Open checks that C == Commit(value, blinding), used to verify a claimed
// opening out-of-circuit before it is fed into a ZK witness.
func Open(c *Commitment, value uint64, blinding [32]byte) bool {
	recomputed := Commit(value, blinding)
	return string(c.Bytes()) == string(recomputed.Bytes())
}

// FromBytes parses a 33-byte compressed commitment.
func FromBytes(b []byte) (*Commitment, error) {
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, err
	}
	return &Commitment{point: pk}, nil
}
