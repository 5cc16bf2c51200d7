// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vrf implements an ECVRF over secp256k1 in the Schnorr-proof style
// of RFC 9381 (§6 crypto provider: vrf.prove/vrf.verify). Every block
// header's vrf_output is chained from the previous block's vrf_output
// (§4.3), so grinding requires breaking the VRF itself rather than simply
// picking a favorable input.
package vrf

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
)

// OutputSize is the length of a VRF output in bytes.
const OutputSize = 32

// Proof is an ECVRF proof: (Gamma, c, s).
type Proof struct {
	Gamma []byte // compressed point, 33 bytes
	C     []byte // 32-byte scalar
	S     []byte // 32-byte scalar
}

var (
	errMalformedProof = errors.New("vrf: malformed proof")
	errVerifyFailed    = errors.New("vrf: verification failed")
)

// hashToCurve maps an arbitrary input to a curve point via try-and-increment,
// the same construction bitcrypto/pedersen uses for its second generator.
func hashToCurve(input []byte) *secp256k1.PublicKey {
	seed := hash.Domain("bitcell/vrf/H2C", input)
	for nonce := byte(0); ; nonce++ {
		digest := hash.Concat(seed[:], []byte{nonce})
		compressed := append([]byte{0x02}, digest[:]...)
		if pk, err := secp256k1.ParsePubKey(compressed); err == nil {
			return pk
		}
	}
}

func jacobian(pk *secp256k1.PublicKey) secp256k1.JacobianPoint {
	var p secp256k1.JacobianPoint
	pk.AsJacobian(&p)
	return p
}

func scalarMultBase(s *secp256k1.ModNScalar) secp256k1.JacobianPoint {
	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s, &p)
	return p
}

func scalarMult(s *secp256k1.ModNScalar, p *secp256k1.JacobianPoint) secp256k1.JacobianPoint {
	var out secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(s, p, &out)
	return out
}

func addPoints(a, b *secp256k1.JacobianPoint) secp256k1.JacobianPoint {
	var out secp256k1.JacobianPoint
	secp256k1.AddNonConst(a, b, &out)
	return out
}

func affineCompressed(p *secp256k1.JacobianPoint) []byte {
	p.ToAffine()
	pk := secp256k1.NewPublicKey(&p.X, &p.Y)
	return pk.SerializeCompressed()
}

// challenge computes c = H("bitcell/vrf/challenge" || pk || Gamma || U || V),
// reduced to a scalar, binding the Schnorr-style proof transcript.
func challenge(pk, gamma, u, v []byte) secp256k1.ModNScalar {
	digest := hash.Concat([]byte("bitcell/vrf/challenge"), pk, gamma, u, v)
	var c secp256k1.ModNScalar
	c.SetByteSlice(digest[:])
	return c
}

// nonce derives a deterministic per-(sk,input) Schnorr nonce, avoiding the
// need for a secure RNG at proving time (grinding resistance depends only
// on sk, never on caller-supplied randomness).
func nonce(sk *secp256k1.PrivateKey, input []byte) secp256k1.ModNScalar {
	digest := hash.Concat([]byte("bitcell/vrf/nonce"), sk.Serialize(), input)
	var k secp256k1.ModNScalar
	k.SetByteSlice(digest[:])
	return k
}

// Prove computes (output, proof) for input under sk.
func Prove(sk *ecdsa.PrivateKey, input []byte) ([]byte, *Proof, error) {
	scalar := sk.Scalar()
	h := hashToCurve(input)
	hJac := jacobian(h)

	var skScalar secp256k1.ModNScalar
	skScalar.Set(&scalar.Key)

	gammaJac := scalarMult(&skScalar, &hJac)
	gammaBytes := affineCompressed(&gammaJac)

	k := nonce(scalar, input)
	uJac := scalarMultBase(&k)
	vJac := scalarMult(&k, &hJac)

	uBytes := affineCompressed(&uJac)
	vBytes := affineCompressed(&vJac)

	pubBytes := sk.Public().Bytes()
	c := challenge(pubBytes, gammaBytes, uBytes, vBytes)

	var cSk secp256k1.ModNScalar
	cSk.Set(&c)
	cSk.Mul(&skScalar)
	s := k
	s.Add(&cSk)

	output := hash.Concat([]byte("bitcell/vrf/output"), gammaBytes)

	cBytes := c.Bytes()
	sBytes := s.Bytes()
	proof := &Proof{
		Gamma: gammaBytes,
		C:     cBytes[:],
		S:     sBytes[:],
	}
	return output[:], proof, nil
}

// Verify checks that output is the VRF evaluation of input under pub,
// attested by proof.
func Verify(pub *ecdsa.PublicKey, input, output []byte, proof *Proof) (bool, error) {
	if len(proof.Gamma) != 33 || len(proof.C) != 32 || len(proof.S) != 32 {
		return false, errMalformedProof
	}
	gammaPoint, err := secp256k1.ParsePubKey(proof.Gamma)
	if err != nil {
		return false, errMalformedProof
	}
	gammaJac := jacobian(gammaPoint)

	var c, s secp256k1.ModNScalar
	var cb, sb [32]byte
	copy(cb[:], proof.C)
	copy(sb[:], proof.S)
	c.SetBytes(&cb)
	s.SetBytes(&sb)

	h := hashToCurve(input)
	hJac := jacobian(h)

	// U = s*G - c*pk
	pkJac := jacobian(pub.Point())
	negC := c
	negC.Negate()
	sG := scalarMultBase(&s)
	negCPk := scalarMult(&negC, &pkJac)
	uJac := addPoints(&sG, &negCPk)

	// V = s*H - c*Gamma
	sH := scalarMult(&s, &hJac)
	negCGamma := scalarMult(&negC, &gammaJac)
	vJac := addPoints(&sH, &negCGamma)

	uBytes := affineCompressed(&uJac)
	vBytes := affineCompressed(&vJac)

	expectedC := challenge(pub.Bytes(), proof.Gamma, uBytes, vBytes)
	if !expectedC.Equals(&c) {
		return false, errVerifyFailed
	}

	expectedOutput := hash.Concat([]byte("bitcell/vrf/output"), proof.Gamma)
	if string(expectedOutput[:]) != string(output) {
		return false, errVerifyFailed
	}
	return true, nil
}
