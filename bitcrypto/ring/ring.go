// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ring implements a CLSAG-style linkable ring signature over
// secp256k1 (§6 crypto provider: ring_sign/ring_verify). Every glider
// commitment in the commit phase (§4.3) is signed over the epoch's eligible
// pubkey set; two signatures from the same secret key in the same epoch
// share a key image, which is how double-commit and equivocation evidence
// (§3 Evidence event) is detected without ever learning which ring member
// signed.
package ring

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
)

// MinRingSize and MaxRingSize bound the eligible-pubkey ring per §3.
const (
	MinRingSize = 11
	MaxRingSize = 64
)

var (
	ErrRingTooSmall = errors.New("ring: fewer than MinRingSize members")
	ErrRingTooLarge = errors.New("ring: more than MaxRingSize members")
	ErrNotMember    = errors.New("ring: signer is not a ring member")
)

// Signature is a linkable ring signature: a ring-closing challenge and one
// response scalar per ring member, plus the signer's key image.
type Signature struct {
	C         []byte   // 32-byte scalar, the ring-closing challenge
	S         [][]byte // one 32-byte scalar per ring member
	KeyImage  []byte   // 33-byte compressed point
}

func hashToCurve(domain string, input []byte) *secp256k1.PublicKey {
	seed := hash.Domain(domain, input)
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

// stageChallenge computes c_{i+1} = H(message, ring_digest, L_i, R_i),
// binding the signature to the exact message and ring membership set so a
// proof cannot be replayed against a different epoch or ring.
func stageChallenge(message, ringDigest, l, r []byte) secp256k1.ModNScalar {
	digest := hash.Concat([]byte("bitcell/ring/stage"), message, ringDigest, l, r)
	var c secp256k1.ModNScalar
	c.SetByteSlice(digest[:])
	return c
}

func ringDigest(ring []*ecdsa.PublicKey) [32]byte {
	h := hash.NewStreaming()
	for _, pk := range ring {
		_, _ = h.Write(pk.Bytes())
	}
	return h.Sum()
}

// KeyImage computes I = sk * Hp(pk) for the signer, the deterministic
// per-secret-key token used for equivocation linkability (§3, §4.3).
func KeyImage(sk *ecdsa.PrivateKey) []byte {
	pk := sk.Public()
	hp := hashToCurve("bitcell/ring/H2C", pk.Bytes())
	hpJac := jacobian(hp)

	var skScalar secp256k1.ModNScalar
	skScalar.Set(&sk.Scalar().Key)

	imageJac := scalarMult(&skScalar, &hpJac)
	return affineCompressed(&imageJac)
}

// Sign produces a linkable ring signature over message for the ring of
// public keys, signed by sk at ring index signerIndex.
func Sign(ring []*ecdsa.PublicKey, signerIndex int, sk *ecdsa.PrivateKey, message []byte) (*Signature, error) {
	n := len(ring)
	if n < MinRingSize {
		return nil, ErrRingTooSmall
	}
	if n > MaxRingSize {
		return nil, ErrRingTooLarge
	}
	if signerIndex < 0 || signerIndex >= n {
		return nil, ErrNotMember
	}

	rd := ringDigest(ring)
	image := KeyImage(sk)
	imagePoint, err := secp256k1.ParsePubKey(image)
	if err != nil {
		return nil, err
	}
	imageJac := jacobian(imagePoint)

	var skScalar secp256k1.ModNScalar
	skScalar.Set(&sk.Scalar().Key)

	s := make([]secp256k1.ModNScalar, n)
	c := make([]secp256k1.ModNScalar, n)

	// Random-looking but deterministic per-message nonce for the opening
	// scalar at signerIndex, and for every decoy's response scalar.
	deriveScalar := func(label string, i int) secp256k1.ModNScalar {
		digest := hash.Concat([]byte(label), sk.Bytes(), message, []byte{byte(i)})
		var out secp256k1.ModNScalar
		out.SetByteSlice(digest[:])
		return out
	}

	k := deriveScalar("bitcell/ring/nonce", signerIndex)
	lStart := scalarMultBase(&k)
	hp := hashToCurve("bitcell/ring/H2C", ring[signerIndex].Bytes())
	hpJac := jacobian(hp)
	rStart := scalarMult(&k, &hpJac)

	lBytes := affineCompressed(&lStart)
	rBytes := affineCompressed(&rStart)
	next := (signerIndex + 1) % n
	c[next] = stageChallenge(message, rd[:], lBytes, rBytes)

	for steps := 0; steps < n-1; steps++ {
		i := next
		if i == signerIndex {
			break
		}
		s[i] = deriveScalar("bitcell/ring/decoy", i)

		pkJac := jacobian(ring[i].Point())
		sG := scalarMultBase(&s[i])
		cPk := scalarMult(&c[i], &pkJac)
		lJac := addPoints(&sG, &cPk)

		hpI := hashToCurve("bitcell/ring/H2C", ring[i].Bytes())
		hpIJac := jacobian(hpI)
		sHp := scalarMult(&s[i], &hpIJac)
		cImage := scalarMult(&c[i], &imageJac)
		rJac := addPoints(&sHp, &cImage)

		lBytes = affineCompressed(&lJac)
		rBytes = affineCompressed(&rJac)
		next = (i + 1) % n
		c[next] = stageChallenge(message, rd[:], lBytes, rBytes)
	}

	// Close the ring: s_signer = k - c_signer*sk mod n.
	cAtSigner := c[signerIndex]
	var cSk secp256k1.ModNScalar
	cSk.Set(&cAtSigner)
	cSk.Mul(&skScalar)
	cSk.Negate()
	sSigner := k
	sSigner.Add(&cSk)
	s[signerIndex] = sSigner

	out := &Signature{
		C:        scalarBytes(c[0]),
		S:        make([][]byte, n),
		KeyImage: image,
	}
	for i := range s {
		out.S[i] = scalarBytes(s[i])
	}
	return out, nil
}

func scalarBytes(s secp256k1.ModNScalar) []byte {
	b := s.Bytes()
	return b[:]
}

// Verify checks a ring signature over message against ring, re-deriving the
// ring-closing challenge sequence seeded at sig.C and confirming it returns
// to sig.C after one full pass around the ring.
func Verify(ring []*ecdsa.PublicKey, message []byte, sig *Signature) bool {
	n := len(ring)
	if n < MinRingSize || n > MaxRingSize {
		return false
	}
	if len(sig.S) != n || len(sig.C) != 32 || len(sig.KeyImage) != 33 {
		return false
	}
	imagePoint, err := secp256k1.ParsePubKey(sig.KeyImage)
	if err != nil {
		return false
	}
	imageJac := jacobian(imagePoint)

	rd := ringDigest(ring)

	var c secp256k1.ModNScalar
	var cb [32]byte
	copy(cb[:], sig.C)
	c.SetBytes(&cb)
	c0 := c

	for i := 0; i < n; i++ {
		var s secp256k1.ModNScalar
		var sb [32]byte
		copy(sb[:], sig.S[i])
		s.SetBytes(&sb)

		pkJac := jacobian(ring[i].Point())
		sG := scalarMultBase(&s)
		cPk := scalarMult(&c, &pkJac)
		lJac := addPoints(&sG, &cPk)

		hpI := hashToCurve("bitcell/ring/H2C", ring[i].Bytes())
		hpIJac := jacobian(hpI)
		sHp := scalarMult(&s, &hpIJac)
		cImage := scalarMult(&c, &imageJac)
		rJac := addPoints(&sHp, &cImage)

		lBytes := affineCompressed(&lJac)
		rBytes := affineCompressed(&rJac)
		c = stageChallenge(message, rd[:], lBytes, rBytes)
	}

	return c.Equals(&c0)
}

// Linked reports whether two signatures were produced by the same secret
// key, i.e. carry the same key image — the equivocation test of §3/§4.3.
func Linked(a, b *Signature) bool {
	return string(a.KeyImage) == string(b.KeyImage)
}
