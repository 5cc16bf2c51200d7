// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package commitreveal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/bitcrypto/ring"
	"github.com/Steake/BitCell-sub000/ca"
	"github.com/Steake/BitCell-sub000/ids"
)

func buildEligibleRing(t *testing.T, n int) ([]*ecdsa.PrivateKey, []*ecdsa.PublicKey) {
	t.Helper()
	privs := make([]*ecdsa.PrivateKey, n)
	pubs := make([]*ecdsa.PublicKey, n)
	for i := 0; i < n; i++ {
		sk, err := ecdsa.GenerateKey()
		require.NoError(t, err)
		privs[i] = sk
		pubs[i] = sk.Public()
	}
	return privs, pubs
}

func TestAddCommitVerifiesRingSig(t *testing.T) {
	privs, pubs := buildEligibleRing(t, ring.MinRingSize)
	ledger := NewLedger(pubs)

	pattern := ca.StandardGlider(50)
	nonce := [32]byte{1}
	pk := privs[3].Public().Bytes()
	commitID := ca.CommitPattern(pattern, nonce, pk)

	sig, err := ring.Sign(pubs, 3, privs[3], commitID[:])
	require.NoError(t, err)

	evidence, err := ledger.AddCommit(&Commitment{
		Participant: nodeIDFor(t, privs[3]),
		CommitID:    commitID,
		RingSig:     sig,
		KeyImage:    sig.KeyImage,
	}, commitID[:])
	require.NoError(t, err)
	require.Nil(t, evidence)
	require.Equal(t, 1, ledger.CommitCount())
}

func TestAddCommitDetectsEquivocation(t *testing.T) {
	privs, pubs := buildEligibleRing(t, ring.MinRingSize)
	ledger := NewLedger(pubs)

	patternA := ca.StandardGlider(1)
	patternB := ca.LWSS(1)
	nonceA := [32]byte{1}
	nonceB := [32]byte{2}
	pk := privs[5].Public().Bytes()

	commitA := ca.CommitPattern(patternA, nonceA, pk)
	commitB := ca.CommitPattern(patternB, nonceB, pk)

	sigA, err := ring.Sign(pubs, 5, privs[5], commitA[:])
	require.NoError(t, err)
	sigB, err := ring.Sign(pubs, 5, privs[5], commitB[:])
	require.NoError(t, err)

	participantA := idOf(1)
	participantB := idOf(2)

	evidence, err := ledger.AddCommit(&Commitment{
		Participant: participantA, CommitID: commitA, RingSig: sigA, KeyImage: sigA.KeyImage,
	}, commitA[:])
	require.NoError(t, err)
	require.Nil(t, evidence)

	evidence, err = ledger.AddCommit(&Commitment{
		Participant: participantB, CommitID: commitB, RingSig: sigB, KeyImage: sigB.KeyImage,
	}, commitB[:])
	require.NoError(t, err)
	require.NotNil(t, evidence, "same key image from two participant slots must be flagged")
	require.Equal(t, participantA, evidence.First)
	require.Equal(t, participantB, evidence.Second)
}

func TestAddRevealRejectsMismatch(t *testing.T) {
	privs, pubs := buildEligibleRing(t, ring.MinRingSize)
	ledger := NewLedger(pubs)

	pattern := ca.StandardGlider(10)
	nonce := [32]byte{7}
	pk := privs[0].Public().Bytes()
	commitID := ca.CommitPattern(pattern, nonce, pk)
	sig, err := ring.Sign(pubs, 0, privs[0], commitID[:])
	require.NoError(t, err)

	p := idOf(1)
	_, err = ledger.AddCommit(&Commitment{Participant: p, CommitID: commitID, RingSig: sig, KeyImage: sig.KeyImage}, commitID[:])
	require.NoError(t, err)

	wrongNonce := [32]byte{8}
	err = ledger.AddReveal(&Reveal{Participant: p, Pattern: pattern, Nonce: wrongNonce}, pk)
	require.ErrorIs(t, err, ErrRevealMismatch)

	err = ledger.AddReveal(&Reveal{Participant: p, Pattern: pattern, Nonce: nonce}, pk)
	require.NoError(t, err)
	require.True(t, ledger.Revealed(p))
}

func TestForfeitedWhenCommittedButNotRevealed(t *testing.T) {
	_, pubs := buildEligibleRing(t, ring.MinRingSize)
	ledger := NewLedger(pubs)
	p := idOf(9)
	require.False(t, ledger.Forfeited(p), "never committed is not a forfeit")

	ledger.commits[p] = &Commitment{Participant: p}
	require.True(t, ledger.Forfeited(p))
}

func TestMinCommitsFormula(t *testing.T) {
	require.Equal(t, 2, MinCommits(1))
	require.Equal(t, 2, MinCommits(2))
	require.Equal(t, 2, MinCommits(3))
	require.Equal(t, 5, MinCommits(10))
}

func idOf(b byte) (n ids.NodeID) {
	n[0] = b
	return n
}

func nodeIDFor(t *testing.T, sk *ecdsa.PrivateKey) (n ids.NodeID) {
	t.Helper()
	copy(n[:], sk.Public().NodeID().Bytes())
	return n
}
