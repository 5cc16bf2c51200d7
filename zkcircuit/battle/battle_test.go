// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package battle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/ca"
)

func TestReferenceProviderProvesAndVerifiesMatchingWinner(t *testing.T) {
	seed := [32]byte{3, 3, 3}
	nonceA := [32]byte{1}
	nonceB := [32]byte{2}
	pkA := []byte("pk-a")
	pkB := []byte("pk-b")
	patternA := ca.StandardGlider(200)
	patternB := ca.StandardGlider(1)

	commitA := ca.CommitPattern(patternA, nonceA, pkA)
	commitB := ca.CommitPattern(patternB, nonceB, pkB)

	result, err := ca.Battle(commitA, commitB, patternA, patternB, nonceA, nonceB, pkA, pkB, seed, 0)
	require.NoError(t, err)

	pub := PublicInputs{
		CommitA: commitA, CommitB: commitB,
		PubKeyA: pkA, PubKeyB: pkB,
		Seed: seed, WinnerID: fromCAWinner(result.Winner),
	}
	witness := Witness{PatternA: patternA, PatternB: patternB, NonceA: nonceA, NonceB: nonceB}

	var provider ReferenceProvider
	proof, err := provider.ProveBattle(pub, witness)
	require.NoError(t, err)

	ok, err := provider.VerifyBattle(nil, pub, proof)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReferenceProviderRejectsFalseWinnerClaim(t *testing.T) {
	seed := [32]byte{4}
	nonceA := [32]byte{1}
	nonceB := [32]byte{2}
	pkA := []byte("pk-a")
	pkB := []byte("pk-b")
	patternA := ca.StandardGlider(200)
	patternB := ca.StandardGlider(1)

	commitA := ca.CommitPattern(patternA, nonceA, pkA)
	commitB := ca.CommitPattern(patternB, nonceB, pkB)

	pub := PublicInputs{
		CommitA: commitA, CommitB: commitB,
		PubKeyA: pkA, PubKeyB: pkB,
		Seed: seed, WinnerID: WinnerDraw, // a false claim, almost certainly wrong
	}
	witness := Witness{PatternA: patternA, PatternB: patternB, NonceA: nonceA, NonceB: nonceB}

	var provider ReferenceProvider
	_, err := provider.ProveBattle(pub, witness)
	require.Error(t, err)
}

func TestVerifyBattleRejectsProofForDifferentPublicInputs(t *testing.T) {
	seed := [32]byte{3, 3, 3}
	nonceA := [32]byte{1}
	nonceB := [32]byte{2}
	pkA := []byte("pk-a")
	pkB := []byte("pk-b")
	patternA := ca.StandardGlider(200)
	patternB := ca.StandardGlider(1)

	commitA := ca.CommitPattern(patternA, nonceA, pkA)
	commitB := ca.CommitPattern(patternB, nonceB, pkB)

	result, err := ca.Battle(commitA, commitB, patternA, patternB, nonceA, nonceB, pkA, pkB, seed, 0)
	require.NoError(t, err)

	pub := PublicInputs{
		CommitA: commitA, CommitB: commitB,
		PubKeyA: pkA, PubKeyB: pkB,
		Seed: seed, WinnerID: fromCAWinner(result.Winner),
	}
	witness := Witness{PatternA: patternA, PatternB: patternB, NonceA: nonceA, NonceB: nonceB}

	var provider ReferenceProvider
	proof, err := provider.ProveBattle(pub, witness)
	require.NoError(t, err)

	// A proof from one match must not verify against a claim for another
	// (different winner_id), regardless of the proof bytes themselves
	// being non-empty.
	forged := pub
	if forged.WinnerID == WinnerA {
		forged.WinnerID = WinnerB
	} else {
		forged.WinnerID = WinnerA
	}
	ok, err := provider.VerifyBattle(nil, forged, proof)
	require.NoError(t, err)
	require.False(t, ok)

	// An arbitrary non-empty blob must not verify as a real proof.
	ok, err = provider.VerifyBattle(nil, pub, Proof("not-a-real-proof"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProveWalkoverRequiresEvidence(t *testing.T) {
	var provider ReferenceProvider
	_, err := provider.ProveWalkover(PublicInputs{}, WalkoverWitness{})
	require.ErrorIs(t, err, ErrWalkoverUnproven)

	proof, err := provider.ProveWalkover(PublicInputs{}, WalkoverWitness{NoRevealAttestation: []byte("sig")})
	require.NoError(t, err)
	require.NotEmpty(t, proof)
}
