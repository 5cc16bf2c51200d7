// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package tournament

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/bitcrypto/ring"
	"github.com/Steake/BitCell-sub000/ca"
	"github.com/Steake/BitCell-sub000/commitreveal"
	"github.com/Steake/BitCell-sub000/ids"
)

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 9: 16}
	for n, want := range cases {
		require.Equal(t, want, nextPowerOfTwo(n))
	}
}

func TestAssembleBracketAssignsByesAndPairsRemainder(t *testing.T) {
	participants := make([]ids.NodeID, 5)
	for i := range participants {
		participants[i][0] = byte(i + 1)
	}
	seed := [32]byte{42}

	matches := AssembleBracket(participants, seed)
	require.Len(t, matches, 4) // next pow2(5)=8, 8/2=4 bracket slots

	byeCount := 0
	for _, m := range matches {
		if m.Bye {
			byeCount++
		}
	}
	require.Equal(t, 3, byeCount) // 8-5 = 3 byes
}

func TestAssembleBracketIsDeterministic(t *testing.T) {
	participants := make([]ids.NodeID, 6)
	for i := range participants {
		participants[i][0] = byte(i + 1)
	}
	seed := [32]byte{7, 7, 7}

	m1 := AssembleBracket(participants, seed)
	m2 := AssembleBracket(participants, seed)
	require.Equal(t, m1, m2)
}

func TestStepRejectsOutOfPhaseEvents(t *testing.T) {
	tour := New(1, DefaultParams())
	_, err := tour.Step(Event{Kind: EvCommitDeadline})
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestFullHappyPathFirstRound(t *testing.T) {
	privs := make([]*ecdsa.PrivateKey, ring.MinRingSize)
	pubs := make([]*ecdsa.PublicKey, ring.MinRingSize)
	nodeIDs := make([]ids.NodeID, ring.MinRingSize)
	for i := range privs {
		sk, err := ecdsa.GenerateKey()
		require.NoError(t, err)
		privs[i] = sk
		pubs[i] = sk.Public()
		nodeIDs[i] = sk.Public().NodeID()
	}

	tour := New(5, DefaultParams())
	require.NoError(t, tour.Snapshot(nodeIDs, pubs))
	require.Equal(t, PhaseCommit, tour.Phase)

	// Exactly the §4.4 minimum (max(2, ceil(|M_h|/2))=6 of the 11 eligible
	// participants) commit & reveal; the rest stay eligible but silent.
	minCommits := commitreveal.MinCommits(len(nodeIDs))
	patterns := []ca.Pattern{ca.StandardGlider(32), ca.LWSS(32), ca.MWSS(32), ca.HWSS(32), ca.StandardGlider(16), ca.LWSS(16)}
	nonces := make([][32]byte, minCommits)
	for i := 0; i < minCommits; i++ {
		nonces[i] = [32]byte{byte(i + 1)}
		pk := privs[i].Public().Bytes()
		commitID := ca.CommitPattern(patterns[i%len(patterns)], nonces[i], pk)
		sig, err := ring.Sign(pubs, i, privs[i], commitID[:])
		require.NoError(t, err)
		_, err = tour.Ledger.AddCommit(&commitreveal.Commitment{
			Participant: nodeIDs[i],
			CommitID:    commitID,
			RingSig:     sig,
			KeyImage:    sig.KeyImage,
		}, commitID[:])
		require.NoError(t, err)
	}
	require.NoError(t, tour.CloseCommit())
	require.Equal(t, PhaseSeed, tour.Phase)

	require.NoError(t, tour.DeriveSeed([32]byte{99}))
	require.Equal(t, PhasePairing, tour.Phase)

	require.NoError(t, tour.FixBracket())
	require.Equal(t, PhaseReveal, tour.Phase)
	require.NotEmpty(t, tour.Bracket)

	for i := 0; i < minCommits; i++ {
		pk := privs[i].Public().Bytes()
		err := tour.Ledger.AddReveal(&commitreveal.Reveal{
			Participant: nodeIDs[i],
			Pattern:     patterns[i%len(patterns)],
			Nonce:       nonces[i],
		}, pk)
		require.NoError(t, err)
	}

	require.NoError(t, tour.CloseReveal())
	require.Equal(t, PhaseBattle, tour.Phase)

	pkByNode := make(map[ids.NodeID][]byte)
	for i := 0; i < minCommits; i++ {
		pkByNode[nodeIDs[i]] = privs[i].Public().Bytes()
	}
	require.NoError(t, tour.RunBattles(func(n ids.NodeID) []byte { return pkByNode[n] }))
	require.Equal(t, PhasePropose, tour.Phase)
	require.Len(t, tour.Results, len(tour.Bracket))
}

func TestPlayRoundsResolvesToSingleWinnerAndProposes(t *testing.T) {
	privs := make([]*ecdsa.PrivateKey, ring.MinRingSize)
	pubs := make([]*ecdsa.PublicKey, ring.MinRingSize)
	nodeIDs := make([]ids.NodeID, ring.MinRingSize)
	for i := range privs {
		sk, err := ecdsa.GenerateKey()
		require.NoError(t, err)
		privs[i] = sk
		pubs[i] = sk.Public()
		nodeIDs[i] = sk.Public().NodeID()
	}

	tour := New(5, DefaultParams())
	require.NoError(t, tour.Snapshot(nodeIDs, pubs))

	minCommits := commitreveal.MinCommits(len(nodeIDs))
	patterns := []ca.Pattern{ca.StandardGlider(32), ca.LWSS(32), ca.MWSS(32), ca.HWSS(32), ca.StandardGlider(16), ca.LWSS(16)}
	nonces := make([][32]byte, minCommits)
	for i := 0; i < minCommits; i++ {
		nonces[i] = [32]byte{byte(i + 1)}
		pk := privs[i].Public().Bytes()
		commitID := ca.CommitPattern(patterns[i%len(patterns)], nonces[i], pk)
		sig, err := ring.Sign(pubs, i, privs[i], commitID[:])
		require.NoError(t, err)
		_, err = tour.Ledger.AddCommit(&commitreveal.Commitment{
			Participant: nodeIDs[i],
			CommitID:    commitID,
			RingSig:     sig,
			KeyImage:    sig.KeyImage,
		}, commitID[:])
		require.NoError(t, err)
	}
	require.NoError(t, tour.CloseCommit())
	require.NoError(t, tour.DeriveSeed([32]byte{99}))
	require.NoError(t, tour.FixBracket())

	for i := 0; i < minCommits; i++ {
		pk := privs[i].Public().Bytes()
		err := tour.Ledger.AddReveal(&commitreveal.Reveal{
			Participant: nodeIDs[i],
			Pattern:     patterns[i%len(patterns)],
			Nonce:       nonces[i],
		}, pk)
		require.NoError(t, err)
	}
	require.NoError(t, tour.CloseReveal())

	pkByNode := make(map[ids.NodeID][]byte)
	for i := 0; i < minCommits; i++ {
		pkByNode[nodeIDs[i]] = privs[i].Public().Bytes()
	}
	require.NoError(t, tour.PlayRounds(func(n ids.NodeID) []byte { return pkByNode[n] }))

	require.Equal(t, PhaseFinalize, tour.Phase)
	var zero ids.NodeID
	require.NotEqual(t, zero, tour.Winner)
	require.Greater(t, tour.Round, 0)
}
