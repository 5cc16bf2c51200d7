// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package consensusengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/config"
	"github.com/Steake/BitCell-sub000/ids"
	"github.com/Steake/BitCell-sub000/tournament"
	"github.com/Steake/BitCell-sub000/vrfchain"
	zkbattle "github.com/Steake/BitCell-sub000/zkcircuit/battle"
)

func newTestEngine(t *testing.T) (*Engine, *ecdsa.PrivateKey) {
	t.Helper()
	sk, err := ecdsa.GenerateKey()
	require.NoError(t, err)

	cfg := config.Default()
	e, err := New(cfg, sk, zkbattle.ReferenceProvider{}, zkbattle.ReferenceProvider{})
	require.NoError(t, err)
	return e, sk
}

func TestRunEpochFallsBackToEmptyWithNoCommits(t *testing.T) {
	e, _ := newTestEngine(t)

	noPubkeys := tournament.PubkeyLookup(func(ids.NodeID) []byte { return nil })
	tr, err := e.RunEpoch(context.Background(), 1, make([]byte, 32), nil, nil, noPubkeys)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.True(t, tr.Empty)
}

func TestVerifyBattleProofsReportsPerMatchResult(t *testing.T) {
	e, _ := newTestEngine(t)

	pub := zkbattle.PublicInputs{WinnerID: zkbattle.WinnerDraw}
	items := map[int]zkbattle.PublicInputs{0: pub}
	proofs := map[int]zkbattle.Proof{}

	results, err := e.VerifyBattleProofs(context.Background(), nil, items, proofs)
	require.NoError(t, err)
	require.False(t, results[0]) // no proof supplied for match 0
}

func TestVerifyBattleProofsRecordsInvalidProofEvidence(t *testing.T) {
	e, _ := newTestEngine(t)

	pub := zkbattle.PublicInputs{PubKeyA: []byte("participant-a"), PubKeyB: []byte("participant-b")}
	items := map[int]zkbattle.PublicInputs{0: pub}
	proofs := map[int]zkbattle.Proof{0: {}} // present but empty -> ReferenceProvider rejects it

	results, err := e.VerifyBattleProofs(context.Background(), nil, items, proofs)
	require.NoError(t, err)
	require.False(t, results[0])
	require.Equal(t, 2, e.Evidence.Len())
}

func TestAssembleBlockDrainsMempoolAndSetsHeader(t *testing.T) {
	e, sk := newTestEngine(t)

	parentOutput := make([]byte, 32)
	link, err := vrfchain.Produce(sk, parentOutput)
	require.NoError(t, err)

	tr := tournament.New(1, tournament.DefaultParams())
	proposerPK := sk.Public().Bytes()
	tr.Winner = sk.Public().NodeID()

	blk, err := e.AssembleBlock(1, ids.Empty, link, tr, 10, proposerPK)
	require.NoError(t, err)
	require.Equal(t, uint64(1), blk.Header.Height)
	require.Equal(t, link.Output, blk.Header.VRFOutput)
}

func TestAssembleBlockRejectsNonWinnerProposer(t *testing.T) {
	e, sk := newTestEngine(t)

	parentOutput := make([]byte, 32)
	link, err := vrfchain.Produce(sk, parentOutput)
	require.NoError(t, err)

	tr := tournament.New(1, tournament.DefaultParams())
	tr.Winner = ids.NodeID{0xAB} // does not match sk's derived NodeID

	_, err = e.AssembleBlock(1, ids.Empty, link, tr, 10, sk.Public().Bytes())
	require.ErrorIs(t, err, ErrNotTournamentWinner)
}

func TestErrorClassificationUnwraps(t *testing.T) {
	sentinel := errors.New("sample failure")
	err := classify(KindInvalidProof, sentinel)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindInvalidProof, ce.Kind)
	require.ErrorIs(t, err, sentinel)
}
