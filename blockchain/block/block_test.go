// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/ids"
)

func sampleHeader() *Header {
	return &Header{
		Height:            7,
		PrevHash:          ids.ID{1, 2, 3},
		Timestamp:         1000,
		ProposerPK:        []byte("proposer-pubkey"),
		VRFOutput:         []byte("vrf-output-bytes"),
		VRFProof:          []byte("vrf-proof-bytes"),
		TournamentSeed:    [32]byte{9},
		ParticipantsRoot:  ids.ID{4},
		OldStateRoot:      ids.ID{5},
		NewStateRoot:      ids.ID{6},
		TxRoot:            ids.ID{7},
		BattleProofRoot:   ids.ID{8},
		FinalityVotesRoot: ids.ID{9},
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	h := sampleHeader()
	require.Equal(t, h.Encode(), sampleHeader().Encode())
}

func TestHashChangesWithAnyFieldMutation(t *testing.T) {
	h := sampleHeader()
	baseHash := h.Hash()

	h2 := sampleHeader()
	h2.Height = 8
	require.NotEqual(t, baseHash, h2.Hash())

	h3 := sampleHeader()
	h3.ProposerPK = []byte("different-pubkey")
	require.NotEqual(t, baseHash, h3.Hash())
}

func TestTxRootIsOrderSensitive(t *testing.T) {
	a := Transaction{From: ids.NodeID{1}, To: ids.NodeID{2}, Amount: 10, Fee: 1}
	b := Transaction{From: ids.NodeID{3}, To: ids.NodeID{4}, Amount: 20, Fee: 2}

	root1 := TxRoot([]Transaction{a, b})
	root2 := TxRoot([]Transaction{b, a})
	require.NotEqual(t, root1, root2)

	root1Again := TxRoot([]Transaction{a, b})
	require.Equal(t, root1, root1Again)
}
