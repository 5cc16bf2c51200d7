// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/chainstate"
	"github.com/Steake/BitCell-sub000/ids"
)

func partyOf(b byte) (n ids.NodeID) {
	n[0] = b
	return n
}

func TestProveStateHappyPath(t *testing.T) {
	s := chainstate.New()
	from := partyOf(1)
	to := partyOf(2)
	s.Account(from).Balance = 1000

	oldRoot := [32]byte(s.Root())

	pub := PublicInputs{OldRoot: oldRoot}
	witness := Witness{Txs: []Tx{{From: from, To: to, Amount: 100, Fee: 5, Nonce: 0}}}

	var provider ReferenceProvider
	// ProveState mutates s in place and checks the resulting root against
	// pub.NewRoot, so compute NewRoot by running the same transfer on a
	// throwaway probe first.
	probe := chainstate.New()
	probe.Account(from).Balance = 1000
	require.NoError(t, probe.Transfer(from, to, 100, 5, 0))
	pub.NewRoot = [32]byte(probe.Root())

	proof, err := provider.ProveState(pub, witness, s)
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	ok, err := provider.VerifyState(nil, pub, proof)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProveStateRejectsEqualRoots(t *testing.T) {
	s := chainstate.New()
	root := [32]byte(s.Root())
	var provider ReferenceProvider
	_, err := provider.ProveState(PublicInputs{OldRoot: root, NewRoot: root}, Witness{}, s)
	require.ErrorIs(t, err, ErrRootsEqual)
}

func TestProveStateRejectsInsufficientBalance(t *testing.T) {
	s := chainstate.New()
	from := partyOf(1)
	to := partyOf(2)
	s.Account(from).Balance = 10

	oldRoot := [32]byte(s.Root())
	pub := PublicInputs{OldRoot: oldRoot, NewRoot: [32]byte{1}}
	witness := Witness{Txs: []Tx{{From: from, To: to, Amount: 100, Fee: 5, Nonce: 0}}}

	var provider ReferenceProvider
	_, err := provider.ProveState(pub, witness, s)
	require.Error(t, err)
}

func TestProveStateRejectsNullifierReuse(t *testing.T) {
	s := chainstate.New()
	var n [32]byte
	n[0] = 9
	require.NoError(t, s.InsertNullifier(n))

	oldRoot := [32]byte(s.Root())
	pub := PublicInputs{OldRoot: oldRoot, NewRoot: [32]byte{2}}
	witness := Witness{PrivateTxs: []PrivateTx{{Nullifier: n}}}

	var provider ReferenceProvider
	_, err := provider.ProveState(pub, witness, s)
	require.ErrorIs(t, err, chainstate.ErrNullifierReused)
}
