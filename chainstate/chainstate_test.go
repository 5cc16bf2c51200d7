// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package chainstate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/ids"
)

func partyOf(b byte) (n ids.NodeID) {
	n[0] = b
	return n
}

func TestAccountLazyCreation(t *testing.T) {
	s := New()
	a := s.Account(partyOf(1))
	require.Zero(t, a.Balance)
	require.Zero(t, a.Nonce)
}

func TestTransferHappyPath(t *testing.T) {
	s := New()
	from := partyOf(1)
	to := partyOf(2)
	s.Account(from).Balance = 1000

	require.NoError(t, s.Transfer(from, to, 100, 5, 0))
	require.Equal(t, uint64(895), s.Account(from).Balance)
	require.Equal(t, uint64(1), s.Account(from).Nonce)
	require.Equal(t, uint64(100), s.Account(to).Balance)
}

func TestTransferRejectsInsufficientBalance(t *testing.T) {
	s := New()
	from := partyOf(1)
	to := partyOf(2)
	s.Account(from).Balance = 50

	err := s.Transfer(from, to, 100, 5, 0)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(50), s.Account(from).Balance, "failed transfer must not mutate state")
}

func TestTransferRejectsWrongNonce(t *testing.T) {
	s := New()
	from := partyOf(1)
	to := partyOf(2)
	s.Account(from).Balance = 1000

	err := s.Transfer(from, to, 10, 1, 5)
	require.ErrorIs(t, err, ErrNonceMismatch)
}

func TestTransferRejectsDuplicateAtSameNonce(t *testing.T) {
	s := New()
	from := partyOf(1)
	to := partyOf(2)
	s.Account(from).Balance = 1000

	require.NoError(t, s.Transfer(from, to, 10, 1, 0))
	err := s.Transfer(from, to, 10, 1, 0)
	require.ErrorIs(t, err, ErrNonceMismatch, "replaying the same tx must fail at nonce check")
}

func TestCreditNearMaxUint64FailsCleanly(t *testing.T) {
	s := New()
	from := partyOf(1)
	to := partyOf(2)
	s.Account(from).Balance = 1000
	s.Account(to).Balance = math.MaxUint64 - 10

	err := s.Transfer(from, to, 100, 0, 0)
	require.Error(t, err)
	require.Equal(t, uint64(1000), s.Account(from).Balance, "overflowing credit must not panic or partially apply")
}

func TestBondLifecycle(t *testing.T) {
	s := New()
	p := partyOf(3)
	s.CreateBond(p, 2000, 10)

	bond, ok := s.Bond(p)
	require.True(t, ok)
	require.Equal(t, BondActive, bond.Status)
	require.True(t, bond.Eligible(1000, true))
	require.False(t, bond.Eligible(1000, false), "trust floor failure must deny eligibility")

	require.NoError(t, s.Unbond(p, 100))
	bond, _ = s.Bond(p)
	require.Equal(t, BondUnbonding, bond.Status)
	require.False(t, bond.Eligible(1000, true), "unbonding is not eligible")
}

func TestSlashSaturatesAndNeverPanics(t *testing.T) {
	s := New()
	p := partyOf(4)
	s.CreateBond(p, 1000, 0)

	require.NoError(t, s.Slash(p, 500_000, 1_000_000, false))
	bond, _ := s.Bond(p)
	require.Equal(t, uint64(500), bond.Amount)
	require.Equal(t, BondSlashed, bond.Status)

	require.NoError(t, s.Slash(p, 0, 1, true))
	bond, _ = s.Bond(p)
	require.Zero(t, bond.Amount)
}

func TestNullifierUniqueness(t *testing.T) {
	s := New()
	var n [32]byte
	n[0] = 1

	require.NoError(t, s.InsertNullifier(n))
	require.True(t, s.HasNullifier(n))
	err := s.InsertNullifier(n)
	require.ErrorIs(t, err, ErrNullifierReused)
}

func TestRootChangesOnMutation(t *testing.T) {
	s := New()
	before := s.Root()
	s.CreateBond(partyOf(5), 1000, 0)
	after := s.Root()
	require.NotEqual(t, before, after)
}
