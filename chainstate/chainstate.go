// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chainstate implements the §3/§4.6 state model: accounts, bonds,
// the sparse-Merkle-backed state root, and the nullifier set, all mutated
// exclusively through checked/saturating arithmetic (§3 Account).
package chainstate

import (
	"errors"

	"github.com/Steake/BitCell-sub000/bitcrypto/merkle"
	"github.com/Steake/BitCell-sub000/ids"
	"github.com/Steake/BitCell-sub000/safemath"
)

var (
	ErrInsufficientBalance = errors.New("chainstate: sender balance insufficient for amount+fee")
	ErrNonceMismatch       = errors.New("chainstate: tx nonce does not match sender's next nonce")
	ErrNullifierReused     = errors.New("chainstate: nullifier already present in the state")
	ErrBondNotFound        = errors.New("chainstate: no bond recorded for participant")
	ErrBondNotActive       = errors.New("chainstate: bond is not Active")
)

// Account is the §3 account record.
type Account struct {
	Balance uint64
	Nonce   uint64
}

// BondStatusKind is the §3 bond lifecycle state.
type BondStatusKind uint8

const (
	BondActive BondStatusKind = iota
	BondUnbonding
	BondSlashed
)

// Bond is the §3 bond record.
type Bond struct {
	Amount       uint64
	Status       BondStatusKind
	UnlockHeight uint64 // meaningful only when Status == BondUnbonding
	JoinedHeight uint64
}

// Eligible implements the bond half of §3's "status = Active AND amount
// >= B_MIN AND trust >= T_MIN <=> eligible" — the trust term is supplied
// by the caller (ebsl.Engine), since this package has no trust state.
func (b Bond) Eligible(bMin uint64, trustAtLeastMin bool) bool {
	return b.Status == BondActive && b.Amount >= bMin && trustAtLeastMin
}

// State owns the account/bond/nullifier stores and the sparse Merkle
// tree committing to them (§3 Sparse Merkle state). It has a single
// writer per §5.
type State struct {
	accounts      map[ids.NodeID]*Account
	bonds         map[ids.NodeID]*Bond
	nullifiers    map[[32]byte]struct{}
	nullifierFIFO [][32]byte
	tree          *merkle.Tree
}

// MaxNullifiers bounds the nullifier set per §5's "explicit caps with
// eviction policies": at the cap, the oldest nullifier is evicted to admit
// a new one. The set is not pruned by finalized height.
const MaxNullifiers = 1 << 20

// New returns an empty state.
func New() *State {
	return &State{
		accounts:   make(map[ids.NodeID]*Account),
		bonds:      make(map[ids.NodeID]*Bond),
		nullifiers: make(map[[32]byte]struct{}),
		tree:       merkle.New(),
	}
}

// Account returns a participant's account, lazily creating it on first
// read/credit (§3 Lifecycle: "Accounts are created lazily on first
// credit").
func (s *State) Account(p ids.NodeID) *Account {
	a, ok := s.accounts[p]
	if !ok {
		a = &Account{}
		s.accounts[p] = a
	}
	return a
}

// Bond returns a participant's bond record, or nil if none exists.
func (s *State) Bond(p ids.NodeID) (*Bond, bool) {
	b, ok := s.bonds[p]
	return b, ok
}

// CreateBond records a new Active bond for a participant (§3 Lifecycle:
// "Bonds are created by an explicit transaction").
func (s *State) CreateBond(p ids.NodeID, amount, joinedHeight uint64) {
	s.bonds[p] = &Bond{Amount: amount, Status: BondActive, JoinedHeight: joinedHeight}
	s.commitBond(p)
}

// Unbond transitions a bond to Unbonding, which must wait until
// unlockHeight before it can be withdrawn (§3 Lifecycle).
func (s *State) Unbond(p ids.NodeID, unlockHeight uint64) error {
	b, ok := s.bonds[p]
	if !ok {
		return ErrBondNotFound
	}
	if b.Status != BondActive {
		return ErrBondNotActive
	}
	b.Status = BondUnbonding
	b.UnlockHeight = unlockHeight
	s.commitBond(p)
	return nil
}

// Slash applies a slash fraction (or a full slash-and-ban) to a bond
// using saturating arithmetic; boundary amounts never panic (§4.2
// invariants).
func (s *State) Slash(p ids.NodeID, fractionNum, fractionDen uint32, banAll bool) error {
	b, ok := s.bonds[p]
	if !ok {
		return ErrBondNotFound
	}
	if banAll {
		b.Amount = 0
	} else {
		slashed := safemath.SaturatingFraction(b.Amount, fractionNum, fractionDen)
		b.Amount = safemath.SaturatingSub(b.Amount, slashed)
	}
	b.Status = BondSlashed
	s.commitBond(p)
	return nil
}

// Transfer applies {from, to, amount, fee} with checked (non-saturating)
// arithmetic, as §4.6's state-circuit constraint #2 requires: balance
// must be checked, never silently clamped, and the sender's nonce must
// match exactly before being incremented by one.
func (s *State) Transfer(from, to ids.NodeID, amount, fee, nonce uint64) error {
	sender := s.Account(from)
	if sender.Nonce != nonce {
		return ErrNonceMismatch
	}
	total, err := safemath.Add64(amount, fee)
	if err != nil {
		return ErrInsufficientBalance
	}
	if sender.Balance < total {
		return ErrInsufficientBalance
	}
	newSenderBalance, err := safemath.Sub64(sender.Balance, total)
	if err != nil {
		return ErrInsufficientBalance
	}
	receiver := s.Account(to)
	newReceiverBalance, err := safemath.Add64(receiver.Balance, amount)
	if err != nil {
		return err
	}
	sender.Balance = newSenderBalance
	sender.Nonce++
	receiver.Balance = newReceiverBalance
	s.commitAccount(from)
	s.commitAccount(to)
	return nil
}

// InsertNullifier records a private-tx nullifier, rejecting reuse (§4.6
// constraint #5, §8 property 9).
func (s *State) InsertNullifier(n [32]byte) error {
	if _, dup := s.nullifiers[n]; dup {
		return ErrNullifierReused
	}
	if len(s.nullifierFIFO) >= MaxNullifiers {
		oldest := s.nullifierFIFO[0]
		s.nullifierFIFO = s.nullifierFIFO[1:]
		delete(s.nullifiers, oldest)
	}
	s.nullifiers[n] = struct{}{}
	s.nullifierFIFO = append(s.nullifierFIFO, n)
	s.tree.Insert(merkle.KeyFromBytes(n[:]), []byte{1})
	return nil
}

// HasNullifier reports whether a nullifier has already been spent.
func (s *State) HasNullifier(n [32]byte) bool {
	_, ok := s.nullifiers[n]
	return ok
}

// accountKey and bondKey are domain-separated so a participant's account
// and bond records never collide in the shared sparse-Merkle tree (§3:
// the tree must commit to both, independently).
func accountKey(p ids.NodeID) merkle.Key {
	return merkle.KeyFromBytes(append([]byte("account:"), p.Bytes()...))
}

func bondKey(p ids.NodeID) merkle.Key {
	return merkle.KeyFromBytes(append([]byte("bond:"), p.Bytes()...))
}

func (s *State) commitAccount(p ids.NodeID) {
	a := s.accounts[p]
	s.tree.Insert(accountKey(p), encodeAccount(a))
}

func (s *State) commitBond(p ids.NodeID) {
	b := s.bonds[p]
	s.tree.Insert(bondKey(p), encodeBond(b))
}

func encodeAccount(a *Account) []byte {
	out := make([]byte, 16)
	putUint64(out[0:8], a.Balance)
	putUint64(out[8:16], a.Nonce)
	return out
}

func encodeBond(b *Bond) []byte {
	out := make([]byte, 25)
	putUint64(out[0:8], b.Amount)
	out[8] = byte(b.Status)
	putUint64(out[9:17], b.UnlockHeight)
	putUint64(out[17:25], b.JoinedHeight)
	return out
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// Root returns the current sparse-Merkle state root (§3, §6 merkle
// provider interface).
func (s *State) Root() merkle.Root {
	return s.tree.Root()
}
