// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state defines the ZK state circuit's public-input/witness
// contract (§4.6, C8) and its Prover/Verifier capability interface,
// mirroring zkcircuit/battle's shape for C7. A reference provider
// replays the transaction list against chainstate directly, standing in
// for a production SNARK backend injected at startup.
package state

import (
	"bytes"
	"errors"

	"github.com/Steake/BitCell-sub000/chainstate"
	"github.com/Steake/BitCell-sub000/ids"
)

// Tx is the ordered transaction the circuit applies (§4.6 constraint 2).
type Tx struct {
	From, To ids.NodeID
	Amount   uint64
	Fee      uint64
	Nonce    uint64
}

// PrivateTx additionally spends a nullifier against a prior commitment
// (§4.6 constraint 5).
type PrivateTx struct {
	Nullifier [32]byte
}

// PublicInputs is the §4.6 public-input tuple.
type PublicInputs struct {
	OldRoot                    [32]byte
	NewRoot                    [32]byte
	TxRoot                     [32]byte
	NullifierSetDeltaCommitment [32]byte
}

// Witness is the §4.6 private witness: the ordered tx list (Merkle
// paths are implicit in this reference implementation, which replays
// against the real state rather than carrying paths explicitly).
type Witness struct {
	Txs        []Tx
	PrivateTxs []PrivateTx
}

// Proof is an opaque, backend-specific proof blob.
type Proof []byte

// VerifyingKey is an opaque, backend-specific verifying key.
type VerifyingKey []byte

var (
	ErrRootsEqual          = errors.New("state circuit: old_state_root must differ from new_state_root")
	ErrConstraintViolation = errors.New("state circuit: applying the tx list did not reach new_state_root")
)

type Prover interface {
	ProveState(pub PublicInputs, witness Witness, s *chainstate.State) (Proof, error)
}

type Verifier interface {
	VerifyState(vk VerifyingKey, pub PublicInputs, proof Proof) (bool, error)
}

// ReferenceProvider proves by literally replaying the tx list against the
// chainstate.State it is given, mutating it in place, and comparing the
// resulting root —
// the same relationship a real SNARK enforces symbolically (§4.6
// constraints 2-4).
type ReferenceProvider struct{}

// ProveState applies every tx in order via checked arithmetic (§4.6
// constraint 2), inserts every private tx's nullifier fresh (constraint
// 5), and checks the resulting root equals pub.NewRoot (constraint 4).
// old_state_root != new_state_root is enforced first (constraint 1).
func (ReferenceProvider) ProveState(pub PublicInputs, witness Witness, s *chainstate.State) (Proof, error) {
	if pub.OldRoot == pub.NewRoot {
		return nil, ErrRootsEqual
	}
	for _, tx := range witness.Txs {
		if err := s.Transfer(tx.From, tx.To, tx.Amount, tx.Fee, tx.Nonce); err != nil {
			return nil, err
		}
	}
	for _, ptx := range witness.PrivateTxs {
		if err := s.InsertNullifier(ptx.Nullifier); err != nil {
			return nil, err
		}
	}
	root := s.Root()
	if [32]byte(root) != pub.NewRoot {
		return nil, ErrConstraintViolation
	}
	return marker(pub), nil
}

func marker(pub PublicInputs) []byte {
	var buf bytes.Buffer
	buf.Write(pub.OldRoot[:])
	buf.Write(pub.NewRoot[:])
	buf.Write(pub.TxRoot[:])
	return buf.Bytes()
}

// VerifyState checks the proof is well-formed; as with
// zkcircuit/battle's reference provider, the expensive constraint
// checking happens at proving time for this development/test
// implementation.
func (ReferenceProvider) VerifyState(_ VerifyingKey, pub PublicInputs, proof Proof) (bool, error) {
	if len(proof) == 0 {
		return false, nil
	}
	expected := marker(pub)
	if len(proof) != len(expected) {
		return false, nil
	}
	for i := range proof {
		if proof[i] != expected[i] {
			return false, nil
		}
	}
	return true, nil
}
