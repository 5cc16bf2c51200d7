// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package block implements the §3 block header/body types and the §6
// canonical, bit-exact header encoding used for hashing.
package block

import (
	"encoding/binary"
	"errors"

	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
	"github.com/Steake/BitCell-sub000/ids"
)

// headerDomain is the ASCII domain-separator literal §6 pins for header
// hashing.
const headerDomain = "bitcell/header/v1"

// Header is the §3 block header, field order fixed for canonical
// encoding.
type Header struct {
	Height             uint64
	PrevHash           ids.ID
	Timestamp          uint64
	ProposerPK         []byte
	VRFOutput          []byte
	VRFProof           []byte
	TournamentSeed     [32]byte
	ParticipantsRoot   ids.ID
	OldStateRoot       ids.ID
	NewStateRoot       ids.ID
	TxRoot             ids.ID
	BattleProofRoot    ids.ID
	FinalityVotesRoot  ids.ID
}

// Encode produces the canonical, bit-exact encoding named by §6: fields
// in the order listed in §3 "Block header", integers big-endian
// fixed-width, variable-length fields 4-byte-big-endian length-prefixed.
func (h *Header) Encode() []byte {
	buf := make([]byte, 0, 256+len(h.ProposerPK)+len(h.VRFOutput)+len(h.VRFProof))
	buf = appendUint64(buf, h.Height)
	buf = append(buf, h.PrevHash[:]...)
	buf = appendUint64(buf, h.Timestamp)
	buf = appendBytes(buf, h.ProposerPK)
	buf = appendBytes(buf, h.VRFOutput)
	buf = appendBytes(buf, h.VRFProof)
	buf = append(buf, h.TournamentSeed[:]...)
	buf = append(buf, h.ParticipantsRoot[:]...)
	buf = append(buf, h.OldStateRoot[:]...)
	buf = append(buf, h.NewStateRoot[:]...)
	buf = append(buf, h.TxRoot[:]...)
	buf = append(buf, h.BattleProofRoot[:]...)
	buf = append(buf, h.FinalityVotesRoot[:]...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendBytes(buf []byte, v []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, v...)
}

// Hash returns the header's digest: the domain separator prefixed to
// the canonical encoding, hashed (§6).
func (h *Header) Hash() ids.ID {
	sum := hash.Domain(headerDomain, h.Encode())
	id, _ := ids.ToID(sum[:])
	return id
}

// Transaction is a minimal public transaction record; the account model
// transaction shape used by chainstate.Transfer.
type Transaction struct {
	From, To ids.NodeID
	Amount   uint64
	Fee      uint64
	Nonce    uint64
}

// FinalityVote is one signed prevote/precommit carried in a block body
// for its parent (§3 Block body).
type FinalityVote struct {
	Voter     ids.NodeID
	Signature []byte
}

// Body is the §3 block body.
type Body struct {
	Txs               []Transaction
	BattleProofs       [][]byte
	StateTransitionProof []byte
	ParentFinalityVotes  []FinalityVote
}

// Block pairs a header with its body.
type Block struct {
	Header *Header
	Body   *Body
}

var ErrDecodeTruncated = errors.New("block: encoded header truncated")

// TxRoot computes the §6 commitment of an ordered transaction list, used
// to populate Header.TxRoot and checked by the state circuit (§4.6
// constraint 3).
func TxRoot(txs []Transaction) ids.ID {
	parts := make([][]byte, 0, len(txs)*4)
	for _, tx := range txs {
		parts = append(parts, tx.From[:], tx.To[:], encodeUint64(tx.Amount), encodeUint64(tx.Fee))
	}
	sum := hash.Domain("bitcell/block/tx-root", parts...)
	id, _ := ids.ToID(sum[:])
	return id
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
