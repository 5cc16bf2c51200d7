// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package merkle implements the fixed-depth (32) sparse Merkle tree that
// backs the account, bond and nullifier stores (§3 Sparse Merkle state,
// §6 crypto provider: merkle.{insert,update,prove,verify}).
package merkle

import (
	"errors"

	"github.com/Steake/BitCell-sub000/bitcrypto/hash"
)

// Depth is the fixed tree depth; keys are 256-bit, and each level consumes
// one bit of a digest of the key (see bit).
const Depth = 32

// Key is a tree key; only the first Depth bytes participate in the path,
// matching the 32-byte ID keyspace used for accounts and bonds (§3).
type Key [Depth]byte

// Root is a 32-byte root commitment.
type Root [32]byte

var ErrProofLength = errors.New("merkle: proof has wrong number of siblings")

// emptySubtreeHash[d] is the root hash of an empty subtree of height d
// (d=0 is a single empty leaf, d=Depth is the whole empty tree).
var emptySubtreeHash [Depth + 1][32]byte

func init() {
	emptySubtreeHash[0] = hash.Domain("bitcell/smt/empty-leaf")
	for d := 1; d <= Depth; d++ {
		emptySubtreeHash[d] = hashNode(emptySubtreeHash[d-1], emptySubtreeHash[d-1])
	}
}

func hashNode(left, right [32]byte) [32]byte {
	return hash.Domain("bitcell/smt/node", left[:], right[:])
}

func hashLeaf(key Key, value []byte) [32]byte {
	return hash.Domain("bitcell/smt/leaf", key[:], value)
}

// bit returns the path bit of key at the given level: bit number level,
// counted from the most significant bit of the first byte, of the blake3
// digest of key under domain "bitcell/smt/path". Depth=32 levels therefore
// walk a 32-bit prefix of that digest, not the raw key bits.
func bit(key Key, level int) int {
	digest := hash.Domain("bitcell/smt/path", key[:])
	byteIdx := level / 8
	bitIdx := 7 - uint(level%8)
	return int((digest[byteIdx] >> bitIdx) & 1)
}

// Tree is an in-memory sparse Merkle tree. Nodes are stored only along
// paths that have been touched; every unvisited subtree is implicitly the
// precomputed empty hash for its height.
type Tree struct {
	// nodes maps "level:pathPrefix" to its hash; leaves are stored in
	// leaves keyed by the full key.
	nodes  map[string][32]byte
	leaves map[Key][]byte
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		nodes:  make(map[string][32]byte),
		leaves: make(map[Key][]byte),
	}
}

func pathString(level int, prefixBits []int) string {
	b := make([]byte, level+1)
	b[0] = byte(level)
	for i, bitVal := range prefixBits {
		b[i+1] = byte(bitVal)
	}
	return string(b)
}

func (t *Tree) prefixBits(key Key, level int) []int {
	bits := make([]int, level)
	for i := 0; i < level; i++ {
		bits[i] = bit(key, i)
	}
	return bits
}

func (t *Tree) nodeHash(level int, prefixBits []int) [32]byte {
	if level == Depth {
		// level Depth addresses a leaf position: the stored leaf whose path
		// bits equal prefixBits, or the empty leaf if there is none.
		want := pathString(Depth, prefixBits)
		for k, v := range t.leaves {
			if pathString(Depth, t.prefixBits(k, Depth)) == want {
				return hashLeaf(k, v)
			}
		}
		return emptySubtreeHash[0]
	}
	if h, ok := t.nodes[pathString(level, prefixBits)]; ok {
		return h
	}
	return emptySubtreeHash[Depth-level]
}

// Insert sets the value at key, creating or overwriting the leaf, and
// returns the new root. This is also used for updates (§6 merkle.update);
// the tree has no separate "insert must be new" semantics.
func (t *Tree) Insert(key Key, value []byte) Root {
	t.leaves[key] = append([]byte(nil), value...)
	cur := hashLeaf(key, value)

	for level := Depth - 1; level >= 0; level-- {
		prefix := t.prefixBits(key, level)
		sibling := t.siblingHash(key, level)
		if bit(key, level) == 0 {
			cur = hashNode(cur, sibling)
		} else {
			cur = hashNode(sibling, cur)
		}
		t.nodes[pathString(level, prefix)] = cur
	}
	return Root(cur)
}

func (t *Tree) siblingHash(key Key, level int) [32]byte {
	prefix := t.prefixBits(key, level)
	siblingBit := 1 - bit(key, level)
	siblingPrefix := append(append([]int(nil), prefix...), siblingBit)
	// The sibling subtree lives at the same prefix with the opposite bit
	// appended, one level deeper than prefix; reuse nodeHash at level+1.
	return t.nodeHash(level+1, siblingPrefix)
}

// Root returns the current root without mutating the tree.
func (t *Tree) Root() Root {
	if len(t.leaves) == 0 {
		return Root(emptySubtreeHash[Depth])
	}
	// The level-0 node is the tree root regardless of which key it was
	// last recomputed from, since Insert always rewrites the full path.
	return Root(t.nodeHash(0, nil))
}

// Proof is an inclusion/exclusion proof: Depth sibling hashes from the leaf
// up to the root.
type Proof struct {
	Siblings [Depth][32]byte
	Value    []byte
}

// Prove returns a Merkle proof for key as currently stored (value is nil
// and the proof attests non-membership if key was never inserted).
func (t *Tree) Prove(key Key) *Proof {
	p := &Proof{Value: t.leaves[key]}
	for level := Depth - 1; level >= 0; level-- {
		p.Siblings[Depth-1-level] = t.siblingHash(key, level)
	}
	return p
}

// Verify checks that proof attests key/value under root.
func Verify(root Root, key Key, value []byte, proof *Proof) bool {
	var cur [32]byte
	if value == nil {
		cur = emptySubtreeHash[0]
	} else {
		cur = hashLeaf(key, value)
	}
	for level := Depth - 1; level >= 0; level-- {
		sibling := proof.Siblings[Depth-1-level]
		if bit(key, level) == 0 {
			cur = hashNode(cur, sibling)
		} else {
			cur = hashNode(sibling, cur)
		}
	}
	return cur == [32]byte(root)
}

// KeyFromBytes truncates/pads an arbitrary digest into a tree Key.
func KeyFromBytes(b []byte) Key {
	var k Key
	n := len(b)
	if n > Depth {
		n = Depth
	}
	copy(k[:n], b[:n])
	return k
}
