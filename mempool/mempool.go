// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mempool implements the §5 transaction pool: multi-producer /
// single-consumer, bounded, with lowest-fee eviction under back-pressure
// (§5, §8 property 10 "Bounded memory").
package mempool

import (
	"container/heap"
	"errors"
	"sort"
	"sync"

	"github.com/Steake/BitCell-sub000/blockchain/block"
	"github.com/Steake/BitCell-sub000/ids"
)

// ErrFull is returned by Add when the pool is at capacity and the incoming
// transaction is itself the cheapest, so it is rejected rather than
// evicting a resident entry.
var ErrFull = errors.New("mempool: pool at capacity")

// entry wraps one pending transaction with its heap position, mirroring
// the lazy-deletion-free min-heap-by-fee design used for gas-price
// eviction in fee-sorted transaction pools.
type entry struct {
	tx    block.Transaction
	index int
}

// feeHeap is a min-heap ordered by fee ascending: Pop yields the
// cheapest transaction, the one evicted first under back-pressure.
type feeHeap []*entry

func (h feeHeap) Len() int { return len(h) }
func (h feeHeap) Less(i, j int) bool {
	if h[i].tx.Fee != h[j].tx.Fee {
		return h[i].tx.Fee < h[j].tx.Fee
	}
	// Deterministic tie-break so two nodes observing the same set of
	// pushes evict the same transaction under equal fees.
	return h[i].tx.Nonce < h[j].tx.Nonce
}
func (h feeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *feeHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *feeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Pool is a bounded, fee-sorted transaction queue. Producers call Add
// concurrently; a single consumer drains via Drain. All operations are
// guarded by one mutex, matching the "drains under a lock" contract of
// §5.
type Pool struct {
	mu       sync.Mutex
	maxSize  int
	h        feeHeap
	byID     map[ids.ID]*entry
	evicted  uint64
	accepted uint64
}

// New returns an empty pool bounded at maxSize transactions.
func New(maxSize int) *Pool {
	return &Pool{
		maxSize: maxSize,
		byID:    make(map[ids.ID]*entry),
	}
}

func txID(tx block.Transaction) ids.ID {
	return block.TxRoot([]block.Transaction{tx})
}

// Add pushes tx into the pool. If the pool is at capacity, the lowest
// fee resident transaction is evicted to make room (§5 "back-pressure
// drops lowest-fee transactions when full"); if the incoming tx itself
// has the lowest fee of all (including itself), it is rejected instead
// of evicting an existing higher-fee entry.
func (p *Pool) Add(tx block.Transaction) (evictedID ids.ID, evicted bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := txID(tx)
	if _, dup := p.byID[id]; dup {
		return ids.Empty, false, nil
	}

	if len(p.h) < p.maxSize {
		e := &entry{tx: tx}
		heap.Push(&p.h, e)
		p.byID[id] = e
		p.accepted++
		return ids.Empty, false, nil
	}

	cheapest := p.h[0]
	if tx.Fee <= cheapest.tx.Fee {
		return ids.Empty, false, ErrFull
	}
	evictedID = txID(cheapest.tx)
	heap.Pop(&p.h)
	delete(p.byID, evictedID)

	e := &entry{tx: tx}
	heap.Push(&p.h, e)
	p.byID[id] = e
	p.accepted++
	p.evicted++
	return evictedID, true, nil
}

// Len returns the number of resident transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.h)
}

// Has reports whether a transaction with the given id is resident.
func (p *Pool) Has(id ids.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byID[id]
	return ok
}

// Drain removes and returns up to n transactions, highest fee first,
// for the single consensus consumer to assemble into a block body. The
// resident heap is fee-ascending (cheapest at the root, for eviction),
// so draining the highest-fee n requires ranking every resident entry
// rather than popping the root repeatedly.
func (p *Pool) Drain(n int) []block.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n > len(p.h) {
		n = len(p.h)
	}
	if n == 0 {
		return nil
	}

	ranked := make([]*entry, len(p.h))
	copy(ranked, p.h)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].tx.Fee != ranked[j].tx.Fee {
			return ranked[i].tx.Fee > ranked[j].tx.Fee
		}
		return ranked[i].tx.Nonce < ranked[j].tx.Nonce
	})

	out := make([]block.Transaction, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].tx
		delete(p.byID, txID(ranked[i].tx))
	}

	remaining := ranked[n:]
	p.h = make(feeHeap, 0, len(remaining))
	for _, e := range remaining {
		e.index = len(p.h)
		p.h = append(p.h, e)
	}
	heap.Init(&p.h)

	return out
}

// Stats reports lifetime accepted/evicted counters.
func (p *Pool) Stats() (accepted, evicted uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accepted, p.evicted
}
