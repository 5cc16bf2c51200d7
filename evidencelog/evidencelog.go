// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package evidencelog implements the bounded, oldest-first-evicted
// evidence log named in §5's memory-bounds contract: InvalidProof,
// Equivocation, MissedReveal and InvalidReveal records a node raises
// against a participant are appended here, and the log marshals to CBOR
// as the form a storage backend persists (§5 "Key-value put/get for
// blocks, headers, state leaves, nullifier set, evidence log").
package evidencelog

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/Steake/BitCell-sub000/ids"
)

// Kind classifies one piece of evidence, mirroring the kinds that
// produce ebsl observations and §7 error classifications.
type Kind uint8

const (
	KindInvalidProof Kind = iota
	KindEquivocation
	KindMissedReveal
	KindInvalidReveal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidProof:
		return "InvalidProof"
	case KindEquivocation:
		return "Equivocation"
	case KindMissedReveal:
		return "MissedReveal"
	case KindInvalidReveal:
		return "InvalidReveal"
	default:
		return "Unknown"
	}
}

// Record is one logged evidence entry.
type Record struct {
	ID          string     `cbor:"id"`
	Kind        Kind       `cbor:"kind"`
	Height      uint64     `cbor:"height"`
	Participant ids.NodeID `cbor:"participant"`
	Detail      []byte     `cbor:"detail"` // opaque, kind-specific payload (e.g. the two conflicting votes)
}

// DefaultMaxSize is the log's default cap before oldest-first eviction
// begins (§5/§8 property 10: "bounded memory").
const DefaultMaxSize = 4096

// Log is a bounded FIFO of evidence records, deduplicated by id so that
// re-delivering the same evidence never grows the log.
type Log struct {
	maxSize int
	order   []string
	byID    map[string]Record
}

// New returns an empty log capped at maxSize records.
func New(maxSize int) *Log {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Log{
		maxSize: maxSize,
		byID:    make(map[string]Record),
	}
}

// Append records ev, evicting the oldest entry first if the log is at
// capacity. Appending a record whose id is already present is a no-op,
// matching the idempotent-evidence-application contract used throughout
// (ebsl.ObserveEvidence, finality.ApplyEquivocation).
func (l *Log) Append(ev Record) {
	if _, dup := l.byID[ev.ID]; dup {
		return
	}
	if len(l.order) >= l.maxSize {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.byID, oldest)
	}
	l.order = append(l.order, ev.ID)
	l.byID[ev.ID] = ev
}

// Len reports how many records are currently resident.
func (l *Log) Len() int { return len(l.order) }

// Get returns a record by id.
func (l *Log) Get(id string) (Record, bool) {
	r, ok := l.byID[id]
	return r, ok
}

// Since returns every resident record at or above fromHeight, in
// insertion (oldest-first) order, the shape a sync peer requests when
// catching up on evidence since its last known height.
func (l *Log) Since(fromHeight uint64) []Record {
	out := make([]Record, 0, len(l.order))
	for _, id := range l.order {
		r := l.byID[id]
		if r.Height >= fromHeight {
			out = append(out, r)
		}
	}
	return out
}

// Marshal encodes the log's current resident records as CBOR, the
// canonical on-disk representation for the evidence-log column a
// storage backend persists at height boundaries (§5).
func (l *Log) Marshal() ([]byte, error) {
	records := make([]Record, 0, len(l.order))
	for _, id := range l.order {
		records = append(records, l.byID[id])
	}
	out, err := cbor.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("evidencelog: encoding: %w", err)
	}
	return out, nil
}

// Unmarshal replaces the log's contents with records decoded from CBOR,
// as produced by Marshal, preserving insertion order and truncating to
// maxSize from the tail if the encoded log exceeds it.
func (l *Log) Unmarshal(data []byte) error {
	var records []Record
	if err := cbor.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("evidencelog: decoding: %w", err)
	}
	l.order = l.order[:0]
	for k := range l.byID {
		delete(l.byID, k)
	}
	if len(records) > l.maxSize {
		records = records[len(records)-l.maxSize:]
	}
	for _, r := range records {
		l.order = append(l.order, r.ID)
		l.byID[r.ID] = r
	}
	return nil
}
