// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package evidencelog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/ids"
)

func rec(id string, height uint64) Record {
	return Record{ID: id, Kind: KindEquivocation, Height: height, Participant: ids.NodeID{1}}
}

func TestAppendIsIdempotentByID(t *testing.T) {
	l := New(10)
	l.Append(rec("a", 1))
	l.Append(rec("a", 1))
	require.Equal(t, 1, l.Len())
}

func TestAppendEvictsOldestFirstAtCapacity(t *testing.T) {
	l := New(2)
	l.Append(rec("a", 1))
	l.Append(rec("b", 2))
	l.Append(rec("c", 3))

	require.Equal(t, 2, l.Len())
	_, ok := l.Get("a")
	require.False(t, ok)
	_, ok = l.Get("b")
	require.True(t, ok)
	_, ok = l.Get("c")
	require.True(t, ok)
}

func TestSinceFiltersByHeightPreservingOrder(t *testing.T) {
	l := New(10)
	l.Append(rec("a", 1))
	l.Append(rec("b", 5))
	l.Append(rec("c", 10))

	out := l.Since(5)
	require.Len(t, out, 2)
	require.Equal(t, "b", out[0].ID)
	require.Equal(t, "c", out[1].ID)
}

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	l := New(10)
	l.Append(rec("a", 1))
	l.Append(rec("b", 2))

	data, err := l.Marshal()
	require.NoError(t, err)

	l2 := New(10)
	require.NoError(t, l2.Unmarshal(data))
	require.Equal(t, 2, l2.Len())
	r, ok := l2.Get("b")
	require.True(t, ok)
	require.Equal(t, uint64(2), r.Height)
}

func TestUnmarshalTruncatesToCapacityFromTail(t *testing.T) {
	l := New(10)
	l.Append(rec("a", 1))
	l.Append(rec("b", 2))
	l.Append(rec("c", 3))
	data, err := l.Marshal()
	require.NoError(t, err)

	small := New(2)
	require.NoError(t, small.Unmarshal(data))
	require.Equal(t, 2, small.Len())
	_, ok := small.Get("a")
	require.False(t, ok)
}
