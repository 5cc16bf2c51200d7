package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDRoundTrip(t *testing.T) {
	var raw [IDLen]byte
	for i := range raw {
		raw[i] = byte(i)
	}

	id, err := ToID(raw[:])
	require.NoError(t, err)
	require.Equal(t, raw[:], id.Bytes())
	require.NotEmpty(t, id.String())
}

func TestToIDWrongLength(t *testing.T) {
	_, err := ToID([]byte{1, 2, 3})
	require.ErrorIs(t, err, errWrongIDLen)
}

func TestIDCompare(t *testing.T) {
	a := ID{0x01}
	b := ID{0x02}
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
}

func TestNodeIDFromDigest(t *testing.T) {
	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = byte(255 - i)
	}
	n := NodeIDFromDigest(digest)
	require.Equal(t, digest[:NodeIDLen], n.Bytes())
}
