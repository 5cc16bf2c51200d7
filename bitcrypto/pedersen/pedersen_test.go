package pedersen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitOpenRoundTrip(t *testing.T) {
	var blinding [32]byte
	blinding[0] = 0x42

	c := Commit(1000, blinding)
	require.True(t, Open(c, 1000, blinding))
	require.False(t, Open(c, 999, blinding))

	var otherBlinding [32]byte
	otherBlinding[0] = 0x43
	require.False(t, Open(c, 1000, otherBlinding))
}

func TestCommitDeterministic(t *testing.T) {
	var blinding [32]byte
	blinding[5] = 7
	a := Commit(42, blinding)
	b := Commit(42, blinding)
	require.Equal(t, a.Bytes(), b.Bytes())
}

func TestFromBytesRoundTrip(t *testing.T) {
	var blinding [32]byte
	c := Commit(7, blinding)
	parsed, err := FromBytes(c.Bytes())
	require.NoError(t, err)
	require.Equal(t, c.Bytes(), parsed.Bytes())
}
