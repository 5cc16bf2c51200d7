package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdd64Overflow(t *testing.T) {
	_, err := Add64(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrOverflow)

	v, err := Add64(1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), v)
}

func TestSub64Underflow(t *testing.T) {
	_, err := Sub64(1, 2)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestSaturatingAdd(t *testing.T) {
	require.Equal(t, uint64(math.MaxUint64), SaturatingAdd(math.MaxUint64, 5))
	require.Equal(t, uint64(10), SaturatingAdd(4, 6))
}

func TestSaturatingSub(t *testing.T) {
	require.Equal(t, uint64(0), SaturatingSub(1, 5))
	require.Equal(t, uint64(4), SaturatingSub(5, 1))
}

func TestSaturatingFraction(t *testing.T) {
	// 50% slash of a 1000-unit bond.
	require.Equal(t, uint64(500), SaturatingFraction(1000, 1, 2))
	// 10% slash.
	require.Equal(t, uint64(100), SaturatingFraction(1000, 1, 10))
	// near-max amount should not overflow through to a wrong answer.
	require.Equal(t, math.MaxUint64/2, SaturatingFraction(math.MaxUint64, 1, 2))
}

func TestClampByte(t *testing.T) {
	require.Equal(t, uint8(0), ClampByte(-5))
	require.Equal(t, uint8(255), ClampByte(300))
	require.Equal(t, uint8(42), ClampByte(42))
}
