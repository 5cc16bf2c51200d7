package ring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
)

func buildRing(t *testing.T, n int) ([]*ecdsa.PrivateKey, []*ecdsa.PublicKey) {
	t.Helper()
	privs := make([]*ecdsa.PrivateKey, n)
	pubs := make([]*ecdsa.PublicKey, n)
	for i := 0; i < n; i++ {
		sk, err := ecdsa.GenerateKey()
		require.NoError(t, err)
		privs[i] = sk
		pubs[i] = sk.Public()
	}
	return privs, pubs
}

func TestSignVerifyRoundTrip(t *testing.T) {
	privs, pubs := buildRing(t, MinRingSize)
	message := []byte("epoch-42-commitment")

	sig, err := Sign(pubs, 3, privs[3], message)
	require.NoError(t, err)
	require.True(t, Verify(pubs, message, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	privs, pubs := buildRing(t, MinRingSize)
	sig, err := Sign(pubs, 0, privs[0], []byte("original"))
	require.NoError(t, err)
	require.False(t, Verify(pubs, []byte("tampered"), sig))
}

func TestSignRejectsUndersizedRing(t *testing.T) {
	privs, pubs := buildRing(t, 3)
	_, err := Sign(pubs, 0, privs[0], []byte("msg"))
	require.ErrorIs(t, err, ErrRingTooSmall)
}

func TestSameKeyProducesLinkedKeyImages(t *testing.T) {
	privs, pubs := buildRing(t, MinRingSize)

	sigA, err := Sign(pubs, 5, privs[5], []byte("commitment-1"))
	require.NoError(t, err)
	sigB, err := Sign(pubs, 5, privs[5], []byte("commitment-2"))
	require.NoError(t, err)

	require.True(t, Linked(sigA, sigB), "same signer must share a key image across messages")
}

func TestDifferentSignersProduceUnlinkedKeyImages(t *testing.T) {
	privs, pubs := buildRing(t, MinRingSize)

	sigA, err := Sign(pubs, 1, privs[1], []byte("commitment"))
	require.NoError(t, err)
	sigB, err := Sign(pubs, 2, privs[2], []byte("commitment"))
	require.NoError(t, err)

	require.False(t, Linked(sigA, sigB))
}
