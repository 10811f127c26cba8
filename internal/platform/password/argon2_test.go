package password

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()
	// Keep the memory cost low so the test suite stays fast.
	h, err := NewHasher(Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := testHasher(t)
	ctx := context.Background()

	encoded, err := h.Hash(ctx, "P@ssw0rd!")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify(ctx, "P@ssw0rd!", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify(ctx, "wrong password", encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher(t)
	ctx := context.Background()

	first, err := h.Hash(ctx, "same input")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "same input")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	for _, encoded := range []string{first, second} {
		ok, err := h.Verify(ctx, "same input", encoded)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := testHasher(t)
	ctx := context.Background()

	for _, encoded := range []string{
		"",
		"plaintext-left-in-column",
		"$argon2id$v=19$m=8192,t=1,p=1$notbase64!!$x",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	} {
		_, err := h.Verify(ctx, "anything", encoded)
		require.ErrorIs(t, err, ErrMalformedHash, "hash %q", encoded)
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	_, err := NewHasher(Params{MemoryKB: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.Error(t, err)

	_, err = NewHasher(Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32})
	require.Error(t, err)
}
