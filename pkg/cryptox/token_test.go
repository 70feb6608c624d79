package cryptox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRefreshTokenParts(t *testing.T) {
	t.Parallel()

	t.Run("handle is 22 base64url chars", func(t *testing.T) {
		t.Parallel()

		handle, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		require.Len(t, handle, 22)
		require.Regexp(t, "^[A-Za-z0-9_-]+$", handle)
		require.NotContains(t, handle, ".", "the handle must not contain the separator")

		raw, err := base64.RawURLEncoding.DecodeString(handle)
		require.NoError(t, err)
		require.Len(t, raw, TokenSize128)
	})

	t.Run("secret is 128 hex chars", func(t *testing.T) {
		t.Parallel()

		secret, err := GenerateHexToken(TokenSize512)
		require.NoError(t, err)
		require.Len(t, secret, 128)
		require.Regexp(t, "^[0-9a-f]+$", secret)
	})
}

func TestTokenGenerationRejectsBadSizes(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		_, err := GenerateToken(size)
		require.ErrorContains(t, err, "must be positive")

		_, err = GenerateHexToken(size)
		require.ErrorContains(t, err, "must be positive")
	}

	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestHandlesDoNotRepeat(t *testing.T) {
	t.Parallel()

	const count = 500
	seen := make(map[string]struct{}, count)
	for range count {
		handle := MustGenerateToken(TokenSize128)
		_, dup := seen[handle]
		require.False(t, dup, "handle %s generated twice", handle)
		seen[handle] = struct{}{}
	}
}

// The hasher feeds fingerprints to bcrypt, which ignores input past
// 72 bytes. Two secrets that only differ at the end must still produce
// distinct, bcrypt sized inputs.
func TestFingerprintFitsBcrypt(t *testing.T) {
	t.Parallel()

	prefix := strings.Repeat("a", 127)
	a := FingerprintToken(prefix + "0")
	b := FingerprintToken(prefix + "1")

	require.Len(t, a, 43)
	require.LessOrEqual(t, len(a), 72)
	require.NotEqual(t, a, b)
	require.Equal(t, a, FingerprintToken(prefix+"0"))

	digest, err := bcrypt.GenerateFromPassword([]byte(a), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword(digest, []byte(a)))
	require.Error(t, bcrypt.CompareHashAndPassword(digest, []byte(b)))
}
