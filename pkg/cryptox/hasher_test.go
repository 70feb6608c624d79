package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T, cfg HasherConfig) *Hasher {
	t.Helper()
	h, err := NewHasher(cfg)
	require.NoError(t, err)
	return h
}

func fastBcrypt(t *testing.T) *Hasher {
	return newTestHasher(t, HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})
}

func fastArgon2(t *testing.T) *Hasher {
	return newTestHasher(t, HasherConfig{Algorithm: AlgorithmArgon2id, Argon2Iterations: 1, Argon2MemoryKiB: 1024})
}

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	secrets := []struct {
		name   string
		secret string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"refresh secret", strings.Repeat("ab", 64)},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	hashers := map[string]*Hasher{
		"bcrypt":   fastBcrypt(t),
		"argon2id": fastArgon2(t),
	}

	for algo, h := range hashers {
		for _, tt := range secrets {
			t.Run(algo+"/"+tt.name, func(t *testing.T) {
				t.Parallel()

				digest, err := h.Hash(tt.secret)
				require.NoError(t, err)
				require.NotContains(t, digest, tt.secret)

				require.True(t, h.Verify(tt.secret, digest))
				require.False(t, h.Verify(tt.secret+"x", digest))
				require.False(t, h.Verify("", digest))
			})
		}
	}
}

func TestHasher_SaltsDiffer(t *testing.T) {
	t.Parallel()

	h := fastBcrypt(t)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.True(t, h.Verify("same", a))
	require.True(t, h.Verify("same", b))
}

func TestHasher_BcryptLongSecrets(t *testing.T) {
	t.Parallel()

	// Two secrets sharing the first 72 bytes must not collide.
	h := fastBcrypt(t)
	prefix := strings.Repeat("a", 100)

	digest, err := h.Hash(prefix + "1")
	require.NoError(t, err)
	require.True(t, h.Verify(prefix+"1", digest))
	require.False(t, h.Verify(prefix+"2", digest))
}

func TestHasher_CostChangeStillVerifies(t *testing.T) {
	t.Parallel()

	old := fastBcrypt(t)
	digest, err := old.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	require.Equal(t, bcrypt.MinCost, cost)

	newer := newTestHasher(t, HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: bcrypt.MinCost + 1})
	require.True(t, newer.Verify("pw", digest))
}

func TestHasher_AlgorithmChangeStillVerifies(t *testing.T) {
	t.Parallel()

	argonDigest, err := fastArgon2(t).Hash("pw")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(argonDigest, "$argon2id$v=19$m=1024,t=1,p=1$"))

	require.True(t, fastBcrypt(t).Verify("pw", argonDigest))
}

func TestHasher_Pepper(t *testing.T) {
	t.Parallel()

	peppered := newTestHasher(t, HasherConfig{BcryptCost: bcrypt.MinCost, Pepper: "pepper"})
	plain := fastBcrypt(t)

	digest, err := peppered.Hash("pw")
	require.NoError(t, err)

	require.True(t, peppered.Verify("pw", digest))
	require.False(t, plain.Verify("pw", digest))
}

func TestHasher_MalformedDigests(t *testing.T) {
	t.Parallel()

	h := fastBcrypt(t)

	tests := []struct {
		name   string
		digest string
		want   error
	}{
		{"empty", "", ErrMalformedDigest},
		{"plaintext", "password123", ErrUnknownAlgorithm},
		{"truncated bcrypt", "$2a$04$abc", ErrMalformedDigest},
		{"argon2 wrong parts", "$argon2id$v=19$m=1024,t=1,p=1$salt", ErrMalformedDigest},
		{"argon2 wrong version", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA", ErrMalformedDigest},
		{"argon2 bad params", "$argon2id$v=19$invalid$c2FsdA$aGFzaA", ErrMalformedDigest},
		{"argon2 huge memory", "$argon2id$v=19$m=99999999,t=1,p=1$c2FsdA$aGFzaA", ErrMalformedDigest},
		{"argon2 bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA", ErrMalformedDigest},
		{"argon2 bad key", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$!!!", ErrMalformedDigest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.False(t, h.Verify("pw", tt.digest))
			})
			require.ErrorIs(t, h.Compare("pw", tt.digest), tt.want)
		})
	}
}

func TestHasher_CompareMismatch(t *testing.T) {
	t.Parallel()

	for _, h := range []*Hasher{fastBcrypt(t), fastArgon2(t)} {
		digest, err := h.Hash("right")
		require.NoError(t, err)
		require.ErrorIs(t, h.Compare("wrong", digest), ErrMismatch)
	}
}

func TestHasher_VerifyDummyIsSafeConcurrently(t *testing.T) {
	t.Parallel()

	h := fastBcrypt(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.VerifyDummy("anything")
		}()
	}
	wg.Wait()
	require.NotEmpty(t, h.dummy)
}

func TestNewHasher_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewHasher(HasherConfig{Algorithm: "md5"})
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = NewHasher(HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: 2})
	require.Error(t, err)

	_, err = NewHasher(HasherConfig{Algorithm: AlgorithmArgon2id, Argon2Iterations: 100})
	require.Error(t, err)

	h, err := NewHasher(HasherConfig{})
	require.NoError(t, err)
	require.Equal(t, AlgorithmBcrypt, h.Algorithm())
	require.Equal(t, DefaultBcryptCost, h.cfg.BcryptCost)
}

func TestLoadOrGenerateSecret(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "secret")

	first, err := LoadOrGenerateSecret(path, TokenSize256)
	require.NoError(t, err)
	require.Len(t, first, 43)

	second, err := LoadOrGenerateSecret(path, TokenSize256)
	require.NoError(t, err)
	require.Equal(t, first, second, "existing secret must be reused")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0600))
	_, err = LoadOrGenerateSecret(empty, TokenSize256)
	require.Error(t, err)

	_, err = LoadOrGenerateSecret("", TokenSize256)
	require.Error(t, err)
}
