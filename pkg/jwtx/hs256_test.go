package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const b64url = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func newPair(t *testing.T, opts jwtx.VerifyOptions) (*jwtx.HS256Signer, *jwtx.HS256Verifier) {
	t.Helper()

	s, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	v, err := jwtx.NewVerifierHS256(testSecret, opts)
	require.NoError(t, err)
	return s, v
}

func TestHS256_RoundTrip(t *testing.T) {
	t.Parallel()

	s, v := newPair(t, jwtx.VerifyOptions{Issuer: "taskboard"})
	require.Equal(t, "HS256", s.Alg())

	now := time.Now().UTC()
	tok, err := s.Sign(jwtx.NewAccessClaims("acct-1", "a@x.com", "taskboard", 15*time.Minute, now))
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(tok, "."))

	got, err := v.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "acct-1", got.Subject)
	require.Equal(t, "a@x.com", got.Email)
	require.True(t, got.ExpiresAt.After(time.Now()))
}

func TestHS256_Expired(t *testing.T) {
	t.Parallel()

	minted := time.Unix(1700000000, 0).UTC()
	ttl := 15 * time.Minute

	s, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	tok, err := s.Sign(jwtx.NewAccessClaims("acct-1", "", "", ttl, minted))
	require.NoError(t, err)

	t.Run("just before expiry", func(t *testing.T) {
		v, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{
			Now: func() time.Time { return minted.Add(ttl - time.Second) },
		})
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.NoError(t, err)
	})

	t.Run("after expiry", func(t *testing.T) {
		v, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{
			Now: func() time.Time { return minted.Add(ttl + time.Second) },
		})
		require.NoError(t, err)
		got, err := v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
		require.Empty(t, got.Subject)
	})

	t.Run("leeway covers small skew", func(t *testing.T) {
		v, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{
			Leeway: 30 * time.Second,
			Now:    func() time.Time { return minted.Add(ttl + 10*time.Second) },
		})
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.NoError(t, err)
	})
}

func TestHS256_TamperedTokens(t *testing.T) {
	t.Parallel()

	s, v := newPair(t, jwtx.VerifyOptions{})
	tok, err := s.Sign(jwtx.NewAccessClaims("acct-1", "a@x.com", "", time.Hour, time.Now().UTC()))
	require.NoError(t, err)

	// Flip the most significant bit of every base64 character in turn.
	for i := range len(tok) {
		if tok[i] == '.' {
			continue
		}
		idx := strings.IndexByte(b64url, tok[i])
		require.GreaterOrEqual(t, idx, 0)

		b := []byte(tok)
		b[i] = b64url[idx^32]

		got, err := v.Verify(string(b))
		require.Error(t, err, "flip at %d accepted", i)
		require.Empty(t, got.Subject)
	}
}

func TestHS256_Rejections(t *testing.T) {
	t.Parallel()

	s, v := newPair(t, jwtx.VerifyOptions{Issuer: "taskboard"})
	now := time.Now().UTC()

	good := jwtx.NewAccessClaims("acct-1", "", "taskboard", time.Hour, now)

	otherSigner, err := jwtx.NewSignerHS256([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)
	foreign, err := otherSigner.Sign(good)
	require.NoError(t, err)

	wrongIss, err := s.Sign(jwtx.NewAccessClaims("acct-1", "", "someone-else", time.Hour, now))
	require.NoError(t, err)

	noSub, err := s.Sign(jwtx.NewAccessClaims("", "", "taskboard", time.Hour, now))
	require.NoError(t, err)

	future, err := s.Sign(jwtx.NewAccessClaims("acct-1", "", "taskboard", time.Hour, now.Add(time.Hour)))
	require.NoError(t, err)

	noneTok, err := jwt.NewWithClaims(jwt.SigningMethodNone, good).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, good).SignedString(testSecret)
	require.NoError(t, err)

	noExp := good
	noExp.ExpiresAt = nil
	noExpTok, err := s.Sign(noExp)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", jwtx.ErrMalformed},
		{"garbage", "not.a.jwt", jwtx.ErrMalformed},
		{"two segments", "abc.def", jwtx.ErrMalformed},
		{"foreign secret", foreign, jwtx.ErrInvalidSig},
		{"alg none", noneTok, jwtx.ErrInvalidSig},
		{"alg HS512", hs512, jwtx.ErrInvalidSig},
		{"wrong issuer", wrongIss, jwtx.ErrIssuer},
		{"missing subject", noSub, jwtx.ErrMissingClaim},
		{"not yet valid", future, jwtx.ErrNotYetValid},
		{"missing exp", noExpTok, jwtx.ErrMissingClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(tt.token)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, jwtx.Claims{}, got)
		})
	}
}

func TestHS256_WeakSecret(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewVerifierHS256([]byte("short"), jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
