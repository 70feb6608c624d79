package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	c := jwtx.NewAccessClaims("acct-1", "a@x.com", "taskboard", 15*time.Minute, now)

	require.Equal(t, "acct-1", c.Subject)
	require.Equal(t, "a@x.com", c.Email)
	require.Equal(t, "taskboard", c.Issuer)
	require.Equal(t, now, c.IssuedAt.Time)
	require.Equal(t, now, c.NotBefore.Time)
	require.Equal(t, now.Add(15*time.Minute), c.ExpiresAt.Time)
	require.NotEmpty(t, c.ID)

	other := jwtx.NewAccessClaims("acct-1", "a@x.com", "taskboard", 15*time.Minute, now)
	require.NotEqual(t, c.ID, other.ID, "jti must be unique")
}

func TestClaimsExpiresIn(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	c := jwtx.NewAccessClaims("acct-1", "", "", time.Minute, now)

	require.Equal(t, time.Minute, c.ExpiresIn(now))
	require.Equal(t, time.Duration(0), c.ExpiresIn(now.Add(time.Hour)))
	require.Equal(t, time.Duration(0), jwtx.Claims{}.ExpiresIn(now))
}
