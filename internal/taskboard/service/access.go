package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
)

// AccessIssuer mints and verifies the short lived bearer tokens. It holds
// no mutable state.
type AccessIssuer struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string
	TTL      time.Duration
	Now      func() time.Time
}

// Mint signs an access token for account. A non-positive ttl falls back
// to the issuer's TTL, then to jwtx.DefaultAccessTokenTTL.
func (a *AccessIssuer) Mint(account domain.Account, ttl time.Duration) (string, jwtx.Claims, error) {
	if ttl <= 0 {
		ttl = a.TTL
	}
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(account.ID, account.Email, a.Issuer, ttl, a.now())
	token, err := a.Signer.Sign(claims)
	if err != nil {
		return "", jwtx.Claims{}, fmt.Errorf("mint access token: %w", err)
	}
	return token, claims, nil
}

// Verify returns the claims of a valid token or a jwtx sentinel error.
func (a *AccessIssuer) Verify(token string) (jwtx.Claims, error) {
	return a.Verifier.Verify(token)
}

func (a *AccessIssuer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
