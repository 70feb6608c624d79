package jwtx

import (
	"errors"
	"time"
)

// Verifier validates a token and returns its claims. On any failure the
// claims are zero; callers never see partially verified data.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures the expectations checked by verifiers.
type VerifyOptions struct {
	// Issuer the token must carry. Empty means "don't care".
	Issuer string

	// Leeway allows small clock skew when validating exp/nbf/iat.
	Leeway time.Duration

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrInvalidSig    = errors.New("jwtx: invalid signature")
	ErrIssuer        = errors.New("jwtx: issuer mismatch")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrNotYetValid   = errors.New("jwtx: token not yet valid")
	ErrMissingClaim  = errors.New("jwtx: missing required claim")
	ErrWeakSecret    = errors.New("jwtx: signing secret too short")
	ErrInvalidClaims = errors.New("jwtx: invalid claims")
)
