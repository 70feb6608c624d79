package domain

import "time"

// RefreshToken is the stored half of an opaque refresh token. The client
// holds "<Handle>.<secret>"; only the hash of the secret is kept here.
type RefreshToken struct {
	ID        string
	AccountID string
	Handle    string // random, non-secret lookup key
	TokenHash string // Hasher digest of the secret
	ExpiresAt time.Time
	Revoked   bool // never goes back to false
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the record can still authenticate at now. Every
// read path goes through this since expiry is enforced lazily.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
