package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

const (
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultMaxSessions     = 10

	refreshSeparator = "."
)

// RefreshManager owns the opaque refresh tokens. The client holds
// "<handle>.<secret>"; the store keeps the handle and a Hasher digest of
// the secret, so a leaked table yields no usable token.
type RefreshManager struct {
	Repo   store.Store
	Hasher *cryptox.Hasher
	TTL    time.Duration

	// MaxSessions caps the live records per account; the oldest surplus
	// records are revoked on Store. Zero or less disables the cap.
	MaxSessions int

	Now func() time.Time
}

// JoinRefreshToken builds the wire form of a refresh token.
func JoinRefreshToken(handle, secret string) string {
	return handle + refreshSeparator + secret
}

// SplitRefreshToken is the inverse of JoinRefreshToken. Neither half may
// be empty.
func SplitRefreshToken(opaque string) (handle, secret string, ok bool) {
	handle, secret, ok = strings.Cut(opaque, refreshSeparator)
	if !ok || handle == "" || secret == "" {
		return "", "", false
	}
	return handle, secret, true
}

// Generate returns a fresh handle (128 bits, base64url) and secret
// (512 bits, hex).
func (m *RefreshManager) Generate() (handle, secret string, err error) {
	handle, err = cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", "", err
	}
	secret, err = cryptox.GenerateHexToken(cryptox.TokenSize512)
	if err != nil {
		return "", "", err
	}
	return handle, secret, nil
}

// Store hashes the secret of opaque and persists it for accountID.
func (m *RefreshManager) Store(ctx context.Context, accountID, opaque string) (domain.RefreshToken, error) {
	rec, err := m.prepare(accountID, opaque)
	if err != nil {
		return domain.RefreshToken{}, err
	}

	err = m.Repo.WithTx(ctx, func(tx store.Tx) error {
		return m.persist(ctx, tx, rec)
	})
	if err != nil {
		return domain.RefreshToken{}, err
	}
	return rec, nil
}

// Issue generates and stores a new token, returning its wire form.
func (m *RefreshManager) Issue(ctx context.Context, accountID string) (string, domain.RefreshToken, error) {
	handle, secret, err := m.Generate()
	if err != nil {
		return "", domain.RefreshToken{}, err
	}
	opaque := JoinRefreshToken(handle, secret)

	rec, err := m.Store(ctx, accountID, opaque)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}
	return opaque, rec, nil
}

// Resolve maps opaque back to its owner. Every authentication failure is
// ErrRefreshNotFound; any other error is a store failure.
func (m *RefreshManager) Resolve(ctx context.Context, opaque string) (accountID, recordID string, err error) {
	rec, err := m.resolve(ctx, m.Repo, opaque)
	if err != nil {
		return "", "", err
	}
	return rec.AccountID, rec.ID, nil
}

func (m *RefreshManager) resolve(ctx context.Context, st store.Store, opaque string) (domain.RefreshToken, error) {
	handle, secret, ok := SplitRefreshToken(opaque)
	if !ok {
		m.Hasher.VerifyDummy(opaque)
		return domain.RefreshToken{}, ErrRefreshNotFound
	}

	rec, err := st.RefreshTokens().GetRefreshTokenByHandle(ctx, handle)
	if errors.Is(err, store.ErrNotFound) {
		m.Hasher.VerifyDummy(secret)
		return domain.RefreshToken{}, ErrRefreshNotFound
	}
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("lookup refresh token: %w", err)
	}

	// Verify before looking at state so every found handle costs the same.
	if !m.Hasher.Verify(secret, rec.TokenHash) {
		return domain.RefreshToken{}, ErrRefreshNotFound
	}
	if !rec.Usable(m.now()) {
		return domain.RefreshToken{}, ErrRefreshNotFound
	}
	return rec, nil
}

// Revoke marks one record revoked. Unknown or already revoked ids are
// not an error.
func (m *RefreshManager) Revoke(ctx context.Context, recordID string) error {
	return m.Repo.RefreshTokens().RevokeRefreshToken(ctx, recordID, m.now())
}

// RevokeAll revokes every live record of accountID in one statement.
func (m *RefreshManager) RevokeAll(ctx context.Context, accountID string) (int64, error) {
	return m.Repo.RefreshTokens().RevokeAllRefreshTokens(ctx, accountID, m.now())
}

// Rotate resolves opaque, revokes it and issues a successor for the same
// account. If two rotations race on one token only the first succeeds.
func (m *RefreshManager) Rotate(ctx context.Context, opaque string) (string, domain.RefreshToken, error) {
	cur, err := m.resolve(ctx, m.Repo, opaque)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	handle, secret, err := m.Generate()
	if err != nil {
		return "", domain.RefreshToken{}, err
	}
	next := JoinRefreshToken(handle, secret)

	rec, err := m.prepare(cur.AccountID, next)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	err = m.Repo.WithTx(ctx, func(tx store.Tx) error {
		now := m.now()

		// Re-read inside the transaction; a concurrent rotation may have
		// revoked it since resolve.
		latest, err := tx.RefreshTokens().GetRefreshTokenByHandle(ctx, cur.Handle)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRefreshNotFound
		}
		if err != nil {
			return err
		}
		if !latest.Usable(now) {
			return ErrRefreshNotFound
		}

		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, latest.ID, now); err != nil {
			return err
		}
		return m.persist(ctx, tx, rec)
	})
	if err != nil {
		return "", domain.RefreshToken{}, err
	}
	return next, rec, nil
}

// prepare does the slow hashing outside of any transaction.
func (m *RefreshManager) prepare(accountID, opaque string) (domain.RefreshToken, error) {
	handle, secret, ok := SplitRefreshToken(opaque)
	if !ok {
		return domain.RefreshToken{}, errors.New("malformed refresh token")
	}

	digest, err := m.Hasher.Hash(secret)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("hash refresh secret: %w", err)
	}

	now := m.now()
	return domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		AccountID: accountID,
		Handle:    handle,
		TokenHash: digest,
		ExpiresAt: now.Add(m.ttl()),
		CreatedAt: now,
	}, nil
}

func (m *RefreshManager) persist(ctx context.Context, st store.Store, rec domain.RefreshToken) error {
	if err := st.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return m.enforceCeiling(ctx, st, rec.AccountID)
}

// enforceCeiling revokes the oldest usable records above MaxSessions.
func (m *RefreshManager) enforceCeiling(ctx context.Context, st store.Store, accountID string) error {
	if m.MaxSessions <= 0 {
		return nil
	}

	active, err := st.RefreshTokens().ListActiveRefreshTokens(ctx, accountID)
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}

	now := m.now()
	live := active[:0]
	for _, t := range active {
		if t.Usable(now) {
			live = append(live, t)
		}
	}

	surplus := len(live) - m.MaxSessions
	for i := 0; i < surplus; i++ {
		if err := st.RefreshTokens().RevokeRefreshToken(ctx, live[i].ID, now); err != nil {
			return fmt.Errorf("revoke surplus refresh token: %w", err)
		}
	}
	if surplus > 0 {
		slogx.FromContext(ctx).Debug("revoked surplus sessions",
			slog.String("account_id", accountID),
			slog.Int("count", surplus),
		)
	}
	return nil
}

func (m *RefreshManager) ttl() time.Duration {
	if m.TTL > 0 {
		return m.TTL
	}
	return DefaultRefreshTokenTTL
}

func (m *RefreshManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
