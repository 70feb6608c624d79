package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// Session is what a successful register, login or refresh hands back.
// RefreshToken is empty after a refresh without rotation.
type Session struct {
	AccessToken  string
	AccessClaims jwtx.Claims
	RefreshToken string
	Account      domain.Account
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// SessionService orchestrates the credential lifecycle on top of the
// hasher, the access issuer and the refresh manager.
type SessionService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Access *AccessIssuer
	Tokens *RefreshManager

	// Rotate makes every refresh revoke the presented token and return a
	// new one. Off by default.
	Rotate bool

	Events EventRecorder
	Now    func() time.Time
}

// Register creates the account and its first session. The account and
// the refresh record are written in one transaction.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	l := slogx.FromContext(ctx)
	events := recorderOrNop(s.Events)

	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		events.AuthEvent(EventRegister, false)
		return Session{}, Validation("Email and password are required", nil)
	}

	passwordHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return Session{}, Internal(err)
	}

	now := s.now()
	account := domain.Account{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	handle, secret, err := s.Tokens.Generate()
	if err != nil {
		return Session{}, Internal(err)
	}
	opaque := JoinRefreshToken(handle, secret)
	rec, err := s.Tokens.prepare(account.ID, opaque)
	if err != nil {
		return Session{}, Internal(err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return err
		}
		return s.Tokens.persist(ctx, tx, rec)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		events.AuthEvent(EventRegister, false)
		return Session{}, Conflict(msgEmailTaken)
	}
	if err != nil {
		return Session{}, Internal(err)
	}

	access, claims, err := s.Access.Mint(account, 0)
	if err != nil {
		return Session{}, Internal(err)
	}

	l.Info("account registered", slog.String("account_id", account.ID))
	events.AuthEvent(EventRegister, true)

	return Session{AccessToken: access, AccessClaims: claims, RefreshToken: opaque, Account: account}, nil
}

// Login checks the credentials and opens a new session. An unknown email
// and a wrong password are indistinguishable to the caller, including in
// timing since the unknown case still pays for one verification.
func (s *SessionService) Login(ctx context.Context, email, password string) (Session, error) {
	l := slogx.FromContext(ctx)
	events := recorderOrNop(s.Events)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.Hasher.VerifyDummy(password)
		events.AuthEvent(EventLogin, false)
		return Session{}, Unauthorized(msgInvalidCredentials)
	case err != nil:
		return Session{}, Internal(err)
	}

	if !s.Hasher.Verify(password, account.PasswordHash) {
		l.Info("login failed", slog.String("account_id", account.ID))
		events.AuthEvent(EventLogin, false)
		return Session{}, Unauthorized(msgInvalidCredentials)
	}

	opaque, _, err := s.Tokens.Issue(ctx, account.ID)
	if err != nil {
		return Session{}, Internal(err)
	}

	access, claims, err := s.Access.Mint(account, 0)
	if err != nil {
		return Session{}, Internal(err)
	}

	events.AuthEvent(EventLogin, true)
	return Session{AccessToken: access, AccessClaims: claims, RefreshToken: opaque, Account: account}, nil
}

// Refresh trades a refresh token for a new access token. With rotation
// enabled the presented token is revoked and Session.RefreshToken holds
// its replacement.
func (s *SessionService) Refresh(ctx context.Context, opaque string) (Session, error) {
	events := recorderOrNop(s.Events)

	if opaque == "" {
		events.AuthEvent(EventRefresh, false)
		return Session{}, Unauthorized(msgInvalidRefresh)
	}

	var (
		accountID string
		next      string
		err       error
	)
	if s.Rotate {
		var rec domain.RefreshToken
		next, rec, err = s.Tokens.Rotate(ctx, opaque)
		accountID = rec.AccountID
	} else {
		accountID, _, err = s.Tokens.Resolve(ctx, opaque)
	}
	if errors.Is(err, ErrRefreshNotFound) {
		events.AuthEvent(EventRefresh, false)
		return Session{}, Unauthorized(msgInvalidRefresh)
	}
	if err != nil {
		return Session{}, Internal(err)
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		events.AuthEvent(EventRefresh, false)
		return Session{}, Unauthorized(msgInvalidRefresh)
	}
	if err != nil {
		return Session{}, Internal(err)
	}

	access, claims, err := s.Access.Mint(account, 0)
	if err != nil {
		return Session{}, Internal(err)
	}

	events.AuthEvent(EventRefresh, true)
	return Session{AccessToken: access, AccessClaims: claims, RefreshToken: next, Account: account}, nil
}

// Logout revokes the record behind opaque if it resolves. It never fails
// from the caller's point of view.
func (s *SessionService) Logout(ctx context.Context, opaque string) {
	l := slogx.FromContext(ctx)
	events := recorderOrNop(s.Events)

	if opaque == "" {
		events.AuthEvent(EventLogout, false)
		return
	}

	accountID, recordID, err := s.Tokens.Resolve(ctx, opaque)
	if err != nil {
		if !errors.Is(err, ErrRefreshNotFound) {
			l.Error("logout: resolve refresh token", slog.Any("error", err))
		}
		events.AuthEvent(EventLogout, false)
		return
	}

	if err := s.Tokens.Revoke(ctx, recordID); err != nil {
		l.Error("logout: revoke refresh token", slog.String("account_id", accountID), slog.Any("error", err))
		events.AuthEvent(EventLogout, false)
		return
	}

	events.AuthEvent(EventLogout, true)
}

// LogoutAll revokes every session of accountID and reports how many were
// live.
func (s *SessionService) LogoutAll(ctx context.Context, accountID string) (int64, error) {
	events := recorderOrNop(s.Events)

	n, err := s.Tokens.RevokeAll(ctx, accountID)
	if err != nil {
		events.AuthEvent(EventLogoutAll, false)
		return 0, Internal(err)
	}

	slogx.FromContext(ctx).Info("revoked all sessions",
		slog.String("account_id", accountID),
		slog.Int64("count", n),
	)
	events.AuthEvent(EventLogoutAll, true)
	return n, nil
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
