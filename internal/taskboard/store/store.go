package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it so a Tx exposes exactly the
// same surface.
type Store interface {
	Accounts() Accounts
	RefreshTokens() RefreshTokens
	Tasks() Tasks

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction scoped Store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a. Returns ErrAlreadyExists if the email is taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	// GetAccountByID returns ErrNotFound if no account has id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail expects a normalised email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHandle returns the record whatever its state; callers
	// check Usable.
	GetRefreshTokenByHandle(ctx context.Context, handle string) (domain.RefreshToken, error)

	// ListActiveRefreshTokens returns the non-revoked records of an account,
	// oldest first. Expired records are included.
	ListActiveRefreshTokens(ctx context.Context, accountID string) ([]domain.RefreshToken, error)

	// RevokeRefreshToken marks one record revoked. Revoking an already
	// revoked or unknown record is not an error.
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) error

	// RevokeAllRefreshTokens revokes every live record of an account in one
	// statement and returns how many changed.
	RevokeAllRefreshTokens(ctx context.Context, accountID string, at time.Time) (int64, error)

	// DeleteExpiredRefreshTokens physically removes records that expired
	// before the cutoff.
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

type Tasks interface {
	CreateTask(ctx context.Context, t domain.Task) error

	// GetTask only finds tasks owned by accountID.
	GetTask(ctx context.Context, accountID, id string) (domain.Task, error)

	// ListTasks returns one page, newest first, and the total match count.
	ListTasks(ctx context.Context, accountID string, f domain.TaskFilter) ([]domain.Task, int, error)

	// UpdateTask applies p. Returns ErrNotFound if the task is not owned by
	// accountID.
	UpdateTask(ctx context.Context, accountID, id string, p domain.TaskPatch, at time.Time) error

	DeleteTask(ctx context.Context, accountID, id string) error
}
