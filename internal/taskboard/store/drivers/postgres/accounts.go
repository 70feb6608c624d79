package postgres

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, name, password_hash, created_at, updated_at`

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return store.ErrAlreadyExists
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return r.getBy(ctx, "id", id)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.getBy(ctx, "email", email)
}

func (r *accountsRepo) getBy(ctx context.Context, column, value string) (domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, value,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}
