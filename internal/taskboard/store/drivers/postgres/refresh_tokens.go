package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, account_id, handle, token_hash, expires_at, revoked, revoked_at, created_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	var revokedAt sql.NullTime
	if t.RevokedAt != nil {
		revokedAt = sql.NullTime{Time: t.RevokedAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.AccountID, t.Handle, t.TokenHash, t.ExpiresAt.UTC(), t.Revoked, revokedAt, t.CreatedAt.UTC(),
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHandle(ctx context.Context, handle string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE handle = $1`, handle)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) ListActiveRefreshTokens(ctx context.Context, accountID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens
		 WHERE account_id = $1 AND NOT revoked
		 ORDER BY created_at ASC, id ASC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE id = $2 AND NOT revoked`,
		at.UTC(), id,
	)
	return err
}

func (r *refreshTokensRepo) RevokeAllRefreshTokens(ctx context.Context, accountID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE account_id = $2 AND NOT revoked`,
		at.UTC(), accountID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		revokedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.Handle, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &revokedAt, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	return t, nil
}
