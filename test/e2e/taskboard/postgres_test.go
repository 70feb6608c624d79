package taskboard_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/postgres"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway Postgres and returns its DSN.
func setupPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "taskboard",
				"POSTGRES_PASSWORD": "taskboard",
				"POSTGRES_DB":       "taskboard",
			},
			// The server restarts once after initdb.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://taskboard:taskboard@%s:%s/taskboard?sslmode=disable", host, port.Port())
}

// TestPostgresSessionLifecycle runs the session and task services on the
// postgres driver, migrations included.
func TestPostgresSessionLifecycle(t *testing.T) {
	dsn := setupPostgres(t)
	ctx := t.Context()

	st, err := postgres.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations(ctx))
	require.NoError(t, st.ApplyMigrations(ctx), "migrations are idempotent")

	hasher, err := cryptox.NewHasher(cryptox.HasherConfig{BcryptCost: 4})
	require.NoError(t, err)
	secret := []byte("e2e-postgres-secret-0123456789abcdef")
	signer, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{Issuer: "taskboard"})
	require.NoError(t, err)

	sessions := &service.SessionService{
		Store:  st,
		Hasher: hasher,
		Access: &service.AccessIssuer{Signer: signer, Verifier: verifier, Issuer: "taskboard"},
		Tokens: &service.RefreshManager{Repo: st, Hasher: hasher, MaxSessions: 2},
	}
	tasks := &service.TaskService{Store: st}

	reg, err := sessions.Register(ctx, service.RegisterInput{Email: "pg@x.com", Password: testPassword})
	require.NoError(t, err)

	_, err = sessions.Register(ctx, service.RegisterInput{Email: "PG@x.com", Password: testPassword})
	require.Equal(t, service.KindConflict, service.KindOf(err))

	_, err = sessions.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)

	second, err := sessions.Login(ctx, "pg@x.com", testPassword)
	require.NoError(t, err)
	third, err := sessions.Login(ctx, "pg@x.com", testPassword)
	require.NoError(t, err)

	// Ceiling of two evicts the registration session.
	_, err = sessions.Refresh(ctx, reg.RefreshToken)
	require.Equal(t, service.KindUnauthorized, service.KindOf(err))

	sessions.Logout(ctx, second.RefreshToken)
	_, err = sessions.Refresh(ctx, second.RefreshToken)
	require.Equal(t, service.KindUnauthorized, service.KindOf(err))

	n, err := sessions.LogoutAll(ctx, reg.Account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	_, err = sessions.Refresh(ctx, third.RefreshToken)
	require.Equal(t, service.KindUnauthorized, service.KindOf(err))

	for _, title := range []string{"50% done", "invoice", "Invoice follow-up"} {
		_, err := tasks.Create(ctx, reg.Account.ID, service.CreateTaskInput{Title: title})
		require.NoError(t, err)
	}

	items, total, _, err := tasks.List(ctx, reg.Account.ID, domain.TaskFilter{Search: "INVOICE"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)

	_, total, _, err = tasks.List(ctx, reg.Account.ID, domain.TaskFilter{Search: "50%"})
	require.NoError(t, err)
	require.Equal(t, 1, total, "LIKE wildcards in the search are literal")

	status, err := tasks.Toggle(ctx, reg.Account.ID, items[0].ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskInProgress, status)
}

// TestPostgresRevokedIsFinal checks the trigger that keeps revocation one
// way even for writes that bypass the repositories.
func TestPostgresRevokedIsFinal(t *testing.T) {
	dsn := setupPostgres(t)
	ctx := t.Context()

	st, err := postgres.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(ctx))

	hasher, err := cryptox.NewHasher(cryptox.HasherConfig{BcryptCost: 4})
	require.NoError(t, err)
	refresh := &service.RefreshManager{Repo: st, Hasher: hasher}

	now := time.Now().UTC()
	require.NoError(t, st.Accounts().CreateAccount(ctx, domain.Account{
		ID:           "acc-final",
		Email:        "final@x.com",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	_, rec, err := refresh.Issue(ctx, "acc-final")
	require.NoError(t, err)
	require.NoError(t, refresh.Revoke(ctx, rec.ID))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = FALSE WHERE id = $1`, rec.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "revoked")
}
