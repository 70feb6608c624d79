package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvent struct {
	name    string
	success bool
}

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *eventLog) AuthEvent(name string, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{name, success})
}

func (e *eventLog) Last() recordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[len(e.events)-1]
}

type testEnv struct {
	store    *sqlite.Store
	clock    *fakeClock
	hasher   *cryptox.Hasher
	access   *AccessIssuer
	refresh  *RefreshManager
	sessions *SessionService
	tasks    *TaskService
	accounts *AccountService
	events   *eventLog
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(context.Background()))

	clock := newFakeClock()

	hasher, err := cryptox.NewHasher(cryptox.HasherConfig{BcryptCost: 4})
	require.NoError(t, err)

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: "taskboard-test", Now: clock.Now})
	require.NoError(t, err)

	access := &AccessIssuer{Signer: signer, Verifier: verifier, Issuer: "taskboard-test", TTL: 15 * time.Minute, Now: clock.Now}
	refresh := &RefreshManager{Repo: st, Hasher: hasher, TTL: 7 * 24 * time.Hour, MaxSessions: DefaultMaxSessions, Now: clock.Now}
	events := &eventLog{}

	return &testEnv{
		store:   st,
		clock:   clock,
		hasher:  hasher,
		access:  access,
		refresh: refresh,
		sessions: &SessionService{
			Store:  st,
			Hasher: hasher,
			Access: access,
			Tokens: refresh,
			Events: events,
			Now:    clock.Now,
		},
		tasks:    &TaskService{Store: st, Now: clock.Now},
		accounts: &AccountService{Store: st},
		events:   events,
	}
}

func (e *testEnv) register(t *testing.T, email string) Session {
	t.Helper()

	s, err := e.sessions.Register(context.Background(), RegisterInput{Email: email, Password: "correct horse", Name: "Test"})
	require.NoError(t, err)
	return s
}

func requireKind(t *testing.T, err error, want Kind) *Error {
	t.Helper()

	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, want, se.Kind, "error: %v", err)
	return se
}
