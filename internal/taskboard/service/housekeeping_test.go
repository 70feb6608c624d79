package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	acc := env.register(t, "bart@example.com").Account // expires at T0+7d

	env.clock.Advance(20 * 24 * time.Hour)
	recent, _, err := env.refresh.Issue(ctx, acc.ID) // expires at T0+27d
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := NewHousekeepingService(env.store, logger, time.Hour, 10*24*time.Hour)
	hk.Now = env.clock.Now
	var reported int64
	hk.OnDeleted = func(n int64) { reported += n }

	// T0+20d minus 10d retention: the first record expired 3 days before
	// the cutoff.
	require.EqualValues(t, 1, hk.Cleanup(ctx))
	require.EqualValues(t, 0, hk.Cleanup(ctx))
	require.EqualValues(t, 1, reported)

	_, _, err = env.refresh.Resolve(ctx, recent)
	require.NoError(t, err)
}

func TestHousekeepingDisabled(t *testing.T) {
	t.Parallel()

	hk := NewHousekeepingService(nil, nil, 0, time.Hour)
	require.Nil(t, hk)

	// Lifecycle calls on a disabled service are no-ops.
	hk.Start()
	hk.Stop()
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	hk := NewHousekeepingService(env.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour, 0)
	hk.Start()
	hk.Stop()
}
