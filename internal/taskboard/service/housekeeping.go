package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

const DefaultRetention = 30 * 24 * time.Hour

// HousekeepingService periodically deletes refresh token records that
// expired more than Retention ago. Revocation state is kept for the
// retention window. Revoking or resolving a token never deletes it; this
// pass is the only delete path and can be switched off.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time

	// OnDeleted, if set, is told how many records each pass removed.
	OnDeleted func(n int64)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService returns nil when interval is zero or negative,
// which disables housekeeping. Start and Stop accept a nil receiver.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		return nil
	}
	if retention < 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the cleanup loop in the background, once immediately and then
// every Interval.
func (s *HousekeepingService) Start() {
	if s == nil {
		return
	}
	go s.run()
	s.Logger.Info("housekeeping service started",
		slog.Duration("interval", s.Interval),
		slog.Duration("retention", s.Retention),
	)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	if s == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass and returns the number of deleted records.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.Retention)

	n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", slog.Any("error", err))
		return 0
	}

	if s.OnDeleted != nil {
		s.OnDeleted(n)
	}
	s.Logger.Info("housekeeping cleanup completed",
		slog.Int64("refresh_tokens_deleted", n),
		slog.Time("cutoff", cutoff),
	)
	return n
}

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
