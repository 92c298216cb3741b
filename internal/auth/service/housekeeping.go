package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tillworks/tillsuite/internal/auth/store"
)

// HousekeepingService periodically sweeps expired authorization codes and
// refresh tokens so the grant tables do not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a sweeper with the given interval,
// defaulting to 1 hour when the interval is zero or negative.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep deletes expired grant records. Each table is independent; a failure
// in one does not stop the other.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	if n, err := s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx); err != nil {
		s.Logger.Error("failed to delete expired authorization codes", "error", err)
	} else if n > 0 {
		s.Logger.Info("deleted expired authorization codes", "count", n)
	}

	if n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else if n > 0 {
		s.Logger.Info("deleted expired refresh tokens", "count", n)
	}
}
