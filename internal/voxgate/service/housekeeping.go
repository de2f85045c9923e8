package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
)

// HousekeepingService periodically purges expired enrollments so that a
// record TTL actually reclaims storage.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. The first purge runs immediately.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress purge has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Purge(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Purge(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Purge removes expired enrollments once and reports how many went.
func (s *HousekeepingService) Purge(ctx context.Context) int {
	start := time.Now()
	n, err := s.Store.Credentials().PurgeExpired(ctx)
	if err != nil {
		s.Logger.Error("failed to purge expired enrollments", "error", err)
		return n
	}
	s.Logger.Info("housekeeping purge completed", "removed", n, "duration_ms", time.Since(start).Milliseconds())
	return n
}
