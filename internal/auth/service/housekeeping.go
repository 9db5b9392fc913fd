package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/store"
)

const DefaultHousekeepingInterval = 10 * time.Minute

// Sweeper is anything with expiring entries to evict.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// HousekeepingService periodically evicts expired ephemeral tokens,
// revocation entries and session records so memory and tables stay bounded.
type HousekeepingService struct {
	// Sweepers by name, for logging.
	Sweepers map[string]Sweeper
	Sessions store.Sessions // optional
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the service. A non-positive interval
// defaults to 10 minutes.
func NewHousekeepingService(sweepers map[string]Sweeper, sessions store.Sessions, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Sweepers: sweepers,
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop in the background. It sweeps once immediately.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop ends the loop and waits for an in-progress sweep to finish.
func (s *HousekeepingService) Stop() {
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

// Cleanup runs one sweep. Each target is independent; a failure in one is
// logged and does not stop the others. It returns the number of entries
// removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int {
	total := 0

	for name, sw := range s.Sweepers {
		n, err := sw.Sweep(ctx)
		if err != nil {
			s.Logger.Error("sweep failed", "store", name, "error", err)
			continue
		}
		s.Logger.Debug("swept expired entries", "store", name, "removed", n)
		total += n
	}

	if s.Sessions != nil {
		n, err := s.Sessions.DeleteExpiredSessions(ctx)
		if err != nil {
			s.Logger.Error("failed to delete expired sessions", "error", err)
		} else {
			total += int(n)
		}
	}

	s.Logger.Info("housekeeping cleanup completed", "removed", total)
	return total
}
