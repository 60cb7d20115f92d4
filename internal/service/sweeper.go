package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionSweeper is the clarification-session surface the sweeper
// drives alongside task expiry.
type SessionSweeper interface {
	SweepExpired(now time.Time) int
}

// SweeperConfig holds sweeper tuning knobs.
type SweeperConfig struct {
	// Interval is how often the sweep runs.
	Interval time.Duration

	// ValidityWindow is how long a recurring-wellness task stays valid
	// after creation.
	ValidityWindow time.Duration
}

// Sweeper periodically expires stale recurring-wellness tasks and
// discards timed-out clarification sessions. It runs independently of
// user activity and only ever goes through the task service's public
// operations, so the reminder invariants hold without extra locking.
type Sweeper struct {
	tasks      TaskService
	sessions   SessionSweeper
	config     SweeperConfig
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSweeper creates a Sweeper. sessions may be nil when no
// clarification manager is wired (e.g. in tests).
func NewSweeper(tasks TaskService, sessions SessionSweeper, config SweeperConfig, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		tasks:      tasks,
		sessions:   sessions,
		config:     config,
		logger:     log.With(slog.String("component", "sweeper")),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the periodic sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(s.ctx)
			}
		}
	}()
}

// Stop shuts the sweep loop down.
func (s *Sweeper) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

// Sweep runs one pass. Exported so tests and operators can trigger it
// directly without waiting for the ticker.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.tasks.ExpireStale(ctx, s.config.ValidityWindow)
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
	} else if expired > 0 {
		s.logger.Info("sweep expired stale tasks", "count", expired)
	}

	if s.sessions != nil {
		s.sessions.SweepExpired(time.Now())
	}
}
