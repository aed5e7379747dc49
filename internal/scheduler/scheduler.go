package scheduler

import (
	"context"
	"sync"
	"time"

	"storepulse/pkg/lock"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"
)

// ScheduleLister loads the schedules a tick evaluates.
type ScheduleLister interface {
	ListActive(ctx context.Context) ([]*mysql.TaskSchedule, error)
}

// Scheduler ticks once a minute and fires matching schedules through the
// executor. The instance is owned by the process entry point; Start and
// Stop bound its lifetime.
type Scheduler struct {
	schedules ScheduleLister
	executor  *Executor
	tickLock  lock.DistributedLock

	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
	wg      sync.WaitGroup

	now func() time.Time
}

// NewScheduler creates a scheduler. tickLock guards the tick across
// replicas; pass a lock with a nil Redis client for single-instance mode.
func NewScheduler(schedules ScheduleLister, executor *Executor, tickLock lock.DistributedLock) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		executor:  executor,
		tickLock:  tickLock,
		now:       time.Now,
	}
}

// Start launches the tick loop. Calling Start on a started scheduler is a
// no-op.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)
	logger.Info("scheduler started")
}

// Stop halts the tick loop and waits for it to exit. Executions already
// launched keep running; use the executor's Wait to drain them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("scheduler stopped")
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// tick evaluates every active schedule against the current local minute
// and fires matches. Launches are fire-and-forget so a slow execution
// never delays the next tick.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if s.tickLock != nil {
		acquired, err := s.tickLock.TryLock(ctx)
		if err != nil {
			logger.Warnf("scheduler tick lock error: %v", err)
			return
		}
		if !acquired {
			logger.Debug("scheduler tick held by another instance, skipping")
			return
		}
		defer func() {
			if err := s.tickLock.Unlock(ctx); err != nil {
				logger.Warnf("failed to release scheduler tick lock: %v", err)
			}
		}()
	}

	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		logger.Errorf("failed to list schedules: %v", err)
		return
	}

	for _, schedule := range schedules {
		if !schedule.MatchesTick(now) {
			continue
		}
		logger.Infof("schedule %s (%d) matched %s", schedule.Name, schedule.ID, now.Format("2006-01-02 15:04"))
		if _, err := s.executor.StartScheduled(ctx, schedule); err != nil {
			logger.Errorf("failed to trigger schedule %s (%d): %v", schedule.Name, schedule.ID, err)
		}
	}
}
