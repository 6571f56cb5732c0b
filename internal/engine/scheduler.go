package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler drives the engine's evaluation loop. It has two states, stopped
// and running; Start and Stop are no-ops when already in the requested state.
// Ticks never overlap: if a pass is still running when the interval elapses,
// the new tick is skipped, not queued.
type Scheduler struct {
	engine *Engine
	log    *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration

	ticking atomic.Bool
}

// NewScheduler wraps the engine in a tick loop.
func NewScheduler(e *Engine, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		engine: e,
		log:    log.With("component", "scheduler"),
	}
}

// Start begins ticking at the given interval. The first pass runs
// immediately. Returns false if the scheduler was already running.
func (s *Scheduler) Start(interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.interval = interval
	go s.run(ctx, interval, s.done) // ticks after the first run detached, guarded by s.ticking

	s.log.Info("scheduler started", "interval", interval)
	return true
}

// Stop halts the tick loop and waits for the loop goroutine to exit. A pass
// already in flight is cancelled through its context. Returns false if the
// scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return false
	}
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info("scheduler stopped")
	return true
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Interval returns the configured tick interval, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return 0
	}
	return s.interval
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	s.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.tick(ctx)
		}
	}
}

// tick runs one engine pass unless one is already in flight, in which case
// this firing is dropped.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.log.Debug("tick skipped, previous pass still running")
		return
	}
	defer s.ticking.Store(false)

	report := s.engine.Tick(ctx)
	if report.Consumed > 0 || report.Failed > 0 {
		s.log.Info("tick complete",
			"evaluated", report.Evaluated, "skipped", report.Skipped,
			"consumed", report.Consumed, "failed", report.Failed)
	}
}
