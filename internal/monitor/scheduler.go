package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Scheduler triggers a cycle immediately on Start and then every interval.
type Scheduler struct {
	orch     *Orchestrator
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
	reset    chan time.Duration
}

func NewScheduler(orch *Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{orch: orch, interval: interval}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.reset = make(chan time.Duration, 1)

	slog.Info("monitor: scheduler started", "interval", s.interval)
	go s.loop(ctx, s.interval, s.stopChan, s.done, s.reset)
}

// Stop halts the ticker and waits for an in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
	slog.Info("monitor: scheduler stopped")
}

// SetInterval changes the tick period of a running scheduler.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 || d == s.interval {
		return
	}
	s.interval = d
	if s.running {
		select {
		case <-s.reset:
		default:
		}
		s.reset <- d
	}
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, stop <-chan struct{}, done chan<- struct{}, reset <-chan time.Duration) {
	defer close(done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.runCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx)
		case d := <-reset:
			ticker.Reset(d)
			slog.Info("monitor: scheduler interval changed", "interval", d)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if _, err := s.orch.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			slog.Warn("monitor: previous cycle still running, tick skipped")
			return
		}
		slog.Error("monitor: cycle failed", "err", err)
	}
}
