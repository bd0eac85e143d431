// Package monitor runs check cycles: it loads every target, reconciles each
// one against fresh probe results on a bounded worker pool, persists what
// changed and hands decided alerts to the notifier.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MimoJanra/UptimeGuard/internal/checker"
	"github.com/MimoJanra/UptimeGuard/internal/models"
)

// ErrCycleInProgress is returned by RunCycle when another cycle is running.
var ErrCycleInProgress = errors.New("monitor: cycle already in progress")

// dispatchTimeout bounds alert delivery, which outlives the cycle deadline so
// that a persisted alert decision is not lost to it.
const dispatchTimeout = 30 * time.Second

type Store interface {
	FindAll(ctx context.Context) ([]models.Target, error)
	UpdateByID(ctx context.Context, id string, changes models.TargetChanges) error
}

type Notifier interface {
	Dispatch(ctx context.Context, alert models.Alert) bool
}

type Options struct {
	MaxConcurrency      int
	CycleTimeout        time.Duration
	TouchInterval       time.Duration
	MaxTargetsPerMinute int
}

type Orchestrator struct {
	store      Store
	reconciler *Reconciler
	metrics    *Metrics
	now        func() time.Time

	running atomic.Bool

	mu       sync.RWMutex
	opts     Options
	notifier *notifierRef
	limiter  *checker.RateLimiter
}

// notifierRef counts the cycles still delivering through a notifier.
type notifierRef struct {
	n     Notifier
	users sync.WaitGroup
}

func NewOrchestrator(store Store, probes checker.Probes, notifier Notifier, opts Options, metrics *Metrics) *Orchestrator {
	if metrics == nil {
		metrics = NewMetrics()
	}
	o := &Orchestrator{
		store:      store,
		reconciler: NewReconciler(probes),
		metrics:    metrics,
		now:        time.Now,
		notifier:   &notifierRef{n: notifier},
	}
	o.SetOptions(opts)
	return o
}

// SetOptions applies new tuning; a cycle already running keeps the old one.
func (o *Orchestrator) SetOptions(opts Options) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if opts.MaxTargetsPerMinute != o.opts.MaxTargetsPerMinute || o.limiter == nil {
		o.limiter = nil
		if opts.MaxTargetsPerMinute > 0 {
			o.limiter = checker.NewRateLimiter(opts.MaxTargetsPerMinute, 0)
		}
	}
	o.opts = opts
}

// SetNotifier swaps the alert notifier for subsequent cycles. A cycle already
// running keeps delivering through the previous notifier; the returned
// channel is closed once no cycle uses it any more, after which it is safe to
// release.
func (o *Orchestrator) SetNotifier(n Notifier) <-chan struct{} {
	o.mu.Lock()
	prev := o.notifier
	o.notifier = &notifierRef{n: n}
	o.mu.Unlock()

	released := make(chan struct{})
	go func() {
		prev.users.Wait()
		close(released)
	}()
	return released
}

func (o *Orchestrator) Metrics() *Metrics { return o.metrics }

// Running reports whether a cycle is in flight.
func (o *Orchestrator) Running() bool { return o.running.Load() }

type cycleState struct {
	opts     Options
	notifier Notifier
	limiter  *checker.RateLimiter
	release  func()
}

// state snapshots the tuning for one cycle and pins its notifier until
// release is called.
func (o *Orchestrator) state() cycleState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ref := o.notifier
	ref.users.Add(1)
	return cycleState{opts: o.opts, notifier: ref.n, limiter: o.limiter, release: ref.users.Done}
}

// RunCycle probes every target once. It returns after every per-target task
// has settled; individual task failures are counted in the summary, not
// returned. Only a failed target load or an overlapping call is an error.
func (o *Orchestrator) RunCycle(ctx context.Context) (models.CycleSummary, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.metrics.observeSkip()
		return models.CycleSummary{}, ErrCycleInProgress
	}
	defer o.running.Store(false)

	st := o.state()
	defer st.release()
	summary := models.CycleSummary{StartedAt: o.now().UTC()}
	start := time.Now()

	if st.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.opts.CycleTimeout)
		defer cancel()
	}

	targets, err := o.store.FindAll(ctx)
	if err != nil {
		o.metrics.observeFailure()
		return summary, fmt.Errorf("monitor: load targets: %w", err)
	}

	var checked, sent, failed atomic.Int64
	pool := newWorkerPool(st.opts.MaxConcurrency, len(targets), func(name string, err error) {
		failed.Add(1)
		slog.Error("monitor: target task failed", "target", name, "err", err)
	})
	pool.Start(ctx)
	for _, t := range targets {
		pool.Submit(job{
			name: t.URL,
			run: func(ctx context.Context) error {
				return o.processTarget(ctx, st, t, &checked, &sent)
			},
		})
	}
	pool.Wait()

	summary.TargetsChecked = int(checked.Load())
	summary.AlertsSent = int(sent.Load())
	summary.Errors = int(failed.Load())
	summary.Duration = time.Since(start)
	o.metrics.observeCycle(summary)

	slog.Info("monitor: cycle complete",
		"targets", len(targets),
		"checked", summary.TargetsChecked,
		"alerts", summary.AlertsSent,
		"errors", summary.Errors,
		"duration", summary.Duration)
	return summary, nil
}

// processTarget reconciles, persists and then notifies. Alerts go out only
// after the write succeeded; a failed write is retried implicitly next cycle
// because the stored flags still say the alert was never sent.
func (o *Orchestrator) processTarget(ctx context.Context, st cycleState, t models.Target, checked, sent *atomic.Int64) error {
	if st.limiter != nil {
		if err := st.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	out := o.reconciler.Reconcile(ctx, t, st.opts.TouchInterval)
	checked.Add(1)

	if out.Dirty {
		if err := o.store.UpdateByID(ctx, t.ID, out.Changes); err != nil {
			return fmt.Errorf("persist %s: %w", t.ID, err)
		}
	}

	if len(out.Alerts) == 0 || st.notifier == nil {
		return nil
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	for _, a := range out.Alerts {
		if st.notifier.Dispatch(dctx, a) {
			sent.Add(1)
		}
	}
	return nil
}
