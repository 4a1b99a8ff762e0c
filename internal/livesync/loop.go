// Package livesync keeps a session view's bookmark state fresh.
//
// Every view state is reconciled the same way: a full re-fetch replaces the
// state wholesale. Loop is that primitive; Controller (bookmark list, polling
// plus change notifications) and Counter (bookmark count, polling only) are
// its two instantiations.
package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// DefaultInterval is the polling period, and so the worst-case staleness of a
// view whose change channel is down.
const DefaultInterval = 2 * time.Second

// FetchFunc reads the latest truth from storage.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ApplyFunc replaces the view state with a fetched value.
// It runs with the loop lock held and must not call Stop.
type ApplyFunc[T any] func(T)

// Loop runs fetch then apply every interval and on demand.
//
// At most one fetch is in flight. A Trigger that arrives during a fetch
// marks one follow-up refresh; further triggers in the same flight coalesce
// into it. Results that arrive after Stop are discarded.
type Loop[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	apply    ApplyFunc[T]
	logger   logger.Logger

	trigger chan struct{} // capacity 1: the pending refresh flag
	stopCh  chan struct{}

	runMu sync.Mutex // held for the whole fetch+apply cycle

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewLoop creates a stopped loop. A non-positive interval uses DefaultInterval.
func NewLoop[T any](name string, interval time.Duration, fetch FetchFunc[T], apply ApplyFunc[T], log logger.Logger) *Loop[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		apply:    apply,
		logger:   log,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start refreshes immediately, then every interval, until Stop is called or
// ctx is done. Starting twice, or after Stop, does nothing.
func (l *Loop[T]) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	l.Trigger()

	ticker := time.NewTicker(l.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.run(ctx)
			case <-l.trigger:
				l.run(ctx)
				// Polling restarts from the last refresh
				ticker.Reset(l.interval)
			case <-l.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Trigger asks for a refresh without blocking. If a refresh is already
// pending the call is a no-op.
func (l *Loop[T]) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Refresh runs one fetch+apply cycle synchronously, waiting for any cycle in
// flight to finish first. A failed fetch leaves the state untouched and is
// returned; the loop itself only logs it and retries on the next tick.
func (l *Loop[T]) Refresh(ctx context.Context) error {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	if l.Stopped() {
		return nil
	}

	v, err := l.fetch(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		l.logger.Debug("discarding refresh result after stop",
			logger.String("loop", l.name))
		return nil
	}
	l.apply(v)
	return nil
}

// Stop cancels future refreshes. A fetch in flight is not interrupted, but
// its result will not be applied. Stop is idempotent and safe before Start.
func (l *Loop[T]) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.stopCh)
}

// Stopped reports whether Stop was called.
func (l *Loop[T]) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop[T]) run(ctx context.Context) {
	if err := l.Refresh(ctx); err != nil {
		l.logger.Warn("refresh failed, retrying on next tick",
			logger.String("loop", l.name),
			logger.Duration("interval", l.interval),
			logger.Error(err))
	}
}
