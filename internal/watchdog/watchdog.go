// internal/watchdog/watchdog.go
package watchdog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/clock"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/store"
)

// Check evaluates one liveness predicate. A non-nil error is fatal.
type Check func(ctx context.Context) error

// ReasonStore persists the diagnostic read back on the next boot.
type ReasonStore interface {
	Save(key, value string) error
}

// Restarter replaces the running process. It only returns on failure.
type Restarter interface {
	Restart(ctx context.Context, reason string) error
}

// Task is one periodic check and the reason persisted when it fails.
type Task struct {
	Name     string
	Interval time.Duration
	Check    Check
	Reason   string
}

// Watchdog runs tasks whose failure ends in a restart. There is no retry
// and no backoff.
type Watchdog struct {
	store     ReasonStore
	restarter Restarter
	clk       clock.Clock
	log       *slog.Logger
}

// Option customizes a Watchdog.
type Option func(*Watchdog)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watchdog) { w.log = l } }

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(w *Watchdog) { w.clk = c } }

// New creates a watchdog.
func New(st ReasonStore, r Restarter, opts ...Option) (*Watchdog, error) {
	if r == nil {
		return nil, errors.New("watchdog: restarter required")
	}
	w := &Watchdog{
		store:     st,
		restarter: r,
		clk:       clock.Real{},
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	w.log = w.log.With("component", "watchdog")
	return w, nil
}

// Watch sleeps one interval, evaluates the check and repeats until it
// fails or ctx is done. On failure it persists the reason and restarts.
// The returned error is the restart failure, or nil on cancellation.
func (w *Watchdog) Watch(ctx context.Context, t Task) error {
	if t.Interval <= 0 || t.Check == nil {
		w.log.Info("watchdog disabled", "task", t.Name)
		<-ctx.Done()
		return nil
	}

	w.log.Info("watchdog started", "task", t.Name, "interval", t.Interval)
	dl := clock.NewDeadline(w.clk, t.Interval)
	for dl.Wait(ctx) {
		err := t.Check(ctx)
		if err == nil {
			w.log.Debug("watchdog check ok", "task", t.Name)
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		w.log.Error("watchdog check failed, restarting", "task", t.Name, "reason", t.Reason, "err", err)
		if w.store != nil {
			if serr := w.store.Save(store.KeyLastBootReason, t.Reason); serr != nil {
				w.log.Error("restart reason not stored", "err", serr)
			}
		}
		return w.restarter.Restart(ctx, t.Reason)
	}
	return nil
}
