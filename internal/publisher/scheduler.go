// internal/publisher/scheduler.go
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/clock"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
)

// Config is the minimal runtime config the scheduler needs.
type Config struct {
	Interval       time.Duration
	FullCycleEvery int // every Nth cycle publishes non-priority registers too
	QoS            byte
	Retain         bool
	Topics         Topics
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.log = l } }

// WithObserver attaches a publish observer.
func WithObserver(o Observer) Option { return func(s *Scheduler) { s.obs = o } }

// WithUpgradeFlag pauses publishing while the flag is set.
func WithUpgradeFlag(f UpgradeFlag) Option { return func(s *Scheduler) { s.upgrade = f } }

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(s *Scheduler) { s.clk = c } }

// Scheduler is the emission loop. It is the only component that clears
// dirty flags, and only after the broker accepted the value.
type Scheduler struct {
	cfg    Config
	broker Broker
	table  *registers.Table
	stats  *status.Stats

	// counter decides full vs priority-only cycles; owned by the loop goroutine
	counter int

	upgrade UpgradeFlag
	obs     Observer
	clk     clock.Clock
	log     *slog.Logger
}

// New creates a scheduler whose first cycle is a full cycle.
func New(cfg Config, broker Broker, table *registers.Table, stats *status.Stats, opts ...Option) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("publisher: interval must be > 0")
	}
	if cfg.FullCycleEvery < 1 {
		return nil, errors.New("publisher: full cycle factor must be >= 1")
	}
	if cfg.Topics.Root == "" {
		return nil, errors.New("publisher: root topic required")
	}
	if broker == nil {
		return nil, errors.New("publisher: broker required")
	}
	if table == nil || table.Size() == 0 {
		return nil, registers.ErrEmptyTable
	}
	if stats == nil {
		return nil, errors.New("publisher: stats required")
	}

	s := &Scheduler{
		cfg:     cfg,
		broker:  broker,
		table:   table,
		stats:   stats,
		counter: cfg.FullCycleEvery - 1,
		obs:     nopObserver{},
		clk:     clock.Real{},
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "publisher")
	return s, nil
}

// PublishOnce runs exactly one publish cycle.
//
// Registers are evaluated in cid order. A failing register does not stop the
// scan; it stays dirty and is retried in a later eligible cycle. All values of
// one cycle carry the same timestamp.
func (s *Scheduler) PublishOnce(ctx context.Context) CycleResult {
	start := s.clk.Now()
	ts := status.ShortTS(start, status.NoPublish)

	s.counter++
	full := s.counter >= s.cfg.FullCycleEvery
	res := CycleResult{At: start, Full: full}

	for i := 0; i < s.table.Size(); i++ {
		d := s.table.Descriptor(i)
		if !full && !d.HasPrio {
			continue
		}
		r := s.table.Get(i)
		if !r.Dirty {
			continue
		}

		value := registers.Format(r.Value, d.Digits)
		payload := MeasurementPayload(value, d.Unit, d.Name, ts)

		if err := s.broker.Publish(ctx, s.cfg.Topics.Measure(d.Name), payload, s.cfg.QoS, s.cfg.Retain); err != nil {
			s.stats.Published(false)
			s.obs.Published(false)
			res.Failed = append(res.Failed, i)
			s.log.Error("publish failed", "cid", d.CID, "name", d.Name, "err", err)
			continue
		}

		if !s.table.ClearDirtyIf(i, r.Value) {
			s.log.Debug("newer value arrived during publish, kept queued", "name", d.Name)
		}
		s.stats.Published(true)
		s.obs.Published(true)
		res.Published = append(res.Published, i)
		s.log.Debug("published", "name", d.Name, "value", value, "unit", d.Unit, "ts", ts)
	}

	if full {
		s.counter = 0
	}

	res.Took = s.clk.Now().Sub(start)
	s.stats.PublishCycleDone(start, len(res.Failed) > 0, res.Took)
	s.obs.PublishCycle(full, res.Took)

	if len(res.Failed) > 0 {
		s.log.Warn("publish cycle had failures",
			"full", full, "published", len(res.Published), "failed", len(res.Failed))
	} else {
		s.log.Debug("publish cycle ok", "full", full, "published", len(res.Published), "took", res.Took)
	}
	return res
}

// Run waits one interval, so the first cycle sees fresh readings, then
// publishes on a fixed deadline grid until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("publisher started",
		"interval", s.cfg.Interval, "full_cycle_every", s.cfg.FullCycleEvery, "root", s.cfg.Topics.Root)
	defer s.log.Info("publisher stopped")

	dl := clock.NewDeadline(s.clk, s.cfg.Interval)
	for dl.Wait(ctx) {
		if s.upgrade != nil && s.upgrade.InProgress() {
			s.log.Debug("upgrade in progress, publish skipped")
			continue
		}
		s.PublishOnce(ctx)
	}
}
