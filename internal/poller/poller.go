// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/clock"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
}

// Option customizes a Poller.
type Option func(*Poller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(p *Poller) { p.log = l } }

// WithObserver attaches a cycle observer.
func WithObserver(o Observer) Option { return func(p *Poller) { p.obs = o } }

// WithUpgradeFlag pauses reading while the flag is set.
func WithUpgradeFlag(f UpgradeFlag) Option { return func(p *Poller) { p.upgrade = f } }

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(p *Poller) { p.clk = c } }

// Poller is the acquisition loop. It is the only writer of register values
// and the only component that sets dirty flags.
type Poller struct {
	cfg    Config
	client Client
	table  *registers.Table
	stats  *status.Stats

	upgrade UpgradeFlag
	obs     Observer
	clk     clock.Clock
	log     *slog.Logger
}

// New creates a poller with immutable config.
func New(cfg Config, client Client, table *registers.Table, stats *status.Stats, opts ...Option) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if table == nil || table.Size() == 0 {
		return nil, registers.ErrEmptyTable
	}
	if stats == nil {
		return nil, errors.New("poller: stats required")
	}

	p := &Poller{
		cfg:    cfg,
		client: client,
		table:  table,
		stats:  stats,
		obs:    nopObserver{},
		clk:    clock.Real{},
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With("component", "poller")
	return p, nil
}

// PollOnce performs exactly one read cycle.
// Registers are read in cid order; the first failure aborts the cycle and
// leaves the remaining registers untouched.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	start := p.clk.Now()
	res := PollResult{At: start, FailedCID: -1}

	for i := 0; i < p.table.Size(); i++ {
		d := p.table.Descriptor(i)

		v, err := p.client.ReadRegister(ctx, d)
		if err != nil {
			res.FailedCID = i
			res.Code = ErrorCode(err)
			res.Err = fmt.Errorf("poller: read %s (cid=%d): %w", d.Name, d.CID, err)
			break
		}

		dirty := p.table.Apply(i, v)
		p.obs.RegisterValue(d, v)
		p.log.Debug("register read",
			"cid", d.CID, "name", d.Name, "value", registers.Format(v, d.Digits), "unit", d.Unit, "dirty", dirty)
		res.Read++
	}

	res.Took = p.clk.Now().Sub(start)

	if res.Err == nil {
		p.stats.ReadCycleOK(start, res.Took)
		p.log.Debug("read cycle ok", "registers", res.Read, "took", res.Took)
	} else if p.stats.ReadCycleFailed(p.clk.Now(), res.Code, res.Err.Error(), res.Took) {
		p.log.Error("read cycle failed", "code", res.Code, "read", res.Read, "err", res.Err)
	} else {
		p.log.Debug("read cycle failed, same fault", "code", res.Code, "err", res.Err)
	}
	p.obs.ReadCycle(res.Err == nil, res.Took)

	return res
}
