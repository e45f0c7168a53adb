// internal/poller/runner.go
package poller

import (
	"context"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/clock"
)

// Run reads on a fixed deadline grid until ctx is done.
// No overlap. No retries. Errors stay in the stats.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("poller started", "interval", p.cfg.Interval, "registers", p.table.Size())
	defer p.log.Info("poller stopped")

	dl := clock.NewDeadline(p.clk, p.cfg.Interval)
	for {
		if p.upgrade != nil && p.upgrade.InProgress() {
			p.log.Debug("upgrade in progress, read skipped")
		} else {
			p.PollOnce(ctx)
		}

		if !dl.Wait(ctx) {
			return
		}
	}
}
