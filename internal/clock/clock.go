// internal/clock/clock.go
package clock

import (
	"context"
	"time"
)

// Clock allows deterministic timestamps in tests.
type Clock interface {
	Now() time.Time
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Deadline paces a periodic loop on a fixed grid anchored at creation:
// each Wait targets previous deadline + period, so cycle duration does not
// accumulate as drift. An overrun starts the next cycle immediately and
// re-anchors the grid at that moment.
type Deadline struct {
	clk    Clock
	period time.Duration
	next   time.Time
}

// NewDeadline anchors the grid at clk.Now().
func NewDeadline(clk Clock, period time.Duration) *Deadline {
	return &Deadline{clk: clk, period: period, next: clk.Now()}
}

// Wait sleeps until the next deadline.
// It returns false when ctx is done first.
func (d *Deadline) Wait(ctx context.Context) bool {
	d.next = d.next.Add(d.period)

	wait := d.next.Sub(d.clk.Now())
	if wait <= 0 {
		d.next = d.clk.Now()
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	t := time.NewTimer(wait)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
