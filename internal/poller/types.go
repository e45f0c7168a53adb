// internal/poller/types.go
package poller

import (
	"context"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
)

// Client abstracts the bus transport.
// One call reads one descriptor; the transport owns the response timeout.
type Client interface {
	ReadRegister(ctx context.Context, d registers.Descriptor) (float64, error)
}

// UpgradeFlag reports a maintenance window during which the bus is left alone.
type UpgradeFlag interface {
	InProgress() bool
}

// Observer receives cycle outcomes, e.g. for metrics.
type Observer interface {
	ReadCycle(ok bool, took time.Duration)
	RegisterValue(d registers.Descriptor, v float64)
}

// PollResult describes one read cycle.
type PollResult struct {
	At   time.Time
	Took time.Duration

	// Read is the number of registers applied before the cycle ended.
	Read int

	// FailedCID is the register that aborted the cycle, -1 on success.
	FailedCID int

	// Code is the fault code of Err; 0 means success.
	Code uint16
	Err  error
}

type nopObserver struct{}

func (nopObserver) ReadCycle(bool, time.Duration)                {}
func (nopObserver) RegisterValue(registers.Descriptor, float64) {}
