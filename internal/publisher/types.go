// internal/publisher/types.go
package publisher

import (
	"context"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
)

// Broker is the exact contract the publisher uses.
// Implementations must allow concurrent Publish calls and bound each call
// with their own timeout.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error
}

// Deps is the shared state the scheduler reads and updates.
type Deps struct {
	Table *registers.Table
	Stats *status.Stats
}

// Observer receives publish outcomes, e.g. for metrics.
type Observer interface {
	Published(ok bool)
	PublishCycle(full bool, took time.Duration)
}

// UpgradeFlag reports a maintenance window during which nothing is published.
type UpgradeFlag interface {
	InProgress() bool
}

// Sub-topics below the root topic.
const (
	SubMeasure = "MEA"
	SubInfo    = "ESP"
	SubParam   = "PRM"
	SubText    = "TXT"
)

// Topics builds "<root>/<sub>/<leaf>" topic names.
type Topics struct {
	Root string
}

func (t Topics) join(sub, leaf string) string { return t.Root + "/" + sub + "/" + leaf }

// Measure is the topic of one measurement.
func (t Topics) Measure(name string) string { return t.join(SubMeasure, name) }

// Info is the topic of one plain-text startup info.
func (t Topics) Info(key string) string { return t.join(SubInfo, key) }

// Param is the topic of one static meter parameter.
func (t Topics) Param(key string) string { return t.join(SubParam, key) }

// Text is the topic of one status text.
func (t Topics) Text(key string) string { return t.join(SubText, key) }

// LastWill is the topic the broker publishes on abnormal disconnect.
func (t Topics) LastWill() string { return t.Root + "/LW" }

// CycleResult describes one publish cycle.
type CycleResult struct {
	At        time.Time
	Took      time.Duration
	Full      bool
	Published []int // cids emitted successfully, ascending
	Failed    []int // cids whose publish failed, ascending
}

type nopObserver struct{}

func (nopObserver) Published(bool)                   {}
func (nopObserver) PublishCycle(bool, time.Duration) {}
