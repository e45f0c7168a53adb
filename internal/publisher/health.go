// internal/publisher/health.go
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/clock"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
)

// HealthMetricName is the measurement leaf of the free-memory gauge.
const HealthMetricName = "Free-Memory"

// HealthConfig configures the free-memory emission.
type HealthConfig struct {
	Interval time.Duration
	QoS      byte
	Retain   bool
	Topics   Topics
}

// Health publishes a single scalar gauge on its own long interval.
// It shares the broker with the scheduler but not the register table.
type Health struct {
	cfg     HealthConfig
	broker  Broker
	memory  func() uint64
	gauge   func(uint64)
	started time.Time
	clk     clock.Clock
	log     *slog.Logger
}

// HealthOption customizes Health.
type HealthOption func(*Health)

// WithMemorySource replaces status.FreeMemory.
func WithMemorySource(f func() uint64) HealthOption { return func(h *Health) { h.memory = f } }

// WithMemoryGauge receives every sampled value.
func WithMemoryGauge(f func(uint64)) HealthOption { return func(h *Health) { h.gauge = f } }

// WithStartTime sets the uptime origin. Defaults to construction time.
func WithStartTime(t time.Time) HealthOption { return func(h *Health) { h.started = t } }

// WithHealthLogger sets the logger.
func WithHealthLogger(l *slog.Logger) HealthOption { return func(h *Health) { h.log = l } }

// WithHealthClock replaces the wall clock.
func WithHealthClock(c clock.Clock) HealthOption { return func(h *Health) { h.clk = c } }

// NewHealth creates the free-memory publisher.
func NewHealth(cfg HealthConfig, broker Broker, opts ...HealthOption) (*Health, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("publisher: health interval must be > 0")
	}
	if broker == nil {
		return nil, errors.New("publisher: broker required")
	}
	h := &Health{
		cfg:    cfg,
		broker: broker,
		memory: status.FreeMemory,
		gauge:  func(uint64) {},
		clk:    clock.Real{},
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	if h.started.IsZero() {
		h.started = h.clk.Now()
	}
	h.log = h.log.With("component", "health")
	return h, nil
}

// PublishOnce samples and publishes the gauge once.
func (h *Health) PublishOnce(ctx context.Context) error {
	free := h.memory()
	h.gauge(free)

	payload := HealthPayload(
		strconv.FormatUint(free, 10),
		"byte",
		HealthMetricName,
		status.Uptime(h.clk.Now().Sub(h.started)),
	)
	if err := h.broker.Publish(ctx, h.cfg.Topics.Measure(HealthMetricName), payload, h.cfg.QoS, h.cfg.Retain); err != nil {
		return fmt.Errorf("publisher: health: %w", err)
	}
	return nil
}

// Run publishes immediately, then once per interval until ctx is done.
func (h *Health) Run(ctx context.Context) {
	dl := clock.NewDeadline(h.clk, h.cfg.Interval)
	for {
		if err := h.PublishOnce(ctx); err != nil {
			h.log.Error("free memory publish failed", "err", err)
		} else {
			h.log.Debug("free memory published")
		}
		if !dl.Wait(ctx) {
			return
		}
	}
}
