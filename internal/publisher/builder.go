// internal/publisher/builder.go
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/tamzrod/modbus-mqtt-bridge/internal/config"
	pmqtt "github.com/tamzrod/modbus-mqtt-bridge/internal/publisher/mqtt"
	pnats "github.com/tamzrod/modbus-mqtt-bridge/internal/publisher/nats"
)

// BuildBroker creates and connects the configured broker transport.
// Connection failure is returned so startup can abort.
func BuildBroker(ctx context.Context, b cfg.BrokerConfig, startedAt string, log *slog.Logger) (Broker, func() error, error) {
	connectTimeout := time.Duration(b.ConnectTimeoutMs) * time.Millisecond
	publishTimeout := time.Duration(b.PublishTimeoutMs) * time.Millisecond

	switch b.Kind {
	case "mqtt":
		c, err := pmqtt.New(pmqtt.Config{
			URL:             b.URL,
			ClientID:        b.ClientID,
			Root:            b.RootTopic,
			KeepAlive:       time.Duration(b.KeepAliveS) * time.Second,
			ConnectTimeout:  connectTimeout,
			PublishTimeout:  publishTimeout,
			ConnectAttempts: b.ConnectAttempts,
			StartedAt:       startedAt,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	case "nats":
		c, err := pnats.Connect(ctx, pnats.Config{
			URL:            b.URL,
			Name:           b.ClientID,
			ConnectTimeout: connectTimeout,
			PublishTimeout: publishTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	default:
		return nil, nil, fmt.Errorf("publisher: unsupported broker kind %q", b.Kind)
	}
}

// BuildScheduler wires the scheduler from config.
func BuildScheduler(b cfg.BridgeConfig, broker Broker, deps Deps, opts ...Option) (*Scheduler, error) {
	return New(
		Config{
			Interval:       time.Duration(b.Publish.IntervalMs) * time.Millisecond,
			FullCycleEvery: b.Publish.FullCycleEvery,
			QoS:            b.Broker.QoS,
			Retain:         b.Broker.Retain,
			Topics:         Topics{Root: b.Broker.RootTopic},
		},
		broker,
		deps.Table,
		deps.Stats,
		opts...,
	)
}

// BuildHealth wires the free-memory publisher from config.
func BuildHealth(b cfg.BridgeConfig, broker Broker, opts ...HealthOption) (*Health, error) {
	return NewHealth(
		HealthConfig{
			Interval: time.Duration(b.Publish.HealthIntervalMs) * time.Millisecond,
			QoS:      b.Broker.QoS,
			Retain:   b.Broker.Retain,
			Topics:   Topics{Root: b.Broker.RootTopic},
		},
		broker,
		opts...,
	)
}
