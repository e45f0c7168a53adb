// internal/publisher/nats/client.go
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"
)

// Config is minimal transport config.
type Config struct {
	URL            string // nats://host:4222
	Name           string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// conn is the slice of *nats.Conn this adapter uses.
type conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	IsConnected() bool
	Close()
}

// Client implements publisher.Broker over core NATS.
// QoS and retain have no NATS equivalent and are ignored; a publish counts
// as successful once the server acknowledged the flush.
type Client struct {
	cfg Config
	nc  conn
	log *slog.Logger
}

// Connect dials the server. Reconnects are unlimited afterwards.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats: url required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	l := log.With("component", "nats", "broker", cfg.URL)

	nc, err := natsgo.Connect(cfg.URL,
		natsgo.Name(cfg.Name),
		natsgo.Timeout(cfg.ConnectTimeout),
		natsgo.MaxReconnects(-1),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			l.Warn("disconnected", "err", err)
		}),
		natsgo.ReconnectHandler(func(_ *natsgo.Conn) {
			l.Info("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", cfg.URL, err)
	}
	l.Info("connected", "name", cfg.Name)
	return &Client{cfg: cfg, nc: nc, log: l}, nil
}

// Subject converts a slash separated topic into a dotted subject.
func Subject(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// Publish sends one message and waits for the server round trip.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, _ byte, _ bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.nc.IsConnected() {
		return errors.New("nats: not connected")
	}
	subj := Subject(topic)
	if err := c.nc.Publish(subj, payload); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subj, err)
	}
	if err := c.nc.FlushTimeout(c.cfg.PublishTimeout); err != nil {
		return fmt.Errorf("nats: flush %s: %w", subj, err)
	}
	return nil
}

// IsConnected reports the connection state.
func (c *Client) IsConnected() bool { return c.nc.IsConnected() }

// Close closes the connection.
func (c *Client) Close() error {
	c.nc.Close()
	return nil
}
