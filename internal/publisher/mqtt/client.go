// internal/publisher/mqtt/client.go
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// LastWillPayload is published by the broker when the bridge drops off.
const LastWillPayload = `{"lastWill":"Lost connection: Try to restart the bridge"}`

// Config is minimal transport config.
type Config struct {
	URL      string // tcp://host:1883
	ClientID string
	Root     string // root topic; last will and status live below it

	KeepAlive       time.Duration
	ConnectTimeout  time.Duration
	PublishTimeout  time.Duration
	ConnectAttempts int

	// StartedAt stamps the on-connect status message.
	StartedAt string
}

// pahoClient is the slice of the paho client this adapter uses.
type pahoClient interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Client implements publisher.Broker over MQTT.
// paho serializes writes internally, so Publish is safe for concurrent use.
type Client struct {
	cfg Config
	c   pahoClient
	log *slog.Logger

	// newBackOff is replaced in tests
	newBackOff func() backoff.BackOff
}

// New builds an unconnected client with last will, keep-alive and auto-reconnect.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("mqtt: broker url required")
	}
	if cfg.Root == "" {
		return nil, errors.New("mqtt: root topic required")
	}
	if log == nil {
		log = slog.Default()
	}

	c := &Client{cfg: cfg, log: log.With("component", "mqtt", "broker", cfg.URL)}

	opts := paho.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetWill(cfg.Root+"/LW", LastWillPayload, 1, true).
		SetKeepAlive(cfg.KeepAlive).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warn("connection lost", "err", err)
		})

	c.c = paho.NewClient(opts)
	c.newBackOff = c.defaultBackOff
	return c, nil
}

func (c *Client) defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// Connect opens the session, retrying with exponential backoff up to
// ConnectAttempts times. The last error is returned.
func (c *Client) Connect(ctx context.Context) error {
	attempts := c.cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	op := func() error {
		tok := c.c.Connect()
		if !tok.WaitTimeout(c.cfg.ConnectTimeout) {
			return fmt.Errorf("mqtt: connect timeout after %s", c.cfg.ConnectTimeout)
		}
		return tok.Error()
	}
	notify := func(err error, next time.Duration) {
		c.log.Warn("connect failed, retrying", "err", err, "in", next)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(attempts-1)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("mqtt: connect %s: %w", c.cfg.URL, err)
	}
	c.log.Info("connected", "client_id", c.cfg.ClientID)
	return nil
}

// Publish sends one message and waits for the broker flow to complete,
// bounded by PublishTimeout and ctx.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	if !c.c.IsConnected() {
		return errors.New("mqtt: not connected")
	}

	tok := c.c.Publish(topic, qos, retain, payload)

	timer := time.NewTimer(c.cfg.PublishTimeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
		return tok.Error()
	case <-timer.C:
		return fmt.Errorf("mqtt: publish %s: timeout after %s", topic, c.cfg.PublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsConnected reports the session state.
func (c *Client) IsConnected() bool { return c.c.IsConnected() }

// Close disconnects, giving in-flight work 250ms.
func (c *Client) Close() error {
	c.c.Disconnect(250)
	return nil
}

type connectStatus struct {
	Connection string `json:"Connection"`
	Comment    string `json:"comment"`
	LastUpdate string `json:"lastUpdate"`
}

// onConnect runs on every (re)connect and announces the session.
func (c *Client) onConnect(pc paho.Client) {
	payload, _ := json.Marshal(connectStatus{
		Connection: "Successfully connected to broker.",
		Comment:    "Status",
		LastUpdate: c.cfg.StartedAt,
	})
	tok := pc.Publish(c.cfg.Root+"/TXT/Status", 0, false, payload)
	go func() {
		if tok.WaitTimeout(c.cfg.PublishTimeout) && tok.Error() != nil {
			c.log.Warn("status message failed", "err", tok.Error())
		}
	}()
}
