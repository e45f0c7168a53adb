// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	b := &cfg.Bridge

	// device_name sanity (ASCII only)
	for i := 0; i < len(b.DeviceName); i++ {
		if b.DeviceName[i] > 0x7F {
			return errors.New("device_name must contain ASCII characters only")
		}
	}

	if err := validateSource(b.Source); err != nil {
		return err
	}
	if b.Poll.IntervalMs <= 0 {
		return errors.New("poll.interval_ms must be > 0")
	}
	if err := validateRegisters(b.Registers); err != nil {
		return err
	}
	if err := validateBroker(b.Broker); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// PUBLISH
	// ------------------------------------------------------------

	if b.Publish.IntervalMs <= 0 {
		return errors.New("publish.interval_ms must be > 0")
	}
	if b.Publish.FullCycleEvery < 1 {
		return errors.New("publish.full_cycle_every must be >= 1")
	}
	if b.Publish.HealthIntervalMs <= 0 {
		return errors.New("publish.health_interval_ms must be > 0")
	}

	// ------------------------------------------------------------
	// WEB
	// ------------------------------------------------------------

	if b.Web.Listen == "" {
		return errors.New("web.listen is required")
	}
	if b.Web.Workers < 1 {
		return errors.New("web.workers must be >= 1")
	}
	if b.Web.QueueDepth < 0 {
		return errors.New("web.queue_depth must be >= 0")
	}
	if b.Web.EnqueueWaitMs < 0 || b.Web.ReadTimeoutS < 0 || b.Web.WriteTimeoutS < 0 {
		return errors.New("web: timeouts must be >= 0")
	}

	// ------------------------------------------------------------
	// WATCHDOG / STORE / LOG
	// ------------------------------------------------------------

	if b.Watchdog.WebIntervalS <= 0 {
		return errors.New("watchdog.web_interval_s must be > 0")
	}
	if b.Watchdog.LinkProbe != "" && b.Watchdog.LinkIntervalS <= 0 {
		return errors.New("watchdog.link_interval_s must be > 0 when link_probe is set")
	}
	if b.Watchdog.RestartCountdownS < 0 {
		return errors.New("watchdog.restart_countdown_s must be >= 0")
	}
	if b.Store.Path == "" {
		return errors.New("store.path is required")
	}
	switch strings.ToLower(b.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want debug|info|warn|error", b.Log.Level)
	}
	switch strings.ToLower(b.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text|json", b.Log.Format)
	}
	if b.Log.StreamQueue < 1 {
		return errors.New("log.stream_queue must be >= 1")
	}

	return nil
}

func validateSource(s SourceConfig) error {
	if s.Endpoint == "" {
		return errors.New("source.endpoint is required")
	}
	switch strings.ToLower(s.Mode) {
	case "rtu":
		if s.BaudRate <= 0 {
			return errors.New("source.baud_rate must be > 0")
		}
		if s.DataBits < 5 || s.DataBits > 8 {
			return fmt.Errorf("source.data_bits %d: want 5..8", s.DataBits)
		}
		if s.StopBits != 1 && s.StopBits != 2 {
			return fmt.Errorf("source.stop_bits %d: want 1 or 2", s.StopBits)
		}
		switch s.Parity {
		case "N", "E", "O":
		default:
			return fmt.Errorf("source.parity %q: want N|E|O", s.Parity)
		}
	case "tcp":
	default:
		return fmt.Errorf("source.mode %q: want rtu|tcp", s.Mode)
	}
	if s.TimeoutMs <= 0 {
		return errors.New("source.timeout_ms must be > 0")
	}
	switch strings.ToLower(s.WordOrder) {
	case "abcd", "cdab":
	default:
		return fmt.Errorf("source.word_order %q: want abcd|cdab", s.WordOrder)
	}
	return nil
}

func validateRegisters(regs []RegisterConfig) error {
	type span struct {
		start uint16
		end   uint16
		name  string
	}

	seen := make(map[string]struct{}, len(regs))
	var spans []span

	for i, r := range regs {
		if r.Name == "" {
			return fmt.Errorf("registers[%d]: name is required", i)
		}
		if strings.ContainsAny(r.Name, "/#+") {
			return fmt.Errorf("register %q: name must not contain topic wildcards or separators", r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("register %q: duplicate name", r.Name)
		}
		seen[r.Name] = struct{}{}

		if r.Digits < 0 || r.Digits > registers.MaxDigits {
			return fmt.Errorf("register %q: digits %d out of range 0..%d", r.Name, r.Digits, registers.MaxDigits)
		}
		if r.Min > r.Max {
			return fmt.Errorf("register %q: min %v > max %v", r.Name, r.Min, r.Max)
		}
		if r.Address == 0xFFFF {
			return fmt.Errorf("register %q: address 0xFFFF leaves no room for the second word", r.Name)
		}

		// each float occupies two input registers (inclusive span)
		start := r.Address
		end := start + 1
		for _, s := range spans {
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"register overlap: %q range=%d-%d overlaps with %q range=%d-%d",
					r.Name, start, end, s.name, s.start, s.end,
				)
			}
		}
		spans = append(spans, span{start: start, end: end, name: r.Name})
	}
	return nil
}

func validateBroker(b BrokerConfig) error {
	switch strings.ToLower(b.Kind) {
	case "mqtt", "nats":
	default:
		return fmt.Errorf("broker.kind %q: want mqtt|nats", b.Kind)
	}
	if b.URL == "" {
		return errors.New("broker.url is required")
	}
	if strings.TrimRight(b.RootTopic, "/") == "" {
		return fmt.Errorf("broker.root_topic %q: must name a topic", b.RootTopic)
	}
	if b.QoS > 2 {
		return fmt.Errorf("broker.qos %d: want 0..2", b.QoS)
	}
	if b.ConnectTimeoutMs <= 0 || b.PublishTimeoutMs <= 0 {
		return errors.New("broker: timeouts must be > 0")
	}
	if b.ConnectAttempts < 1 {
		return errors.New("broker.connect_attempts must be >= 1")
	}
	if b.KeepAliveS < 0 {
		return errors.New("broker.keepalive_s must be >= 0")
	}
	return nil
}
