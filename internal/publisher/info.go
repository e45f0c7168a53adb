// internal/publisher/info.go
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
)

// Startup is the identity published once after the broker connects.
type Startup struct {
	BootTime   time.Time
	Project    string
	Version    string
	BuildTime  string
	Chip       string
	Hostname   string
	Address    string
	BootReason string
	DeviceName string
}

// PublishStartup sends the one-shot infos. Every message is attempted;
// failures are collected and returned together.
func PublishStartup(ctx context.Context, b Broker, t Topics, qos byte, retain bool, s Startup) error {
	var errs []string

	send := func(topic string, payload []byte) {
		if err := b.Publish(ctx, topic, payload, qos, retain); err != nil {
			errs = append(errs, fmt.Sprintf("topic=%s err=%v", topic, err))
		}
	}

	boot := status.ShortTS(s.BootTime, status.NoRead)

	// plain text infos
	for _, kv := range []struct{ key, value string }{
		{"Last-Boot-Time", boot},
		{"Project-Name", s.Project},
		{"Firmware-Version", s.Version},
		{"Build-Time", s.BuildTime},
		{"Chip-Name", s.Chip},
		{"Hostname", s.Hostname},
		{"IP-Address", s.Address},
		{"Last-Boot-Reason", s.BootReason},
	} {
		send(t.Info(kv.key), []byte(kv.value))
	}

	send(t.Param("Powermeter-Device"), []byte(s.DeviceName))

	// one-shot measures, so dashboards on MEA/# see restarts
	send(t.Measure("Last-Boot-Time"), OneShotPayload(boot, "Last-Boot-Time"))
	send(t.Measure("Last-Boot-Reason"), OneShotPayload(s.BootReason, "Last-Boot-Reason"))

	if len(errs) > 0 {
		return errors.New("publisher: startup infos: " + strings.Join(errs, " | "))
	}
	return nil
}
