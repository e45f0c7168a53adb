// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/modbus-mqtt-bridge/internal/config"
	pmodbus "github.com/tamzrod/modbus-mqtt-bridge/internal/poller/modbus"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
)

// BuildTable turns the configured register list into a table.
// An empty list selects the built-in SDM630 catalogue.
func BuildTable(regs []cfg.RegisterConfig) (*registers.Table, error) {
	if len(regs) == 0 {
		return registers.NewTable(registers.SDM630())
	}

	descs := make([]registers.Descriptor, 0, len(regs))
	for i, r := range regs {
		descs = append(descs, registers.Descriptor{
			CID:     i,
			Name:    r.Name,
			Unit:    r.Unit,
			Address: r.Address,
			Digits:  r.Digits,
			HasPrio: r.Prio,
			Min:     r.Min,
			Max:     r.Max,
			Initial: r.Initial,
		})
	}
	return registers.NewTable(descs)
}

// Build constructs a Poller and opens the bus (fail fast at startup).
// The returned closer releases the serial port or TCP connection.
func Build(b cfg.BridgeConfig, table *registers.Table, stats *status.Stats, opts ...Option) (*Poller, func() error, error) {
	client, err := pmodbus.New(pmodbus.Config{
		Mode:      b.Source.Mode,
		Endpoint:  b.Source.Endpoint,
		UnitID:    b.Source.UnitID,
		Timeout:   time.Duration(b.Source.TimeoutMs) * time.Millisecond,
		BaudRate:  b.Source.BaudRate,
		DataBits:  b.Source.DataBits,
		Parity:    b.Source.Parity,
		StopBits:  b.Source.StopBits,
		WordOrder: b.Source.WordOrder,
	})
	if err != nil {
		return nil, nil, err
	}

	p, err := New(
		Config{Interval: time.Duration(b.Poll.IntervalMs) * time.Millisecond},
		client,
		table,
		stats,
		opts...,
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return p, client.Close, nil
}
