// internal/poller/modbus/client.go
package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
)

// Word orders of a float32 spread over two registers.
const (
	WordOrderABCD = "abcd" // high word first (Eastron)
	WordOrderCDAB = "cdab" // low word first
)

// Config is minimal transport config.
type Config struct {
	Mode     string // "rtu" or "tcp"
	Endpoint string // serial device or host:port
	UnitID   uint8
	Timeout  time.Duration

	// Serial line, RTU only.
	BaudRate int
	DataBits int
	Parity   string
	StopBits int

	WordOrder string
}

// inputReader is the slice of the goburrow client this adapter uses.
type inputReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// Client implements poller.Client on top of goburrow/modbus.
// Every descriptor is an IEEE-754 float32 held in two input registers (FC 4).
type Client struct {
	mb     inputReader
	closer io.Closer
	swap   bool
}

// New creates a connected Modbus RTU or TCP client.
// The handler timeout is the bus response timeout.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}

	swap, err := parseWordOrder(cfg.WordOrder)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Mode) {
	case "", "rtu":
		h := modbus.NewRTUClientHandler(cfg.Endpoint)
		h.BaudRate = cfg.BaudRate
		h.DataBits = cfg.DataBits
		h.Parity = cfg.Parity
		h.StopBits = cfg.StopBits
		h.SlaveId = cfg.UnitID
		if cfg.Timeout > 0 {
			h.Timeout = cfg.Timeout
		}
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("modbus client: open %s: %w", cfg.Endpoint, err)
		}
		return &Client{mb: modbus.NewClient(h), closer: h, swap: swap}, nil

	case "tcp":
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.SlaveId = cfg.UnitID
		if cfg.Timeout > 0 {
			h.Timeout = cfg.Timeout
		}
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("modbus client: dial %s: %w", cfg.Endpoint, err)
		}
		return &Client{mb: modbus.NewClient(h), closer: h, swap: swap}, nil

	default:
		return nil, fmt.Errorf("modbus client: unsupported mode %q", cfg.Mode)
	}
}

// Close releases the serial port or TCP connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// ReadRegister reads one float32 measurement.
// The context is only checked before the request; the handler timeout bounds the call.
func (c *Client) ReadRegister(ctx context.Context, d registers.Descriptor) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	raw, err := c.mb.ReadInputRegisters(d.Address, 2)
	if err != nil {
		var me *modbus.ModbusError
		if errors.As(err, &me) {
			return 0, &ExceptionError{Function: me.FunctionCode, Exception: me.ExceptionCode}
		}
		return 0, err
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("modbus: short float payload at 0x%04X: %d bytes", d.Address, len(raw))
	}

	return float64(DecodeFloat32(raw, c.swap)), nil
}

// ExceptionError is a Modbus exception response from the meter.
type ExceptionError struct {
	Function  byte
	Exception byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Exception)
}

// Code exposes the exception code for fault classification.
func (e *ExceptionError) Code() uint16 { return uint16(e.Exception) }

// DecodeFloat32 decodes four big-endian bytes. With swap the two 16-bit
// words are exchanged first (CDAB).
func DecodeFloat32(raw []byte, swap bool) float32 {
	hi := binary.BigEndian.Uint16(raw[0:2])
	lo := binary.BigEndian.Uint16(raw[2:4])
	if swap {
		hi, lo = lo, hi
	}
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo))
}

func parseWordOrder(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", WordOrderABCD:
		return false, nil
	case WordOrderCDAB:
		return true, nil
	default:
		return false, fmt.Errorf("modbus client: unknown word order %q", s)
	}
}
