// internal/link/monitor.go
package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Interfaces lists the host's network interfaces with their addresses.
type Interfaces func() ([]Interface, error)

// Interface is the part of net.Interface the monitor looks at.
type Interface struct {
	Name  string
	Up    bool
	Loop  bool
	Addrs []net.Addr
}

// Dialer opens the probe connection.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Monitor answers "is the network link usable".
type Monitor struct {
	probe   string
	timeout time.Duration
	ifaces  Interfaces
	dialer  Dialer
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithInterfaces replaces the host interface source.
func WithInterfaces(f Interfaces) Option { return func(m *Monitor) { m.ifaces = f } }

// WithDialer replaces the probe dialer.
func WithDialer(d Dialer) Option { return func(m *Monitor) { m.dialer = d } }

// New creates a monitor. An empty probe disables Reachable's dial and
// falls back to IsConnected.
func New(probe string, timeout time.Duration, opts ...Option) *Monitor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	m := &Monitor{
		probe:   probe,
		timeout: timeout,
		ifaces:  hostInterfaces,
		dialer:  &net.Dialer{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// IsConnected reports whether any up, non-loopback interface has an address.
func (m *Monitor) IsConnected() bool {
	return m.CurrentAddress() != ""
}

// CurrentAddress returns the first IPv4 address of an up, non-loopback
// interface, or "" when there is none.
func (m *Monitor) CurrentAddress() string {
	list, err := m.ifaces()
	if err != nil {
		return ""
	}
	for _, ifc := range list {
		if !ifc.Up || ifc.Loop {
			continue
		}
		for _, a := range ifc.Addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4.String()
			}
		}
	}
	return ""
}

// Reachable checks the link and, if a probe is configured, dials it.
func (m *Monitor) Reachable(ctx context.Context) error {
	if !m.IsConnected() {
		return errors.New("link: no usable interface")
	}
	if m.probe == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	c, err := m.dialer.DialContext(ctx, "tcp", m.probe)
	if err != nil {
		return fmt.Errorf("link: probe %s: %w", m.probe, err)
	}
	return c.Close()
}

func hostInterfaces() ([]Interface, error) {
	list, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(list))
	for _, ifc := range list {
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		out = append(out, Interface{
			Name:  ifc.Name,
			Up:    ifc.Flags&net.FlagUp != 0,
			Loop:  ifc.Flags&net.FlagLoopback != 0,
			Addrs: addrs,
		})
	}
	return out, nil
}
