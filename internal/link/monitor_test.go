// internal/link/monitor_test.go
package link

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipnet(s string) *net.IPNet {
	ip, n, _ := net.ParseCIDR(s)
	n.IP = ip
	return n
}

func staticIfaces(list ...Interface) Interfaces {
	return func() ([]Interface, error) { return list, nil }
}

func TestCurrentAddress(t *testing.T) {
	m := New("", time.Second, WithInterfaces(staticIfaces(
		Interface{Name: "lo", Up: true, Loop: true, Addrs: []net.Addr{ipnet("127.0.0.1/8")}},
		Interface{Name: "eth1", Up: false, Addrs: []net.Addr{ipnet("10.0.0.9/24")}},
		Interface{Name: "eth0", Up: true, Addrs: []net.Addr{ipnet("fe80::1/64"), ipnet("192.168.1.40/24")}},
	)))

	assert.Equal(t, "192.168.1.40", m.CurrentAddress())
	assert.True(t, m.IsConnected())
	assert.NoError(t, m.Reachable(context.Background()))
}

func TestNoUsableInterface(t *testing.T) {
	m := New("", time.Second, WithInterfaces(staticIfaces(
		Interface{Name: "lo", Up: true, Loop: true, Addrs: []net.Addr{ipnet("127.0.0.1/8")}},
	)))
	assert.Equal(t, "", m.CurrentAddress())
	assert.False(t, m.IsConnected())
	assert.Error(t, m.Reachable(context.Background()))

	m = New("", time.Second, WithInterfaces(func() ([]Interface, error) { return nil, errors.New("boom") }))
	assert.False(t, m.IsConnected())
}

type fakeDialer struct{ err error }

func (d fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	a, b := net.Pipe()
	b.Close()
	return a, nil
}

func TestReachable_Probe(t *testing.T) {
	up := staticIfaces(Interface{Name: "eth0", Up: true, Addrs: []net.Addr{ipnet("10.1.1.2/24")}})

	m := New("10.1.1.1:53", time.Second, WithInterfaces(up), WithDialer(fakeDialer{}))
	require.NoError(t, m.Reachable(context.Background()))

	m = New("10.1.1.1:53", time.Second, WithInterfaces(up), WithDialer(fakeDialer{err: errors.New("no route")}))
	err := m.Reachable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10.1.1.1:53")
}
