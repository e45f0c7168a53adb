// internal/web/web_test.go
package web

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/logstream"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/store"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/upgrade"
)

type fakeStore struct {
	mu    sync.Mutex
	saved map[string]string
}

func (s *fakeStore) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = map[string]string{}
	}
	s.saved[key] = value
	return nil
}

func (s *fakeStore) get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[key]
}

type fakeRestarter struct{ reasons chan string }

func (r *fakeRestarter) Restart(ctx context.Context, reason string) error {
	r.reasons <- reason
	return nil
}

type fixture struct {
	srv   *Server
	http  *httptest.Server
	logs  *logstream.Queue
	flag  *upgrade.Flag
	store *fakeStore
	rs    *fakeRestarter
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()

	tbl, err := registers.NewTable([]registers.Descriptor{
		{CID: 0, Name: "Power-Total", Unit: "W", Digits: 0},
		{CID: 1, Name: "Frequency", Unit: "HZ", Digits: 2},
	})
	require.NoError(t, err)
	tbl.Apply(1, 49.987)

	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "index.html"), []byte("<html>meter</html>"), 0o644))

	f := &fixture{
		logs:  logstream.NewQueue(16),
		flag:  &upgrade.Flag{},
		store: &fakeStore{},
		rs:    &fakeRestarter{reasons: make(chan string, 1)},
	}

	s, err := New(Config{
		Listen:      "127.0.0.1:0",
		AssetsDir:   assets,
		Workers:     workers,
		QueueDepth:  workers,
		EnqueueWait: 20 * time.Millisecond,
	}, Deps{
		Table:       tbl,
		Stats:       status.NewStats(),
		Identity:    status.Identity{DeviceName: "Eastron SDM630-V2-MODBUS", Project: "bridge"},
		Logs:        f.logs,
		Maintenance: f.flag,
		Store:       f.store,
		Restarter:   f.rs,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "bridge_up 1\n")
		}),
		Memory: func() uint64 { return 4096 },
	})
	require.NoError(t, err)
	f.srv = s

	ctx, cancel := context.WithCancel(context.Background())
	s.pool.Start(ctx)
	f.http = httptest.NewServer(s.Router())

	t.Cleanup(func() {
		cancel()
		_ = s.pool.Stop(time.Second)
		f.http.Close()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// openStream starts an SSE request; the returned cancel ends it.
func (f *fixture) openStream(t *testing.T) (*http.Response, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.http.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, func() {
		cancel()
		resp.Body.Close()
	}
}

func TestXML(t *testing.T) {
	f := newFixture(t, 1)

	resp, body := f.do(t, http.MethodPut, "/xml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "<xml><response0>0</response0><response1>49.99</response1>"))
	assert.Contains(t, body, "<prmname>Eastron SDM630-V2-MODBUS</prmname>")
	assert.Contains(t, body, "<freeh>4.096</freeh>")
	assert.True(t, strings.HasSuffix(body, "</xml>"))

	resp, _ = f.do(t, http.MethodGet, "/xml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPages(t *testing.T) {
	f := newFixture(t, 1)

	resp, body := f.do(t, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>meter</html>", body)

	resp, _ = f.do(t, http.MethodGet, "/webserial")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bridge_up 1\n", body)
}

func TestEvents_StreamsQueuedLines(t *testing.T) {
	f := newFixture(t, 1)
	f.logs.Push(`level=INFO msg="read cycle ok"`)

	resp, stop := f.openStream(t)
	defer stop()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: level=INFO msg=\"read cycle ok\"\n", line)

	blank, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "\n", blank)

	f.logs.Push("second")
	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: second\n", line)
}

func TestEvents_BusyWhenAllWorkersStreaming(t *testing.T) {
	f := newFixture(t, 1)

	first, stopFirst := f.openStream(t)
	require.Equal(t, http.StatusOK, first.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/events")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "all workers busy")

	// the worker comes back once the first client leaves
	stopFirst()
	require.Eventually(t, func() bool {
		resp, stop := f.openStream(t)
		defer stop()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
}

func TestReboot(t *testing.T) {
	f := newFixture(t, 1)

	resp, body := f.do(t, http.MethodGet, "/reboot")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Rebooting\n", body)

	select {
	case reason := <-f.rs.reasons:
		assert.Equal(t, store.ReasonManualReboot, reason)
	case <-time.After(time.Second):
		t.Fatal("restart not triggered")
	}
	assert.Equal(t, store.ReasonManualReboot, f.store.get(store.KeyLastBootReason))
}

func TestMaintenance(t *testing.T) {
	f := newFixture(t, 1)

	resp, body := f.do(t, http.MethodPut, "/maintenance?state=on")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "on\n", body)
	assert.True(t, f.flag.InProgress())

	resp, body = f.do(t, http.MethodPut, "/maintenance?state=off")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "off\n", body)
	assert.False(t, f.flag.InProgress())

	resp, _ = f.do(t, http.MethodPut, "/maintenance?state=maybe")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/maintenance")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServeAndAlive(t *testing.T) {
	tbl, err := registers.NewTable([]registers.Descriptor{{CID: 0, Name: "x"}})
	require.NoError(t, err)

	s, err := New(Config{
		Listen:      "127.0.0.1:0",
		Workers:     1,
		QueueDepth:  1,
		EnqueueWait: 10 * time.Millisecond,
	}, Deps{Table: tbl, Stats: status.NewStats(), Logs: logstream.NewQueue(1)})
	require.NoError(t, err)

	require.Error(t, s.Alive(context.Background()), "not listening yet")
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool { return s.Alive(context.Background()) == nil }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Error(t, s.Alive(context.Background()))
}
