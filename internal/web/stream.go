// internal/web/stream.go
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/logstream"
)

// stream is one SSE client. The HTTP handler goroutine waits on done
// while a pool worker writes to w.
type stream struct {
	w     http.ResponseWriter
	flush http.Flusher
	ctx   context.Context
	logs  *logstream.Queue
	done  chan struct{}
}

// detachStream builds the pool-owned copy; releasing it lets the HTTP
// handler return.
func detachStream(src *stream) (*stream, func(), error) {
	f, ok := src.w.(http.Flusher)
	if !ok {
		return nil, nil, errors.New("web: response writer cannot flush")
	}
	cp := &stream{w: src.w, flush: f, ctx: src.ctx, logs: src.logs, done: src.done}
	return cp, func() { close(src.done) }, nil
}

// run writes queued log lines until the client leaves or the worker stops.
func (st *stream) run(worker context.Context) error {
	ctx, cancel := context.WithCancel(st.ctx)
	defer cancel()
	stop := context.AfterFunc(worker, cancel)
	defer stop()

	// streams outlive the server write timeout
	_ = http.NewResponseController(st.w).SetWriteDeadline(time.Time{})

	h := st.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	st.w.WriteHeader(http.StatusOK)
	st.flush.Flush()

	for {
		line, err := st.logs.Next(ctx)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(st.w, "data: %s\n\n", line); err != nil {
			return fmt.Errorf("web: event write: %w", err)
		}
		st.flush.Flush()
	}
}
