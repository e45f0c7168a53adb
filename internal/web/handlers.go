// internal/web/handlers.go
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/store"
)

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(s.cfg.AssetsDir, name))
	}
}

func (s *Server) handleXML(w http.ResponseWriter, r *http.Request) {
	body := status.Encode(s.deps.Table, s.deps.Stats.Snapshot(), s.deps.Identity, status.Meta{
		Uptime:     time.Since(s.deps.Started),
		FreeMemory: s.deps.Memory(),
	})
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

// handleEvents hands the stream to a pool worker and holds the request
// open until the worker releases it.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	src := &stream{w: w, ctx: r.Context(), logs: s.deps.Logs, done: make(chan struct{})}

	if err := s.pool.Submit(src, s.serveEvents); err != nil {
		s.log.Debug("event stream rejected", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "503 Busy: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	<-src.done
}

func (s *Server) serveEvents(ctx context.Context, st *stream) {
	if err := st.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("event stream ended", "err", err)
	}
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if s.deps.Restarter == nil {
		http.Error(w, "reboot not available", http.StatusNotImplemented)
		return
	}
	s.log.Warn("manual reboot requested", "remote", r.RemoteAddr)
	fmt.Fprintln(w, "Rebooting")

	go func() {
		if s.deps.Store != nil {
			if err := s.deps.Store.Save(store.KeyLastBootReason, store.ReasonManualReboot); err != nil {
				s.log.Error("restart reason not stored", "err", err)
			}
		}
		if err := s.deps.Restarter.Restart(context.Background(), store.ReasonManualReboot); err != nil {
			s.log.Error("manual reboot failed", "err", err)
		}
	}()
}

func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	if s.deps.Maintenance == nil {
		http.Error(w, "maintenance not available", http.StatusNotImplemented)
		return
	}
	switch r.URL.Query().Get("state") {
	case "on":
		if s.deps.Maintenance.Begin() {
			s.log.Warn("maintenance started, read and publish paused")
		}
	case "off":
		if s.deps.Maintenance.InProgress() {
			s.log.Warn("maintenance ended")
		}
		s.deps.Maintenance.End()
	default:
		http.Error(w, "state must be on or off", http.StatusBadRequest)
		return
	}
	if s.deps.Maintenance.InProgress() {
		fmt.Fprintln(w, "on")
	} else {
		fmt.Fprintln(w, "off")
	}
}
