// internal/web/server.go
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/dispatch"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/logstream"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
)

// Maintenance is the upgrade flag toggled from the web.
type Maintenance interface {
	Begin() bool
	End()
	InProgress() bool
}

// ReasonStore persists the restart reason.
type ReasonStore interface {
	Save(key, value string) error
}

// Restarter replaces the running process.
type Restarter interface {
	Restart(ctx context.Context, reason string) error
}

// Config is the minimal runtime config the server needs.
type Config struct {
	Listen       string
	AssetsDir    string
	Workers      int
	QueueDepth   int
	EnqueueWait  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Deps is everything the server reads or triggers.
type Deps struct {
	Table       *registers.Table
	Stats       *status.Stats
	Identity    status.Identity
	Started     time.Time
	Logs        *logstream.Queue
	Maintenance Maintenance
	Store       ReasonStore
	Restarter   Restarter
	Metrics     http.Handler
	Memory      func() uint64
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.log = l } }

// WithPoolObserver attaches an observer to the dispatch pool.
func WithPoolObserver(o dispatch.Observer) Option { return func(s *Server) { s.poolObs = o } }

// Server is the presentation server.
type Server struct {
	cfg  Config
	deps Deps

	pool    *dispatch.Pool[*stream]
	poolObs dispatch.Observer
	srv     *http.Server

	mu       sync.Mutex
	ln       net.Listener
	serveErr error

	log *slog.Logger
}

// New creates the server and its dispatch pool. Nothing listens until Listen.
func New(cfg Config, deps Deps, opts ...Option) (*Server, error) {
	if deps.Table == nil || deps.Stats == nil {
		return nil, errors.New("web: table and stats required")
	}
	if deps.Logs == nil {
		return nil, errors.New("web: log queue required")
	}
	if deps.Memory == nil {
		deps.Memory = status.FreeMemory
	}
	if deps.Started.IsZero() {
		deps.Started = time.Now()
	}

	s := &Server{cfg: cfg, deps: deps, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "web")

	poolOpts := []dispatch.Option[*stream]{dispatch.WithLogger[*stream](s.log)}
	if s.poolObs != nil {
		poolOpts = append(poolOpts, dispatch.WithObserver[*stream](s.poolObs))
	}
	pool, err := dispatch.New[*stream](dispatch.Config{
		Workers:     cfg.Workers,
		QueueDepth:  cfg.QueueDepth,
		EnqueueWait: cfg.EnqueueWait,
	}, detachStream, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	s.pool = pool

	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s, nil
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)

	r.HandleFunc("/", s.page("index.html")).Methods(http.MethodGet)
	r.HandleFunc("/webserial", s.page("webserial.html")).Methods(http.MethodGet)
	r.HandleFunc("/xml", s.handleXML).Methods(http.MethodPut, http.MethodGet)
	r.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/reboot", s.handleReboot).Methods(http.MethodGet)
	r.HandleFunc("/maintenance", s.handleMaintenance).Methods(http.MethodPut)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics).Methods(http.MethodGet)
	}
	return r
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.cfg.Listen, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve runs the server until ctx is done, then shuts it down together with
// the dispatch pool. Listen must have succeeded.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("web: Serve before Listen")
	}

	s.pool.Start(ctx)
	s.log.Info("web server started", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.mu.Lock()
			s.serveErr = err
			s.mu.Unlock()
			s.log.Error("web server stopped", "err", err)
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		// a dead server is reported through Alive; the watchdog restarts
		<-ctx.Done()
		_ = s.pool.Stop(time.Second)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.srv.Shutdown(shutdownCtx)
	if perr := s.pool.Stop(time.Second); perr != nil && err == nil {
		err = perr
	}
	s.log.Info("web server stopped")
	return err
}

// Alive is the watchdog predicate: the serve loop has not died and the
// listen address still accepts connections.
func (s *Server) Alive(ctx context.Context) error {
	s.mu.Lock()
	ln, serveErr := s.ln, s.serveErr
	s.mu.Unlock()

	if serveErr != nil {
		return fmt.Errorf("web: serve loop exited: %w", serveErr)
	}
	if ln == nil {
		return errors.New("web: not listening")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", dialAddr(ln.Addr()))
	if err != nil {
		return fmt.Errorf("web: dial self: %w", err)
	}
	return c.Close()
}

// dialAddr turns a wildcard listen address into a loopback one.
func dialAddr(a net.Addr) string {
	tcp, ok := a.(*net.TCPAddr)
	if !ok || !tcp.IP.IsUnspecified() {
		return a.String()
	}
	return net.JoinHostPort("127.0.0.1", fmt.Sprint(tcp.Port))
}
