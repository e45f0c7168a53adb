// internal/dispatch/pool.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNoCopyAvailable is returned when the request could not be detached.
	ErrNoCopyAvailable = errors.New("dispatch: no copy available")

	// ErrAllWorkersBusy is returned when no worker token is free right now.
	ErrAllWorkersBusy = errors.New("dispatch: all workers busy")

	// ErrQueueFull is returned when the queue stayed full for the enqueue wait.
	ErrQueueFull = errors.New("dispatch: queue full")

	// ErrPoolStopped is returned after Stop.
	ErrPoolStopped = errors.New("dispatch: pool stopped")
)

// Handler serves one detached request on a worker goroutine.
// Errors are the handler's own business; the pool neither sees nor retries them.
type Handler[T any] func(ctx context.Context, req T)

// Detach creates the pool-owned copy of a short-lived request.
// The returned release func is called exactly once when the pool is done
// with the copy, whether it was served or rejected.
type Detach[T any] func(src T) (cp T, release func(), err error)

// Observer receives pool events, e.g. for metrics.
type Observer interface {
	Rejected(reason error)
	Busy(delta int)
}

// Config sizes the pool.
type Config struct {
	Workers     int
	QueueDepth  int
	EnqueueWait time.Duration
}

// Option customizes a Pool.
type Option[T any] func(*Pool[T])

// WithLogger sets the logger.
func WithLogger[T any](l *slog.Logger) Option[T] { return func(p *Pool[T]) { p.log = l } }

// WithObserver attaches an event observer.
func WithObserver[T any](o Observer) Option[T] { return func(p *Pool[T]) { p.obs = o } }

type item[T any] struct {
	req     T
	handler Handler[T]
	release func()
}

type workerKey struct{}

type workerID struct {
	pool any
	id   int
}

// Pool is a fixed set of long-lived workers fed through a bounded queue.
//
// A worker token is held by every idle worker. Submit takes a token without
// waiting and then enqueues with a short bounded wait, so the accepting side
// never blocks for long and never queues beyond the free workers.
type Pool[T any] struct {
	cfg    Config
	detach Detach[T]

	tokens chan struct{}
	queue  chan item[T]

	// mu orders enqueues against Stop: nothing enters the queue after the
	// final drain.
	mu      sync.RWMutex
	stop    chan struct{}
	stopped atomic.Bool
	started atomic.Bool
	wg      sync.WaitGroup

	obs Observer
	log *slog.Logger
}

// New creates a pool. Workers do not run until Start.
func New[T any](cfg Config, detach Detach[T], opts ...Option[T]) (*Pool[T], error) {
	if cfg.Workers < 1 {
		return nil, errors.New("dispatch: workers must be >= 1")
	}
	if cfg.QueueDepth < 1 {
		return nil, errors.New("dispatch: queue depth must be >= 1")
	}
	if cfg.EnqueueWait <= 0 {
		return nil, errors.New("dispatch: enqueue wait must be > 0")
	}
	if detach == nil {
		return nil, errors.New("dispatch: detach func required")
	}

	p := &Pool[T]{
		cfg:    cfg,
		detach: detach,
		tokens: make(chan struct{}, cfg.Workers),
		queue:  make(chan item[T], cfg.QueueDepth),
		stop:   make(chan struct{}),
		obs:    nopObserver{},
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With("component", "dispatch")
	return p, nil
}

// Start launches the workers. Every worker starts free.
func (p *Pool[T]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.fillTokens()
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(context.WithValue(ctx, workerKey{}, workerID{pool: p, id: i}))
	}
	p.log.Info("dispatch pool started", "workers", p.cfg.Workers, "queue_depth", p.cfg.QueueDepth)
}

func (p *Pool[T]) fillTokens() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.tokens <- struct{}{}
	}
}

// Submit hands req to a free worker or rejects it synchronously.
func (p *Pool[T]) Submit(req T, h Handler[T]) error {
	if p.stopped.Load() {
		return p.reject(ErrPoolStopped)
	}

	cp, release, err := p.detach(req)
	if err != nil {
		return p.reject(fmt.Errorf("%w: %v", ErrNoCopyAvailable, err))
	}
	if release == nil {
		release = func() {}
	}

	select {
	case <-p.tokens:
	default:
		release()
		return p.reject(ErrAllWorkersBusy)
	}

	if err := p.enqueue(item[T]{req: cp, handler: h, release: release}); err != nil {
		p.giveBack()
		release()
		return p.reject(err)
	}
	return nil
}

func (p *Pool[T]) enqueue(it item[T]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped.Load() {
		return ErrPoolStopped
	}

	t := time.NewTimer(p.cfg.EnqueueWait)
	defer t.Stop()

	select {
	case p.queue <- it:
		return nil
	case <-t.C:
		return ErrQueueFull
	}
}

// Stop signals the workers and waits up to timeout for running handlers.
// Queued but unserved requests are released.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.stopped.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return nil
	}
	close(p.stop)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("dispatch: workers still running after %s", timeout)
	}

	for {
		select {
		case it := <-p.queue:
			it.release()
		default:
			p.log.Info("dispatch pool stopped")
			return err
		}
	}
}

// OnWorker reports whether ctx belongs to one of this pool's workers.
// Handlers use it to avoid submitting to their own pool.
func (p *Pool[T]) OnWorker(ctx context.Context) bool {
	w, ok := ctx.Value(workerKey{}).(workerID)
	return ok && w.pool == any(p)
}

// WorkerID returns the worker index carried by ctx, or -1.
func WorkerID(ctx context.Context) int {
	if w, ok := ctx.Value(workerKey{}).(workerID); ok {
		return w.id
	}
	return -1
}

// Free returns the number of idle workers.
func (p *Pool[T]) Free() int { return len(p.tokens) }

func (p *Pool[T]) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case it := <-p.queue:
			p.serve(ctx, it)
			p.giveBack()
		}
	}
}

func (p *Pool[T]) serve(ctx context.Context, it item[T]) {
	p.obs.Busy(1)
	defer p.obs.Busy(-1)
	defer it.release()

	p.log.Debug("request started", "worker", WorkerID(ctx))
	it.handler(ctx, it.req)
	p.log.Debug("request finished", "worker", WorkerID(ctx))
}

func (p *Pool[T]) giveBack() {
	select {
	case p.tokens <- struct{}{}:
	default:
	}
}

func (p *Pool[T]) reject(err error) error {
	p.obs.Rejected(err)
	p.log.Warn("request rejected", "err", err)
	return err
}

type nopObserver struct{}

func (nopObserver) Rejected(error) {}
func (nopObserver) Busy(int)       {}
