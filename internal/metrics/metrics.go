// internal/metrics/metrics.go
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/dispatch"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/registers"
)

const namespace = "bridge"

// Metrics owns a private registry and the bridge collectors.
// It satisfies the poller, publisher and dispatch observer interfaces.
type Metrics struct {
	reg *prometheus.Registry

	readCycles   *prometheus.CounterVec
	readSeconds  prometheus.Histogram
	publishes    *prometheus.CounterVec
	cycleSeconds *prometheus.HistogramVec
	values       *prometheus.GaugeVec
	rejected     *prometheus.CounterVec
	busyWorkers  prometheus.Gauge
	freeMemory   prometheus.Gauge
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		readCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_cycles_total",
			Help:      "Bus read cycles by result.",
		}, []string{"result"}),
		readSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "read_cycle_seconds",
			Help:      "Duration of one bus read cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Single register publishes by result.",
		}, []string{"result"}),
		cycleSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_cycle_seconds",
			Help:      "Duration of one publish cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"cycle"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "register_value",
			Help:      "Last value read from the meter.",
		}, []string{"name", "unit"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_rejected_total",
			Help:      "Async requests rejected at submit.",
		}, []string{"reason"}),
		busyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_busy_workers",
			Help:      "Dispatch workers currently serving a request.",
		}),
		freeMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "free_memory_bytes",
			Help:      "Last sampled free heap.",
		}),
	}

	m.reg.MustRegister(
		m.readCycles,
		m.readSeconds,
		m.publishes,
		m.cycleSeconds,
		m.values,
		m.rejected,
		m.busyWorkers,
		m.freeMemory,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// ReadCycle records one bus read cycle.
func (m *Metrics) ReadCycle(ok bool, took time.Duration) {
	m.readCycles.WithLabelValues(result(ok)).Inc()
	m.readSeconds.Observe(took.Seconds())
}

// RegisterValue records the latest value of one register.
func (m *Metrics) RegisterValue(d registers.Descriptor, v float64) {
	m.values.WithLabelValues(d.Name, d.Unit).Set(v)
}

// Published records one register publish.
func (m *Metrics) Published(ok bool) {
	m.publishes.WithLabelValues(result(ok)).Inc()
}

// PublishCycle records one publish cycle.
func (m *Metrics) PublishCycle(full bool, took time.Duration) {
	cycle := "priority"
	if full {
		cycle = "full"
	}
	m.cycleSeconds.WithLabelValues(cycle).Observe(took.Seconds())
}

// Rejected records a dispatch rejection.
func (m *Metrics) Rejected(err error) {
	m.rejected.WithLabelValues(RejectReason(err)).Inc()
}

// Busy tracks workers entering and leaving a request.
func (m *Metrics) Busy(delta int) {
	m.busyWorkers.Add(float64(delta))
}

// SetFreeMemory records the free heap gauge.
func (m *Metrics) SetFreeMemory(v uint64) {
	m.freeMemory.Set(float64(v))
}

// RejectReason maps a dispatch error to a short label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrAllWorkersBusy):
		return "busy"
	case errors.Is(err, dispatch.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, dispatch.ErrNoCopyAvailable):
		return "no_copy"
	case errors.Is(err, dispatch.ErrPoolStopped):
		return "stopped"
	default:
		return "other"
	}
}
