// Package metrics provides Prometheus instrumentation for streams.
//
// A Collector does not reach into a stream; it wraps the stream's callback
// table so every dispatched event is counted before the wrapped handler
// runs.
package metrics

import (
	"unblock-toolkit/stream"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "unblock"

// Config holds configuration for metrics collection.
type Config struct {
	// Namespace overrides the default "unblock" namespace for metrics.
	Namespace string

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: defaultNamespace,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the metric vectors shared by every instrumented stream.
// Each stream is told apart by the "stream" label.
type Collector struct {
	BytesRead        *prometheus.CounterVec
	BytesWritten     *prometheus.CounterVec
	Writes           *prometheus.CounterVec
	Loops            *prometheus.CounterVec
	Closes           *prometheus.CounterVec
	Failures         *prometheus.CounterVec
	CallbackFailures *prometheus.CounterVec
	Buffered         *prometheus.GaugeVec
}

// New registers the stream metrics with the configured registry.
func New(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = defaultNamespace
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)
	labels := []string{"stream"}

	return &Collector{
		BytesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "read_bytes_total",
				Help:      "Total number of bytes read from the handle",
			},
			labels,
		),
		BytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "written_bytes_total",
				Help:      "Total number of bytes accepted by the handle",
			},
			labels,
		),
		Writes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "writes_total",
				Help:      "Total number of successful write attempts, partial or full",
			},
			labels,
		),
		Loops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "loops_total",
				Help:      "Total number of worker loop cycles",
			},
			labels,
		),
		Closes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "closes_total",
				Help:      "Total number of closed handles",
			},
			labels,
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "failures_total",
				Help:      "Total number of fatal I/O errors",
			},
			labels,
		),
		CallbackFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "callback_failures_total",
				Help:      "Total number of panics recovered from callbacks",
			},
			[]string{"stream", "event"},
		),
		Buffered: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "buffered_writes",
				Help:      "Number of queued writes not yet fully sent, sampled every loop",
			},
			labels,
		),
	}
}

// Instrument returns a copy of cb whose handlers also update the metrics
// labelled with name. The wrapped handlers still run, after the counters
// are updated.
func (c *Collector) Instrument(name string, cb stream.Callbacks) stream.Callbacks {
	out := cb

	out.Read = func(b []byte) {
		c.BytesRead.WithLabelValues(name).Add(float64(len(b)))
		if cb.Read != nil {
			cb.Read(b)
		}
	}
	out.Wrote = func(b []byte, n int) {
		c.BytesWritten.WithLabelValues(name).Add(float64(n))
		c.Writes.WithLabelValues(name).Inc()
		if cb.Wrote != nil {
			cb.Wrote(b, n)
		}
	}
	out.Looped = func(s *stream.Stream) {
		c.Loops.WithLabelValues(name).Inc()
		c.Buffered.WithLabelValues(name).Set(float64(s.Buffered()))
		if cb.Looped != nil {
			cb.Looped(s)
		}
	}
	out.Closed = func() {
		c.Closes.WithLabelValues(name).Inc()
		c.Buffered.WithLabelValues(name).Set(0)
		if cb.Closed != nil {
			cb.Closed()
		}
	}
	out.Failed = func(err error) {
		c.Failures.WithLabelValues(name).Inc()
		if cb.Failed != nil {
			cb.Failed(err)
		}
	}
	out.CallbackFailed = func(err error, ev stream.Event) {
		c.CallbackFailures.WithLabelValues(name, ev.String()).Inc()
		if cb.CallbackFailed != nil {
			cb.CallbackFailed(err, ev)
		}
	}
	return out
}

// Forget drops every series labelled with name, typically once the
// stream it tracked has stopped.
func (c *Collector) Forget(name string) {
	labels := prometheus.Labels{"stream": name}
	c.BytesRead.DeletePartialMatch(labels)
	c.BytesWritten.DeletePartialMatch(labels)
	c.Writes.DeletePartialMatch(labels)
	c.Loops.DeletePartialMatch(labels)
	c.Closes.DeletePartialMatch(labels)
	c.Failures.DeletePartialMatch(labels)
	c.CallbackFailures.DeletePartialMatch(labels)
	c.Buffered.DeletePartialMatch(labels)
}
