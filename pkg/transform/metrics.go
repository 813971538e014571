package transform

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains prometheus metrics for driver runs.
type Metrics struct {
	// Run metrics
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Loop metrics
	Steps   *prometheus.CounterVec
	Growths *prometheus.CounterVec

	// Throughput metrics
	BytesIn  *prometheus.CounterVec
	BytesOut *prometheus.CounterVec

	// Session metrics
	ActiveSessions *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "runs_total",
				Help:      "Total number of driver runs by engine, direction and result",
			},
			[]string{"engine", "direction", "result"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "run_duration_seconds",
				Help:      "Time spent in a driver run by engine and direction",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"engine", "direction"},
		),
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "steps_total",
				Help:      "Total number of session steps by engine and direction",
			},
			[]string{"engine", "direction"},
		),
		Growths: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "buffer_growths_total",
				Help:      "Total number of output buffer growths by engine and direction",
			},
			[]string{"engine", "direction"},
		),
		BytesIn: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "bytes_in_total",
				Help:      "Total number of input bytes consumed by engine and direction",
			},
			[]string{"engine", "direction"},
		),
		BytesOut: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "bytes_out_total",
				Help:      "Total number of output bytes produced by engine and direction",
			},
			[]string{"engine", "direction"},
		),
		ActiveSessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "active_sessions",
				Help:      "Number of sessions initialised and not yet ended",
			},
			[]string{"engine", "direction"},
		),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.Runs,
		m.RunDuration,
		m.Steps,
		m.Growths,
		m.BytesIn,
		m.BytesOut,
		m.ActiveSessions,
	}

	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordSessionStarted increments the active session gauge.
func (m *Metrics) RecordSessionStarted(engine string, direction Direction) {
	m.ActiveSessions.WithLabelValues(engine, direction.String()).Inc()
}

// RecordSessionEnded decrements the active session gauge.
func (m *Metrics) RecordSessionEnded(engine string, direction Direction) {
	m.ActiveSessions.WithLabelValues(engine, direction.String()).Dec()
}

// RecordRun records the outcome and totals of a finished run.
func (m *Metrics) RecordRun(engine string, direction Direction, result string, steps, growths int, in, out uint64, duration time.Duration) {
	dir := direction.String()

	m.Runs.WithLabelValues(engine, dir, result).Inc()
	m.RunDuration.WithLabelValues(engine, dir).Observe(duration.Seconds())
	m.Steps.WithLabelValues(engine, dir).Add(float64(steps))
	m.Growths.WithLabelValues(engine, dir).Add(float64(growths))
	m.BytesIn.WithLabelValues(engine, dir).Add(float64(in))
	m.BytesOut.WithLabelValues(engine, dir).Add(float64(out))
}
