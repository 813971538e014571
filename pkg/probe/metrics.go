package probe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Probes    *prometheus.CounterVec
	LastRatio *prometheus.GaugeVec
	LastRun   prometheus.Gauge
	Writes    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "runs_total",
			Help:      "Number of round trip probes by codec and result",
			Namespace: namespace,
			Subsystem: "probe",
		}, []string{"codec", "result"}),
		LastRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "last_ratio",
			Help:      "Encoded to input size ratio of the last probe",
			Namespace: namespace,
			Subsystem: "probe",
		}, []string{"codec", "payload"}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last probe run finished",
			Namespace: namespace,
			Subsystem: "probe",
		}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "report_writes_total",
			Help:      "Number of report write attempts by result",
			Namespace: namespace,
			Subsystem: "probe",
		}, []string{"result"}),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{m.Probes, m.LastRatio, m.LastRun, m.Writes} {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (m *Metrics) RecordProbe(codec, payload, result string, ratio float64) {
	m.Probes.WithLabelValues(codec, result).Inc()

	if result == resultPassed {
		m.LastRatio.WithLabelValues(codec, payload).Set(ratio)
	}
}

func (m *Metrics) RecordRun(finished time.Time) {
	m.LastRun.Set(float64(finished.Unix()))
}

func (m *Metrics) RecordWrite(err error) {
	if err != nil {
		m.Writes.WithLabelValues("error").Inc()

		return
	}

	m.Writes.WithLabelValues("success").Inc()
}
