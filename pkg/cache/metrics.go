package cache

import (
	"sort"
	"sync"

	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for a memo.
type Metrics struct {
	namespace   string
	subsystem   string
	labels      []string
	labelValues []string

	lookupsTotal    *prometheus.CounterVec
	insertionsTotal *prometheus.CounterVec
	evictionsTotal  *prometheus.CounterVec
	sizeGauge       *prometheus.GaugeVec

	registered bool
	mu         sync.Mutex
}

// MetricsConfig holds configuration for cache metrics.
type MetricsConfig struct {
	// Namespace is the prometheus namespace for metrics.
	Namespace string
	// Subsystem is the prometheus subsystem for metrics.
	// If empty, defaults to "cache".
	Subsystem string
	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
	// InstanceLabels identify the memo these metrics belong to, e.g.
	// {"memo": "reports"}. Keys become label names.
	InstanceLabels map[string]string
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Subsystem == "" {
		cfg.Subsystem = "cache"
	}

	labelNames := make([]string, 0, len(cfg.InstanceLabels))
	for k := range cfg.InstanceLabels {
		labelNames = append(labelNames, k)
	}

	sort.Strings(labelNames)

	labelValues := make([]string, len(labelNames))
	for i, name := range labelNames {
		labelValues[i] = cfg.InstanceLabels[name]
	}

	with := func(extra ...string) []string {
		return append(append([]string{}, labelNames...), extra...)
	}

	return &Metrics{
		namespace:   cfg.Namespace,
		subsystem:   cfg.Subsystem,
		labels:      labelNames,
		labelValues: labelValues,
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "lookups_total",
			Help:        "Total number of memo lookups by result",
			ConstLabels: cfg.ConstLabels,
		}, with("result")),
		insertionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "insertions_total",
			Help:        "Total number of memo insertions",
			ConstLabels: cfg.ConstLabels,
		}, with()),
		evictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "evictions_total",
			Help:        "Total number of memo evictions by reason",
			ConstLabels: cfg.ConstLabels,
		}, with("reason")),
		sizeGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "entries",
			Help:        "Current number of entries in the memo",
			ConstLabels: cfg.ConstLabels,
		}, with()),
	}
}

// Register registers the metrics with the provided registerer.
// If registerer is nil, the default prometheus registerer is used.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	collectors := m.collectors()

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			for _, registered := range collectors {
				registerer.Unregister(registered)
			}

			return err
		}
	}

	m.registered = true

	return nil
}

// Unregister unregisters the metrics from the provided registerer.
func (m *Metrics) Unregister(registerer prometheus.Registerer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registered {
		return
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	for _, c := range m.collectors() {
		registerer.Unregister(c)
	}

	m.registered = false
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.lookupsTotal,
		m.insertionsTotal,
		m.evictionsTotal,
		m.sizeGauge,
	}
}

func (m *Metrics) values(extra ...string) []string {
	return append(append([]string{}, m.labelValues...), extra...)
}

// ObserveLookup counts a lookup as a hit or a miss.
func (m *Metrics) ObserveLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	m.lookupsTotal.WithLabelValues(m.values(result)...).Inc()
}

// ObserveInsertion counts an insertion.
func (m *Metrics) ObserveInsertion() {
	m.insertionsTotal.WithLabelValues(m.values()...).Inc()
}

// ObserveEviction counts an eviction.
func (m *Metrics) ObserveEviction(reason ttlcache.EvictionReason) {
	m.evictionsTotal.WithLabelValues(m.values(evictionReason(reason))...).Inc()
}

// SetSize sets the current number of entries.
func (m *Metrics) SetSize(size int) {
	m.sizeGauge.WithLabelValues(m.values()...).Set(float64(size))
}

func evictionReason(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonMaxCostExceeded:
		return "max_cost"
	default:
		return "unknown"
	}
}
