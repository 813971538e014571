package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
)

// Memo remembers computed values for a limited time.
type Memo[K comparable, V any] interface {
	// Start begins periodic removal of expired entries.
	Start(ctx context.Context) error
	// Stop halts background expiry.
	Stop() error
	// Get returns the remembered value for key, if any.
	Get(key K) (V, bool)
	// Set remembers value for key with the configured TTL.
	Set(key K, value V)
	// Len returns the number of remembered entries.
	Len() int
}

// Config holds configuration options for a Memo.
type Config struct {
	// TTL is the time-to-live for cached entries.
	TTL time.Duration `yaml:"ttl"`
	// Capacity sets the maximum number of items the cache can hold.
	// If 0, the cache has no size limit.
	Capacity uint64 `yaml:"capacity"`
	// OnEviction is called when an item is evicted from the cache.
	OnEviction func(key any, value any, reason ttlcache.EvictionReason) `yaml:"-"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		TTL:      5 * time.Minute,
		Capacity: 1024,
	}
}

type memo[K comparable, V any] struct {
	cache   *ttlcache.Cache[K, V]
	log     logrus.FieldLogger
	metrics *Metrics

	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewMemo creates a Memo backed by a TTL cache. A nil metrics disables
// instrumentation.
func NewMemo[K comparable, V any](log logrus.FieldLogger, config Config, metrics *Metrics) Memo[K, V] {
	opts := []ttlcache.Option[K, V]{
		ttlcache.WithTTL[K, V](config.TTL),
	}

	if config.Capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[K, V](config.Capacity))
	}

	c := ttlcache.New(opts...)

	interval := config.TTL
	if interval <= 0 {
		interval = time.Minute
	}

	m := &memo[K, V]{
		cache:    c,
		log:      log.WithField("component", "cache"),
		metrics:  metrics,
		interval: interval,
	}

	c.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[K, V]) {
		if m.metrics != nil {
			m.metrics.ObserveEviction(reason)
			m.metrics.SetSize(c.Len())
		}

		if config.OnEviction != nil {
			config.OnEviction(item.Key(), item.Value(), reason)
		}
	})

	return m
}

// Start begins background expiry of stale entries.
func (m *memo[K, V]) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped != nil {
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.stopped = make(chan struct{})

	go m.expire(ctx, m.stopped)

	m.log.WithField("interval", m.interval).Info("Cache started")

	return nil
}

func (m *memo[K, V]) expire(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cache.DeleteExpired()
		}
	}
}

// Stop halts background expiry and waits for it to exit.
func (m *memo[K, V]) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped == nil {
		return nil
	}

	m.log.Info("Stopping cache")

	m.cancel()
	<-m.stopped

	m.cancel = nil
	m.stopped = nil

	m.log.Info("Cache stopped")

	return nil
}

func (m *memo[K, V]) Get(key K) (V, bool) {
	item := m.cache.Get(key)
	if item == nil {
		if m.metrics != nil {
			m.metrics.ObserveLookup(false)
		}

		var zero V

		return zero, false
	}

	if m.metrics != nil {
		m.metrics.ObserveLookup(true)
	}

	return item.Value(), true
}

func (m *memo[K, V]) Set(key K, value V) {
	m.cache.Set(key, value, ttlcache.DefaultTTL)

	if m.metrics != nil {
		m.metrics.ObserveInsertion()
		m.metrics.SetSize(m.cache.Len())
	}
}

func (m *memo[K, V]) Len() int {
	return m.cache.Len()
}
