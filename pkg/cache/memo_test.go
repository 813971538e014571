package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestMemoGetSet(t *testing.T) {
	memo := NewMemo[string, int](testLogger(), DefaultConfig(), nil)

	_, ok := memo.Get("missing")
	assert.False(t, ok)

	memo.Set("a", 1)
	memo.Set("b", 2)

	v, ok := memo.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, memo.Len())
}

func TestMemoExpiry(t *testing.T) {
	ttl := 50 * time.Millisecond
	memo := NewMemo[string, string](testLogger(), Config{TTL: ttl}, nil)

	require.NoError(t, memo.Start(context.Background()))
	defer func() { assert.NoError(t, memo.Stop()) }()

	memo.Set("k", "v")

	_, ok := memo.Get("k")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := memo.Get("k")

		return !ok && memo.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoCapacityEviction(t *testing.T) {
	var evicted atomic.Int32

	config := Config{
		TTL:      time.Minute,
		Capacity: 2,
		OnEviction: func(key any, value any, reason ttlcache.EvictionReason) {
			if reason == ttlcache.EvictionReasonCapacityReached {
				evicted.Add(1)
			}
		},
	}

	memo := NewMemo[int, string](testLogger(), config, nil)

	for i := range 5 {
		memo.Set(i, fmt.Sprintf("v%d", i))
	}

	assert.Equal(t, 2, memo.Len())
	assert.Eventually(t, func() bool { return evicted.Load() == 3 }, time.Second, 10*time.Millisecond)

	_, ok := memo.Get(0)
	assert.False(t, ok)

	v, ok := memo.Get(4)
	require.True(t, ok)
	assert.Equal(t, "v4", v)
}

func TestMemoStartStop(t *testing.T) {
	memo := NewMemo[string, int](testLogger(), DefaultConfig(), nil)

	// Stop before Start is a no-op.
	assert.NoError(t, memo.Stop())

	require.NoError(t, memo.Start(context.Background()))
	require.NoError(t, memo.Start(context.Background()))
	require.NoError(t, memo.Stop())
	require.NoError(t, memo.Stop())

	// A second cycle works.
	require.NoError(t, memo.Start(context.Background()))
	require.NoError(t, memo.Stop())
}

func TestMemoStopsWithContext(t *testing.T) {
	memo := NewMemo[string, int](testLogger(), DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, memo.Start(ctx))

	cancel()

	assert.NoError(t, memo.Stop())
}

func TestMemoConcurrentAccess(t *testing.T) {
	memo := NewMemo[string, int](testLogger(), DefaultConfig(), nil)

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			key := fmt.Sprintf("key%d", idx)
			memo.Set(key, idx)

			v, ok := memo.Get(key)
			assert.True(t, ok)
			assert.Equal(t, idx, v)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 10, memo.Len())
}

func TestMemoMetrics(t *testing.T) {
	metrics := NewMetrics(MetricsConfig{
		Namespace:      "test",
		InstanceLabels: map[string]string{"memo": "reports"},
	})
	require.NoError(t, metrics.Register(prometheus.NewRegistry()))

	memo := NewMemo[string, int](testLogger(), Config{TTL: time.Minute, Capacity: 1}, metrics)

	memo.Set("a", 1)
	memo.Get("a")
	memo.Get("b")
	memo.Set("b", 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.lookupsTotal.WithLabelValues("reports", "hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.lookupsTotal.WithLabelValues("reports", "miss")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.insertionsTotal.WithLabelValues("reports")))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.evictionsTotal.WithLabelValues("reports", "capacity")) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.sizeGauge.WithLabelValues("reports")))
}
