package notibus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsDisabledByDefault(t *testing.T) {
	b := newTestBus(t)
	assert.Nil(t, b.metrics)

	// The nil collector set is a safe no-op on every path.
	_, err := b.Post(keyOrders, "x")
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := newTestBus(t, WithMetrics(reg))
	require.NotNil(t, b.metrics)

	id, err := b.AddObserver(keyOrders, SignatureOf("x"), func(args ...any) any { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.observers))

	_, err = b.Post(keyOrders, "payload")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.posts.WithLabelValues("sync", outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.delivered))

	_, err = b.Post(keyAlerts, "payload")
	require.ErrorIs(t, err, ErrNotificationNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.posts.WithLabelValues("sync", outcomeNotFound)))

	_, err = b.Post(keyOrders, 1)
	require.ErrorIs(t, err, ErrPayloadTypeMismatch)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.posts.WithLabelValues("sync", outcomeMismatch)))

	require.NoError(t, b.RemoveObserver(id))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.metrics.observers))
}

func TestMetricsPanicCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := newTestBus(t, WithMetrics(reg))

	_, err := b.AddObserver(keyOrders, SignatureOf("x"), func(args ...any) any {
		panic("boom")
	})
	require.NoError(t, err)

	_, err = b.Post(keyOrders, "payload")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.panics))
}
