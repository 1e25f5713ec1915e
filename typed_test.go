package notibus

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billing "github.com/notibus/notibus/internal/billing/event"
	shipping "github.com/notibus/notibus/internal/shipping/event"
)

type orderPlaced struct {
	ID    string
	Total float64
}

func TestObserveTyped(t *testing.T) {
	b := newTestBus(t)

	got := make(chan orderPlaced, 1)
	id, err := Observe(b, keyOrders, func(o orderPlaced) {
		got <- o
	})
	require.NoError(t, err)
	require.Greater(t, id, ObserverID(0))

	n, err := b.Post(keyOrders, orderPlaced{ID: "ORD-1", Total: 99.5})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, orderPlaced{ID: "ORD-1", Total: 99.5}, <-got)

	// A payload of the wrong shape is rejected before delivery.
	_, err = b.Post(keyOrders, "not an order")
	require.ErrorIs(t, err, ErrPayloadTypeMismatch)
}

func TestObserveTypedPointerPayload(t *testing.T) {
	b := newTestBus(t)

	got := make(chan *orderPlaced, 1)
	_, err := Observe(b, keyOrders, func(o *orderPlaced) {
		got <- o
	})
	require.NoError(t, err)

	// Value and pointer payloads are distinct signatures.
	_, err = b.Post(keyOrders, orderPlaced{ID: "ORD-2"})
	require.ErrorIs(t, err, ErrPayloadTypeMismatch)

	_, err = b.Post(keyOrders, &orderPlaced{ID: "ORD-2"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", (<-got).ID)
}

func TestObserveRejectsSameBaseNamePayload(t *testing.T) {
	b := newTestBus(t)

	var delivered atomic.Int64
	_, err := Observe(b, keyOrders, func(billing.Message) {
		delivered.Add(1)
	})
	require.NoError(t, err)

	// A shipping message shares the billing type's rendered name but not its
	// package; it must be rejected before dispatch, not silently dropped
	// inside the typed wrapper.
	n, err := b.Post(keyOrders, shipping.Message{ID: "SHP-1"})
	require.ErrorIs(t, err, ErrPayloadTypeMismatch)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(0), delivered.Load())

	n, err = b.Post(keyOrders, billing.Message{ID: "INV-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), delivered.Load())
}

func TestObserve2(t *testing.T) {
	b := newTestBus(t)

	type pair struct {
		s string
		n int
	}
	got := make(chan pair, 1)
	_, err := Observe2(b, keyAlerts, func(s string, n int) {
		got <- pair{s, n}
	})
	require.NoError(t, err)

	_, err = b.Post(keyAlerts, "disk", 93)
	require.NoError(t, err)
	assert.Equal(t, pair{"disk", 93}, <-got)

	_, err = b.Post(keyAlerts, 93, "disk")
	require.ErrorIs(t, err, ErrPayloadTypeMismatch, "argument order is part of the signature")
}

func TestObserveAndAddObserverShareSignature(t *testing.T) {
	b := newTestBus(t)

	_, err := Observe(b, keyAudit, func(string) {})
	require.NoError(t, err)

	// A raw registration with the same derived signature joins the bucket.
	_, err = b.AddObserver(keyAudit, SignatureOf(""), func(args ...any) any { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, b.Stats().ObserverCounts[keyAudit])
}

func TestObserveAny(t *testing.T) {
	b := newTestBus(t)

	var bundles [][]any
	_, err := ObserveAny(b, keyAudit, func(args ...any) {
		bundles = append(bundles, args)
	})
	require.NoError(t, err)

	_, err = b.Post(keyAudit, 1, "two", 3.0)
	require.NoError(t, err)
	_, err = b.Post(keyAudit)
	require.NoError(t, err)

	require.Len(t, bundles, 2)
	assert.Equal(t, []any{1, "two", 3.0}, bundles[0])
	assert.Empty(t, bundles[1])

	// A typed observer cannot join a wildcard bucket.
	_, err = Observe(b, keyAudit, func(int) {})
	require.ErrorIs(t, err, ErrPayloadTypeMismatch)
}

func TestRequestGenericTypeMismatchResponse(t *testing.T) {
	b := newTestBus(t)

	// Responder answers on a bucket already typed int; a string request
	// correlator cannot register its transient observer there.
	_, err := Observe(b, keyRequest, func(string) {})
	require.NoError(t, err)
	_, err = Observe(b, keyResponse, func(int) {})
	require.NoError(t, err)

	_, err = Request[string](b, keyRequest, keyResponse, 50*time.Millisecond, "q")
	require.ErrorIs(t, err, ErrPayloadTypeMismatch)
}
