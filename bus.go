package notibus

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Bus is an in-process notification center: an observer registry, a worker
// pool for asynchronous delivery, and the pending-task accounting that lets
// observer removal wait out in-flight callbacks. Instances are fully
// independent; observers registered on one bus are invisible to every other.
type Bus struct {
	mu       sync.Mutex
	registry *registry
	ids      *idPool
	pending  *pendingTracker
	pool     *workerPool

	clk     clock.Clock
	log     zerolog.Logger
	metrics *busMetrics

	closed    bool
	closeOnce sync.Once

	// configuration captured by options before finalization
	workers    int
	idLimit    int64
	metricsReg prometheus.Registerer
}

// New creates an independent Bus. Without options it uses a worker pool
// scaled from the CPU count, a no-op logger, the wall clock, and no metrics.
func New(opts ...Option) *Bus {
	b := &Bus{
		registry: newRegistry(),
		pending:  newPendingTracker(),
		pool:     newWorkerPool(),
		clk:      clock.New(),
		log:      zerolog.Nop(),
		workers:  defaultWorkerCount(),
		idLimit:  math.MaxInt64,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ids = newIDPool(b.idLimit)
	if b.metricsReg != nil {
		b.metrics = newBusMetrics(b.metricsReg)
	}
	b.pool.resize(b.workers)
	return b
}

// Default returns the process-wide bus, creating it on first use with any
// options previously captured by Configure.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultOptMu.Lock()
		opts := defaultOptions
		defaultOptMu.Unlock()
		defaultBus = New(opts...)
	})
	return defaultBus
}

func defaultWorkerCount() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}

// AddObserver registers a type-erased callback under key. The key's payload
// signature is fixed by its first observer; a differing signature fails with
// ErrPayloadTypeMismatch before any id is consumed. The returned id is
// strictly positive.
func (b *Bus) AddObserver(key Key, sig Signature, fn Handler) (ObserverID, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, ErrBusClosed
	}
	if bkt, ok := b.registry.buckets[key]; ok && bkt.sig != sig {
		b.mu.Unlock()
		return 0, ErrPayloadTypeMismatch
	}
	id, err := b.ids.allocate()
	if err != nil {
		b.mu.Unlock()
		return 0, err
	}
	if err := b.registry.insert(key, sig, id, fn); err != nil {
		b.ids.release(id)
		b.mu.Unlock()
		return 0, err
	}
	b.mu.Unlock()

	b.metrics.observerAdded()
	b.log.Debug().Int("key", int(key)).Int64("observer", int64(id)).Msg("observer added")
	return id, nil
}

// RemoveObserver unregisters an observer and blocks until no asynchronous
// invocation of it is still running. A second removal of the same id fails
// with ErrObserverNotFound. The wait is unbounded; use RemoveObserverContext
// to bound it.
func (b *Bus) RemoveObserver(id ObserverID) error {
	return b.RemoveObserverContext(context.Background(), id)
}

// RemoveObserverContext is RemoveObserver with a caller-bounded drain wait.
// When ctx is done before the drain completes, the observer is already
// unregistered and will receive no further deliveries, but in-flight
// callbacks were not awaited; ctx.Err is returned. The id is released back to
// the pool only once those callbacks finish.
func (b *Bus) RemoveObserverContext(ctx context.Context, id ObserverID) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	loc, ok := b.registry.locate(id)
	if !ok {
		b.mu.Unlock()
		return ErrObserverNotFound
	}
	// Drop the reverse-index entry now so a repeated removal fails, then wait
	// with the registry lock released so posting keeps flowing.
	b.registry.forget(id)
	b.mu.Unlock()

	err := b.pending.waitObserver(ctx, id)

	b.mu.Lock()
	b.registry.erase(loc)
	b.mu.Unlock()

	if err == nil {
		// Posts that snapshotted the bucket before the erase have already
		// registered their tasks; catch the stragglers.
		err = b.pending.waitObserver(ctx, id)
	}
	if err != nil {
		b.releaseWhenDrained(id)
		return err
	}

	b.mu.Lock()
	b.ids.release(id)
	b.mu.Unlock()

	b.metrics.observerRemoved()
	b.log.Debug().Int64("observer", int64(id)).Msg("observer removed")
	return nil
}

// releaseWhenDrained returns an id to the pool once its in-flight tasks have
// finished, so the id cannot be reallocated while the tracker still counts
// tasks against it.
func (b *Bus) releaseWhenDrained(id ObserverID) {
	go func() {
		_ = b.pending.waitObserver(context.Background(), id)
		b.mu.Lock()
		b.ids.release(id)
		b.mu.Unlock()
	}()
}

// RemoveAllObservers unregisters every observer under key, blocking until
// their in-flight asynchronous invocations finish, and returns the number
// removed. A key with no observers yields 0.
func (b *Bus) RemoveAllObservers(key Key) (int, error) {
	return b.RemoveAllObserversContext(context.Background(), key)
}

// RemoveAllObserversContext is RemoveAllObservers with a caller-bounded drain
// wait; the cancellation semantics match RemoveObserverContext.
func (b *Bus) RemoveAllObserversContext(ctx context.Context, key Key) (int, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, ErrBusClosed
	}
	_, members, ok := b.registry.snapshot(key)
	if !ok {
		b.mu.Unlock()
		return 0, nil
	}
	// Claim each member still present in the reverse index; members already
	// being removed by a racing RemoveObserver stay theirs.
	owned := make([]ObserverID, 0, len(members))
	locs := make([]location, 0, len(members))
	for _, o := range members {
		if loc, live := b.registry.locate(o.id); live {
			b.registry.forget(o.id)
			owned = append(owned, o.id)
			locs = append(locs, loc)
		}
	}
	b.mu.Unlock()

	err := b.pending.waitKey(ctx, key)

	b.mu.Lock()
	for _, loc := range locs {
		b.registry.erase(loc)
	}
	b.mu.Unlock()

	if err == nil {
		err = b.pending.waitKey(ctx, key)
	}
	if err != nil {
		for _, id := range owned {
			b.releaseWhenDrained(id)
		}
		return len(owned), err
	}

	b.mu.Lock()
	for _, id := range owned {
		b.ids.release(id)
	}
	b.mu.Unlock()

	for range owned {
		b.metrics.observerRemoved()
	}
	b.log.Debug().Int("key", int(key)).Int("count", len(owned)).Msg("observers removed")
	return len(owned), nil
}

// Post delivers a payload to every observer of key synchronously, on the
// calling goroutine, in registration order. All callbacks have completed when
// Post returns. The payload signature is validated before any callback runs.
// Returns the number of observers invoked.
func (b *Bus) Post(key Key, args ...any) (int, error) {
	return b.dispatch(key, SignatureOf(args...), args, false)
}

// PostAsync schedules a delivery of the payload to every observer of key on
// the worker pool and returns immediately with the observer count. Each
// observer's task receives its own copy of the argument bundle. Completion
// order across observers is unspecified.
func (b *Bus) PostAsync(key Key, args ...any) (int, error) {
	return b.dispatch(key, SignatureOf(args...), args, true)
}

func (b *Bus) dispatch(key Key, sig Signature, args []any, async bool) (int, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, ErrBusClosed
	}
	bucketSig, members, ok := b.registry.snapshot(key)
	if !ok {
		b.mu.Unlock()
		b.log.Warn().Int("key", int(key)).Msg("posting to unknown notification")
		b.metrics.post(async, outcomeNotFound)
		return 0, ErrNotificationNotFound
	}
	if !bucketSig.accepts(sig) {
		b.mu.Unlock()
		b.metrics.post(async, outcomeMismatch)
		return 0, ErrPayloadTypeMismatch
	}
	if async {
		// Track before submission so a racing removal sees the tasks.
		for _, o := range members {
			b.pending.begin(o.id, key)
		}
	}
	b.mu.Unlock()

	// The bus owns its copy of the argument bundle from here on; the caller
	// may return or reuse its slice before async tasks run.
	owned := make([]any, len(args))
	copy(owned, args)

	if async {
		for _, o := range members {
			o := o
			b.pool.push(func(int) {
				defer b.pending.end(o.id, key)
				b.invoke(o, owned)
			}, func() {
				b.pending.end(o.id, key)
			})
		}
	} else {
		for _, o := range members {
			b.invoke(o, owned)
		}
	}

	b.metrics.post(async, outcomeOK)
	b.metrics.deliveredCount(len(members))
	return len(members), nil
}

// invoke runs one observer callback with its own copy of the argument bundle
// and recovers panics so one failing observer cannot take down a worker or
// the posting goroutine.
func (b *Bus) invoke(o *observer, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.panicked()
			b.log.Error().
				Int("key", int(o.key)).
				Int64("observer", int64(o.id)).
				Interface("panic", r).
				Msg("observer callback panicked")
		}
	}()
	bundle := make([]any, len(args))
	copy(bundle, args)
	o.fn(bundle...)
}

// ResizeWorkerPool changes the number of workers delivering asynchronous
// posts. Growing spawns workers; shrinking retires the excess after their
// current task.
func (b *Bus) ResizeWorkerPool(n int) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.pool.resize(n)
	b.log.Debug().Int("workers", n).Msg("worker pool resized")
}

// Close shuts the bus down: new operations fail with ErrBusClosed, queued
// asynchronous deliveries drain, workers are joined, and all observers are
// released. Safe to call multiple times.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		b.pool.stop(true)

		b.mu.Lock()
		b.registry = newRegistry()
		b.ids = newIDPool(b.idLimit)
		b.mu.Unlock()
	})
}

// Stats returns a snapshot of the bus's runtime state.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	counts := b.registry.counts()
	b.mu.Unlock()
	return Stats{
		Workers:        b.pool.size(),
		IdleWorkers:    b.pool.idle(),
		QueuedTasks:    b.pool.queued(),
		PendingAsync:   b.pending.outstanding(),
		ObserverCounts: counts,
	}
}

// AddObserver registers an observer on the default bus.
func AddObserver(key Key, sig Signature, fn Handler) (ObserverID, error) {
	return Default().AddObserver(key, sig, fn)
}

// RemoveObserver unregisters an observer from the default bus.
func RemoveObserver(id ObserverID) error {
	return Default().RemoveObserver(id)
}

// RemoveAllObservers unregisters every observer under key on the default bus.
func RemoveAllObservers(key Key) (int, error) {
	return Default().RemoveAllObservers(key)
}

// Post delivers synchronously on the default bus.
func Post(key Key, args ...any) (int, error) {
	return Default().Post(key, args...)
}

// PostAsync delivers asynchronously on the default bus.
func PostAsync(key Key, args ...any) (int, error) {
	return Default().PostAsync(key, args...)
}

// ResizeWorkerPool resizes the default bus's worker pool.
func ResizeWorkerPool(n int) {
	Default().ResizeWorkerPool(n)
}

// Shutdown closes the default bus, draining pending asynchronous deliveries.
func Shutdown() {
	Default().Close()
}
