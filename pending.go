package notibus

import (
	"context"
	"sync"
)

// pendingEntry counts outstanding asynchronous invocations for one index
// value (an observer id or a key). The zero channel is closed when the count
// drops back to zero, releasing every waiter at once.
type pendingEntry struct {
	n    int
	zero chan struct{}
}

// pendingTracker records in-flight asynchronous callback executions by
// observer id and by notification key, so removal can block until no callback
// for the affected observers is still running. A waiter must not be the
// worker executing a tracked task; the Handler contract forbids synchronous
// self-removal for exactly that reason.
type pendingTracker struct {
	mu         sync.Mutex
	byObserver map[ObserverID]*pendingEntry
	byKey      map[Key]*pendingEntry
	total      int
}

func newPendingTracker() *pendingTracker {
	return &pendingTracker{
		byObserver: make(map[ObserverID]*pendingEntry),
		byKey:      make(map[Key]*pendingEntry),
	}
}

// begin records a scheduled invocation. It must run before the task is handed
// to the pool so that a racing removal observes the task.
func (t *pendingTracker) begin(id ObserverID, key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bump(t.byObserver, id)
	bump(t.byKey, key)
	t.total++
}

// end records a finished invocation, whether the callback returned or
// panicked.
func (t *pendingTracker) end(id ObserverID, key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	drop(t.byObserver, id)
	drop(t.byKey, key)
	t.total--
}

// waitObserver blocks until no invocation for id is outstanding, or ctx is
// done.
func (t *pendingTracker) waitObserver(ctx context.Context, id ObserverID) error {
	for {
		t.mu.Lock()
		e, ok := t.byObserver[id]
		if !ok {
			t.mu.Unlock()
			return nil
		}
		zero := e.zero
		t.mu.Unlock()

		select {
		case <-zero:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// waitKey blocks until no invocation for any observer currently or formerly
// under key is outstanding, or ctx is done.
func (t *pendingTracker) waitKey(ctx context.Context, key Key) error {
	for {
		t.mu.Lock()
		e, ok := t.byKey[key]
		if !ok {
			t.mu.Unlock()
			return nil
		}
		zero := e.zero
		t.mu.Unlock()

		select {
		case <-zero:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// outstanding returns the number of scheduled-but-unfinished invocations.
func (t *pendingTracker) outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func bump[K comparable](m map[K]*pendingEntry, k K) {
	e, ok := m[k]
	if !ok {
		e = &pendingEntry{zero: make(chan struct{})}
		m[k] = e
	}
	e.n++
}

func drop[K comparable](m map[K]*pendingEntry, k K) {
	e, ok := m[k]
	if !ok {
		return
	}
	e.n--
	if e.n == 0 {
		close(e.zero)
		delete(m, k)
	}
}
