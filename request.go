package notibus

import (
	"sync"
	"time"
)

// PostAndWait layers a synchronous request/response exchange on the bus: it
// registers a transient one-shot observer on responseKey with the given
// response signature, posts the request synchronously on requestKey, and
// blocks until a response arrives or timeout elapses. The transient observer
// is deregistered before PostAndWait returns on every path, including request
// failure and timeout, so no exchange ever leaks an observer.
//
// A request-post failure (no observers on requestKey, or a payload mismatch)
// is returned immediately without waiting. On success the captured response
// argument bundle is returned; after the deadline, ErrTimeout.
func (b *Bus) PostAndWait(requestKey, responseKey Key, responseSig Signature, timeout time.Duration, args ...any) ([]any, error) {
	result := make(chan []any, 1)
	var once sync.Once
	id, err := b.AddObserver(responseKey, responseSig, func(resp ...any) any {
		once.Do(func() {
			result <- resp
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = b.RemoveObserver(id)
	}()

	if _, err := b.Post(requestKey, args...); err != nil {
		return nil, err
	}

	timer := b.clk.Timer(timeout)
	defer timer.Stop()

	select {
	case resp := <-result:
		return resp, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// PostAndWait performs a request/response exchange on the default bus.
func PostAndWait(requestKey, responseKey Key, responseSig Signature, timeout time.Duration, args ...any) ([]any, error) {
	return Default().PostAndWait(requestKey, responseKey, responseSig, timeout, args...)
}
