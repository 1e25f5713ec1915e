package notibus

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	defaultOptions []Option
	defaultOptMu   sync.Mutex
)

// Option configures a Bus.
type Option func(*Bus)

// Configure sets options for the process-wide default bus. It must be called
// before the first use of Default or any package-level operation; once the
// default bus exists, further calls have no effect.
func Configure(opts ...Option) {
	defaultOptMu.Lock()
	defaultOptions = opts
	defaultOptMu.Unlock()
}

// WithWorkers sets the initial worker pool size for asynchronous delivery.
// The default scales with the CPU count. The pool can be resized later with
// ResizeWorkerPool.
func WithWorkers(n int) Option {
	return func(b *Bus) {
		if n >= 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the structured logger. The default is a no-op logger, so an
// unconfigured bus stays silent.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bus) {
		b.log = l
	}
}

// WithClock sets the clock used for PostAndWait timeouts. Tests substitute a
// mock clock to exercise timeout paths without real waiting.
func WithClock(c clock.Clock) Option {
	return func(b *Bus) {
		if c != nil {
			b.clk = c
		}
	}
}

// WithMetrics registers the bus's prometheus collectors with reg. Without
// this option no metrics are collected.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(b *Bus) {
		b.metricsReg = reg
	}
}

// WithIDLimit caps the observer id counter. The default is the full positive
// int64 range; tests lower it to exercise exhaustion.
func WithIDLimit(limit int64) Option {
	return func(b *Bus) {
		if limit > 0 {
			b.idLimit = limit
		}
	}
}
