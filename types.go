package notibus

// Key identifies a logical notification channel. Keys are plain integers and
// carry no state of their own; a channel exists exactly as long as it has
// observers.
type Key int

// ObserverID identifies a registered observer. IDs are strictly positive,
// dense, and reused after release, so they stay small for the lifetime of the
// bus.
type ObserverID int64

// Handler is a type-erased observer callback. It receives the posted payload
// as an argument bundle and may return a value; the bus ignores the return.
//
// A handler must not synchronously remove its own observer id from within
// itself: removal waits for in-flight invocations, and a self-remove would
// wait on the very callback performing it.
type Handler func(args ...any) any

// Stats is a point-in-time snapshot of a Bus's runtime state.
type Stats struct {
	// Workers is the number of worker goroutines in the pool.
	Workers int

	// IdleWorkers is the number of workers currently blocked waiting for a task.
	IdleWorkers int

	// QueuedTasks is the number of tasks accepted but not yet picked up by a worker.
	QueuedTasks int

	// PendingAsync is the number of asynchronous observer invocations that have
	// been scheduled but have not finished.
	PendingAsync int

	// ObserverCounts maps each live notification key to its observer count.
	ObserverCounts map[Key]int
}
