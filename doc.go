// Package notibus is a typed in-process publish/subscribe notification bus.
//
// Producers post payloads against integer notification keys; observers
// register type-erased callbacks against a key and receive matching posts
// either synchronously on the caller's goroutine or asynchronously on a
// resizable worker pool. Every key carries exactly one payload type
// signature, fixed by its first observer and validated before any callback
// runs, so payload-shape mistakes fail fast instead of surfacing inside a
// handler.
//
// Quick example:
//
//	const orderCreated notibus.Key = 1
//
//	id, _ := notibus.Observe(notibus.Default(), orderCreated, func(orderID string) {
//		// handle the order...
//	})
//
//	notibus.Post(orderCreated, "ORDER-123")
//	notibus.RemoveObserver(id)
//
// A process-wide default bus is lazily constructed on first use; independent
// instances come from New. PostAndWait layers a synchronous request/response
// exchange with a timeout on top of the bus, and RemoveObserver blocks until
// in-flight asynchronous deliveries to that observer have finished, so a
// successful removal means the callback will never run again.
package notibus
