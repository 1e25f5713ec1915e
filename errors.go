package notibus

import "errors"

// Operation errors. All failures cross the public boundary as one of these
// sentinels (possibly wrapped); match with errors.Is.
var (
	// ErrObserverNotFound is returned when an observer id does not identify a
	// live observer, including ids that were already removed.
	ErrObserverNotFound = errors.New("notibus: observer not found")

	// ErrNotificationNotFound is returned when posting to a key with no
	// registered observers.
	ErrNotificationNotFound = errors.New("notibus: notification not found")

	// ErrPayloadTypeMismatch is returned when a payload's type signature does
	// not match the signature established by the key's first observer.
	ErrPayloadTypeMismatch = errors.New("notibus: payload type mismatch")

	// ErrObserverIDExhausted is returned by AddObserver when the id space is
	// exhausted.
	ErrObserverIDExhausted = errors.New("notibus: no more observer ids")

	// ErrTimeout is returned by PostAndWait when no response arrives within
	// the deadline.
	ErrTimeout = errors.New("notibus: timed out waiting for response")

	// ErrBusClosed is returned by operations on a closed bus.
	ErrBusClosed = errors.New("notibus: bus is closed")
)
