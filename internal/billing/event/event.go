// Package event holds billing payload types used by bus tests; it shares its
// base package name with shipping/event on purpose.
package event

// Message is a billing event payload.
type Message struct {
	ID string
}
