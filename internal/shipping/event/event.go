// Package event holds shipping payload types used by bus tests; it shares its
// base package name with billing/event on purpose.
package event

// Message is a shipping event payload.
type Message struct {
	ID string
}
