// Package pubsub fans mapping change notifications out to in-process listeners.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// ReloadedEvent follows a successful reload of the mapping source.
	ReloadedEvent EventType = "reloaded"
	// ReloadFailedEvent follows a reload that left the previous mappings in place.
	ReloadFailedEvent EventType = "reload_failed"
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
