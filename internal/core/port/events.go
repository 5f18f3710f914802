package port

import "context"

// EventPublisher emits account domain events to the platform event stream.
// Implementations must not block request handling on broker availability.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}
