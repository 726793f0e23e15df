package interfaces

import "context"

// EventPublisher delivers notification events. Delivery is best effort:
// callers never fail a committed operation because Publish failed.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
