package interfaces

import (
	"context"

	"github.com/sheikh-saqib/credit-tracker/internal/models/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.DocumentChanged) error
}

// EventSubscriber delivers every change published on a topic until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handle func(events.DocumentChanged)) error
}
