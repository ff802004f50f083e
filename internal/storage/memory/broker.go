package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/models/events"
)

// Broker is an in-process stand-in for the kafka topic, for running several
// instances inside one test binary. Every published event is handed to every
// subscriber. Topics are ignored, a Broker is one topic.
//
// It is not offered as a REALTIME mode: Follow skips an instance's own
// events, so a broker private to one process would never deliver anything.
type Broker struct {
	mu          sync.Mutex
	subscribers map[int]chan events.DocumentChanged
	nextID      int
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int]chan events.DocumentChanged)}
}

// Publish queues the event for every subscriber. A subscriber whose buffer is
// full misses the event, like a consumer that fell off the log.
func (b *Broker) Publish(ctx context.Context, topic string, event events.DocumentChanged) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe blocks, calling handle for each event, until ctx is done.
func (b *Broker) Subscribe(ctx context.Context, handle func(events.DocumentChanged)) error {
	ch := make(chan events.DocumentChanged, 64)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-ch:
			handle(evt)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

var (
	_ interfaces.EventPublisher  = (*Broker)(nil)
	_ interfaces.EventSubscriber = (*Broker)(nil)
)
