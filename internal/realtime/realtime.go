// Package realtime turns a pull-based document store into a push-based one.
//
// Store publishes every document it writes. Follow subscribes to those
// publications and hands documents written by other instances to the ledger
// services, which replace their state. Consistency is eventual and the last
// document to arrive wins: two instances editing at once can lose one edit.
package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/models/events"
)

// Store writes through to the wrapped store, then announces the new document.
type Store struct {
	base      interfaces.DocumentStore
	publisher interfaces.EventPublisher
	topic     string
	origin    string
	logger    *zap.Logger
	now       func() time.Time
}

func NewStore(base interfaces.DocumentStore, publisher interfaces.EventPublisher, topic, origin string, logger *zap.Logger) *Store {
	return &Store{
		base:      base,
		publisher: publisher,
		topic:     topic,
		origin:    origin,
		logger:    logger.Named("realtime"),
		now:       time.Now,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.base.Get(ctx, key)
}

// Set fails only when the underlying write fails. A failed announcement is
// logged; peers catch up with the next change.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.base.Set(ctx, key, value); err != nil {
		return err
	}

	evt := events.DocumentChanged{
		Key:        key,
		Origin:     s.origin,
		Document:   value,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, s.topic, evt); err != nil {
		s.logger.Error("publish document change", zap.String("key", key), zap.Error(err))
	}
	return nil
}

var _ interfaces.DocumentStore = (*Store)(nil)

// Applier accepts a whole document written elsewhere.
type Applier interface {
	Apply(document []byte) error
}

// Follow routes remote document changes to the applier registered for their
// key until ctx is done. Changes from origin itself are skipped.
func Follow(ctx context.Context, sub interfaces.EventSubscriber, origin string, appliers map[string]Applier, logger *zap.Logger) error {
	logger = logger.Named("realtime")
	return sub.Subscribe(ctx, func(evt events.DocumentChanged) {
		if evt.Origin == origin {
			return
		}
		applier, ok := appliers[evt.Key]
		if !ok {
			return
		}
		if err := applier.Apply(evt.Document); err != nil {
			logger.Error("apply remote document",
				zap.String("key", evt.Key),
				zap.String("origin", evt.Origin),
				zap.Error(err))
			return
		}
		logger.Info("remote document applied",
			zap.String("key", evt.Key),
			zap.String("origin", evt.Origin),
			zap.Time("occurred_at", evt.OccurredAt))
	})
}
