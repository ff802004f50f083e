package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/models/events"
)

// Subscriber reads document changes from a topic. Every instance needs to see
// every change, so each one consumes with its own group id.
type Subscriber struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewSubscriber(brokers []string, topic, groupID string, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
		}),
		logger: logger.Named("kafka"),
	}
}

// Subscribe blocks, handing every decoded event to handle, until ctx is done.
// Undecodable messages are logged and skipped.
func (s *Subscriber) Subscribe(ctx context.Context, handle func(events.DocumentChanged)) error {
	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil // reader closed
			}
			s.logger.Error("kafka read", zap.Error(err))
			continue
		}

		var evt events.DocumentChanged
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			s.logger.Error("decode document change",
				zap.String("key", string(m.Key)),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			continue
		}
		handle(evt)
	}
}

func (s *Subscriber) Close() error {
	return s.reader.Close()
}

var _ interfaces.EventSubscriber = (*Subscriber)(nil)
