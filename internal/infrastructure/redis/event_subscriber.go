package redis

import (
	"context"
	"encoding/json"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type EventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *EventSubscriber {
	return &EventSubscriber{client: client, log: log}
}

// SubscribeToBidEvents blocks until ctx is cancelled, delivering each event to
// the handler. A malformed payload or handler failure is logged and skipped.
func (s *EventSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := s.client.Subscribe(ctx, EventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	s.log.Info("subscribed to auction events", "channel", EventChannel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.BidEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Error("failed to decode event", "payload", msg.Payload, "error", err)
				continue
			}
			if err := handler(&event); err != nil {
				s.log.Error("failed to handle event",
					"type", event.Type, "auction_id", event.AuctionID, "error", err)
			}
		case <-ctx.Done():
			s.log.Info("event subscriber stopped")
			return ctx.Err()
		}
	}
}
