package events

import (
	"context"
	"fmt"
	"log/slog"
)

// Recorder persists events, e.g. into the audit archive.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// Consume subscribes to the bus topic and hands every event to rec until ctx
// is cancelled. Messages that cannot be decoded or recorded are logged and
// acked.
func Consume(ctx context.Context, bus *Bus, rec Recorder, logger *slog.Logger) error {
	msgs, err := bus.Subscriber.Subscribe(ctx, bus.Topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", bus.Topic, err)
	}

	go func() {
		for msg := range msgs {
			event, err := Unmarshal(msg.Payload)
			if err != nil {
				logger.Warn("dropping undecodable event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			if err := rec.Record(ctx, event); err != nil {
				logger.Error("record event", "type", event.Type, "error", err)
			}
			msg.Ack()
		}
	}()
	return nil
}
