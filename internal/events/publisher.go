package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher publishes portal events.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type BusConfig struct {
	KafkaBrokers  []string
	Topic         string
	ConsumerGroup string
}

// Bus bundles the publisher and subscriber sides of one transport.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Topic      string

	shared bool
}

// NewBus connects to kafka when brokers are configured and falls back to an
// in-process gochannel otherwise.
func NewBus(cfg BusConfig, logger *slog.Logger) (*Bus, error) {
	wlog := watermill.NewSlogLogger(logger)

	if len(cfg.KafkaBrokers) == 0 {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wlog)
		return &Bus{Publisher: ch, Subscriber: ch, Topic: cfg.Topic, shared: true}, nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wlog)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = "student-power-portal"
	}
	sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       cfg.KafkaBrokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: group,
	}, wlog)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("kafka subscriber: %w", err)
	}
	return &Bus{Publisher: pub, Subscriber: sub, Topic: cfg.Topic}, nil
}

func (b *Bus) Close() error {
	err := b.Publisher.Close()
	if b.shared || b.Subscriber == nil {
		return err
	}
	if serr := b.Subscriber.Close(); serr != nil && err == nil {
		err = serr
	}
	return err
}

type watermillPublisher struct {
	bus    *Bus
	logger *slog.Logger
}

// NewWatermillPublisher publishes events as JSON messages on the bus topic.
func NewWatermillPublisher(bus *Bus, logger *slog.Logger) EventPublisher {
	return &watermillPublisher{bus: bus, logger: logger}
}

func (p *watermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", string(event.Type))
	msg.SetContext(ctx)

	if err := p.bus.Publisher.Publish(p.bus.Topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.logger.Debug("event published", "type", event.Type, "id", event.ID)
	return nil
}

func (p *watermillPublisher) Close() error {
	return p.bus.Close()
}

// SafePublish publishes and logs failures; user actions never fail because
// an event could not be delivered.
func SafePublish(ctx context.Context, pub EventPublisher, logger *slog.Logger, event *Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "event publish failed", "type", event.Type, "error", err)
	}
}
