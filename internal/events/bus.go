package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const metadataEventType = "event_type"

// Bus fans events out to every live dashboard session over an in-process
// watermill channel and optionally forwards them to external publishers.
type Bus struct {
	pubSub     *gochannel.GoChannel
	forwarders []message.Publisher
	bufferSize int
	logger     *slog.Logger

	sessions atomic.Int64
	dropped  atomic.Int64
}

type BusOption func(*Bus)

// WithForwarder mirrors every event to pub, e.g. Kafka. Forwarding failures
// are logged and never reach the publisher's caller.
func WithForwarder(pub message.Publisher) BusOption {
	return func(b *Bus) {
		if pub != nil {
			b.forwarders = append(b.forwarders, pub)
		}
	}
}

func NewBus(bufferSize int, logger *slog.Logger, opts ...BusOption) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(bufferSize),
		}, watermill.NewSlogLogger(logger)),
		bufferSize: bufferSize,
		logger:     logger.With("component", "event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, body)
	msg.Metadata.Set(metadataEventType, string(event.Type))

	if err := b.pubSub.Publish(Topic, msg); err != nil {
		b.logger.WarnContext(ctx, "Event broadcast failed",
			"event", event.Type, "uid", event.Payload.UID, "error", err)
	}

	for _, fwd := range b.forwarders {
		if err := fwd.Publish(Topic, msg.Copy()); err != nil {
			b.logger.WarnContext(ctx, "Event forward failed",
				"event", event.Type, "uid", event.Payload.UID, "error", err)
		}
	}
	return nil
}

// Subscribe registers a session. Events that arrive while the session's
// buffer is full are dropped for that session only.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event, b.bufferSize)
	b.sessions.Add(1)

	go func() {
		defer close(out)
		defer b.sessions.Add(-1)

		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("Dropping undecodable event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- event:
			default:
				b.dropped.Add(1)
				b.logger.Debug("Session buffer full, event missed",
					"event", event.Type, "uid", event.Payload.UID)
			}
		}
	}()

	return out, nil
}

// Sessions is the number of live subscriptions.
func (b *Bus) Sessions() int64 {
	return b.sessions.Load()
}

// Dropped counts per-session delivery misses since start.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Bus) Close() error {
	var firstErr error
	for _, fwd := range b.forwarders {
		if err := fwd.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.pubSub.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
