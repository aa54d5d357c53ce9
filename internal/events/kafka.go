package events

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewKafkaForwarder publishes workflow events to brokers for downstream
// consumers (reporting, notifications). It is optional and fire-and-forget.
func NewKafkaForwarder(brokers []string, topic string, logger *slog.Logger) (message.Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka forwarder: no brokers configured")
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("kafka forwarder: %w", err)
	}

	if topic == "" || topic == Topic {
		return pub, nil
	}
	return &topicPublisher{Publisher: pub, topic: topic}, nil
}

// topicPublisher rewrites the bus topic to the configured Kafka topic.
type topicPublisher struct {
	message.Publisher
	topic string
}

func (p *topicPublisher) Publish(_ string, messages ...*message.Message) error {
	return p.Publisher.Publish(p.topic, messages...)
}
