package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

const DefaultKafkaTopic = "kinship.family-changed"

// RecordProducer is the produce capability of the Kafka client.
type RecordProducer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// KafkaPublisher writes events keyed by family id, so every change to one
// family lands on the same partition in order.
type KafkaPublisher struct {
	producer RecordProducer
	topic    string
}

func NewKafkaPublisher(producer RecordProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event FamilyChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode family change: %w", err)
	}
	return p.producer.Produce(ctx, p.topic, []byte(event.FamilyID.String()), payload)
}
