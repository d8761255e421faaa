package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// NewSyncProducer connects a sarama producer that waits for all in-sync
// replicas to acknowledge each message.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return prod, nil
}

// KafkaPublisher writes booking events to one topic, keyed by booking code
// so every event of a booking lands on the same partition in order.
type KafkaPublisher struct {
	prod  sarama.SyncProducer
	topic string
}

func NewKafkaPublisher(prod sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{prod: prod, topic: topic}
}

func (p *KafkaPublisher) Publish(_ context.Context, ev BookingEvent) error {
	val, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.BookingCode),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
	}
	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *KafkaPublisher) Close() error { return p.prod.Close() }
