package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_KeyedByBookingCode(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	prod := mocks.NewSyncProducer(t, cfg)
	prod.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "booking.events" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "BK20261019ABCDEF12" {
			return errors.New("wrong key " + string(key))
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var ev BookingEvent
		return json.Unmarshal(raw, &ev)
	})

	p := NewKafkaPublisher(prod, "booking.events")
	require.NoError(t, p.Publish(context.Background(), NewEvent(BookingCreated, sampleDetail(), time.Now())))
	assert.NoError(t, p.Close())
}

func TestKafkaPublisher_PropagatesSendError(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	prod := mocks.NewSyncProducer(t, cfg)
	prod.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisher(prod, "booking.events")
	err := p.Publish(context.Background(), NewEvent(BookingCreated, sampleDetail(), time.Now()))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	_ = p.Close()
}
