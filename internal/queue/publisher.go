package queue

import (
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
)

// NewPublisher returns the publisher selected by cfg.Broker.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Broker {
	case "kafka":
		prod, err := NewSyncProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		return NewKafkaPublisher(prod, cfg.KafkaTopic), nil
	case "none":
		return Nop{}, nil
	default:
		return NewRabbitPublisher(cfg.AMQPURL, cfg.Queue, log), nil
	}
}
