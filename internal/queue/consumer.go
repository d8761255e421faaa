package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads booking events from RabbitMQ and appends one structured line
// per event to the audit logger.
type Consumer struct {
	url   string
	queue string
	log   *zap.Logger // operational log
	audit *zap.Logger // booking audit trail
}

func NewConsumer(url, queue string, log, audit *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, queue: queue, log: log, audit: audit}
}

// Run consumes until ctx is cancelled, redialing the broker with exponential
// backoff (1s doubling to 30s) whenever the connection is lost.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set qos failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("consuming booking events", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.Error("handle message failed", zap.Error(err))
				// reject without requeue to avoid a poison message loop
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and writes it to the audit log.
func (c *Consumer) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.BookingID == 0 {
		return fmt.Errorf("event %q missing type or booking id", ev.EventID)
	}
	fields := []zap.Field{
		zap.String("event_id", ev.EventID),
		zap.String("type", string(ev.Type)),
		zap.Uint64("booking_id", ev.BookingID),
		zap.String("booking_code", ev.BookingCode),
		zap.Uint64("customer_id", ev.CustomerID),
		zap.Uint64("showtime_id", ev.ShowtimeID),
		zap.Uint64s("seat_ids", ev.SeatIDs),
		zap.String("total_amount", ev.TotalAmount.String()),
		zap.Time("occurred_at", ev.OccurredAt),
	}
	if ev.PaymentMethod != "" {
		fields = append(fields, zap.String("payment_method", string(ev.PaymentMethod)))
	}
	c.audit.Info("booking event", fields...)
	return nil
}
