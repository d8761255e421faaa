// Package queue carries booking events to a message broker and consumes them
// into the booking audit log.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// EventType names a booking lifecycle transition.
type EventType string

const (
	BookingCreated   EventType = "booking.created"
	BookingConfirmed EventType = "booking.confirmed"
	BookingCancelled EventType = "booking.cancelled"
)

// BookingEvent is published after a booking write commits. It carries enough
// for downstream consumers to log, notify or run analytics without querying
// the primary database.
type BookingEvent struct {
	EventID       string              `json:"event_id"`
	Type          EventType           `json:"type"`
	BookingID     uint64              `json:"booking_id"`
	BookingCode   string              `json:"booking_code"`
	CustomerID    uint64              `json:"customer_id"`
	ShowtimeID    uint64              `json:"showtime_id"`
	SeatIDs       []uint64            `json:"seat_ids"`
	TotalAmount   model.Money         `json:"total_amount"`
	PaymentMethod model.PaymentMethod `json:"payment_method,omitempty"`
	Payment       map[string]any      `json:"payment_details,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// NewEvent builds an event of type t from a hydrated booking.
func NewEvent(t EventType, d *model.BookingDetail, now time.Time) BookingEvent {
	ev := BookingEvent{
		EventID:     uuid.NewString(),
		Type:        t,
		BookingID:   d.ID,
		BookingCode: d.BookingCode,
		CustomerID:  d.CustomerID,
		ShowtimeID:  d.ShowtimeID,
		SeatIDs:     make([]uint64, 0, len(d.Tickets)),
		OccurredAt:  now.UTC(),
	}
	for _, tk := range d.Tickets {
		ev.SeatIDs = append(ev.SeatIDs, tk.SeatID)
	}
	if d.Invoice != nil {
		ev.TotalAmount = d.Invoice.Amount
		ev.PaymentMethod = d.Invoice.PaymentMethod
	}
	return ev
}

// NewExpiredEvent builds a cancellation event for a booking swept by cleanup.
func NewExpiredEvent(b model.ExpiredBooking, now time.Time) BookingEvent {
	return BookingEvent{
		EventID:     uuid.NewString(),
		Type:        BookingCancelled,
		BookingID:   b.ID,
		BookingCode: b.BookingCode,
		CustomerID:  b.CustomerID,
		ShowtimeID:  b.ShowtimeID,
		SeatIDs:     []uint64{},
		OccurredAt:  now.UTC(),
	}
}

// Publisher delivers booking events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
	Close() error
}

// Nop discards every event. It backs EVENTS_BROKER=none.
type Nop struct{}

func (Nop) Publish(context.Context, BookingEvent) error { return nil }
func (Nop) Close() error                                { return nil }
