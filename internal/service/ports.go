// Package service implements the booking flow: the seat availability
// resolver, the booking orchestrator with its confirmation, update, delete
// and cleanup steps, the access gate, and the account operations behind the
// auth endpoints.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

// TxRunner runs fn inside one database transaction, committing when fn
// returns nil and rolling back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type ShowtimeStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
	LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error)
	GetRoom(ctx context.Context, showtimeID uint64) (*model.Room, error)
}

type SeatStore interface {
	ListViewsByRoom(ctx context.Context, roomID uint64) ([]model.SeatView, error)
	GetByIDsTx(ctx context.Context, tx *sql.Tx, roomID uint64, ids []uint64) ([]model.Seat, error)
}

// OccupancyStore answers which seats of a showtime are held.
type OccupancyStore interface {
	ActiveSeatIDs(ctx context.Context, showtimeID uint64) ([]uint64, error)
}

type BookingStore interface {
	OccupancyStore
	ConflictingSeatIDsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64) ([]uint64, error)
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error)
	GetIDByCode(ctx context.Context, code string) (uint64, error)
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.BookingSummary, int, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
	CancelPendingBeforeTx(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]model.ExpiredBooking, error)
}

type TicketStore interface {
	CreateBulkTx(ctx context.Context, tx *sql.Tx, tickets []model.Ticket) error
	SeatIDsByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error)
	DeleteByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error
}

type FoodStore interface {
	GetAvailableByIDs(ctx context.Context, ids []uint64) ([]model.Food, error)
	CreateOrdersBulkTx(ctx context.Context, tx *sql.Tx, orders []model.FoodOrder) error
	DeleteOrdersByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error
}

type InvoiceStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error
	UpdateTx(ctx context.Context, tx *sql.Tx, bookingID uint64, method *model.PaymentMethod, status *model.PaymentStatus, paidAt *time.Time) error
	MarkPaidTx(ctx context.Context, tx *sql.Tx, bookingID uint64, method model.PaymentMethod, at time.Time) error
	DeleteByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error
}

type CustomerStore interface {
	GetCustomerByPhone(ctx context.Context, phone string) (*model.User, error)
}

// SeatMapCache is a read-through cache of seat maps. Get reports the
// showtime's generation even on a miss; Set must be given that generation
// and drops the write when an Invalidate happened in between.
// Implementations treat every failure as a miss.
type SeatMapCache interface {
	Get(ctx context.Context, showtimeID uint64) (m *model.SeatMap, gen uint64, ok bool)
	Set(ctx context.Context, showtimeID, gen uint64, m *model.SeatMap)
	Invalidate(ctx context.Context, showtimeIDs ...uint64)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// TicketRenderer turns a booking into a printable e-ticket.
type TicketRenderer interface {
	Render(d *model.BookingDetail) ([]byte, error)
}

type nopCache struct{}

func (nopCache) Get(context.Context, uint64) (*model.SeatMap, uint64, bool) { return nil, 0, false }
func (nopCache) Set(context.Context, uint64, uint64, *model.SeatMap)        {}
func (nopCache) Invalidate(context.Context, ...uint64)                      {}
