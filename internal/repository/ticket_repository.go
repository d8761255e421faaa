package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// TicketRepo writes tickets rows, one per seat per booking.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// CreateBulkTx inserts all tickets of a booking in a single statement.
func (r *TicketRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	query := `INSERT INTO tickets (ticket_booking_id, seat_id, price) VALUES `
	args := make([]any, 0, len(tickets)*3)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, t.BookingID, t.SeatID, t.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return translate(err)
}

// SeatIDsByBookingTx returns the seats ticketed by a booking.
func (r *TicketRepo) SeatIDsByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
	return queryIDs(ctx, tx, `SELECT seat_id FROM tickets WHERE ticket_booking_id = ? ORDER BY seat_id`, bookingID)
}

// DeleteByBookingTx removes the tickets of a booking.
func (r *TicketRepo) DeleteByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE ticket_booking_id = ?`, bookingID)
	return err
}
