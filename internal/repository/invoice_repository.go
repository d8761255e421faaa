package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// InvoiceRepo reads and writes the invoice attached to each booking.
type InvoiceRepo struct {
	db *sql.DB
}

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

// CreateTx inserts the invoice of a booking and sets its generated ID.
func (r *InvoiceRepo) CreateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error {
	const q = `INSERT INTO invoices (ticket_booking_id, payment_method, payment_status, amount) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, inv.BookingID, inv.PaymentMethod, inv.PaymentStatus, inv.Amount)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

// GetByBooking returns the invoice of a booking.
func (r *InvoiceRepo) GetByBooking(ctx context.Context, bookingID uint64) (*model.Invoice, error) {
	const q = `SELECT id, ticket_booking_id, payment_method, payment_status, amount, payment_date, created_at, updated_at
		FROM invoices WHERE ticket_booking_id = ?`
	var (
		inv  model.Invoice
		paid sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, bookingID).Scan(&inv.ID, &inv.BookingID, &inv.PaymentMethod,
		&inv.PaymentStatus, &inv.Amount, &paid, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if paid.Valid {
		t := paid.Time
		inv.PaymentDate = &t
	}
	return &inv, nil
}

// UpdateTx changes the payment fields of a booking's invoice. Nil arguments
// are left as they are; paidAt, when set, is written to payment_date.
func (r *InvoiceRepo) UpdateTx(ctx context.Context, tx *sql.Tx, bookingID uint64, method *model.PaymentMethod, status *model.PaymentStatus, paidAt *time.Time) error {
	var (
		sets []string
		args []any
	)
	if method != nil {
		sets = append(sets, "payment_method = ?")
		args = append(args, string(*method))
	}
	if status != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, string(*status))
	}
	if paidAt != nil {
		sets = append(sets, "payment_date = ?")
		args = append(args, *paidAt)
	}
	if len(sets) == 0 {
		return nil
	}
	q := `UPDATE invoices SET ` + strings.Join(sets, ", ") + ` WHERE ticket_booking_id = ?`
	res, err := tx.ExecContext(ctx, q, append(args, bookingID)...)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// MarkPaidTx records a completed payment on the invoice of a booking.
func (r *InvoiceRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, bookingID uint64, method model.PaymentMethod, at time.Time) error {
	paid := model.PaymentPaid
	return r.UpdateTx(ctx, tx, bookingID, &method, &paid, &at)
}

// DeleteByBookingTx removes the invoice of a booking.
func (r *InvoiceRepo) DeleteByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE ticket_booking_id = ?`, bookingID)
	return err
}
