package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo reads and writes ticket_bookings and assembles booking detail
// views from the child tables.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.booking_code, b.customer_id, b.showtime_id, b.booking_date, b.status, b.created_at, b.updated_at`

// summaryFrom joins a booking with the customer, movie, room and showtime
// names shown in lists and details.
const summaryFrom = `FROM ticket_bookings b
	JOIN users u ON u.id = b.customer_id
	JOIN showtimes s ON s.id = b.showtime_id
	JOIN movies m ON m.id = s.movie_id
	JOIN cinema_rooms cr ON cr.id = s.cinema_room_id`

const summaryColumns = bookingColumns + `, u.full_name, COALESCE(u.phone_number, ''), m.title, cr.name, s.start_time, s.end_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.BookingCode, &b.CustomerID, &b.ShowtimeID, &b.BookingDate, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func summaryDest(s *model.BookingSummary) []any {
	return []any{
		&s.ID, &s.BookingCode, &s.CustomerID, &s.ShowtimeID, &s.BookingDate, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		&s.CustomerName, &s.CustomerPhone, &s.MovieTitle, &s.RoomName, &s.StartTime, &s.EndTime,
	}
}

func activeStatusArgs() (string, []any) {
	args := make([]any, len(model.ActiveBookingStatuses))
	for i, s := range model.ActiveBookingStatuses {
		args[i] = string(s)
	}
	return placeholders(len(args)), args
}

// ActiveSeatIDs returns the seats of a showtime held by active bookings.
func (r *BookingRepo) ActiveSeatIDs(ctx context.Context, showtimeID uint64) ([]uint64, error) {
	ph, statusArgs := activeStatusArgs()
	q := `SELECT t.seat_id FROM tickets t
		JOIN ticket_bookings b ON b.id = t.ticket_booking_id
		WHERE b.showtime_id = ? AND b.status IN (` + ph + `)`
	return queryIDs(ctx, r.db, q, append([]any{showtimeID}, statusArgs...)...)
}

// ConflictingSeatIDsTx returns which of seatIDs are already held by an
// active booking of the showtime. The read takes shared locks on the
// matching rows so they cannot change before tx commits.
func (r *BookingRepo) ConflictingSeatIDsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	ph, statusArgs := activeStatusArgs()
	q := `SELECT DISTINCT t.seat_id FROM tickets t
		JOIN ticket_bookings b ON b.id = t.ticket_booking_id
		WHERE b.showtime_id = ? AND b.status IN (` + ph + `) AND t.seat_id IN (` + placeholders(len(seatIDs)) + `)
		ORDER BY t.seat_id
		LOCK IN SHARE MODE`
	args := append([]any{showtimeID}, statusArgs...)
	args = append(args, idArgs(seatIDs)...)
	return queryIDs(ctx, tx, q, args...)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]uint64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateTx inserts a booking and sets its generated ID. A booking_code
// collision surfaces as ErrDuplicate.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO ticket_bookings (booking_code, customer_id, showtime_id, booking_date, status) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.BookingCode, b.CustomerID, b.ShowtimeID, b.BookingDate, b.Status)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns the bare booking row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM ticket_bookings b WHERE b.id = ?`
	return scanBooking(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDForUpdateTx returns the booking row locked until tx ends.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM ticket_bookings b WHERE b.id = ? FOR UPDATE`
	return scanBooking(tx.QueryRowContext(ctx, q, id))
}

// GetIDByCode resolves a booking code to the booking id.
func (r *BookingRepo) GetIDByCode(ctx context.Context, code string) (uint64, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM ticket_bookings WHERE booking_code = ?`, code).Scan(&id)
	return id, translate(err)
}

// GetDetail loads a booking with its names, tickets, food orders and
// invoice. It returns ErrNotFound when the booking does not exist.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	q := `SELECT ` + summaryColumns + `, m.duration_min, m.age_rating, s.price ` + summaryFrom + ` WHERE b.id = ?`
	var d model.BookingDetail
	dest := append(summaryDest(&d.BookingSummary), &d.MovieDuration, &d.MovieRating, &d.BasePrice)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(dest...); err != nil {
		return nil, translate(err)
	}

	var err error
	if d.Tickets, err = r.ticketDetails(ctx, id); err != nil {
		return nil, err
	}
	if d.FoodOrders, err = r.foodOrderDetails(ctx, id); err != nil {
		return nil, err
	}
	inv, err := NewInvoiceRepo(r.db).GetByBooking(ctx, id)
	switch {
	case err == nil:
		d.Invoice = inv
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return &d, nil
}

func (r *BookingRepo) ticketDetails(ctx context.Context, bookingID uint64) ([]model.TicketDetail, error) {
	const q = "SELECT t.id, t.ticket_booking_id, t.seat_id, t.price, t.created_at, s.`row`, s.`column`, s.name, st.name, st.price " +
		`FROM tickets t
		 JOIN seats s ON s.id = t.seat_id
		 JOIN seat_types st ON st.id = s.seat_type_id
		 WHERE t.ticket_booking_id = ?
		 ORDER BY s.` + "`row`, s.`column`"
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TicketDetail{}
	for rows.Next() {
		var t model.TicketDetail
		if err := rows.Scan(&t.ID, &t.BookingID, &t.SeatID, &t.Price, &t.CreatedAt,
			&t.Row, &t.Column, &t.SeatName, &t.SeatTypeName, &t.SeatTypePrice); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *BookingRepo) foodOrderDetails(ctx context.Context, bookingID uint64) ([]model.FoodOrderDetail, error) {
	const q = `SELECT fo.id, fo.ticket_booking_id, fo.food_id, fo.quantity, fo.price, fo.created_at, f.name, f.price
		FROM food_orders fo
		JOIN foods f ON f.id = fo.food_id
		WHERE fo.ticket_booking_id = ?
		ORDER BY fo.id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.FoodOrderDetail{}
	for rows.Next() {
		var f model.FoodOrderDetail
		if err := rows.Scan(&f.ID, &f.BookingID, &f.FoodID, &f.Quantity, &f.Price, &f.CreatedAt,
			&f.FoodName, &f.FoodUnitPrice); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// List returns one page of bookings matching f, newest first, and the
// total number of matching rows. f.Page and f.Limit must already be
// normalised by the caller.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.BookingSummary, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		where = append(where, "b.status = ?")
		args = append(args, string(*f.Status))
	}
	if f.CustomerID != nil {
		where = append(where, "b.customer_id = ?")
		args = append(args, *f.CustomerID)
	}
	if f.ShowtimeID != nil {
		where = append(where, "b.showtime_id = ?")
		args = append(args, *f.ShowtimeID)
	}
	if f.BookingDate != nil {
		where = append(where, "DATE(b.created_at) = ?")
		args = append(args, f.BookingDate.Format("2006-01-02"))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+summaryFrom+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + summaryColumns + ` ` + summaryFrom + clause + ` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`
	pageArgs := append(append([]any{}, args...), f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, q, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.BookingSummary{}
	for rows.Next() {
		var s model.BookingSummary
		if err := rows.Scan(summaryDest(&s)...); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// UpdateStatusTx sets the status of a booking.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE ticket_bookings SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// DeleteTx removes the booking row. Children must be deleted first.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM ticket_bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// CancelPendingBeforeTx cancels every pending booking created before cutoff
// and returns the bookings it cancelled.
func (r *BookingRepo) CancelPendingBeforeTx(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]model.ExpiredBooking, error) {
	const sel = `SELECT id, booking_code, customer_id, showtime_id FROM ticket_bookings
		WHERE status = ? AND created_at < ? ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, sel, model.BookingPending, cutoff)
	if err != nil {
		return nil, err
	}
	var expired []model.ExpiredBooking
	for rows.Next() {
		var e model.ExpiredBooking
		if err := rows.Scan(&e.ID, &e.BookingCode, &e.CustomerID, &e.ShowtimeID); err != nil {
			rows.Close()
			return nil, err
		}
		expired = append(expired, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(expired))
	for i, e := range expired {
		ids[i] = e.ID
	}
	upd := `UPDATE ticket_bookings SET status = ? WHERE id IN (` + placeholders(len(ids)) + `)`
	if _, err := tx.ExecContext(ctx, upd, append([]any{model.BookingCancelled}, idArgs(ids)...)...); err != nil {
		return nil, err
	}
	return expired, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
