package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ShowtimeRepo reads showtimes and their rooms.
type ShowtimeRepo struct {
	db *sql.DB
}

func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const showtimeColumns = `id, movie_id, cinema_room_id, start_time, end_time, price, status`

func scanShowtime(row *sql.Row) (*model.Showtime, error) {
	var s model.Showtime
	err := row.Scan(&s.ID, &s.MovieID, &s.CinemaRoomID, &s.StartTime, &s.EndTime, &s.Price, &s.Status)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// GetByID returns the showtime or ErrNotFound.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	q := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ?`
	return scanShowtime(r.db.QueryRowContext(ctx, q, id))
}

// LockByIDTx reads the showtime with a row lock held until tx ends. Booking
// creation takes this lock first, so concurrent bookings for the same
// showtime run their seat check and insert one at a time.
func (r *ShowtimeRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	q := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ? FOR UPDATE`
	return scanShowtime(tx.QueryRowContext(ctx, q, id))
}

// GetRoom returns the room a showtime is screened in.
func (r *ShowtimeRepo) GetRoom(ctx context.Context, showtimeID uint64) (*model.Room, error) {
	const q = "SELECT cr.id, cr.name, cr.`rows`, cr.`columns` " +
		`FROM showtimes s
		 JOIN cinema_rooms cr ON cr.id = s.cinema_room_id
		 WHERE s.id = ?`
	var room model.Room
	if err := r.db.QueryRowContext(ctx, q, showtimeID).Scan(&room.ID, &room.Name, &room.Rows, &room.Columns); err != nil {
		return nil, translate(err)
	}
	return &room, nil
}
