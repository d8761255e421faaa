package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sql.DB
}

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// ListViewsByRoom returns every seat of a room joined with its seat type,
// ordered by row then column. Status is left empty for the caller to fill.
func (r *SeatRepo) ListViewsByRoom(ctx context.Context, roomID uint64) ([]model.SeatView, error) {
	const q = "SELECT s.id, s.name, s.`row`, s.`column`, st.name, st.price " +
		`FROM seats s
		 JOIN seat_types st ON st.id = s.seat_type_id
		 WHERE s.cinema_room_id = ?
		 ORDER BY s.` + "`row`, s.`column`"
	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SeatView
	for rows.Next() {
		var v model.SeatView
		if err := rows.Scan(&v.ID, &v.Name, &v.Row, &v.Column, &v.Type, &v.Surcharge); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetByIDsTx loads the seats with the given ids that belong to roomID.
// Seats of other rooms are omitted, so a length mismatch with ids means some
// requested seats do not exist for that room.
func (r *SeatRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, roomID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := "SELECT id, cinema_room_id, seat_type_id, name, `row`, `column` FROM seats WHERE cinema_room_id = ? AND id IN (" +
		placeholders(len(ids)) + ") ORDER BY id"
	args := append([]any{roomID}, idArgs(ids)...)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.CinemaRoomID, &s.SeatTypeID, &s.Name, &s.Row, &s.Column); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
