package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Search lists showtimes matching q ordered by start time, together with
// the total number of matches.
func (r *ShowtimeRepo) Search(ctx context.Context, q model.ShowtimeQuery) ([]model.ShowtimeListing, int, error) {
	var where []string
	var args []any

	switch q.When {
	case model.WhenAny:
	case model.WhenActive:
		where = append(where, "s.end_time >= ?")
		args = append(args, q.Now)
	default:
		where = append(where, "s.start_time > ?")
		args = append(args, q.Now)
	}
	if q.Title != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Room != "" {
		where = append(where, "LOWER(cr.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Room)+"%")
	}
	if q.Date != nil {
		where = append(where, "DATE(s.start_time) = ?")
		args = append(args, q.Date.Format("2006-01-02"))
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	const from = `
		FROM showtimes s
		JOIN movies m        ON m.id = s.movie_id
		JOIN cinema_rooms cr ON cr.id = s.cinema_room_id
		WHERE `

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT s.id, s.movie_id, m.title, m.age_rating, cr.id, cr.name,
			s.start_time, s.end_time, s.price, s.status` + from + cond + `
		ORDER BY s.start_time ASC, s.id ASC
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.ShowtimeListing, 0, q.Limit)
	for rows.Next() {
		var l model.ShowtimeListing
		if err := rows.Scan(&l.ID, &l.MovieID, &l.MovieTitle, &l.AgeRating, &l.RoomID, &l.RoomName,
			&l.StartTime, &l.EndTime, &l.Price, &l.Status); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}
