package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// FoodRepo reads the concession catalog and writes food_orders rows.
type FoodRepo struct {
	db *sql.DB
}

func NewFoodRepo(db *sql.DB) *FoodRepo { return &FoodRepo{db: db} }

// GetAvailableByIDs returns the foods among ids that exist and are
// available. Missing or unavailable ids are simply absent from the result.
func (r *FoodRepo) GetAvailableByIDs(ctx context.Context, ids []uint64) ([]model.Food, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT id, name, price, is_available FROM foods WHERE is_available = TRUE AND id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Food
	for rows.Next() {
		var f model.Food
		if err := rows.Scan(&f.ID, &f.Name, &f.Price, &f.IsAvailable); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateOrdersBulkTx inserts all food order lines of a booking in one
// statement. An empty slice is a no-op.
func (r *FoodRepo) CreateOrdersBulkTx(ctx context.Context, tx *sql.Tx, orders []model.FoodOrder) error {
	if len(orders) == 0 {
		return nil
	}
	query := `INSERT INTO food_orders (ticket_booking_id, food_id, quantity, price) VALUES `
	args := make([]any, 0, len(orders)*4)
	for i, o := range orders {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, o.BookingID, o.FoodID, o.Quantity, o.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// DeleteOrdersByBookingTx removes every food order line of a booking.
func (r *FoodRepo) DeleteOrdersByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM food_orders WHERE ticket_booking_id = ?`, bookingID)
	return err
}
