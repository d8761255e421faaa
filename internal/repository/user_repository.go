package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// UserRepo stores accounts of every role, including walk-in customers.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, email, phone_number, full_name, password_hash, role, is_active, created_at, updated_at"

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                 model.User
		email, phone, pwd sql.NullString
	)
	err := row.Scan(&u.ID, &email, &phone, &u.FullName, &pwd, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	u.Email, u.PhoneNumber, u.PasswordHash = email.String, phone.String, pwd.String
	return &u, nil
}

// Create inserts u and sets its ID. Email is normalised to lower case.
// A taken email or phone number yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, phone_number, full_name, password_hash, role, is_active) VALUES (?,?,?,?,?,?)",
		nullString(u.Email), nullString(u.PhoneNumber), u.FullName, nullString(u.PasswordHash), u.Role, u.IsActive)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetCustomerByPhone fetches an active customer account by phone number.
func (r *UserRepo) GetCustomerByPhone(ctx context.Context, phone string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone_number=? AND role=? AND is_active=TRUE LIMIT 1",
		strings.TrimSpace(phone), model.RoleCustomer))
}
