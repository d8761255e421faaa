package model

import "time"

// User is an account row. Customers, staff and admins all live in the users
// table; a walk-in customer registered at the counter has a phone number but
// no email and no password.
//
// Fields:
//
//	ID           – primary key identifier, also the customer id on bookings.
//	Email        – unique login email, empty for walk-in customers.
//	PhoneNumber  – unique phone number used for staff lookups.
//	FullName     – display name.
//	PasswordHash – bcrypt hash, empty when the account cannot log in.
//	Role         – admin, staff or customer.
//	IsActive     – whether the account may authenticate.
type User struct {
	ID           uint64    `json:"id"`           // users.id
	Email        string    `json:"email"`        // users.email (nullable)
	PhoneNumber  string    `json:"phone_number"` // users.phone_number (nullable)
	FullName     string    `json:"full_name"`    // users.full_name
	PasswordHash string    `json:"-"`            // users.password_hash (nullable)
	Role         Role      `json:"role"`         // users.role
	IsActive     bool      `json:"is_active"`    // users.is_active
	CreatedAt    time.Time `json:"created_at"`   // users.created_at
	UpdatedAt    time.Time `json:"updated_at"`   // users.updated_at
}

// RefreshToken models an entry in the refresh_tokens table. Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
