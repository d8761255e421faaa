package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

type UserStore interface {
	CustomerStore
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Validate(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthSettings are the token and hashing parameters of AccountService.
type AuthSettings struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// Session is the token pair handed out on login, registration and refresh.
type Session struct {
	User    *model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// AccountService manages accounts and their sessions. Customers, staff and
// admins share one table; walk-in customers have a phone and no password.
type AccountService struct {
	users  UserStore
	tokens TokenStore
	auth   AuthSettings
	log    *zap.Logger
}

func NewAccountService(users UserStore, tokens TokenStore, auth AuthSettings, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{users: users, tokens: tokens, auth: auth, log: log}
}

type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// Register creates a customer account and opens a session for it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u, err := s.createAccount(ctx, in, model.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u)
}

// Login verifies credentials. Unknown emails, wrong passwords, inactive and
// password-less accounts all fail the same way.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrUnauthorized.WithMessage("invalid credentials")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, apperror.ErrUnauthorized.WithMessage("invalid credentials")
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AccountService) Refresh(ctx context.Context, raw string) (*Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	userID, err := s.tokens.Validate(ctx, hash, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrUnauthorized.WithMessage("invalid refresh token")
		}
		return nil, fmt.Errorf("validate refresh: %w", err)
	}
	if err := s.tokens.Revoke(ctx, hash); err != nil {
		return nil, fmt.Errorf("revoke refresh: %w", err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrUnauthorized.WithMessage("invalid refresh token")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return nil, apperror.ErrUnauthorized.WithMessage("account disabled")
	}
	return s.issue(ctx, u)
}

// Logout revokes the given refresh token, or every token of actorID when
// raw is empty.
func (s *AccountService) Logout(ctx context.Context, actorID uint64, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if actorID == 0 {
			return apperror.Validation("provide Authorization header or refresh_token")
		}
		return s.tokens.RevokeAllForUser(ctx, actorID)
	}
	hash := utils.HashRefreshRaw(raw)
	if _, err := s.tokens.Validate(ctx, hash, time.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrUnauthorized.WithMessage("invalid refresh token")
		}
		return fmt.Errorf("validate refresh: %w", err)
	}
	return s.tokens.Revoke(ctx, hash)
}

// Me returns the account of the authenticated user.
func (s *AccountService) Me(ctx context.Context, actor model.Actor) (*model.User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// CreateWalkInCustomer registers a counter customer identified by phone so
// staff can book on their behalf. The account cannot log in.
func (s *AccountService) CreateWalkInCustomer(ctx context.Context, actor model.Actor, fullName, phone string) (*model.User, error) {
	if !actor.Role.Can(model.CapManageCustomers) {
		return nil, apperror.ErrForbidden
	}
	u := &model.User{
		FullName:    strings.TrimSpace(fullName),
		PhoneNumber: strings.TrimSpace(phone),
		Role:        model.RoleCustomer,
		IsActive:    true,
	}
	if u.FullName == "" || u.PhoneNumber == "" {
		return nil, apperror.Validation("full_name and phone_number are required")
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.ErrConflict.WithMessage("phone number already registered")
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.log.Info("walk-in customer created", zap.Uint64("user_id", u.ID), zap.Uint64("actor_id", actor.ID))
	return u, nil
}

// CreateStaff creates a staff or admin account. Admin only.
func (s *AccountService) CreateStaff(ctx context.Context, actor model.Actor, in RegisterInput, role model.Role) (*model.User, error) {
	if !actor.Role.Can(model.CapManageStaff) {
		return nil, apperror.ErrForbidden
	}
	if role != model.RoleStaff && role != model.RoleAdmin {
		return nil, apperror.Validation("role must be staff or admin")
	}
	u, err := s.createAccount(ctx, in, role)
	if err != nil {
		return nil, err
	}
	s.log.Info("staff account created", zap.Uint64("user_id", u.ID), zap.String("role", string(role)), zap.Uint64("actor_id", actor.ID))
	return u, nil
}

func (s *AccountService) createAccount(ctx context.Context, in RegisterInput, role model.Role) (*model.User, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperror.Validation("email and password are required")
	}
	hash, err := utils.HashPassword(in.Password, s.auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Email:        in.Email,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.ErrConflict.WithMessage("email or phone number already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *AccountService) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := utils.NewAccessToken(s.auth.JWTSecret, u.ID, string(u.Role), s.auth.AccessTTLMin)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.auth.RefreshTTLDays)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	if err := s.tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, fmt.Errorf("store refresh: %w", err)
	}
	return &Session{User: u, Access: access, Refresh: refresh}, nil
}
