package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// AccountService is the account API consumed by AuthHandler.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Refresh(ctx context.Context, raw string) (*service.Session, error)
	Logout(ctx context.Context, actorID uint64, raw string) error
	Me(ctx context.Context, actor model.Actor) (*model.User, error)
	CreateWalkInCustomer(ctx context.Context, actor model.Actor, fullName, phone string) (*model.User, error)
	CreateStaff(ctx context.Context, actor model.Actor, in service.RegisterInput, role model.Role) (*model.User, error)
}

// AuthHandler serves registration, sessions and account administration.
type AuthHandler struct {
	svc AccountService
	log *zap.Logger
}

func NewAuthHandler(svc AccountService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{svc: svc, log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FullName    string `json:"full_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=10,max=15,numeric"`
}

type staffReq struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FullName    string `json:"full_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=10,max=15,numeric"`
	Role        string `json:"role" validate:"required,oneof=staff admin"`
}

type customerReq struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,min=10,max=15,numeric"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    *model.User `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func sessionResp(s *service.Session) authResp {
	return authResp{
		User:    s.User,
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp}, // raw back to client
	}
}

func (r registerReq) input() service.RegisterInput {
	return service.RegisterInput{
		Email:       strings.ToLower(strings.TrimSpace(r.Email)),
		Password:    r.Password,
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
	}
}

// Register creates a customer account and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "register", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.svc.Register(ctx, req.input())
	if err != nil {
		return respondError(c, h.log, "register", err)
	}
	return success(c, http.StatusCreated, sessionResp(s))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "login", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.svc.Login(ctx, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return respondError(c, h.log, "login", err)
	}
	return success(c, http.StatusOK, sessionResp(s))
}

// Refresh rotates the refresh token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return respondError(c, h.log, "refresh", apperror.Validation("refresh_token is required"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return respondError(c, h.log, "refresh", err)
	}
	return success(c, http.StatusOK, sessionResp(s))
}

// Logout revokes the refresh token in the body, or every session of the
// bearer when the body carries none. The route runs under OptionalJWT.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	var uid uint64
	if a, ok := middleware.ActorFrom(c); ok {
		uid = a.ID
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.svc.Logout(ctx, uid, req.RefreshToken); err != nil {
		return respondError(c, h.log, "logout", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return respondError(c, h.log, "me", apperror.ErrUnauthorized)
	}
	u, err := h.svc.Me(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, h.log, "me", err)
	}
	return success(c, http.StatusOK, u)
}

// CreateCustomer registers a walk-in customer at the counter.
func (h *AuthHandler) CreateCustomer(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return respondError(c, h.log, "create customer", apperror.ErrUnauthorized)
	}
	var req customerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "create customer", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.svc.CreateWalkInCustomer(ctx, actor, req.FullName, req.PhoneNumber)
	if err != nil {
		return respondError(c, h.log, "create customer", err)
	}
	return success(c, http.StatusCreated, u)
}

// CreateStaff creates a staff or admin account.
func (h *AuthHandler) CreateStaff(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return respondError(c, h.log, "create staff", apperror.ErrUnauthorized)
	}
	var req staffReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "create staff", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	in := registerReq{Email: req.Email, Password: req.Password, FullName: req.FullName, PhoneNumber: req.PhoneNumber}.input()
	u, err := h.svc.CreateStaff(ctx, actor, in, model.Role(req.Role))
	if err != nil {
		return respondError(c, h.log, "create staff", err)
	}
	return success(c, http.StatusCreated, u)
}
