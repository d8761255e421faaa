package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// BookingService is the booking API consumed by BookingHandler.
type BookingService interface {
	Create(ctx context.Context, actor model.Actor, in service.CreateBookingInput) (*model.BookingDetail, error)
	Get(ctx context.Context, actor model.Actor, id uint64) (*model.BookingDetail, error)
	GetByCode(ctx context.Context, actor model.Actor, code string) (*model.BookingDetail, error)
	List(ctx context.Context, actor model.Actor, f model.BookingFilter) ([]model.BookingSummary, model.PageMeta, error)
	Update(ctx context.Context, actor model.Actor, id uint64, u model.BookingUpdate) (*model.BookingDetail, error)
	Confirm(ctx context.Context, actor model.Actor, id uint64, in service.ConfirmInput) (*model.BookingDetail, error)
	Delete(ctx context.Context, actor model.Actor, id uint64) error
	CleanupExpired(ctx context.Context) (int, error)
	TicketPDF(ctx context.Context, actor model.Actor, id uint64) ([]byte, *model.BookingDetail, error)
}

type BookingHandler struct {
	svc     BookingService
	log     *zap.Logger
	timeout time.Duration
}

func NewBookingHandler(svc BookingService, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{svc: svc, log: log, timeout: 10 * time.Second}
}

// ----- DTOs -----

type foodItemReq struct {
	FoodID   uint64 `json:"food_id" validate:"required,gt=0"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=20"`
}

type createBookingReq struct {
	Input struct {
		ShowtimeID    uint64        `json:"showtime_id" validate:"required,gt=0"`
		Seats         []uint64      `json:"seats" validate:"required,min=1,max=8,unique,dive,gt=0"`
		FoodItems     []foodItemReq `json:"food_items" validate:"omitempty,dive"`
		CustomerPhone string        `json:"customer_phone" validate:"omitempty,min=10,max=15"`
	} `json:"input"`
}

type updateBookingReq struct {
	Input struct {
		Status        *string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed"`
		PaymentMethod *string `json:"payment_method" validate:"omitempty,oneof=cash credit_card momo zalopay banking"`
		PaymentStatus *string `json:"payment_status" validate:"omitempty,oneof=pending paid failed"`
	} `json:"input"`
}

type paymentDetailsReq struct {
	Amount         *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	TransactionID  string   `json:"transaction_id,omitempty"`
	PaymentGateway string   `json:"payment_gateway,omitempty"`
}

type confirmBookingReq struct {
	Input struct {
		PaymentMethod  string             `json:"payment_method" validate:"required,oneof=cash credit_card momo zalopay banking"`
		PaymentDetails *paymentDetailsReq `json:"payment_details"`
	} `json:"input"`
}

type listBookingsResp struct {
	Bookings []model.BookingSummary `json:"bookings"`
	Meta     model.PageMeta         `json:"meta"`
}

// ----- handlers -----

// Create handles POST /bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return respondError(c, h.log, "create booking", apperror.ErrUnauthorized)
	}
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "create booking", err)
	}
	in := service.CreateBookingInput{
		ShowtimeID:    req.Input.ShowtimeID,
		SeatIDs:       req.Input.Seats,
		CustomerPhone: strings.TrimSpace(req.Input.CustomerPhone),
	}
	for _, f := range req.Input.FoodItems {
		in.FoodItems = append(in.FoodItems, service.FoodItemInput{FoodID: f.FoodID, Quantity: f.Quantity})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	b, err := h.svc.Create(ctx, actor, in)
	if err != nil {
		return respondError(c, h.log, "create booking", err)
	}
	return success(c, http.StatusCreated, b)
}

// List handles GET /bookings.
func (h *BookingHandler) List(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return respondError(c, h.log, "list bookings", apperror.ErrUnauthorized)
	}
	f, err := parseFilter(c)
	if err != nil {
		return respondError(c, h.log, "list bookings", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	rows, meta, err := h.svc.List(ctx, actor, f)
	if err != nil {
		return respondError(c, h.log, "list bookings", err)
	}
	if rows == nil {
		rows = []model.BookingSummary{}
	}
	return success(c, http.StatusOK, listBookingsResp{Bookings: rows, Meta: meta})
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, h.log, "get booking", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	b, err := h.svc.Get(ctx, actor, id)
	if err != nil {
		return respondError(c, h.log, "get booking", err)
	}
	return success(c, http.StatusOK, b)
}

// GetByCode handles GET /bookings/code/:code.
func (h *BookingHandler) GetByCode(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return respondError(c, h.log, "get booking by code", apperror.ErrUnauthorized)
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return respondError(c, h.log, "get booking by code", apperror.Validation("code is required"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	b, err := h.svc.GetByCode(ctx, actor, code)
	if err != nil {
		return respondError(c, h.log, "get booking by code", err)
	}
	return success(c, http.StatusOK, b)
}

// Update handles PUT /bookings/:id.
func (h *BookingHandler) Update(c echo.Context) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, h.log, "update booking", err)
	}
	var req updateBookingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "update booking", err)
	}
	var u model.BookingUpdate
	if s := req.Input.Status; s != nil {
		st := model.BookingStatus(*s)
		u.Status = &st
	}
	if m := req.Input.PaymentMethod; m != nil {
		pm := model.PaymentMethod(*m)
		u.PaymentMethod = &pm
	}
	if p := req.Input.PaymentStatus; p != nil {
		ps := model.PaymentStatus(*p)
		u.PaymentStatus = &ps
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	b, err := h.svc.Update(ctx, actor, id, u)
	if err != nil {
		return respondError(c, h.log, "update booking", err)
	}
	return success(c, http.StatusOK, b)
}

// Confirm handles POST /bookings/:id/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, h.log, "confirm booking", err)
	}
	var req confirmBookingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "confirm booking", err)
	}
	in := service.ConfirmInput{PaymentMethod: model.PaymentMethod(req.Input.PaymentMethod)}
	if d := req.Input.PaymentDetails; d != nil {
		in.PaymentDetails = map[string]any{}
		if d.Amount != nil {
			in.PaymentDetails["amount"] = *d.Amount
		}
		if d.TransactionID != "" {
			in.PaymentDetails["transaction_id"] = d.TransactionID
		}
		if d.PaymentGateway != "" {
			in.PaymentDetails["payment_gateway"] = d.PaymentGateway
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	b, err := h.svc.Confirm(ctx, actor, id, in)
	if err != nil {
		return respondError(c, h.log, "confirm booking", err)
	}
	return success(c, http.StatusOK, b)
}

// Delete handles DELETE /bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, h.log, "delete booking", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	if err := h.svc.Delete(ctx, actor, id); err != nil {
		return respondError(c, h.log, "delete booking", err)
	}
	return success(c, http.StatusOK, echo.Map{"id": id})
}

// Cleanup handles POST /bookings/cleanup.
func (h *BookingHandler) Cleanup(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return respondError(c, h.log, "cleanup bookings", apperror.ErrUnauthorized)
	}
	if !actor.Role.Can(model.CapCleanupBookings) {
		return respondError(c, h.log, "cleanup bookings", apperror.ErrForbidden)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	n, err := h.svc.CleanupExpired(ctx)
	if err != nil {
		return respondError(c, h.log, "cleanup bookings", err)
	}
	return success(c, http.StatusOK, echo.Map{"cancelled": n})
}

// Ticket handles GET /bookings/:id/ticket and streams the e-ticket PDF.
func (h *BookingHandler) Ticket(c echo.Context) error {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		return respondError(c, h.log, "booking ticket", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	pdf, b, err := h.svc.TicketPDF(ctx, actor, id)
	if err != nil {
		return respondError(c, h.log, "booking ticket", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="ticket-`+b.BookingCode+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *BookingHandler) actorAndID(c echo.Context) (model.Actor, uint64, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, 0, apperror.ErrUnauthorized
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		return model.Actor{}, 0, err
	}
	return actor, id, nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("id must be a positive integer")
	}
	return id, nil
}

// parseFilter reads page, limit, status, customer_id, showtime_id and
// booking_date (YYYY-MM-DD) from the query string. Range checks on page and
// limit are left to the service.
func parseFilter(c echo.Context) (model.BookingFilter, error) {
	var f model.BookingFilter
	q := c.QueryParams()
	intParam := func(name string, dst *int) error {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return apperror.Validation(name + " must be an integer")
			}
			*dst = n
		}
		return nil
	}
	idParam := func(name string) (*uint64, error) {
		v := q.Get(name)
		if v == "" {
			return nil, nil
		}
		id, err := parseID(v)
		if err != nil {
			return nil, apperror.Validation(name + " must be a positive integer")
		}
		return &id, nil
	}

	if err := intParam("page", &f.Page); err != nil {
		return f, err
	}
	if err := intParam("limit", &f.Limit); err != nil {
		return f, err
	}
	if v := q.Get("status"); v != "" {
		st := model.BookingStatus(v)
		if !st.IsValid() {
			return f, apperror.Validation("status must be one of: pending confirmed cancelled completed")
		}
		f.Status = &st
	}
	var err error
	if f.CustomerID, err = idParam("customer_id"); err != nil {
		return f, err
	}
	if f.ShowtimeID, err = idParam("showtime_id"); err != nil {
		return f, err
	}
	if v := q.Get("booking_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperror.Validation("booking_date must be YYYY-MM-DD")
		}
		f.BookingDate = &d
	}
	return f, nil
}
