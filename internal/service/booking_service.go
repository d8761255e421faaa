package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

const (
	MaxSeatsPerBooking = 8
	MaxFoodQuantity    = 20
	DefaultPageLimit   = 10
	MaxPageLimit       = 100

	bookingCodeAttempts = 3
)

// BookingDeps wires a BookingService. Cache, Events, Renderer and Log are
// optional.
type BookingDeps struct {
	Tx        TxRunner
	Showtimes ShowtimeStore
	Seats     SeatStore
	Bookings  BookingStore
	Tickets   TicketStore
	Foods     FoodStore
	Invoices  InvoiceStore
	Customers CustomerStore

	Cache    SeatMapCache
	Events   EventPublisher
	Renderer TicketRenderer
	Log      *zap.Logger

	PendingExpiry time.Duration
	Now           func() time.Time
	NewCode       func(now time.Time) string
}

// BookingService orchestrates booking creation and the later lifecycle
// steps. Every multi-table write runs in one transaction; cache
// invalidation and event publishing happen only after commit.
type BookingService struct {
	d BookingDeps
}

func NewBookingService(d BookingDeps) *BookingService {
	if d.Cache == nil {
		d.Cache = nopCache{}
	}
	if d.Events == nil {
		d.Events = queue.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewCode == nil {
		d.NewCode = NewBookingCode
	}
	return &BookingService{d: d}
}

// NewBookingCode returns "BK" + YYYYMMDD + 8 upper-case hex characters.
func NewBookingCode(now time.Time) string {
	id := uuid.New()
	return "BK" + now.UTC().Format("20060102") + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

type FoodItemInput struct {
	FoodID   uint64
	Quantity int
}

// CreateBookingInput is a booking request. CustomerPhone is honoured only
// for actors allowed to book on behalf of a customer.
type CreateBookingInput struct {
	ShowtimeID    uint64
	SeatIDs       []uint64
	FoodItems     []FoodItemInput
	CustomerPhone string
}

func (in CreateBookingInput) validate() error {
	if in.ShowtimeID == 0 {
		return apperror.Validation("showtime_id is required")
	}
	if len(in.SeatIDs) == 0 || len(in.SeatIDs) > MaxSeatsPerBooking {
		return apperror.Validation(fmt.Sprintf("between 1 and %d seats must be selected", MaxSeatsPerBooking))
	}
	seen := make(map[uint64]bool, len(in.SeatIDs))
	for _, id := range in.SeatIDs {
		if id == 0 {
			return apperror.Validation("seat ids must be positive")
		}
		if seen[id] {
			return apperror.Validation("seats must not repeat").WithDetails("seat_id", id)
		}
		seen[id] = true
	}
	for _, f := range in.FoodItems {
		if f.FoodID == 0 {
			return apperror.Validation("food_id is required")
		}
		if f.Quantity < 1 || f.Quantity > MaxFoodQuantity {
			return apperror.Validation(fmt.Sprintf("food quantity must be between 1 and %d", MaxFoodQuantity)).
				WithDetails("food_id", f.FoodID)
		}
	}
	return nil
}

// Create validates the request against the showtime, the customer, seat
// availability and the food catalog, then writes the booking, its tickets,
// food orders and invoice atomically. The showtime row stays locked from the
// conflict check until commit, so two bookings for the same showtime cannot
// both claim a seat.
func (s *BookingService) Create(ctx context.Context, actor model.Actor, in CreateBookingInput) (*model.BookingDetail, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var booking model.Booking
	err := s.d.Tx.InTx(ctx, func(tx *sql.Tx) error {
		st, err := s.d.Showtimes.LockByIDTx(ctx, tx, in.ShowtimeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.ErrShowtimeNotFound
			}
			return fmt.Errorf("lock showtime: %w", err)
		}
		now := s.d.Now()
		if !st.StartTime.After(now) {
			return apperror.ErrShowtimeAlreadyStarted
		}
		if st.Status != model.ShowtimeScheduled {
			return apperror.ErrShowtimeNotBookable.WithDetails("status", st.Status)
		}

		customerID, err := s.resolveCustomer(ctx, actor, in.CustomerPhone)
		if err != nil {
			return err
		}

		conflicts, err := s.d.Bookings.ConflictingSeatIDsTx(ctx, tx, st.ID, in.SeatIDs)
		if err != nil {
			return fmt.Errorf("check seat conflicts: %w", err)
		}
		if len(conflicts) > 0 {
			return apperror.ErrSeatsAlreadyBooked.WithDetails("seat_ids", conflicts)
		}

		seats, err := s.d.Seats.GetByIDsTx(ctx, tx, st.CinemaRoomID, in.SeatIDs)
		if err != nil {
			return fmt.Errorf("load seats: %w", err)
		}
		if len(seats) != len(in.SeatIDs) {
			return apperror.ErrSeatsNotFound.WithDetails("seat_ids", missingSeats(in.SeatIDs, seats))
		}

		orders, err := s.priceFood(ctx, in.FoodItems)
		if err != nil {
			return err
		}

		// Tickets are priced at the showtime price regardless of seat type.
		total := st.Price.Mul(len(seats))
		for _, o := range orders {
			total += o.Price
		}

		booking = model.Booking{
			CustomerID:  customerID,
			ShowtimeID:  st.ID,
			BookingDate: now,
			Status:      model.BookingPending,
		}
		if err := s.insertBooking(ctx, tx, &booking); err != nil {
			return err
		}

		tickets := make([]model.Ticket, len(seats))
		for i, seat := range seats {
			tickets[i] = model.Ticket{BookingID: booking.ID, SeatID: seat.ID, Price: st.Price}
		}
		if err := s.d.Tickets.CreateBulkTx(ctx, tx, tickets); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.ErrSeatsAlreadyBooked.Wrap(err)
			}
			return fmt.Errorf("insert tickets: %w", err)
		}
		for i := range orders {
			orders[i].BookingID = booking.ID
		}
		if err := s.d.Foods.CreateOrdersBulkTx(ctx, tx, orders); err != nil {
			return fmt.Errorf("insert food orders: %w", err)
		}
		inv := &model.Invoice{
			BookingID:     booking.ID,
			PaymentMethod: model.PaymentCash,
			PaymentStatus: model.PaymentPending,
			Amount:        total,
		}
		if err := s.d.Invoices.CreateTx(ctx, tx, inv); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.d.Cache.Invalidate(ctx, booking.ShowtimeID)
	detail, err := s.d.Bookings.GetDetail(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}
	s.d.Log.Info("booking created",
		zap.Uint64("booking_id", detail.ID),
		zap.String("booking_code", detail.BookingCode),
		zap.Uint64("customer_id", detail.CustomerID),
		zap.Uint64("showtime_id", detail.ShowtimeID),
		zap.Int("seats", len(detail.Tickets)),
	)
	s.publish(ctx, queue.NewEvent(queue.BookingCreated, detail, s.d.Now()))
	return detail, nil
}

// resolveCustomer picks whose booking this is: the customer found by phone
// when staff book on someone's behalf, otherwise the actor.
func (s *BookingService) resolveCustomer(ctx context.Context, actor model.Actor, phone string) (uint64, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || !actor.Role.Can(model.CapBookForCustomer) {
		return actor.ID, nil
	}
	c, err := s.d.Customers.GetCustomerByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperror.ErrCustomerNotFound.WithDetails("customer_phone", phone)
		}
		return 0, fmt.Errorf("find customer: %w", err)
	}
	return c.ID, nil
}

// priceFood checks every requested food is available and prices each line
// as unit price times quantity.
func (s *BookingService) priceFood(ctx context.Context, items []FoodItemInput) ([]model.FoodOrder, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]uint64, 0, len(items))
	seen := make(map[uint64]bool, len(items))
	for _, it := range items {
		if !seen[it.FoodID] {
			seen[it.FoodID] = true
			ids = append(ids, it.FoodID)
		}
	}
	foods, err := s.d.Foods.GetAvailableByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load foods: %w", err)
	}
	byID := make(map[uint64]model.Food, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}

	orders := make([]model.FoodOrder, 0, len(items))
	for _, it := range items {
		f, ok := byID[it.FoodID]
		if !ok || !f.IsAvailable {
			return nil, apperror.ErrFoodUnavailable.WithDetails("food_id", it.FoodID)
		}
		orders = append(orders, model.FoodOrder{FoodID: f.ID, Quantity: it.Quantity, Price: f.Price.Mul(it.Quantity)})
	}
	return orders, nil
}

// insertBooking assigns a fresh booking code, retrying on the rare code
// collision. A failed INSERT leaves the transaction usable.
func (s *BookingService) insertBooking(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var err error
	for attempt := 0; attempt < bookingCodeAttempts; attempt++ {
		b.BookingCode = s.d.NewCode(b.BookingDate)
		err = s.d.Bookings.CreateTx(ctx, tx, b)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		s.d.Log.Warn("booking code collision", zap.String("booking_code", b.BookingCode))
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func missingSeats(requested []uint64, found []model.Seat) []uint64 {
	have := make(map[uint64]bool, len(found))
	for _, s := range found {
		have[s.ID] = true
	}
	missing := []uint64{}
	for _, id := range requested {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// Get returns the booking if actor may see it. Absent and hidden bookings
// both yield ErrBookingNotFound.
func (s *BookingService) Get(ctx context.Context, actor model.Actor, id uint64) (*model.BookingDetail, error) {
	d, err := s.d.Bookings.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if !CanAccessBooking(actor, &d.Booking) {
		return nil, apperror.ErrBookingNotFound
	}
	return d, nil
}

// GetByCode looks a booking up by its code. Staff and admins only.
func (s *BookingService) GetByCode(ctx context.Context, actor model.Actor, code string) (*model.BookingDetail, error) {
	if !actor.Role.Can(model.CapLookupByCode) {
		return nil, apperror.ErrForbidden
	}
	id, err := s.d.Bookings.GetIDByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("find booking code: %w", err)
	}
	return s.Get(ctx, actor, id)
}

// List returns one page of bookings. Actors who cannot view every booking
// are restricted to their own, whatever customer filter they pass.
func (s *BookingService) List(ctx context.Context, actor model.Actor, f model.BookingFilter) ([]model.BookingSummary, model.PageMeta, error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Page < 1 {
		return nil, model.PageMeta{}, apperror.Validation("page must be at least 1")
	}
	if f.Limit < 1 || f.Limit > MaxPageLimit {
		return nil, model.PageMeta{}, apperror.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxPageLimit))
	}
	if f.Status != nil && !f.Status.IsValid() {
		return nil, model.PageMeta{}, apperror.Validation("unknown booking status")
	}

	switch {
	case !actor.Role.Can(model.CapViewAnyBooking):
		own := actor.ID
		f.CustomerID = &own
	case !actor.Role.Can(model.CapFilterByCustomer):
		f.CustomerID = nil
	}

	rows, total, err := s.d.Bookings.List(ctx, f)
	if err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("list bookings: %w", err)
	}
	meta := model.PageMeta{
		TotalRecords: total,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(total) / float64(f.Limit))),
		Page:         f.Page,
		Limit:        f.Limit,
	}
	return rows, meta, nil
}

// Update writes status to the booking and payment fields to its invoice in
// one transaction. Fields are independent; only enum membership is checked.
// Marking the invoice paid stamps payment_date.
func (s *BookingService) Update(ctx context.Context, actor model.Actor, id uint64, u model.BookingUpdate) (*model.BookingDetail, error) {
	if !actor.Role.Can(model.CapUpdateBooking) {
		return nil, apperror.ErrForbidden
	}
	if u.Empty() {
		return nil, apperror.Validation("nothing to update")
	}
	if u.Status != nil && !u.Status.IsValid() {
		return nil, apperror.Validation("unknown booking status")
	}
	if u.PaymentMethod != nil && !u.PaymentMethod.IsValid() {
		return nil, apperror.Validation("unknown payment method")
	}
	if u.PaymentStatus != nil && !u.PaymentStatus.IsValid() {
		return nil, apperror.Validation("unknown payment status")
	}

	var before model.Booking
	err := s.d.Tx.InTx(ctx, func(tx *sql.Tx) error {
		b, err := s.d.Bookings.GetByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.ErrBookingNotFound
			}
			return fmt.Errorf("lock booking: %w", err)
		}
		before = *b

		if u.Status != nil {
			if !before.Status.IsActive() && u.Status.IsActive() {
				if err := s.reclaimSeats(ctx, tx, b); err != nil {
					return err
				}
			}
			if err := s.d.Bookings.UpdateStatusTx(ctx, tx, id, *u.Status); err != nil {
				return fmt.Errorf("update booking status: %w", err)
			}
		}
		if u.PaymentMethod != nil || u.PaymentStatus != nil {
			var paidAt *time.Time
			if u.PaymentStatus != nil && *u.PaymentStatus == model.PaymentPaid {
				now := s.d.Now()
				paidAt = &now
			}
			if err := s.d.Invoices.UpdateTx(ctx, tx, id, u.PaymentMethod, u.PaymentStatus, paidAt); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.ErrNotFound.WithMessage("invoice not found")
				}
				return fmt.Errorf("update invoice: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.Status != nil && *u.Status != before.Status {
		s.d.Cache.Invalidate(ctx, before.ShowtimeID)
	}
	detail, err := s.d.Bookings.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}
	s.d.Log.Info("booking updated", zap.Uint64("booking_id", id), zap.Uint64("actor_id", actor.ID))
	if u.Status != nil && *u.Status == model.BookingCancelled && before.Status != model.BookingCancelled {
		s.publish(ctx, queue.NewEvent(queue.BookingCancelled, detail, s.d.Now()))
	}
	return detail, nil
}

// reclaimSeats checks that the seats of an inactive booking b are still free
// before it becomes active again. The showtime lock serializes this with
// Create. b's own tickets do not count because b is still inactive here.
func (s *BookingService) reclaimSeats(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if _, err := s.d.Showtimes.LockByIDTx(ctx, tx, b.ShowtimeID); err != nil {
		return fmt.Errorf("lock showtime: %w", err)
	}
	seatIDs, err := s.d.Tickets.SeatIDsByBookingTx(ctx, tx, b.ID)
	if err != nil {
		return fmt.Errorf("load booking seats: %w", err)
	}
	conflicts, err := s.d.Bookings.ConflictingSeatIDsTx(ctx, tx, b.ShowtimeID, seatIDs)
	if err != nil {
		return fmt.Errorf("check seat conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return apperror.ErrSeatsAlreadyBooked.WithDetails("seat_ids", conflicts)
	}
	return nil
}

// ConfirmInput carries the payment collected for a pending booking.
// PaymentDetails is trusted caller input; it is logged and sent on the
// confirmation event but not stored.
type ConfirmInput struct {
	PaymentMethod  model.PaymentMethod
	PaymentDetails map[string]any
}

// Confirm moves a pending booking to confirmed and marks its invoice paid.
func (s *BookingService) Confirm(ctx context.Context, actor model.Actor, id uint64, in ConfirmInput) (*model.BookingDetail, error) {
	if !in.PaymentMethod.IsValid() {
		return nil, apperror.Validation("unknown payment method")
	}

	err := s.d.Tx.InTx(ctx, func(tx *sql.Tx) error {
		b, err := s.d.Bookings.GetByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.ErrBookingNotFound
			}
			return fmt.Errorf("lock booking: %w", err)
		}
		if !CanAccessBooking(actor, b) {
			return apperror.ErrBookingNotFound
		}
		if b.Status != model.BookingPending {
			return apperror.ErrInvalidBookingState.
				WithMessage("only pending bookings can be confirmed").
				WithDetails("status", b.Status)
		}
		if err := s.d.Bookings.UpdateStatusTx(ctx, tx, id, model.BookingConfirmed); err != nil {
			return fmt.Errorf("confirm booking: %w", err)
		}
		if err := s.d.Invoices.MarkPaidTx(ctx, tx, id, in.PaymentMethod, s.d.Now()); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.d.Bookings.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}
	s.d.Log.Info("booking confirmed",
		zap.Uint64("booking_id", id),
		zap.String("payment_method", string(in.PaymentMethod)),
		zap.Any("payment_details", in.PaymentDetails),
	)
	ev := queue.NewEvent(queue.BookingConfirmed, detail, s.d.Now())
	ev.Payment = in.PaymentDetails
	s.publish(ctx, ev)
	return detail, nil
}

// Delete removes a booking and its children, children first. Admin only.
func (s *BookingService) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	if !actor.Role.Can(model.CapDeleteBooking) {
		return apperror.ErrForbidden
	}
	var b *model.Booking
	err := s.d.Tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = s.d.Bookings.GetByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.ErrBookingNotFound
			}
			return fmt.Errorf("lock booking: %w", err)
		}
		if err := s.d.Foods.DeleteOrdersByBookingTx(ctx, tx, id); err != nil {
			return fmt.Errorf("delete food orders: %w", err)
		}
		if err := s.d.Tickets.DeleteByBookingTx(ctx, tx, id); err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}
		if err := s.d.Invoices.DeleteByBookingTx(ctx, tx, id); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		if err := s.d.Bookings.DeleteTx(ctx, tx, id); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if b.Status.IsActive() {
		s.d.Cache.Invalidate(ctx, b.ShowtimeID)
	}
	s.d.Log.Info("booking deleted", zap.Uint64("booking_id", id), zap.String("booking_code", b.BookingCode), zap.Uint64("actor_id", actor.ID))
	return nil
}

// CleanupExpired cancels every pending booking older than the configured
// expiry and returns how many it cancelled.
func (s *BookingService) CleanupExpired(ctx context.Context) (int, error) {
	if s.d.PendingExpiry <= 0 {
		return 0, errors.New("pending expiry not configured")
	}
	now := s.d.Now()
	cutoff := now.Add(-s.d.PendingExpiry)

	var expired []model.ExpiredBooking
	err := s.d.Tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		expired, err = s.d.Bookings.CancelPendingBeforeTx(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("cancel expired bookings: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	showtimes := make(map[uint64]bool)
	for _, e := range expired {
		showtimes[e.ShowtimeID] = true
		s.publish(ctx, queue.NewExpiredEvent(e, now))
	}
	ids := make([]uint64, 0, len(showtimes))
	for id := range showtimes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s.d.Cache.Invalidate(ctx, ids...)

	s.d.Log.Info("expired bookings cancelled", zap.Int("count", len(expired)), zap.Time("cutoff", cutoff))
	return len(expired), nil
}

// TicketPDF renders the e-ticket of a confirmed or completed booking.
func (s *BookingService) TicketPDF(ctx context.Context, actor model.Actor, id uint64) ([]byte, *model.BookingDetail, error) {
	if s.d.Renderer == nil {
		return nil, nil, errors.New("ticket renderer not configured")
	}
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if d.Status != model.BookingConfirmed && d.Status != model.BookingCompleted {
		return nil, nil, apperror.ErrInvalidBookingState.
			WithMessage("tickets are issued for confirmed bookings only").
			WithDetails("status", d.Status)
	}
	pdf, err := s.d.Renderer.Render(d)
	if err != nil {
		return nil, nil, fmt.Errorf("render ticket: %w", err)
	}
	return pdf, d, nil
}

func (s *BookingService) publish(ctx context.Context, ev queue.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.d.Events.Publish(ctx, ev); err != nil {
		s.d.Log.Warn("publish booking event failed",
			zap.String("type", string(ev.Type)),
			zap.String("booking_code", ev.BookingCode),
			zap.Error(err),
		)
	}
}
