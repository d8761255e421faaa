package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// memStore is an in-memory stand-in for every repository the services use.
// InTx serialises transactions and restores a snapshot when fn fails, so
// tests can observe all-or-nothing behaviour.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	showtimes  map[uint64]model.Showtime
	rooms      map[uint64]model.Room
	seats      map[uint64]model.Seat
	seatTypes  map[uint64]model.SeatView // type name and surcharge by seat type id
	foods      map[uint64]model.Food
	users      map[uint64]model.User
	bookings   map[uint64]model.Booking
	tickets    []model.Ticket
	foodOrders []model.FoodOrder
	invoices   map[uint64]model.Invoice // by booking id
	tokens     map[string]memToken
	nextID     uint64

	failInvoiceInsert bool
	duplicateCodes    int
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func newMemStore() *memStore {
	return &memStore{
		showtimes: map[uint64]model.Showtime{},
		rooms:     map[uint64]model.Room{},
		seats:     map[uint64]model.Seat{},
		seatTypes: map[uint64]model.SeatView{},
		foods:     map[uint64]model.Food{},
		users:     map[uint64]model.User{},
		bookings:  map[uint64]model.Booking{},
		invoices:  map[uint64]model.Invoice{},
		tokens:    map[string]memToken{},
		nextID:    1000,
	}
}

type memSnapshot struct {
	bookings   map[uint64]model.Booking
	tickets    []model.Ticket
	foodOrders []model.FoodOrder
	invoices   map[uint64]model.Invoice
	users      map[uint64]model.User
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := memSnapshot{
		bookings:   cloneMap(s.bookings),
		tickets:    append([]model.Ticket(nil), s.tickets...),
		foodOrders: append([]model.FoodOrder(nil), s.foodOrders...),
		invoices:   cloneMap(s.invoices),
		users:      cloneMap(s.users),
	}
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.bookings, s.tickets, s.foodOrders, s.invoices, s.users = snap.bookings, snap.tickets, snap.foodOrders, snap.invoices, snap.users
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

// counts returns the number of bookings, tickets, food orders and invoices.
func (s *memStore) counts() [4]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return [4]int{len(s.bookings), len(s.tickets), len(s.foodOrders), len(s.invoices)}
}

// ShowtimeStore

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

type memShowtimes struct{ *memStore }

func (s memShowtimes) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.showtimes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (s memShowtimes) LockByIDTx(ctx context.Context, _ *sql.Tx, id uint64) (*model.Showtime, error) {
	return s.GetByID(ctx, id)
}

func (s memShowtimes) GetRoom(ctx context.Context, showtimeID uint64) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.showtimes[showtimeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r, ok := s.rooms[st.CinemaRoomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

// SeatStore

func (s *memStore) ListViewsByRoom(ctx context.Context, roomID uint64) ([]model.SeatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SeatView
	for _, seat := range s.seats {
		if seat.CinemaRoomID != roomID {
			continue
		}
		st := s.seatTypes[seat.SeatTypeID]
		out = append(out, model.SeatView{ID: seat.ID, Name: seat.Name, Row: seat.Row, Column: seat.Column, Type: st.Type, Surcharge: st.Surcharge})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Column < out[j].Column
	})
	return out, nil
}

func (s *memStore) GetByIDsTx(ctx context.Context, _ *sql.Tx, roomID uint64, ids []uint64) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seat
	for _, id := range ids {
		if seat, ok := s.seats[id]; ok && seat.CinemaRoomID == roomID {
			out = append(out, seat)
		}
	}
	return out, nil
}

// BookingStore

func (s *memStore) activeLocked(showtimeID uint64) map[uint64]bool {
	held := map[uint64]bool{}
	for _, t := range s.tickets {
		b := s.bookings[t.BookingID]
		if b.ShowtimeID == showtimeID && b.Status.IsActive() {
			held[t.SeatID] = true
		}
	}
	return held
}

func sortedIDs(m map[uint64]bool) []uint64 {
	out := make([]uint64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *memStore) ActiveSeatIDs(ctx context.Context, showtimeID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.activeLocked(showtimeID)), nil
}

func (s *memStore) ConflictingSeatIDsTx(ctx context.Context, _ *sql.Tx, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := s.activeLocked(showtimeID)
	hit := map[uint64]bool{}
	for _, id := range seatIDs {
		if held[id] {
			hit[id] = true
		}
	}
	return sortedIDs(hit), nil
}

func (s *memStore) CreateTx(ctx context.Context, _ *sql.Tx, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duplicateCodes > 0 {
		s.duplicateCodes--
		return repository.ErrDuplicate
	}
	for _, other := range s.bookings {
		if other.BookingCode == b.BookingCode {
			return repository.ErrDuplicate
		}
	}
	b.ID = s.id()
	b.CreatedAt = b.BookingDate
	b.UpdatedAt = b.BookingDate
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) GetByIDForUpdateTx(ctx context.Context, _ *sql.Tx, id uint64) (*model.Booking, error) {
	return s.GetByID(ctx, id)
}

func (s *memStore) GetIDByCode(ctx context.Context, code string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.BookingCode == code {
			return b.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (s *memStore) summaryLocked(b model.Booking) model.BookingSummary {
	st := s.showtimes[b.ShowtimeID]
	u := s.users[b.CustomerID]
	return model.BookingSummary{
		Booking:       b,
		CustomerName:  u.FullName,
		CustomerPhone: u.PhoneNumber,
		MovieTitle:    "Test Movie",
		RoomName:      s.rooms[st.CinemaRoomID].Name,
		StartTime:     st.StartTime,
		EndTime:       st.EndTime,
	}
}

func (s *memStore) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	st := s.showtimes[b.ShowtimeID]
	d := &model.BookingDetail{
		BookingSummary: s.summaryLocked(b),
		MovieDuration:  120,
		MovieRating:    "PG-13",
		BasePrice:      st.Price,
		Tickets:        []model.TicketDetail{},
		FoodOrders:     []model.FoodOrderDetail{},
	}
	for _, t := range s.tickets {
		if t.BookingID != id {
			continue
		}
		seat := s.seats[t.SeatID]
		typ := s.seatTypes[seat.SeatTypeID]
		d.Tickets = append(d.Tickets, model.TicketDetail{Ticket: t, Row: seat.Row, Column: seat.Column,
			SeatName: seat.Name, SeatTypeName: typ.Type, SeatTypePrice: typ.Surcharge})
	}
	for _, o := range s.foodOrders {
		if o.BookingID != id {
			continue
		}
		f := s.foods[o.FoodID]
		d.FoodOrders = append(d.FoodOrders, model.FoodOrderDetail{FoodOrder: o, FoodName: f.Name, FoodUnitPrice: f.Price})
	}
	if inv, ok := s.invoices[id]; ok {
		d.Invoice = &inv
	}
	return d, nil
}

func (s *memStore) List(ctx context.Context, f model.BookingFilter) ([]model.BookingSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Booking
	for _, b := range s.bookings {
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
			continue
		}
		if f.ShowtimeID != nil && b.ShowtimeID != *f.ShowtimeID {
			continue
		}
		if f.BookingDate != nil && b.CreatedAt.Format("2006-01-02") != f.BookingDate.Format("2006-01-02") {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	start := (f.Page - 1) * f.Limit
	out := []model.BookingSummary{}
	for i := start; i < len(all) && i < start+f.Limit; i++ {
		out = append(out, s.summaryLocked(all[i]))
	}
	return out, len(all), nil
}

func (s *memStore) UpdateStatusTx(ctx context.Context, _ *sql.Tx, id uint64, status model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = status
	s.bookings[id] = b
	return nil
}

func (s *memStore) DeleteTx(ctx context.Context, _ *sql.Tx, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	for _, t := range s.tickets {
		if t.BookingID == id {
			return errors.New("foreign key: tickets still reference booking")
		}
	}
	if _, ok := s.invoices[id]; ok {
		return errors.New("foreign key: invoice still references booking")
	}
	delete(s.bookings, id)
	return nil
}

func (s *memStore) CancelPendingBeforeTx(ctx context.Context, _ *sql.Tx, cutoff time.Time) ([]model.ExpiredBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExpiredBooking
	for id, b := range s.bookings {
		if b.Status == model.BookingPending && b.CreatedAt.Before(cutoff) {
			b.Status = model.BookingCancelled
			s.bookings[id] = b
			out = append(out, model.ExpiredBooking{ID: b.ID, BookingCode: b.BookingCode, CustomerID: b.CustomerID, ShowtimeID: b.ShowtimeID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TicketStore

type memTickets struct{ *memStore }

func (s memTickets) CreateBulkTx(ctx context.Context, _ *sql.Tx, tickets []model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tickets {
		t.ID = s.id()
		s.tickets = append(s.tickets, t)
	}
	return nil
}

func (s memTickets) SeatIDsByBookingTx(ctx context.Context, _ *sql.Tx, bookingID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for _, t := range s.tickets {
		if t.BookingID == bookingID {
			ids = append(ids, t.SeatID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s memTickets) DeleteByBookingTx(ctx context.Context, _ *sql.Tx, bookingID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tickets[:0]
	for _, t := range s.tickets {
		if t.BookingID != bookingID {
			kept = append(kept, t)
		}
	}
	s.tickets = kept
	return nil
}

// FoodStore

func (s *memStore) GetAvailableByIDs(ctx context.Context, ids []uint64) ([]model.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Food
	for _, id := range ids {
		if f, ok := s.foods[id]; ok && f.IsAvailable {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memStore) CreateOrdersBulkTx(ctx context.Context, _ *sql.Tx, orders []model.FoodOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		o.ID = s.id()
		s.foodOrders = append(s.foodOrders, o)
	}
	return nil
}

func (s *memStore) DeleteOrdersByBookingTx(ctx context.Context, _ *sql.Tx, bookingID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.foodOrders[:0]
	for _, o := range s.foodOrders {
		if o.BookingID != bookingID {
			kept = append(kept, o)
		}
	}
	s.foodOrders = kept
	return nil
}

// InvoiceStore

type memInvoices struct{ *memStore }

func (s memInvoices) CreateTx(ctx context.Context, _ *sql.Tx, inv *model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInvoiceInsert {
		return errors.New("invoice insert failed")
	}
	inv.ID = s.id()
	s.invoices[inv.BookingID] = *inv
	return nil
}

func (s memInvoices) UpdateTx(ctx context.Context, _ *sql.Tx, bookingID uint64, method *model.PaymentMethod, status *model.PaymentStatus, paidAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	if method != nil {
		inv.PaymentMethod = *method
	}
	if status != nil {
		inv.PaymentStatus = *status
	}
	if paidAt != nil {
		t := *paidAt
		inv.PaymentDate = &t
	}
	s.invoices[bookingID] = inv
	return nil
}

func (s memInvoices) MarkPaidTx(ctx context.Context, tx *sql.Tx, bookingID uint64, method model.PaymentMethod, at time.Time) error {
	paid := model.PaymentPaid
	return s.UpdateTx(ctx, tx, bookingID, &method, &paid, &at)
}

func (s memInvoices) DeleteByBookingTx(ctx context.Context, _ *sql.Tx, bookingID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invoices, bookingID)
	return nil
}

// UserStore

type memUsers struct{ *memStore }

func (s memUsers) GetCustomerByPhone(ctx context.Context, phone string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone && u.Role == model.RoleCustomer && u.IsActive {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) Create(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if (u.Email != "" && other.Email == u.Email) || (u.PhoneNumber != "" && other.PhoneNumber == u.PhoneNumber) {
			return repository.ErrDuplicate
		}
	}
	u.ID = s.id()
	s.users[u.ID] = *u
	return nil
}

func (s memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != "" && u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// TokenStore

type memTokens struct{ *memStore }

func (s memTokens) Store(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[hash] = memToken{userID: userID, exp: exp}
	return nil
}

func (s memTokens) Validate(ctx context.Context, hash string, now time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.revoked || !now.Before(t.exp) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (s memTokens) Revoke(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[hash]; ok {
		t.revoked = true
		s.tokens[hash] = t
	}
	return nil
}

func (s memTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
			s.tokens[h] = t
		}
	}
	return nil
}

// testify mocks for the edge collaborators

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Get(ctx context.Context, showtimeID uint64) (*model.SeatMap, uint64, bool) {
	args := m.Called(ctx, showtimeID)
	sm, _ := args.Get(0).(*model.SeatMap)
	gen, _ := args.Get(1).(uint64)
	return sm, gen, args.Bool(2)
}

func (m *mockCache) Set(ctx context.Context, showtimeID, gen uint64, sm *model.SeatMap) {
	m.Called(ctx, showtimeID, gen, sm)
}

func (m *mockCache) Invalidate(ctx context.Context, showtimeIDs ...uint64) {
	m.Called(ctx, showtimeIDs)
}

type mockRenderer struct{ mock.Mock }

func (m *mockRenderer) Render(d *model.BookingDetail) ([]byte, error) {
	args := m.Called(d)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}
