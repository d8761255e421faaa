package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

var (
	alice = model.Actor{ID: 1, Role: model.RoleCustomer}
	bob   = model.Actor{ID: 2, Role: model.RoleCustomer}
	staff = model.Actor{ID: 10, Role: model.RoleStaff}
	admin = model.Actor{ID: 11, Role: model.RoleAdmin}
)

const (
	upcoming = uint64(1)
	started  = uint64(2)
	canceled = uint64(3)

	popcorn = uint64(1)
	nachos  = uint64(2)
)

type fixture struct {
	store *memStore
	svc   *BookingService
	pub   *mockPublisher
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), pub: &mockPublisher{}, now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	s := f.store

	s.rooms[1] = model.Room{ID: 1, Name: "Room 1", Rows: 1, Columns: 3}
	s.rooms[2] = model.Room{ID: 2, Name: "Room 2", Rows: 1, Columns: 1}
	s.seatTypes[1] = model.SeatView{Type: "standard"}
	s.seatTypes[2] = model.SeatView{Type: "vip", Surcharge: model.NewMoney(20000)}
	s.seats[7] = model.Seat{ID: 7, CinemaRoomID: 1, SeatTypeID: 1, Name: "A1", Row: "A", Column: 1}
	s.seats[8] = model.Seat{ID: 8, CinemaRoomID: 1, SeatTypeID: 1, Name: "A2", Row: "A", Column: 2}
	s.seats[9] = model.Seat{ID: 9, CinemaRoomID: 1, SeatTypeID: 2, Name: "A3", Row: "A", Column: 3}
	s.seats[50] = model.Seat{ID: 50, CinemaRoomID: 2, SeatTypeID: 1, Name: "A1", Row: "A", Column: 1}

	s.showtimes[upcoming] = model.Showtime{ID: upcoming, MovieID: 1, CinemaRoomID: 1, StartTime: f.now.Add(2 * time.Hour),
		EndTime: f.now.Add(4 * time.Hour), Price: model.NewMoney(80000), Status: model.ShowtimeScheduled}
	s.showtimes[started] = model.Showtime{ID: started, MovieID: 1, CinemaRoomID: 1, StartTime: f.now.Add(-time.Hour),
		EndTime: f.now.Add(time.Hour), Price: model.NewMoney(80000), Status: model.ShowtimeScheduled}
	s.showtimes[canceled] = model.Showtime{ID: canceled, MovieID: 1, CinemaRoomID: 1, StartTime: f.now.Add(3 * time.Hour),
		EndTime: f.now.Add(5 * time.Hour), Price: model.NewMoney(80000), Status: model.ShowtimeCanceled}

	s.foods[popcorn] = model.Food{ID: popcorn, Name: "Popcorn", Price: model.NewMoney(45000), IsAvailable: true}
	s.foods[nachos] = model.Food{ID: nachos, Name: "Nachos", Price: model.NewMoney(50000), IsAvailable: false}

	s.users[1] = model.User{ID: 1, FullName: "Alice", PhoneNumber: "0901000001", Role: model.RoleCustomer, IsActive: true}
	s.users[2] = model.User{ID: 2, FullName: "Bob", PhoneNumber: "0901000002", Role: model.RoleCustomer, IsActive: true}
	s.users[10] = model.User{ID: 10, FullName: "Sam Staff", Role: model.RoleStaff, IsActive: true}
	s.users[11] = model.User{ID: 11, FullName: "Ada Admin", Role: model.RoleAdmin, IsActive: true}

	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = NewBookingService(f.deps())
	return f
}

func (f *fixture) deps() BookingDeps {
	return BookingDeps{
		Tx:            f.store,
		Showtimes:     memShowtimes{f.store},
		Seats:         f.store,
		Bookings:      f.store,
		Tickets:       memTickets{f.store},
		Foods:         f.store,
		Invoices:      memInvoices{f.store},
		Customers:     memUsers{f.store},
		Events:        f.pub,
		PendingExpiry: 15 * time.Minute,
		Now:           func() time.Time { return f.now },
	}
}

func (f *fixture) book(t *testing.T, actor model.Actor, seats ...uint64) *model.BookingDetail {
	t.Helper()
	d, err := f.svc.Create(context.Background(), actor, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: seats})
	require.NoError(t, err)
	return d
}

func TestCreate_SingleSeat(t *testing.T) {
	f := newFixture(t)

	d := f.book(t, alice, 7)

	assert.Equal(t, model.BookingPending, d.Status)
	assert.Equal(t, alice.ID, d.CustomerID)
	assert.Regexp(t, `^BK20261019[0-9A-F]{8}$`, d.BookingCode)
	require.Len(t, d.Tickets, 1)
	assert.Equal(t, model.NewMoney(80000), d.Tickets[0].Price)
	require.NotNil(t, d.Invoice)
	assert.Equal(t, model.NewMoney(80000), d.Invoice.Amount)
	assert.Equal(t, model.PaymentPending, d.Invoice.PaymentStatus)
	assert.Nil(t, d.Invoice.PaymentDate)
	f.pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
		return ev.Type == queue.BookingCreated && ev.BookingID == d.ID && len(ev.SeatIDs) == 1
	}))
}

func TestCreate_SeatAlreadyBooked(t *testing.T) {
	f := newFixture(t)
	f.book(t, alice, 7)
	before := f.store.counts()

	_, err := f.svc.Create(context.Background(), bob, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{8, 7}})

	require.ErrorIs(t, err, apperror.ErrSeatsAlreadyBooked)
	assert.Equal(t, []uint64{7}, apperror.From(err).Details["seat_ids"])
	assert.Equal(t, before, f.store.counts())
}

func TestCreate_WithFood(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.Create(context.Background(), alice, CreateBookingInput{
		ShowtimeID: upcoming,
		SeatIDs:    []uint64{7},
		FoodItems:  []FoodItemInput{{FoodID: popcorn, Quantity: 2}},
	})

	require.NoError(t, err)
	assert.Equal(t, model.NewMoney(170000), d.Invoice.Amount)
	require.Len(t, d.FoodOrders, 1)
	assert.Equal(t, model.NewMoney(90000), d.FoodOrders[0].Price)
	assert.Equal(t, "Popcorn", d.FoodOrders[0].FoodName)
}

func TestCreate_TotalIsSumOfLines(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.Create(context.Background(), alice, CreateBookingInput{
		ShowtimeID: upcoming,
		SeatIDs:    []uint64{7, 8, 9},
		FoodItems:  []FoodItemInput{{FoodID: popcorn, Quantity: 1}, {FoodID: popcorn, Quantity: 3}},
	})
	require.NoError(t, err)

	var sum model.Money
	for _, tk := range d.Tickets {
		// the vip seat still costs the showtime price
		assert.Equal(t, model.NewMoney(80000), tk.Price)
		sum += tk.Price
	}
	for _, o := range d.FoodOrders {
		sum += o.Price
	}
	assert.Equal(t, sum, d.Invoice.Amount)
	assert.Equal(t, model.NewMoney(3*80000+4*45000), d.Invoice.Amount)
}

func TestCreate_ShowtimeAlreadyStarted(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: started, SeatIDs: []uint64{7}})

	require.ErrorIs(t, err, apperror.ErrShowtimeAlreadyStarted)
	assert.Equal(t, [4]int{}, f.store.counts())
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCreate_ShowtimeStartingNowHasStarted(t *testing.T) {
	f := newFixture(t)
	st := f.store.showtimes[upcoming]
	st.StartTime = f.now
	f.store.showtimes[upcoming] = st

	_, err := f.svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7}})
	assert.ErrorIs(t, err, apperror.ErrShowtimeAlreadyStarted)
}

func TestCreate_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		in   CreateBookingInput
		want error
	}{
		"unknown showtime":   {CreateBookingInput{ShowtimeID: 99, SeatIDs: []uint64{7}}, apperror.ErrShowtimeNotFound},
		"canceled showtime":  {CreateBookingInput{ShowtimeID: canceled, SeatIDs: []uint64{7}}, apperror.ErrShowtimeNotBookable},
		"no seats":           {CreateBookingInput{ShowtimeID: upcoming}, apperror.ErrValidation},
		"too many seats":     {CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}}, apperror.ErrValidation},
		"repeated seat":      {CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7, 7}}, apperror.ErrValidation},
		"missing seat":       {CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7, 404}}, apperror.ErrSeatsNotFound},
		"seat of other room": {CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{50}}, apperror.ErrSeatsNotFound},
		"unavailable food": {CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7},
			FoodItems: []FoodItemInput{{FoodID: nachos, Quantity: 1}}}, apperror.ErrFoodUnavailable},
		"unknown food": {CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7},
			FoodItems: []FoodItemInput{{FoodID: 77, Quantity: 1}}}, apperror.ErrFoodUnavailable},
		"zero quantity": {CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7},
			FoodItems: []FoodItemInput{{FoodID: popcorn, Quantity: 0}}}, apperror.ErrValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, alice, tc.in)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, [4]int{}, f.store.counts())
		})
	}
}

func TestCreate_MissingSeatsAreNamed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7, 404, 50}})
	require.ErrorIs(t, err, apperror.ErrSeatsNotFound)
	assert.Equal(t, []uint64{404, 50}, apperror.From(err).Details["seat_ids"])
}

func TestCreate_RollsBackOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failInvoiceInsert = true

	_, err := f.svc.Create(context.Background(), alice, CreateBookingInput{
		ShowtimeID: upcoming,
		SeatIDs:    []uint64{7, 8},
		FoodItems:  []FoodItemInput{{FoodID: popcorn, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Equal(t, [4]int{}, f.store.counts())
	ids, _ := f.store.ActiveSeatIDs(context.Background(), upcoming)
	assert.Empty(t, ids)
}

func TestCreate_StaffBooksForCustomerByPhone(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.Create(context.Background(), staff, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7}, CustomerPhone: "0901000002"})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, d.CustomerID)

	_, err = f.svc.Create(context.Background(), staff, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{8}, CustomerPhone: "0999999999"})
	assert.ErrorIs(t, err, apperror.ErrCustomerNotFound)

	d, err = f.svc.Create(context.Background(), staff, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{8}})
	require.NoError(t, err)
	assert.Equal(t, staff.ID, d.CustomerID)
}

func TestCreate_CustomerCannotBookForOthers(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7}, CustomerPhone: "0901000002"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, d.CustomerID)
}

func TestCreate_RetriesCodeCollision(t *testing.T) {
	f := newFixture(t)
	f.store.duplicateCodes = 2

	d := f.book(t, alice, 7)
	assert.NotEmpty(t, d.BookingCode)

	f.store.duplicateCodes = bookingCodeAttempts
	_, err := f.svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{8}})
	require.Error(t, err)
	assert.Equal(t, 1, f.store.counts()[0])
}

func TestCreate_CancelledBookingReleasesSeats(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)

	cancelled := model.BookingCancelled
	_, err := f.svc.Update(context.Background(), staff, d.ID, model.BookingUpdate{Status: &cancelled})
	require.NoError(t, err)

	again := f.book(t, bob, 7)
	assert.Equal(t, bob.ID, again.CustomerID)
}

func TestCreate_CompletedBookingStillHoldsSeats(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	completed := model.BookingCompleted
	_, err := f.svc.Update(context.Background(), staff, d.ID, model.BookingUpdate{Status: &completed})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), bob, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7}})
	assert.ErrorIs(t, err, apperror.ErrSeatsAlreadyBooked)
}

func TestCreate_ConcurrentSameSeatOnlyOneWins(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := model.Actor{ID: uint64(100 + i), Role: model.RoleCustomer}
			_, err := f.svc.Create(context.Background(), actor, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{9}})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperror.ErrSeatsAlreadyBooked)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	ids, _ := f.store.ActiveSeatIDs(context.Background(), upcoming)
	assert.Equal(t, []uint64{9}, ids)
}

func TestCreate_PublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	deps := f.deps()
	deps.Events = pub
	svc := NewBookingService(deps)

	d, err := svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7}})
	require.NoError(t, err)
	assert.NotZero(t, d.ID)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestCreate_InvalidatesSeatMapCache(t *testing.T) {
	f := newFixture(t)
	cache := &mockCache{}
	cache.On("Invalidate", mock.Anything, []uint64{upcoming}).Return().Once()
	deps := f.deps()
	deps.Cache = cache
	svc := NewBookingService(deps)

	_, err := svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7}})
	require.NoError(t, err)
	cache.AssertExpectations(t)

	_, err = svc.Create(context.Background(), alice, CreateBookingInput{ShowtimeID: started, SeatIDs: []uint64{7}})
	require.Error(t, err)
	cache.AssertNumberOfCalls(t, "Invalidate", 1)
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	f.now = f.now.Add(5 * time.Minute)

	got, err := f.svc.Confirm(context.Background(), alice, d.ID, ConfirmInput{
		PaymentMethod:  model.PaymentCash,
		PaymentDetails: map[string]any{"transaction_id": "T-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.Equal(t, model.PaymentPaid, got.Invoice.PaymentStatus)
	assert.Equal(t, model.PaymentCash, got.Invoice.PaymentMethod)
	require.NotNil(t, got.Invoice.PaymentDate)
	assert.Equal(t, f.now, *got.Invoice.PaymentDate)
	f.pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
		return ev.Type == queue.BookingConfirmed && ev.Payment["transaction_id"] == "T-1"
	}))
}

func TestConfirm_OnlyPending(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	_, err := f.svc.Confirm(context.Background(), alice, d.ID, ConfirmInput{PaymentMethod: model.PaymentMomo})
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), alice, d.ID, ConfirmInput{PaymentMethod: model.PaymentMomo})
	require.ErrorIs(t, err, apperror.ErrInvalidBookingState)
	assert.Equal(t, model.BookingConfirmed, apperror.From(err).Details["status"])
}

func TestConfirm_HiddenFromOtherCustomers(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)

	_, err := f.svc.Confirm(context.Background(), bob, d.ID, ConfirmInput{PaymentMethod: model.PaymentCash})
	assert.ErrorIs(t, err, apperror.ErrBookingNotFound)

	_, err = f.svc.Confirm(context.Background(), staff, d.ID, ConfirmInput{PaymentMethod: model.PaymentBanking})
	assert.NoError(t, err)
}

func TestConfirm_RejectsUnknownMethod(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	_, err := f.svc.Confirm(context.Background(), alice, d.ID, ConfirmInput{PaymentMethod: "bitcoin"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGet_AccessIsolation(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	ctx := context.Background()

	own, err := f.svc.Get(ctx, alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, own.ID)

	_, hidden := f.svc.Get(ctx, bob, d.ID)
	_, missing := f.svc.Get(ctx, bob, 424242)
	require.Error(t, hidden)
	assert.Equal(t, apperror.From(missing), apperror.From(hidden))

	for _, a := range []model.Actor{staff, admin} {
		_, err := f.svc.Get(ctx, a, d.ID)
		assert.NoError(t, err)
	}
}

func TestGetByCode(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	ctx := context.Background()

	got, err := f.svc.GetByCode(ctx, staff, d.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = f.svc.GetByCode(ctx, alice, d.BookingCode)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.GetByCode(ctx, staff, "BK00000000NOPE")
	assert.ErrorIs(t, err, apperror.ErrBookingNotFound)
}

func TestList_CustomerSeesOnlyOwn(t *testing.T) {
	f := newFixture(t)
	f.book(t, alice, 7)
	f.now = f.now.Add(time.Second)
	f.book(t, bob, 8)
	f.now = f.now.Add(time.Second)
	f.book(t, alice, 9)
	ctx := context.Background()

	bobID := bob.ID
	rows, meta, err := f.svc.List(ctx, alice, model.BookingFilter{CustomerID: &bobID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, alice.ID, r.CustomerID)
	}
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))
	assert.Equal(t, model.PageMeta{TotalRecords: 2, FirstPage: 1, LastPage: 1, Page: 1, Limit: DefaultPageLimit}, meta)

	rows, _, err = f.svc.List(ctx, staff, model.BookingFilter{CustomerID: &bobID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bob.ID, rows[0].CustomerID)

	rows, meta, err = f.svc.List(ctx, admin, model.BookingFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, meta.LastPage)
	assert.Equal(t, 3, meta.TotalRecords)
}

func TestList_RejectsBadPaging(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.List(context.Background(), admin, model.BookingFilter{Limit: MaxPageLimit + 1})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, _, err = f.svc.List(context.Background(), admin, model.BookingFilter{Page: -1})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	ctx := context.Background()

	paid := model.PaymentPaid
	method := model.PaymentZaloPay
	got, err := f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{PaymentStatus: &paid, PaymentMethod: &method})
	require.NoError(t, err)
	// booking status is independent of the invoice
	assert.Equal(t, model.BookingPending, got.Status)
	assert.Equal(t, model.PaymentPaid, got.Invoice.PaymentStatus)
	assert.Equal(t, model.PaymentZaloPay, got.Invoice.PaymentMethod)
	require.NotNil(t, got.Invoice.PaymentDate)

	_, err = f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	bad := model.BookingStatus("archived")
	_, err = f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{Status: &bad})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	confirmed := model.BookingConfirmed
	_, err = f.svc.Update(ctx, alice, d.ID, model.BookingUpdate{Status: &confirmed})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Update(ctx, staff, 424242, model.BookingUpdate{Status: &confirmed})
	assert.ErrorIs(t, err, apperror.ErrBookingNotFound)
}

func TestUpdate_CancelPublishesEvent(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	cancelled := model.BookingCancelled

	_, err := f.svc.Update(context.Background(), admin, d.ID, model.BookingUpdate{Status: &cancelled})
	require.NoError(t, err)
	f.pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
		return ev.Type == queue.BookingCancelled && ev.BookingID == d.ID
	}))
}

func TestUpdate_ReactivateRejectsRetakenSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.book(t, alice, 7, 8)

	cancelled := model.BookingCancelled
	_, err := f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{Status: &cancelled})
	require.NoError(t, err)
	f.book(t, bob, 7)

	for _, status := range []model.BookingStatus{model.BookingPending, model.BookingConfirmed, model.BookingCompleted} {
		_, err = f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{Status: &status})
		require.ErrorIs(t, err, apperror.ErrSeatsAlreadyBooked, status)
		assert.Equal(t, []uint64{7}, apperror.From(err).Details["seat_ids"])
	}

	got, err := f.svc.Get(ctx, staff, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	ids, _ := f.store.ActiveSeatIDs(ctx, upcoming)
	assert.Equal(t, []uint64{7}, ids)
}

func TestUpdate_ReactivateWhenSeatsStillFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.book(t, alice, 7)

	cancelled, pending := model.BookingCancelled, model.BookingPending
	_, err := f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{Status: &cancelled})
	require.NoError(t, err)
	got, err := f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status)

	// moving between active statuses keeps its own seats
	confirmed := model.BookingConfirmed
	_, err = f.svc.Update(ctx, staff, d.ID, model.BookingUpdate{Status: &confirmed})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, bob, CreateBookingInput{ShowtimeID: upcoming, SeatIDs: []uint64{7}})
	assert.ErrorIs(t, err, apperror.ErrSeatsAlreadyBooked)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Create(context.Background(), alice, CreateBookingInput{
		ShowtimeID: upcoming, SeatIDs: []uint64{7, 8}, FoodItems: []FoodItemInput{{FoodID: popcorn, Quantity: 1}},
	})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, staff, d.ID), apperror.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, alice, d.ID), apperror.ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, admin, d.ID))
	assert.Equal(t, [4]int{}, f.store.counts())

	assert.ErrorIs(t, f.svc.Delete(ctx, admin, d.ID), apperror.ErrBookingNotFound)
	f.book(t, bob, 7, 8)
}

func TestCleanupExpired(t *testing.T) {
	f := newFixture(t)
	old := f.book(t, alice, 7)
	confirmedOld := f.book(t, bob, 8)
	_, err := f.svc.Confirm(context.Background(), bob, confirmedOld.ID, ConfirmInput{PaymentMethod: model.PaymentCash})
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	fresh := f.book(t, alice, 9)
	f.now = f.now.Add(6 * time.Minute)

	cache := &mockCache{}
	cache.On("Invalidate", mock.Anything, []uint64{upcoming}).Return().Once()
	deps := f.deps()
	deps.Cache = cache
	svc := NewBookingService(deps)

	n, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	cache.AssertExpectations(t)

	assert.Equal(t, model.BookingCancelled, f.store.bookings[old.ID].Status)
	assert.Equal(t, model.BookingConfirmed, f.store.bookings[confirmedOld.ID].Status)
	assert.Equal(t, model.BookingPending, f.store.bookings[fresh.ID].Status)
	f.pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
		return ev.Type == queue.BookingCancelled && ev.BookingID == old.ID
	}))

	n, err = svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTicketPDF(t *testing.T) {
	f := newFixture(t)
	d := f.book(t, alice, 7)
	r := &mockRenderer{}
	r.On("Render", mock.AnythingOfType("*model.BookingDetail")).Return([]byte("%PDF-1.3"), nil)
	deps := f.deps()
	deps.Renderer = r
	svc := NewBookingService(deps)
	ctx := context.Background()

	_, _, err := svc.TicketPDF(ctx, alice, d.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidBookingState)

	_, err = svc.Confirm(ctx, alice, d.ID, ConfirmInput{PaymentMethod: model.PaymentCreditCard})
	require.NoError(t, err)

	_, _, err = svc.TicketPDF(ctx, bob, d.ID)
	require.ErrorIs(t, err, apperror.ErrBookingNotFound)

	pdf, detail, err := svc.TicketPDF(ctx, alice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3"), pdf)
	assert.Equal(t, d.BookingCode, detail.BookingCode)
	r.AssertNumberOfCalls(t, "Render", 1)
}

func TestNewBookingCode(t *testing.T) {
	now := time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC)
	a, b := NewBookingCode(now), NewBookingCode(now)
	assert.Regexp(t, `^BK20260102[0-9A-F]{8}$`, a)
	assert.Len(t, a, 18)
	assert.NotEqual(t, a, b)
}
