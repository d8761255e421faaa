package model

import "time"

// BookingStatus is ticket_bookings.status.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// ActiveBookingStatuses are the statuses whose tickets occupy a seat.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// IsActive reports whether a booking in status s holds its seats.
func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveBookingStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// PaymentMethod is invoices.payment_method.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentMomo       PaymentMethod = "momo"
	PaymentZaloPay    PaymentMethod = "zalopay"
	PaymentBanking    PaymentMethod = "banking"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentMomo, PaymentZaloPay, PaymentBanking:
		return true
	}
	return false
}

// PaymentStatus is invoices.payment_status.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// Booking mirrors a ticket_bookings row. It is the root of one purchase:
// tickets, food orders and the invoice all hang off its id.
type Booking struct {
	ID          uint64        `json:"id"`           // ticket_bookings.id
	BookingCode string        `json:"booking_code"` // ticket_bookings.booking_code
	CustomerID  uint64        `json:"customer_id"`  // ticket_bookings.customer_id
	ShowtimeID  uint64        `json:"showtime_id"`  // ticket_bookings.showtime_id
	BookingDate time.Time     `json:"booking_date"` // ticket_bookings.booking_date
	Status      BookingStatus `json:"status"`       // ticket_bookings.status
	CreatedAt   time.Time     `json:"created_at"`   // ticket_bookings.created_at
	UpdatedAt   time.Time     `json:"updated_at"`   // ticket_bookings.updated_at
}

// BookingSummary is a booking row joined with the names a list view needs.
type BookingSummary struct {
	Booking
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	MovieTitle    string    `json:"movie_title"`
	RoomName      string    `json:"room_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// BookingDetail is the fully hydrated booking returned by create, confirm,
// update and get.
type BookingDetail struct {
	BookingSummary
	MovieDuration int               `json:"movie_duration"`
	MovieRating   string            `json:"movie_rating"`
	BasePrice     Money             `json:"base_price"`
	Tickets       []TicketDetail    `json:"tickets"`
	FoodOrders    []FoodOrderDetail `json:"food_orders"`
	Invoice       *Invoice          `json:"invoice"`
}

// Ticket mirrors a tickets row. Price is the showtime price at booking time.
type Ticket struct {
	ID        uint64    `json:"id"`                // tickets.id
	BookingID uint64    `json:"ticket_booking_id"` // tickets.ticket_booking_id
	SeatID    uint64    `json:"seat_id"`           // tickets.seat_id
	Price     Money     `json:"price"`             // tickets.price
	CreatedAt time.Time `json:"created_at"`        // tickets.created_at
}

type TicketDetail struct {
	Ticket
	Row           string `json:"row"`
	Column        int    `json:"column"`
	SeatName      string `json:"seat_name"`
	SeatTypeName  string `json:"seat_type_name"`
	SeatTypePrice Money  `json:"seat_type_price"`
}

// FoodOrder mirrors a food_orders row. Price is unit price times quantity.
type FoodOrder struct {
	ID        uint64    `json:"id"`                // food_orders.id
	BookingID uint64    `json:"ticket_booking_id"` // food_orders.ticket_booking_id
	FoodID    uint64    `json:"food_id"`           // food_orders.food_id
	Quantity  int       `json:"quantity"`          // food_orders.quantity
	Price     Money     `json:"price"`             // food_orders.price
	CreatedAt time.Time `json:"created_at"`        // food_orders.created_at
}

type FoodOrderDetail struct {
	FoodOrder
	FoodName      string `json:"food_name"`
	FoodUnitPrice Money  `json:"food_unit_price"`
}

// Invoice mirrors an invoices row, one per booking.
type Invoice struct {
	ID            uint64        `json:"id"`                     // invoices.id
	BookingID     uint64        `json:"ticket_booking_id"`      // invoices.ticket_booking_id
	PaymentMethod PaymentMethod `json:"payment_method"`         // invoices.payment_method
	PaymentStatus PaymentStatus `json:"payment_status"`         // invoices.payment_status
	Amount        Money         `json:"amount"`                 // invoices.amount
	PaymentDate   *time.Time    `json:"payment_date,omitempty"` // invoices.payment_date (nullable)
	CreatedAt     time.Time     `json:"created_at"`             // invoices.created_at
	UpdatedAt     time.Time     `json:"updated_at"`             // invoices.updated_at
}

// BookingFilter narrows a booking listing. Nil fields are not applied.
type BookingFilter struct {
	Page        int
	Limit       int
	Status      *BookingStatus
	CustomerID  *uint64
	ShowtimeID  *uint64
	BookingDate *time.Time
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	TotalRecords int `json:"total_records"`
	FirstPage    int `json:"first_page"`
	LastPage     int `json:"last_page"`
	Page         int `json:"page"`
	Limit        int `json:"limit"`
}

// BookingUpdate carries the fields an update may change. Nil means untouched.
type BookingUpdate struct {
	Status        *BookingStatus
	PaymentMethod *PaymentMethod
	PaymentStatus *PaymentStatus
}

// Empty reports whether u changes nothing.
func (u BookingUpdate) Empty() bool {
	return u.Status == nil && u.PaymentMethod == nil && u.PaymentStatus == nil
}

// ExpiredBooking identifies a pending booking cancelled by cleanup.
type ExpiredBooking struct {
	ID          uint64
	BookingCode string
	CustomerID  uint64
	ShowtimeID  uint64
}
