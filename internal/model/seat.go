package model

// SeatStatus is the derived occupancy of a seat for one showtime. It is never
// stored; the resolver computes it from active bookings.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatBooked    SeatStatus = "booked"
)

// Seat describes a physical seat in a cinema room. Seats are static per room
// and not showtime specific.
//
// Fields:
//
//	ID           – primary key identifier.
//	CinemaRoomID – room the seat belongs to.
//	SeatTypeID   – seat_types row giving the type name and surcharge.
//	Name         – display label, unique per room (e.g. "A1").
//	Row          – row label (A, B, ...).
//	Column       – 1-based column number.
type Seat struct {
	ID           uint64 // seats.id
	CinemaRoomID uint64 // seats.cinema_room_id
	SeatTypeID   uint64 // seats.seat_type_id
	Name         string // seats.name
	Row          string // seats.row
	Column       int    // seats.column
}

// Room is the room header of a seat map.
type Room struct {
	ID      uint64 `json:"id"`      // cinema_rooms.id
	Name    string `json:"name"`    // cinema_rooms.name
	Rows    int    `json:"rows"`    // cinema_rooms.rows
	Columns int    `json:"columns"` // cinema_rooms.columns
}

// SeatView is one seat of a seat map, joined with its type.
type SeatView struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Row       string     `json:"row"`
	Column    int        `json:"column"`
	Type      string     `json:"type"`
	Surcharge Money      `json:"surcharge"`
	Status    SeatStatus `json:"status"`
}

// SeatMap is the seat-availability snapshot of one showtime.
type SeatMap struct {
	Room  Room       `json:"room"`
	Seats []SeatView `json:"seats"`
}
