package model

import "time"

// ShowtimeStatus is showtimes.status.
type ShowtimeStatus string

const (
	ShowtimeScheduled ShowtimeStatus = "scheduled"
	ShowtimeCanceled  ShowtimeStatus = "canceled"
	ShowtimeCompleted ShowtimeStatus = "completed"
)

// Showtime is a scheduled screening of a movie in a room with its own flat
// ticket price.
type Showtime struct {
	ID           uint64         // showtimes.id
	MovieID      uint64         // showtimes.movie_id
	CinemaRoomID uint64         // showtimes.cinema_room_id
	StartTime    time.Time      // showtimes.start_time
	EndTime      time.Time      // showtimes.end_time
	Price        Money          // showtimes.price
	Status       ShowtimeStatus // showtimes.status
}

// Food is a concession item.
type Food struct {
	ID          uint64 // foods.id
	Name        string // foods.name
	Price       Money  // foods.price
	IsAvailable bool   // foods.is_available
}

// ShowtimeListing is a showtime joined with its movie and room, as listed
// to guests browsing what is on.
type ShowtimeListing struct {
	ID         uint64         `json:"id"`
	MovieID    uint64         `json:"movie_id"`
	MovieTitle string         `json:"movie_title"`
	AgeRating  string         `json:"age_rating"`
	RoomID     uint64         `json:"cinema_room_id"`
	RoomName   string         `json:"room_name"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Price      Money          `json:"price"`
	Status     ShowtimeStatus `json:"status"`
}

// Time windows for ShowtimeQuery.When.
const (
	WhenUpcoming = "upcoming" // not started yet
	WhenActive   = "active"   // not ended yet
	WhenAny      = "any"
)

// ShowtimeQuery filters and pages a showtime search. Title and Room match
// case-insensitive substrings; Date matches the local start date.
type ShowtimeQuery struct {
	Title string
	Room  string
	When  string
	Date  *time.Time
	Now   time.Time
	Page  int
	Limit int
}
