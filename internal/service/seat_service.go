package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// SeatService resolves the seat availability snapshot of a showtime.
type SeatService struct {
	showtimes ShowtimeStore
	seats     SeatStore
	occupancy OccupancyStore
	cache     SeatMapCache
}

func NewSeatService(showtimes ShowtimeStore, seats SeatStore, occupancy OccupancyStore, cache SeatMapCache) *SeatService {
	if cache == nil {
		cache = nopCache{}
	}
	return &SeatService{showtimes: showtimes, seats: seats, occupancy: occupancy, cache: cache}
}

// SeatMap returns every seat of the showtime's room ordered by row and
// column, each marked booked when an active booking of this showtime holds
// it. The result is a point-in-time snapshot.
func (s *SeatService) SeatMap(ctx context.Context, showtimeID uint64) (*model.SeatMap, error) {
	cached, gen, ok := s.cache.Get(ctx, showtimeID)
	if ok {
		return cached, nil
	}

	room, err := s.showtimes.GetRoom(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrShowtimeNotFound
		}
		return nil, fmt.Errorf("load room: %w", err)
	}
	views, err := s.seats.ListViewsByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("load seats: %w", err)
	}
	held, err := s.occupancy.ActiveSeatIDs(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}

	booked := make(map[uint64]struct{}, len(held))
	for _, id := range held {
		booked[id] = struct{}{}
	}
	m := &model.SeatMap{Room: *room, Seats: make([]model.SeatView, 0, len(views))}
	for _, v := range views {
		v.Status = model.SeatAvailable
		if _, ok := booked[v.ID]; ok {
			v.Status = model.SeatBooked
		}
		m.Seats = append(m.Seats, v)
	}

	s.cache.Set(ctx, showtimeID, gen, m)
	return m, nil
}
