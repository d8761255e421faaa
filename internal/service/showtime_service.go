package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
)

const (
	DefaultShowtimeLimit = 20
)

type ShowtimeSearcher interface {
	Search(ctx context.Context, q model.ShowtimeQuery) ([]model.ShowtimeListing, int, error)
}

// ShowtimeService lists showtimes for guests choosing a screening.
type ShowtimeService struct {
	store ShowtimeSearcher
	now   func() time.Time
}

func NewShowtimeService(store ShowtimeSearcher) *ShowtimeService {
	return &ShowtimeService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Search validates and defaults q, then returns one page of matches.
// When defaults to upcoming.
func (s *ShowtimeService) Search(ctx context.Context, q model.ShowtimeQuery) ([]model.ShowtimeListing, model.PageMeta, error) {
	q.Title = strings.TrimSpace(q.Title)
	q.Room = strings.TrimSpace(q.Room)
	q.When = strings.ToLower(strings.TrimSpace(q.When))
	switch q.When {
	case "":
		q.When = model.WhenUpcoming
	case model.WhenUpcoming, model.WhenActive, model.WhenAny:
	default:
		return nil, model.PageMeta{}, apperror.Validation("time must be one of: upcoming active any")
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultShowtimeLimit
	}
	if q.Page < 1 {
		return nil, model.PageMeta{}, apperror.Validation("page must be at least 1")
	}
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		return nil, model.PageMeta{}, apperror.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxPageLimit))
	}
	q.Now = s.now()

	rows, total, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("search showtimes: %w", err)
	}
	return rows, model.PageMeta{
		TotalRecords: total,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(total) / float64(q.Limit))),
		Page:         q.Page,
		Limit:        q.Limit,
	}, nil
}
