package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/apperror"
	"github.com/iliyamo/cinema-booking/internal/model"
)

type SeatMapService interface {
	SeatMap(ctx context.Context, showtimeID uint64) (*model.SeatMap, error)
}

type ShowtimeSearcher interface {
	Search(ctx context.Context, q model.ShowtimeQuery) ([]model.ShowtimeListing, model.PageMeta, error)
}

// ShowtimeHandler serves the public showtime listing and seat maps.
type ShowtimeHandler struct {
	seats     SeatMapService
	showtimes ShowtimeSearcher
	log       *zap.Logger
}

func NewShowtimeHandler(seats SeatMapService, showtimes ShowtimeSearcher, log *zap.Logger) *ShowtimeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShowtimeHandler{seats: seats, showtimes: showtimes, log: log}
}

type showtimeListResp struct {
	Showtimes []model.ShowtimeListing `json:"showtimes"`
	Meta      model.PageMeta          `json:"meta"`
}

// Search handles GET /showtimes.
// time: "upcoming" (default), "active" (not ended), "any".
func (h *ShowtimeHandler) Search(c echo.Context) error {
	q := model.ShowtimeQuery{
		Title: c.QueryParam("title"),
		Room:  c.QueryParam("room"),
		When:  c.QueryParam("time"),
	}
	var err error
	if q.Page, err = optInt(c, "page"); err != nil {
		return respondError(c, h.log, "search showtimes", err)
	}
	if q.Limit, err = optInt(c, "limit"); err != nil {
		return respondError(c, h.log, "search showtimes", err)
	}
	if v := c.QueryParam("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return respondError(c, h.log, "search showtimes", apperror.Validation("date must be YYYY-MM-DD"))
		}
		q.Date = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rows, meta, err := h.showtimes.Search(ctx, q)
	if err != nil {
		return respondError(c, h.log, "search showtimes", err)
	}
	if rows == nil {
		rows = []model.ShowtimeListing{}
	}
	return success(c, http.StatusOK, showtimeListResp{Showtimes: rows, Meta: meta})
}

// Seats handles GET /showtimes/:id/seats. No authentication is required.
func (h *ShowtimeHandler) Seats(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return respondError(c, h.log, "seat map", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	m, err := h.seats.SeatMap(ctx, id)
	if err != nil {
		return respondError(c, h.log, "seat map", err)
	}
	return success(c, http.StatusOK, m)
}

func optInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.Validation(name + " must be an integer")
	}
	return n, nil
}
