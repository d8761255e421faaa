package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/apperror"
)

// envelope is the body of every JSON response.
type envelope struct {
	Status  string         `json:"status"` // success, fail or error
	Data    any            `json:"data,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func success(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Status: "success", Data: data})
}

// respondError writes err as a fail (4xx) or error (5xx) envelope. Internal
// causes are logged under op and never reach the client.
func respondError(c echo.Context, log *zap.Logger, op string, err error) error {
	e := apperror.From(err)
	if e.Status >= http.StatusInternalServerError {
		log.Error(op+" failed",
			zap.String("request_id", requestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.JSON(e.Status, envelope{Status: "error", Code: apperror.ErrInternal.Code, Message: apperror.ErrInternal.Message})
	}
	return c.JSON(e.Status, envelope{Status: "fail", Code: e.Code, Message: e.Message, Details: e.Details})
}

// HTTPErrorHandler renders errors that escape handlers and middleware,
// including echo's own (unknown route, method not allowed, body too large).
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			err = fromHTTPError(he)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(apperror.From(err).Status)
			return
		}
		if werr := respondError(c, log, "request", err); werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}

func fromHTTPError(he *echo.HTTPError) error {
	msg, _ := he.Message.(string)
	if msg == "" {
		msg = http.StatusText(he.Code)
	}
	switch he.Code {
	case http.StatusBadRequest:
		return apperror.Validation(msg)
	case http.StatusUnauthorized:
		return apperror.ErrUnauthorized.WithMessage(msg)
	case http.StatusForbidden:
		return apperror.ErrForbidden.WithMessage(msg)
	case http.StatusNotFound:
		return apperror.ErrNotFound.WithMessage(msg)
	case http.StatusTooManyRequests:
		return apperror.ErrRateLimited
	}
	if he.Code >= http.StatusInternalServerError {
		return apperror.ErrInternal.Wrap(he)
	}
	return &apperror.Error{Code: codeFor(he.Code), Status: he.Code, Message: msg}
}

func codeFor(status int) string {
	switch status {
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	}
	return "HTTP_ERROR"
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
