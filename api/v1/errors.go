package v1

import (
	"errors"
	"net/http"

	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/data"
)

var (
	ErrContentType = errors.New("Content-Type must be application/json")
	ErrID          = errors.New("id must be a positive integer")
)

// statusFor maps service errors onto response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, data.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, data.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, data.ErrInvalid), errors.Is(err, ErrID):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrTxConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	markErr(w, err)
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	http.Error(w, msg, code)
}
