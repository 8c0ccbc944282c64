package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tinoosan/mika/internal/metrics"
	"github.com/tinoosan/mika/internal/reqid"
)

// Log records one line per request and counts it in mika_api_requests_total.
func Log(l *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			rw := &rwLogger{ResponseWriter: w}
			next.ServeHTTP(rw, r)
			if rw.status == 0 {
				rw.status = http.StatusOK
			}
			timeElapsed := time.Since(startTime)
			metrics.APIRequests.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()

			rl := reqid.Logger(r.Context(), l)
			attrs := []any{
				"method", r.Method,
				"url", r.URL.Path,
				"status", rw.status,
				"remote", r.RemoteAddr,
				"ua", r.UserAgent(),
				"dur_ms", timeElapsed.Milliseconds(),
				"bytes", rw.bytes,
			}
			if hErr := rw.err; hErr != nil {
				if rw.status >= http.StatusInternalServerError {
					rl.Error(hErr.Error(), attrs...)
				} else {
					rl.Warn(hErr.Error(), attrs...)
				}
				return
			}
			rl.Info("", attrs...)
		})
	}
}
