package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinoosan/mika/internal/repo"
)

// MetaHandler serves server metadata and the global counters.
type MetaHandler struct {
	l       *slog.Logger
	version string
	started time.Time
	now     func() time.Time
	stats   repo.StatsRepo
}

func NewMetaHandler(l *slog.Logger, version string, started time.Time, stats repo.StatsRepo) *MetaHandler {
	return &MetaHandler{l: l, version: version, started: started, now: time.Now, stats: stats}
}

func (h *MetaHandler) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "mika/%s", h.version)
}

// Uptime writes whole seconds since the server started.
func (h *MetaHandler) Uptime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%d", int64(h.now().Sub(h.started)/time.Second))
}

func (h *MetaHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Get(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
