package v1

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/service"
)

type WhitelistHandler struct {
	l   *slog.Logger
	svc service.Whitelist
}

func NewWhitelistHandler(l *slog.Logger, svc service.Whitelist) *WhitelistHandler {
	return &WhitelistHandler{l: l, svc: svc}
}

func (h *WhitelistHandler) ListWhitelist(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *WhitelistHandler) PutWhitelist(w http.ResponseWriter, r *http.Request) {
	var body data.WhitelistEntry
	if err := decodeJSONStrict(w, r, &body); err != nil {
		writeErr(w, err)
		return
	}
	saved, err := h.svc.Put(r.Context(), body)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *WhitelistHandler) DeleteWhitelist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["prefix"]); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
