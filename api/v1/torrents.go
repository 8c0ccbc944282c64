package v1

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/service"
)

type TorrentHandler struct {
	l   *slog.Logger
	svc service.Torrent
}

type addTorrentBody struct {
	InfoHash    string `json:"info_hash"`
	TorrentID   uint64 `json:"torrent_id"`
	ReleaseName string `json:"release_name,omitempty"`
}

func NewTorrentHandler(l *slog.Logger, svc service.Torrent) *TorrentHandler {
	return &TorrentHandler{l: l, svc: svc}
}

func (h *TorrentHandler) GetTorrent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TorrentHandler) AddTorrent(w http.ResponseWriter, r *http.Request) {
	var body addTorrentBody
	if err := decodeJSONStrict(w, r, &body); err != nil {
		writeErr(w, err)
		return
	}
	saved, err := h.svc.Add(r.Context(), &data.Torrent{
		InfoHash:    body.InfoHash,
		TorrentID:   body.TorrentID,
		ReleaseName: body.ReleaseName,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteTorrent answers 204 whether or not the torrent existed.
func (h *TorrentHandler) DeleteTorrent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
