package v1

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/service"
)

type UserHandler struct {
	l   *slog.Logger
	svc service.User
}

type addUserBody struct {
	UserID   uint64 `json:"user_id"`
	Passkey  string `json:"passkey"`
	Username string `json:"username,omitempty"`
	CanLeech *bool  `json:"can_leech,omitempty"`
}

// updateUserBody mirrors data.UserPatch; absent fields are left untouched.
type updateUserBody struct {
	Uploaded   *uint64 `json:"uploaded,omitempty"`
	Downloaded *uint64 `json:"downloaded,omitempty"`
	Passkey    *string `json:"passkey,omitempty"`
	CanLeech   *bool   `json:"can_leech,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

func NewUserHandler(l *slog.Logger, svc service.User) *UserHandler {
	return &UserHandler{l: l, svc: svc}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var body addUserBody
	if err := decodeJSONStrict(w, r, &body); err != nil {
		writeErr(w, err)
		return
	}
	u := &data.User{UserID: body.UserID, Passkey: body.Passkey, Username: body.Username, CanLeech: true}
	if body.CanLeech != nil {
		u.CanLeech = *body.CanLeech
	}
	saved, err := h.svc.Add(r.Context(), u)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	var body updateUserBody
	if err := decodeJSONStrict(w, r, &body); err != nil {
		writeErr(w, err)
		return
	}
	saved, err := h.svc.Update(r.Context(), id, data.UserPatch{
		Uploaded:   body.Uploaded,
		Downloaded: body.Downloaded,
		Passkey:    body.Passkey,
		CanLeech:   body.CanLeech,
		Enabled:    body.Enabled,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
