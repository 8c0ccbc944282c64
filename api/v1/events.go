package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinoosan/mika/internal/events"
	"github.com/tinoosan/mika/internal/reqid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Subscriber is the subscription side of events.Hub.
type Subscriber interface {
	Subscribe() (<-chan events.Event, func())
}

type EventHandler struct {
	l   *slog.Logger
	hub Subscriber
}

func NewEventHandler(l *slog.Logger, hub Subscriber) *EventHandler {
	return &EventHandler{l: l, hub: hub}
}

// Stream upgrades to a websocket and pushes every published event as a JSON
// text message until either side goes away.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	// the server write timeout would otherwise cut long lived streams
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		markErr(w, err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "stream ended") }()

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	l := reqid.Logger(r.Context(), h.l)
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			l.Debug("event subscriber left")
			return
		case e, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			wctx, done := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, conn, e)
			done()
			if err != nil {
				l.Warn("write event", "err", err)
				return
			}
		}
	}
}
