package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tinoosan/mika/internal/events"
	"nhooyr.io/websocket"
)

// Events subscribes to the server mutation feed. The returned channel is
// closed when the connection ends or ctx is cancelled.
func (c *Client) Events(ctx context.Context) (<-chan events.Event, error) {
	wsURL, err := url.Parse(c.baseURL + "/events")
	if err != nil {
		return nil, err
	}
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", wsURL.Scheme)
	}
	opts := &websocket.DialOptions{}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + c.token}}
	}
	dctx, cancel := context.WithTimeout(ctx, c.timeout)
	conn, _, err := websocket.Dial(dctx, wsURL.String(), opts)
	cancel()
	if err != nil {
		return nil, &TransportError{Op: "events", Err: err}
	}
	ch := make(chan events.Event, 8)
	go func() {
		defer close(ch)
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()
		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var e events.Event
			if err := json.Unmarshal(msg, &e); err != nil {
				c.log.Warn("undecodable event", "err", err)
				continue
			}
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
