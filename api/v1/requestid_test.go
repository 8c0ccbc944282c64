package v1

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tinoosan/mika/internal/reqid"
)

func TestRequestIDMiddleware_GeneratesAndEchoes(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(headerRequestID); got == "" {
		t.Fatalf("expected non-empty %s header", headerRequestID)
	}
}

func TestRequestID_PropagatesIntoHandlerContext(t *testing.T) {
	observedHeader := "X-Observed-Request-ID"
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := reqid.From(r.Context()); ok {
			w.Header().Set(observedHeader, id)
		}
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, "abc123")
	h.ServeHTTP(rr, req)
	if rr.Header().Get(headerRequestID) != "abc123" {
		t.Fatalf("expected echoed X-Request-ID header")
	}
	if rr.Header().Get(observedHeader) != "abc123" {
		t.Fatalf("handler did not observe request_id in context; got %q", rr.Header().Get(observedHeader))
	}
}

func TestRequestID_ReplacesUnsafeIncoming(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, in := range []string{"has space", "line\nbreak", strings.Repeat("a", maxRequestIDLen+1)} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(headerRequestID, in)
		h.ServeHTTP(rr, req)
		got := rr.Header().Get(headerRequestID)
		if got == in || got == "" {
			t.Fatalf("unsafe id %q should be replaced, got %q", in, got)
		}
	}
}

func TestLogIncludesRequestIDAndError(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestID(Log(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, ErrID)
	})))
	req := httptest.NewRequest(http.MethodGet, "/v1/torrent/x", nil)
	req.Header.Set(headerRequestID, "abc123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "request_id=abc123", "status=400", "url=/v1/torrent/x"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line missing %q: %s", want, out)
		}
	}
}
