package reqid

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithFrom(t *testing.T) {
	if _, ok := From(context.Background()); ok {
		t.Fatalf("empty context should not carry an id")
	}
	if _, ok := From(With(context.Background(), "")); ok {
		t.Fatalf("empty id should not count")
	}
	id, ok := From(With(context.Background(), "abc123"))
	if !ok || id != "abc123" {
		t.Fatalf("got %q %v", id, ok)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	Logger(With(context.Background(), "abc123"), base).Info("hello")
	if !strings.Contains(buf.String(), "request_id=abc123") {
		t.Fatalf("missing request id in %q", buf.String())
	}
}
