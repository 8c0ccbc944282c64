package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/tinoosan/mika/internal/config"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/keys"
)

// env points the CLI at a miniredis instance and an API server sharing it.
func env(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	t.Chdir(t.TempDir())
	mr := miniredis.RunT(t)
	t.Setenv("MIKA_REDIS_ADDR", mr.Addr())
	t.Setenv("MIKA_SERVER_API_TOKEN", "secret")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	a := &app{version: "test", cfg: cfg, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	store := a.store()
	t.Cleanup(func() { _ = store.Close() })
	srv := httptest.NewServer(a.handler(store))
	t.Cleanup(srv.Close)
	t.Setenv("MIKA_CLIENT_API_URL", srv.URL+"/v1")
	return mr
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot("test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestAdminCommands(t *testing.T) {
	env(t)
	ih := "40b8b386a0c2f03d492399b9aa7297aefdb84641"

	if _, err := run(t, "torrent", "add", ih, "9999999999999", "--name", "Example.Release"); err != nil {
		t.Fatalf("torrent add: %v", err)
	}
	out, err := run(t, "torrent", "get", "9999999999999")
	if err != nil || !strings.Contains(out, "Example.Release") {
		t.Fatalf("torrent get: %q %v", out, err)
	}
	out, err = run(t, "torrents")
	if err != nil || !strings.Contains(out, ih) {
		t.Fatalf("torrents: %q %v", out, err)
	}

	if _, err := run(t, "user", "add", "1", "pk1", "--username", "alice"); err != nil {
		t.Fatalf("user add: %v", err)
	}
	out, err = run(t, "user", "update", "1", "--uploaded", "500", "--can-leech=false")
	if err != nil || !strings.Contains(out, `"uploaded": 500`) || !strings.Contains(out, `"can_leech": false`) {
		t.Fatalf("user update: %q %v", out, err)
	}
	if _, err := run(t, "user", "update", "1"); err == nil {
		t.Fatalf("empty update should fail")
	}
	out, err = run(t, "users", "--sort", "uploaded")
	if err != nil || !strings.Contains(out, "alice") {
		t.Fatalf("users: %q %v", out, err)
	}
	if _, err := run(t, "users", "--sort", "bogus"); err == nil {
		t.Fatalf("bad sort should fail")
	}

	if _, err := run(t, "whitelist", "add", "-UT", "uTorrent"); err != nil {
		t.Fatalf("whitelist add: %v", err)
	}
	out, err = run(t, "whitelist", "list")
	if err != nil || !strings.Contains(out, "uTorrent") {
		t.Fatalf("whitelist list: %q %v", out, err)
	}
	if _, err := run(t, "whitelist", "del", "-UT"); err != nil {
		t.Fatalf("whitelist del: %v", err)
	}

	out, err = run(t, "version")
	if err != nil || !strings.Contains(out, "server: mika/test") {
		t.Fatalf("version: %q %v", out, err)
	}
	if _, err := run(t, "uptime"); err != nil {
		t.Fatalf("uptime: %v", err)
	}

	if _, err := run(t, "torrent", "del", "9999999999999"); err != nil {
		t.Fatalf("torrent del: %v", err)
	}
	if _, err := run(t, "torrent", "get", "9999999999999"); err == nil {
		t.Fatalf("deleted torrent still served")
	}
	if _, err := run(t, "torrent", "get", "abc"); err == nil {
		t.Fatalf("bad id accepted")
	}
}

func TestMaintenanceCommands(t *testing.T) {
	mr := env(t)
	mr.Set("t:u:1:active", "x")
	mr.HSet(keys.User(2), data.FieldUserID, "2", data.FieldPasskey, "pk2", data.FieldUploaded, "9", data.FieldSnatches, "3")

	out, err := run(t, "cleanup")
	if err != nil || !strings.Contains(out, "legacy_key") {
		t.Fatalf("cleanup: %q %v", out, err)
	}
	if !mr.Exists("t:u:1:active") {
		t.Fatalf("report-only cleanup deleted a key")
	}
	if _, err := run(t, "cleanup", "--delete"); err != nil {
		t.Fatalf("cleanup --delete: %v", err)
	}
	if mr.Exists("t:u:1:active") {
		t.Fatalf("legacy key survived --delete")
	}

	out, err = run(t, "wipeuserstats")
	if err != nil || !strings.Contains(out, "reset 1 users") {
		t.Fatalf("wipeuserstats: %q %v", out, err)
	}
	if v := mr.HGet(keys.User(2), data.FieldSnatches); v != "0" {
		t.Fatalf("snatches not wiped: %q", v)
	}
	out, err = run(t, "wipetorstats")
	if err != nil || !strings.Contains(out, "reset 0 torrents") {
		t.Fatalf("wipetorstats: %q %v", out, err)
	}
}

func TestVersionLocal(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, "version", "--local")
	if err != nil || strings.TrimSpace(out) != "client: mika/test" {
		t.Fatalf("version --local: %q %v", out, err)
	}
}

func TestClientsClosedAfterFailedRun(t *testing.T) {
	a := &app{cfg: &config.Config{}}
	a.cfg.Client.APIURL = "http://127.0.0.1:1/v1"
	boom := errors.New("boom")
	cmd := &cobra.Command{
		Use: "x",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.client(nil)
			a.client(nil)
			if len(a.clients) != 2 {
				t.Fatalf("expected 2 tracked clients got %d", len(a.clients))
			}
			return boom
		},
	}
	a.closeAfterRun(cmd)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); !errors.Is(err, boom) {
		t.Fatalf("expected run error got %v", err)
	}
	if len(a.clients) != 0 {
		t.Fatalf("clients left open: %d", len(a.clients))
	}
}
