package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/events"
	"github.com/tinoosan/mika/internal/repo"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestTorrentAdd(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		in      *data.Torrent
		wantErr error
	}{
		{"valid", &data.Torrent{InfoHash: "40B8B386A0C2F03D492399B9AA7297AEFDB84641", TorrentID: 9999999999999}, nil},
		{"short info hash", &data.Torrent{InfoHash: "abc", TorrentID: 1}, data.ErrInvalid},
		{"zero id", &data.Torrent{InfoHash: "40b8b386a0c2f03d492399b9aa7297aefdb84641", TorrentID: 0}, data.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			svc := NewTorrent(repo.NewCacheTorrentRepo(cache.NewMemory()), rec)
			got, err := svc.Add(ctx, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				if len(rec.types()) != 0 {
					t.Fatalf("failed add must not publish")
				}
				return
			}
			if got.InfoHash != "40b8b386a0c2f03d492399b9aa7297aefdb84641" {
				t.Fatalf("info hash not normalised: %q", got.InfoHash)
			}
			again, err := svc.Get(ctx, tt.in.TorrentID)
			if err != nil || again.InfoHash != got.InfoHash {
				t.Fatalf("Get after Add: %#v %v", again, err)
			}
			if _, err := svc.Add(ctx, tt.in); !errors.Is(err, data.ErrConflict) {
				t.Fatalf("expected ErrConflict on duplicate got %v", err)
			}
		})
	}
}

func TestTorrentDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	svc := NewTorrent(repo.NewCacheTorrentRepo(cache.NewMemory()), rec)
	_, _ = svc.Add(ctx, &data.Torrent{InfoHash: "40b8b386a0c2f03d492399b9aa7297aefdb84641", TorrentID: 3})

	for i := 0; i < 2; i++ {
		if err := svc.Delete(ctx, 3); err != nil {
			t.Fatalf("Delete #%d: %v", i, err)
		}
	}
	if _, err := svc.Get(ctx, 3); !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	got := rec.types()
	if len(got) != 2 || got[1] != events.TorrentDeleted {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestUserUpdatePartial(t *testing.T) {
	ctx := context.Background()
	svc := NewUser(repo.NewCacheUserRepo(cache.NewMemory()), nil)
	if _, err := svc.Add(ctx, &data.User{UserID: 1, Passkey: "pk", CanLeech: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Update(ctx, 1, data.UserPatch{Uploaded: ptr(uint64(100))}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Update(ctx, 1, data.UserPatch{Downloaded: ptr(uint64(50))})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Downloaded != 50 || got.Uploaded != 100 || !got.CanLeech || got.Passkey != "pk" {
		t.Fatalf("partial update clobbered fields: %#v", got)
	}
}

func TestUserUpdateErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewUser(repo.NewCacheUserRepo(cache.NewMemory()), nil)
	_, _ = svc.Add(ctx, &data.User{UserID: 1, Passkey: "a"})
	_, _ = svc.Add(ctx, &data.User{UserID: 2, Passkey: "b"})

	tests := []struct {
		name    string
		id      uint64
		patch   data.UserPatch
		wantErr error
	}{
		{"missing user", 3, data.UserPatch{Uploaded: ptr(uint64(1))}, data.ErrNotFound},
		{"counter overflow", 1, data.UserPatch{Uploaded: ptr(data.MaxCounter)}, data.ErrInvalid},
		{"empty passkey", 1, data.UserPatch{Passkey: ptr(" ")}, data.ErrInvalid},
		{"passkey taken", 1, data.UserPatch{Passkey: ptr("b")}, data.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Update(ctx, tt.id, tt.patch); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUserAddValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUser(repo.NewCacheUserRepo(cache.NewMemory()), nil)
	if _, err := svc.Add(ctx, &data.User{UserID: 0, Passkey: "x"}); !errors.Is(err, data.ErrInvalid) {
		t.Fatalf("expected ErrInvalid got %v", err)
	}
	if _, err := svc.Add(ctx, &data.User{UserID: 1}); !errors.Is(err, data.ErrPasskey) {
		t.Fatalf("expected ErrPasskey got %v", err)
	}
	u, err := svc.Add(ctx, &data.User{UserID: 1, Passkey: "pk"})
	if err != nil || !u.Enabled {
		t.Fatalf("new users start enabled: %#v %v", u, err)
	}
}

func TestWhitelistPutDelete(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	svc := NewWhitelist(repo.NewCacheWhitelistRepo(cache.NewMemory()), rec)

	if _, err := svc.Put(ctx, data.WhitelistEntry{Prefix: "-UT", Client: ""}); !errors.Is(err, data.ErrClientName) {
		t.Fatalf("expected ErrClientName got %v", err)
	}
	if _, err := svc.Put(ctx, data.WhitelistEntry{Prefix: "-UT", Client: "uTorrent"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := svc.Put(ctx, data.WhitelistEntry{Prefix: "-UT", Client: "uTorrent 3"}); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 1 || list[0].Client != "uTorrent 3" {
		t.Fatalf("unexpected whitelist %#v", list)
	}
	if err := svc.Delete(ctx, "-UT"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "-UT"); err != nil {
		t.Fatalf("Delete must be idempotent: %v", err)
	}
	if n := len(rec.types()); n != 4 {
		t.Fatalf("expected 4 events got %d", n)
	}
}

func TestWhitelistRejectsSlashPrefix(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	svc := NewWhitelist(repo.NewCacheWhitelistRepo(cache.NewMemory()), rec)

	_, err := svc.Put(ctx, data.WhitelistEntry{Prefix: "-UT/", Client: "uTorrent"})
	if !errors.Is(err, data.ErrInvalid) || !errors.Is(err, data.ErrPrefixSlash) {
		t.Fatalf("expected ErrPrefixSlash got %v", err)
	}
	if err := svc.Delete(ctx, "a/b"); !errors.Is(err, data.ErrPrefixSlash) {
		t.Fatalf("expected ErrPrefixSlash got %v", err)
	}
	if list, _ := svc.List(ctx); len(list) != 0 {
		t.Fatalf("rejected prefix stored: %#v", list)
	}
	if n := len(rec.types()); n != 0 {
		t.Fatalf("expected no events got %d", n)
	}
}
