package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rs := NewRedisFromClient(client, 0)
	t.Cleanup(func() { _ = rs.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  rs,
	}
}

func TestStringsAndHashes(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "t:user:none"); !errors.Is(err, ErrNil) {
				t.Fatalf("expected ErrNil got %v", err)
			}
			if ok, err := s.SetNX(ctx, "t:user:pk", "1"); err != nil || !ok {
				t.Fatalf("first setnx: %v %v", ok, err)
			}
			if ok, _ := s.SetNX(ctx, "t:user:pk", "2"); ok {
				t.Fatalf("second setnx should not set")
			}
			if v, _ := s.Get(ctx, "t:user:pk"); v != "1" {
				t.Fatalf("expected 1 got %q", v)
			}

			m, err := s.HGetAll(ctx, "t:u:1")
			if err != nil || len(m) != 0 {
				t.Fatalf("missing hash should be empty: %v %v", m, err)
			}
			if err := s.HSet(ctx, "t:u:1", map[string]string{"user_id": "1", "uploaded": "5"}); err != nil {
				t.Fatalf("hset: %v", err)
			}
			if ok, _ := s.HSetNX(ctx, "t:u:1", "uploaded", "9"); ok {
				t.Fatalf("hsetnx overwrote existing field")
			}
			if ok, _ := s.HSetNX(ctx, "t:u:1", "downloaded", "0"); !ok {
				t.Fatalf("hsetnx should add missing field")
			}
			if err := s.HDel(ctx, "t:u:1", "downloaded"); err != nil {
				t.Fatalf("hdel: %v", err)
			}
			m, _ = s.HGetAll(ctx, "t:u:1")
			if len(m) != 2 || m["uploaded"] != "5" {
				t.Fatalf("unexpected hash %v", m)
			}
			if ok, _ := s.Exists(ctx, "t:u:1"); !ok {
				t.Fatalf("hash should exist")
			}
			if err := s.Del(ctx, "t:u:1", "t:user:pk"); err != nil {
				t.Fatalf("del: %v", err)
			}
			if ok, _ := s.Exists(ctx, "t:u:1"); ok {
				t.Fatalf("hash should be gone")
			}
		})
	}
}

func TestWrongType(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Set(ctx, "t:u:5", "x")
			_ = s.HSet(ctx, "t:user:pk", map[string]string{"v": "1"})
			if _, err := s.HGetAll(ctx, "t:u:5"); !errors.Is(err, ErrWrongType) {
				t.Fatalf("hgetall on string: %v", err)
			}
			if _, err := s.Get(ctx, "t:user:pk"); !errors.Is(err, ErrWrongType) {
				t.Fatalf("get on hash: %v", err)
			}
			err := s.Atomic(ctx, []string{"t:u:5"}, func(tx Tx) error {
				_, err := tx.HGetAll(ctx, "t:u:5")
				return err
			})
			if !errors.Is(err, ErrWrongType) {
				t.Fatalf("hgetall in atomic: %v", err)
			}
		})
	}
}

func TestScanPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"t:u:1", "t:u:2", "t:user:a", "t:t:x"} {
				_ = s.Set(ctx, k, "v")
			}
			var got []string
			if err := s.Scan(ctx, "t:u:", func(k string) error {
				got = append(got, k)
				return nil
			}); err != nil {
				t.Fatalf("scan: %v", err)
			}
			sort.Strings(got)
			if len(got) != 2 || got[0] != "t:u:1" || got[1] != "t:u:2" {
				t.Fatalf("unexpected keys %v", got)
			}

			stop := errors.New("stop")
			if err := s.Scan(ctx, "t:", func(string) error { return stop }); !errors.Is(err, stop) {
				t.Fatalf("expected callback error got %v", err)
			}
		})
	}
}

func TestAtomicCommitsOrDiscards(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			boom := errors.New("boom")
			err := s.Atomic(ctx, []string{"t:u:1"}, func(tx Tx) error {
				tx.HSet("t:u:1", map[string]string{"user_id": "1"})
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected callback error got %v", err)
			}
			if ok, _ := s.Exists(ctx, "t:u:1"); ok {
				t.Fatalf("writes of a failed callback must be discarded")
			}

			err = s.Atomic(ctx, []string{"t:u:1", "t:user:pk"}, func(tx Tx) error {
				if ok, err := tx.Exists(ctx, "t:u:1"); err != nil || ok {
					t.Fatalf("unexpected exists %v %v", ok, err)
				}
				tx.HSet("t:u:1", map[string]string{"user_id": "1", "passkey": "pk"})
				tx.Set("t:user:pk", "1")
				return nil
			})
			if err != nil {
				t.Fatalf("atomic: %v", err)
			}
			if v, _ := s.Get(ctx, "t:user:pk"); v != "1" {
				t.Fatalf("mapping not committed")
			}
		})
	}
}

func TestAtomicNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.HSet(ctx, "t:u:1", map[string]string{"uploaded": "0"})
			const workers = 8
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						err := s.Atomic(ctx, []string{"t:u:1"}, func(tx Tx) error {
							m, err := tx.HGetAll(ctx, "t:u:1")
							if err != nil {
								return err
							}
							tx.HSet("t:u:1", map[string]string{"uploaded": m["uploaded"] + "x"})
							return nil
						})
						if errors.Is(err, ErrTxConflict) {
							continue
						}
						if err != nil {
							t.Errorf("atomic: %v", err)
						}
						return
					}
				}()
			}
			wg.Wait()
			m, _ := s.HGetAll(ctx, "t:u:1")
			if got := len(m["uploaded"]); got != 1+workers {
				t.Fatalf("lost update: expected %d markers got %q", workers, m["uploaded"])
			}
		})
	}
}

func TestGlobEscape(t *testing.T) {
	if got := globEscape("t:u:"); got != "t:u:" {
		t.Fatalf("unexpected %q", got)
	}
	if got := globEscape("a*b?"); got != `a\*b\?` {
		t.Fatalf("unexpected %q", got)
	}
}
