package coldstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeRows replays fixed values through the rows interface.
type fakeRows struct {
	data   [][]any
	i      int
	closed bool
}

func (f *fakeRows) Next() bool { f.i++; return f.i <= len(f.data) }
func (f *fakeRows) Err() error { return nil }
func (f *fakeRows) Close() error {
	f.closed = true
	return nil
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.i-1]
	if len(row) != len(dest) {
		return fmt.Errorf("expected %d columns got %d", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			s, ok := v.(string)
			if !ok {
				return errors.New("not a string")
			}
			*d = s
		case *int64:
			n, ok := v.(int64)
			if !ok {
				return errors.New("not an int")
			}
			*d = n
		case *sql.NullInt64:
			if v == nil {
				*d = sql.NullInt64{}
			} else {
				*d = sql.NullInt64{Int64: v.(int64), Valid: true}
			}
		}
	}
	return nil
}

func TestScanTorrents(t *testing.T) {
	rs := &fakeRows{data: [][]any{
		{"40b8b386a0c2f03d492399b9aa7297aefdb84641", int64(9999999999999), "Some.Release"},
		{"0000000000000000000000000000000000000001", "bad", ""},
	}}
	var got []TorrentRow
	err := scanTorrents(rs, func(r TorrentRow) error {
		got = append(got, r)
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "torrents row 2") {
		t.Fatalf("expected row 2 scan error got %v", err)
	}
	if len(got) != 1 || got[0].Ordinal != 1 || got[0].TorrentID != 9999999999999 {
		t.Fatalf("unexpected rows %#v", got)
	}
	if !rs.closed {
		t.Fatalf("rows not closed")
	}
}

func TestScanUsersWithStats(t *testing.T) {
	rs := &fakeRows{data: [][]any{
		{int64(1), "pk1", "alice", int64(10), nil},
	}}
	var got UserRow
	if err := scanUsers(rs, true, func(r UserRow) error { got = r; return nil }); err != nil {
		t.Fatalf("scanUsers: %v", err)
	}
	if got.Uploaded == nil || *got.Uploaded != 10 || got.Downloaded != nil {
		t.Fatalf("unexpected totals %#v", got)
	}
}

func TestScanStopsOnCallbackError(t *testing.T) {
	rs := &fakeRows{data: [][]any{{"-UT", "uTorrent"}, {"-DE", "Deluge"}}}
	stop := errors.New("stop")
	calls := 0
	err := scanWhitelist(rs, func(WhitelistRow) error { calls++; return stop })
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected one call and stop error got %d %v", calls, err)
	}
}

func TestQueriesAreOrdered(t *testing.T) {
	for name, q := range map[string]string{
		"torrents":  queryTorrents,
		"users":     queryUsers,
		"stats":     queryUserStats,
		"whitelist": queryWhitelist,
	} {
		if !strings.Contains(q, " ORDER BY ") {
			t.Fatalf("%s query has no stable order: %s", name, q)
		}
	}
}

func TestStaticAssignsOrdinals(t *testing.T) {
	s := &Static{UserRows: []UserRow{{UserID: 5}, {UserID: 6}}}
	var ords []int
	_ = s.Users(context.Background(), func(r UserRow) error {
		ords = append(ords, r.Ordinal)
		return nil
	})
	if len(ords) != 2 || ords[0] != 1 || ords[1] != 2 {
		t.Fatalf("unexpected ordinals %v", ords)
	}
}

func TestDSNFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PASSWORD", "p@ss")
	got := dsnFromEnv()
	if !strings.HasPrefix(got, "postgres://mika:p%40ss@db:5432/tracker") || !strings.Contains(got, "sslmode=disable") {
		t.Fatalf("unexpected dsn %q", got)
	}
}
