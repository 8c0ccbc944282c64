package coldstore

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres reads the site database. It expects the tables
//
//	torrents(id bigint, info_hash bytea, release_name text)
//	users(id bigint, passkey text, username text[, uploaded bigint, downloaded bigint])
//	xbt_client_whitelist(peer_id text, vstring text)
type Postgres struct {
	db        *sql.DB
	userStats bool
}

var _ Source = (*Postgres)(nil)

// NewPostgres opens and pings the database. userStats selects the users
// query that also reads transfer totals.
func NewPostgres(dsn string, userStats bool) (*Postgres, error) {
	if dsn == "" {
		dsn = dsnFromEnv()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db, userStats: userStats}, nil
}

// dsnFromEnv constructs a DSN using component env vars.
// Recognized envs (with defaults):
//
//	POSTGRES_HOST (localhost), POSTGRES_PORT (5432), POSTGRES_DB (tracker),
//	POSTGRES_USER (mika), POSTGRES_PASSWORD (empty), POSTGRES_SSLMODE (disable)
//
// Credentials and db name are URL-encoded to handle special characters safely.
func dsnFromEnv() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getenv("POSTGRES_USER", "mika"), getenv("POSTGRES_PASSWORD", "")),
		Host:   net.JoinHostPort(getenv("POSTGRES_HOST", "localhost"), getenv("POSTGRES_PORT", "5432")),
		Path:   "/" + getenv("POSTGRES_DB", "tracker"),
	}
	q := url.Values{}
	q.Set("sslmode", getenv("POSTGRES_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (p *Postgres) Close() error { return p.db.Close() }

const (
	queryTorrents  = `SELECT lower(encode(info_hash, 'hex')), id, coalesce(release_name, '') FROM torrents WHERE info_hash IS NOT NULL AND octet_length(info_hash) > 0 ORDER BY id`
	queryUsers     = `SELECT id, coalesce(passkey, ''), coalesce(username, '') FROM users ORDER BY id`
	queryUserStats = `SELECT id, coalesce(passkey, ''), coalesce(username, ''), uploaded, downloaded FROM users ORDER BY id`
	queryWhitelist = `SELECT peer_id, coalesce(vstring, '') FROM xbt_client_whitelist ORDER BY peer_id, vstring`
)

// rows is the subset of *sql.Rows the scanners use.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func (p *Postgres) Torrents(ctx context.Context, fn func(TorrentRow) error) error {
	rs, err := p.db.QueryContext(ctx, queryTorrents)
	if err != nil {
		return fmt.Errorf("query torrents: %w", err)
	}
	return scanTorrents(rs, fn)
}

func (p *Postgres) Users(ctx context.Context, fn func(UserRow) error) error {
	q := queryUsers
	if p.userStats {
		q = queryUserStats
	}
	rs, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query users: %w", err)
	}
	return scanUsers(rs, p.userStats, fn)
}

func (p *Postgres) Whitelist(ctx context.Context, fn func(WhitelistRow) error) error {
	rs, err := p.db.QueryContext(ctx, queryWhitelist)
	if err != nil {
		return fmt.Errorf("query whitelist: %w", err)
	}
	return scanWhitelist(rs, fn)
}

func scanTorrents(rs rows, fn func(TorrentRow) error) error {
	defer rs.Close()
	n := 0
	for rs.Next() {
		n++
		r := TorrentRow{Ordinal: n}
		if err := rs.Scan(&r.InfoHash, &r.TorrentID, &r.ReleaseName); err != nil {
			return fmt.Errorf("torrents row %d: %w", n, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rs.Err()
}

func scanUsers(rs rows, withStats bool, fn func(UserRow) error) error {
	defer rs.Close()
	n := 0
	for rs.Next() {
		n++
		r := UserRow{Ordinal: n}
		var err error
		if withStats {
			var up, down sql.NullInt64
			err = rs.Scan(&r.UserID, &r.Passkey, &r.Username, &up, &down)
			if up.Valid {
				r.Uploaded = &up.Int64
			}
			if down.Valid {
				r.Downloaded = &down.Int64
			}
		} else {
			err = rs.Scan(&r.UserID, &r.Passkey, &r.Username)
		}
		if err != nil {
			return fmt.Errorf("users row %d: %w", n, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rs.Err()
}

func scanWhitelist(rs rows, fn func(WhitelistRow) error) error {
	defer rs.Close()
	n := 0
	for rs.Next() {
		n++
		r := WhitelistRow{Ordinal: n}
		if err := rs.Scan(&r.Prefix, &r.Client); err != nil {
			return fmt.Errorf("xbt_client_whitelist row %d: %w", n, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rs.Err()
}
