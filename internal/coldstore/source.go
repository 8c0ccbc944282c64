// Package coldstore reads the durable relational records that seed the
// cache store.
package coldstore

import "context"

// TorrentRow is one row of the torrents table. Ordinal counts rows from 1
// in the order they were returned.
type TorrentRow struct {
	Ordinal     int
	InfoHash    string
	TorrentID   int64
	ReleaseName string
}

// UserRow is one row of the users table. Uploaded and Downloaded are nil
// when the schema does not carry transfer totals.
type UserRow struct {
	Ordinal    int
	UserID     int64
	Passkey    string
	Username   string
	Uploaded   *int64
	Downloaded *int64
}

type WhitelistRow struct {
	Ordinal int
	Prefix  string
	Client  string
}

// Source streams cold store rows. Returning an error from fn stops the
// iteration and is returned as is.
type Source interface {
	Torrents(ctx context.Context, fn func(TorrentRow) error) error
	Users(ctx context.Context, fn func(UserRow) error) error
	Whitelist(ctx context.Context, fn func(WhitelistRow) error) error
	Close() error
}

// Static is a Source over in-memory rows. Ordinals are assigned on read.
type Static struct {
	TorrentRows   []TorrentRow
	UserRows      []UserRow
	WhitelistRows []WhitelistRow
}

var _ Source = (*Static)(nil)

func (s *Static) Torrents(ctx context.Context, fn func(TorrentRow) error) error {
	for i, r := range s.TorrentRows {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Ordinal = i + 1
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Static) Users(ctx context.Context, fn func(UserRow) error) error {
	for i, r := range s.UserRows {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Ordinal = i + 1
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Static) Whitelist(ctx context.Context, fn func(WhitelistRow) error) error {
	for i, r := range s.WhitelistRows {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Ordinal = i + 1
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Static) Close() error { return nil }
