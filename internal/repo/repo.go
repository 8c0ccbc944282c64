package repo

import (
	"context"

	"github.com/tinoosan/mika/internal/data"
)

type TorrentRepo interface {
	TorrentReader
	TorrentWriter
}

type TorrentReader interface {
	GetByID(ctx context.Context, torrentID uint64) (*data.Torrent, error)
	GetByInfoHash(ctx context.Context, infoHash string) (*data.Torrent, error)
	// List returns every decodable current format torrent ordered by torrent_id.
	List(ctx context.Context) (data.Torrents, error)
}

type TorrentWriter interface {
	Add(ctx context.Context, t *data.Torrent) (*data.Torrent, error)
	// Delete reports whether a torrent was removed. Absent ids are not an error.
	Delete(ctx context.Context, torrentID uint64) (bool, error)
	// Upsert writes identity fields and mappings, initialising counters only
	// when they are absent. A torrent_id held by another info hash is
	// data.ErrConflict.
	Upsert(ctx context.Context, t *data.Torrent) error
}

type UserRepo interface {
	UserReader
	UserWriter
}

type UserReader interface {
	Get(ctx context.Context, userID uint64) (*data.User, error)
	GetByPasskey(ctx context.Context, passkey string) (*data.User, error)
	List(ctx context.Context) (data.Users, error)
}

type UserWriter interface {
	Add(ctx context.Context, u *data.User) (*data.User, error)
	// Update runs mutate against the stored user and commits the result
	// atomically. mutate may be called more than once under contention.
	Update(ctx context.Context, userID uint64, mutate func(*data.User) error) (*data.User, error)
	// Upsert writes identity fields and the passkey mapping. Transfer totals
	// are overwritten only when withTotals is set; other counters and flags
	// are initialised only when absent. A passkey mapped to another user is
	// data.ErrConflict.
	Upsert(ctx context.Context, u *data.User, withTotals bool) error
}

type WhitelistRepo interface {
	List(ctx context.Context) (data.Whitelist, error)
	Put(ctx context.Context, e data.WhitelistEntry) error
	Delete(ctx context.Context, prefix string) error
	// Replace swaps the whole whitelist in one commit.
	Replace(ctx context.Context, entries data.Whitelist) error
}

type StatsRepo interface {
	Get(ctx context.Context) (*data.Stats, error)
	// Init sets each global counter to zero unless it already exists.
	Init(ctx context.Context) error
}
