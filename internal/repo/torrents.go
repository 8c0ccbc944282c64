package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/keys"
)

// CacheTorrentRepo keeps torrents in the cache store under t:t:<info_hash>
// with t:tid and t:info_hash mappings in both directions.
type CacheTorrentRepo struct {
	store cache.Store
}

func NewCacheTorrentRepo(store cache.Store) *CacheTorrentRepo {
	return &CacheTorrentRepo{store: store}
}

var _ TorrentRepo = (*CacheTorrentRepo)(nil)

func (r *CacheTorrentRepo) GetByID(ctx context.Context, torrentID uint64) (*data.Torrent, error) {
	ih, err := r.store.Get(ctx, keys.TorrentID(torrentID))
	if errors.Is(err, cache.ErrNil) {
		return nil, data.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetByInfoHash(ctx, ih)
}

func (r *CacheTorrentRepo) GetByInfoHash(ctx context.Context, infoHash string) (*data.Torrent, error) {
	f, err := r.store.HGetAll(ctx, keys.Torrent(infoHash))
	if err != nil {
		return nil, err
	}
	if len(f) == 0 {
		return nil, data.ErrNotFound
	}
	return data.TorrentFromFields(f)
}

func (r *CacheTorrentRepo) List(ctx context.Context) (data.Torrents, error) {
	out := make(data.Torrents, 0)
	err := r.store.Scan(ctx, keys.TorrentPrefix, func(key string) error {
		if !keys.Classify(key).Current {
			return nil
		}
		f, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return err
		}
		if len(f) == 0 {
			return nil
		}
		t, err := data.TorrentFromFields(f)
		if err != nil {
			// left for the maintenance scan to report
			return nil
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TorrentID < out[j].TorrentID })
	return out, nil
}

func (r *CacheTorrentRepo) Add(ctx context.Context, t *data.Torrent) (*data.Torrent, error) {
	tk, idk, ihk := keys.Torrent(t.InfoHash), keys.TorrentID(t.TorrentID), keys.InfoHash(t.InfoHash)
	err := r.store.Atomic(ctx, []string{tk, idk, ihk}, func(tx cache.Tx) error {
		for _, k := range []string{tk, idk, ihk} {
			ok, err := tx.Exists(ctx, k)
			if err != nil {
				return err
			}
			if ok {
				return data.ErrConflict
			}
		}
		tx.HSet(tk, t.Fields())
		tx.Set(ihk, data.FormatID(t.TorrentID))
		tx.Set(idk, t.InfoHash)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (r *CacheTorrentRepo) Delete(ctx context.Context, torrentID uint64) (bool, error) {
	idk := keys.TorrentID(torrentID)
	removed := false
	err := r.store.Atomic(ctx, []string{idk}, func(tx cache.Tx) error {
		removed = false
		ih, err := tx.Get(ctx, idk)
		if errors.Is(err, cache.ErrNil) {
			return nil
		}
		if err != nil {
			return err
		}
		tx.Del(idk, keys.Torrent(ih), keys.InfoHash(ih))
		removed = true
		return nil
	})
	return removed, err
}

// Upsert refuses with data.ErrConflict when torrentID already belongs to
// another info hash.
func (r *CacheTorrentRepo) Upsert(ctx context.Context, t *data.Torrent) error {
	tk, idk, ihk := keys.Torrent(t.InfoHash), keys.TorrentID(t.TorrentID), keys.InfoHash(t.InfoHash)
	id := data.FormatID(t.TorrentID)
	return r.store.Atomic(ctx, []string{tk, idk, ihk}, func(tx cache.Tx) error {
		owner, err := tx.Get(ctx, idk)
		if err != nil && !errors.Is(err, cache.ErrNil) {
			return err
		}
		if owner != "" && owner != t.InfoHash {
			return fmt.Errorf("%w: torrent_id %s belongs to %s", data.ErrConflict, id, owner)
		}
		prev, err := tx.Get(ctx, ihk)
		if err != nil && !errors.Is(err, cache.ErrNil) {
			return err
		}
		if prev != "" && prev != id {
			// the hash moved to a new id; drop the old reverse mapping if it is ours
			if pid, perr := data.ParseID(prev); perr == nil {
				pk := keys.TorrentID(pid)
				if err := tx.Watch(ctx, pk); err != nil {
					return err
				}
				if cur, err := tx.Get(ctx, pk); err == nil && cur == t.InfoHash {
					tx.Del(pk)
				}
			}
		}
		tx.HSet(tk, map[string]string{
			data.FieldInfoHash:  t.InfoHash,
			data.FieldTorrentID: id,
			data.FieldName:      t.ReleaseName,
		})
		for _, c := range data.TorrentCounters {
			tx.HSetNX(tk, c, "0")
		}
		tx.Set(ihk, id)
		tx.Set(idk, t.InfoHash)
		return nil
	})
}
