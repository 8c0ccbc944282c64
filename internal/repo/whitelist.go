package repo

import (
	"context"
	"errors"

	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/keys"
)

type CacheWhitelistRepo struct {
	store cache.Store
}

func NewCacheWhitelistRepo(store cache.Store) *CacheWhitelistRepo {
	return &CacheWhitelistRepo{store: store}
}

var _ WhitelistRepo = (*CacheWhitelistRepo)(nil)

func (r *CacheWhitelistRepo) List(ctx context.Context) (data.Whitelist, error) {
	f, err := r.store.HGetAll(ctx, keys.Whitelist)
	if err != nil {
		return nil, err
	}
	return data.WhitelistFromFields(f), nil
}

func (r *CacheWhitelistRepo) Put(ctx context.Context, e data.WhitelistEntry) error {
	return r.store.HSet(ctx, keys.Whitelist, map[string]string{e.Prefix: e.Client})
}

func (r *CacheWhitelistRepo) Delete(ctx context.Context, prefix string) error {
	return r.store.HDel(ctx, keys.Whitelist, prefix)
}

// Replace writes entries in order, so a later duplicate prefix overrides an
// earlier one.
func (r *CacheWhitelistRepo) Replace(ctx context.Context, entries data.Whitelist) error {
	fields := make(map[string]string, len(entries))
	for _, e := range entries {
		fields[e.Prefix] = e.Client
	}
	return r.store.Atomic(ctx, []string{keys.Whitelist}, func(tx cache.Tx) error {
		tx.Del(keys.Whitelist)
		tx.HSet(keys.Whitelist, fields)
		return nil
	})
}

type CacheStatsRepo struct {
	store cache.Store
}

func NewCacheStatsRepo(store cache.Store) *CacheStatsRepo {
	return &CacheStatsRepo{store: store}
}

var _ StatsRepo = (*CacheStatsRepo)(nil)

func (r *CacheStatsRepo) Get(ctx context.Context) (*data.Stats, error) {
	s := &data.Stats{}
	dst := map[string]*uint64{
		keys.StatLeechers:  &s.Leechers,
		keys.StatSeeders:   &s.Seeders,
		keys.StatAnnounces: &s.Announces,
		keys.StatScrapes:   &s.Scrapes,
	}
	for _, name := range keys.Stats {
		raw, err := r.store.Get(ctx, keys.Stat(name))
		if errors.Is(err, cache.ErrNil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		v, err := data.ParseCounter(name, raw)
		if err != nil {
			return nil, err
		}
		*dst[name] = v
	}
	return s, nil
}

func (r *CacheStatsRepo) Init(ctx context.Context) error {
	for _, name := range keys.Stats {
		if _, err := r.store.SetNX(ctx, keys.Stat(name), "0"); err != nil {
			return err
		}
	}
	return nil
}
