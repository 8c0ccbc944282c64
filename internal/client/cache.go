package client

import (
	"context"

	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/maintenance"
	"github.com/tinoosan/mika/internal/repo"
)

func (c *Client) Torrents(ctx context.Context) (data.Torrents, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	return repo.NewCacheTorrentRepo(c.store).List(ctx)
}

// Users lists every user ordered by sortBy: user_id (default), uploaded or
// downloaded.
func (c *Client) Users(ctx context.Context, sortBy string) (data.Users, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	if err := repo.SortUsers(nil, sortBy); err != nil {
		return nil, err
	}
	users, err := repo.NewCacheUserRepo(c.store).List(ctx)
	if err != nil {
		return nil, err
	}
	if err := repo.SortUsers(users, sortBy); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) Cleanup(ctx context.Context, opts maintenance.Options) (maintenance.Report, error) {
	if c.store == nil {
		return maintenance.Report{}, ErrNoStore
	}
	return maintenance.New(c.log, c.store).Cleanup(ctx, opts)
}

func (c *Client) WipeTorrentStats(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, ErrNoStore
	}
	return maintenance.New(c.log, c.store).WipeTorrentStats(ctx)
}

func (c *Client) WipeUserStats(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, ErrNoStore
	}
	return maintenance.New(c.log, c.store).WipeUserStats(ctx)
}
