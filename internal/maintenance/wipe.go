package maintenance

import (
	"context"

	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/keys"
)

var (
	torrentStatFields = []string{data.FieldUploaded, data.FieldDownloaded}
	userStatFields    = []string{data.FieldUploaded, data.FieldDownloaded, data.FieldCorrupt, data.FieldSnatches}
)

// WipeTorrentStats zeroes transfer totals on every current torrent record
// and returns how many records were reset.
func (c *Cleaner) WipeTorrentStats(ctx context.Context) (int, error) {
	return c.wipe(ctx, keys.TorrentPrefix, torrentStatFields)
}

// WipeUserStats zeroes transfer totals, corrupt and snatches on every
// current user record.
func (c *Cleaner) WipeUserStats(ctx context.Context) (int, error) {
	return c.wipe(ctx, keys.UserPrefix, userStatFields)
}

func (c *Cleaner) wipe(ctx context.Context, prefix string, fields []string) (int, error) {
	n := 0
	err := c.store.Scan(ctx, prefix, func(key string) error {
		if !keys.Classify(key).Current {
			return nil
		}
		ok, err := c.resetFields(ctx, key, fields)
		if ok {
			n++
		}
		return err
	})
	if err != nil {
		return n, err
	}
	c.log.Info("stats wiped", "prefix", prefix, "records", n)
	return n, nil
}
