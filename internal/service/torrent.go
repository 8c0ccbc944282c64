package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/events"
	"github.com/tinoosan/mika/internal/repo"
)

type Torrent interface {
	Get(ctx context.Context, torrentID uint64) (*data.Torrent, error)
	Add(ctx context.Context, t *data.Torrent) (*data.Torrent, error)
	Delete(ctx context.Context, torrentID uint64) error
}

type torrent struct {
	repo repo.TorrentRepo
	pub  events.Publisher
}

func NewTorrent(repo repo.TorrentRepo, pub events.Publisher) Torrent {
	if pub == nil {
		pub = events.Discard{}
	}
	return &torrent{repo: repo, pub: pub}
}

func (ts *torrent) Get(ctx context.Context, torrentID uint64) (*data.Torrent, error) {
	if torrentID == 0 {
		return nil, fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrTorrentID)
	}
	return ts.repo.GetByID(ctx, torrentID)
}

// Add creates a torrent with zeroed counters.
func (ts *torrent) Add(ctx context.Context, t *data.Torrent) (*data.Torrent, error) {
	ih, err := data.NormalizeInfoHash(t.InfoHash)
	if err != nil {
		return nil, err
	}
	if t.TorrentID == 0 {
		return nil, fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrTorrentID)
	}
	if err := data.CheckCounter(data.FieldTorrentID, t.TorrentID); err != nil {
		return nil, err
	}
	fresh := &data.Torrent{
		InfoHash:    ih,
		TorrentID:   t.TorrentID,
		ReleaseName: strings.TrimSpace(t.ReleaseName),
	}
	saved, err := ts.repo.Add(ctx, fresh)
	if err != nil {
		return nil, err
	}
	ts.pub.Publish(events.Event{Type: events.TorrentAdded, Key: data.FormatID(saved.TorrentID), Data: saved})
	return saved, nil
}

func (ts *torrent) Delete(ctx context.Context, torrentID uint64) error {
	if torrentID == 0 {
		return fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrTorrentID)
	}
	removed, err := ts.repo.Delete(ctx, torrentID)
	if err != nil {
		return err
	}
	if removed {
		ts.pub.Publish(events.Event{Type: events.TorrentDeleted, Key: data.FormatID(torrentID)})
	}
	return nil
}
