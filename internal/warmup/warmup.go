// Package warmup seeds the cache store from the cold store. Every write is
// an upsert, so an interrupted run is resumed by running it again.
package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tinoosan/mika/internal/coldstore"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/metrics"
	"github.com/tinoosan/mika/internal/repo"
)

// RowError identifies the cold store row that aborted an import.
type RowError struct {
	Table    string
	Ordinal  int
	Identity string
	Err      error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d (%s): %v", e.Table, e.Ordinal, e.Identity, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type Report struct {
	OperationID string `json:"operation_id"`
	Whitelist   int    `json:"whitelist"`
	Users       int    `json:"users"`
	Torrents    int    `json:"torrents"`
}

type Importer struct {
	src       coldstore.Source
	torrents  repo.TorrentWriter
	users     repo.UserWriter
	whitelist repo.WhitelistRepo
	stats     repo.StatsRepo
	log       *slog.Logger
}

func New(log *slog.Logger, src coldstore.Source, torrents repo.TorrentWriter, users repo.UserWriter, whitelist repo.WhitelistRepo, stats repo.StatsRepo) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{src: src, torrents: torrents, users: users, whitelist: whitelist, stats: stats, log: log}
}

// Run imports stats, whitelist, users and torrents in that order and stops at
// the first failing row.
func (im *Importer) Run(ctx context.Context) (Report, error) {
	rep := Report{OperationID: uuid.NewString()}
	log := im.log.With("operation_id", rep.OperationID)
	log.Info("warmup started")

	steps := []struct {
		name string
		run  func(context.Context, *Report) error
	}{
		{"stats", im.loadStats},
		{"whitelist", im.loadWhitelist},
		{"users", im.loadUsers},
		{"torrents", im.loadTorrents},
	}
	for _, s := range steps {
		if err := s.run(ctx, &rep); err != nil {
			log.Error("warmup aborted", "step", s.name, "err", err)
			return rep, fmt.Errorf("warmup %s: %w", s.name, err)
		}
	}
	log.Info("warmup finished", "whitelist", rep.Whitelist, "users", rep.Users, "torrents", rep.Torrents)
	return rep, nil
}

func (im *Importer) loadStats(ctx context.Context, _ *Report) error {
	return im.stats.Init(ctx)
}

// loadWhitelist replaces the whole hash. Rows are applied in cold store
// order, so the last occurrence of a duplicate prefix wins.
func (im *Importer) loadWhitelist(ctx context.Context, rep *Report) error {
	var entries data.Whitelist
	err := im.src.Whitelist(ctx, func(r coldstore.WhitelistRow) error {
		if r.Prefix == "" {
			return &RowError{Table: "xbt_client_whitelist", Ordinal: r.Ordinal, Identity: "peer_id=''", Err: fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrPrefix)}
		}
		entries = append(entries, data.WhitelistEntry{Prefix: r.Prefix, Client: r.Client})
		return nil
	})
	if err != nil {
		return err
	}
	if err := im.whitelist.Replace(ctx, entries); err != nil {
		return err
	}
	rep.Whitelist = len(entries)
	metrics.WarmupRecords.WithLabelValues("whitelist").Add(float64(len(entries)))
	return nil
}

func (im *Importer) loadUsers(ctx context.Context, rep *Report) error {
	return im.src.Users(ctx, func(r coldstore.UserRow) error {
		fail := func(err error) error {
			return &RowError{Table: "users", Ordinal: r.Ordinal, Identity: fmt.Sprintf("id=%d", r.UserID), Err: err}
		}
		if r.UserID <= 0 {
			return fail(fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrUserID))
		}
		u := &data.User{UserID: uint64(r.UserID), Passkey: strings.TrimSpace(r.Passkey), Username: r.Username}
		if u.Passkey == "" {
			return fail(fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrPasskey))
		}
		withTotals := r.Uploaded != nil && r.Downloaded != nil
		if withTotals {
			up, err := counter(data.FieldUploaded, *r.Uploaded)
			if err != nil {
				return fail(err)
			}
			down, err := counter(data.FieldDownloaded, *r.Downloaded)
			if err != nil {
				return fail(err)
			}
			u.Uploaded, u.Downloaded = up, down
		}
		if err := im.users.Upsert(ctx, u, withTotals); err != nil {
			return fail(err)
		}
		rep.Users++
		metrics.WarmupRecords.WithLabelValues("user").Inc()
		return nil
	})
}

func (im *Importer) loadTorrents(ctx context.Context, rep *Report) error {
	return im.src.Torrents(ctx, func(r coldstore.TorrentRow) error {
		if r.InfoHash == "" {
			return nil
		}
		fail := func(err error) error {
			return &RowError{Table: "torrents", Ordinal: r.Ordinal, Identity: fmt.Sprintf("id=%d info_hash=%s", r.TorrentID, r.InfoHash), Err: err}
		}
		ih, err := data.NormalizeInfoHash(r.InfoHash)
		if err != nil {
			return fail(err)
		}
		if r.TorrentID <= 0 {
			return fail(fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrTorrentID))
		}
		if err := data.CheckCounter(data.FieldTorrentID, uint64(r.TorrentID)); err != nil {
			return fail(err)
		}
		t := &data.Torrent{InfoHash: ih, TorrentID: uint64(r.TorrentID), ReleaseName: r.ReleaseName}
		if err := im.torrents.Upsert(ctx, t); err != nil {
			return fail(err)
		}
		rep.Torrents++
		metrics.WarmupRecords.WithLabelValues("torrent").Inc()
		return nil
	})
}

func counter(name string, v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %s: %w", data.ErrInvalid, name, data.ErrCounterRange)
	}
	if err := data.CheckCounter(name, uint64(v)); err != nil {
		return 0, err
	}
	return uint64(v), nil
}
