package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/events"
	"github.com/tinoosan/mika/internal/repo"
)

type Whitelist interface {
	List(ctx context.Context) (data.Whitelist, error)
	Put(ctx context.Context, e data.WhitelistEntry) (*data.WhitelistEntry, error)
	Delete(ctx context.Context, prefix string) error
}

type whitelist struct {
	repo repo.WhitelistRepo
	pub  events.Publisher
}

func NewWhitelist(repo repo.WhitelistRepo, pub events.Publisher) Whitelist {
	if pub == nil {
		pub = events.Discard{}
	}
	return &whitelist{repo: repo, pub: pub}
}

func (ws *whitelist) List(ctx context.Context) (data.Whitelist, error) {
	return ws.repo.List(ctx)
}

// Put inserts or replaces the client name registered for a prefix.
func (ws *whitelist) Put(ctx context.Context, e data.WhitelistEntry) (*data.WhitelistEntry, error) {
	if err := checkPrefix(e.Prefix); err != nil {
		return nil, err
	}
	e.Client = strings.TrimSpace(e.Client)
	if e.Client == "" {
		return nil, fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrClientName)
	}
	if err := ws.repo.Put(ctx, e); err != nil {
		return nil, err
	}
	ws.pub.Publish(events.Event{Type: events.WhitelistPut, Key: e.Prefix, Data: e})
	return &e, nil
}

func (ws *whitelist) Delete(ctx context.Context, prefix string) error {
	if err := checkPrefix(prefix); err != nil {
		return err
	}
	if err := ws.repo.Delete(ctx, prefix); err != nil {
		return err
	}
	ws.pub.Publish(events.Event{Type: events.WhitelistDeleted, Key: prefix})
	return nil
}

// checkPrefix rejects prefixes that cannot round-trip through a single
// /whitelist/{prefix} path segment.
func checkPrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrPrefix)
	case strings.Contains(prefix, "/"):
		return fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrPrefixSlash)
	}
	return nil
}
