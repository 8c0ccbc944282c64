// Package maintenance scans the cache store for legacy keys, damaged
// counters and stale mappings, and repairs what it finds.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/keys"
	"github.com/tinoosan/mika/internal/metrics"
)

// Options select the destructive parts of a cleanup. With both unset a run
// only reports, except for user counters which are always repaired.
type Options struct {
	// Delete removes legacy keys and stale mappings.
	Delete bool
	// Update resets damaged torrent counters.
	Update bool
}

type FindingKind string

const (
	FindingLegacyKey    FindingKind = "legacy_key"
	FindingBadCounter   FindingKind = "bad_counter"
	FindingStaleMapping FindingKind = "stale_mapping"
)

type Finding struct {
	Kind     FindingKind `json:"kind"`
	Key      string      `json:"key"`
	Fields   []string    `json:"fields,omitempty"`
	Detail   string      `json:"detail"`
	Repaired bool        `json:"repaired"`
}

type Report struct {
	OperationID string    `json:"operation_id"`
	Scanned     int       `json:"scanned"`
	Findings    []Finding `json:"findings"`
}

// Count returns the number of findings of kind k.
func (r *Report) Count(k FindingKind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

type Cleaner struct {
	store cache.Store
	log   *slog.Logger
}

func New(log *slog.Logger, store cache.Store) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{store: store, log: log}
}

type run struct {
	*Cleaner
	opts Options
	log  *slog.Logger
	rep  *Report
}

// Cleanup walks user and torrent records, then the three mapping families.
// Store errors abort the run; problems in the data are reported and, where
// the options allow, repaired.
func (c *Cleaner) Cleanup(ctx context.Context, opts Options) (Report, error) {
	rep := Report{OperationID: uuid.NewString(), Findings: []Finding{}}
	r := &run{Cleaner: c, opts: opts, log: c.log.With("operation_id", rep.OperationID), rep: &rep}
	r.log.Info("cleanup started", "delete", opts.Delete, "update", opts.Update)

	passes := []struct {
		prefix string
		visit  func(context.Context, string) error
	}{
		{keys.UserPrefix, r.record(data.UserCounters, true)},
		{keys.TorrentPrefix, r.record(data.TorrentCounters, opts.Update)},
		{keys.PasskeyPrefix, r.passkey},
		{keys.InfoHashPrefix, r.infoHash},
		{keys.TorrentIDPrefix, r.torrentID},
	}
	for _, p := range passes {
		err := c.store.Scan(ctx, p.prefix, func(key string) error {
			rep.Scanned++
			return p.visit(ctx, key)
		})
		if err != nil {
			r.log.Error("cleanup aborted", "prefix", p.prefix, "err", err)
			return rep, fmt.Errorf("cleanup %s: %w", p.prefix, err)
		}
	}
	r.log.Info("cleanup finished", "scanned", rep.Scanned,
		"legacy", rep.Count(FindingLegacyKey),
		"counters", rep.Count(FindingBadCounter),
		"mappings", rep.Count(FindingStaleMapping))
	return rep, nil
}

func (r *run) report(f Finding) {
	r.rep.Findings = append(r.rep.Findings, f)
	metrics.CleanupFindings.WithLabelValues(string(f.Kind)).Inc()
	r.log.Warn("cleanup finding", "kind", f.Kind, "key", f.Key, "fields", f.Fields, "detail", f.Detail, "repaired", f.Repaired)
}

// record returns the visitor for t:u: or t:t: keys. Damaged counters are
// reset only when reset is set.
func (r *run) record(counters []string, reset bool) func(context.Context, string) error {
	return func(ctx context.Context, key string) error {
		cl := keys.Classify(key)
		if !cl.Current {
			return r.legacy(ctx, cl)
		}
		f, err := r.store.HGetAll(ctx, key)
		if errors.Is(err, cache.ErrWrongType) {
			return r.malformed(ctx, key, "record is not a hash")
		}
		if err != nil {
			return err
		}
		if len(f) == 0 {
			return nil
		}
		bad := badCounters(f, counters)
		if len(bad) == 0 {
			return nil
		}
		finding := Finding{Kind: FindingBadCounter, Key: key, Fields: bad, Detail: "missing or out of range counter"}
		if reset {
			ok, err := r.resetFields(ctx, key, bad)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			finding.Repaired = true
		}
		r.report(finding)
		return nil
	}
}

func badCounters(f map[string]string, counters []string) []string {
	var bad []string
	for _, c := range counters {
		raw, ok := f[c]
		if !ok {
			bad = append(bad, c)
			continue
		}
		if _, err := data.ParseCounter(c, raw); err != nil {
			bad = append(bad, c)
		}
	}
	return bad
}

// resetFields zeroes fields of key in one commit. It reports false when the
// record disappeared before the commit or is not a hash.
func (c *Cleaner) resetFields(ctx context.Context, key string, fields []string) (bool, error) {
	exists := false
	err := c.store.Atomic(ctx, []string{key}, func(tx cache.Tx) error {
		cur, err := tx.HGetAll(ctx, key)
		if errors.Is(err, cache.ErrWrongType) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = len(cur) > 0
		if !exists {
			return nil
		}
		zero := make(map[string]string, len(fields))
		for _, f := range fields {
			zero[f] = "0"
		}
		tx.HSet(key, zero)
		return nil
	})
	return exists, err
}

func (r *run) legacy(ctx context.Context, cl keys.Classification) error {
	return r.malformed(ctx, cl.Key, cl.Err().Error())
}

// malformed reports a key whose name or value no current reader accepts and
// removes it with Delete.
func (r *run) malformed(ctx context.Context, key, detail string) error {
	f := Finding{Kind: FindingLegacyKey, Key: key, Detail: detail}
	if r.opts.Delete {
		if err := r.store.Del(ctx, key); err != nil {
			return err
		}
		f.Repaired = true
	}
	r.report(f)
	return nil
}

// stale reports a mapping and, with Delete, removes it if it still holds
// the value that was checked.
func (r *run) stale(ctx context.Context, key, value, detail string) error {
	f := Finding{Kind: FindingStaleMapping, Key: key, Detail: detail}
	if r.opts.Delete {
		removed := false
		err := r.store.Atomic(ctx, []string{key}, func(tx cache.Tx) error {
			cur, err := tx.Get(ctx, key)
			if errors.Is(err, cache.ErrNil) || errors.Is(err, cache.ErrWrongType) {
				return nil
			}
			if err != nil {
				return err
			}
			if cur == value {
				tx.Del(key)
				removed = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		f.Repaired = true
	}
	r.report(f)
	return nil
}

// lookup reads a mapping value. ok is false when the key vanished or holds
// a hash.
func (r *run) lookup(ctx context.Context, key string) (string, bool, error) {
	v, err := r.store.Get(ctx, key)
	if errors.Is(err, cache.ErrNil) || errors.Is(err, cache.ErrWrongType) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// mapping reads the value of a scanned mapping key. A key holding a hash is
// reported as malformed and ok is false.
func (r *run) mapping(ctx context.Context, key string) (string, bool, error) {
	v, err := r.store.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrNil):
		return "", false, nil
	case errors.Is(err, cache.ErrWrongType):
		return "", false, r.malformed(ctx, key, "mapping is not a string")
	case err != nil:
		return "", false, err
	}
	return v, true, nil
}

func (r *run) passkey(ctx context.Context, key string) error {
	v, ok, err := r.mapping(ctx, key)
	if err != nil || !ok {
		return err
	}
	if !keys.Classify(key).Current {
		return r.stale(ctx, key, v, "empty passkey")
	}
	id, err := data.ParseID(v)
	if err != nil {
		return r.stale(ctx, key, v, "user id is not an integer")
	}
	f, err := r.store.HGetAll(ctx, keys.User(id))
	if err != nil && !errors.Is(err, cache.ErrWrongType) {
		return err
	}
	if len(f) == 0 {
		return r.stale(ctx, key, v, "user record missing")
	}
	if f[data.FieldPasskey] != key[len(keys.PasskeyPrefix):] {
		return r.stale(ctx, key, v, "user record has another passkey")
	}
	return nil
}

func (r *run) infoHash(ctx context.Context, key string) error {
	v, ok, err := r.mapping(ctx, key)
	if err != nil || !ok {
		return err
	}
	if !keys.Classify(key).Current {
		return r.stale(ctx, key, v, "malformed info hash")
	}
	ih := key[len(keys.InfoHashPrefix):]
	id, err := data.ParseID(v)
	if err != nil {
		return r.stale(ctx, key, v, "torrent id is not an integer")
	}
	exists, err := r.store.Exists(ctx, keys.Torrent(ih))
	if err != nil {
		return err
	}
	if !exists {
		return r.stale(ctx, key, v, "torrent record missing")
	}
	back, ok, err := r.lookup(ctx, keys.TorrentID(id))
	if err != nil {
		return err
	}
	if !ok || back != ih {
		return r.stale(ctx, key, v, "torrent id maps to another info hash")
	}
	return nil
}

func (r *run) torrentID(ctx context.Context, key string) error {
	v, ok, err := r.mapping(ctx, key)
	if err != nil || !ok {
		return err
	}
	if !keys.Classify(key).Current {
		return r.stale(ctx, key, v, "torrent id is not an integer")
	}
	ih, err := data.NormalizeInfoHash(v)
	if err != nil || ih != v {
		return r.stale(ctx, key, v, "malformed info hash")
	}
	exists, err := r.store.Exists(ctx, keys.Torrent(ih))
	if err != nil {
		return err
	}
	if !exists {
		return r.stale(ctx, key, v, "torrent record missing")
	}
	back, ok, err := r.lookup(ctx, keys.InfoHash(ih))
	if err != nil {
		return err
	}
	if !ok || back != key[len(keys.TorrentIDPrefix):] {
		return r.stale(ctx, key, v, "info hash maps to another torrent id")
	}
	return nil
}
