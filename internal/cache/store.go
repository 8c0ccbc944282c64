// Package cache is the key-value store holding live tracker state.
package cache

import (
	"context"
	"errors"
)

var (
	// ErrNil is returned by string reads of a missing key.
	ErrNil = errors.New("cache: key does not exist")
	// ErrTxConflict is returned when an atomic section kept losing the race
	// against concurrent writers.
	ErrTxConflict = errors.New("cache: transaction aborted after concurrent modification")
	// ErrWrongType is returned when a key holds a string where a hash is
	// expected or the reverse. It is a data problem, not a store failure.
	ErrWrongType = errors.New("cache: operation against a key holding the wrong kind of value")
)

type Reader interface {
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// HGetAll returns an empty map for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

type Writer interface {
	Set(ctx context.Context, key, value string) error
	SetNX(ctx context.Context, key, value string) (bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, keys ...string) error
}

// Tx is handed to Atomic callbacks. Reads observe the store immediately;
// writes are queued and committed together when the callback returns nil.
type Tx interface {
	Reader
	// Watch adds keys to the conflict set. Call it before reading them.
	Watch(ctx context.Context, keys ...string) error
	Set(key, value string)
	HSet(key string, fields map[string]string)
	HSetNX(key, field, value string)
	HDel(key string, fields ...string)
	Del(keys ...string)
}

type Store interface {
	Reader
	Writer
	// Scan calls fn for each key starting with prefix. Enumeration is a
	// best-effort snapshot: keys may change or vanish before fn sees them.
	Scan(ctx context.Context, prefix string, fn func(key string) error) error
	// Atomic runs fn and commits its queued writes only if none of the
	// watched keys changed in the meantime. fn may be invoked more than once.
	Atomic(ctx context.Context, watch []string, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
