package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is a process local Store used by tests and single node setups.
type Memory struct {
	mu     sync.RWMutex
	strs   map[string]string
	hashes map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		strs:   make(map[string]string),
		hashes: make(map[string]map[string]string),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(key)
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exists(key), nil
}

func (m *Memory) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hgetall(key)
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value)
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exists(key) {
		return false, nil
	}
	m.set(key, value)
	return true, nil
}

func (m *Memory) HSet(ctx context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hset(key, fields)
}

func (m *Memory) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hsetnx(key, field, value)
}

func (m *Memory) HDel(ctx context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hdel(key, fields...)
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.del(keys...)
	return nil
}

func (m *Memory) Scan(ctx context.Context, prefix string, fn func(key string) error) error {
	m.mu.RLock()
	var snapshot []string
	for k := range m.strs {
		if strings.HasPrefix(k, prefix) {
			snapshot = append(snapshot, k)
		}
	}
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			snapshot = append(snapshot, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(snapshot)

	for _, k := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

// Atomic holds the store lock for the whole callback, so the watch list is
// not needed to detect conflicts.
func (m *Memory) Atomic(ctx context.Context, watch []string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, op := range tx.ops {
		if err := op(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }

// unlocked helpers; callers hold mu.

func (m *Memory) exists(key string) bool {
	if _, ok := m.strs[key]; ok {
		return true
	}
	_, ok := m.hashes[key]
	return ok
}

func (m *Memory) get(key string) (string, error) {
	if v, ok := m.strs[key]; ok {
		return v, nil
	}
	if _, ok := m.hashes[key]; ok {
		return "", ErrWrongType
	}
	return "", ErrNil
}

func (m *Memory) hgetall(key string) (map[string]string, error) {
	if _, ok := m.strs[key]; ok {
		return nil, ErrWrongType
	}
	out := make(map[string]string, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (m *Memory) set(key, value string) {
	delete(m.hashes, key)
	m.strs[key] = value
}

func (m *Memory) hash(key string) (map[string]string, error) {
	if _, ok := m.strs[key]; ok {
		return nil, ErrWrongType
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	return h, nil
}

func (m *Memory) hset(key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	h, err := m.hash(key)
	if err != nil {
		return err
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (m *Memory) hsetnx(key, field, value string) (bool, error) {
	h, err := m.hash(key)
	if err != nil {
		return false, err
	}
	if _, ok := h[field]; ok {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (m *Memory) hdel(key string, fields ...string) error {
	if _, ok := m.strs[key]; ok {
		return ErrWrongType
	}
	h, ok := m.hashes[key]
	if !ok {
		return nil
	}
	for _, f := range fields {
		delete(h, f)
	}
	if len(h) == 0 {
		delete(m.hashes, key)
	}
	return nil
}

func (m *Memory) del(keys ...string) {
	for _, k := range keys {
		delete(m.strs, k)
		delete(m.hashes, k)
	}
}

type memTx struct {
	m   *Memory
	ops []func() error
}

func (t *memTx) Get(ctx context.Context, key string) (string, error) { return t.m.get(key) }

func (t *memTx) Exists(ctx context.Context, key string) (bool, error) { return t.m.exists(key), nil }

func (t *memTx) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return t.m.hgetall(key)
}

func (t *memTx) Watch(ctx context.Context, keys ...string) error { return nil }

func (t *memTx) Set(key, value string) {
	t.ops = append(t.ops, func() error { t.m.set(key, value); return nil })
}

func (t *memTx) HSet(key string, fields map[string]string) {
	t.ops = append(t.ops, func() error { return t.m.hset(key, fields) })
}

func (t *memTx) HSetNX(key, field, value string) {
	t.ops = append(t.ops, func() error { _, err := t.m.hsetnx(key, field, value); return err })
}

func (t *memTx) HDel(key string, fields ...string) {
	t.ops = append(t.ops, func() error { return t.m.hdel(key, fields...) })
}

func (t *memTx) Del(keys ...string) {
	t.ops = append(t.ops, func() error { t.m.del(keys...); return nil })
}
