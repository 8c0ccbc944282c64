package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/tinoosan/mika/internal/metrics"
)

// RedisOptions selects the Redis instance holding tracker state.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// MaxRetries bounds how often Atomic re-runs after a watched key changed.
	MaxRetries int
}

// Redis implements Store on top of a go-redis client.
type Redis struct {
	client  *redis.Client
	retries int
}

var _ Store = (*Redis)(nil)

func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisFromClient(client, opts.MaxRetries)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, maxRetries int) *Redis {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &Redis{client: client, retries: maxRetries}
}

// observe times a single store operation and counts its failures.
func observe(op string) func(error) error {
	timer := prometheus.NewTimer(metrics.CacheOpLatency.WithLabelValues(op))
	return func(err error) error {
		timer.ObserveDuration()
		if errors.Is(err, redis.Nil) {
			return ErrNil
		}
		if isWrongType(err) {
			return ErrWrongType
		}
		if err != nil {
			metrics.CacheOpErrors.WithLabelValues(op).Inc()
		}
		return err
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	done := observe("get")
	v, err := r.client.Get(ctx, key).Result()
	return v, done(err)
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	done := observe("exists")
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, done(err)
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	done := observe("hgetall")
	m, err := r.client.HGetAll(ctx, key).Result()
	return m, done(err)
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	done := observe("set")
	return done(r.client.Set(ctx, key, value, 0).Err())
}

func (r *Redis) SetNX(ctx context.Context, key, value string) (bool, error) {
	done := observe("setnx")
	ok, err := r.client.SetNX(ctx, key, value, 0).Result()
	return ok, done(err)
}

func (r *Redis) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	done := observe("hset")
	return done(r.client.HSet(ctx, key, pairs(fields)...).Err())
}

func (r *Redis) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	done := observe("hsetnx")
	ok, err := r.client.HSetNX(ctx, key, field, value).Result()
	return ok, done(err)
}

func (r *Redis) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	done := observe("hdel")
	return done(r.client.HDel(ctx, key, fields...).Err())
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	done := observe("del")
	return done(r.client.Del(ctx, keys...).Err())
}

func (r *Redis) Scan(ctx context.Context, prefix string, fn func(key string) error) error {
	done := observe("scan")
	iter := r.client.Scan(ctx, 0, globEscape(prefix)+"*", 500).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			done(nil)
			return err
		}
	}
	return done(iter.Err())
}

func (r *Redis) Atomic(ctx context.Context, watch []string, fn func(tx Tx) error) error {
	done := observe("atomic")
	for i := 0; i < r.retries; i++ {
		var fnErr error
		err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := &redisTx{ctx: ctx, tx: rtx}
			if fnErr = fn(t); fnErr != nil {
				return fnErr
			}
			if len(t.ops) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, op := range t.ops {
					op(pipe)
				}
				return nil
			})
			return err
		}, watch...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if fnErr != nil {
			// callback error, not a store failure
			done(nil)
			return fnErr
		}
		return done(err)
	}
	return done(ErrTxConflict)
}

func (r *Redis) Ping(ctx context.Context) error {
	done := observe("ping")
	return done(r.client.Ping(ctx).Err())
}

func (r *Redis) Close() error { return r.client.Close() }

type redisTx struct {
	ctx context.Context
	tx  *redis.Tx
	ops []func(redis.Pipeliner)
}

func (t *redisTx) Get(ctx context.Context, key string) (string, error) {
	v, err := t.tx.Get(ctx, key).Result()
	return v, txErr(err)
}

func (t *redisTx) Exists(ctx context.Context, key string) (bool, error) {
	n, err := t.tx.Exists(ctx, key).Result()
	return n > 0, err
}

func (t *redisTx) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := t.tx.HGetAll(ctx, key).Result()
	return m, txErr(err)
}

func (t *redisTx) Watch(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return t.tx.Watch(ctx, keys...).Err()
}

func (t *redisTx) Set(key, value string) {
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.Set(t.ctx, key, value, 0) })
}

func (t *redisTx) HSet(key string, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	args := pairs(fields)
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.HSet(t.ctx, key, args...) })
}

func (t *redisTx) HSetNX(key, field, value string) {
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.HSetNX(t.ctx, key, field, value) })
}

func (t *redisTx) HDel(key string, fields ...string) {
	if len(fields) == 0 {
		return
	}
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.HDel(t.ctx, key, fields...) })
}

func (t *redisTx) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.Del(t.ctx, keys...) })
}

func pairs(fields map[string]string) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for f, v := range fields {
		out = append(out, f, v)
	}
	return out
}

// globEscape quotes the characters SCAN MATCH treats as patterns.
func globEscape(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// txErr maps read errors inside an atomic section onto the package sentinels.
func txErr(err error) error {
	switch {
	case errors.Is(err, redis.Nil):
		return ErrNil
	case isWrongType(err):
		return ErrWrongType
	}
	return err
}

func isWrongType(err error) bool {
	var re redis.Error
	return errors.As(err, &re) && strings.HasPrefix(re.Error(), "WRONGTYPE")
}
