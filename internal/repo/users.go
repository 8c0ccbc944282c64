package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/keys"
)

// CacheUserRepo keeps users under t:u:<user_id> and the passkey index under
// t:user:<passkey>.
type CacheUserRepo struct {
	store cache.Store
}

func NewCacheUserRepo(store cache.Store) *CacheUserRepo {
	return &CacheUserRepo{store: store}
}

var _ UserRepo = (*CacheUserRepo)(nil)

func (r *CacheUserRepo) Get(ctx context.Context, userID uint64) (*data.User, error) {
	f, err := r.store.HGetAll(ctx, keys.User(userID))
	if err != nil {
		return nil, err
	}
	if len(f) == 0 {
		return nil, data.ErrNotFound
	}
	return data.UserFromFields(f)
}

func (r *CacheUserRepo) GetByPasskey(ctx context.Context, passkey string) (*data.User, error) {
	raw, err := r.store.Get(ctx, keys.Passkey(passkey))
	if errors.Is(err, cache.ErrNil) {
		return nil, data.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	id, err := data.ParseID(raw)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *CacheUserRepo) List(ctx context.Context) (data.Users, error) {
	out := make(data.Users, 0)
	err := r.store.Scan(ctx, keys.UserPrefix, func(key string) error {
		if !keys.Classify(key).Current {
			return nil
		}
		f, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return err
		}
		if len(f) == 0 {
			return nil
		}
		u, err := data.UserFromFields(f)
		if err != nil {
			return nil
		}
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *CacheUserRepo) Add(ctx context.Context, u *data.User) (*data.User, error) {
	uk, pk := keys.User(u.UserID), keys.Passkey(u.Passkey)
	err := r.store.Atomic(ctx, []string{uk, pk}, func(tx cache.Tx) error {
		for _, k := range []string{uk, pk} {
			ok, err := tx.Exists(ctx, k)
			if err != nil {
				return err
			}
			if ok {
				return data.ErrConflict
			}
		}
		tx.HSet(uk, u.Fields())
		tx.Set(pk, data.FormatID(u.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

func (r *CacheUserRepo) Update(ctx context.Context, userID uint64, mutate func(*data.User) error) (*data.User, error) {
	uk := keys.User(userID)
	id := data.FormatID(userID)
	var out *data.User
	err := r.store.Atomic(ctx, []string{uk}, func(tx cache.Tx) error {
		f, err := tx.HGetAll(ctx, uk)
		if err != nil {
			return err
		}
		if len(f) == 0 {
			return data.ErrNotFound
		}
		u, err := data.UserFromFields(f)
		if err != nil {
			return err
		}
		oldPasskey := u.Passkey
		if err := mutate(u); err != nil {
			return err
		}
		u.UserID = userID

		if u.Passkey != oldPasskey {
			npk := keys.Passkey(u.Passkey)
			if err := tx.Watch(ctx, npk); err != nil {
				return err
			}
			owner, err := tx.Get(ctx, npk)
			switch {
			case errors.Is(err, cache.ErrNil):
			case err != nil:
				return err
			case owner != id:
				return data.ErrConflict
			}
			if oldPasskey != "" {
				opk := keys.Passkey(oldPasskey)
				if err := tx.Watch(ctx, opk); err != nil {
					return err
				}
				if cur, err := tx.Get(ctx, opk); err == nil && cur == id {
					tx.Del(opk)
				}
			}
			tx.Set(npk, id)
		}
		tx.HSet(uk, u.Fields())
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// Upsert refuses with data.ErrConflict when the passkey is mapped to
// another user.
func (r *CacheUserRepo) Upsert(ctx context.Context, u *data.User, withTotals bool) error {
	uk, pk := keys.User(u.UserID), keys.Passkey(u.Passkey)
	id := data.FormatID(u.UserID)
	return r.store.Atomic(ctx, []string{uk, pk}, func(tx cache.Tx) error {
		owner, err := tx.Get(ctx, pk)
		if err != nil && !errors.Is(err, cache.ErrNil) {
			return err
		}
		if owner != "" && owner != id {
			return fmt.Errorf("%w: passkey belongs to user %s", data.ErrConflict, owner)
		}
		f, err := tx.HGetAll(ctx, uk)
		if err != nil {
			return err
		}
		if old := f[data.FieldPasskey]; old != "" && old != u.Passkey {
			opk := keys.Passkey(old)
			if err := tx.Watch(ctx, opk); err != nil {
				return err
			}
			if cur, err := tx.Get(ctx, opk); err == nil && cur == id {
				tx.Del(opk)
			}
		}
		fields := map[string]string{
			data.FieldUserID:   id,
			data.FieldPasskey:  u.Passkey,
			data.FieldUsername: u.Username,
		}
		if withTotals {
			fields[data.FieldUploaded] = data.FormatID(u.Uploaded)
			fields[data.FieldDownloaded] = data.FormatID(u.Downloaded)
		}
		tx.HSet(uk, fields)
		for _, c := range data.UserCounters {
			if _, set := fields[c]; !set {
				tx.HSetNX(uk, c, "0")
			}
		}
		tx.HSetNX(uk, data.FieldCanLeech, "1")
		tx.HSetNX(uk, data.FieldEnabled, "1")
		tx.Set(pk, id)
		return nil
	})
}

// SortUsers orders users in place by user_id, uploaded or downloaded.
// Ties fall back to user_id.
func SortUsers(users data.Users, by string) error {
	var key func(*data.User) uint64
	switch by {
	case "", data.FieldUserID:
		key = func(u *data.User) uint64 { return u.UserID }
	case data.FieldUploaded:
		key = func(u *data.User) uint64 { return u.Uploaded }
	case data.FieldDownloaded:
		key = func(u *data.User) uint64 { return u.Downloaded }
	default:
		return &SortError{By: by}
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := key(users[i]), key(users[j])
		if a != b {
			return a < b
		}
		return users[i].UserID < users[j].UserID
	})
	return nil
}

type SortError struct{ By string }

func (e *SortError) Error() string { return "unknown sort field " + strconv.Quote(e.By) }

func (e *SortError) Unwrap() error { return data.ErrInvalid }
