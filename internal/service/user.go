package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinoosan/mika/internal/data"
	"github.com/tinoosan/mika/internal/events"
	"github.com/tinoosan/mika/internal/repo"
)

type User interface {
	Get(ctx context.Context, userID uint64) (*data.User, error)
	Add(ctx context.Context, u *data.User) (*data.User, error)
	// Update merges p into the stored user. Nil patch fields keep their value.
	Update(ctx context.Context, userID uint64, p data.UserPatch) (*data.User, error)
}

type user struct {
	repo repo.UserRepo
	pub  events.Publisher
}

func NewUser(repo repo.UserRepo, pub events.Publisher) User {
	if pub == nil {
		pub = events.Discard{}
	}
	return &user{repo: repo, pub: pub}
}

func (us *user) Get(ctx context.Context, userID uint64) (*data.User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrUserID)
	}
	return us.repo.Get(ctx, userID)
}

func (us *user) Add(ctx context.Context, u *data.User) (*data.User, error) {
	if u.UserID == 0 {
		return nil, fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrUserID)
	}
	pk := strings.TrimSpace(u.Passkey)
	if pk == "" {
		return nil, fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrPasskey)
	}
	fresh := &data.User{
		UserID:   u.UserID,
		Passkey:  pk,
		Username: strings.TrimSpace(u.Username),
		CanLeech: u.CanLeech,
		Enabled:  true,
	}
	saved, err := us.repo.Add(ctx, fresh)
	if err != nil {
		return nil, err
	}
	us.pub.Publish(events.Event{Type: events.UserAdded, Key: data.FormatID(saved.UserID), Data: saved})
	return saved, nil
}

func (us *user) Update(ctx context.Context, userID uint64, p data.UserPatch) (*data.User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: %w", data.ErrInvalid, data.ErrUserID)
	}
	// validate before touching the store so bad input never needs a retry
	if err := p.Apply(&data.User{}); err != nil {
		return nil, err
	}
	saved, err := us.repo.Update(ctx, userID, p.Apply)
	if err != nil {
		return nil, err
	}
	us.pub.Publish(events.Event{Type: events.UserUpdated, Key: data.FormatID(userID), Data: saved})
	return saved, nil
}
