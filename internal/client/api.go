package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tinoosan/mika/internal/data"
)

type addTorrentRequest struct {
	InfoHash    string `json:"info_hash"`
	TorrentID   uint64 `json:"torrent_id"`
	ReleaseName string `json:"release_name,omitempty"`
}

type addUserRequest struct {
	UserID   uint64 `json:"user_id"`
	Passkey  string `json:"passkey"`
	Username string `json:"username,omitempty"`
	CanLeech *bool  `json:"can_leech,omitempty"`
}

type updateUserRequest struct {
	Uploaded   *uint64 `json:"uploaded,omitempty"`
	Downloaded *uint64 `json:"downloaded,omitempty"`
	Passkey    *string `json:"passkey,omitempty"`
	CanLeech   *bool   `json:"can_leech,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

func (c *Client) TorrentGet(ctx context.Context, torrentID uint64) (*data.Torrent, error) {
	var out data.Torrent
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", data.FormatID(torrentID)).
		SetResult(&out).
		Get("/torrent/{id}")
	if err := check("torrent get", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TorrentAdd(ctx context.Context, infoHash string, torrentID uint64, releaseName string) (*data.Torrent, error) {
	var out data.Torrent
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(addTorrentRequest{InfoHash: infoHash, TorrentID: torrentID, ReleaseName: releaseName}).
		SetResult(&out).
		Post("/torrent")
	if err := check("torrent add", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TorrentDelete(ctx context.Context, torrentID uint64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", data.FormatID(torrentID)).
		Delete("/torrent/{id}")
	return check("torrent delete", resp, err)
}

func (c *Client) UserGet(ctx context.Context, userID uint64) (*data.User, error) {
	var out data.User
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", data.FormatID(userID)).
		SetResult(&out).
		Get("/user/{id}")
	if err := check("user get", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserAdd creates a user. A nil canLeech leaves the server default.
func (c *Client) UserAdd(ctx context.Context, userID uint64, passkey, username string, canLeech *bool) (*data.User, error) {
	var out data.User
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(addUserRequest{UserID: userID, Passkey: passkey, Username: username, CanLeech: canLeech}).
		SetResult(&out).
		Post("/user")
	if err := check("user add", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserUpdate sends only the fields set in p.
func (c *Client) UserUpdate(ctx context.Context, userID uint64, p data.UserPatch) (*data.User, error) {
	var out data.User
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", data.FormatID(userID)).
		SetBody(updateUserRequest{
			Uploaded:   p.Uploaded,
			Downloaded: p.Downloaded,
			Passkey:    p.Passkey,
			CanLeech:   p.CanLeech,
			Enabled:    p.Enabled,
		}).
		SetResult(&out).
		Post("/user/{id}")
	if err := check("user update", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) WhitelistList(ctx context.Context) (data.Whitelist, error) {
	var out data.Whitelist
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/whitelist")
	if err := check("whitelist list", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) WhitelistAdd(ctx context.Context, prefix, client string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(data.WhitelistEntry{Prefix: prefix, Client: client}).
		Post("/whitelist")
	return check("whitelist add", resp, err)
}

func (c *Client) WhitelistDelete(ctx context.Context, prefix string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("prefix", prefix).
		Delete("/whitelist/{prefix}")
	return check("whitelist delete", resp, err)
}

func (c *Client) Stats(ctx context.Context) (*data.Stats, error) {
	var out data.Stats
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/stats")
	if err := check("stats", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Version returns the server version string, e.g. "mika/1.2.0".
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get("/version")
	if err := check("version", resp, err); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.String()), nil
}

func (c *Client) Uptime(ctx context.Context) (time.Duration, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get("/uptime")
	if err := check("uptime", resp, err); err != nil {
		return 0, err
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(resp.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("uptime: unexpected body %q", resp.String())
	}
	return time.Duration(secs) * time.Second, nil
}
