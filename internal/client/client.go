// Package client is the typed administrative client for the tracker API.
// Listing and cleanup go straight to the cache store because the API does
// not expose them.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/data"
	"resty.dev/v3"
)

// ErrNoStore is returned by cache-direct calls on a client built without a
// cache store.
var ErrNoStore = errors.New("client has no cache store")

// TransportError wraps failures that happened before a response was read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: transport: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is an API response with a status the client has no sentinel for.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Code, e.Message)
}

type Options struct {
	// BaseURL includes the API root, e.g. http://localhost:34001/v1.
	BaseURL string
	Token   string
	Timeout time.Duration
	// Store backs Torrents, Users and Cleanup. It may be nil.
	Store cache.Store
	Log   *slog.Logger
}

type Client struct {
	http    *resty.Client
	baseURL string
	token   string
	timeout time.Duration
	store   cache.Store
	log     *slog.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		hc.SetAuthToken(opts.Token)
	}
	return &Client{
		http:    hc,
		baseURL: base,
		token:   opts.Token,
		timeout: opts.Timeout,
		store:   opts.Store,
		log:     opts.Log,
	}
}

func (c *Client) Close() error { return c.http.Close() }

// check turns a resty result into the client error taxonomy.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if !resp.IsError() {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, data.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w: %s", op, data.ErrConflict, msg)
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return fmt.Errorf("%s: %w: %s", op, data.ErrInvalid, msg)
	default:
		return &StatusError{Op: op, Code: resp.StatusCode(), Message: msg}
	}
}
