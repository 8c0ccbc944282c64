package data

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	// ErrInvalid marks input or stored values that fail validation. Callers
	// wrap it with the offending field.
	ErrInvalid = errors.New("invalid value")

	ErrInfoHash     = errors.New("info_hash must be 40 hex characters")
	ErrTorrentID    = errors.New("torrent_id must be a positive integer")
	ErrUserID       = errors.New("user_id must be a positive integer")
	ErrPasskey      = errors.New("passkey is required")
	ErrPrefix       = errors.New("prefix is required")
	ErrPrefixSlash  = errors.New("prefix must not contain '/'")
	ErrClientName   = errors.New("client is required")
	ErrCounterRange = errors.New("counter out of range")
)
