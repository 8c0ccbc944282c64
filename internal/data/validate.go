package data

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// MaxCounter is the exclusive upper bound for every stored counter.
const MaxCounter uint64 = 1 << 62

// InfoHashLen is the length of a hex encoded info hash.
const InfoHashLen = 40

// NormalizeInfoHash lowercases s and checks it is a 40 character hex string.
func NormalizeInfoHash(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != InfoHashLen {
		return "", fmt.Errorf("%w: %w", ErrInvalid, ErrInfoHash)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalid, ErrInfoHash)
	}
	return s, nil
}

// CheckCounter reports whether v is inside [0, MaxCounter).
func CheckCounter(name string, v uint64) error {
	if v >= MaxCounter {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, name, ErrCounterRange)
	}
	return nil
}

// ParseCounter decodes a stored counter. Missing, non-integer, negative and
// overflowing values all fail.
func ParseCounter(name, raw string) (uint64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s: missing", ErrInvalid, name)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not an integer", ErrInvalid, name, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalid, name, ErrCounterRange)
	}
	if err := CheckCounter(name, uint64(n)); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// ParseID decodes a strictly positive identifier.
func ParseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: id %q", ErrInvalid, s)
	}
	return id, nil
}

// FormatID is the inverse of ParseID.
func FormatID(id uint64) string { return strconv.FormatUint(id, 10) }

// FormatBool encodes flags the way the tracker backend stores them.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool accepts the encodings seen in the cache ("1", "true", ...).
// Anything unrecognised is false.
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
