package keys

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindTorrent   Kind = "torrent"
	KindUser      Kind = "user"
	KindPasskey   Kind = "passkey"
	KindInfoHash  Kind = "info_hash"
	KindTorrentID Kind = "torrent_id"
	KindWhitelist Kind = "whitelist"
	KindStat      Kind = "stat"
	KindUnknown   Kind = "unknown"
)

// Version identifies the generation of backend that wrote a key.
//   - 0: first backend, torrents keyed by integer id, per-user sets suffixed to the user key
//   - 1: info hash keyed torrents with peer keys nested under the torrent key
//   - 2: current layout, peers and user sets live outside t:t: and t:u:
type Version int

const (
	V0      Version = 0
	V1      Version = 1
	Current Version = 2
)

// Rule is one row of the compatibility table.
type Rule struct {
	Name    string
	Kind    Kind
	Version Version
	Reason  string
	match   func(segs []string) bool
}

// Current reports whether keys matching the rule are in the live layout.
func (r Rule) Current() bool { return r.Version == Current }

var userSets = map[string]bool{"active": true, "incomplete": true, "complete": true, "hnr": true}

// Compatibility is evaluated top to bottom; the first matching rule wins.
// Keys under t:t: and t:u: that no rule matches are classified structurally.
var Compatibility = []Rule{
	{
		Name: "torrent", Kind: KindTorrent, Version: Current,
		match: func(s []string) bool { return len(s) == 3 && s[1] == "t" && isInfoHash(s[2]) },
	},
	{
		Name: "torrent-by-id", Kind: KindTorrent, Version: V0,
		Reason: "torrent keyed by integer id",
		match:  func(s []string) bool { return len(s) == 3 && s[1] == "t" && isUint(s[2]) },
	},
	{
		Name: "torrent-peer-set", Kind: KindTorrent, Version: V1,
		Reason: "peer set nested under torrent key",
		match:  func(s []string) bool { return len(s) == 4 && s[1] == "t" && (s[3] == "p" || s[3] == "peers") },
	},
	{
		Name: "torrent-peer", Kind: KindTorrent, Version: V1,
		Reason: "peer record nested under torrent key",
		match:  func(s []string) bool { return len(s) == 4 && s[1] == "t" },
	},
	{
		Name: "torrent-peer-expiry", Kind: KindTorrent, Version: V0,
		Reason: "peer expiry or nested peer record",
		match:  func(s []string) bool { return len(s) == 5 && s[1] == "t" },
	},
	{
		Name: "user", Kind: KindUser, Version: Current,
		match: func(s []string) bool { return len(s) == 3 && s[1] == "u" && isUint(s[2]) },
	},
	{
		Name: "user-set-suffix", Kind: KindUser, Version: V0,
		Reason: "per-user torrent set suffixed to user key",
		match:  func(s []string) bool { return len(s) == 4 && s[1] == "u" && isUint(s[2]) && userSets[s[3]] },
	},
	{
		Name: "user-set-infix", Kind: KindUser, Version: V1,
		Reason: "per-user torrent set with set name before id",
		match:  func(s []string) bool { return len(s) == 4 && s[1] == "u" && userSets[s[2]] && isUint(s[3]) },
	},
	{
		// passkeys are opaque and may themselves contain colons
		Name: "passkey", Kind: KindPasskey, Version: Current,
		match: func(s []string) bool { return len(s) >= 3 && s[1] == "user" && s[2] != "" },
	},
	{
		Name: "info-hash", Kind: KindInfoHash, Version: Current,
		match: func(s []string) bool { return len(s) == 3 && s[1] == "info_hash" && isInfoHash(s[2]) },
	},
	{
		Name: "torrent-id", Kind: KindTorrentID, Version: Current,
		match: func(s []string) bool { return len(s) == 3 && s[1] == "tid" && isUint(s[2]) },
	},
	{
		Name: "whitelist", Kind: KindWhitelist, Version: Current,
		match: func(s []string) bool { return len(s) == 2 && s[1] == "whitelist" },
	},
	{
		Name: "stat", Kind: KindStat, Version: Current,
		match: func(s []string) bool { return len(s) == 3 && s[1] == "stats" && s[2] != "" },
	},
}

// Classification is the outcome of Classify for a single key.
type Classification struct {
	Key  string
	Kind Kind
	Rule string
	// Structural is set when no table rule matched and the decision came
	// from the segment count / length fallback.
	Structural bool
	Current    bool
	Reason     string
}

// Classify decides whether key is in the current layout.
func Classify(key string) Classification {
	segs := strings.Split(key, ":")
	if len(segs) < 2 || segs[0]+":" != Namespace {
		return Classification{Key: key, Kind: KindUnknown, Reason: "outside namespace"}
	}
	for _, r := range Compatibility {
		if r.match(segs) {
			return Classification{Key: key, Kind: r.Kind, Rule: r.Name, Current: r.Current(), Reason: r.Reason}
		}
	}
	return structural(key, segs)
}

// structural falls back to shape checks: key length for torrents and
// segment count for users.
func structural(key string, segs []string) Classification {
	c := Classification{Key: key, Kind: KindUnknown, Structural: true}
	switch {
	case strings.HasPrefix(key, TorrentPrefix):
		c.Kind = KindTorrent
		c.Current = len(key) == TorrentKeyLen
		if !c.Current {
			c.Reason = fmt.Sprintf("torrent key length %d, want %d", len(key), TorrentKeyLen)
		}
	case strings.HasPrefix(key, UserPrefix):
		c.Kind = KindUser
		c.Current = len(segs) == UserKeySegments
		if !c.Current {
			c.Reason = fmt.Sprintf("user key has %d segments, want %d", len(segs), UserKeySegments)
		}
	default:
		c.Reason = "unrecognised key"
	}
	return c
}

// SchemaError reports a key that does not fit the current layout.
type SchemaError struct {
	Key    string
	Rule   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("legacy key %s (%s): %s", e.Key, e.Rule, e.Reason)
	}
	return fmt.Sprintf("malformed key %s: %s", e.Key, e.Reason)
}

// Err returns a *SchemaError for non-current classifications and nil otherwise.
func (c Classification) Err() error {
	if c.Current {
		return nil
	}
	return &SchemaError{Key: c.Key, Rule: c.Rule, Reason: c.Reason}
}

func isUint(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func isInfoHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil && strings.ToLower(s) == s
}
