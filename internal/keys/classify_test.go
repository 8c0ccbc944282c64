package keys

import (
	"errors"
	"testing"
)

const ih = "40b8b386a0c2f03d492399b9aa7297aefdb84641"

func TestBuilders(t *testing.T) {
	if got := Torrent(ih); len(got) != TorrentKeyLen || got != "t:t:"+ih {
		t.Fatalf("unexpected torrent key %q", got)
	}
	if got := User(42); got != "t:u:42" {
		t.Fatalf("unexpected user key %q", got)
	}
	if got := Passkey("abc"); got != "t:user:abc" {
		t.Fatalf("unexpected passkey key %q", got)
	}
	if got := TorrentID(9999999999999); got != "t:tid:9999999999999" {
		t.Fatalf("unexpected torrent id key %q", got)
	}
	if got := Stat(StatScrapes); got != "t:stats:scrapes" {
		t.Fatalf("unexpected stat key %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		key        string
		kind       Kind
		current    bool
		rule       string
		structural bool
	}{
		{"t:t:" + ih, KindTorrent, true, "torrent", false},
		{"t:t:1234", KindTorrent, false, "torrent-by-id", false},
		{"t:t:" + ih + ":p", KindTorrent, false, "torrent-peer-set", false},
		{"t:t:1234:-UT2210-abcdefghijkl", KindTorrent, false, "torrent-peer", false},
		{"t:t:1234:-UT2210-abcdefghijkl:exp", KindTorrent, false, "torrent-peer-expiry", false},
		{"t:t:short", KindTorrent, false, "", true},
		{"t:u:42", KindUser, true, "user", false},
		{"t:u:42:active", KindUser, false, "user-set-suffix", false},
		{"t:u:hnr:42", KindUser, false, "user-set-infix", false},
		{"t:u:legacy", KindUser, true, "", true},
		{"t:u:1:2:3", KindUser, false, "", true},
		{"t:user:pk", KindPasskey, true, "passkey", false},
		{"t:user:pk:with:colons", KindPasskey, true, "passkey", false},
		{"t:info_hash:" + ih, KindInfoHash, true, "info-hash", false},
		{"t:tid:10", KindTorrentID, true, "torrent-id", false},
		{"t:whitelist", KindWhitelist, true, "whitelist", false},
		{"t:stats:announces", KindStat, true, "stat", false},
		{"other:key", KindUnknown, false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c := Classify(tt.key)
			if c.Kind != tt.kind || c.Current != tt.current || c.Rule != tt.rule || c.Structural != tt.structural {
				t.Fatalf("unexpected classification %#v", c)
			}
			err := c.Err()
			if tt.current && err != nil {
				t.Fatalf("current key returned error %v", err)
			}
			var se *SchemaError
			if !tt.current && !errors.As(err, &se) {
				t.Fatalf("expected *SchemaError got %v", err)
			}
		})
	}
}

func TestUserKeySegmentsProperty(t *testing.T) {
	for _, k := range []string{"t:u:1", "t:u:999999", "t:u:x"} {
		if !Classify(k).Current {
			t.Fatalf("%s should be current", k)
		}
	}
	for _, k := range []string{"t:u:1:active", "t:u:1:foo", "t:u:a:b:c"} {
		if Classify(k).Current {
			t.Fatalf("%s should be legacy", k)
		}
	}
}
