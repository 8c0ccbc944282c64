// Package keys owns the cache key naming used by the tracker backend.
//
// Key formats (all under the "t:" namespace):
//
//	t:t:<info_hash>          torrent hash, 44 characters total
//	t:u:<user_id>            user hash, exactly 3 segments
//	t:user:<passkey>         user_id string
//	t:info_hash:<info_hash>  torrent_id string
//	t:tid:<torrent_id>       info_hash string
//	t:whitelist              hash of peer id prefix -> client name
//	t:stats:<name>           scalar counter
package keys

import "strconv"

const (
	Namespace       = "t:"
	TorrentPrefix   = Namespace + "t:"
	UserPrefix      = Namespace + "u:"
	PasskeyPrefix   = Namespace + "user:"
	InfoHashPrefix  = Namespace + "info_hash:"
	TorrentIDPrefix = Namespace + "tid:"
	StatsPrefix     = Namespace + "stats:"
	Whitelist       = Namespace + "whitelist"

	// TorrentKeyLen is the length of a current format torrent key.
	TorrentKeyLen = len(TorrentPrefix) + 40
	// UserKeySegments is the colon segment count of a current format user key.
	UserKeySegments = 3
)

const (
	StatLeechers  = "leechers"
	StatSeeders   = "seeders"
	StatAnnounces = "announces"
	StatScrapes   = "scrapes"
)

// Stats lists the global counters initialised by warm-up.
var Stats = []string{StatLeechers, StatSeeders, StatAnnounces, StatScrapes}

func Torrent(infoHash string) string { return TorrentPrefix + infoHash }

func User(userID uint64) string { return UserPrefix + strconv.FormatUint(userID, 10) }

func Passkey(passkey string) string { return PasskeyPrefix + passkey }

func InfoHash(infoHash string) string { return InfoHashPrefix + infoHash }

func TorrentID(torrentID uint64) string {
	return TorrentIDPrefix + strconv.FormatUint(torrentID, 10)
}

func Stat(name string) string { return StatsPrefix + name }
