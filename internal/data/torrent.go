package data

import (
	"encoding/json"
	"fmt"
	"io"
)

// Torrent hash fields as stored under t:t:<info_hash>.
const (
	FieldInfoHash   = "info_hash"
	FieldTorrentID  = "torrent_id"
	FieldName       = "name"
	FieldSeeders    = "seeders"
	FieldLeechers   = "leechers"
	FieldAnnounces  = "announces"
	FieldSnatches   = "snatches"
	FieldUploaded   = "uploaded"
	FieldDownloaded = "downloaded"
)

// TorrentCounters lists the integer fields of a torrent record.
var TorrentCounters = []string{
	FieldDownloaded, FieldUploaded, FieldSnatches, FieldAnnounces, FieldSeeders, FieldLeechers,
}

type Torrent struct {
	InfoHash    string `json:"info_hash"`
	TorrentID   uint64 `json:"torrent_id"`
	ReleaseName string `json:"release_name"`
	Seeders     uint64 `json:"seeders"`
	Leechers    uint64 `json:"leechers"`
	Announces   uint64 `json:"announces"`
	Snatches    uint64 `json:"snatches"`
	Uploaded    uint64 `json:"uploaded"`
	Downloaded  uint64 `json:"downloaded"`
}

type Torrents []*Torrent

func (t *Torrent) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(t) }

func (t *Torrents) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(t) }

func (t *Torrent) Clone() *Torrent {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Fields encodes every attribute of t as hash fields.
func (t *Torrent) Fields() map[string]string {
	return map[string]string{
		FieldInfoHash:   t.InfoHash,
		FieldTorrentID:  FormatID(t.TorrentID),
		FieldName:       t.ReleaseName,
		FieldSeeders:    FormatID(t.Seeders),
		FieldLeechers:   FormatID(t.Leechers),
		FieldAnnounces:  FormatID(t.Announces),
		FieldSnatches:   FormatID(t.Snatches),
		FieldUploaded:   FormatID(t.Uploaded),
		FieldDownloaded: FormatID(t.Downloaded),
	}
}

// TorrentFromFields decodes a torrent hash. Counters absent from the hash
// decode as zero; present but malformed counters are an error.
func TorrentFromFields(f map[string]string) (*Torrent, error) {
	ih, err := NormalizeInfoHash(f[FieldInfoHash])
	if err != nil {
		return nil, err
	}
	id, err := ParseID(f[FieldTorrentID])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FieldTorrentID, err)
	}
	t := &Torrent{InfoHash: ih, TorrentID: id, ReleaseName: f[FieldName]}
	counters := map[string]*uint64{
		FieldSeeders:    &t.Seeders,
		FieldLeechers:   &t.Leechers,
		FieldAnnounces:  &t.Announces,
		FieldSnatches:   &t.Snatches,
		FieldUploaded:   &t.Uploaded,
		FieldDownloaded: &t.Downloaded,
	}
	if err := decodeCounters(f, counters); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeCounters(f map[string]string, dst map[string]*uint64) error {
	for name, p := range dst {
		raw, ok := f[name]
		if !ok {
			continue
		}
		v, err := ParseCounter(name, raw)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}
