package data

import (
	"encoding/json"
	"io"
	"sort"
)

// WhitelistEntry maps a peer id prefix to the client software it identifies.
type WhitelistEntry struct {
	Prefix string `json:"prefix"`
	Client string `json:"client"`
}

type Whitelist []WhitelistEntry

func (w Whitelist) ToJSON(out io.Writer) error { return json.NewEncoder(out).Encode(w) }

// WhitelistFromFields converts the t:whitelist hash into entries sorted by prefix.
func WhitelistFromFields(f map[string]string) Whitelist {
	out := make(Whitelist, 0, len(f))
	for p, c := range f {
		out = append(out, WhitelistEntry{Prefix: p, Client: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

// Stats holds the tracker wide scalar counters.
type Stats struct {
	Leechers  uint64 `json:"leechers"`
	Seeders   uint64 `json:"seeders"`
	Announces uint64 `json:"announces"`
	Scrapes   uint64 `json:"scrapes"`
}

func (s *Stats) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(s) }
