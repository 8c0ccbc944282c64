package data

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// User hash fields as stored under t:u:<user_id>.
const (
	FieldUserID   = "user_id"
	FieldPasskey  = "passkey"
	FieldUsername = "username"
	FieldCorrupt  = "corrupt"
	FieldCanLeech = "can_leech"
	FieldEnabled  = "enabled"
)

// UserCounters lists the integer fields of a user record.
var UserCounters = []string{FieldDownloaded, FieldUploaded, FieldSnatches, FieldCorrupt}

type User struct {
	UserID     uint64 `json:"user_id"`
	Passkey    string `json:"passkey"`
	Username   string `json:"username"`
	Uploaded   uint64 `json:"uploaded"`
	Downloaded uint64 `json:"downloaded"`
	Snatches   uint64 `json:"snatches"`
	Corrupt    uint64 `json:"corrupt"`
	CanLeech   bool   `json:"can_leech"`
	Enabled    bool   `json:"enabled"`
}

type Users []*User

// UserPatch carries a partial update. Nil fields keep their current value.
type UserPatch struct {
	Uploaded   *uint64
	Downloaded *uint64
	Passkey    *string
	CanLeech   *bool
	Enabled    *bool
}

func (u *User) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(u) }

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Apply merges p into u after validating it.
func (p UserPatch) Apply(u *User) error {
	if p.Uploaded != nil {
		if err := CheckCounter(FieldUploaded, *p.Uploaded); err != nil {
			return err
		}
		u.Uploaded = *p.Uploaded
	}
	if p.Downloaded != nil {
		if err := CheckCounter(FieldDownloaded, *p.Downloaded); err != nil {
			return err
		}
		u.Downloaded = *p.Downloaded
	}
	if p.Passkey != nil {
		pk := strings.TrimSpace(*p.Passkey)
		if pk == "" {
			return fmt.Errorf("%w: %w", ErrInvalid, ErrPasskey)
		}
		u.Passkey = pk
	}
	if p.CanLeech != nil {
		u.CanLeech = *p.CanLeech
	}
	if p.Enabled != nil {
		u.Enabled = *p.Enabled
	}
	return nil
}

func (u *User) Fields() map[string]string {
	return map[string]string{
		FieldUserID:     FormatID(u.UserID),
		FieldPasskey:    u.Passkey,
		FieldUsername:   u.Username,
		FieldUploaded:   FormatID(u.Uploaded),
		FieldDownloaded: FormatID(u.Downloaded),
		FieldSnatches:   FormatID(u.Snatches),
		FieldCorrupt:    FormatID(u.Corrupt),
		FieldCanLeech:   FormatBool(u.CanLeech),
		FieldEnabled:    FormatBool(u.Enabled),
	}
}

// UserFromFields decodes a user hash. Records written by the importer may
// not carry flags yet; those default to enabled and allowed to leech.
func UserFromFields(f map[string]string) (*User, error) {
	id, err := ParseID(f[FieldUserID])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FieldUserID, err)
	}
	u := &User{
		UserID:   id,
		Passkey:  f[FieldPasskey],
		Username: f[FieldUsername],
		CanLeech: true,
		Enabled:  true,
	}
	if v, ok := f[FieldCanLeech]; ok {
		u.CanLeech = ParseBool(v)
	}
	if v, ok := f[FieldEnabled]; ok {
		u.Enabled = ParseBool(v)
	}
	counters := map[string]*uint64{
		FieldUploaded:   &u.Uploaded,
		FieldDownloaded: &u.Downloaded,
		FieldSnatches:   &u.Snatches,
		FieldCorrupt:    &u.Corrupt,
	}
	if err := decodeCounters(f, counters); err != nil {
		return nil, err
	}
	return u, nil
}
