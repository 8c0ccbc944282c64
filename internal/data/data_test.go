package data

import (
	"errors"
	"strconv"
	"testing"
)

func TestParseCounter(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    uint64
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"positive", "1024", 1024, false},
		{"just below bound", strconv.FormatUint(MaxCounter-1, 10), MaxCounter - 1, false},
		{"at bound", strconv.FormatUint(MaxCounter, 10), 0, true},
		{"negative", "-1", 0, true},
		{"missing", "", 0, true},
		{"garbage", "12abc", 0, true},
		{"beyond int64", "18446744073709551615", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCounter("uploaded", tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("expected ErrInvalid got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d got %d", tt.want, got)
			}
		})
	}
}

func TestNormalizeInfoHash(t *testing.T) {
	got, err := NormalizeInfoHash(" 40B8B386A0C2F03D492399B9AA7297AEFDB84641 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "40b8b386a0c2f03d492399b9aa7297aefdb84641" {
		t.Fatalf("not normalized: %q", got)
	}
	for _, bad := range []string{"", "abc", "zz" + got[2:], got + "00"} {
		if _, err := NormalizeInfoHash(bad); !errors.Is(err, ErrInfoHash) {
			t.Fatalf("%q: expected ErrInfoHash got %v", bad, err)
		}
	}
}

func TestUserPatchKeepsOmittedFields(t *testing.T) {
	u := &User{UserID: 7, Passkey: "pk", Uploaded: 100, Downloaded: 50, CanLeech: true, Enabled: true}
	dl := uint64(75)
	if err := (UserPatch{Downloaded: &dl}).Apply(u); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if u.Downloaded != 75 || u.Uploaded != 100 || u.Passkey != "pk" || !u.CanLeech {
		t.Fatalf("unexpected merge result: %#v", u)
	}

	over := MaxCounter
	if err := (UserPatch{Uploaded: &over}).Apply(u); !errors.Is(err, ErrCounterRange) {
		t.Fatalf("expected ErrCounterRange got %v", err)
	}
	empty := "  "
	if err := (UserPatch{Passkey: &empty}).Apply(u); !errors.Is(err, ErrPasskey) {
		t.Fatalf("expected ErrPasskey got %v", err)
	}
}

func TestTorrentFieldsRoundTrip(t *testing.T) {
	in := &Torrent{InfoHash: "40b8b386a0c2f03d492399b9aa7297aefdb84641", TorrentID: 9999999999999, ReleaseName: "x", Seeders: 3}
	out, err := TorrentFromFields(in.Fields())
	if err != nil {
		t.Fatalf("TorrentFromFields: %v", err)
	}
	if *out != *in {
		t.Fatalf("mismatch:\n got:  %#v\n want: %#v", out, in)
	}
}

func TestFromFieldsDefaults(t *testing.T) {
	u, err := UserFromFields(map[string]string{FieldUserID: "3", FieldPasskey: "abc"})
	if err != nil {
		t.Fatalf("UserFromFields: %v", err)
	}
	if !u.Enabled || !u.CanLeech || u.Uploaded != 0 {
		t.Fatalf("unexpected defaults: %#v", u)
	}
	if _, err := UserFromFields(map[string]string{FieldUserID: "3", FieldUploaded: "-5"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid got %v", err)
	}
	if _, err := TorrentFromFields(map[string]string{FieldInfoHash: "nope", FieldTorrentID: "1"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid got %v", err)
	}
}
