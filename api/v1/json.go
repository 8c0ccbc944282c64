package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tinoosan/mika/internal/data"
)

const maxBody = 1 << 20

// decodeJSONStrict validates optional Content-Type, enforces a max body size,
// and decodes JSON into dst while disallowing unknown fields. Malformed
// bodies are reported as data.ErrInvalid.
func decodeJSONStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return ErrContentType
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("%w: body exceeds %d bytes", data.ErrInvalid, mbe.Limit)
		}
		return fmt.Errorf("%w: invalid JSON: %s", data.ErrInvalid, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		markErr(w, err)
	}
}

func parseID(raw string) (uint64, error) {
	id, err := data.ParseID(raw)
	if err != nil {
		return 0, ErrID
	}
	return id, nil
}
