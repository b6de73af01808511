package shared

import (
	"encoding/json"
	"errors"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the uniform JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes the uniform error envelope. Authorization denials
// must always pass through here with ErrForbidden so every denial reads
// identically to clients.
func RespondError(w http.ResponseWriter, status int, err error) {
	RespondJSON(w, status, ErrorBody{Error: UserSafeMessage(err)})
}

// DecodeJSON decodes the request body into dst, capping its size.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Trailing data after the first value is rejected.
	if dec.More() {
		return errors.New("unexpected trailing data in request body")
	}
	return nil
}
