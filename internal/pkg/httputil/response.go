package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// maxBodyBytes caps request bodies. Campaign payloads and provider webhook
// events are small; anything past this is malformed or hostile.
const maxBodyBytes = 1 << 20

// errEnvelope is the error body every API error shares.
type errEnvelope struct {
	Error string `json:"error"`
}

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] JSON encode error: %v", err)
	}
}

// Error writes the standard error envelope. The message goes to the client,
// so callers pass sanitized text for 5xx statuses.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errEnvelope{Error: message})
}

// Decode reads a JSON request body into dst, rejecting bodies over
// maxBodyBytes. On failure it writes a 400 and returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
