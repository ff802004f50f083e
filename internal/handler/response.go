package handler

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes caps request bodies. Every request is a login or a form draft.
const maxBodyBytes = 64 << 10

// APIResponse is the envelope of every JSON reply. Status is "success" or
// "error"; Message is set on errors and Data on success.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes data in a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, APIResponse{Status: "success", Data: data})
}

// Error writes msg in an error envelope. msg is shown to the user as is.
func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, APIResponse{Status: "error", Message: msg})
}

func write(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a single JSON value from a bounded body into v. On failure
// it answers 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
