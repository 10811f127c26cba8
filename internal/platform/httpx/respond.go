// Package httpx provides the JSON response envelope and the single
// boundary mapping from domain errors to HTTP responses.
package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the wire shape of every structured API response.
type Envelope struct {
	Status    string    `json:"status"`
	Code      int       `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OK sends a success envelope with a payload.
func OK(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{
		Status:    "ok",
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// OKMessage sends a success envelope with a payload and a human readable message.
func OKMessage(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{
		Status:    "ok",
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Error sends an error envelope; code mirrors the HTTP status.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{
		Status:    "error",
		Code:      status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// DecodeJSON decodes the request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
