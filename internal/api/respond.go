package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the JSON shape every endpoint answers with.
type envelope struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// respondData writes a success envelope without a count.
func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// respondList writes a success envelope carrying a collection and its size.
func respondList(w http.ResponseWriter, status int, count int, data any) {
	writeJSON(w, status, envelope{Success: true, Count: &count, Data: data})
}

// respondError writes a failure envelope.
func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
