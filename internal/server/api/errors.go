package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// errorBody mirrors the PostgREST error shape clients match on: a database
// or PGRST code plus a message.
type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// writeUnknownColumn emits the signature clients use to detect schema skew
// and downgrade their payloads.
func writeUnknownColumn(w http.ResponseWriter, column, table string) {
	writeError(w, http.StatusBadRequest, "PGRST204",
		fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", column, table))
}
