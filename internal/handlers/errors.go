package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondOK writes a success envelope with extra fields merged in
func respondOK(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// respondError writes a failure envelope. The message is shown to the user
// verbatim, so callers must pass text that is safe to display.
func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondInternalError logs the cause and hides it behind a generic message
func respondInternalError(w http.ResponseWriter, context string, err error) {
	log.Printf("%s: %v", context, err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}
