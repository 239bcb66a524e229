package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/auth"
	"github.com/desertthunder/mixtape/internal/shared"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the uniform JSON error body. Only machine-readable codes
// go to the client; detail belongs in server logs.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeAPIError maps a Resource API failure to a response.
//
// A credential the API rejected despite passing the expiry policy surfaces as
// the reauth response, sending the client back through the authorize flow.
func writeAPIError(w http.ResponseWriter, logger *log.Logger, err error) {
	logger.Error("resource API call failed", "error", err)

	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		auth.WriteError(w, auth.ErrReauthRequired)
	case errors.Is(err, shared.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, "playlist_not_found")
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument):
		writeError(w, http.StatusBadRequest, "invalid_input")
	default:
		writeError(w, http.StatusBadGateway, "api_request_failed")
	}
}
