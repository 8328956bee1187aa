package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/scribehq/scribe-be/internal/models"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response body")
	}
}

// writeError translates a service error into its HTTP response. Typed
// errors from the taxonomy map to 4xx responses; anything else is logged
// and reported as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		verr     *models.ValidationError
		conflict *models.ConflictError
		authErr  *models.AuthError
		notFound *models.NotFoundError
		upErr    *models.UploadError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
	case errors.As(err, &upErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": upErr.Message})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": authErr.Message})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": conflict.Message})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server Error"})
	}
}
