package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"communityAPI/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps engine errors onto HTTP statuses. Anything
// unrecognised is logged and hidden behind a 500.
func respondWithServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownTopic),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrInvalidScore):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrSelfRating):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		respondWithError(w, http.StatusConflict, "The post changed while saving your rating, please try again")
	case errors.Is(err, services.ErrStoreUnavailable):
		logger.Warnw("Store unavailable", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Community is temporarily unavailable")
	default:
		logger.Errorw("Request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
