package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, logger *zap.SugaredLogger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Errorw("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, logger *zap.SugaredLogger, status int, message string) {
	jsonResponse(w, logger, status, map[string]string{"error": message})
}

// storeError maps a store error onto its HTTP status. Storage failures are
// logged and reported without their details.
func storeError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		jsonError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, logger, http.StatusNotFound, err.Error())
	default:
		logger.Errorw(op+" failed", "error", err)
		jsonError(w, logger, http.StatusInternalServerError, op+" failed")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
