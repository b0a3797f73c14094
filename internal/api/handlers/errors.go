package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dom/empire-backend/internal/api/middleware"
	"github.com/dom/empire-backend/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidBuildingType),
		errors.Is(err, domain.ErrInvalidFaction),
		errors.Is(err, domain.ErrInvalidModifier):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTrainingQueueFull):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConstructBuilding),
		errors.Is(err, domain.ErrUpgradeBuilding),
		errors.Is(err, domain.ErrConfirmUpgrade),
		errors.Is(err, domain.ErrStartTraining),
		errors.Is(err, domain.ErrCancelTraining),
		errors.Is(err, domain.ErrCompleteTraining),
		errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrPlayerExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientResources):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCacheMiss):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR [%s]: %v", op, err)
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func playerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
