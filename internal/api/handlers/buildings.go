package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/empire-backend/internal/service"
	"github.com/google/uuid"
)

type BuildingHandler struct {
	buildingService *service.BuildingService
	trainingService *service.TrainingService
}

func NewBuildingHandler(buildingService *service.BuildingService, trainingService *service.TrainingService) *BuildingHandler {
	return &BuildingHandler{buildingService: buildingService, trainingService: trainingService}
}

type ConstructRequest struct {
	BuildingID string `json:"buildingId"`
}

func (h *BuildingHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	buildings, err := h.buildingService.ListOwned(r.Context(), id)
	if err != nil {
		writeError(w, "building.List", err)
		return
	}
	writeJSON(w, http.StatusOK, buildings)
}

func (h *BuildingHandler) Available(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	list, err := h.buildingService.AvailabilityList(r.Context(), id)
	if err != nil {
		writeError(w, "building.Available", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BuildingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	buildingID, ok := uuidParam(w, r, "buildingId")
	if !ok {
		return
	}

	avail, err := h.buildingService.Availability(r.Context(), id, buildingID)
	if err != nil {
		writeError(w, "building.Availability", err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

func (h *BuildingHandler) Construct(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	var req ConstructRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	buildingID, err := uuid.Parse(req.BuildingID)
	if err != nil {
		http.Error(w, "Invalid buildingId", http.StatusBadRequest)
		return
	}

	pb, err := h.buildingService.Construct(r.Context(), id, buildingID)
	if err != nil {
		writeError(w, "building.Construct", err)
		return
	}
	writeJSON(w, http.StatusCreated, pb)
}

func (h *BuildingHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	pbID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	pb, err := h.buildingService.Upgrade(r.Context(), id, pbID)
	if err != nil {
		writeError(w, "building.Upgrade", err)
		return
	}
	writeJSON(w, http.StatusOK, pb)
}

func (h *BuildingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	pbID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	pb, err := h.buildingService.ConfirmUpgrade(r.Context(), id, pbID)
	if err != nil {
		writeError(w, "building.Confirm", err)
		return
	}
	writeJSON(w, http.StatusOK, pb)
}

func (h *BuildingHandler) Units(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	pbID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	units, err := h.trainingService.AvailableUnits(r.Context(), id, pbID)
	if err != nil {
		writeError(w, "building.Units", err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}
