package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
	"github.com/google/uuid"
)

type TrainingHandler struct {
	trainingService *service.TrainingService
}

func NewTrainingHandler(trainingService *service.TrainingService) *TrainingHandler {
	return &TrainingHandler{trainingService: trainingService}
}

type StartTrainingRequest struct {
	BuildingID string `json:"buildingId"`
	UnitID     string `json:"unitId"`
	Quantity   int64  `json:"quantity"`
}

type CancelTrainingResponse struct {
	Refund domain.Amounts `json:"refund"`
}

func (h *TrainingHandler) Queue(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	entries, err := h.trainingService.TrainingQueue(r.Context(), id)
	if err != nil {
		writeError(w, "training.Queue", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *TrainingHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	var req StartTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	buildingID, err := uuid.Parse(req.BuildingID)
	if err != nil {
		http.Error(w, "Invalid buildingId", http.StatusBadRequest)
		return
	}
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		http.Error(w, "Invalid unitId", http.StatusBadRequest)
		return
	}

	entry, err := h.trainingService.StartTraining(r.Context(), service.StartTrainingInput{
		PlayerID:         id,
		PlayerBuildingID: buildingID,
		UnitID:           unitID,
		Quantity:         req.Quantity,
	})
	if err != nil {
		writeError(w, "training.Start", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *TrainingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	entryID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	refund, err := h.trainingService.CancelTraining(r.Context(), id, entryID)
	if err != nil {
		writeError(w, "training.Cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, CancelTrainingResponse{Refund: refund})
}

func (h *TrainingHandler) Units(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	units, err := h.trainingService.Units(r.Context(), id)
	if err != nil {
		writeError(w, "training.Units", err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}
