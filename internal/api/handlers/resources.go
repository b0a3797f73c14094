package handlers

import (
	"net/http"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
)

type ResourceHandler struct {
	resourceService *service.ResourceService
}

func NewResourceHandler(resourceService *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

func (h *ResourceHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.resourceService.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, "resource.Snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Collect produces up to now before draining the accumulator.
func (h *ResourceHandler) Collect(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	if _, err := h.resourceService.ProduceAndCollect(r.Context(), id); err != nil {
		writeError(w, "resource.Collect", err)
		return
	}

	snapshot, err := h.resourceService.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, "resource.Collect", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// RatesResponse pairs building-derived totals with modifier-adjusted hourly rates.
type RatesResponse struct {
	Base      *domain.BuildingTotals `json:"base"`
	Effective domain.Rates           `json:"effective"`
}

func (h *ResourceHandler) Rates(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	base, err := h.resourceService.BaseRates(r.Context(), id)
	if err != nil {
		writeError(w, "resource.Rates", err)
		return
	}
	rates, err := h.resourceService.Rates(r.Context(), id)
	if err != nil {
		writeError(w, "resource.Rates", err)
		return
	}
	writeJSON(w, http.StatusOK, RatesResponse{Base: base, Effective: rates})
}
