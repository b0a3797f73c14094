package handlers

import (
	"net/http"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
)

type ModifierHandler struct {
	modifierService *service.ModifierService
}

func NewModifierHandler(modifierService *service.ModifierService) *ModifierHandler {
	return &ModifierHandler{modifierService: modifierService}
}

type MultiplierResponse struct {
	Target     domain.ModifierTarget `json:"target"`
	Resource   *domain.ResourceType  `json:"resource,omitempty"`
	Multiplier float64               `json:"multiplier"`
}

func (h *ModifierHandler) Active(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	mods, err := h.modifierService.ListActive(r.Context(), id)
	if err != nil {
		writeError(w, "modifier.Active", err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

func (h *ModifierHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	history, err := h.modifierService.History(r.Context(), id)
	if err != nil {
		writeError(w, "modifier.History", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// Multiplier reads ?target=resource&resource=wood.
func (h *ModifierHandler) Multiplier(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	target := domain.ModifierTarget(r.URL.Query().Get("target"))
	if !target.IsValid() {
		http.Error(w, "Invalid target", http.StatusBadRequest)
		return
	}

	var resource *domain.ResourceType
	if v := r.URL.Query().Get("resource"); v != "" {
		rt := domain.ResourceType(v)
		if !rt.IsValid() {
			http.Error(w, "Invalid resource", http.StatusBadRequest)
			return
		}
		resource = &rt
	}

	m, err := h.modifierService.Multiplier(r.Context(), id, target, resource)
	if err != nil {
		writeError(w, "modifier.Multiplier", err)
		return
	}
	writeJSON(w, http.StatusOK, MultiplierResponse{Target: target, Resource: resource, Multiplier: m})
}
