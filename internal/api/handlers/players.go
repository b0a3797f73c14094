package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
)

type PlayerHandler struct {
	playerService *service.PlayerService
}

func NewPlayerHandler(playerService *service.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

type CreatePlayerRequest struct {
	Name string `json:"name"`
}

type ChangeFactionRequest struct {
	Faction string `json:"faction"`
}

// Create registers the authenticated account as a player.
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	var req CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	player, err := h.playerService.CreatePlayer(r.Context(), id, name)
	if err != nil {
		writeError(w, "player.Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (h *PlayerHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	player, err := h.playerService.GetPlayer(r.Context(), id)
	if err != nil {
		writeError(w, "player.Me", err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *PlayerHandler) ChangeFaction(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	var req ChangeFactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	player, err := h.playerService.ChangeFaction(r.Context(), id, domain.Faction(strings.ToLower(req.Faction)))
	if err != nil {
		writeError(w, "player.ChangeFaction", err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	if err := h.playerService.DeletePlayer(r.Context(), id); err != nil {
		writeError(w, "player.Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
