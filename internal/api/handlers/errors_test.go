package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dom/empire-backend/internal/api/handlers"
	"github.com/dom/empire-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid quantity", domain.ErrInvalidQuantity, http.StatusBadRequest},
		{"wrong building type", fmt.Errorf("%w: cavalry", domain.ErrInvalidBuildingType), http.StatusBadRequest},
		{"invalid faction", domain.ErrInvalidFaction, http.StatusBadRequest},
		{"queue full", fmt.Errorf("%w: %w", domain.ErrStartTraining, domain.ErrTrainingQueueFull), http.StatusConflict},
		{"construct blocked", domain.ErrConstructBuilding, http.StatusConflict},
		{"construct unaffordable", fmt.Errorf("%w: %w", domain.ErrConstructBuilding, domain.ErrInsufficientResources), http.StatusConflict},
		{"confirm too early", domain.ErrConfirmUpgrade, http.StatusConflict},
		{"cancel finished entry", domain.ErrCancelTraining, http.StatusConflict},
		{"name taken", domain.ErrNameTaken, http.StatusConflict},
		{"player exists", domain.ErrPlayerExists, http.StatusConflict},
		{"training unaffordable", domain.ErrInsufficientResources, http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("%w: player", domain.ErrNotFound), http.StatusNotFound},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, handlers.StatusFor(tt.err))
		})
	}
}
