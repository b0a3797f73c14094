package handlers_test

import (
	"net/http"
	"testing"

	"github.com/dom/empire-backend/internal/api/handlers"
	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifierHandler(t *testing.T) {
	ts := testutil.NewTestServer(t)

	player := testutil.NewPlayerBuilder().Build(t, ts.DB.DB)
	token := ts.Token(t, player.ID)
	harvest := testutil.NewModifierBuilder().ForResource(domain.ResourceFood).WithMagnitude(0.4).Build(t, ts.DB.DB)
	testutil.Activate(t, ts.DB.DB, player.ID, harvest, domain.SourceEvent)

	resp := ts.Do(t, http.MethodGet, "/modifiers/", nil, token)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var active []domain.FullModifier
	testutil.AssertJSONResponse(t, resp, &active)
	require.Len(t, active, 1)
	assert.Equal(t, harvest.ID, active[0].ModifierID)
	assert.Equal(t, domain.SourceEvent, active[0].SourceType)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expected       float64
	}{
		{"food production", "?target=resource&resource=food", http.StatusOK, 1.4},
		{"other resource", "?target=resource&resource=gold", http.StatusOK, 1.0},
		{"training", "?target=training", http.StatusOK, 1.0},
		{"unknown target", "?target=diplomacy", http.StatusBadRequest, 0},
		{"unknown resource", "?target=resource&resource=mana", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.Do(t, http.MethodGet, "/modifiers/multiplier"+tt.query, nil, token)
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var result handlers.MultiplierResponse
			testutil.AssertJSONResponse(t, resp, &result)
			assert.InDelta(t, tt.expected, result.Multiplier, 1e-9)
		})
	}

	resp = ts.Do(t, http.MethodGet, "/modifiers/history", nil, token)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var history []domain.ModifierHistory
	testutil.AssertJSONResponse(t, resp, &history)
	// Activated directly in the database, so nothing was recorded
	assert.Empty(t, history)
}
