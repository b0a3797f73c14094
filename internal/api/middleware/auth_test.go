package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/empire-backend/internal/api/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestAuth(t *testing.T) {
	playerID := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{
			name:           "valid token",
			header:         "Bearer " + sign(t, secret, jwt.MapClaims{"sub": playerID.String(), "exp": exp}),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong scheme",
			header:         "Basic abc",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong secret",
			header:         "Bearer " + sign(t, "other", jwt.MapClaims{"sub": playerID.String(), "exp": exp}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired",
			header:         "Bearer " + sign(t, secret, jwt.MapClaims{"sub": playerID.String(), "exp": time.Now().Add(-time.Hour).Unix()}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "subject is not a uuid",
			header:         "Bearer " + sign(t, secret, jwt.MapClaims{"sub": "bob", "exp": exp}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "no subject",
			header:         "Bearer " + sign(t, secret, jwt.MapClaims{"exp": exp}),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen uuid.UUID
			handler := middleware.Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = middleware.GetPlayerID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, playerID, seen)
			}
		})
	}
}
