package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Error responses are plain text in this API
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertStored verifies the player's storage balance
func AssertStored(t *testing.T, db *gorm.DB, playerID uuid.UUID, expected domain.Amounts) {
	t.Helper()

	var res domain.PlayerResource
	require.NoError(t, db.First(&res, "player_id = ?", playerID).Error)
	assert.Equal(t, expected, res.Stored(), "unexpected storage")
}

// AssertAccumulator verifies the player's accumulator balance
func AssertAccumulator(t *testing.T, db *gorm.DB, playerID uuid.UUID, expected domain.Amounts) {
	t.Helper()

	var acc domain.PlayerAccumulator
	require.NoError(t, db.First(&acc, "player_id = ?", playerID).Error)
	assert.Equal(t, expected, acc.Amounts(), "unexpected accumulator")
}

// PendingJobs returns the pending jobs of a type ordered by run time
func PendingJobs(t *testing.T, db *gorm.DB, jobType domain.JobType) []domain.Job {
	t.Helper()

	var jobs []domain.Job
	require.NoError(t, db.Where("job_type = ? AND status = ?", jobType, domain.JobPending).Order("run_at").Find(&jobs).Error)
	return jobs
}
