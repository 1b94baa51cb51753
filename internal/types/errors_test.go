package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code ErrorCode
		want int
	}{
		{"validation maps to 400", ErrCodeValidationMissingField, http.StatusBadRequest},
		{"invalid json maps to 400", ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{"empty plan maps to 400", ErrCodeValidationEmptyPlan, http.StatusBadRequest},
		{"not found maps to 404", ErrCodeNotFoundStagedPayload, http.StatusNotFound},
		{"conflict maps to 409", ErrCodeConflictStaleTraining, http.StatusConflict},
		{"infeasible solution maps to 200", ErrCodeSolutionInfeasible, http.StatusOK},
		{"rate limited maps to 429", ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{"upstream maps to 502", ErrCodeUpstreamPlanner, http.StatusBadGateway},
		{"internal maps to 500", ErrCodeInternalDB, http.StatusInternalServerError},
		{"unknown maps to 500", ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeUpstreamBroker, "broker unavailable", underlying)

	require.ErrorIs(t, appErr, underlying)

	var target *AppError
	require.ErrorAs(t, appErr, &target)
	assert.Equal(t, ErrCodeUpstreamBroker, target.Code)
}

func TestAppErrorWithDetails(t *testing.T) {
	base := NewAppErrorWithDetails(ErrCodeUpstreamStage, "stage failed", nil,
		map[string]any{"key": "a/b.json"})

	enriched := base.WithDetails(map[string]any{"attempt": 2})

	assert.Equal(t, map[string]any{"key": "a/b.json"}, base.Details, "original must not be mutated")
	assert.Equal(t, "a/b.json", enriched.Details["key"])
	assert.Equal(t, 2, enriched.Details["attempt"])
}
