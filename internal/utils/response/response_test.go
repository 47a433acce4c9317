package response_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	appErrors "github.com/aaravmahajanofficial/sellit-backend/internal/errors"
	"github.com/aaravmahajanofficial/sellit-backend/internal/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("AppError keeps its status, code and detail", func(t *testing.T) {
		rr := httptest.NewRecorder()

		response.Error(rr, appErrors.InsufficientStockError("Not enough stock available").WithDetail("only 2 left"))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Not enough stock available","code":"INSUFFICIENT_STOCK","details":["only 2 left"]}`, rr.Body.String())
	})

	t.Run("Wrapped AppError", func(t *testing.T) {
		rr := httptest.NewRecorder()

		response.Error(rr, fmt.Errorf("handler: %w", appErrors.NotFoundError("Product not found")))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Retry-After header", func(t *testing.T) {
		rr := httptest.NewRecorder()

		response.Error(rr, appErrors.TooManyRequestsError("slow down").WithRetryAfter(42))

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "42", rr.Header().Get("Retry-After"))
	})

	t.Run("Other errors become a generic 500", func(t *testing.T) {
		rr := httptest.NewRecorder()

		response.Error(rr, fmt.Errorf("pq: password authentication failed"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Empty(t, rr.Header().Get("Retry-After"))

		var body response.ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, appErrors.ErrCodeInternal, body.Code)
		assert.NotContains(t, rr.Body.String(), "password")
	})
}

func TestNoContent(t *testing.T) {
	rr := httptest.NewRecorder()

	response.NoContent(rr)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rr.Body.Len())
}
