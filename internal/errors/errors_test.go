package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/dataset"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromError(t *testing.T) {
	start := time.Date(2018, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"app error passes through", NotFound("missing"), CodeNotFound, http.StatusNotFound},
		{"invalid range", fmt.Errorf("report: %w", &dataset.InvalidRangeError{Start: start, End: end, Reason: "end date is before start date"}), CodeValidation, http.StatusBadRequest},
		{"load error", &dataset.LoadError{Source: "x.csv", Err: dataset.ErrNoRecords}, CodeServiceUnavail, http.StatusServiceUnavailable},
		{"cancelled", context.Canceled, CodeServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.StatusCode)
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CodeInternal, "save failed")

	assert.Equal(t, "INTERNAL_ERROR: save failed (caused by: disk full)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "BAD_REQUEST: nope", BadRequest("nope").Error())
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)

	rangeErr := &dataset.InvalidRangeError{
		Start:  time.Date(2018, 1, 5, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		Reason: "end date is before start date",
	}
	WriteError(w, r, discardLogger(), rangeErr, "req-1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Details   string `json:"details"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Contains(t, resp.Error.Details, "2018-01-05..2018-01-01")
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()

	WriteSuccessWithHeaders(w, map[string]int{"rows": 3}, map[string]string{"Cache-Control": "no-store"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":{"rows":3},"success":true}`, w.Body.String())
}
