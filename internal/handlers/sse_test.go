package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ecommerce-dashboard/internal/ui/templates"
)

func refresh(t *testing.T, signals string) *httptest.ResponseRecorder {
	t.Helper()
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())

	path := "/sse/refresh-all"
	if signals != "" {
		path += "?datastar=" + url.QueryEscape(signals)
	}
	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewSSEHandlers(t *testing.T) {
	dashboard := createTestDashboard()
	logger := testLogger()

	handlers := NewSSEHandlers(dashboard, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.dashboard != dashboard {
		t.Error("NewSSEHandlers() should set dashboard field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	w := refresh(t, `{"start":"2018-01-01","end":"2018-01-02"}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
	}

	body := w.Body.String()
	for _, id := range []string{
		templates.StatusID,
		templates.SummaryID,
		templates.CategoriesID,
		templates.ReviewsID,
		templates.RFMID,
		templates.StatesID,
		templates.CustomersID,
	} {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("stream should patch #%s", id)
		}
	}

	if !strings.Contains(body, "datastar-patch-signals") {
		t.Error("stream should patch chart signals")
	}
	for _, signal := range []string{"_dailyOrders", "_dailySpending", "_categories", "_reviews", "_states"} {
		if !strings.Contains(body, signal) {
			t.Errorf("signals should include %s", signal)
		}
	}
	if !strings.Contains(body, "$35.00") {
		t.Error("summary cards should reflect the filtered revenue of $35.00")
	}
}

func TestSSEHandlers_HandleRefreshAllDefaultsToFullRange(t *testing.T) {
	body := refresh(t, "").Body.String()

	if !strings.Contains(body, "$75.00") {
		t.Error("without signals the full range should be summarised")
	}
	if !strings.Contains(body, `"end":"2018-01-04"`) {
		t.Error("signals should echo the resolved end date")
	}
}

func TestSSEHandlers_HandleRefreshAllEmptyRange(t *testing.T) {
	body := refresh(t, `{"start":"2018-01-03","end":"2018-01-03"}`).Body.String()

	if !strings.Contains(body, "No orders were approved between 2018-01-03 and 2018-01-03.") {
		t.Error("an empty range should be reported in the status banner")
	}
}

func TestSSEHandlers_HandleRefreshAllInvalidRange(t *testing.T) {
	tests := []struct {
		name    string
		signals string
	}{
		{"end before start", `{"start":"2018-01-04","end":"2018-01-01"}`},
		{"outside data", `{"start":"2017-01-01","end":"2018-01-02"}`},
		{"bad format", `{"start":"January 1st"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := refresh(t, tt.signals)
			body := w.Body.String()

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, errors are reported inside the stream", w.Code)
			}
			if !strings.Contains(body, `id="`+templates.StatusID+`"`) || !strings.Contains(body, "status-banner") {
				t.Error("invalid input should patch the status banner")
			}
			if strings.Contains(body, `id="`+templates.SummaryID+`"`) {
				t.Error("invalid input should leave the summary untouched")
			}
		})
	}
}
