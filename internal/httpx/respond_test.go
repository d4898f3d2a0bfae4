package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skundu/blood-market/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation maps to 400", domain.Validationf("quantity too small"), http.StatusBadRequest, "quantity too small"},
		{"not found maps to 404", domain.ErrNotFound, http.StatusNotFound, "not found"},
		{"wrapped not found maps to 404", domain.Persistence("get order", domain.ErrNotFound), http.StatusNotFound, "not found"},
		{"not available maps to 409", domain.ErrNotAvailable, http.StatusConflict, "not available"},
		{"unknown maps to 500", errors.New("connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, logger, tc.err)

			if rec.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["error"] != tc.wantMsg {
				t.Errorf("expected message %q, got %q", tc.wantMsg, body["error"])
			}
		})
	}
}

func TestWriteJSONSetsContentType(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rec := httptest.NewRecorder()
	WriteJSON(rec, logger, http.StatusCreated, map[string]int64{"id": 7})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
}
