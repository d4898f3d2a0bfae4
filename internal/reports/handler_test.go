package reports

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skundu/blood-market/internal/domain"
)

func TestScopeFor(t *testing.T) {
	t.Run("admin sees the whole platform", func(t *testing.T) {
		retailerID, scope := scopeFor(domain.Actor{UserID: 1, Role: domain.RoleAdmin})
		if retailerID != 0 || scope != "all" {
			t.Errorf("expected (0, all), got (%d, %s)", retailerID, scope)
		}
	})

	t.Run("retailer sees own data", func(t *testing.T) {
		retailerID, scope := scopeFor(domain.Actor{UserID: 9, Role: domain.RoleRetailer})
		if retailerID != 9 || scope != "retailer:9" {
			t.Errorf("expected (9, retailer:9), got (%d, %s)", retailerID, scope)
		}
	})
}

func TestHandleSubmitRatingValidation(t *testing.T) {
	handler := NewHandler(nil, nil, 0, 5, slog.New(slog.NewTextHandler(io.Discard, nil)))
	actor := domain.Actor{UserID: 4, Role: domain.RoleCustomer}

	cases := []struct {
		name string
		body string
	}{
		{"malformed body", "{"},
		{"missing retailer", `{"rating":4}`},
		{"rating too low", `{"retailer_id":9,"rating":0}`},
		{"rating too high", `{"retailer_id":9,"rating":6}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.HandleSubmitRating(rec, req, actor)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}
