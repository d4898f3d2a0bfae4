package identity

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skundu/blood-market/internal/domain"
)

func TestRequireRejectsMissingToken(t *testing.T) {
	auth := NewAuth(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	called := false
	handler := auth.Require(domain.RoleCustomer, func(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if called {
		t.Error("expected protected handler not to be called")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"well-formed", "Bearer abc123", "abc123"},
		{"padded", "Bearer   abc123  ", "abc123"},
		{"missing prefix", "abc123", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"empty header", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := bearerToken(req); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
