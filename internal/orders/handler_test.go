package orders

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skundu/blood-market/internal/domain"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	h, err := NewHandler(nil, SimulatedGateway{}, nil, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	return h
}

func TestHandlePlaceValidation(t *testing.T) {
	handler := newTestHandler(t)
	actor := domain.Actor{UserID: 1, Role: domain.RoleCustomer}

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		handler.HandlePlace(rec, req, actor)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects missing batch id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"notes":"urgent"}`))
		rec := httptest.NewRecorder()
		handler.HandlePlace(rec, req, actor)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandleCompletePaymentRejectsBadID(t *testing.T) {
	handler := newTestHandler(t)
	actor := domain.Actor{UserID: 1, Role: domain.RoleCustomer}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders/{id}/pay", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleCompletePayment(w, r, actor)
	})

	req := httptest.NewRequest(http.MethodPost, "/orders/abc/pay", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleUpdateStatusRejectsMalformedBody(t *testing.T) {
	handler := newTestHandler(t)
	actor := domain.Actor{UserID: 2, Role: domain.RoleRetailer}

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /retailer/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleUpdateStatus(w, r, actor)
	})

	req := httptest.NewRequest(http.MethodPatch, "/retailer/orders/5/status", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
