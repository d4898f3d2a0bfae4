package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skundu/blood-market/internal/domain"
	"github.com/skundu/blood-market/internal/httpx"
	"github.com/skundu/blood-market/internal/redisx"
)

type Handler struct {
	repo     *Repository
	rdb      *redis.Client
	cacheTTL time.Duration
	lowStock int
	logger   *slog.Logger
}

func NewHandler(repo *Repository, rdb *redis.Client, cacheTTL time.Duration, lowStockThreshold int, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		rdb:      rdb,
		cacheTTL: cacheTTL,
		lowStock: lowStockThreshold,
		logger:   logger,
	}
}

// scopeFor narrows a report to the caller's own data unless they are an
// admin, who sees the whole platform.
func scopeFor(actor domain.Actor) (retailerID int64, scope string) {
	if actor.Role == domain.RoleAdmin {
		return 0, "all"
	}
	return actor.UserID, fmt.Sprintf("retailer:%d", actor.UserID)
}

// serveCached answers from Redis when a fresh copy exists, otherwise builds
// the report, caches it and serves it. Cache failures are logged and the
// report is served from the database.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, name, scope string,
	build func(ctx context.Context) (any, error)) {

	key := fmt.Sprintf(redisx.KeyReport, name, scope)

	if h.rdb != nil {
		cached, err := h.rdb.Get(r.Context(), key).Bytes()
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("report cache read failed", "error", err, "key", key)
		}
	}

	report, err := build(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		h.logger.Error("failed to encode report", "error", err, "report", name)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.rdb != nil {
		if err := h.rdb.Set(r.Context(), key, payload, h.cacheTTL).Err(); err != nil {
			h.logger.Warn("report cache write failed", "error", err, "key", key)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) HandleSales(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	retailerID, scope := scopeFor(actor)
	h.serveCached(w, r, "sales", scope, func(ctx context.Context) (any, error) {
		return h.repo.SalesOverTime(ctx, retailerID)
	})
}

func (h *Handler) HandleLowStock(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	retailerID, scope := scopeFor(actor)
	h.serveCached(w, r, "low-stock", scope, func(ctx context.Context) (any, error) {
		return h.repo.LowStock(ctx, retailerID, h.lowStock)
	})
}

func (h *Handler) HandleRatings(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	retailerID, scope := scopeFor(actor)
	h.serveCached(w, r, "ratings", scope, func(ctx context.Context) (any, error) {
		return h.repo.RatingSummaries(ctx, retailerID)
	})
}

func (h *Handler) HandleSalesByBloodType(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	retailerID, scope := scopeFor(actor)
	h.serveCached(w, r, "sales-by-blood-type", scope, func(ctx context.Context) (any, error) {
		return h.repo.SalesByBloodType(ctx, retailerID)
	})
}

func (h *Handler) HandleRetailerPerformance(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	h.serveCached(w, r, "retailer-performance", "all", func(ctx context.Context) (any, error) {
		return h.repo.RetailerPerformances(ctx)
	})
}

func (h *Handler) HandleTopDonors(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	retailerID, scope := scopeFor(actor)
	h.serveCached(w, r, "top-donors", scope, func(ctx context.Context) (any, error) {
		return h.repo.TopDonors(ctx, retailerID)
	})
}

type submitRatingRequest struct {
	RetailerID int64  `json:"retailer_id"`
	Rating     int    `json:"rating"`
	Review     string `json:"review"`
}

func (h *Handler) HandleSubmitRating(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var req submitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.RetailerID <= 0:
		httpx.WriteDomainError(w, h.logger, domain.Validationf("retailer_id is required"))
		return
	case req.Rating < 1 || req.Rating > 5:
		httpx.WriteDomainError(w, h.logger, domain.Validationf("rating must be between 1 and 5"))
		return
	}

	ratingID, err := h.repo.SubmitRating(r.Context(), actor.UserID, req.RetailerID, req.Rating, req.Review)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("rating submitted", "rating_id", ratingID, "retailer_id", req.RetailerID,
		"customer_id", actor.UserID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, map[string]int64{"rating_id": ratingID})
}
