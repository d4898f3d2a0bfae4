package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/skundu/blood-market/internal/domain"
	"github.com/skundu/blood-market/internal/httpx"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// HandleBrowse serves the customer "find available blood units" view.
func (h *Handler) HandleBrowse(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	f := BrowseFilter{
		BloodType: r.URL.Query().Get("blood_type"),
		City:      r.URL.Query().Get("city"),
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		maxPrice, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxPrice < 0 {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid max_price")
			return
		}
		f.MaxPrice = maxPrice
	}

	listings, err := h.repo.BrowseAvailable(r.Context(), f)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, listings)
}

func (h *Handler) HandleBloodTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.repo.BloodTypes(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, types)
}

func (h *Handler) HandleListInventory(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	batches, err := h.repo.ListByRetailer(r.Context(), actor.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, batches)
}

type addBatchRequest struct {
	BloodType    string `json:"blood_type"`
	QuantityML   int    `json:"quantity_ml"`
	Quality      string `json:"quality"`
	PricePerUnit int64  `json:"price_per_unit"`
	ExpiryDate   string `json:"expiry_date"`
}

func (h *Handler) HandleAddBatch(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var req addBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Quality == "" {
		req.Quality = string(domain.QualityA)
	}
	quality := domain.BatchQuality(req.Quality)

	switch {
	case req.QuantityML < 50:
		httpx.WriteDomainError(w, h.logger, domain.Validationf("quantity_ml must be at least 50"))
		return
	case req.PricePerUnit <= 0:
		httpx.WriteDomainError(w, h.logger, domain.Validationf("price_per_unit must be positive"))
		return
	case quality != domain.QualityA && quality != domain.QualityB && quality != domain.QualityC:
		httpx.WriteDomainError(w, h.logger, domain.Validationf("quality must be A, B or C"))
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, domain.Validationf("expiry_date must be YYYY-MM-DD"))
		return
	}

	bloodTypeID, err := h.repo.BloodTypeIDByCode(r.Context(), req.BloodType)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	batchID, err := h.repo.AddBatch(r.Context(), actor.UserID, bloodTypeID,
		req.QuantityML, quality, req.PricePerUnit, expiry)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("batch added", "batch_id", batchID, "retailer_id", actor.UserID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, map[string]int64{"batch_id": batchID})
}

type recordDonationRequest struct {
	DonorName    string `json:"donor_name"`
	DonorPhone   string `json:"donor_phone"`
	BloodType    string `json:"blood_type"`
	VolumeML     int    `json:"volume_ml"`
	PricePerUnit int64  `json:"price_per_unit"`
}

func (h *Handler) HandleRecordDonation(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var req recordDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.DonorName == "" || req.DonorPhone == "":
		httpx.WriteDomainError(w, h.logger, domain.Validationf("donor name and phone required"))
		return
	case req.VolumeML < 50:
		httpx.WriteDomainError(w, h.logger, domain.Validationf("volume_ml must be at least 50"))
		return
	case req.PricePerUnit <= 0:
		httpx.WriteDomainError(w, h.logger, domain.Validationf("price_per_unit must be positive"))
		return
	}

	bloodTypeID, err := h.repo.BloodTypeIDByCode(r.Context(), req.BloodType)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	res, err := h.repo.RecordDonation(r.Context(), DonationIntake{
		RetailerID:   actor.UserID,
		DonorName:    req.DonorName,
		DonorPhone:   req.DonorPhone,
		BloodTypeID:  bloodTypeID,
		VolumeML:     req.VolumeML,
		PricePerUnit: req.PricePerUnit,
		CollectedAt:  time.Now().UTC(),
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("donation recorded", "donation_id", res.DonationID, "batch_id", res.BatchID,
		"donor_id", res.DonorID, "retailer_id", actor.UserID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, res)
}

func (h *Handler) HandleListDonations(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	records, err := h.repo.ListDonations(r.Context(), actor.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, records)
}
