package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/skundu/blood-market/internal/domain"
	"github.com/skundu/blood-market/internal/httpx"
	"github.com/skundu/blood-market/internal/messaging"
)

var meter = otel.Meter("orders")

type Handler struct {
	repo    *Repository
	gateway Gateway

	// nil producers disable event publishing (e.g. tests without Kafka)
	placedProducer    *messaging.Producer
	cancelledProducer *messaging.Producer

	logger *slog.Logger

	ordersPlaced      metric.Int64Counter
	ordersCancelled   metric.Int64Counter
	paymentsCompleted metric.Int64Counter
}

func NewHandler(repo *Repository, gateway Gateway, placed, cancelled *messaging.Producer, logger *slog.Logger) (*Handler, error) {
	ordersPlaced, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders successfully placed"))
	if err != nil {
		return nil, err
	}
	ordersCancelled, err := meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders cancelled by retailers"))
	if err != nil {
		return nil, err
	}
	paymentsCompleted, err := meter.Int64Counter("payments.completed",
		metric.WithDescription("Payments captured"))
	if err != nil {
		return nil, err
	}

	return &Handler{
		repo:              repo,
		gateway:           gateway,
		placedProducer:    placed,
		cancelledProducer: cancelled,
		logger:            logger,
		ordersPlaced:      ordersPlaced,
		ordersCancelled:   ordersCancelled,
		paymentsCompleted: paymentsCompleted,
	}, nil
}

type placeOrderRequest struct {
	BatchID int64  `json:"batch_id"`
	Notes   string `json:"notes"`
}

func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BatchID <= 0 {
		httpx.WriteDomainError(w, h.logger, domain.Validationf("batch_id is required"))
		return
	}

	res, err := h.repo.PlaceOrder(r.Context(), actor.UserID, req.BatchID, req.Notes)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.ordersPlaced.Add(r.Context(), 1)

	if h.placedProducer != nil {
		event := domain.OrderPlacedEvent{
			OrderID:       res.Order.ID,
			BatchID:       req.BatchID,
			CustomerID:    res.Order.CustomerID,
			RetailerID:    res.Order.RetailerID,
			TotalAmount:   res.Order.TotalAmount,
			RetailerEmail: res.RetailerEmail,
			RetailerPhone: res.RetailerPhone,
			Timestamp:     time.Now().UTC(),
		}
		if err := h.placedProducer.Publish(r.Context(), messaging.OrderKey(res.Order.ID), event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", res.Order.ID)
		}
	}

	h.logger.Info("order placed", "order_id", res.Order.ID, "batch_id", req.BatchID,
		"customer_id", actor.UserID, "total", res.Order.TotalAmount)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, res)
}

func (h *Handler) HandleCompletePayment(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	orderID, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	payment, err := h.repo.CompletePayment(r.Context(), actor.UserID, orderID, h.gateway)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.paymentsCompleted.Add(r.Context(), 1)

	h.logger.Info("payment completed", "order_id", orderID, "payment_id", payment.ID, "txn_ref", payment.TxnRef)
	httpx.WriteJSON(w, h.logger, http.StatusOK, payment)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	orderID, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.repo.UpdateStatus(r.Context(), actor.UserID, orderID, req.Status, h.gateway)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	if res.Status == domain.OrderStatusCancelled {
		h.ordersCancelled.Add(r.Context(), 1)

		if h.cancelledProducer != nil {
			event := domain.OrderCancelledEvent{
				OrderID:       res.OrderID,
				CustomerID:    res.CustomerID,
				RetailerID:    actor.UserID,
				BatchIDs:      res.BatchIDs,
				CustomerEmail: res.CustomerEmail,
				CustomerPhone: res.CustomerPhone,
				Timestamp:     time.Now().UTC(),
			}
			if err := h.cancelledProducer.Publish(r.Context(), messaging.OrderKey(res.OrderID), event); err != nil {
				h.logger.Error("failed to publish order cancelled event", "error", err, "order_id", res.OrderID)
			}
		}
	}

	h.logger.Info("order status updated", "order_id", orderID, "status", res.Status,
		"restocked", len(res.BatchIDs))
	httpx.WriteJSON(w, h.logger, http.StatusOK, res)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	orderID, ok := pathID(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.repo.GetByID(r.Context(), orderID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	// an order is visible to its customer, its retailer and admins
	if order.CustomerID != actor.UserID && order.RetailerID != actor.UserID && actor.Role != domain.RoleAdmin {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "not found")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleListCustomerOrders(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	orders, err := h.repo.ListByCustomer(r.Context(), actor.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleListRetailerOrders(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	orders, err := h.repo.ListByRetailer(r.Context(), actor.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func pathID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, logger, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}
