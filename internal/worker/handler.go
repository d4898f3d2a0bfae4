package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/skundu/blood-market/internal/domain"
	"github.com/skundu/blood-market/internal/notify"
)

// NotificationHandler turns order lifecycle events into email and SMS
// notifications. Events carry the recipient contact details, so the worker
// never touches the database.
type NotificationHandler struct {
	mailer *notify.Mailer
	sms    *notify.SMSSender
	logger *slog.Logger
}

func NewNotificationHandler(mailer *notify.Mailer, sms *notify.SMSSender, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		mailer: mailer,
		sms:    sms,
		logger: logger,
	}
}

// HandleOrderPlaced notifies the retailer that a new order needs attention.
func (h *NotificationHandler) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event",
		"order_id", event.OrderID, "retailer_id", event.RetailerID)

	subject := fmt.Sprintf("New order #%d", event.OrderID)
	body := fmt.Sprintf(
		"You have received order #%d for batch #%d, total %s. Log in to confirm it.",
		event.OrderID, event.BatchID, formatINR(event.TotalAmount))

	if hasContact(event.RetailerEmail) {
		if err := h.mailer.Send(event.RetailerEmail, subject, body); err != nil {
			h.logger.Error("failed to send order placed email", "error", err, "order_id", event.OrderID)
			return err
		}
	}

	if hasContact(event.RetailerPhone) {
		msg := fmt.Sprintf("New blood order #%d, total %s. Please confirm.", event.OrderID, formatINR(event.TotalAmount))
		if err := h.sms.Send(ctx, event.RetailerPhone, msg); err != nil {
			h.logger.Error("failed to send order placed sms", "error", err, "order_id", event.OrderID)
			return err
		}
	}

	h.logger.Info("order placed notifications sent", "order_id", event.OrderID)
	return nil
}

// HandleOrderCancelled notifies the customer that their order was cancelled
// and its stock returned.
func (h *NotificationHandler) HandleOrderCancelled(ctx context.Context, payload []byte) error {
	var event domain.OrderCancelledEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order cancelled event: %w", err)
	}

	h.logger.Info("processing order cancelled event",
		"order_id", event.OrderID, "restocked", len(event.BatchIDs))

	subject := fmt.Sprintf("Order #%d cancelled", event.OrderID)
	body := fmt.Sprintf(
		"Your order #%d has been cancelled by the blood bank. Any completed payment will be refunded.",
		event.OrderID)

	if hasContact(event.CustomerEmail) {
		if err := h.mailer.Send(event.CustomerEmail, subject, body); err != nil {
			h.logger.Error("failed to send cancellation email", "error", err, "order_id", event.OrderID)
			return err
		}
	}

	if hasContact(event.CustomerPhone) {
		msg := fmt.Sprintf("Your blood order #%d was cancelled. Refund in progress if paid.", event.OrderID)
		if err := h.sms.Send(ctx, event.CustomerPhone, msg); err != nil {
			h.logger.Error("failed to send cancellation sms", "error", err, "order_id", event.OrderID)
			return err
		}
	}

	h.logger.Info("order cancelled notifications sent", "order_id", event.OrderID)
	return nil
}

// hasContact reports whether the event carried a usable address. "-" is the
// placeholder for accounts with no contact details on file.
func hasContact(v string) bool {
	return v != "" && v != "-"
}

// formatINR renders a paise amount as rupees for message bodies.
func formatINR(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
