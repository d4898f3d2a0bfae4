package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/skundu/blood-market/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PlaceResult is everything the placement transaction produced, plus the
// retailer contact details needed for the post-commit notification event.
type PlaceResult struct {
	Order         domain.Order   `json:"order"`
	Payment       domain.Payment `json:"payment"`
	RetailerEmail string         `json:"-"`
	RetailerPhone string         `json:"-"`
}

// PlaceOrder runs the purchase transaction. The batch row is locked with
// FOR UPDATE before the status check, so of two concurrent purchasers
// exactly one wins; the loser sees status=reserved and gets ErrNotAvailable.
// Order, order item, pending payment and the batch reservation commit
// together or not at all.
func (r *Repository) PlaceOrder(ctx context.Context, customerID, batchID int64, notes string) (*PlaceResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Persistence("begin place tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var batch domain.InventoryBatch
	err = tx.QueryRowContext(ctx, `
		SELECT batch_id, retailer_id, blood_type_id, quantity_ml, price_per_unit, status
		FROM inventory_batches
		WHERE batch_id = $1
		FOR UPDATE
	`, batchID).Scan(&batch.ID, &batch.RetailerID, &batch.BloodTypeID, &batch.QuantityML,
		&batch.PricePerUnit, &batch.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("lock batch", err)
	}

	if batch.Status != domain.BatchStatusAvailable {
		return nil, domain.ErrNotAvailable
	}

	// one batch per order, unit_count treated as 1 for purchase
	total := batch.PricePerUnit

	res := &PlaceResult{}
	res.Order = domain.Order{
		CustomerID:  customerID,
		RetailerID:  batch.RetailerID,
		TotalAmount: total,
		Status:      domain.OrderStatusPlaced,
		Notes:       notes,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, retailer_id, total_amount, status, notes)
		VALUES ($1, $2, $3, 'placed', $4)
		RETURNING order_id, currency, placed_at
	`, customerID, batch.RetailerID, total, notes).Scan(&res.Order.ID, &res.Order.Currency, &res.Order.PlacedAt)
	if err != nil {
		return nil, domain.Persistence("insert order", err)
	}

	item := domain.OrderItem{
		OrderID:     res.Order.ID,
		BatchID:     batch.ID,
		BloodTypeID: batch.BloodTypeID,
		QuantityML:  batch.QuantityML,
		UnitPrice:   batch.PricePerUnit,
		Subtotal:    batch.PricePerUnit,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, batch_id, blood_type_id, quantity_ml, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING order_item_id
	`, item.OrderID, item.BatchID, item.BloodTypeID, item.QuantityML, item.UnitPrice, item.Subtotal).Scan(&item.ID)
	if err != nil {
		return nil, domain.Persistence("insert order item", err)
	}
	res.Order.Items = []domain.OrderItem{item}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, amount, method, status)
		VALUES ($1, $2, 'bank_transfer', 'pending')
		RETURNING payment_id, created_at
	`, res.Order.ID, total).Scan(&res.Payment.ID, &res.Payment.CreatedAt)
	if err != nil {
		return nil, domain.Persistence("insert payment", err)
	}
	res.Payment.OrderID = res.Order.ID
	res.Payment.Amount = total
	res.Payment.Method = domain.MethodBankTransfer
	res.Payment.Status = domain.PaymentStatusPending

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory_batches SET status = 'reserved' WHERE batch_id = $1
	`, batch.ID); err != nil {
		return nil, domain.Persistence("reserve batch", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(email, ''), COALESCE(phone, '') FROM users WHERE user_id = $1
	`, batch.RetailerID).Scan(&res.RetailerEmail, &res.RetailerPhone)
	if err != nil {
		return nil, domain.Persistence("load retailer contact", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Persistence("commit place tx", err)
	}

	return res, nil
}

// CompletePayment simulates payment capture for the customer's pay-now
// action. The order and payment rows are locked, checked for placed/pending,
// captured through the gateway, then flipped to confirmed/completed in the
// same transaction. A second call finds the order no longer placed and
// returns ErrNotAvailable.
func (r *Repository) CompletePayment(ctx context.Context, customerID, orderID int64, gw Gateway) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Persistence("begin payment tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var orderStatus domain.OrderStatus
	var amount int64
	err = tx.QueryRowContext(ctx, `
		SELECT status, total_amount
		FROM orders
		WHERE order_id = $1 AND customer_id = $2
		FOR UPDATE
	`, orderID, customerID).Scan(&orderStatus, &amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("lock order", err)
	}

	payment := &domain.Payment{OrderID: orderID, Amount: amount}
	err = tx.QueryRowContext(ctx, `
		SELECT payment_id, status, created_at
		FROM payments
		WHERE order_id = $1
		FOR UPDATE
	`, orderID).Scan(&payment.ID, &payment.Status, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("lock payment", err)
	}

	if orderStatus != domain.OrderStatusPlaced || payment.Status != domain.PaymentStatusPending {
		return nil, domain.ErrNotAvailable
	}

	authRef, err := gw.Authorize(ctx, orderID, amount)
	if err != nil {
		return nil, domain.Persistence("authorize payment", err)
	}
	capture, err := gw.Capture(ctx, authRef, amount)
	if err != nil {
		return nil, domain.Persistence("capture payment", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = 'confirmed', modified_at = now() WHERE order_id = $1
	`, orderID); err != nil {
		return nil, domain.Persistence("confirm order", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = 'completed', method = $2, txn_ref = $3 WHERE payment_id = $1
	`, payment.ID, capture.Method, capture.TxnRef); err != nil {
		return nil, domain.Persistence("complete payment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Persistence("commit payment tx", err)
	}

	payment.Status = domain.PaymentStatusCompleted
	payment.Method = capture.Method
	payment.TxnRef = capture.TxnRef
	return payment, nil
}

// StatusUpdateResult reports what a retailer status update did. BatchIDs and
// the customer contact fields are set only for cancellations.
type StatusUpdateResult struct {
	OrderID       int64              `json:"order_id"`
	Status        domain.OrderStatus `json:"status"`
	BatchIDs      []int64            `json:"restocked_batch_ids,omitempty"`
	CustomerID    int64              `json:"-"`
	CustomerEmail string             `json:"-"`
	CustomerPhone string             `json:"-"`
}

// UpdateStatus applies a retailer-driven transition to an order the retailer
// owns. Cancellation restocks every order item's batch in the same
// transaction, and refunds through the gateway when the payment had already
// completed. Cancelling twice is rejected, so a batch can never be restocked
// twice for the same order.
func (r *Repository) UpdateStatus(ctx context.Context, retailerID, orderID int64, status domain.OrderStatus, gw Gateway) (*StatusUpdateResult, error) {
	if !domain.RetailerStatuses[status] {
		return nil, domain.Validationf("invalid status %q", status)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Persistence("begin status tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM orders
		WHERE order_id = $1 AND retailer_id = $2
		FOR UPDATE
	`, orderID, retailerID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("lock order", err)
	}

	if current == domain.OrderStatusCancelled || current == domain.OrderStatusRefunded {
		return nil, domain.ErrNotAvailable
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, modified_at = now() WHERE order_id = $1
	`, orderID, status); err != nil {
		return nil, domain.Persistence("update order status", err)
	}

	res := &StatusUpdateResult{OrderID: orderID, Status: status}

	if status == domain.OrderStatusCancelled {
		if err := cancelInTx(ctx, tx, orderID, gw, res); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Persistence("commit status tx", err)
	}

	return res, nil
}

// cancelInTx restocks all item batches, refunds a completed payment and
// collects the customer contact for the cancellation event.
func cancelInTx(ctx context.Context, tx *sql.Tx, orderID int64, gw Gateway, res *StatusUpdateResult) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT batch_id FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return domain.Persistence("load order items", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var batchID int64
		if err := rows.Scan(&batchID); err != nil {
			return domain.Persistence("scan order item", err)
		}
		res.BatchIDs = append(res.BatchIDs, batchID)
	}
	if err := rows.Err(); err != nil {
		return domain.Persistence("load order items", err)
	}

	if len(res.BatchIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory_batches SET status = 'available' WHERE batch_id = ANY($1)
		`, pq.Array(res.BatchIDs)); err != nil {
			return domain.Persistence("restock batches", err)
		}
	}

	var paymentID int64
	var paymentStatus domain.PaymentStatus
	var amount int64
	var txnRef sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT payment_id, status, amount, txn_ref
		FROM payments
		WHERE order_id = $1
		FOR UPDATE
	`, orderID).Scan(&paymentID, &paymentStatus, &amount, &txnRef)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Persistence("lock payment", err)
	}

	if err == nil && paymentStatus == domain.PaymentStatusCompleted {
		if err := gw.Refund(ctx, txnRef.String, amount); err != nil {
			return domain.Persistence("refund payment", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE payments SET status = 'refunded' WHERE payment_id = $1
		`, paymentID); err != nil {
			return domain.Persistence("refund payment", err)
		}
	}

	err = tx.QueryRowContext(ctx, `
		SELECT o.customer_id, COALESCE(u.email, ''), COALESCE(u.phone, '')
		FROM orders o
		JOIN users u ON u.user_id = o.customer_id
		WHERE o.order_id = $1
	`, orderID).Scan(&res.CustomerID, &res.CustomerEmail, &res.CustomerPhone)
	if err != nil {
		return domain.Persistence("load customer contact", err)
	}

	return nil
}

// GetByID loads an order and its items.
func (r *Repository) GetByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, `
		SELECT order_id, customer_id, retailer_id, total_amount, currency, status, placed_at, modified_at, COALESCE(notes, '')
		FROM orders
		WHERE order_id = $1
	`, orderID).Scan(&order.ID, &order.CustomerID, &order.RetailerID, &order.TotalAmount,
		&order.Currency, &order.Status, &order.PlacedAt, &order.ModifiedAt, &order.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("get order", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_item_id, order_id, batch_id, blood_type_id, quantity_ml, unit_price, subtotal
		FROM order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, domain.Persistence("get order items", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.BatchID, &item.BloodTypeID,
			&item.QuantityML, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, domain.Persistence("scan order item", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("get order items", err)
	}

	return order, nil
}

// ListByCustomer returns the customer's order history joined with payment
// state, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.CustomerOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.order_id, o.customer_id, o.retailer_id, o.total_amount, o.currency, o.status,
		       o.placed_at, o.modified_at, COALESCE(o.notes, ''),
		       p.payment_id, p.status
		FROM orders o
		JOIN payments p ON p.order_id = o.order_id
		WHERE o.customer_id = $1
		ORDER BY o.placed_at DESC
	`, customerID)
	if err != nil {
		return nil, domain.Persistence("list customer orders", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.CustomerOrder{}
	for rows.Next() {
		var co domain.CustomerOrder
		if err := rows.Scan(&co.ID, &co.CustomerID, &co.RetailerID, &co.TotalAmount, &co.Currency,
			&co.Status, &co.PlacedAt, &co.ModifiedAt, &co.Notes, &co.PaymentID, &co.PaymentStatus); err != nil {
			return nil, domain.Persistence("scan customer order", err)
		}
		orders = append(orders, co)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list customer orders", err)
	}

	return orders, nil
}

// ListByRetailer returns orders received by a retailer, joined with the
// purchasing hospital's name.
func (r *Repository) ListByRetailer(ctx context.Context, retailerID int64) ([]domain.RetailerOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.order_id, o.customer_id, o.retailer_id, o.total_amount, o.currency, o.status,
		       o.placed_at, o.modified_at, COALESCE(o.notes, ''),
		       COALESCE(c.hospital_name, '')
		FROM orders o
		JOIN customers c ON c.customer_id = o.customer_id
		WHERE o.retailer_id = $1
		ORDER BY o.placed_at DESC
	`, retailerID)
	if err != nil {
		return nil, domain.Persistence("list retailer orders", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.RetailerOrder{}
	for rows.Next() {
		var ro domain.RetailerOrder
		if err := rows.Scan(&ro.ID, &ro.CustomerID, &ro.RetailerID, &ro.TotalAmount, &ro.Currency,
			&ro.Status, &ro.PlacedAt, &ro.ModifiedAt, &ro.Notes, &ro.HospitalName); err != nil {
			return nil, domain.Persistence("scan retailer order", err)
		}
		orders = append(orders, ro)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list retailer orders", err)
	}

	return orders, nil
}
