package domain

import "time"

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// RetailerStatuses are the transitions a retailer may apply to a received
// order. Everything after "placed" is driven manually from the dashboard.
var RetailerStatuses = map[OrderStatus]bool{
	OrderStatusConfirmed: true,
	OrderStatusPreparing: true,
	OrderStatusShipped:   true,
	OrderStatusDelivered: true,
	OrderStatusCancelled: true,
}

type OrderItem struct {
	ID          int64 `json:"order_item_id"`
	OrderID     int64 `json:"order_id"`
	BatchID     int64 `json:"batch_id"`
	BloodTypeID int16 `json:"blood_type_id"`
	QuantityML  int   `json:"quantity_ml"`
	UnitPrice   int64 `json:"unit_price"`
	Subtotal    int64 `json:"subtotal"`
}

type Order struct {
	ID          int64       `json:"order_id"`
	CustomerID  int64       `json:"customer_id"`
	RetailerID  int64       `json:"retailer_id"`
	TotalAmount int64       `json:"total_amount"`
	Currency    string      `json:"currency"`
	Status      OrderStatus `json:"status"`
	Items       []OrderItem `json:"items,omitempty"`
	PlacedAt    time.Time   `json:"placed_at"`
	ModifiedAt  *time.Time  `json:"modified_at,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCard         PaymentMethod = "card"
	MethodUPI          PaymentMethod = "upi"
	MethodCOD          PaymentMethod = "cod"
	MethodWallet       PaymentMethod = "wallet"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID        int64         `json:"payment_id"`
	OrderID   int64         `json:"order_id"`
	Amount    int64         `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Status    PaymentStatus `json:"status"`
	TxnRef    string        `json:"txn_ref,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// CustomerOrder is an order joined with its payment, as shown in the
// customer's order history.
type CustomerOrder struct {
	Order
	PaymentID     int64         `json:"payment_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// RetailerOrder is an order joined with the purchasing hospital's name, as
// shown on the retailer dashboard.
type RetailerOrder struct {
	Order
	HospitalName string `json:"hospital_name"`
}
