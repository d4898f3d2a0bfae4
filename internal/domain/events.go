package domain

import "time"

// Order lifecycle events published after the owning transaction commits.
// They carry the contact details the notification worker needs so that it
// never has to reach back into the database.

type OrderPlacedEvent struct {
	OrderID       int64     `json:"order_id"`
	BatchID       int64     `json:"batch_id"`
	CustomerID    int64     `json:"customer_id"`
	RetailerID    int64     `json:"retailer_id"`
	TotalAmount   int64     `json:"total_amount"`
	RetailerEmail string    `json:"retailer_email,omitempty"`
	RetailerPhone string    `json:"retailer_phone,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type OrderCancelledEvent struct {
	OrderID       int64     `json:"order_id"`
	CustomerID    int64     `json:"customer_id"`
	RetailerID    int64     `json:"retailer_id"`
	BatchIDs      []int64   `json:"batch_ids"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
